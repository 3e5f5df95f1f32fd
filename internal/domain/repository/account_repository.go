package repository

import (
	"context"

	"github.com/jhoicas/msp-api/internal/domain/entity"
)

// AccountRepository define el puerto de persistencia para Account.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Account, error)
}

// TicketRepository define el puerto de persistencia para Ticket.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Ticket, error)
}

// NotificationRepository guarda avisos internos del personal.
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
}
