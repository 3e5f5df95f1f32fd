package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/domain/repository"
)

var (
	_ repository.AccountRepository      = (*AccountRepo)(nil)
	_ repository.TicketRepository       = (*TicketRepo)(nil)
	_ repository.NotificationRepository = (*NotificationRepo)(nil)
)

// AccountRepo lectura de cuentas.
type AccountRepo struct {
	q Querier
}

// NewAccountRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAccountRepository(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

// GetByID obtiene una cuenta. (nil, nil) si no existe.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `SELECT id, name, billing_email, created_at, updated_at FROM accounts WHERE id = $1`
	var a entity.Account
	var email *string
	err := r.q.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &email, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	a.BillingEmail = derefStr(email)
	return &a, nil
}

// TicketRepo lectura de tickets.
type TicketRepo struct {
	q Querier
}

// NewTicketRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTicketRepository(q Querier) *TicketRepo {
	return &TicketRepo{q: q}
}

// GetByID obtiene un ticket. (nil, nil) si no existe.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	query := `SELECT id, account_id, number, subject, created_at FROM tickets WHERE id = $1`
	var t entity.Ticket
	err := r.q.QueryRow(ctx, query, id).Scan(&t.ID, &t.AccountID, &t.Number, &t.Subject, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return &t, nil
}

// NotificationRepo avisos internos.
type NotificationRepo struct {
	q Querier
}

// NewNotificationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewNotificationRepository(q Querier) *NotificationRepo {
	return &NotificationRepo{q: q}
}

// Create persiste un aviso.
func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	query := `
		INSERT INTO notifications (id, user_id, subject, message, link, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		n.ID, n.UserID, n.Subject, n.Message, nullIfEmpty(n.Link), n.Priority, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
