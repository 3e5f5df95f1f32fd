package repository

import (
	"context"

	"github.com/jhoicas/msp-api/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// ListActiveStaff usuarios activos con rol admin o tech.
	ListActiveStaff(ctx context.Context) ([]*entity.User, error)
}
