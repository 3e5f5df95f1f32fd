package repository

import (
	"context"
	"time"

	"github.com/jhoicas/msp-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
// GetByID/GetItem devuelven (nil, nil) si no existe.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update persiste estado, totales, vencimiento y datos de pago.
	Update(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// Delete borra la cabecera y sus líneas.
	Delete(ctx context.Context, id string) error

	// CreateItem devuelve domain.ErrAlreadyInvoiced si la fuente (horas/material)
	// ya está referenciada por otra línea.
	CreateItem(ctx context.Context, item *entity.InvoiceItem) error
	UpdateItem(ctx context.Context, item *entity.InvoiceItem) error
	GetItem(ctx context.Context, id string) (*entity.InvoiceItem, error)
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error)
	// ClearItemSources desvincula todas las líneas de sus registros origen (anulación).
	ClearItemSources(ctx context.Context, invoiceID string) error

	// HasRecentRenewalItem indica si alguna factura generada desde `since` tiene
	// una línea de renovación del activo.
	HasRecentRenewalItem(ctx context.Context, assetID string, since time.Time) (bool, error)
}
