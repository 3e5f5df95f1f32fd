package repository

import (
	"context"

	"github.com/jhoicas/msp-api/internal/domain/entity"
)

// BillableRepository puerto de persistencia de horas y materiales de tickets.
//
// Los Lock* son compare-and-swap: solo bloquean registros con invoice_id NULL.
// Si alguno ya estaba bloqueado devuelven domain.ErrAlreadyInvoiced y el
// llamador debe hacer rollback.
type BillableRepository interface {
	ListUnbilledTimeEntries(ctx context.Context, ticketID string) ([]*entity.TimeEntry, error)
	ListUnbilledMaterials(ctx context.Context, ticketID string) ([]*entity.MaterialUsage, error)

	LockTimeEntries(ctx context.Context, ids []string, invoiceID string) error
	LockMaterials(ctx context.Context, ids []string, invoiceID string) error

	// UnlockSource libera el registro apuntado por la línea si sigue bloqueado por invoiceID.
	UnlockSource(ctx context.Context, src entity.SourceRef, invoiceID string) error
	// UnlockByInvoice libera todas las horas y materiales bloqueados por la factura.
	UnlockByInvoice(ctx context.Context, invoiceID string) error
}
