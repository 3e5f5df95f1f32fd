package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/msp-api/internal/domain"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/domain/repository"
)

var _ repository.BillableRepository = (*BillableRepo)(nil)

// BillableRepo horas y materiales de tickets (usable con pool o tx).
type BillableRepo struct {
	q Querier
}

// NewBillableRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBillableRepository(q Querier) *BillableRepo {
	return &BillableRepo{q: q}
}

// ListUnbilledTimeEntries horas del ticket sin factura, en orden de registro.
func (r *BillableRepo) ListUnbilledTimeEntries(ctx context.Context, ticketID string) ([]*entity.TimeEntry, error) {
	query := `
		SELECT id, ticket_id, technician_name, product_id, duration_minutes, note, invoice_id, created_at
		FROM time_entries
		WHERE ticket_id = $1 AND invoice_id IS NULL
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list unbilled time entries: %w", err)
	}
	defer rows.Close()

	var list []*entity.TimeEntry
	for rows.Next() {
		var e entity.TimeEntry
		var productID, note *string
		if err := rows.Scan(&e.ID, &e.TicketID, &e.TechnicianName, &productID, &e.DurationMinutes, &note, &e.InvoiceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		e.ProductID = derefStr(productID)
		e.Note = derefStr(note)
		list = append(list, &e)
	}
	return list, rows.Err()
}

// ListUnbilledMaterials consumos del ticket sin factura, en orden de registro.
func (r *BillableRepo) ListUnbilledMaterials(ctx context.Context, ticketID string) ([]*entity.MaterialUsage, error) {
	query := `
		SELECT id, ticket_id, product_id, quantity, note, invoice_id, created_at
		FROM material_usages
		WHERE ticket_id = $1 AND invoice_id IS NULL
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list unbilled materials: %w", err)
	}
	defer rows.Close()

	var list []*entity.MaterialUsage
	for rows.Next() {
		var m entity.MaterialUsage
		var productID, note *string
		if err := rows.Scan(&m.ID, &m.TicketID, &productID, &m.Quantity, &note, &m.InvoiceID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan material usage: %w", err)
		}
		m.ProductID = derefStr(productID)
		m.Note = derefStr(note)
		list = append(list, &m)
	}
	return list, rows.Err()
}

// LockTimeEntries compare-and-swap sobre invoice_id.
func (r *BillableRepo) LockTimeEntries(ctx context.Context, ids []string, invoiceID string) error {
	return r.lock(ctx, "time_entries", ids, invoiceID)
}

// LockMaterials compare-and-swap sobre invoice_id.
func (r *BillableRepo) LockMaterials(ctx context.Context, ids []string, invoiceID string) error {
	return r.lock(ctx, "material_usages", ids, invoiceID)
}

// lock solo toca filas con invoice_id NULL; si el conteo no coincide otra
// transacción ganó la carrera y el llamador hace rollback.
func (r *BillableRepo) lock(ctx context.Context, table string, ids []string, invoiceID string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE ` + table + ` SET invoice_id = $2 WHERE id = ANY($1) AND invoice_id IS NULL`
	tag, err := r.q.Exec(ctx, query, ids, invoiceID)
	if err != nil {
		return fmt.Errorf("lock %s: %w", table, err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return domain.ErrAlreadyInvoiced
	}
	return nil
}

// UnlockSource libera el registro solo si sigue bloqueado por invoiceID.
func (r *BillableRepo) UnlockSource(ctx context.Context, src entity.SourceRef, invoiceID string) error {
	var table string
	switch src.Type {
	case entity.SourceTypeTime:
		table = "time_entries"
	case entity.SourceTypeMaterial:
		table = "material_usages"
	default:
		return nil
	}
	_, err := r.q.Exec(ctx,
		`UPDATE `+table+` SET invoice_id = NULL WHERE id = $1 AND invoice_id = $2`, src.ID, invoiceID)
	if err != nil {
		return fmt.Errorf("unlock %s: %w", table, err)
	}
	return nil
}

// UnlockByInvoice libera todas las horas y materiales bloqueados por la factura.
func (r *BillableRepo) UnlockByInvoice(ctx context.Context, invoiceID string) error {
	for _, table := range []string{"time_entries", "material_usages"} {
		if _, err := r.q.Exec(ctx, `UPDATE `+table+` SET invoice_id = NULL WHERE invoice_id = $1`, invoiceID); err != nil {
			return fmt.Errorf("unlock %s: %w", table, err)
		}
	}
	return nil
}
