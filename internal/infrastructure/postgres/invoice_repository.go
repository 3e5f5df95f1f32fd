package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/msp-api/internal/domain"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, account_id, status, subtotal, tax, total, due_date, generated_at,
	payment_terms, paid_at, payment_method, document_path, created_at, updated_at`

// Create persiste la cabecera de la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.AccountID, inv.Status, inv.Subtotal, inv.Tax, inv.Total,
		inv.DueDate, inv.GeneratedAt, nullIfEmpty(inv.PaymentTerms), inv.PaidAt,
		nullIfEmpty(inv.PaymentMethod), nullIfEmpty(inv.DocumentPath),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update persiste estado, totales, vencimiento y datos de pago.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET status         = $2,
		    subtotal       = $3,
		    tax            = $4,
		    total          = $5,
		    due_date       = $6,
		    payment_terms  = $7,
		    paid_at        = $8,
		    payment_method = $9,
		    document_path  = $10,
		    updated_at     = $11
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.Status, inv.Subtotal, inv.Tax, inv.Total, inv.DueDate,
		nullIfEmpty(inv.PaymentTerms), inv.PaidAt, nullIfEmpty(inv.PaymentMethod),
		nullIfEmpty(inv.DocumentPath), inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene la cabecera. (nil, nil) si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	var inv entity.Invoice
	var terms, method, doc *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.AccountID, &inv.Status, &inv.Subtotal, &inv.Tax, &inv.Total,
		&inv.DueDate, &inv.GeneratedAt, &terms, &inv.PaidAt, &method, &doc,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.PaymentTerms = derefStr(terms)
	inv.PaymentMethod = derefStr(method)
	inv.DocumentPath = derefStr(doc)
	return &inv, nil
}

// Delete borra la cabecera; las líneas caen por ON DELETE CASCADE.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateItem persiste una línea. El índice único parcial sobre
// (source_type, source_id) rechaza una segunda línea para el mismo registro.
func (r *InvoiceRepo) CreateItem(ctx context.Context, item *entity.InvoiceItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	var srcType, srcID *string
	if item.Source != nil {
		srcType, srcID = &item.Source.Type, &item.Source.ID
	}
	query := `
		INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price, total, source_type, source_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.InvoiceID, item.Description, item.Quantity, item.UnitPrice,
		item.Total, srcType, srcID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyInvoiced
		}
		return fmt.Errorf("insert invoice item: %w", err)
	}
	return nil
}

// UpdateItem persiste descripción, cantidad, precio y total de la línea.
func (r *InvoiceRepo) UpdateItem(ctx context.Context, item *entity.InvoiceItem) error {
	query := `
		UPDATE invoice_items
		SET description = $2, quantity = $3, unit_price = $4, total = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, item.ID, item.Description, item.Quantity, item.UnitPrice, item.Total)
	if err != nil {
		return fmt.Errorf("update invoice item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const itemColumns = `id, invoice_id, description, quantity, unit_price, total, source_type, source_id`

func scanItem(row pgx.Row) (*entity.InvoiceItem, error) {
	var it entity.InvoiceItem
	var srcType, srcID *string
	if err := row.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Total, &srcType, &srcID); err != nil {
		return nil, err
	}
	if srcType != nil && srcID != nil {
		it.Source = &entity.SourceRef{Type: *srcType, ID: *srcID}
	}
	return &it, nil
}

// GetItem obtiene una línea. (nil, nil) si no existe.
func (r *InvoiceRepo) GetItem(ctx context.Context, id string) (*entity.InvoiceItem, error) {
	it, err := scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM invoice_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice item: %w", err)
	}
	return it, nil
}

// DeleteItem borra una línea.
func (r *InvoiceRepo) DeleteItem(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoice_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListItems líneas de la factura en orden de inserción.
func (r *InvoiceRepo) ListItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	rows, err := r.q.Query(ctx, `SELECT `+itemColumns+` FROM invoice_items WHERE invoice_id = $1 ORDER BY seq`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()

	var list []*entity.InvoiceItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// ClearItemSources desvincula las líneas de sus registros origen.
func (r *InvoiceRepo) ClearItemSources(ctx context.Context, invoiceID string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE invoice_items SET source_type = NULL, source_id = NULL WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return fmt.Errorf("clear invoice item sources: %w", err)
	}
	return nil
}

// HasRecentRenewalItem busca una línea de renovación del activo en facturas
// generadas desde since.
func (r *InvoiceRepo) HasRecentRenewalItem(ctx context.Context, assetID string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM invoice_items it
			JOIN invoices i ON i.id = it.invoice_id
			WHERE it.source_type = 'asset_renewal'
			  AND it.source_id = $1
			  AND i.generated_at >= $2
		)`
	var exists bool
	if err := r.q.QueryRow(ctx, query, assetID, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("check recent renewal invoice: %w", err)
	}
	return exists, nil
}
