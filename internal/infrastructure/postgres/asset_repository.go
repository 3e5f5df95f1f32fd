package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/msp-api/internal/domain"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/domain/repository"
)

var _ repository.AssetRepository = (*AssetRepo)(nil)

// AssetRepo implementación de AssetRepository (usable con pool o tx).
type AssetRepo struct {
	q Querier
}

// NewAssetRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAssetRepository(q Querier) *AssetRepo {
	return &AssetRepo{q: q}
}

const assetColumns = `id, account_id, name, asset_type, status, expires_at, product_id,
	auto_invoice, pending_renewal_invoice_id, created_at, updated_at`

func scanAsset(row pgx.Row) (*entity.Asset, error) {
	var a entity.Asset
	var assetType, productID *string
	err := row.Scan(&a.ID, &a.AccountID, &a.Name, &assetType, &a.Status, &a.ExpiresAt,
		&productID, &a.AutoInvoice, &a.PendingRenewalInvoiceID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.AssetType = derefStr(assetType)
	a.ProductID = derefStr(productID)
	return &a, nil
}

func (r *AssetRepo) list(ctx context.Context, where string, args ...any) ([]*entity.Asset, error) {
	rows, err := r.q.Query(ctx, `SELECT `+assetColumns+` FROM assets WHERE `+where+` ORDER BY expires_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var list []*entity.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// GetByID obtiene un activo. (nil, nil) si no existe.
func (r *AssetRepo) GetByID(ctx context.Context, id string) (*entity.Asset, error) {
	a, err := scanAsset(r.q.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

// Update persiste el activo sin tocar pending_renewal_invoice_id.
func (r *AssetRepo) Update(ctx context.Context, a *entity.Asset) error {
	query := `
		UPDATE assets
		SET name         = $2,
		    asset_type   = $3,
		    status       = $4,
		    expires_at   = $5,
		    product_id   = $6,
		    auto_invoice = $7,
		    updated_at   = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		a.ID, a.Name, nullIfEmpty(a.AssetType), a.Status, a.ExpiresAt,
		nullIfEmpty(a.ProductID), a.AutoInvoice, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus cambia solo el estado (escaneo periódico).
func (r *AssetRepo) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.q.Exec(ctx, `UPDATE assets SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRenewalCandidates activos armados y configurados con vencimiento en [from, until].
func (r *AssetRepo) ListRenewalCandidates(ctx context.Context, from, until time.Time) ([]*entity.Asset, error) {
	return r.list(ctx, `
		status IN ('active', 'expiring')
		  AND auto_invoice
		  AND product_id IS NOT NULL
		  AND pending_renewal_invoice_id IS NULL
		  AND expires_at BETWEEN $1 AND $2`, from, until)
}

// ListEscalations activos en servicio con renovación pendiente y vencimiento en [from, until].
func (r *AssetRepo) ListEscalations(ctx context.Context, from, until time.Time) ([]*entity.Asset, error) {
	return r.list(ctx, `
		status IN ('active', 'expiring')
		  AND pending_renewal_invoice_id IS NOT NULL
		  AND expires_at BETWEEN $1 AND $2`, from, until)
}

// ListWithExpiryBefore activos con expires_at <= until.
func (r *AssetRepo) ListWithExpiryBefore(ctx context.Context, until time.Time) ([]*entity.Asset, error) {
	return r.list(ctx, `expires_at IS NOT NULL AND expires_at <= $1`, until)
}

// ArmRenewalLock compare-and-swap: solo fija el bloqueo si estaba NULL.
func (r *AssetRepo) ArmRenewalLock(ctx context.Context, assetID, invoiceID string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE assets SET pending_renewal_invoice_id = $2, updated_at = now()
		WHERE id = $1 AND pending_renewal_invoice_id IS NULL`, assetID, invoiceID)
	if err != nil {
		return fmt.Errorf("arm renewal lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRenewalLockHeld
	}
	return nil
}

// ReleaseRenewalLock deja el activo armado para el próximo ciclo.
func (r *AssetRepo) ReleaseRenewalLock(ctx context.Context, assetID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE assets SET pending_renewal_invoice_id = NULL, updated_at = now()
		WHERE id = $1`, assetID)
	if err != nil {
		return fmt.Errorf("release renewal lock: %w", err)
	}
	return nil
}

// ReleaseRenewalLocksForInvoice libera los activos bloqueados por la factura.
func (r *AssetRepo) ReleaseRenewalLocksForInvoice(ctx context.Context, invoiceID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE assets SET pending_renewal_invoice_id = NULL, updated_at = now()
		WHERE pending_renewal_invoice_id = $1`, invoiceID)
	if err != nil {
		return fmt.Errorf("release renewal locks for invoice: %w", err)
	}
	return nil
}
