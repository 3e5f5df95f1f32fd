package repository

import (
	"context"
	"time"

	"github.com/jhoicas/msp-api/internal/domain/entity"
)

// AssetRepository define el puerto de persistencia para Asset.
type AssetRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Asset, error)
	// Update persiste todos los campos salvo pending_renewal_invoice_id, que solo
	// cambia con ArmRenewalLock / Release*.
	Update(ctx context.Context, asset *entity.Asset) error
	UpdateStatus(ctx context.Context, id, status string) error

	// ListRenewalCandidates activos en servicio con auto_invoice, producto vinculado,
	// sin bloqueo de renovación y from <= expires_at <= until.
	ListRenewalCandidates(ctx context.Context, from, until time.Time) ([]*entity.Asset, error)
	// ListEscalations activos con factura de renovación pendiente y from <= expires_at <= until.
	ListEscalations(ctx context.Context, from, until time.Time) ([]*entity.Asset, error)
	// ListWithExpiryBefore activos con expires_at <= until (escaneo de estados).
	ListWithExpiryBefore(ctx context.Context, until time.Time) ([]*entity.Asset, error)

	// ArmRenewalLock fija pending_renewal_invoice_id solo si estaba NULL;
	// si no, devuelve domain.ErrRenewalLockHeld.
	ArmRenewalLock(ctx context.Context, assetID, invoiceID string) error
	ReleaseRenewalLock(ctx context.Context, assetID string) error
	// ReleaseRenewalLocksForInvoice libera los activos bloqueados por la factura.
	ReleaseRenewalLocksForInvoice(ctx context.Context, invoiceID string) error
}
