package renewal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/billing"
	"github.com/jhoicas/msp-api/internal/application/dto"
	"github.com/jhoicas/msp-api/internal/application/ports"
	"github.com/jhoicas/msp-api/internal/domain"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/domain/repository"
)

// AdhocInvoicer facturación de renovación de un único activo.
type AdhocInvoicer interface {
	InvoiceAsset(ctx context.Context, assetID string) (billing.AssetInvoiceResult, error)
}

// AssetService modificaciones de activos relevantes para la renovación.
type AssetService struct {
	txRunner billing.BillingTxRunner
	assets   repository.AssetRepository
	invoicer AdhocInvoicer
	queue    ports.TaskQueue
	log      zerolog.Logger
}

// NewAssetService construye el servicio. queue puede ser nil (sin chequeo ad-hoc).
func NewAssetService(
	txRunner billing.BillingTxRunner,
	assets repository.AssetRepository,
	invoicer AdhocInvoicer,
	queue ports.TaskQueue,
	log zerolog.Logger,
) *AssetService {
	return &AssetService{
		txRunner: txRunner,
		assets:   assets,
		invoicer: invoicer,
		queue:    queue,
		log:      log.With().Str("component", "assets").Logger(),
	}
}

// GetAsset obtiene un activo.
func (s *AssetService) GetAsset(ctx context.Context, id string) (*dto.AssetResponse, error) {
	a, err := s.assets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrNotFound
	}
	return toAssetResponse(a), nil
}

// UpdateAsset aplica los campos presentes.
//
// Si expires_at avanza a una fecha posterior a la anterior, la renovación se
// considera ejecutada y se libera pending_renewal_invoice_id en la misma
// transacción que guarda el nuevo vencimiento. Después se encola el chequeo
// ad-hoc de renovación en segundo plano.
func (s *AssetService) UpdateAsset(ctx context.Context, id string, in dto.UpdateAssetRequest) (*dto.AssetResponse, error) {
	var (
		a        *entity.Asset
		released string
	)
	err := s.txRunner.RunBilling(ctx, func(r billing.Repos) error {
		var err error
		a, err = r.Assets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return domain.ErrNotFound
		}
		prevExpiry := a.ExpiresAt
		if err := applyAssetChanges(ctx, r, a, in); err != nil {
			return err
		}
		a.UpdatedAt = time.Now()

		if err := r.Assets.Update(ctx, a); err != nil {
			return fmt.Errorf("update asset: %w", err)
		}
		if renewalActioned(prevExpiry, a.ExpiresAt) && a.RenewalLocked() {
			if err := r.Assets.ReleaseRenewalLock(ctx, a.ID); err != nil {
				return fmt.Errorf("release renewal lock: %w", err)
			}
			released = *a.PendingRenewalInvoiceID
			a.PendingRenewalInvoiceID = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if released != "" {
		s.log.Info().
			Str("asset_id", a.ID).
			Str("invoice_id", released).
			Msg("renovación ejecutada, bloqueo liberado")
	}

	s.enqueueRenewalCheck(a)
	return toAssetResponse(a), nil
}

func applyAssetChanges(ctx context.Context, r billing.Repos, a *entity.Asset, in dto.UpdateAssetRequest) error {
	if in.Name != nil {
		if *in.Name == "" {
			return domain.ErrInvalidInput
		}
		a.Name = *in.Name
	}
	if in.AssetType != nil {
		a.AssetType = *in.AssetType
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if in.ExpiresAt != nil {
		if *in.ExpiresAt == "" {
			a.ExpiresAt = nil
		} else {
			t, err := time.Parse("2006-01-02", *in.ExpiresAt)
			if err != nil {
				return domain.ErrInvalidInput
			}
			a.ExpiresAt = &t
		}
	}
	if in.ProductID != nil {
		if *in.ProductID != "" {
			p, err := r.Products.GetByID(ctx, *in.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				return domain.ErrNotFound
			}
		}
		a.ProductID = *in.ProductID
	}
	if in.AutoInvoice != nil {
		a.AutoInvoice = *in.AutoInvoice
	}
	return nil
}

// renewalActioned expires_at pasó a una fecha posterior a la anterior.
func renewalActioned(prev, next *time.Time) bool {
	return prev != nil && next != nil && next.After(*prev)
}

// enqueueRenewalCheck incluye activos ya vencidos: el chequeo ad-hoc los pone al día.
func (s *AssetService) enqueueRenewalCheck(a *entity.Asset) {
	if s.queue == nil || s.invoicer == nil || !a.BillingConfigured() || a.Decommissioned() {
		return
	}
	assetID := a.ID
	err := s.queue.Enqueue("renewal-check", func(ctx context.Context) error {
		res, err := s.invoicer.InvoiceAsset(ctx, assetID)
		if err != nil {
			return err
		}
		s.log.Debug().Str("asset_id", assetID).Str("outcome", res.Outcome).Str("reason", res.Reason).Msg("chequeo ad-hoc de renovación")
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("asset_id", assetID).Msg("no se pudo encolar el chequeo de renovación")
	}
}

func toAssetResponse(a *entity.Asset) *dto.AssetResponse {
	resp := &dto.AssetResponse{
		ID:          a.ID,
		AccountID:   a.AccountID,
		Name:        a.Name,
		AssetType:   a.AssetType,
		Status:      a.Status,
		ProductID:   a.ProductID,
		AutoInvoice: a.AutoInvoice,
	}
	if a.ExpiresAt != nil {
		resp.ExpiresAt = a.ExpiresAt.Format("2006-01-02")
	}
	if a.PendingRenewalInvoiceID != nil {
		resp.PendingRenewalInvoiceID = *a.PendingRenewalInvoiceID
	}
	return resp
}
