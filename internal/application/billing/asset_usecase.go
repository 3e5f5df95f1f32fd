package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/msp-api/internal/domain"
	dombilling "github.com/jhoicas/msp-api/internal/domain/billing"
	"github.com/jhoicas/msp-api/internal/domain/entity"
)

// Resultados de CheckAndInvoiceAsset.
const (
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
)

// Motivos de omisión. No son errores: el llamador los registra y sigue.
const (
	ReasonNotConfigured   = "not configured"
	ReasonNotDue          = "not due"
	ReasonAlreadyInvoiced = "invoice already exists"
)

// AssetInvoiceResult resultado de intentar facturar la renovación de un activo.
type AssetInvoiceResult struct {
	Outcome   string
	InvoiceID string
	Reason    string
}

// Created indica si se generó una factura.
func (r AssetInvoiceResult) Created() bool { return r.Outcome == OutcomeCreated }

func skipped(reason string) AssetInvoiceResult {
	return AssetInvoiceResult{Outcome: OutcomeSkipped, Reason: reason}
}

// CheckAndInvoiceAsset genera, si corresponde, la factura de renovación de un activo.
//
//  1. auto_invoice y producto vinculado; si no -> skipped "not configured".
//  2. expires_at <= hoy + RenewalWindowDays (incluye vencidos); si no -> "not due".
//  3. Ninguna factura generada en los últimos DedupWindowDays con una línea
//     asset_renewal de este activo; si no -> "invoice already exists".
//  4. Factura draft con vencimiento hoy y una línea: cantidad 1, precio del producto.
//
// No toca pending_renewal_invoice_id: eso lo hace el motor de renovaciones.
func (s *Service) CheckAndInvoiceAsset(ctx context.Context, assetID string) (AssetInvoiceResult, error) {
	asset, err := s.repos.Assets.GetByID(ctx, assetID)
	if err != nil {
		return AssetInvoiceResult{}, fmt.Errorf("get asset: %w", err)
	}
	if asset == nil {
		return AssetInvoiceResult{}, domain.ErrNotFound
	}
	if !asset.BillingConfigured() {
		return skipped(ReasonNotConfigured), nil
	}
	product, err := s.repos.Products.GetByID(ctx, asset.ProductID)
	if err != nil {
		return AssetInvoiceResult{}, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return skipped(ReasonNotConfigured), nil
	}

	today := s.today()
	if !dombilling.IsRenewalDue(asset.ExpiresAt, today, s.cfg.RenewalWindowDays) {
		return skipped(ReasonNotDue), nil
	}

	now := s.now()
	since := now.AddDate(0, 0, -s.cfg.DedupWindowDays)
	inv := newDraftInvoice(asset.AccountID, now, today, entity.PaymentTermsDueOnReceipt)
	duplicate := false

	err = s.txRunner.RunBilling(ctx, func(r Repos) error {
		exists, err := r.Invoices.HasRecentRenewalItem(ctx, asset.ID, since)
		if err != nil {
			return err
		}
		if exists {
			duplicate = true
			return nil
		}
		next, hasNext := dombilling.NextExpiry(*asset.ExpiresAt, product.BillingFrequency)
		if err := r.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		item := &entity.InvoiceItem{
			ID:          uuid.New().String(),
			InvoiceID:   inv.ID,
			Description: dombilling.RenewalDescription(product.Name, asset.Name, next, hasNext),
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   product.UnitPrice,
			Source:      &entity.SourceRef{Type: entity.SourceTypeAssetRenewal, ID: asset.ID},
		}
		if err := r.Invoices.CreateItem(ctx, item); err != nil {
			return err
		}
		return s.recompute(ctx, r, inv)
	})
	if err != nil {
		return AssetInvoiceResult{}, err
	}
	if duplicate {
		return skipped(ReasonAlreadyInvoiced), nil
	}

	s.metrics.InvoiceGenerated("asset_renewal")
	s.log.Info().
		Str("asset_id", asset.ID).
		Str("invoice_id", inv.ID).
		Msg("factura de renovación generada")
	return AssetInvoiceResult{Outcome: OutcomeCreated, InvoiceID: inv.ID}, nil
}
