package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/msp-api/internal/application/dto"
	"github.com/jhoicas/msp-api/internal/domain"
	dombilling "github.com/jhoicas/msp-api/internal/domain/billing"
	"github.com/jhoicas/msp-api/internal/domain/entity"
)

// GetInvoice obtiene una factura con sus líneas.
func (s *Service) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.repos.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	items, err := s.repos.Invoices.ListItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	acc, err := s.repos.Accounts.GetByID(ctx, inv.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	accountName := ""
	if acc != nil {
		accountName = acc.Name
	}
	return toInvoiceResponse(inv, items, accountName), nil
}

// CreateManualInvoice crea una factura en draft con líneas manuales (sin registro origen).
func (s *Service) CreateManualInvoice(ctx context.Context, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if in.AccountID == "" {
		return nil, domain.ErrInvalidInput
	}
	for _, it := range in.Items {
		if err := validateItem(it); err != nil {
			return nil, err
		}
	}
	acc, err := s.repos.Accounts.GetByID(ctx, in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc == nil {
		return nil, domain.ErrNotFound
	}

	now := s.now()
	due := dombilling.AddDays(now, s.cfg.TicketDueDays)
	if in.DueDate != "" {
		d, err := time.ParseInLocation("2006-01-02", in.DueDate, now.Location())
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		due = d
	}
	terms := in.PaymentTerms
	if terms == "" {
		terms = entity.PaymentTermsNet14
	}

	inv := newDraftInvoice(acc.ID, now, due, terms)
	err = s.txRunner.RunBilling(ctx, func(r Repos) error {
		if err := r.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		for _, it := range in.Items {
			item := &entity.InvoiceItem{
				ID:          uuid.New().String(),
				InvoiceID:   inv.ID,
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
			}
			if err := r.Invoices.CreateItem(ctx, item); err != nil {
				return err
			}
		}
		return s.recompute(ctx, r, inv)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.InvoiceGenerated("manual")
	return s.GetInvoice(ctx, inv.ID)
}

// AddItem agrega una línea manual y recalcula la factura.
func (s *Service) AddItem(ctx context.Context, invoiceID string, in dto.InvoiceItemRequest) (*dto.InvoiceResponse, error) {
	if err := validateItem(in); err != nil {
		return nil, err
	}
	err := s.txRunner.RunBilling(ctx, func(r Repos) error {
		inv, err := editableInvoice(ctx, r, invoiceID)
		if err != nil {
			return err
		}
		item := &entity.InvoiceItem{
			ID:          uuid.New().String(),
			InvoiceID:   inv.ID,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
		}
		if err := r.Invoices.CreateItem(ctx, item); err != nil {
			return err
		}
		return s.recompute(ctx, r, inv)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

// UpdateItem modifica descripción, cantidad y precio de una línea; el origen no cambia.
func (s *Service) UpdateItem(ctx context.Context, invoiceID, itemID string, in dto.InvoiceItemRequest) (*dto.InvoiceResponse, error) {
	if err := validateItem(in); err != nil {
		return nil, err
	}
	err := s.txRunner.RunBilling(ctx, func(r Repos) error {
		inv, err := editableInvoice(ctx, r, invoiceID)
		if err != nil {
			return err
		}
		item, err := r.Invoices.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil || item.InvoiceID != inv.ID {
			return domain.ErrNotFound
		}
		item.Description = in.Description
		item.Quantity = in.Quantity
		item.UnitPrice = in.UnitPrice
		if err := r.Invoices.UpdateItem(ctx, item); err != nil {
			return err
		}
		return s.recompute(ctx, r, inv)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

// DeleteItem borra la línea, desbloquea su registro origen y recalcula la factura.
func (s *Service) DeleteItem(ctx context.Context, invoiceID, itemID string) (*dto.InvoiceResponse, error) {
	err := s.txRunner.RunBilling(ctx, func(r Repos) error {
		inv, err := editableInvoice(ctx, r, invoiceID)
		if err != nil {
			return err
		}
		item, err := r.Invoices.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil || item.InvoiceID != inv.ID {
			return domain.ErrNotFound
		}
		if err := r.Invoices.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		if err := unlockSource(ctx, r, item, inv.ID); err != nil {
			return err
		}
		return s.recompute(ctx, r, inv)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

// RecomputeInvoice recalcula totales de línea y de cabecera. Idempotente.
func (s *Service) RecomputeInvoice(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	err := s.txRunner.RunBilling(ctx, func(r Repos) error {
		inv, err := editableInvoice(ctx, r, invoiceID)
		if err != nil {
			return err
		}
		return s.recompute(ctx, r, inv)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

// MarkSent draft -> sent.
func (s *Service) MarkSent(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	err := s.txRunner.RunBilling(ctx, func(r Repos) error {
		inv, err := loadInvoice(ctx, r, invoiceID)
		if err != nil {
			return err
		}
		if !inv.CanSend() {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, inv.Status, entity.InvoiceStatusSent)
		}
		inv.Status = entity.InvoiceStatusSent
		inv.UpdatedAt = s.now()
		return r.Invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

// RecordPayment sent -> paid. A partir de aquí la factura es inmutable.
func (s *Service) RecordPayment(ctx context.Context, invoiceID string, in dto.RecordPaymentRequest) (*dto.InvoiceResponse, error) {
	if in.Method == "" {
		return nil, domain.ErrInvalidInput
	}
	paidAt := s.now()
	if in.PaidAt != "" {
		t, err := time.Parse(time.RFC3339, in.PaidAt)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		paidAt = t
	}
	err := s.txRunner.RunBilling(ctx, func(r Repos) error {
		inv, err := loadInvoice(ctx, r, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == entity.InvoiceStatusPaid {
			return domain.ErrInvoiceAlreadyPaid
		}
		if !inv.CanPay() {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, inv.Status, entity.InvoiceStatusPaid)
		}
		inv.Status = entity.InvoiceStatusPaid
		inv.PaidAt = &paidAt
		inv.PaymentMethod = in.Method
		inv.UpdatedAt = s.now()
		return r.Invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

// VoidInvoice anula una factura draft o sent: totales en 0.00, líneas desvinculadas
// de sus orígenes y horas/materiales devueltos al pool de pendientes.
// Si la factura era la renovación pendiente de un activo, se libera ese bloqueo.
func (s *Service) VoidInvoice(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	err := s.txRunner.RunBilling(ctx, func(r Repos) error {
		inv, err := loadInvoice(ctx, r, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == entity.InvoiceStatusPaid {
			return domain.ErrInvoiceAlreadyPaid
		}
		if !inv.CanVoid() {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, inv.Status, entity.InvoiceStatusVoid)
		}
		if err := releaseSources(ctx, r, inv.ID); err != nil {
			return err
		}
		if err := r.Invoices.ClearItemSources(ctx, inv.ID); err != nil {
			return err
		}
		dombilling.ZeroTotals(inv)
		inv.Status = entity.InvoiceStatusVoid
		inv.UpdatedAt = s.now()
		return r.Invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice_id", invoiceID).Msg("factura anulada")
	return s.GetInvoice(ctx, invoiceID)
}

// DeleteInvoice borra una factura en draft con sus líneas y libera sus orígenes.
func (s *Service) DeleteInvoice(ctx context.Context, invoiceID string) error {
	return s.txRunner.RunBilling(ctx, func(r Repos) error {
		inv, err := loadInvoice(ctx, r, invoiceID)
		if err != nil {
			return err
		}
		if !inv.CanDelete() {
			if inv.Status == entity.InvoiceStatusPaid {
				return domain.ErrInvoiceAlreadyPaid
			}
			return domain.ErrInvoiceNotDraft
		}
		if err := releaseSources(ctx, r, inv.ID); err != nil {
			return err
		}
		return r.Invoices.Delete(ctx, inv.ID)
	})
}

// recompute recalcula línea a línea y persiste los totales de la factura.
func (s *Service) recompute(ctx context.Context, r Repos, inv *entity.Invoice) error {
	items, err := r.Invoices.ListItems(ctx, inv.ID)
	if err != nil {
		return err
	}
	before := make([]decimal.Decimal, len(items))
	for i, it := range items {
		before[i] = it.Total
	}
	dombilling.Recompute(inv, items, s.cfg.TaxRate)
	for i, it := range items {
		if before[i].Equal(it.Total) {
			continue
		}
		if err := r.Invoices.UpdateItem(ctx, it); err != nil {
			return err
		}
	}
	inv.UpdatedAt = s.now()
	return r.Invoices.Update(ctx, inv)
}

func newDraftInvoice(accountID string, now, due time.Time, terms string) *entity.Invoice {
	return &entity.Invoice{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		Status:       entity.InvoiceStatusDraft,
		DueDate:      dombilling.DateOnly(due),
		GeneratedAt:  now,
		PaymentTerms: terms,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func loadInvoice(ctx context.Context, r Repos, id string) (*entity.Invoice, error) {
	inv, err := r.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func editableInvoice(ctx context.Context, r Repos, id string) (*entity.Invoice, error) {
	inv, err := loadInvoice(ctx, r, id)
	if err != nil {
		return nil, err
	}
	if !inv.IsEditable() {
		return nil, domain.ErrInvoiceLocked
	}
	return inv, nil
}

// releaseSources libera horas, materiales y bloqueos de renovación que apuntan a la factura.
func releaseSources(ctx context.Context, r Repos, invoiceID string) error {
	if err := r.Billables.UnlockByInvoice(ctx, invoiceID); err != nil {
		return err
	}
	return r.Assets.ReleaseRenewalLocksForInvoice(ctx, invoiceID)
}

func unlockSource(ctx context.Context, r Repos, item *entity.InvoiceItem, invoiceID string) error {
	switch {
	case item.Source == nil:
		return nil
	case item.Source.LocksRecord():
		return r.Billables.UnlockSource(ctx, *item.Source, invoiceID)
	case item.Source.Type == entity.SourceTypeAssetRenewal:
		asset, err := r.Assets.GetByID(ctx, item.Source.ID)
		if err != nil || asset == nil {
			return err
		}
		if asset.PendingRenewalInvoiceID != nil && *asset.PendingRenewalInvoiceID == invoiceID {
			return r.Assets.ReleaseRenewalLock(ctx, asset.ID)
		}
	}
	return nil
}

func validateItem(in dto.InvoiceItemRequest) error {
	if in.Description == "" || !in.Quantity.IsPositive() || in.UnitPrice.IsNegative() {
		return domain.ErrInvalidInput
	}
	return nil
}
