package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/msp-api/internal/application/dto"
	"github.com/jhoicas/msp-api/internal/domain"
	dombilling "github.com/jhoicas/msp-api/internal/domain/billing"
	"github.com/jhoicas/msp-api/internal/domain/entity"
)

// ListUnbilled horas y materiales del ticket con invoice_id NULL.
func (s *Service) ListUnbilled(ctx context.Context, ticketID string) (*dto.UnbilledResponse, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	if ticket == nil {
		return nil, domain.ErrNotFound
	}
	entries, err := s.repos.Billables.ListUnbilledTimeEntries(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	materials, err := s.repos.Billables.ListUnbilledMaterials(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	resp := &dto.UnbilledResponse{
		TicketID:    ticketID,
		TimeEntries: make([]dto.UnbilledTimeEntry, 0, len(entries)),
		Materials:   make([]dto.UnbilledMaterial, 0, len(materials)),
	}
	for _, e := range entries {
		resp.TimeEntries = append(resp.TimeEntries, dto.UnbilledTimeEntry{
			ID:              e.ID,
			TechnicianName:  e.TechnicianName,
			DurationMinutes: e.DurationMinutes,
			Note:            e.Note,
		})
	}
	for _, m := range materials {
		resp.Materials = append(resp.Materials, dto.UnbilledMaterial{
			ID:        m.ID,
			ProductID: m.ProductID,
			Quantity:  m.Quantity,
			Note:      m.Note,
		})
	}
	return resp, nil
}

// GenerateFromTicket factura las horas y materiales pendientes del ticket.
//
// Todo ocurre en una transacción: creación de la factura draft (vence en
// TicketDueDays), líneas y bloqueo de cada registro consumido. El bloqueo es
// compare-and-swap, así que dos generaciones concurrentes no pueden facturar el
// mismo registro: la segunda recibe domain.ErrAlreadyInvoiced y hace rollback.
func (s *Service) GenerateFromTicket(ctx context.Context, ticketID string) (*dto.InvoiceResponse, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	if ticket == nil {
		return nil, domain.ErrNotFound
	}

	now := s.now()
	inv := newDraftInvoice(ticket.AccountID, now, dombilling.AddDays(now, s.cfg.TicketDueDays), entity.PaymentTermsNet14)

	var lines int
	err = s.txRunner.RunBilling(ctx, func(r Repos) error {
		entries, err := r.Billables.ListUnbilledTimeEntries(ctx, ticket.ID)
		if err != nil {
			return err
		}
		materials, err := r.Billables.ListUnbilledMaterials(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if len(entries) == 0 && len(materials) == 0 {
			return domain.ErrNothingToBill
		}

		products := productCache{repo: r}
		var items []*entity.InvoiceItem
		var entryIDs, materialIDs []string

		for _, e := range entries {
			hours := e.BillableHours()
			if hours.IsZero() {
				continue
			}
			p, err := products.get(ctx, e.ProductID)
			if err != nil {
				return err
			}
			rate, name := decimal.Zero, ""
			if p != nil {
				rate, name = p.UnitPrice, p.Name
			}
			items = append(items, &entity.InvoiceItem{
				ID:          uuid.New().String(),
				InvoiceID:   inv.ID,
				Description: dombilling.TimeEntryDescription(name, e.TechnicianName, e.Note, ticket.Number),
				Quantity:    hours,
				UnitPrice:   rate,
				Source:      &entity.SourceRef{Type: entity.SourceTypeTime, ID: e.ID},
			})
			entryIDs = append(entryIDs, e.ID)
		}

		for _, m := range materials {
			p, err := products.get(ctx, m.ProductID)
			if err != nil {
				return err
			}
			price, name := decimal.Zero, "Material"
			if p != nil {
				price, name = p.UnitPrice, p.Name
			}
			items = append(items, &entity.InvoiceItem{
				ID:          uuid.New().String(),
				InvoiceID:   inv.ID,
				Description: dombilling.MaterialDescription(name, m.Note, ticket.Number),
				Quantity:    m.Quantity,
				UnitPrice:   price,
				Source:      &entity.SourceRef{Type: entity.SourceTypeMaterial, ID: m.ID},
			})
			materialIDs = append(materialIDs, m.ID)
		}

		if len(items) == 0 {
			return domain.ErrZeroValue
		}
		lines = len(items)

		if err := r.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		for _, it := range items {
			if err := r.Invoices.CreateItem(ctx, it); err != nil {
				return err
			}
		}
		if len(entryIDs) > 0 {
			if err := r.Billables.LockTimeEntries(ctx, entryIDs, inv.ID); err != nil {
				return err
			}
		}
		if len(materialIDs) > 0 {
			if err := r.Billables.LockMaterials(ctx, materialIDs, inv.ID); err != nil {
				return err
			}
		}
		return s.recompute(ctx, r, inv)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.InvoiceGenerated("ticket")
	s.log.Info().
		Str("ticket_id", ticket.ID).
		Str("invoice_id", inv.ID).
		Int("lines", lines).
		Msg("factura generada desde ticket")
	return s.GetInvoice(ctx, inv.ID)
}

// productCache evita leer el mismo producto una vez por línea.
type productCache struct {
	repo  Repos
	cache map[string]*entity.Product
}

func (c *productCache) get(ctx context.Context, id string) (*entity.Product, error) {
	if id == "" {
		return nil, nil
	}
	if p, ok := c.cache[id]; ok {
		return p, nil
	}
	p, err := c.repo.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.cache == nil {
		c.cache = make(map[string]*entity.Product)
	}
	c.cache[id] = p
	return p, nil
}
