package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/msp-api/internal/domain"
	dombilling "github.com/jhoicas/msp-api/internal/domain/billing"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/domain/repository"
)

var (
	_ repository.InvoiceRepository      = (*InvoiceRepository)(nil)
	_ repository.BillableRepository     = (*BillableRepository)(nil)
	_ repository.AssetRepository        = (*AssetRepository)(nil)
	_ repository.ProductRepository      = (*ProductRepository)(nil)
	_ repository.AccountRepository      = (*AccountRepository)(nil)
	_ repository.TicketRepository       = (*TicketRepository)(nil)
	_ repository.UserRepository         = (*UserRepository)(nil)
	_ repository.NotificationRepository = (*NotificationRepository)(nil)
)

// ── Facturas ─────────────────────────────────────────────────────────────────

// InvoiceRepository facturas y líneas en memoria.
type InvoiceRepository struct{ v view }

func (r *InvoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.invoices[inv.ID]; ok {
			return domain.ErrDuplicate
		}
		st.invoices[inv.ID] = cloneInvoice(*inv)
		return nil
	})
}

func (r *InvoiceRepository) Update(ctx context.Context, inv *entity.Invoice) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.invoices[inv.ID]; !ok {
			return domain.ErrNotFound
		}
		st.invoices[inv.ID] = cloneInvoice(*inv)
		return nil
	})
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	var out *entity.Invoice
	err := r.v.do(ctx, func(st *state) error {
		if inv, ok := st.invoices[id]; ok {
			c := cloneInvoice(inv)
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	return r.v.do(ctx, func(st *state) error {
		delete(st.invoices, id)
		for k, row := range st.items {
			if row.item.InvoiceID == id {
				delete(st.items, k)
			}
		}
		return nil
	})
}

func (r *InvoiceRepository) CreateItem(ctx context.Context, item *entity.InvoiceItem) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.invoices[item.InvoiceID]; !ok {
			return domain.ErrNotFound
		}
		if item.Source.LocksRecord() {
			for _, row := range st.items {
				if row.item.Source != nil && *row.item.Source == *item.Source {
					return domain.ErrAlreadyInvoiced
				}
			}
		}
		st.seq++
		st.items[item.ID] = itemRow{item: cloneItem(*item), seq: st.seq}
		return nil
	})
}

func (r *InvoiceRepository) UpdateItem(ctx context.Context, item *entity.InvoiceItem) error {
	return r.v.do(ctx, func(st *state) error {
		row, ok := st.items[item.ID]
		if !ok {
			return domain.ErrNotFound
		}
		row.item = cloneItem(*item)
		st.items[item.ID] = row
		return nil
	})
}

func (r *InvoiceRepository) GetItem(ctx context.Context, id string) (*entity.InvoiceItem, error) {
	var out *entity.InvoiceItem
	err := r.v.do(ctx, func(st *state) error {
		if row, ok := st.items[id]; ok {
			c := cloneItem(row.item)
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *InvoiceRepository) DeleteItem(ctx context.Context, id string) error {
	return r.v.do(ctx, func(st *state) error {
		delete(st.items, id)
		return nil
	})
}

func (r *InvoiceRepository) ListItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	var out []*entity.InvoiceItem
	err := r.v.do(ctx, func(st *state) error {
		for _, row := range sortedItems(st, invoiceID) {
			c := cloneItem(row.item)
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

func (r *InvoiceRepository) ClearItemSources(ctx context.Context, invoiceID string) error {
	return r.v.do(ctx, func(st *state) error {
		for k, row := range st.items {
			if row.item.InvoiceID == invoiceID {
				row.item.Source = nil
				st.items[k] = row
			}
		}
		return nil
	})
}

func (r *InvoiceRepository) HasRecentRenewalItem(ctx context.Context, assetID string, since time.Time) (bool, error) {
	found := false
	err := r.v.do(ctx, func(st *state) error {
		for _, row := range st.items {
			src := row.item.Source
			if src == nil || src.Type != entity.SourceTypeAssetRenewal || src.ID != assetID {
				continue
			}
			if inv, ok := st.invoices[row.item.InvoiceID]; ok && !inv.GeneratedAt.Before(since) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// ── Horas y materiales ───────────────────────────────────────────────────────

// BillableRepository horas y materiales en memoria.
type BillableRepository struct{ v view }

func (r *BillableRepository) ListUnbilledTimeEntries(ctx context.Context, ticketID string) ([]*entity.TimeEntry, error) {
	var out []*entity.TimeEntry
	err := r.v.do(ctx, func(st *state) error {
		for _, e := range st.timeEntries {
			if e.TicketID == ticketID && e.InvoiceID == nil {
				c := e
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return lessByCreated(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, err
}

func (r *BillableRepository) ListUnbilledMaterials(ctx context.Context, ticketID string) ([]*entity.MaterialUsage, error) {
	var out []*entity.MaterialUsage
	err := r.v.do(ctx, func(st *state) error {
		for _, m := range st.materials {
			if m.TicketID == ticketID && m.InvoiceID == nil {
				c := m
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return lessByCreated(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, err
}

func (r *BillableRepository) LockTimeEntries(ctx context.Context, ids []string, invoiceID string) error {
	return r.v.do(ctx, func(st *state) error {
		for _, id := range ids {
			e, ok := st.timeEntries[id]
			if !ok || e.InvoiceID != nil {
				return domain.ErrAlreadyInvoiced
			}
		}
		for _, id := range ids {
			e := st.timeEntries[id]
			e.InvoiceID = cloneStr(&invoiceID)
			st.timeEntries[id] = e
		}
		return nil
	})
}

func (r *BillableRepository) LockMaterials(ctx context.Context, ids []string, invoiceID string) error {
	return r.v.do(ctx, func(st *state) error {
		for _, id := range ids {
			m, ok := st.materials[id]
			if !ok || m.InvoiceID != nil {
				return domain.ErrAlreadyInvoiced
			}
		}
		for _, id := range ids {
			m := st.materials[id]
			m.InvoiceID = cloneStr(&invoiceID)
			st.materials[id] = m
		}
		return nil
	})
}

func (r *BillableRepository) UnlockSource(ctx context.Context, src entity.SourceRef, invoiceID string) error {
	return r.v.do(ctx, func(st *state) error {
		switch src.Type {
		case entity.SourceTypeTime:
			if e, ok := st.timeEntries[src.ID]; ok && e.InvoiceID != nil && *e.InvoiceID == invoiceID {
				e.InvoiceID = nil
				st.timeEntries[src.ID] = e
			}
		case entity.SourceTypeMaterial:
			if m, ok := st.materials[src.ID]; ok && m.InvoiceID != nil && *m.InvoiceID == invoiceID {
				m.InvoiceID = nil
				st.materials[src.ID] = m
			}
		}
		return nil
	})
}

func (r *BillableRepository) UnlockByInvoice(ctx context.Context, invoiceID string) error {
	return r.v.do(ctx, func(st *state) error {
		for k, e := range st.timeEntries {
			if e.InvoiceID != nil && *e.InvoiceID == invoiceID {
				e.InvoiceID = nil
				st.timeEntries[k] = e
			}
		}
		for k, m := range st.materials {
			if m.InvoiceID != nil && *m.InvoiceID == invoiceID {
				m.InvoiceID = nil
				st.materials[k] = m
			}
		}
		return nil
	})
}

// ── Activos ──────────────────────────────────────────────────────────────────

// AssetRepository activos en memoria.
type AssetRepository struct{ v view }

func (r *AssetRepository) GetByID(ctx context.Context, id string) (*entity.Asset, error) {
	var out *entity.Asset
	err := r.v.do(ctx, func(st *state) error {
		if a, ok := st.assets[id]; ok {
			c := cloneAsset(a)
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *AssetRepository) Update(ctx context.Context, a *entity.Asset) error {
	return r.v.do(ctx, func(st *state) error {
		prev, ok := st.assets[a.ID]
		if !ok {
			return domain.ErrNotFound
		}
		c := cloneAsset(*a)
		c.PendingRenewalInvoiceID = prev.PendingRenewalInvoiceID
		st.assets[a.ID] = c
		return nil
	})
}

func (r *AssetRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.v.do(ctx, func(st *state) error {
		a, ok := st.assets[id]
		if !ok {
			return domain.ErrNotFound
		}
		a.Status = status
		st.assets[id] = a
		return nil
	})
}

func (r *AssetRepository) ListRenewalCandidates(ctx context.Context, from, until time.Time) ([]*entity.Asset, error) {
	return r.list(ctx, func(a *entity.Asset) bool {
		return a.InService() && a.BillingConfigured() && !a.RenewalLocked() && expiresBetween(a, from, until)
	})
}

func (r *AssetRepository) ListEscalations(ctx context.Context, from, until time.Time) ([]*entity.Asset, error) {
	return r.list(ctx, func(a *entity.Asset) bool {
		return a.InService() && a.RenewalLocked() && expiresBetween(a, from, until)
	})
}

func (r *AssetRepository) ListWithExpiryBefore(ctx context.Context, until time.Time) ([]*entity.Asset, error) {
	return r.list(ctx, func(a *entity.Asset) bool {
		return a.ExpiresAt != nil && dombilling.DaysUntil(*a.ExpiresAt, until) <= 0
	})
}

// expiresBetween compara por fecha de calendario, como la columna DATE en postgres.
func expiresBetween(a *entity.Asset, from, until time.Time) bool {
	return a.ExpiresAt != nil &&
		dombilling.DaysUntil(*a.ExpiresAt, from) >= 0 &&
		dombilling.DaysUntil(*a.ExpiresAt, until) <= 0
}

func (r *AssetRepository) list(ctx context.Context, keep func(a *entity.Asset) bool) ([]*entity.Asset, error) {
	var out []*entity.Asset
	err := r.v.do(ctx, func(st *state) error {
		for _, a := range st.assets {
			c := cloneAsset(a)
			if keep(&c) {
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return lessByCreated(*out[i].ExpiresAt, *out[j].ExpiresAt, out[i].ID, out[j].ID) })
	return out, err
}

func (r *AssetRepository) ArmRenewalLock(ctx context.Context, assetID, invoiceID string) error {
	return r.v.do(ctx, func(st *state) error {
		a, ok := st.assets[assetID]
		if !ok {
			return domain.ErrNotFound
		}
		if a.PendingRenewalInvoiceID != nil {
			return domain.ErrRenewalLockHeld
		}
		a.PendingRenewalInvoiceID = cloneStr(&invoiceID)
		st.assets[assetID] = a
		return nil
	})
}

func (r *AssetRepository) ReleaseRenewalLock(ctx context.Context, assetID string) error {
	return r.v.do(ctx, func(st *state) error {
		if a, ok := st.assets[assetID]; ok {
			a.PendingRenewalInvoiceID = nil
			st.assets[assetID] = a
		}
		return nil
	})
}

func (r *AssetRepository) ReleaseRenewalLocksForInvoice(ctx context.Context, invoiceID string) error {
	return r.v.do(ctx, func(st *state) error {
		for k, a := range st.assets {
			if a.PendingRenewalInvoiceID != nil && *a.PendingRenewalInvoiceID == invoiceID {
				a.PendingRenewalInvoiceID = nil
				st.assets[k] = a
			}
		}
		return nil
	})
}

// ── Catálogos ────────────────────────────────────────────────────────────────

// ProductRepository productos en memoria.
type ProductRepository struct{ v view }

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.v.do(ctx, func(st *state) error {
		if p, ok := st.products[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

// AccountRepository cuentas en memoria.
type AccountRepository struct{ v view }

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	var out *entity.Account
	err := r.v.do(ctx, func(st *state) error {
		if a, ok := st.accounts[id]; ok {
			out = &a
		}
		return nil
	})
	return out, err
}

// TicketRepository tickets en memoria.
type TicketRepository struct{ v view }

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	var out *entity.Ticket
	err := r.v.do(ctx, func(st *state) error {
		if t, ok := st.tickets[id]; ok {
			out = &t
		}
		return nil
	})
	return out, err
}

// UserRepository usuarios en memoria.
type UserRepository struct{ v view }

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.v.do(ctx, func(st *state) error {
		if u, ok := st.users[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

func (r *UserRepository) ListActiveStaff(ctx context.Context) ([]*entity.User, error) {
	var out []*entity.User
	err := r.v.do(ctx, func(st *state) error {
		for _, u := range st.users {
			c := u
			if c.IsStaff() {
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// NotificationRepository notificaciones en memoria.
type NotificationRepository struct{ v view }

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return r.v.do(ctx, func(st *state) error {
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

func lessByCreated(a, b time.Time, idA, idB string) bool {
	if a.Equal(b) {
		return idA < idB
	}
	return a.Before(b)
}
