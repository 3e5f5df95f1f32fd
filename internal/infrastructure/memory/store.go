// Package memory implementa los puertos de persistencia en memoria.
// RunBilling trabaja sobre una copia del estado y solo la publica si fn no
// falla, así que el rollback se comporta como en PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/msp-api/internal/application/billing"
	"github.com/jhoicas/msp-api/internal/domain/entity"
)

var _ billing.BillingTxRunner = (*Store)(nil)

type itemRow struct {
	item entity.InvoiceItem
	seq  int
}

type state struct {
	accounts      map[string]entity.Account
	users         map[string]entity.User
	products      map[string]entity.Product
	tickets       map[string]entity.Ticket
	timeEntries   map[string]entity.TimeEntry
	materials     map[string]entity.MaterialUsage
	assets        map[string]entity.Asset
	invoices      map[string]entity.Invoice
	items         map[string]itemRow
	notifications []entity.Notification
	seq           int
}

func newState() *state {
	return &state{
		accounts:    make(map[string]entity.Account),
		users:       make(map[string]entity.User),
		products:    make(map[string]entity.Product),
		tickets:     make(map[string]entity.Ticket),
		timeEntries: make(map[string]entity.TimeEntry),
		materials:   make(map[string]entity.MaterialUsage),
		assets:      make(map[string]entity.Asset),
		invoices:    make(map[string]entity.Invoice),
		items:       make(map[string]itemRow),
	}
}

// clone copia profunda: los campos puntero se duplican para que la copia no
// comparta memoria con el estado publicado.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.timeEntries {
		v.InvoiceID = cloneStr(v.InvoiceID)
		c.timeEntries[k] = v
	}
	for k, v := range s.materials {
		v.InvoiceID = cloneStr(v.InvoiceID)
		c.materials[k] = v
	}
	for k, v := range s.assets {
		c.assets[k] = cloneAsset(v)
	}
	for k, v := range s.invoices {
		c.invoices[k] = cloneInvoice(v)
	}
	for k, v := range s.items {
		v.item = cloneItem(v.item)
		c.items[k] = v
	}
	c.notifications = append([]entity.Notification(nil), s.notifications...)
	c.seq = s.seq
	return c
}

// Store almacén en memoria para tests y ejecución local.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Repos repositorios sobre el estado publicado (cada llamada toma el mutex).
func (s *Store) Repos() billing.Repos {
	return reposFor(view{store: s})
}

// Users repositorio de usuarios.
func (s *Store) Users() *UserRepository { return &UserRepository{view{store: s}} }

// Notifications repositorio de notificaciones.
func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{view{store: s}}
}

// RunBilling serializa las transacciones: toma el mutex, ejecuta fn sobre una
// copia y la publica solo si fn retorna nil.
func (s *Store) RunBilling(ctx context.Context, fn func(r billing.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.st.clone()
	if err := fn(reposFor(view{store: s, tx: tx})); err != nil {
		return err
	}
	s.st = tx
	return nil
}

func reposFor(v view) billing.Repos {
	return billing.Repos{
		Invoices:  &InvoiceRepository{v},
		Billables: &BillableRepository{v},
		Assets:    &AssetRepository{v},
		Products:  &ProductRepository{v},
		Accounts:  &AccountRepository{v},
		Tickets:   &TicketRepository{v},
	}
}

// view acceso al estado: tx != nil dentro de RunBilling (ya con el mutex tomado).
type view struct {
	store *Store
	tx    *state
}

func (v view) do(ctx context.Context, fn func(st *state) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

// ── Datos de prueba ──────────────────────────────────────────────────────────

func (s *Store) write(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// AddAccount registra una cuenta.
func (s *Store) AddAccount(a entity.Account) { s.write(func(st *state) { st.accounts[a.ID] = a }) }

// AddUser registra un usuario.
func (s *Store) AddUser(u entity.User) { s.write(func(st *state) { st.users[u.ID] = u }) }

// AddProduct registra un producto.
func (s *Store) AddProduct(p entity.Product) { s.write(func(st *state) { st.products[p.ID] = p }) }

// AddTicket registra un ticket.
func (s *Store) AddTicket(t entity.Ticket) { s.write(func(st *state) { st.tickets[t.ID] = t }) }

// AddTimeEntry registra horas de un ticket.
func (s *Store) AddTimeEntry(e entity.TimeEntry) {
	s.write(func(st *state) {
		e.InvoiceID = cloneStr(e.InvoiceID)
		st.timeEntries[e.ID] = e
	})
}

// AddMaterial registra un consumo de material.
func (s *Store) AddMaterial(m entity.MaterialUsage) {
	s.write(func(st *state) {
		m.InvoiceID = cloneStr(m.InvoiceID)
		st.materials[m.ID] = m
	})
}

// AddAsset registra un activo.
func (s *Store) AddAsset(a entity.Asset) { s.write(func(st *state) { st.assets[a.ID] = cloneAsset(a) }) }

// TimeEntry devuelve una copia de la entrada de horas.
func (s *Store) TimeEntry(id string) (entity.TimeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.st.timeEntries[id]
	e.InvoiceID = cloneStr(e.InvoiceID)
	return e, ok
}

// Material devuelve una copia del consumo de material.
func (s *Store) Material(id string) (entity.MaterialUsage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.st.materials[id]
	m.InvoiceID = cloneStr(m.InvoiceID)
	return m, ok
}

// Asset devuelve una copia del activo.
func (s *Store) Asset(id string) (entity.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.assets[id]
	return cloneAsset(a), ok
}

// InvoiceCount cantidad de facturas persistidas.
func (s *Store) InvoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.invoices)
}

// AllNotifications copia de las notificaciones guardadas, en orden de creación.
func (s *Store) AllNotifications() []entity.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Notification(nil), s.st.notifications...)
}

// ── Copias ───────────────────────────────────────────────────────────────────

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAsset(a entity.Asset) entity.Asset {
	a.PendingRenewalInvoiceID = cloneStr(a.PendingRenewalInvoiceID)
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		a.ExpiresAt = &t
	}
	return a
}

func cloneInvoice(i entity.Invoice) entity.Invoice {
	if i.PaidAt != nil {
		t := *i.PaidAt
		i.PaidAt = &t
	}
	return i
}

func cloneItem(i entity.InvoiceItem) entity.InvoiceItem {
	if i.Source != nil {
		src := *i.Source
		i.Source = &src
	}
	return i
}

func sortedItems(st *state, invoiceID string) []itemRow {
	var rows []itemRow
	for _, r := range st.items {
		if r.item.InvoiceID == invoiceID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	return rows
}
