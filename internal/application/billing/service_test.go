package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/msp-api/internal/application/billing"
	"github.com/jhoicas/msp-api/internal/application/dto"
	"github.com/jhoicas/msp-api/internal/domain"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(offset int) *time.Time {
	t := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &t
}

func newService(t *testing.T) (*billing.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.AddAccount(entity.Account{ID: "acc-1", Name: "Acme Pty Ltd"})
	store.AddProduct(entity.Product{ID: "p-labour", Name: "Remote Support", UnitPrice: d("150.00")})
	store.AddProduct(entity.Product{ID: "p-ssd", Name: "SSD 1TB", UnitPrice: d("99.99")})
	store.AddProduct(entity.Product{
		ID: "p-m365", Name: "M365 Business", UnitPrice: d("264.00"),
		IsRecurring: true, BillingFrequency: entity.BillingFrequencyYearly,
	})
	store.AddTicket(entity.Ticket{ID: "t-42", AccountID: "acc-1", Number: 42})
	store.AddTimeEntry(entity.TimeEntry{ID: "te-1", TicketID: "t-42", TechnicianName: "Ana", ProductID: "p-labour", DurationMinutes: 150, Note: "reset router", CreatedAt: fixedNow})
	store.AddMaterial(entity.MaterialUsage{ID: "mu-1", TicketID: "t-42", ProductID: "p-ssd", Quantity: decimal.NewFromInt(1), CreatedAt: fixedNow.Add(time.Minute)})

	svc := billing.NewService(store, store.Repos(), billing.DefaultConfig(), nil, zerolog.Nop())
	svc.SetClock(func() time.Time { return fixedNow })
	return svc, store
}

func addAsset(store *memory.Store, id string, expires *time.Time) {
	store.AddAsset(entity.Asset{
		ID: id, AccountID: "acc-1", Name: "Tenant " + id, Status: entity.AssetStatusActive,
		ExpiresAt: expires, ProductID: "p-m365", AutoInvoice: true,
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Facturación de tickets
// ──────────────────────────────────────────────────────────────────────────────

func TestGenerateFromTicket_EjemploCompleto(t *testing.T) {
	svc, store := newService(t)

	inv, err := svc.GenerateFromTicket(context.Background(), "t-42")
	require.NoError(t, err)

	assert.Equal(t, entity.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "2025-03-24", inv.DueDate)
	assert.True(t, inv.Subtotal.Equal(d("474.99")), inv.Subtotal.String())
	assert.True(t, inv.Tax.Equal(d("47.50")), inv.Tax.String())
	assert.True(t, inv.Total.Equal(d("522.49")), inv.Total.String())

	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Remote Support - Ana: reset router [Ticket #42]", inv.Items[0].Description)
	assert.True(t, inv.Items[0].Quantity.Equal(d("2.5")))
	assert.Equal(t, entity.SourceTypeTime, inv.Items[0].SourceType)
	assert.Equal(t, "SSD 1TB [Ticket #42]", inv.Items[1].Description)
	assert.Equal(t, entity.SourceTypeMaterial, inv.Items[1].SourceType)

	te, _ := store.TimeEntry("te-1")
	require.NotNil(t, te.InvoiceID)
	assert.Equal(t, inv.ID, *te.InvoiceID)
	mu, _ := store.Material("mu-1")
	require.NotNil(t, mu.InvoiceID)
	assert.Equal(t, inv.ID, *mu.InvoiceID)
}

func TestGenerateFromTicket_SegundoIntentoSinPendientes(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.GenerateFromTicket(ctx, "t-42")
	require.NoError(t, err)

	_, err = svc.GenerateFromTicket(ctx, "t-42")
	assert.ErrorIs(t, err, domain.ErrNothingToBill)
	assert.Equal(t, 1, store.InvoiceCount())
}

func TestGenerateFromTicket_Concurrente(t *testing.T) {
	svc, store := newService(t)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.GenerateFromTicket(context.Background(), "t-42")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrNothingToBill)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, store.InvoiceCount())
}

func TestGenerateFromTicket_ValorCeroHaceRollback(t *testing.T) {
	svc, store := newService(t)
	store.AddTicket(entity.Ticket{ID: "t-7", AccountID: "acc-1", Number: 7})
	store.AddTimeEntry(entity.TimeEntry{ID: "te-0", TicketID: "t-7", TechnicianName: "Ana", DurationMinutes: 0})

	_, err := svc.GenerateFromTicket(context.Background(), "t-7")
	assert.ErrorIs(t, err, domain.ErrZeroValue)
	assert.Equal(t, 0, store.InvoiceCount())
	te, _ := store.TimeEntry("te-0")
	assert.Nil(t, te.InvoiceID)
}

func TestGenerateFromTicket_SinProductoUsaTarifaCero(t *testing.T) {
	svc, store := newService(t)
	store.AddTicket(entity.Ticket{ID: "t-8", AccountID: "acc-1", Number: 8})
	store.AddTimeEntry(entity.TimeEntry{ID: "te-8", TicketID: "t-8", TechnicianName: "Bruno", DurationMinutes: 30})

	inv, err := svc.GenerateFromTicket(context.Background(), "t-8")
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Labour - Bruno [Ticket #8]", inv.Items[0].Description)
	assert.True(t, inv.Total.IsZero())
}

func TestGenerateFromTicket_NoExiste(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.GenerateFromTicket(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de vida de facturas
// ──────────────────────────────────────────────────────────────────────────────

func TestVoidInvoice_LiberaOrigenes(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromTicket(ctx, "t-42")
	require.NoError(t, err)

	voided, err := svc.VoidInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusVoid, voided.Status)
	assert.True(t, voided.Total.IsZero())
	assert.True(t, voided.Subtotal.IsZero())
	for _, it := range voided.Items {
		assert.Empty(t, it.SourceID)
	}

	te, _ := store.TimeEntry("te-1")
	assert.Nil(t, te.InvoiceID)
	mu, _ := store.Material("mu-1")
	assert.Nil(t, mu.InvoiceID)

	// Los registros liberados se pueden volver a facturar.
	again, err := svc.GenerateFromTicket(ctx, "t-42")
	require.NoError(t, err)
	assert.True(t, again.Total.Equal(d("522.49")))
}

func TestVoidInvoice_PagadaRechazada(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromTicket(ctx, "t-42")
	require.NoError(t, err)
	_, err = svc.MarkSent(ctx, inv.ID)
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, inv.ID, dto.RecordPaymentRequest{Method: "bank_transfer"})
	require.NoError(t, err)

	_, err = svc.VoidInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceAlreadyPaid)
}

func TestRecordPayment_Transiciones(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromTicket(ctx, "t-42")
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, inv.ID, dto.RecordPaymentRequest{Method: "card"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "draft no se puede pagar")

	_, err = svc.MarkSent(ctx, inv.ID)
	require.NoError(t, err)
	paid, err := svc.RecordPayment(ctx, inv.ID, dto.RecordPaymentRequest{Method: "card", PaidAt: "2025-03-12T10:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, "card", paid.PaymentMethod)
	assert.Equal(t, "2025-03-12T10:00:00Z", paid.PaidAt)

	_, err = svc.RecordPayment(ctx, inv.ID, dto.RecordPaymentRequest{Method: "card"})
	assert.ErrorIs(t, err, domain.ErrInvoiceAlreadyPaid)

	_, err = svc.AddItem(ctx, inv.ID, dto.InvoiceItemRequest{Description: "Extra", Quantity: d("1"), UnitPrice: d("10")})
	assert.ErrorIs(t, err, domain.ErrInvoiceLocked)
	_, err = svc.RecomputeInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceLocked)
}

func TestDeleteInvoice_SoloDraft(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromTicket(ctx, "t-42")
	require.NoError(t, err)
	_, err = svc.MarkSent(ctx, inv.ID)
	require.NoError(t, err)

	err = svc.DeleteInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotDraft)
	assert.Equal(t, 1, store.InvoiceCount())
}

func TestDeleteInvoice_DraftLiberaOrigenes(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromTicket(ctx, "t-42")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteInvoice(ctx, inv.ID))
	assert.Equal(t, 0, store.InvoiceCount())
	te, _ := store.TimeEntry("te-1")
	assert.Nil(t, te.InvoiceID)

	_, err = svc.GetInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteItem_DesbloqueaYRecalcula(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromTicket(ctx, "t-42")
	require.NoError(t, err)

	var materialItem string
	for _, it := range inv.Items {
		if it.SourceType == entity.SourceTypeMaterial {
			materialItem = it.ID
		}
	}
	require.NotEmpty(t, materialItem)

	updated, err := svc.DeleteItem(ctx, inv.ID, materialItem)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.True(t, updated.Subtotal.Equal(d("375.00")))
	assert.True(t, updated.Total.Equal(d("412.50")))

	mu, _ := store.Material("mu-1")
	assert.Nil(t, mu.InvoiceID)
	te, _ := store.TimeEntry("te-1")
	assert.NotNil(t, te.InvoiceID)
}

func TestUpdateItem_RecalculaTotales(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	inv, err := svc.CreateManualInvoice(ctx, dto.CreateInvoiceRequest{
		AccountID: "acc-1",
		Items:     []dto.InvoiceItemRequest{{Description: "Onboarding", Quantity: d("2"), UnitPrice: d("80")}},
	})
	require.NoError(t, err)
	assert.True(t, inv.Total.Equal(d("176.00")))
	assert.Equal(t, "2025-03-24", inv.DueDate)

	updated, err := svc.UpdateItem(ctx, inv.ID, inv.Items[0].ID, dto.InvoiceItemRequest{
		Description: "Onboarding", Quantity: d("3"), UnitPrice: d("80"),
	})
	require.NoError(t, err)
	assert.True(t, updated.Subtotal.Equal(d("240.00")))
	assert.True(t, updated.Total.Equal(d("264.00")))
}

func TestCreateManualInvoice_Validaciones(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   dto.CreateInvoiceRequest
		want error
	}{
		{"sin cuenta", dto.CreateInvoiceRequest{}, domain.ErrInvalidInput},
		{"cuenta inexistente", dto.CreateInvoiceRequest{AccountID: "acc-x"}, domain.ErrNotFound},
		{"cantidad cero", dto.CreateInvoiceRequest{AccountID: "acc-1", Items: []dto.InvoiceItemRequest{{Description: "x", Quantity: d("0"), UnitPrice: d("1")}}}, domain.ErrInvalidInput},
		{"precio negativo", dto.CreateInvoiceRequest{AccountID: "acc-1", Items: []dto.InvoiceItemRequest{{Description: "x", Quantity: d("1"), UnitPrice: d("-1")}}}, domain.ErrInvalidInput},
		{"fecha inválida", dto.CreateInvoiceRequest{AccountID: "acc-1", DueDate: "31/03/2025"}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateManualInvoice(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Renovaciones de activos
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckAndInvoiceAsset_Ventana(t *testing.T) {
	tests := []struct {
		name    string
		offset  int
		outcome string
	}{
		{"a 31 días no vence", 31, billing.OutcomeSkipped},
		{"a 30 días factura", 30, billing.OutcomeCreated},
		{"vencido hace 5 días factura", -5, billing.OutcomeCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService(t)
			addAsset(store, "as-1", day(tt.offset))

			res, err := svc.CheckAndInvoiceAsset(context.Background(), "as-1")
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			if tt.outcome == billing.OutcomeSkipped {
				assert.Equal(t, billing.ReasonNotDue, res.Reason)
				assert.Equal(t, 0, store.InvoiceCount())
			}
		})
	}
}

func TestCheckAndInvoiceAsset_Factura(t *testing.T) {
	svc, store := newService(t)
	addAsset(store, "as-1", day(15))
	ctx := context.Background()

	res, err := svc.CheckAndInvoiceAsset(ctx, "as-1")
	require.NoError(t, err)
	require.True(t, res.Created())

	inv, err := svc.GetInvoice(ctx, res.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", inv.DueDate)
	assert.Equal(t, entity.PaymentTermsDueOnReceipt, inv.PaymentTerms)
	assert.True(t, inv.Total.Equal(d("290.40")))
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Renewal: M365 Business - Tenant as-1 (New expiry: 25/03/2026)", inv.Items[0].Description)
	assert.Equal(t, entity.SourceTypeAssetRenewal, inv.Items[0].SourceType)
	assert.Equal(t, "as-1", inv.Items[0].SourceID)

	a, _ := store.Asset("as-1")
	assert.Nil(t, a.PendingRenewalInvoiceID, "el bloqueo lo arma el motor")
}

func TestCheckAndInvoiceAsset_Deduplicacion(t *testing.T) {
	svc, store := newService(t)
	addAsset(store, "as-1", day(10))
	ctx := context.Background()

	first, err := svc.CheckAndInvoiceAsset(ctx, "as-1")
	require.NoError(t, err)
	require.True(t, first.Created())

	second, err := svc.CheckAndInvoiceAsset(ctx, "as-1")
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeSkipped, second.Outcome)
	assert.Equal(t, billing.ReasonAlreadyInvoiced, second.Reason)
	assert.Equal(t, 1, store.InvoiceCount())

	// Pasada la ventana de 45 días vuelve a facturar.
	svc.SetClock(func() time.Time { return fixedNow.AddDate(0, 0, 46) })
	third, err := svc.CheckAndInvoiceAsset(ctx, "as-1")
	require.NoError(t, err)
	assert.True(t, third.Created())
}

func TestCheckAndInvoiceAsset_AnuladaNoCuentaComoDuplicado(t *testing.T) {
	svc, store := newService(t)
	addAsset(store, "as-1", day(10))
	ctx := context.Background()

	first, err := svc.CheckAndInvoiceAsset(ctx, "as-1")
	require.NoError(t, err)
	_, err = svc.VoidInvoice(ctx, first.InvoiceID)
	require.NoError(t, err)

	again, err := svc.CheckAndInvoiceAsset(ctx, "as-1")
	require.NoError(t, err)
	assert.True(t, again.Created())
}

func TestCheckAndInvoiceAsset_NoConfigurado(t *testing.T) {
	svc, store := newService(t)
	store.AddAsset(entity.Asset{ID: "as-2", AccountID: "acc-1", Name: "Domain", Status: entity.AssetStatusActive, ExpiresAt: day(3), ProductID: "p-m365"})
	store.AddAsset(entity.Asset{ID: "as-3", AccountID: "acc-1", Name: "Warranty", Status: entity.AssetStatusActive, ExpiresAt: day(3), AutoInvoice: true, ProductID: "p-gone"})

	for _, id := range []string{"as-2", "as-3"} {
		res, err := svc.CheckAndInvoiceAsset(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, billing.ReasonNotConfigured, res.Reason, id)
	}
	assert.Equal(t, 0, store.InvoiceCount())
}

// ── Errores de repositorio ─────────────────────────────────────────────────

// failingAccounts simula la base de datos caída al leer cuentas.
type failingAccounts struct{}

func (failingAccounts) GetByID(context.Context, string) (*entity.Account, error) {
	return nil, errors.New("conn refused")
}

func TestInvoice_ErrorDeCuentaNoEsNoEncontrado(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	created, err := svc.CreateManualInvoice(ctx, dto.CreateInvoiceRequest{AccountID: "acc-1"})
	require.NoError(t, err)

	repos := store.Repos()
	repos.Accounts = failingAccounts{}
	broken := billing.NewService(store, repos, billing.DefaultConfig(), nil, zerolog.Nop())
	broken.SetClock(func() time.Time { return fixedNow })

	_, err = broken.CreateManualInvoice(ctx, dto.CreateInvoiceRequest{AccountID: "acc-1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = broken.GetInvoice(ctx, created.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
