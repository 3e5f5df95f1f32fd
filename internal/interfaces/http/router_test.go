package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/msp-api/internal/application/billing"
	"github.com/jhoicas/msp-api/internal/application/dto"
	"github.com/jhoicas/msp-api/internal/application/notification"
	"github.com/jhoicas/msp-api/internal/application/renewal"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/infrastructure/memory"
	"github.com/jhoicas/msp-api/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/msp-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: router completo sobre el almacén en memoria
// ──────────────────────────────────────────────────────────────────────────────

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	app   *fiber.App
	store *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddAccount(entity.Account{ID: "acc-1", Name: "Acme Pty Ltd", BillingEmail: "billing@acme.test"})
	store.AddUser(entity.User{ID: "u-admin", Name: "Ana", Role: entity.RoleAdmin, IsActive: true})
	store.AddProduct(entity.Product{ID: "p-labour", Name: "Remote Support", UnitPrice: decimal.RequireFromString("150.00")})
	store.AddProduct(entity.Product{ID: "p-ssd", Name: "SSD 1TB", UnitPrice: decimal.RequireFromString("99.99")})
	store.AddProduct(entity.Product{
		ID: "p-m365", Name: "M365 Business", UnitPrice: decimal.RequireFromString("264.00"),
		IsRecurring: true, BillingFrequency: entity.BillingFrequencyYearly,
	})
	store.AddTicket(entity.Ticket{ID: "t-42", AccountID: "acc-1", Number: 42, Subject: "Router down"})
	store.AddTimeEntry(entity.TimeEntry{ID: "te-1", TicketID: "t-42", TechnicianName: "Ana", ProductID: "p-labour", DurationMinutes: 150, CreatedAt: fixedNow})
	store.AddMaterial(entity.MaterialUsage{ID: "mu-1", TicketID: "t-42", ProductID: "p-ssd", Quantity: decimal.NewFromInt(1), CreatedAt: fixedNow})

	expires := time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC)
	store.AddAsset(entity.Asset{
		ID: "as-1", AccountID: "acc-1", Name: "M365 tenant", Status: entity.AssetStatusActive,
		ExpiresAt: &expires, ProductID: "p-m365", AutoInvoice: true,
	})

	log := zerolog.Nop()
	repos := store.Repos()
	clock := func() time.Time { return fixedNow }

	svc := billing.NewService(store, repos, billing.DefaultConfig(), nil, log)
	svc.SetClock(clock)
	dispatcher := notification.NewDispatcher(store.Users(), store.Notifications(), nil, nil, log)
	engine := renewal.NewEngine(svc, repos.Assets, repos.Accounts, repos.Products, dispatcher, nil,
		renewal.Config{BaseURL: "https://msp.test"}, log)
	engine.SetClock(clock)
	assets := renewal.NewAssetService(store, repos.Assets, engine, nil, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Billing:   svc,
		Assets:    assets,
		Engine:    engine,
		Metrics:   metrics.NewBillingMetrics(nil),
		JWTSecret: testJWTSecret,
		Log:       log,
	})
	return &fixture{app: app, store: store}
}

func (f *fixture) do(t *testing.T, role, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ──────────────────────────────────────────────────────────────────────────────
// Tickets
// ──────────────────────────────────────────────────────────────────────────────

func TestTicketInvoice_GeneraBorradorConTotales(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodPost, "/api/tickets/t-42/invoice", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	inv := decode[dto.InvoiceResponse](t, resp)

	assert.Equal(t, entity.InvoiceStatusDraft, inv.Status)
	assert.True(t, money("474.99").Equal(inv.Subtotal), "subtotal %s", inv.Subtotal)
	assert.True(t, money("47.50").Equal(inv.Tax), "tax %s", inv.Tax)
	assert.True(t, money("522.49").Equal(inv.Total), "total %s", inv.Total)
	assert.Equal(t, "2025-03-24", inv.DueDate)
	assert.Equal(t, "Acme Pty Ltd", inv.AccountName)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "time", inv.Items[0].SourceType)
	assert.Equal(t, "Remote Support - Ana [Ticket #42]", inv.Items[0].Description)

	te, _ := f.store.TimeEntry("te-1")
	require.NotNil(t, te.InvoiceID)
	assert.Equal(t, inv.ID, *te.InvoiceID)
}

func TestTicketInvoice_SegundoIntento_NadaQueFacturar(t *testing.T) {
	f := newFixture(t)

	first := f.do(t, "tech", http.MethodPost, "/api/tickets/t-42/invoice", "")
	first.Body.Close()
	require.Equal(t, http.StatusCreated, first.StatusCode)

	resp := f.do(t, "tech", http.MethodPost, "/api/tickets/t-42/invoice", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "NOTHING_TO_BILL", body.Code)
	assert.Equal(t, 1, f.store.InvoiceCount())
}

func TestTicketUnbilled_ListaPendientes(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodGet, "/api/tickets/t-42/unbilled", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[dto.UnbilledResponse](t, resp)
	assert.Len(t, body.TimeEntries, 1)
	assert.Len(t, body.Materials, 1)
}

func TestTicketUnbilled_TicketInexistente_404(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodGet, "/api/tickets/nope/unbilled", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Facturas
// ──────────────────────────────────────────────────────────────────────────────

func TestInvoice_CrearManual_ValidaCuerpo(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "admin", http.MethodPost, "/api/invoices", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "VALIDATION", body.Code)
	assert.NotEmpty(t, body.Details)
}

func TestInvoice_CicloManual_EnviarPagar(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "admin", http.MethodPost, "/api/invoices",
		`{"account_id":"acc-1","items":[{"description":"Onsite visit","quantity":"2","unit_price":"80.00"}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	inv := decode[dto.InvoiceResponse](t, resp)
	assert.True(t, money("176.00").Equal(inv.Total))

	resp = f.do(t, "admin", http.MethodPost, "/api/invoices/"+inv.ID+"/pay", `{"method":"card"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "draft no se puede pagar")

	resp = f.do(t, "admin", http.MethodPost, "/api/invoices/"+inv.ID+"/send", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, entity.InvoiceStatusSent, decode[dto.InvoiceResponse](t, resp).Status)

	resp = f.do(t, "admin", http.MethodPost, "/api/invoices/"+inv.ID+"/pay", `{"method":"card","paid_at":"2025-03-11T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	paid := decode[dto.InvoiceResponse](t, resp)
	assert.Equal(t, entity.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, "card", paid.PaymentMethod)

	resp = f.do(t, "admin", http.MethodPost, "/api/invoices/"+inv.ID+"/void", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVOICE_PAID", decode[dto.ErrorResponse](t, resp).Code)
}

func TestInvoice_AnularLiberaHoras(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodPost, "/api/tickets/t-42/invoice", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	inv := decode[dto.InvoiceResponse](t, resp)

	resp = f.do(t, "tech", http.MethodPost, "/api/invoices/"+inv.ID+"/void", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	voided := decode[dto.InvoiceResponse](t, resp)
	assert.Equal(t, entity.InvoiceStatusVoid, voided.Status)
	assert.True(t, voided.Total.IsZero())
	for _, it := range voided.Items {
		assert.Empty(t, it.SourceType)
	}

	te, _ := f.store.TimeEntry("te-1")
	assert.Nil(t, te.InvoiceID)
}

func TestInvoice_BorrarItem_LiberaOrigenYRecalcula(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodPost, "/api/tickets/t-42/invoice", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	inv := decode[dto.InvoiceResponse](t, resp)
	material := inv.Items[1]

	resp = f.do(t, "tech", http.MethodDelete, "/api/invoices/"+inv.ID+"/items/"+material.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := decode[dto.InvoiceResponse](t, resp)
	assert.Len(t, after.Items, 1)
	assert.True(t, money("412.50").Equal(after.Total), "total %s", after.Total)

	mu, _ := f.store.Material("mu-1")
	assert.Nil(t, mu.InvoiceID)
}

func TestInvoice_BorrarSoloBorrador(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "admin", http.MethodPost, "/api/invoices",
		`{"account_id":"acc-1","items":[{"description":"Setup","quantity":"1","unit_price":"10"}]}`)
	inv := decode[dto.InvoiceResponse](t, resp)

	resp = f.do(t, "admin", http.MethodPost, "/api/invoices/"+inv.ID+"/send", "")
	resp.Body.Close()
	resp = f.do(t, "admin", http.MethodDelete, "/api/invoices/"+inv.ID, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVOICE_NOT_DRAFT", decode[dto.ErrorResponse](t, resp).Code)
}

func TestInvoice_GetInexistente_404(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodGet, "/api/invoices/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, resp).Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Activos y renovaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestAssetRenewalInvoice_CreaYLuegoOmite(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodPost, "/api/assets/as-1/renewal-invoice", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decode[dto.AssetInvoiceResponse](t, resp)
	assert.Equal(t, "created", res.Outcome)
	assert.NotEmpty(t, res.InvoiceID)

	asset, _ := f.store.Asset("as-1")
	require.NotNil(t, asset.PendingRenewalInvoiceID)
	assert.Equal(t, res.InvoiceID, *asset.PendingRenewalInvoiceID)

	resp = f.do(t, "tech", http.MethodPost, "/api/assets/as-1/renewal-invoice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decode[dto.AssetInvoiceResponse](t, resp)
	assert.Equal(t, "skipped", again.Outcome)
	assert.Equal(t, "invoice already exists", again.Reason)
}

func TestAssetUpdate_EstadoInvalido_400(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodPatch, "/api/assets/as-1", `{"status":"lost"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAssetUpdate_AvanzarVencimientoLiberaBloqueo(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodPost, "/api/assets/as-1/renewal-invoice", "")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, "tech", http.MethodPatch, "/api/assets/as-1", `{"expires_at":"2026-03-25"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[dto.AssetResponse](t, resp)
	assert.Equal(t, "2026-03-25", body.ExpiresAt)
	assert.Empty(t, body.PendingRenewalInvoiceID)
}

func TestRenewalRun_SoloAdmin(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodPost, "/api/renewals/run", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, "admin", http.MethodPost, "/api/renewals/run", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[dto.RenewalRunResponse](t, resp)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Invoiced)
	assert.Len(t, report.InvoiceIDs, 1)
	assert.NotEmpty(t, f.store.AllNotifications(), "el personal recibe aviso de la factura generada")
}

func TestRenewalRefreshStatuses(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "admin", http.MethodPost, "/api/renewals/refresh-statuses", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[dto.StatusRefreshResponse](t, resp)
	assert.Equal(t, 1, report.Expiring)

	asset, _ := f.store.Asset("as-1")
	assert.Equal(t, entity.AssetStatusExpiring, asset.Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Infra
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_SinToken_401(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "", http.MethodGet, "/api/invoices/x", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_ClienteNoAccede(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "client", http.MethodGet, "/api/tickets/t-42/unbilled", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMetrics_ExponeContadoresHTTP(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "tech", http.MethodGet, "/api/tickets/t-42/unbilled", "")
	resp.Body.Close()

	resp = f.do(t, "", http.MethodGet, "/metrics", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "msp_http_requests_total")
	assert.Contains(t, string(raw), `route="/api/tickets/:id/unbilled"`)
}
