package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/billing"
	"github.com/jhoicas/msp-api/internal/application/renewal"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/infrastructure/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Billing   *billing.Service
	Assets    *renewal.AssetService
	Engine    *renewal.Engine
	Metrics   *metrics.BillingMetrics // nil = sin /metrics ni middleware
	JWTSecret string
	Log       zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(MetricsMiddleware(deps.Metrics))
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	log := deps.Log.With().Str("component", "http").Logger()

	// Todo /api es del personal interno (Bearer Token + rol admin|tech).
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret), RequireRole(entity.RoleAdmin, entity.RoleTech))

	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Billing, log)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Delete("/:id", invoiceHandler.Delete)
	invoices.Post("/:id/items", invoiceHandler.AddItem)
	invoices.Put("/:id/items/:itemId", invoiceHandler.UpdateItem)
	invoices.Delete("/:id/items/:itemId", invoiceHandler.DeleteItem)
	invoices.Post("/:id/recompute", invoiceHandler.Recompute)
	invoices.Post("/:id/send", invoiceHandler.Send)
	invoices.Post("/:id/pay", invoiceHandler.Pay)
	invoices.Post("/:id/void", invoiceHandler.Void)

	tickets := api.Group("/tickets")
	ticketHandler := NewTicketHandler(deps.Billing, log)
	tickets.Get("/:id/unbilled", ticketHandler.Unbilled)
	tickets.Post("/:id/invoice", ticketHandler.Invoice)

	assets := api.Group("/assets")
	assetHandler := NewAssetHandler(deps.Assets, deps.Engine, log)
	assets.Patch("/:id", assetHandler.Update)
	assets.Post("/:id/renewal-invoice", assetHandler.RenewalInvoice)

	renewals := api.Group("/renewals", RequireRole(entity.RoleAdmin))
	renewalHandler := NewRenewalHandler(deps.Engine, log)
	renewals.Post("/run", renewalHandler.Run)
	renewals.Post("/refresh-statuses", renewalHandler.RefreshStatuses)
}
