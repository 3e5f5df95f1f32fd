package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/dto"
	"github.com/jhoicas/msp-api/internal/application/renewal"
)

// RenewalHandler disparo manual del motor de renovaciones (solo admin).
type RenewalHandler struct {
	engine *renewal.Engine
	log    zerolog.Logger
}

// NewRenewalHandler construye el handler.
func NewRenewalHandler(engine *renewal.Engine, log zerolog.Logger) *RenewalHandler {
	return &RenewalHandler{engine: engine, log: log}
}

// Run ejecuta generación y escalamiento.
// @Summary  Ejecutar renovaciones
// @Tags     renewals
// @Produce  json
// @Success  200  {object}  dto.RenewalRunResponse
// @Security Bearer
// @Router   /api/renewals/run [post]
func (h *RenewalHandler) Run(c *fiber.Ctx) error {
	report, err := h.engine.Run(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	ids := report.InvoiceIDs
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(dto.RenewalRunResponse{
		Scanned:    report.Scanned,
		Invoiced:   report.Invoiced,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
		Escalated:  report.Escalated,
		InvoiceIDs: ids,
	})
}

// RefreshStatuses marca activos vencidos o por vencer.
// @Summary  Refrescar estados de activos
// @Tags     renewals
// @Produce  json
// @Success  200  {object}  dto.StatusRefreshResponse
// @Security Bearer
// @Router   /api/renewals/refresh-statuses [post]
func (h *RenewalHandler) RefreshStatuses(c *fiber.Ctx) error {
	report, err := h.engine.RefreshStatuses(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.StatusRefreshResponse{Expired: report.Expired, Expiring: report.Expiring})
}
