package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/billing"
)

// TicketHandler facturación de tickets.
type TicketHandler struct {
	svc *billing.Service
	log zerolog.Logger
}

// NewTicketHandler construye el handler.
func NewTicketHandler(svc *billing.Service, log zerolog.Logger) *TicketHandler {
	return &TicketHandler{svc: svc, log: log}
}

// Unbilled horas y materiales pendientes del ticket.
// @Summary  Pendientes de facturar
// @Tags     tickets
// @Produce  json
// @Param    id   path      string  true  "ID del ticket"
// @Success  200  {object}  dto.UnbilledResponse
// @Security Bearer
// @Router   /api/tickets/{id}/unbilled [get]
func (h *TicketHandler) Unbilled(c *fiber.Ctx) error {
	resp, err := h.svc.ListUnbilled(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// Invoice genera la factura borrador con todo lo pendiente del ticket.
// @Summary  Facturar ticket
// @Tags     tickets
// @Produce  json
// @Param    id   path      string  true  "ID del ticket"
// @Success  201  {object}  dto.InvoiceResponse
// @Failure  422  {object}  dto.ErrorResponse
// @Failure  409  {object}  dto.ErrorResponse
// @Security Bearer
// @Router   /api/tickets/{id}/invoice [post]
func (h *TicketHandler) Invoice(c *fiber.Ctx) error {
	resp, err := h.svc.GenerateFromTicket(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}
