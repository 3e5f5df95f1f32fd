package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/billing"
	"github.com/jhoicas/msp-api/internal/application/dto"
)

// InvoiceHandler maneja las peticiones HTTP de facturas (protegido).
type InvoiceHandler struct {
	svc *billing.Service
	log zerolog.Logger
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(svc *billing.Service, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, log: log}
}

// GetByID obtiene la factura con sus líneas.
// @Summary  Obtener factura
// @Tags     invoices
// @Produce  json
// @Param    id   path      string  true  "ID de la factura"
// @Success  200  {object}  dto.InvoiceResponse
// @Failure  404  {object}  dto.ErrorResponse
// @Security Bearer
// @Router   /api/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	resp, err := h.svc.GetInvoice(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// Create crea una factura manual en borrador.
// @Summary  Crear factura manual
// @Tags     invoices
// @Accept   json
// @Produce  json
// @Param    body  body      dto.CreateInvoiceRequest  true  "Cabecera y líneas"
// @Success  201   {object}  dto.InvoiceResponse
// @Failure  400   {object}  dto.ErrorResponse
// @Security Bearer
// @Router   /api/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	resp, err := h.svc.CreateManualInvoice(c.Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// AddItem agrega una línea manual y recalcula.
// @Summary  Agregar línea
// @Tags     invoices
// @Accept   json
// @Produce  json
// @Param    id    path      string                  true  "ID de la factura"
// @Param    body  body      dto.InvoiceItemRequest  true  "Línea"
// @Success  201   {object}  dto.InvoiceResponse
// @Failure  409   {object}  dto.ErrorResponse
// @Security Bearer
// @Router   /api/invoices/{id}/items [post]
func (h *InvoiceHandler) AddItem(c *fiber.Ctx) error {
	var in dto.InvoiceItemRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	resp, err := h.svc.AddItem(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// UpdateItem modifica una línea y recalcula.
// @Summary  Modificar línea
// @Tags     invoices
// @Accept   json
// @Produce  json
// @Param    id      path      string                  true  "ID de la factura"
// @Param    itemId  path      string                  true  "ID de la línea"
// @Param    body    body      dto.InvoiceItemRequest  true  "Línea"
// @Success  200     {object}  dto.InvoiceResponse
// @Security Bearer
// @Router   /api/invoices/{id}/items/{itemId} [put]
func (h *InvoiceHandler) UpdateItem(c *fiber.Ctx) error {
	var in dto.InvoiceItemRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	resp, err := h.svc.UpdateItem(c.Context(), c.Params("id"), c.Params("itemId"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// DeleteItem borra una línea, libera su registro origen y recalcula.
// @Summary  Borrar línea
// @Tags     invoices
// @Produce  json
// @Param    id      path      string  true  "ID de la factura"
// @Param    itemId  path      string  true  "ID de la línea"
// @Success  200     {object}  dto.InvoiceResponse
// @Security Bearer
// @Router   /api/invoices/{id}/items/{itemId} [delete]
func (h *InvoiceHandler) DeleteItem(c *fiber.Ctx) error {
	resp, err := h.svc.DeleteItem(c.Context(), c.Params("id"), c.Params("itemId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// Recompute recalcula totales.
// @Summary  Recalcular totales
// @Tags     invoices
// @Produce  json
// @Param    id   path      string  true  "ID de la factura"
// @Success  200  {object}  dto.InvoiceResponse
// @Security Bearer
// @Router   /api/invoices/{id}/recompute [post]
func (h *InvoiceHandler) Recompute(c *fiber.Ctx) error {
	resp, err := h.svc.RecomputeInvoice(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// Send draft -> sent.
// @Summary  Marcar enviada
// @Tags     invoices
// @Produce  json
// @Param    id   path      string  true  "ID de la factura"
// @Success  200  {object}  dto.InvoiceResponse
// @Failure  409  {object}  dto.ErrorResponse
// @Security Bearer
// @Router   /api/invoices/{id}/send [post]
func (h *InvoiceHandler) Send(c *fiber.Ctx) error {
	resp, err := h.svc.MarkSent(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// Pay registra el pago (sent -> paid).
// @Summary  Registrar pago
// @Tags     invoices
// @Accept   json
// @Produce  json
// @Param    id    path      string                    true  "ID de la factura"
// @Param    body  body      dto.RecordPaymentRequest  true  "Pago"
// @Success  200   {object}  dto.InvoiceResponse
// @Failure  409   {object}  dto.ErrorResponse
// @Security Bearer
// @Router   /api/invoices/{id}/pay [post]
func (h *InvoiceHandler) Pay(c *fiber.Ctx) error {
	var in dto.RecordPaymentRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	resp, err := h.svc.RecordPayment(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// Void anula la factura: totales en cero y registros origen liberados.
// @Summary  Anular factura
// @Tags     invoices
// @Produce  json
// @Param    id   path      string  true  "ID de la factura"
// @Success  200  {object}  dto.InvoiceResponse
// @Failure  409  {object}  dto.ErrorResponse
// @Security Bearer
// @Router   /api/invoices/{id}/void [post]
func (h *InvoiceHandler) Void(c *fiber.Ctx) error {
	resp, err := h.svc.VoidInvoice(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// Delete borra un borrador.
// @Summary  Borrar factura
// @Tags     invoices
// @Param    id   path  string  true  "ID de la factura"
// @Success  204
// @Failure  409  {object}  dto.ErrorResponse
// @Security Bearer
// @Router   /api/invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.DeleteInvoice(c.Context(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
