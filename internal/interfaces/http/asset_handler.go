package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/dto"
	"github.com/jhoicas/msp-api/internal/application/renewal"
)

// AssetHandler modificación de activos y facturación de renovación ad-hoc.
type AssetHandler struct {
	assets *renewal.AssetService
	engine *renewal.Engine
	log    zerolog.Logger
}

// NewAssetHandler construye el handler.
func NewAssetHandler(assets *renewal.AssetService, engine *renewal.Engine, log zerolog.Logger) *AssetHandler {
	return &AssetHandler{assets: assets, engine: engine, log: log}
}

// Update aplica los campos presentes; si expires_at avanza se libera el bloqueo de renovación.
// @Summary  Modificar activo
// @Tags     assets
// @Accept   json
// @Produce  json
// @Param    id    path      string                  true  "ID del activo"
// @Param    body  body      dto.UpdateAssetRequest  true  "Campos a modificar"
// @Success  200   {object}  dto.AssetResponse
// @Security Bearer
// @Router   /api/assets/{id} [patch]
func (h *AssetHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateAssetRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	resp, err := h.assets.UpdateAsset(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// RenewalInvoice ejecuta el chequeo de renovación de un activo y devuelve el resultado.
// @Summary  Factura de renovación ad-hoc
// @Tags     assets
// @Produce  json
// @Param    id   path      string  true  "ID del activo"
// @Success  200  {object}  dto.AssetInvoiceResponse
// @Success  201  {object}  dto.AssetInvoiceResponse
// @Security Bearer
// @Router   /api/assets/{id}/renewal-invoice [post]
func (h *AssetHandler) RenewalInvoice(c *fiber.Ctx) error {
	res, err := h.engine.InvoiceAsset(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	status := fiber.StatusOK
	if res.Created() {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.AssetInvoiceResponse{
		Outcome:   res.Outcome,
		InvoiceID: res.InvoiceID,
		Reason:    res.Reason,
	})
}
