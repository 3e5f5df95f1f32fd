package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/dto"
	"github.com/jhoicas/msp-api/internal/domain"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// El orden importa: se usa el primer errors.Is que coincida.
var errorMappings = []errorMapping{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNothingToBill, fiber.StatusUnprocessableEntity, "NOTHING_TO_BILL"},
	{domain.ErrZeroValue, fiber.StatusUnprocessableEntity, "ZERO_VALUE"},
	{domain.ErrInvoiceAlreadyPaid, fiber.StatusConflict, "INVOICE_PAID"},
	{domain.ErrInvoiceNotDraft, fiber.StatusConflict, "INVOICE_NOT_DRAFT"},
	{domain.ErrInvoiceLocked, fiber.StatusConflict, "INVOICE_LOCKED"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrAlreadyInvoiced, fiber.StatusConflict, "ALREADY_INVOICED"},
	{domain.ErrRenewalLockHeld, fiber.StatusConflict, "RENEWAL_PENDING"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
}

// writeError traduce errores de dominio a status + dto.ErrorResponse.
// Los errores no reconocidos se registran y responden 500 sin exponer detalles.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: m.err.Error()})
		}
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
