package http

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/msp-api/internal/application/dto"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// bindJSON parsea el body y valida los tags `validate` del DTO.
// Con ok == false la respuesta 400 ya está escrita y el handler retorna err.
func bindJSON(c *fiber.Ctx, out any) (ok bool, err error) {
	if err := c.BodyParser(out); err != nil {
		return false, badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return false, badRequest(c, "VALIDATION", err.Error())
		}
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: "datos inválidos",
			Details: details,
		})
	}
	return true, nil
}
