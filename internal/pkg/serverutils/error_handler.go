package serverutils

import (
	"errors"

	"bank-support-be/internal/service"
	"bank-support-be/pkg/dialog"
	"bank-support-be/pkg/kb"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// StatusFor maps domain errors to HTTP status codes and client-safe messages.
func StatusFor(err error) (int, string) {
	var verrs validator.ValidationErrors
	var ferr *fiber.Error

	switch {
	case errors.As(err, &verrs):
		return fiber.StatusBadRequest, "Validation failed"
	case errors.Is(err, dialog.ErrEmptyMessage):
		return fiber.StatusBadRequest, "Message is empty"
	case errors.Is(err, service.ErrInvalidPhone):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.StatusNotFound, "Session not found"
	case errors.Is(err, service.ErrTicketNotFound):
		return fiber.StatusNotFound, "Handover ticket not found"
	case errors.Is(err, kb.ErrNotFound):
		return fiber.StatusNotFound, "KB entry not found"
	case errors.Is(err, kb.ErrDuplicateID):
		return fiber.StatusConflict, "KB entry already exists"
	case errors.Is(err, kb.ErrMalformedSource):
		return fiber.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrFeatureDisabled):
		return fiber.StatusServiceUnavailable, err.Error()
	case errors.As(err, &ferr):
		return ferr.Code, ferr.Message
	default:
		return fiber.StatusInternalServerError, "Internal error"
	}
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := StatusFor(err)
		resp := ErrorResponse(code, message)

		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Errors = fieldErrors(verrs)
		}
		return ctx.Status(code).JSON(resp)
	}
}
