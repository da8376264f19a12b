package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/errs"
)

// StatusOf maps an error kind to its HTTP status
func StatusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		return fiber.StatusNotFound
	case errs.KindInactive, errs.KindInsufficientMaterial, errs.KindConflict:
		return fiber.StatusConflict
	case errs.KindPermissionDenied:
		return fiber.StatusForbidden
	case errs.KindValidation:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	status := StatusOf(err)
	body := fiber.Map{
		"error": err.Error(),
		"kind":  errs.KindOf(err).String(),
	}
	if shortfalls := errs.ShortfallsOf(err); len(shortfalls) > 0 {
		body["shortfalls"] = shortfalls
	}

	if status == fiber.StatusInternalServerError {
		config.LogError(s.logger, "api", c.Method()+" "+c.Path(), nil, err)
		body["error"] = "internal server error"
	}
	return c.Status(status).JSON(body)
}

func badRequest(format string) error {
	return fiber.NewError(fiber.StatusBadRequest, format)
}
