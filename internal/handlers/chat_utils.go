package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Aerovity/riglii-backend/internal/apperr"
)

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	v := c.Locals("userId")
	if v == nil {
		return uuid.Nil, fmt.Errorf("unauthorized")
	}

	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		return uuid.Parse(t)
	case []byte:
		return uuid.ParseBytes(t)
	default:
		return uuid.Nil, fmt.Errorf("invalid userId type: %T", v)
	}
}

// respondErr maps the service error taxonomy onto HTTP statuses.
func respondErr(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if kind, ok := apperr.KindOf(err); ok {
		switch kind {
		case apperr.KindValidation:
			status = fiber.StatusBadRequest
		case apperr.KindPolicy:
			status = fiber.StatusConflict
		case apperr.KindNotFound:
			status = fiber.StatusNotFound
		case apperr.KindDependency:
			status = fiber.StatusBadGateway
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}
