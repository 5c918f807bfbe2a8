package handler

import (
	"errors"

	autherror "github.com/AnthoniusHendriyanto/otp-auth-service/internal/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError writes the failure body shared by every route.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var e *autherror.Error
	if !errors.As(err, &e) {
		e = autherror.Internal(err)
	}
	if e.Kind == autherror.KindInternal {
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Any("request_id", c.Locals("requestid")),
			zap.Error(err))
	}
	return c.Status(e.Kind.Status()).JSON(fiber.Map{
		"success": false,
		"message": e.Message,
	})
}

func ok(c *fiber.Ctx, status int) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": "ok",
	})
}
