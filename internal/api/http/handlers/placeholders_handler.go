package handlers

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/eservice/pkg/util/errorutil"
)

// NotImplemented answers every request with a 501 naming the feature.
func NotImplemented(feature string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return apperrors.NewNotImplemented(feature)
	}
}
