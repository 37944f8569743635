package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
)

// statusOf returns the HTTP status ErrorHandler will use for err
func statusOf(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return fiber.StatusInternalServerError
}
