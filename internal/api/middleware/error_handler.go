package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorHandler maps errors to JSON replies. Causes wrapped in an AppError are
// logged, never sent to the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// Check if it's a Fiber error
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Error: fiberErr.Message,
				Code:  "HTTP_ERROR",
			})
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			attrs := []any{
				slog.String("code", appErr.Code),
				slog.String("path", c.Path()),
				slog.String("request_id", RequestID(c)),
				slog.Any("error", appErr.Err),
			}
			if appErr.StatusCode >= 500 {
				logger.Error("request failed", attrs...)
			} else {
				logger.Debug("request rejected", attrs...)
			}

			return c.Status(appErr.StatusCode).JSON(ErrorResponse{
				Error: appErr.Message,
				Code:  appErr.Code,
			})
		}

		// Unknown error - log and return generic message
		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
			slog.String("request_id", RequestID(c)),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: domain.ErrInternal.Message,
			Code:  domain.ErrInternal.Code,
		})
	}
}
