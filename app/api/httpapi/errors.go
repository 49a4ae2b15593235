package httpapi

import (
	"errors"
	"log/slog"

	"quietspot/app/model"
	"quietspot/app/service/queue"

	"github.com/gofiber/fiber/v2"
)

type errorBody struct {
	Error string `json:"error"`
}

// errorHandler turns any handler error into {"error": message}. Only known
// failures get their own message; everything else is reported generically.
func errorHandler(c *fiber.Ctx, err error) error {
	status, message := classify(err)

	if status >= fiber.StatusInternalServerError {
		slog.Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		)
	}

	return c.Status(status).JSON(errorBody{Error: message})
}

func classify(err error) (int, string) {
	var fiberErr *fiber.Error

	switch {
	case errors.Is(err, model.ErrSessionIDRequired):
		return fiber.StatusBadRequest, "Session ID required"
	case errors.Is(err, model.ErrMessageRequired):
		return fiber.StatusBadRequest, "Message content required"
	case errors.Is(err, model.ErrSessionNotFound):
		return fiber.StatusNotFound, "Session not found"
	case errors.Is(err, queue.ErrBusy):
		return fiber.StatusConflict, "Another message is still being processed"
	case errors.Is(err, model.ErrStoreUnavailable), errors.Is(err, queue.ErrClosed):
		return fiber.StatusServiceUnavailable, "Service temporarily unavailable"
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}
