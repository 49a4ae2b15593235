package httpapi

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()

	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status, _ = classify(err)
	}

	slog.Debug("HTTP request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
	)

	return err
}
