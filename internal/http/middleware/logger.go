package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	infraPrometheus "github.com/sifan077/PowerStats/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Logger creates a logging middleware using zap. Beacon traffic is logged at
// debug level to keep production logs readable.
func Logger(logger *zap.Logger, metrics *infraPrometheus.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		metrics.ObserveRequest(c.Method(), c.Route().Path, status)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if requestID, ok := c.Locals(requestIDLocal).(string); ok {
			fields = append(fields, zap.String("request_id", requestID))
		}

		switch {
		case err != nil:
			logger.Error("request error", append(fields, zap.Error(err))...)
		case c.Method() == fiber.MethodPost && status < fiber.StatusBadRequest:
			logger.Debug("beacon", fields...)
		default:
			logger.Info("request", fields...)
		}

		return err
	}
}
