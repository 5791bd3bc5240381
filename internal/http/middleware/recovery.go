package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	httpUtil "github.com/sifan077/PowerStats/internal/http/util"
	"go.uber.org/zap"
)

// Recovery converts panics into a failed response envelope.
func Recovery(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Error(fmt.Errorf("panic recovered: %v", r)),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.String("request_id", GetRequestID(c)),
				)

				err = httpUtil.Failure(c, fiber.StatusInternalServerError, httpUtil.CodeInternal, "internal server error")
			}
		}()

		return c.Next()
	}
}
