package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerStats/internal/app/service"
	httpUtil "github.com/sifan077/PowerStats/internal/http/util"
	"go.uber.org/zap"
)

// respondError maps service errors onto the failure envelope.
func respondError(c *fiber.Ctx, logger *zap.Logger, op string, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return httpUtil.Failure(c, fiber.StatusBadRequest, httpUtil.CodeValidation, verr.Error())
	case errors.Is(err, service.ErrValidation):
		return httpUtil.Failure(c, fiber.StatusBadRequest, httpUtil.CodeValidation, err.Error())
	case errors.Is(err, service.ErrStorage):
		logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return httpUtil.Failure(c, fiber.StatusInternalServerError, httpUtil.CodeStorage, "failed to "+op)
	default:
		logger.Error("unexpected failure", zap.String("op", op), zap.Error(err))
		return httpUtil.Failure(c, fiber.StatusInternalServerError, httpUtil.CodeInternal, "internal server error")
	}
}

func invalidBody(c *fiber.Ctx) error {
	return httpUtil.Failure(c, fiber.StatusBadRequest, httpUtil.CodeValidation, "invalid request body")
}
