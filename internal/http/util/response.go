package util

import "github.com/gofiber/fiber/v2"

const (
	CodeValidation  = "validation_error"
	CodeStorage     = "storage_error"
	CodeInternal    = "internal_error"
	CodeRateLimited = "rate_limited"
	CodeNotFound    = "not_found"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Success writes a 200 envelope carrying data.
func Success(c *fiber.Ctx, data any) error {
	return c.JSON(Envelope{Success: true, Data: data})
}

// Failure writes a failed envelope with the given status.
func Failure(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(Envelope{Error: message, Code: code})
}
