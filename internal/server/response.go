package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gaugehq/gauge/pkg/models"
)

// APIResponse is the uniform envelope every endpoint returns.
type APIResponse struct {
	Status    string           `json:"status"`
	Data      any              `json:"data,omitempty"`
	Message   string           `json:"message,omitempty"`
	ErrorType models.ErrorType `json:"error_type,omitempty"`
}

// SendSuccess writes a success envelope.
func SendSuccess(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(APIResponse{Status: "success", Data: data})
}

// SendError writes a general error envelope.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithType(c, status, message, models.GeneralErrorType)
}

// SendErrorWithType writes an error envelope with an explicit category.
func SendErrorWithType(c *fiber.Ctx, status int, message string, errType models.ErrorType) error {
	return c.Status(status).JSON(APIResponse{Status: "error", Message: message, ErrorType: errType})
}
