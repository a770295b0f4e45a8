package response

import (
	"github.com/labstack/echo/v4"
)

// Envelope is the JSON error body of every gated endpoint. Codes are
// stable strings the clients switch on; messages are for humans.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Stable error codes.
const (
	CodeNoToken             = "NO_TOKEN"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeInvalidUser         = "INVALID_USER"
	CodeForbidden           = "FORBIDDEN"
	CodeCompanyAccessDenied = "COMPANY_ACCESS_DENIED"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInternalError       = "INTERNAL_ERROR"
)

// Fail terminates the request with the structured error envelope.
func Fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Code:    code,
	})
}

// OK wraps a payload in the success envelope.
func OK(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
