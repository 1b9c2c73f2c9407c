package response

import (
	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key the request id middleware fills.
const RequestIDKey = "RequestID"

// Response is the envelope every endpoint answers with.
type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Error     any    `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestID returns the id assigned to the current request, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

func Success(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: RequestID(c),
	})
}

func Error(c *gin.Context, code int, message string, err any) {
	c.JSON(code, Response{
		Success:   false,
		Message:   message,
		Error:     err,
		RequestID: RequestID(c),
	})
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, code int, message string) {
	Error(c, code, message, nil)
	c.Abort()
}
