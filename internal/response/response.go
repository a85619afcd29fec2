package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Ack is the body returned when a mutation succeeds. The browser-side
// debug logger checks the status field verbatim.
type Ack struct {
	Status string `json:"status"`
}

// APIError is the body of every JSON error response.
type APIError struct {
	Error string `json:"error"`
}

// Logged acknowledges a stored debug entry.
func Logged(c echo.Context) error {
	return c.JSON(http.StatusOK, Ack{Status: "logged"})
}

// Cleared acknowledges an emptied buffer.
func Cleared(c echo.Context) error {
	return c.JSON(http.StatusOK, Ack{Status: "cleared"})
}

// Error sends a JSON error body with the given status.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, APIError{Error: message})
}

// BadRequest sends 400 with message.
func BadRequest(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, message)
}

// NotFound sends the JSON not-found body POST clients expect.
func NotFound(c echo.Context) error {
	return Error(c, http.StatusNotFound, "Not found")
}
