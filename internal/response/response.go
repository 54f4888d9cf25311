// Package response shapes every reply the API produces: a uniform success
// envelope and a uniform error envelope, plus the central echo error
// handler that converts business errors into the latter.
package response

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kanrihq/kanri-backend/internal/apperr"
)

// SuccessEnvelope wraps every successful response.
type SuccessEnvelope struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Data      any       `json:"data"`
	Path      string    `json:"path"`
}

// ErrorEnvelope wraps every failure response. Code is a short taxonomy
// string clients can branch on; Errors carries optional field-level detail.
type ErrorEnvelope struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Code      string            `json:"code"`
	Path      string            `json:"path"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// Success writes the success envelope with the given status.
func Success(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, SuccessEnvelope{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Message:   message,
		Data:      data,
		Path:      c.Request().RequestURI,
	})
}

// OK writes a 200 success envelope.
func OK(c echo.Context, message string, data any) error {
	return Success(c, http.StatusOK, message, data)
}

// Created writes a 201 success envelope.
func Created(c echo.Context, message string, data any) error {
	return Success(c, http.StatusCreated, message, data)
}

func writeError(c echo.Context, status int, code, message string) {
	env := ErrorEnvelope{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		Path:      c.Request().RequestURI,
	}
	if err := c.JSON(status, env); err != nil {
		log.Printf("write error response: %v", err)
	}
}

// ErrorHandler is the process-wide echo.HTTPErrorHandler. Expected business
// failures (*apperr.Error) map straight onto the envelope. Echo's own
// routing errors keep their status with a derived code. Everything else is
// an unexpected fault: it is logged with full context server-side and the
// client only ever sees the generic internal error.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		writeError(c, ae.Status, ae.Code, ae.Message)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		writeError(c, he.Code, fmt.Sprintf("E%d00", he.Code), fmt.Sprintf("%v", he.Message))
		return
	}

	log.Printf("unexpected error on %s %s: %v", c.Request().Method, c.Request().RequestURI, err)
	writeError(c, apperr.ErrInternal.Status, apperr.ErrInternal.Code, apperr.ErrInternal.Message)
}
