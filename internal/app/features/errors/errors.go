// internal/app/features/errors/errors.go
package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// body is the JSON shape of every error response.
type body struct {
	Message   string              `json:"message"`
	ErrorCode string              `json:"errorCode"`
	Errors    []apperr.FieldError `json:"errors,omitempty"`
}

// ErrorLogger turns errors into JSON responses. Server-side failures are
// logged with request context; client errors are logged at Debug.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Respond writes err as a JSON error response. Errors that are not
// *apperr.Error are treated as internal and their text is not exposed.
func (e *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, op string, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Internal("Internal server error", err)
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
			ae.Message = "The request timed out"
		}
	}

	status := ae.Kind.HTTPStatus()
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("kind", ae.Kind.String()),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
	if status >= http.StatusInternalServerError {
		e.Log.Error(ae.Message, append(fields, zap.Error(err))...)
	} else {
		e.Log.Debug(ae.Message, fields...)
	}

	message := ae.Message
	if message == "" {
		message = http.StatusText(status)
	}
	respond.JSON(w, status, body{Message: message, ErrorCode: ae.Code, Errors: ae.Fields})
}

// NotFound answers unmatched routes.
func (e *ErrorLogger) NotFound(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusNotFound, body{
		Message:   "Route not found: " + r.Method + " " + r.URL.Path,
		ErrorCode: apperr.CodeResourceNotFound,
	})
}

// MethodNotAllowed answers a known route called with the wrong method.
func (e *ErrorLogger) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, body{
		Message:   "Method not allowed",
		ErrorCode: apperr.CodeValidation,
	})
}
