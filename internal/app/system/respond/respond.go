// Package respond writes and reads JSON bodies for the API handlers.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
)

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Message is the body of responses that carry only a message and
// optional named payloads.
type Message map[string]any

// DecodeJSON reads the request body into v. Unknown fields are ignored. A
// missing or malformed body is a validation error.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperr.Validation("Request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body is required")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperr.Validation("Invalid value for "+typeErr.Field,
				apperr.FieldError{Field: typeErr.Field, Message: "Invalid value for " + typeErr.Field})
		}
		return apperr.Validation("Malformed JSON body")
	}
	return nil
}
