// Package inputval validates typed request structs at the HTTP boundary.
//
// Rules are declared with `validate` struct tags (go-playground/validator
// syntax) and a `label` tag that names the field in messages:
//
//	type createInput struct {
//	    Name string `validate:"required,max=255" label:"Name"`
//	}
//
// Validate returns a Result whose messages are ready for clients.
package inputval

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	once sync.Once
	v    *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			if j := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; j != "" && j != "-" {
				return j
			}
			return f.Name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(fl.Field().String())
		})
	})
	return v
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects validation failures.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return r != nil && len(r.Errors) > 0 }

// First returns the first message or "".
func (r *Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// AppError converts the result into a validation error, or nil.
func (r *Result) AppError() error {
	if !r.HasErrors() {
		return nil
	}
	fields := make([]apperr.FieldError, len(r.Errors))
	for i, e := range r.Errors {
		fields[i] = apperr.FieldError{Field: e.Field, Message: e.Message}
	}
	return apperr.Validation(r.First(), fields...)
}

// Validate checks s against its struct tags.
func Validate(s any) *Result {
	res := &Result{}
	err := engine().Struct(s)
	if err == nil {
		return res
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range ves {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return res
}

// Check is Validate followed by AppError.
func Check(s any) error {
	return Validate(s).AppError()
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", label)
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s items.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s items.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "email":
		return "A valid email address is required."
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return fmt.Sprintf("%s is not a valid ID.", label)
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL.", label)
	default:
		return fmt.Sprintf("%s is invalid.", label)
	}
}

// IsValidEmail reports whether s is a syntactically valid bare address.
func IsValidEmail(s string) bool {
	return engine().Var(strings.TrimSpace(s), "required,email") == nil
}

// PathID parses the chi URL parameter name as an ObjectID. label names the
// parameter in the validation message.
func PathID(r *http.Request, name, label string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		msg := label + " is not a valid ID."
		return primitive.NilObjectID, apperr.Validation(msg, apperr.FieldError{Field: name, Message: msg})
	}
	return id, nil
}
