// Package problemdetails builds RFC 7807 error bodies.
package problemdetails

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	TypeInvalidRequest    = "invalid-request"
	TypeInvalidURL        = "invalid-url"
	TypeInvalidShortCode  = "invalid-short-code"
	TypeConflict          = "short-code-taken"
	TypeNotFound          = "not-found"
	TypeRateLimitExceeded = "rate-limit-exceeded"
	TypeUnavailable       = "service-unavailable"
	TypeInternalError     = "internal-error"
	TypeValidationError   = "validation-error"
)

const typeBaseURL = "https://api.example.com/problems/"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ProblemDetail struct {
	Type   string       `json:"type"`
	Title  string       `json:"title"`
	Status int          `json:"status"`
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

func New(status int, problemType, title, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:   typeBaseURL + problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

func NewValidation(errs []FieldError) *ProblemDetail {
	return &ProblemDetail{
		Type:   typeBaseURL + TypeValidationError,
		Title:  "Validation Failed",
		Status: http.StatusBadRequest,
		Detail: "Request validation failed",
		Errors: errs,
	}
}

// FromValidation converts ozzo-validation field errors into a validation problem.
// Errors of any other kind produce a plain invalid-request problem.
func FromValidation(err error) *ProblemDetail {
	var fields validation.Errors
	if !errors.As(err, &fields) {
		return New(http.StatusBadRequest, TypeInvalidRequest, "Invalid Request", err.Error())
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]FieldError, 0, len(names))
	for _, name := range names {
		out = append(out, FieldError{Field: name, Message: fmt.Sprint(fields[name])})
	}
	return NewValidation(out)
}
