package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("you are not allowed to modify this project")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrMissingParameters  = errors.New("missing parameters")
	ErrGateway            = errors.New("payment gateway error")
	ErrServiceUnavailable = errors.New("payment service unavailable")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrSignatureInvalid   = errors.New("signature verification failed")
	ErrConfig             = errors.New("server misconfigured")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrConflict           = errors.New("already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrMediaUpload        = errors.New("media upload failed")
)

// ValidationError carries per-field problems. errors.Is(err, ErrValidation) holds for it.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns e when it holds problems, otherwise nil.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
