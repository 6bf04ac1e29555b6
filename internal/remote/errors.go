package remote

import (
	"errors"
	"fmt"
	"strings"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors, one per failure kind. Every error returned by Client
// wraps exactly one of them.
var (
	// ErrTransport covers connection failures, timeouts and cancellation.
	ErrTransport = constError("transport failure")
	// ErrValidation is a structured field-level rejection from the service.
	ErrValidation = constError("validation failed")
	// ErrStatus is a non-2xx response without field details.
	ErrStatus = constError("unexpected status")
	// ErrMalformed is a response that could not be decoded.
	ErrMalformed = constError("malformed response")
	// ErrPrecondition is a local check that failed before any call was made.
	ErrPrecondition = constError("precondition failed")
)

// Kind classifies an error for display and logging.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindTransport
	KindValidation
	KindStatus
	KindMalformed
	KindPrecondition
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindStatus:
		return "status"
	case KindMalformed:
		return "malformed"
	case KindPrecondition:
		return "precondition"
	case KindUnknown:
	}
	return "unknown"
}

// KindOf classifies err. nil is KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrStatus):
		return KindStatus
	case errors.Is(err, ErrPrecondition):
		return KindPrecondition
	case errors.Is(err, ErrTransport):
		return KindTransport
	}
	return KindUnknown
}

// FieldError is one entry of a validation failure body.
type FieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// Location renders Loc as a dotted path, e.g. "body.aggregated_input_data.fat".
func (f FieldError) Location() string {
	parts := make([]string, 0, len(f.Loc))
	for _, p := range f.Loc {
		switch v := p.(type) {
		case string:
			parts = append(parts, v)
		case float64:
			parts = append(parts, fmt.Sprintf("%d", int(v)))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, ".")
}

// ValidationError is a structured rejection. Its message joins every
// field error into one human-readable line.
type ValidationError struct {
	StatusCode int
	Fields     []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		loc := f.Location()
		if loc == "" {
			msgs = append(msgs, f.Msg)
			continue
		}
		msgs = append(msgs, loc+": "+f.Msg)
	}
	if len(msgs) == 0 {
		return fmt.Sprintf("validation failed (HTTP %d)", e.StatusCode)
	}
	return strings.Join(msgs, "; ")
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StatusError is a non-2xx response carrying at most a text detail.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("service returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("service returned HTTP %d: %s", e.StatusCode, e.Detail)
}

// Is matches ErrStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}
