package questiongen

import (
	"context"
	"errors"
	"fmt"
)

// NoJSONFoundError means the model output contains no JSON object.
type NoJSONFoundError struct {
	Raw string
}

func (e *NoJSONFoundError) Error() string {
	return "no JSON object found in model output"
}

// MalformedJSONError means the candidate JSON did not parse.
type MalformedJSONError struct {
	Raw        string
	Diagnostic string
	Err        error
}

func (e *MalformedJSONError) Error() string {
	return "malformed JSON in model output: " + e.Diagnostic
}

func (e *MalformedJSONError) Unwrap() error { return e.Err }

// SchemaViolationError means the JSON parsed but broke a structural rule.
// Rule is a stable identifier such as "unknown_solution_id".
type SchemaViolationError struct {
	Rule    string
	Message string
	Raw     string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation (%s): %s", e.Rule, e.Message)
}

// FailureKind classifies why a question could not be produced.
type FailureKind string

const (
	KindGateway         FailureKind = "gateway"
	KindNoJSONFound     FailureKind = "no_json_found"
	KindMalformedJSON   FailureKind = "malformed_json"
	KindSchemaViolation FailureKind = "schema_violation"
	KindCancelled       FailureKind = "cancelled"
)

// Failure is the terminal outcome of a generation that did not yield a
// question. Err holds the last underlying error.
type Failure struct {
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
	Attempts int         `json:"attempts"`
	Rule     string      `json:"rule,omitempty"`
	RawText  string      `json:"rawText,omitempty"`
	Err      error       `json:"-"`
}

func (f *Failure) Error() string {
	if f.Kind == KindCancelled {
		return "cancelled: " + f.Message
	}
	return fmt.Sprintf("%s after %d attempt(s): %s", f.Kind, f.Attempts, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// Cancelled returns the failure recorded for work that never ran.
func Cancelled(reason string) *Failure {
	return &Failure{Kind: KindCancelled, Message: reason, Err: context.Canceled}
}

// KindOf classifies err. Anything that is not an extraction error or a
// cancellation counts as a gateway error.
func KindOf(err error) FailureKind {
	var (
		f         *Failure
		noJSON    *NoJSONFoundError
		malformed *MalformedJSONError
		violation *SchemaViolationError
	)
	switch {
	case errors.As(err, &f):
		return f.Kind
	case errors.As(err, &noJSON):
		return KindNoJSONFound
	case errors.As(err, &malformed):
		return KindMalformedJSON
	case errors.As(err, &violation):
		return KindSchemaViolation
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindGateway
	}
}

// newFailure wraps the last error of an exhausted generation.
func newFailure(err error, attempts int) *Failure {
	f := &Failure{
		Kind:     KindOf(err),
		Message:  err.Error(),
		Attempts: attempts,
		Err:      err,
	}

	var (
		noJSON    *NoJSONFoundError
		malformed *MalformedJSONError
		violation *SchemaViolationError
	)
	switch {
	case errors.As(err, &noJSON):
		f.RawText = noJSON.Raw
	case errors.As(err, &malformed):
		f.RawText = malformed.Raw
	case errors.As(err, &violation):
		f.Rule = violation.Rule
		f.RawText = violation.Raw
	}
	return f
}

// AsFailure returns err as a *Failure, wrapping errors from generators
// that do not produce one.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return newFailure(err, 0)
}
