package scoring

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	ErrValidation         = errors.New("invalid transaction")
	ErrServiceUnavailable = errors.New("scoring service unavailable")
	ErrSchema             = errors.New("missing required columns")
	ErrMalformedInput     = errors.New("malformed input")
	ErrBatchCancelled     = errors.New("batch cancelled")
)

// ValidationError lists the offending fields of a rejected transaction.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UnavailableError wraps the reason a remote scoring attempt failed.
type UnavailableError struct {
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", ErrServiceUnavailable, e.Cause)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSchema, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
