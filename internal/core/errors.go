package core

import (
	"errors"
)

// Kind is the structured error category surfaced to adapters.
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindAlreadyExists   Kind = "ALREADY_EXISTS"
	KindAlreadyInvoiced Kind = "ALREADY_INVOICED"
	KindConflict        Kind = "CONFLICT"
	KindForbidden       Kind = "FORBIDDEN"
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindInternal        Kind = "INTERNAL"
)

// Sentinel errors. Call sites wrap them with context:
//
//	fmt.Errorf("order %d: %w", id, ErrNotFound)
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrAlreadyInvoiced = errors.New("already invoiced")
	// ErrConflict marks a unique-constraint race that is safe to retry.
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrAlreadyInvoiced, KindAlreadyInvoiced},
	{ErrAlreadyExists, KindAlreadyExists},
	{ErrConflict, KindConflict},
	{ErrForbidden, KindForbidden},
	{ErrInvalidInput, KindInvalidInput},
}

// KindOf classifies err. Anything not wrapping a sentinel is INTERNAL.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
