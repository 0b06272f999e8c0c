package core

import (
	"bytes"
	"encoding/json"
)

type updateOp uint8

const (
	opUnchanged updateOp = iota
	opClear
	opSet
)

// Update is a tagged per-field edit: Unchanged, Clear or Set(value).
// The zero value is Unchanged, so a JSON field that is absent from the
// request body leaves the target untouched, `null` clears it, and any
// other value sets it.
type Update[T any] struct {
	op    updateOp
	value T
}

// Unchanged returns an update that leaves the field as is.
func Unchanged[T any]() Update[T] { return Update[T]{} }

// Clear returns an update that resets the field to its empty value.
func Clear[T any]() Update[T] { return Update[T]{op: opClear} }

// Set returns an update that assigns v.
func Set[T any](v T) Update[T] { return Update[T]{op: opSet, value: v} }

func (u Update[T]) IsUnchanged() bool { return u.op == opUnchanged }
func (u Update[T]) IsClear() bool     { return u.op == opClear }
func (u Update[T]) IsSet() bool       { return u.op == opSet }

// Value returns the assigned value and whether the update is a Set.
func (u Update[T]) Value() (T, bool) {
	return u.value, u.op == opSet
}

// Apply writes the update into dst. Clear stores the zero value of T.
func (u Update[T]) Apply(dst *T) {
	switch u.op {
	case opSet:
		*dst = u.value
	case opClear:
		var zero T
		*dst = zero
	}
}

// ApplyPtr is Apply for optional fields held behind a pointer; Clear stores nil.
func (u Update[T]) ApplyPtr(dst **T) {
	switch u.op {
	case opSet:
		v := u.value
		*dst = &v
	case opClear:
		*dst = nil
	}
}

func (u *Update[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*u = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = Set(v)
	return nil
}

func (u Update[T]) MarshalJSON() ([]byte, error) {
	if u.op == opSet {
		return json.Marshal(u.value)
	}
	return []byte("null"), nil
}
