package types

import (
	"errors"
	"fmt"
)

// Nullable boxes the ok value of a Result.
type Nullable[T any] struct {
	Value T `json:"value"`
}

// Result is the envelope every mocked outbound call answers with. Exactly one
// of Ok and Error is set.
type Result[T any] struct {
	Ok    *Nullable[T] `json:"ok"`
	Error *string      `json:"error"`
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{Ok: &Nullable[T]{Value: value}}
}

// Err wraps a failure message.
func Err[T any](message string) Result[T] {
	return Result[T]{Error: &message}
}

// IsOk reports whether r carries a value.
func (r Result[T]) IsOk() bool { return r.Ok != nil }

// Unwrap returns the value or the error.
func (r Result[T]) Unwrap() (T, error) {
	var zero T
	if r.Ok != nil {
		return r.Ok.Value, nil
	}
	if r.Error != nil {
		return zero, fmt.Errorf("unwrap failed: %s", *r.Error)
	}
	return zero, errors.New("unwrap failed: invalid Result")
}

// UnwrapOr returns the value or def.
func (r Result[T]) UnwrapOr(def T) T {
	if r.Ok != nil {
		return r.Ok.Value
	}
	return def
}

// MapResult applies fn to the ok value.
func MapResult[T, A any](r Result[T], fn func(T) A) Result[A] {
	if r.Ok != nil {
		return Ok(fn(r.Ok.Value))
	}
	if r.Error != nil {
		return Err[A](*r.Error)
	}
	return Err[A]("map failed: invalid Result")
}
