// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import "fmt"

// Optional holds a value that may be absent. The zero Optional is absent.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Valid reports whether a value is present.
func (o Optional[T]) Valid() bool {
	return o.ok
}

// Or returns the value, or def when absent.
func (o Optional[T]) Or(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

func (o Optional[T]) String() string {
	if !o.ok {
		return "n/a"
	}
	return fmt.Sprint(o.value)
}

// optionalIf gates v on a validity bit.
func optionalIf[T any](set bool, v T) Optional[T] {
	if !set {
		return Optional[T]{}
	}
	return Some(v)
}
