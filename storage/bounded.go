// Package storage provides the ordered-sequence and bounded-string
// containers shared by the data model. Every container enforces a single
// length limit and reports capacity failures instead of panicking or
// silently truncating, so the same calling code works whether the limit
// comes from an embedded build's tight cap or a host tool's generous one.
package storage

import (
	"fmt"
	"unicode/utf8"
)

// ErrCapacityExceeded is returned by any Push/Append once a container would
// grow past its configured limit.
type ErrCapacityExceeded struct {
	// Container names which container rejected the insert, e.g. "nodes",
	// "signals", "value-descriptions". Used only for diagnostics.
	Container string
	Limit     int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("%s: capacity exceeded (limit %d)", e.Container, e.Limit)
}

// Sequence is an ordered, length-limited collection of T. The zero value is
// not usable; construct with NewSequence. Limit <= 0 means unlimited.
type Sequence[T any] struct {
	name  string
	items []T
	limit int
}

// NewSequence creates an empty Sequence that rejects pushes past limit.
func NewSequence[T any](name string, limit int) *Sequence[T] {
	cap0 := limit
	if cap0 < 0 || cap0 > 64 {
		cap0 = 0
	}
	return &Sequence[T]{name: name, limit: limit, items: make([]T, 0, cap0)}
}

// SequenceFrom builds a Sequence from an existing slice, validating the
// limit. The slice is copied; callers may reuse it afterwards.
func SequenceFrom[T any](name string, limit int, items []T) (*Sequence[T], error) {
	if limit > 0 && len(items) > limit {
		return nil, &ErrCapacityExceeded{Container: name, Limit: limit}
	}
	s := NewSequence[T](name, limit)
	s.items = append(s.items, items...)
	return s, nil
}

// Push appends v, failing with ErrCapacityExceeded if the sequence is full.
func (s *Sequence[T]) Push(v T) error {
	if s.limit > 0 && len(s.items) >= s.limit {
		return &ErrCapacityExceeded{Container: s.name, Limit: s.limit}
	}
	s.items = append(s.items, v)
	return nil
}

// Len returns the number of elements currently stored.
func (s *Sequence[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// IsEmpty reports whether the sequence holds no elements.
func (s *Sequence[T]) IsEmpty() bool {
	return s.Len() == 0
}

// At returns the element at index i, or the zero value and false if i is
// out of range.
func (s *Sequence[T]) At(i int) (T, bool) {
	var zero T
	if s == nil || i < 0 || i >= len(s.items) {
		return zero, false
	}
	return s.items[i], true
}

// All returns the elements in stored order. The returned slice aliases
// internal storage and must not be mutated by the caller.
func (s *Sequence[T]) All() []T {
	if s == nil {
		return nil
	}
	return s.items
}

// Limit returns the configured capacity ceiling, or 0 for unlimited.
func (s *Sequence[T]) Limit() int {
	if s == nil {
		return 0
	}
	return s.limit
}

// BoundedString is a UTF-8 string capped at a maximum byte length.
type BoundedString struct {
	s string
}

// NewBoundedString validates s against max (in bytes) and wraps it.
// max <= 0 means unlimited.
func NewBoundedString(name string, s string, max int) (BoundedString, error) {
	if max > 0 && len(s) > max {
		return BoundedString{}, &ErrCapacityExceeded{Container: name, Limit: max}
	}
	if !utf8.ValidString(s) {
		return BoundedString{}, fmt.Errorf("%s: not valid utf-8", name)
	}
	return BoundedString{s: s}, nil
}

// String returns the underlying value.
func (b BoundedString) String() string { return b.s }

// Len returns the byte length of the underlying value.
func (b BoundedString) Len() int { return len(b.s) }

// IsEmpty reports whether the string is empty.
func (b BoundedString) IsEmpty() bool { return b.s == "" }
