package dao

import "encoding/json"

// Result is the normalized outcome of a read: either a found value or the
// NotFound sentinel. The zero value is NotFound.
type Result[T any] struct {
	value T
	found bool
}

func Found[T any](value T) Result[T] {
	return Result[T]{value: value, found: true}
}

func NotFound[T any]() Result[T] {
	return Result[T]{}
}

func (r Result[T]) IsFound() bool {
	return r.found
}

func (r Result[T]) IsNotFound() bool {
	return !r.found
}

// Value returns the found value and true, or the zero value and false.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.found
}

// OrElse returns the found value or def.
func (r Result[T]) OrElse(def T) T {
	if r.found {
		return r.value
	}
	return def
}

func (r Result[T]) String() string {
	if !r.found {
		return "NotFound"
	}
	b, err := json.Marshal(r.value)
	if err != nil {
		return "Found"
	}
	return "Found(" + string(b) + ")"
}

// Outcome reports whether a mutation that returns no data completed.
type Outcome int

const (
	Failure Outcome = iota
	Success
)

func (o Outcome) String() string {
	if o == Success {
		return "Success"
	}
	return "Failure"
}

// UpdateSummary is what a store reports after a multi-document update.
type UpdateSummary struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

// DeleteSummary is what a store reports after a multi-document delete.
type DeleteSummary struct {
	Acknowledged bool  `json:"acknowledged"`
	Deleted      int64 `json:"deleted"`
}
