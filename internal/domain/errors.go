package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeNotUnderstood means no temporal phrase could be resolved.
	ErrTimeNotUnderstood = errors.New("time not understood")
	ErrEmptyText         = errors.New("empty reminder text")
	ErrEmptyTime         = errors.New("empty time phrase")
	ErrNotFound          = errors.New("not found")
	ErrIndexOutOfRange   = errors.New("index out of range")
	// ErrUpstream wraps failures of the assistant or speech backends.
	ErrUpstream = errors.New("upstream service failed")
)

// IndexOutOfRangeError carries the valid bounds of a disambiguation list.
type IndexOutOfRangeError struct {
	Index int
	Max   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range [1, %d]", e.Index, e.Max)
}

func (e *IndexOutOfRangeError) Unwrap() error {
	return ErrIndexOutOfRange
}
