// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rbmalloc

import "fmt"

// ErrINVAL reports an invalid argument passed to an exported method. The
// shape mirrors lldb's ErrINVAL: a short message plus the offending value.
type ErrINVAL struct {
	Msg string
	Arg interface{}
}

func (e *ErrINVAL) Error() string { return fmt.Sprintf("%s: %v", e.Msg, e.Arg) }

// ErrILSEQ reports a heap consistency violation discovered while validating
// the heap (spec "invariant-violation" kind).
type ErrILSEQ struct {
	Msg string
	Off int64
}

func (e *ErrILSEQ) Error() string {
	return fmt.Sprintf("heap corruption at offset %#x: %s", e.Off, e.Msg)
}

// RequestTooLargeError is returned (wrapped in a nil Ptr result, never
// panicked) when a request exceeds MaxRequest.
type RequestTooLargeError struct {
	Requested int64
	Max       int64
}

func (e *RequestTooLargeError) Error() string {
	return fmt.Sprintf("request of %d bytes exceeds MaxRequest %d", e.Requested, e.Max)
}

// OutOfSpaceError is returned (wrapped in a nil Ptr result) when the free
// index has no block large enough for a request.
type OutOfSpaceError struct {
	Requested int64
}

func (e *OutOfSpaceError) Error() string {
	return fmt.Sprintf("no free block of at least %d bytes available", e.Requested)
}
