// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index provides the method table and name lookup that produce
// overload candidates.
//
// MethodIndex stores declared methods by ID, by name and by declaring
// class. Lookup walks the class hierarchy for a call site the way a Java
// compiler does, most-derived first, and returns one overload.Candidate per
// method found together with its accessibility and static-context facts.
//
// # Ownership Model
//
// The index stores pointers to methods but does NOT own them. Methods MUST
// NOT be mutated after being added.
//
// # Thread Safety
//
// MethodIndex is safe for concurrent use. Write operations (Add, AddBatch,
// RemoveByClass, Clear) use exclusive locks; read operations (Get*,
// Lookup, Suggest, Stats) use shared locks.
package index

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for method index operations.
var (
	// ErrDuplicateMethod is returned when adding a method with an ID that
	// already exists in the index.
	ErrDuplicateMethod = errors.New("duplicate method ID")

	// ErrMaxMethodsExceeded is returned when the index has reached its
	// configured maximum capacity.
	ErrMaxMethodsExceeded = errors.New("maximum method count exceeded")

	// ErrInvalidMethod is returned when an entry fails validation.
	ErrInvalidMethod = errors.New("invalid method")

	// ErrInvalidCallSite is returned when a call site cannot be looked up.
	ErrInvalidCallSite = errors.New("invalid call site")

	// ErrTooManyCandidates is returned when lookup produces more candidates
	// than the configured limit.
	ErrTooManyCandidates = errors.New("too many candidates")
)

// BatchError aggregates multiple errors from batch operations.
//
// AddBatch collects every problem in the batch instead of stopping at the
// first, so callers can report them all at once.
type BatchError struct {
	// Errors contains the individual errors, each prefixed with the
	// position in the batch (e.g., "method[3]: duplicate method ID").
	Errors []error
}

// Error returns a human-readable summary of the batch errors.
func (e *BatchError) Error() string {
	if len(e.Errors) == 0 {
		return "batch error with no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v (and %d more)",
		len(e.Errors), e.Errors[0], len(e.Errors)-1)
}

// Unwrap returns the underlying errors for use with errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	return e.Errors
}

// ErrorList returns all errors, one per line.
func (e *BatchError) ErrorList() string {
	var b strings.Builder
	for i, err := range e.Errors {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}
