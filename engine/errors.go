// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine is the facade over the dual graph: it owns per-project
// serialization, request validation, snapshot persistence, and exposes
// the five operations (IndexProject, UpdateFiles, LogEvent,
// SimilarAttempts, ContextForFiles).
package engine

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/dualgraph/etg"
	"github.com/AleutianAI/dualgraph/graph"
)

// The engine's error taxonomy. Internal package errors are wrapped into
// these four sentinels so transport layers can classify with errors.Is.
var (
	// ErrValidation marks a malformed request or payload. The operation
	// aborts before any mutation.
	ErrValidation = errors.New("validation error")

	// ErrPrecondition marks a misordered event stream (an event kind
	// requires an entity that does not exist yet).
	ErrPrecondition = errors.New("precondition error")

	// ErrNotFound marks a request naming a node that is not in the store.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a snapshot that could not be durably written.
	// The in-memory graph remains correct; the operation's result is
	// still returned alongside this error (degraded durability, never
	// silent loss).
	ErrPersistence = errors.New("persistence error")
)

// classify wraps component-level errors into the engine taxonomy.
// Already-classified errors pass through unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrPrecondition),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrPersistence):
		return err
	case errors.Is(err, etg.ErrValidation),
		errors.Is(err, graph.ErrInvalidNode),
		errors.Is(err, graph.ErrKindMismatch):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	case errors.Is(err, etg.ErrPrecondition):
		return fmt.Errorf("%w: %v", ErrPrecondition, err)
	case errors.Is(err, etg.ErrTaskNotFound),
		errors.Is(err, graph.ErrNodeNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}
