// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package etg appends lifecycle events to the Execution Trace Graph.
//
// Each task is an event-sourced sequence: task_start opens it, step/
// tool_start/tool_end/checkpoint/error append under it, task_end closes
// it. Preconditions are enforced, never silently recovered; a misordered
// event stream is a caller bug the caller must see.
package etg

import "errors"

// Sentinel errors for event logging.
var (
	// ErrPrecondition is returned when an event kind requires an entity
	// that does not exist yet (a step before tool_start, a task before
	// any step).
	ErrPrecondition = errors.New("event precondition not met")

	// ErrTaskNotFound is returned when an explicitly supplied task_id
	// does not name a task node in the store.
	ErrTaskNotFound = errors.New("task not found")

	// ErrValidation is returned when a payload is missing a required
	// field, has the wrong shape for the event kind, or reuses a step
	// order already taken within the task.
	ErrValidation = errors.New("invalid event payload")
)
