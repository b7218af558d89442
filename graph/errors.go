// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the typed node/edge store shared by the Code Graph
// and the Execution Trace Graph.
//
// Nodes are a closed tagged union: each NodeKind has a fixed Props struct
// (ProjectProps, FileProps, StepProps, ...) instead of an open property map.
// Edges form a set keyed by (type, from, to); re-adding an existing edge is
// a no-op.
//
// # Upsert Semantics
//
// UpsertNode merges props field-wise into an existing node with the same ID.
// A zero-valued incoming field is treated as omitted and never clobbers
// stored data, so a partial update can never drop previously stored fields.
// Fields that must distinguish "unset" from a valid zero value (a failed
// tool's Success flag, a zero duration) are pointers.
//
// # Thread Safety
//
// Store is NOT safe for concurrent use. Callers (see the engine package)
// serialize all mutating operations per project and may share read access
// only between committed operations.
package graph

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNodeNotFound is returned when an edge endpoint or a looked-up
	// node ID does not exist in the store.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidNode is returned when upserting with an empty ID or nil props.
	ErrInvalidNode = errors.New("invalid node")

	// ErrKindMismatch is returned when an upsert targets an existing node of
	// a different kind, or when props do not match the declared kind. Node
	// IDs are deterministic per kind, so a mismatch indicates a caller bug.
	ErrKindMismatch = errors.New("node kind mismatch")

	// ErrUnknownKind is returned when restoring a snapshot that names a node
	// kind or edge type this build does not know.
	ErrUnknownKind = errors.New("unknown kind")
)
