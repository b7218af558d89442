// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

// NodeKind identifies which side of the dual graph a node belongs to and
// which Props struct it carries.
type NodeKind int

const (
	// KindUnknown indicates an unrecognized node kind.
	KindUnknown NodeKind = iota

	// Code Graph kinds.

	// KindProject is the root node for a project, keyed by a hash of its
	// root path.
	KindProject

	// KindDirectory is a directory node, keyed by normalized absolute path.
	KindDirectory

	// KindFile is a file node, keyed by normalized absolute path.
	KindFile

	// KindSymbol is a declared symbol, keyed by "<file_path>::<name>".
	KindSymbol

	// KindConcept is a semantic tag shared across symbols, keyed by label.
	KindConcept

	// Execution Trace Graph kinds.

	// KindTask is a top-level agent task.
	KindTask

	// KindStep is an ordered step within a task.
	KindStep

	// KindToolInvocation is a single tool execution under a step.
	KindToolInvocation

	// KindCheckpoint is a recorded save-point artifact for a step.
	KindCheckpoint

	// KindError is a recorded failure attached to a step.
	KindError

	// NumNodeKinds is the total number of node kinds (for array sizing).
	NumNodeKinds
)

// nodeKindNames maps NodeKind values to their wire/string representations.
var nodeKindNames = map[NodeKind]string{
	KindUnknown:        "unknown",
	KindProject:        "project",
	KindDirectory:      "directory",
	KindFile:           "file",
	KindSymbol:         "symbol",
	KindConcept:        "concept",
	KindTask:           "task",
	KindStep:           "step",
	KindToolInvocation: "tool_invocation",
	KindCheckpoint:     "checkpoint_node",
	KindError:          "error",
}

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseNodeKind converts a string representation back to a NodeKind.
// Returns KindUnknown for unrecognized names.
func ParseNodeKind(name string) NodeKind {
	for kind, n := range nodeKindNames {
		if n == name {
			return kind
		}
	}
	return KindUnknown
}

// EdgeType defines the typed relationship between two nodes.
type EdgeType int

const (
	// EdgeTypeUnknown indicates an unrecognized edge type.
	EdgeTypeUnknown EdgeType = iota

	// EdgeProjectContainsDir links a project to each of its directories.
	EdgeProjectContainsDir

	// EdgeDirContainsDir links a directory to a direct child directory.
	EdgeDirContainsDir

	// EdgeDirContainsFile links a directory to a file it directly contains.
	EdgeDirContainsFile

	// EdgeFileContainsSymbol links a file to a symbol declared in it.
	EdgeFileContainsSymbol

	// EdgeSymbolImplementsConcept links a symbol to a concept it implements.
	EdgeSymbolImplementsConcept

	// EdgeTaskHasStep links a task to one of its steps. Ordering is carried
	// by the step's Order field, never by edge position.
	EdgeTaskHasStep

	// EdgeStepInvokesTool links a step to a tool invocation it started.
	EdgeStepInvokesTool

	// EdgeToolTouchesFile links a tool invocation to a file it touched.
	EdgeToolTouchesFile

	// EdgeStepHasCheckpoint links a step to a checkpoint taken during it.
	EdgeStepHasCheckpoint

	// EdgeStepHasError links a step to an error recorded during it.
	EdgeStepHasError

	// NumEdgeTypes is the total number of edge types (for array sizing).
	NumEdgeTypes
)

// edgeTypeNames maps EdgeType values to their wire/string representations.
var edgeTypeNames = map[EdgeType]string{
	EdgeTypeUnknown:             "unknown",
	EdgeProjectContainsDir:      "project_contains_dir",
	EdgeDirContainsDir:          "dir_contains_dir",
	EdgeDirContainsFile:         "dir_contains_file",
	EdgeFileContainsSymbol:      "file_contains_symbol",
	EdgeSymbolImplementsConcept: "symbol_implements_concept",
	EdgeTaskHasStep:             "task_has_step",
	EdgeStepInvokesTool:         "step_invokes_tool",
	EdgeToolTouchesFile:         "tool_touches_file",
	EdgeStepHasCheckpoint:       "step_has_checkpoint",
	EdgeStepHasError:            "step_has_error",
}

// String returns the string representation of the EdgeType.
func (t EdgeType) String() string {
	if name, ok := edgeTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseEdgeType converts a string representation back to an EdgeType.
// Returns EdgeTypeUnknown for unrecognized names.
func ParseEdgeType(name string) EdgeType {
	for t, n := range edgeTypeNames {
		if n == name {
			return t
		}
	}
	return EdgeTypeUnknown
}

// Edge is a directed, typed relationship between two nodes.
//
// Edge is a value type and serves directly as the composite set key:
// two edges are the same edge iff (Type, From, To) are equal.
type Edge struct {
	// Type is the relationship type.
	Type EdgeType `json:"type"`

	// From is the ID of the source node.
	From string `json:"from"`

	// To is the ID of the target node.
	To string `json:"to"`
}

// Node is a single vertex in the dual graph.
type Node struct {
	// ID is the unique identifier within a project graph. Code Graph IDs
	// are deterministic functions of identifying attributes; ETG IDs are
	// generated once at creation.
	ID string

	// Kind selects which Props struct this node carries. Never changes
	// after creation.
	Kind NodeKind

	// Seq is the node's insertion sequence within its store. Consumers
	// that need reproducible ordering (retrieval tie-breaks, snapshots)
	// sort by Seq.
	Seq uint64

	// Props holds the kind-specific attributes. Always non-nil and always
	// the concrete struct matching Kind.
	Props Props
}
