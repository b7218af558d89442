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

import "fmt"

// Props is the closed union of per-kind node attributes.
//
// Every implementation is a fixed struct with required/optional fields,
// validated at the engine boundary, instead of an untyped property map.
//
// Merge folds an incoming value of the same concrete type into the
// receiver. Zero-valued incoming fields are treated as omitted: a merge
// never drops previously stored data that the new call does not carry.
type Props interface {
	// Kind returns the NodeKind this props struct belongs to.
	Kind() NodeKind

	// Merge folds incoming into the receiver. Returns ErrKindMismatch if
	// incoming is a different concrete type.
	Merge(incoming Props) error
}

// mergeString overwrites dst when src is non-empty.
func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// mergeInt64 overwrites dst when src is non-zero.
func mergeInt64(dst *int64, src int64) {
	if src != 0 {
		*dst = src
	}
}

// mergeBoolPtr overwrites dst when src is set. Copies the value so the
// stored pointer never aliases caller memory.
func mergeBoolPtr(dst **bool, src *bool) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// mergeInt64Ptr overwrites dst when src is set.
func mergeInt64Ptr(dst **int64, src *int64) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// mergeStringSet appends the members of src not already present in dst,
// preserving first-seen order.
func mergeStringSet(dst *[]string, src []string) {
	if len(src) == 0 {
		return
	}
	seen := make(map[string]bool, len(*dst))
	for _, s := range *dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			*dst = append(*dst, s)
		}
	}
}

// mismatch builds the error for a Merge called with the wrong concrete type.
func mismatch(want NodeKind, got Props) error {
	return fmt.Errorf("%w: want %s props, got %s", ErrKindMismatch, want, got.Kind())
}

// ProjectProps are the attributes of a project node.
type ProjectProps struct {
	// RootPath is the absolute project root path.
	RootPath string `json:"root_path"`
}

// Kind returns KindProject.
func (p *ProjectProps) Kind() NodeKind { return KindProject }

// Merge folds incoming project props into the receiver.
func (p *ProjectProps) Merge(incoming Props) error {
	in, ok := incoming.(*ProjectProps)
	if !ok {
		return mismatch(KindProject, incoming)
	}
	mergeString(&p.RootPath, in.RootPath)
	return nil
}

// DirectoryProps are the attributes of a directory node.
type DirectoryProps struct {
	// Path is the normalized absolute directory path.
	Path string `json:"path"`
}

// Kind returns KindDirectory.
func (p *DirectoryProps) Kind() NodeKind { return KindDirectory }

// Merge folds incoming directory props into the receiver.
func (p *DirectoryProps) Merge(incoming Props) error {
	in, ok := incoming.(*DirectoryProps)
	if !ok {
		return mismatch(KindDirectory, incoming)
	}
	mergeString(&p.Path, in.Path)
	return nil
}

// FileProps are the attributes of a file node.
type FileProps struct {
	// Path is the normalized absolute file path.
	Path string `json:"path"`

	// Language is the detected or declared source language.
	Language string `json:"language,omitempty"`

	// SizeBytes is the file size at indexing time.
	SizeBytes int64 `json:"size_bytes,omitempty"`

	// Hash is the content fingerprint used for incremental invalidation.
	Hash string `json:"hash,omitempty"`

	// LastModified is the caller-supplied modification timestamp (RFC 3339).
	LastModified string `json:"last_modified,omitempty"`
}

// Kind returns KindFile.
func (p *FileProps) Kind() NodeKind { return KindFile }

// Merge folds incoming file props into the receiver.
func (p *FileProps) Merge(incoming Props) error {
	in, ok := incoming.(*FileProps)
	if !ok {
		return mismatch(KindFile, incoming)
	}
	mergeString(&p.Path, in.Path)
	mergeString(&p.Language, in.Language)
	mergeInt64(&p.SizeBytes, in.SizeBytes)
	mergeString(&p.Hash, in.Hash)
	mergeString(&p.LastModified, in.LastModified)
	return nil
}

// SymbolProps are the attributes of a symbol node.
type SymbolProps struct {
	// Name is the symbol's declared name.
	Name string `json:"name"`

	// SymbolKind classifies the symbol (function, class, ...).
	SymbolKind string `json:"kind,omitempty"`

	// Signature is the declaration signature, when known.
	Signature string `json:"signature,omitempty"`

	// SpanStartLine is the 1-based first line of the declaration.
	SpanStartLine int `json:"span_start_line,omitempty"`

	// SpanEndLine is the 1-based last line of the declaration.
	SpanEndLine int `json:"span_end_line,omitempty"`

	// Docstring is the attached documentation text, when known.
	Docstring string `json:"docstring,omitempty"`
}

// Kind returns KindSymbol.
func (p *SymbolProps) Kind() NodeKind { return KindSymbol }

// Merge folds incoming symbol props into the receiver.
func (p *SymbolProps) Merge(incoming Props) error {
	in, ok := incoming.(*SymbolProps)
	if !ok {
		return mismatch(KindSymbol, incoming)
	}
	mergeString(&p.Name, in.Name)
	mergeString(&p.SymbolKind, in.SymbolKind)
	mergeString(&p.Signature, in.Signature)
	mergeInt(&p.SpanStartLine, in.SpanStartLine)
	mergeInt(&p.SpanEndLine, in.SpanEndLine)
	mergeString(&p.Docstring, in.Docstring)
	return nil
}

// ConceptProps are the attributes of a concept node. Concepts are keyed by
// label and shared across symbols and files.
type ConceptProps struct {
	// Label is the concept's identifying label.
	Label string `json:"label"`

	// Description explains what the concept captures.
	Description string `json:"description,omitempty"`

	// Source records where the concept was extracted from.
	Source string `json:"source,omitempty"`
}

// Kind returns KindConcept.
func (p *ConceptProps) Kind() NodeKind { return KindConcept }

// Merge folds incoming concept props into the receiver.
func (p *ConceptProps) Merge(incoming Props) error {
	in, ok := incoming.(*ConceptProps)
	if !ok {
		return mismatch(KindConcept, incoming)
	}
	mergeString(&p.Label, in.Label)
	mergeString(&p.Description, in.Description)
	mergeString(&p.Source, in.Source)
	return nil
}

// TaskProps are the attributes of a task node.
type TaskProps struct {
	// CreatedAt is the task creation timestamp (RFC 3339).
	CreatedAt string `json:"created_at"`

	// UserPrompt is the prompt that started the task.
	UserPrompt string `json:"user_prompt,omitempty"`

	// ProjectID is the owning project node's ID.
	ProjectID string `json:"project_id,omitempty"`

	// Status is the lifecycle status (running, completed, failed, ...).
	Status string `json:"status"`

	// Tags are caller-supplied labels.
	Tags []string `json:"tags,omitempty"`

	// FilesTouched accumulates every file any tool under this task touched.
	FilesTouched []string `json:"files_touched,omitempty"`
}

// Kind returns KindTask.
func (p *TaskProps) Kind() NodeKind { return KindTask }

// Merge folds incoming task props into the receiver.
func (p *TaskProps) Merge(incoming Props) error {
	in, ok := incoming.(*TaskProps)
	if !ok {
		return mismatch(KindTask, incoming)
	}
	mergeString(&p.CreatedAt, in.CreatedAt)
	mergeString(&p.UserPrompt, in.UserPrompt)
	mergeString(&p.ProjectID, in.ProjectID)
	mergeString(&p.Status, in.Status)
	mergeStringSet(&p.Tags, in.Tags)
	mergeStringSet(&p.FilesTouched, in.FilesTouched)
	return nil
}

// StepProps are the attributes of a step node.
type StepProps struct {
	// Order is the caller-supplied position within the task. Unique per
	// task; the step with the greatest Order is the task's "latest" step.
	Order int `json:"order"`

	// Role records who produced the step (assistant, user, system).
	Role string `json:"role,omitempty"`

	// LLMSummary is the model's summary of what the step did.
	LLMSummary string `json:"llm_summary,omitempty"`

	// FilesTouched accumulates files touched by tools under this step.
	FilesTouched []string `json:"files_touched,omitempty"`
}

// Kind returns KindStep.
func (p *StepProps) Kind() NodeKind { return KindStep }

// Merge folds incoming step props into the receiver.
func (p *StepProps) Merge(incoming Props) error {
	in, ok := incoming.(*StepProps)
	if !ok {
		return mismatch(KindStep, incoming)
	}
	mergeInt(&p.Order, in.Order)
	mergeString(&p.Role, in.Role)
	mergeString(&p.LLMSummary, in.LLMSummary)
	mergeStringSet(&p.FilesTouched, in.FilesTouched)
	return nil
}

// ToolProps are the attributes of a tool invocation node. Result fields
// (Success, DurationMillis, Stdout, Stderr) are merged in by tool_end.
type ToolProps struct {
	// ToolName is the invoked tool's name.
	ToolName string `json:"tool_name"`

	// Params is the invocation's parameter object, passed through opaquely.
	Params map[string]any `json:"params,omitempty"`

	// StartedAt is the invocation start timestamp (RFC 3339).
	StartedAt string `json:"started_at,omitempty"`

	// DurationMillis is the wall-clock duration. Nil until tool_end.
	DurationMillis *int64 `json:"duration_ms,omitempty"`

	// Success reports whether the tool succeeded. Nil until tool_end.
	Success *bool `json:"success,omitempty"`

	// Stdout is the captured standard output, possibly truncated upstream.
	Stdout string `json:"stdout,omitempty"`

	// Stderr is the captured standard error, possibly truncated upstream.
	Stderr string `json:"stderr,omitempty"`

	// FilesTouched lists files this invocation declared it touched.
	FilesTouched []string `json:"files_touched,omitempty"`
}

// Kind returns KindToolInvocation.
func (p *ToolProps) Kind() NodeKind { return KindToolInvocation }

// Merge folds incoming tool props into the receiver.
func (p *ToolProps) Merge(incoming Props) error {
	in, ok := incoming.(*ToolProps)
	if !ok {
		return mismatch(KindToolInvocation, incoming)
	}
	mergeString(&p.ToolName, in.ToolName)
	if len(in.Params) > 0 {
		p.Params = in.Params
	}
	mergeString(&p.StartedAt, in.StartedAt)
	mergeInt64Ptr(&p.DurationMillis, in.DurationMillis)
	mergeBoolPtr(&p.Success, in.Success)
	mergeString(&p.Stdout, in.Stdout)
	mergeString(&p.Stderr, in.Stderr)
	mergeStringSet(&p.FilesTouched, in.FilesTouched)
	return nil
}

// CheckpointProps are the attributes of a checkpoint node.
type CheckpointProps struct {
	// CheckpointFile is the path of the recorded save-point artifact.
	CheckpointFile string `json:"checkpoint_file,omitempty"`

	// CreatedAt is the checkpoint timestamp (RFC 3339).
	CreatedAt string `json:"created_at"`
}

// Kind returns KindCheckpoint.
func (p *CheckpointProps) Kind() NodeKind { return KindCheckpoint }

// Merge folds incoming checkpoint props into the receiver.
func (p *CheckpointProps) Merge(incoming Props) error {
	in, ok := incoming.(*CheckpointProps)
	if !ok {
		return mismatch(KindCheckpoint, incoming)
	}
	mergeString(&p.CheckpointFile, in.CheckpointFile)
	mergeString(&p.CreatedAt, in.CreatedAt)
	return nil
}

// ErrorProps are the attributes of an error node.
type ErrorProps struct {
	// ErrorType classifies the failure (test_failure, runtime_error, ...).
	ErrorType string `json:"error_type"`

	// Message is the human-readable failure message.
	Message string `json:"message,omitempty"`

	// RawLogExcerpt is a short excerpt of the raw log around the failure.
	RawLogExcerpt string `json:"raw_log_excerpt,omitempty"`
}

// Kind returns KindError.
func (p *ErrorProps) Kind() NodeKind { return KindError }

// Merge folds incoming error props into the receiver.
func (p *ErrorProps) Merge(incoming Props) error {
	in, ok := incoming.(*ErrorProps)
	if !ok {
		return mismatch(KindError, incoming)
	}
	mergeString(&p.ErrorType, in.ErrorType)
	mergeString(&p.Message, in.Message)
	mergeString(&p.RawLogExcerpt, in.RawLogExcerpt)
	return nil
}
