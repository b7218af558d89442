// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package etg

import "fmt"

// EventKind identifies one lifecycle event type.
type EventKind int

const (
	// EventUnknown indicates an unrecognized event kind.
	EventUnknown EventKind = iota

	// EventTaskStart opens a task.
	EventTaskStart

	// EventStep appends an ordered step to a running task.
	EventStep

	// EventToolStart records the start of a tool invocation under the
	// latest step.
	EventToolStart

	// EventToolEnd records a tool invocation's result.
	EventToolEnd

	// EventCheckpoint records a save-point artifact for the latest step.
	EventCheckpoint

	// EventError records a failure under the latest step.
	EventError

	// EventTaskEnd closes a task, updating its status only.
	EventTaskEnd
)

// eventKindNames maps EventKind values to their wire representations.
var eventKindNames = map[EventKind]string{
	EventUnknown:    "unknown",
	EventTaskStart:  "task_start",
	EventStep:       "step",
	EventToolStart:  "tool_start",
	EventToolEnd:    "tool_end",
	EventCheckpoint: "checkpoint",
	EventError:      "error",
	EventTaskEnd:    "task_end",
}

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseEventKind converts a wire name back to an EventKind. Returns
// EventUnknown for unrecognized names.
func ParseEventKind(name string) EventKind {
	for kind, n := range eventKindNames {
		if n == name {
			return kind
		}
	}
	return EventUnknown
}

// Payload is the closed union of per-kind event payloads, validated at
// the boundary before any mutation.
type Payload interface {
	// Kind returns the event kind this payload belongs to.
	Kind() EventKind

	// Validate checks required fields. Failures wrap ErrValidation.
	Validate() error
}

// TaskStartPayload opens a task.
type TaskStartPayload struct {
	// TaskID optionally supplies the task's ID; a UUID is generated
	// when empty.
	TaskID string `json:"task_id,omitempty"`

	// UserPrompt is the prompt that started the task.
	UserPrompt string `json:"user_prompt,omitempty"`

	// Tags are caller-supplied labels.
	Tags []string `json:"tags,omitempty"`

	// CreatedAt is the creation timestamp (RFC 3339); defaults to now.
	CreatedAt string `json:"created_at,omitempty"`
}

// Kind returns EventTaskStart.
func (p *TaskStartPayload) Kind() EventKind { return EventTaskStart }

// Validate always succeeds; every task_start field is optional.
func (p *TaskStartPayload) Validate() error { return nil }

// StepPayload appends an ordered step.
type StepPayload struct {
	// Order is the step's position within the task. Required, positive,
	// and unique per task.
	Order int `json:"order"`

	// Role records who produced the step.
	Role string `json:"role,omitempty"`

	// LLMSummary is the model's summary of the step.
	LLMSummary string `json:"llm_summary,omitempty"`

	// FilesTouched lists files the step declares it touched.
	FilesTouched []string `json:"files_touched,omitempty"`
}

// Kind returns EventStep.
func (p *StepPayload) Kind() EventKind { return EventStep }

// Validate requires a positive order.
func (p *StepPayload) Validate() error {
	if p.Order <= 0 {
		return fmt.Errorf("%w: step order must be positive, got %d", ErrValidation, p.Order)
	}
	return nil
}

// ToolStartPayload records the start of a tool invocation.
type ToolStartPayload struct {
	// ToolName is the invoked tool's name. Required.
	ToolName string `json:"tool_name"`

	// Params is the invocation's parameter object, passed through opaquely.
	Params map[string]any `json:"params,omitempty"`

	// StartedAt is the start timestamp (RFC 3339); defaults to now.
	StartedAt string `json:"started_at,omitempty"`

	// FilesTouched lists files the invocation declares it touched.
	FilesTouched []string `json:"files_touched,omitempty"`
}

// Kind returns EventToolStart.
func (p *ToolStartPayload) Kind() EventKind { return EventToolStart }

// Validate requires a tool name.
func (p *ToolStartPayload) Validate() error {
	if p.ToolName == "" {
		return fmt.Errorf("%w: tool_start requires tool_name", ErrValidation)
	}
	return nil
}

// ToolEndPayload records a tool invocation's result.
type ToolEndPayload struct {
	// ToolName matches the invocation to close. Required.
	ToolName string `json:"tool_name"`

	// Success reports whether the tool succeeded.
	Success *bool `json:"success,omitempty"`

	// DurationMillis is the wall-clock duration.
	DurationMillis *int64 `json:"duration_ms,omitempty"`

	// Stdout is the captured standard output.
	Stdout string `json:"stdout,omitempty"`

	// Stderr is the captured standard error.
	Stderr string `json:"stderr,omitempty"`

	// FilesTouched lists files the invocation declares it touched.
	FilesTouched []string `json:"files_touched,omitempty"`
}

// Kind returns EventToolEnd.
func (p *ToolEndPayload) Kind() EventKind { return EventToolEnd }

// Validate requires a tool name.
func (p *ToolEndPayload) Validate() error {
	if p.ToolName == "" {
		return fmt.Errorf("%w: tool_end requires tool_name", ErrValidation)
	}
	return nil
}

// CheckpointPayload records a save-point artifact.
type CheckpointPayload struct {
	// CheckpointFile is the path of the recorded artifact.
	CheckpointFile string `json:"checkpoint_file,omitempty"`

	// CreatedAt is the checkpoint timestamp (RFC 3339); defaults to now.
	CreatedAt string `json:"created_at,omitempty"`
}

// Kind returns EventCheckpoint.
func (p *CheckpointPayload) Kind() EventKind { return EventCheckpoint }

// Validate always succeeds; every checkpoint field is optional.
func (p *CheckpointPayload) Validate() error { return nil }

// ErrorPayload records a failure.
type ErrorPayload struct {
	// ErrorType classifies the failure. Required.
	ErrorType string `json:"error_type"`

	// Message is the human-readable failure message.
	Message string `json:"message,omitempty"`

	// RawLogExcerpt is a short excerpt of the raw log around the failure.
	RawLogExcerpt string `json:"raw_log_excerpt,omitempty"`
}

// Kind returns EventError.
func (p *ErrorPayload) Kind() EventKind { return EventError }

// Validate requires an error type.
func (p *ErrorPayload) Validate() error {
	if p.ErrorType == "" {
		return fmt.Errorf("%w: error event requires error_type", ErrValidation)
	}
	return nil
}

// TaskEndPayload closes a task.
type TaskEndPayload struct {
	// Status is the task's final status. Required.
	Status string `json:"status"`
}

// Kind returns EventTaskEnd.
func (p *TaskEndPayload) Kind() EventKind { return EventTaskEnd }

// Validate requires a status.
func (p *TaskEndPayload) Validate() error {
	if p.Status == "" {
		return fmt.Errorf("%w: task_end requires status", ErrValidation)
	}
	return nil
}

// EventResult carries the resolved IDs back to a stateless caller so it
// can thread them through a multi-event sequence without re-deriving
// "latest".
type EventResult struct {
	// TaskID is the resolved task node ID. Always set.
	TaskID string `json:"task_id"`

	// StepID is the resolved step node ID, when the event touched one.
	StepID string `json:"step_id,omitempty"`

	// ToolID is the resolved tool invocation node ID, when the event
	// touched one.
	ToolID string `json:"tool_id,omitempty"`
}
