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

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/dualgraph/graph"
)

// Task status values.
const (
	// StatusRunning is the status a task carries from task_start until
	// task_end.
	StatusRunning = "running"
)

// Logger appends lifecycle events to a project's Execution Trace Graph.
// It is one of the two writers into the store (the other is
// indexer.Indexer); the engine serializes access between them.
type Logger struct {
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option is a functional option for configuring Logger.
type Option func(*Logger)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides ETG node ID generation. Used by tests.
func WithIDGenerator(newID func() string) Option {
	return func(l *Logger) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// NewLogger creates a Logger. ETG node IDs are UUIDs by default.
func NewLogger(opts ...Option) *Logger {
	l := &Logger{
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogEvent appends one lifecycle event to the task identified by taskID.
//
// Description:
//
//	Implements the per-task state machine. task_start creates the task
//	(generating a UUID unless the payload supplies one). Every other
//	kind resolves the task first: an empty taskID fails the precondition,
//	an unknown one is ErrTaskNotFound. Events that attach to a step
//	resolve the "latest" step — the one with the numerically greatest
//	order — and fail the precondition when the task has no steps yet.
//
// Inputs:
//
//	ctx - Context for logging only; the operation itself is synchronous.
//	store - The project's graph. Caller must hold the write side.
//	projectID - The owning project node ID, recorded on new tasks.
//	taskID - The established task ID; empty only for task_start.
//	payload - The typed payload; its Kind() selects the transition.
//
// Outputs:
//
//	*EventResult - Resolved task/step/tool IDs. Nil only on error.
//	error - ErrValidation, ErrPrecondition, ErrTaskNotFound, or a
//	        store-level failure.
func (l *Logger) LogEvent(ctx context.Context, store *graph.Store, projectID, taskID string, payload Payload) (*EventResult, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrValidation)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	var (
		result *EventResult
		err    error
	)
	switch p := payload.(type) {
	case *TaskStartPayload:
		result, err = l.taskStart(store, projectID, p)
	case *StepPayload:
		result, err = l.step(store, taskID, p)
	case *ToolStartPayload:
		result, err = l.toolStart(store, taskID, p)
	case *ToolEndPayload:
		result, err = l.toolEnd(store, taskID, p)
	case *CheckpointPayload:
		result, err = l.checkpoint(store, taskID, p)
	case *ErrorPayload:
		result, err = l.errorEvent(store, taskID, p)
	case *TaskEndPayload:
		result, err = l.taskEnd(store, taskID, p)
	default:
		return nil, fmt.Errorf("%w: unsupported payload %T", ErrValidation, payload)
	}
	if err != nil {
		return nil, err
	}

	l.logger.DebugContext(ctx, "event logged",
		slog.String("kind", payload.Kind().String()),
		slog.String("task_id", result.TaskID),
		slog.String("step_id", result.StepID),
		slog.String("tool_id", result.ToolID))
	return result, nil
}

// taskStart creates the task node. A caller-supplied ID that already
// names a node is rejected rather than silently merged.
func (l *Logger) taskStart(store *graph.Store, projectID string, p *TaskStartPayload) (*EventResult, error) {
	taskID := p.TaskID
	if taskID == "" {
		taskID = l.newID()
	} else if _, exists := store.GetNode(taskID); exists {
		return nil, fmt.Errorf("%w: task %s already exists", ErrValidation, taskID)
	}

	createdAt := p.CreatedAt
	if createdAt == "" {
		createdAt = l.now().UTC().Format(time.RFC3339)
	}
	if _, err := store.UpsertNode(graph.KindTask, taskID, &graph.TaskProps{
		CreatedAt:  createdAt,
		UserPrompt: p.UserPrompt,
		ProjectID:  projectID,
		Status:     StatusRunning,
		Tags:       append([]string(nil), p.Tags...),
	}); err != nil {
		return nil, err
	}
	return &EventResult{TaskID: taskID}, nil
}

// step appends an ordered step, rejecting a duplicate order instead of
// letting "latest step" resolution silently pick one later.
func (l *Logger) step(store *graph.Store, taskID string, p *StepPayload) (*EventResult, error) {
	task, err := l.resolveTask(store, taskID)
	if err != nil {
		return nil, err
	}

	for _, stepID := range store.OutNeighbors(graph.EdgeTaskHasStep, task.ID) {
		if sn, ok := store.GetNode(stepID); ok {
			if sp, isStep := sn.Props.(*graph.StepProps); isStep && sp.Order == p.Order {
				return nil, fmt.Errorf("%w: task %s already has a step with order %d",
					ErrValidation, task.ID, p.Order)
			}
		}
	}

	stepID := l.newID()
	if _, err := store.UpsertNode(graph.KindStep, stepID, &graph.StepProps{
		Order:        p.Order,
		Role:         p.Role,
		LLMSummary:   p.LLMSummary,
		FilesTouched: append([]string(nil), p.FilesTouched...),
	}); err != nil {
		return nil, err
	}
	if err := store.Connect(graph.EdgeTaskHasStep, task.ID, stepID); err != nil {
		return nil, err
	}
	return &EventResult{TaskID: task.ID, StepID: stepID}, nil
}

// toolStart creates a tool invocation under the latest step.
func (l *Logger) toolStart(store *graph.Store, taskID string, p *ToolStartPayload) (*EventResult, error) {
	task, step, err := l.resolveLatestStep(store, taskID)
	if err != nil {
		return nil, err
	}

	startedAt := p.StartedAt
	if startedAt == "" {
		startedAt = l.now().UTC().Format(time.RFC3339)
	}
	toolID := l.newID()
	if _, err := store.UpsertNode(graph.KindToolInvocation, toolID, &graph.ToolProps{
		ToolName:     p.ToolName,
		Params:       p.Params,
		StartedAt:    startedAt,
		FilesTouched: append([]string(nil), p.FilesTouched...),
	}); err != nil {
		return nil, err
	}
	if err := store.Connect(graph.EdgeStepInvokesTool, step.ID, toolID); err != nil {
		return nil, err
	}
	if err := l.touchFiles(store, task, step, toolID, p.FilesTouched); err != nil {
		return nil, err
	}
	return &EventResult{TaskID: task.ID, StepID: step.ID, ToolID: toolID}, nil
}

// toolEnd merges result fields into the matched invocation, or creates a
// fresh one when no prior tool_start matches. The most-recently-connected
// invocation with the same tool name under the latest step wins.
func (l *Logger) toolEnd(store *graph.Store, taskID string, p *ToolEndPayload) (*EventResult, error) {
	task, step, err := l.resolveLatestStep(store, taskID)
	if err != nil {
		return nil, err
	}

	toolID := ""
	invocations := store.OutNeighbors(graph.EdgeStepInvokesTool, step.ID)
	for i := len(invocations) - 1; i >= 0; i-- {
		n, ok := store.GetNode(invocations[i])
		if !ok {
			continue
		}
		if tp, isTool := n.Props.(*graph.ToolProps); isTool && tp.ToolName == p.ToolName {
			toolID = n.ID
			break
		}
	}
	if toolID == "" {
		toolID = l.newID()
	}

	if _, err := store.UpsertNode(graph.KindToolInvocation, toolID, &graph.ToolProps{
		ToolName:       p.ToolName,
		Success:        p.Success,
		DurationMillis: p.DurationMillis,
		Stdout:         p.Stdout,
		Stderr:         p.Stderr,
		FilesTouched:   append([]string(nil), p.FilesTouched...),
	}); err != nil {
		return nil, err
	}
	if err := store.Connect(graph.EdgeStepInvokesTool, step.ID, toolID); err != nil {
		return nil, err
	}
	if err := l.touchFiles(store, task, step, toolID, p.FilesTouched); err != nil {
		return nil, err
	}
	return &EventResult{TaskID: task.ID, StepID: step.ID, ToolID: toolID}, nil
}

// checkpoint records a save-point artifact under the latest step.
func (l *Logger) checkpoint(store *graph.Store, taskID string, p *CheckpointPayload) (*EventResult, error) {
	task, step, err := l.resolveLatestStep(store, taskID)
	if err != nil {
		return nil, err
	}

	createdAt := p.CreatedAt
	if createdAt == "" {
		createdAt = l.now().UTC().Format(time.RFC3339)
	}
	checkpointID := l.newID()
	if _, err := store.UpsertNode(graph.KindCheckpoint, checkpointID, &graph.CheckpointProps{
		CheckpointFile: p.CheckpointFile,
		CreatedAt:      createdAt,
	}); err != nil {
		return nil, err
	}
	if err := store.Connect(graph.EdgeStepHasCheckpoint, step.ID, checkpointID); err != nil {
		return nil, err
	}
	return &EventResult{TaskID: task.ID, StepID: step.ID}, nil
}

// errorEvent records a failure under the latest step.
func (l *Logger) errorEvent(store *graph.Store, taskID string, p *ErrorPayload) (*EventResult, error) {
	task, step, err := l.resolveLatestStep(store, taskID)
	if err != nil {
		return nil, err
	}

	errorID := l.newID()
	if _, err := store.UpsertNode(graph.KindError, errorID, &graph.ErrorProps{
		ErrorType:     p.ErrorType,
		Message:       p.Message,
		RawLogExcerpt: p.RawLogExcerpt,
	}); err != nil {
		return nil, err
	}
	if err := store.Connect(graph.EdgeStepHasError, step.ID, errorID); err != nil {
		return nil, err
	}
	return &EventResult{TaskID: task.ID, StepID: step.ID}, nil
}

// taskEnd updates the task's status and nothing else.
func (l *Logger) taskEnd(store *graph.Store, taskID string, p *TaskEndPayload) (*EventResult, error) {
	task, err := l.resolveTask(store, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := store.UpsertNode(graph.KindTask, task.ID, &graph.TaskProps{Status: p.Status}); err != nil {
		return nil, err
	}
	return &EventResult{TaskID: task.ID}, nil
}

// resolveTask maps taskID to its task node. An empty ID is a
// precondition failure (no task_start established one); an unknown ID is
// ErrTaskNotFound.
func (l *Logger) resolveTask(store *graph.Store, taskID string) (*graph.Node, error) {
	if taskID == "" {
		return nil, fmt.Errorf("%w: no task established; task_start must come first", ErrPrecondition)
	}
	n, ok := store.GetNode(taskID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if n.Kind != graph.KindTask {
		return nil, fmt.Errorf("%w: %s is a %s, not a task", ErrTaskNotFound, taskID, n.Kind)
	}
	return n, nil
}

// resolveLatestStep returns the task and its step with the greatest
// order. A task with no steps yet fails the precondition.
func (l *Logger) resolveLatestStep(store *graph.Store, taskID string) (*graph.Node, *graph.Node, error) {
	task, err := l.resolveTask(store, taskID)
	if err != nil {
		return nil, nil, err
	}

	var (
		latest    *graph.Node
		bestOrder int
	)
	for _, stepID := range store.OutNeighbors(graph.EdgeTaskHasStep, task.ID) {
		n, ok := store.GetNode(stepID)
		if !ok {
			continue
		}
		sp, isStep := n.Props.(*graph.StepProps)
		if !isStep {
			continue
		}
		if latest == nil || sp.Order > bestOrder {
			latest = n
			bestOrder = sp.Order
		}
	}
	if latest == nil {
		return nil, nil, fmt.Errorf("%w: task %s has no steps yet", ErrPrecondition, task.ID)
	}
	return task, latest, nil
}

// touchFiles asserts tool_touches_file for each declared file and merges
// the paths upward into the step's and task's files_touched. Files that
// were never indexed get a minimal file node so the edge can exist.
func (l *Logger) touchFiles(store *graph.Store, task, step *graph.Node, toolID string, filePaths []string) error {
	if len(filePaths) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(filePaths))
	for _, p := range filePaths {
		fileID := graph.NormalizePath(p)
		if fileID == "" {
			continue
		}
		normalized = append(normalized, fileID)
		if _, ok := store.GetNode(fileID); !ok {
			if _, err := store.UpsertNode(graph.KindFile, fileID, &graph.FileProps{Path: fileID}); err != nil {
				return err
			}
		}
		if err := store.Connect(graph.EdgeToolTouchesFile, toolID, fileID); err != nil {
			return err
		}
	}

	if _, err := store.UpsertNode(graph.KindStep, step.ID, &graph.StepProps{FilesTouched: normalized}); err != nil {
		return err
	}
	if _, err := store.UpsertNode(graph.KindTask, task.ID, &graph.TaskProps{FilesTouched: normalized}); err != nil {
		return err
	}
	return nil
}
