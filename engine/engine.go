// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/dualgraph/contextpack"
	"github.com/AleutianAI/dualgraph/etg"
	"github.com/AleutianAI/dualgraph/graph"
	"github.com/AleutianAI/dualgraph/indexer"
	"github.com/AleutianAI/dualgraph/retrieval"
	"github.com/AleutianAI/dualgraph/storage"
	"github.com/AleutianAI/dualgraph/telemetry"
)

// Snapshot write retry policy. The write happens outside the project
// lock; a bounded retry covers transient filesystem hiccups before the
// failure is surfaced as ErrPersistence.
const (
	saveAttempts = 3
	saveBackoff  = 50 * time.Millisecond
)

// projectState is one project's in-memory graph plus its lock. Mutating
// operations take the write side (single-writer per project); readers
// take the read side and observe only committed state.
//
// version counts committed mutations; it is advanced under mu together
// with the snapshot it describes. saveMu serializes snapshot writes for
// the project and guards savedVersion, the version of the last durably
// written snapshot. A persist whose version is at or below savedVersion
// is stale and skipped, so two writers racing to the store can never
// roll the durable document backwards.
type projectState struct {
	mu      sync.RWMutex
	graph   *graph.Store
	version uint64

	saveMu       sync.Mutex
	savedVersion uint64
}

// Engine is the facade over the dual graph.
//
// Thread Safety: safe for concurrent use. Operations on different
// projects proceed in parallel; operations on one project serialize per
// the projectState lock.
type Engine struct {
	logger    *slog.Logger
	snapshots storage.Store
	metrics   *telemetry.Metrics
	validate  *validator.Validate

	indexer   *indexer.Indexer
	events    *etg.Logger
	ranker    *retrieval.Ranker
	assembler *contextpack.Assembler

	mu       sync.Mutex
	projects map[string]*projectState
}

// Option is a functional option for configuring Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus metrics. Nil metrics are a no-op.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine persisting snapshots to the given store.
func New(snapshots storage.Store, opts ...Option) *Engine {
	e := &Engine{
		logger:    slog.Default(),
		snapshots: snapshots,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		projects:  make(map[string]*projectState),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.indexer = indexer.New(indexer.WithLogger(e.logger))
	e.events = etg.NewLogger(etg.WithLogger(e.logger))
	e.ranker = retrieval.New(retrieval.WithLogger(e.logger))
	e.assembler = contextpack.New(contextpack.WithLogger(e.logger))
	return e
}

// IndexProject builds or refreshes a project's Code Graph.
// On a persistence failure the result is returned together with an
// ErrPersistence error: the in-memory graph is correct but durability is
// degraded.
func (e *Engine) IndexProject(ctx context.Context, req *IndexProjectRequest) (*indexer.IndexResult, error) {
	start := time.Now()
	result, err := func() (*indexer.IndexResult, error) {
		if err := e.validateRequest(req); err != nil {
			return nil, err
		}
		state, key, err := e.projectFor(ctx, req.ProjectRoot)
		if err != nil {
			return nil, err
		}

		state.mu.Lock()
		res, err := e.indexer.IndexProject(ctx, state.graph, req.ProjectRoot, req.Files)
		snapshot, version, err := e.commit(state, err)
		state.mu.Unlock()
		if err != nil {
			return nil, classify(err)
		}
		return res, e.persist(ctx, state, key, snapshot, version)
	}()
	e.metrics.Observe("index_project", start, err)
	return result, err
}

// UpdateFiles applies an incremental delta to a project's Code Graph.
func (e *Engine) UpdateFiles(ctx context.Context, req *UpdateFilesRequest) (*indexer.UpdateResult, error) {
	start := time.Now()
	result, err := func() (*indexer.UpdateResult, error) {
		if err := e.validateRequest(req); err != nil {
			return nil, err
		}
		state, key, err := e.projectFor(ctx, req.ProjectRoot)
		if err != nil {
			return nil, err
		}

		state.mu.Lock()
		res, err := e.indexer.UpdateFiles(ctx, state.graph, req.ProjectRoot, req.AddedOrModified, req.Deleted)
		snapshot, version, err := e.commit(state, err)
		state.mu.Unlock()
		if err != nil {
			return nil, classify(err)
		}
		return res, e.persist(ctx, state, key, snapshot, version)
	}()
	e.metrics.Observe("update_files", start, err)
	return result, err
}

// LogEvent appends one lifecycle event to a project's ETG.
func (e *Engine) LogEvent(ctx context.Context, req *LogEventRequest) (*etg.EventResult, error) {
	start := time.Now()
	result, err := func() (*etg.EventResult, error) {
		if err := e.validateRequest(req); err != nil {
			return nil, err
		}
		payload, err := decodeEventPayload(req.Kind, req.Payload)
		if err != nil {
			return nil, err
		}
		state, key, err := e.projectFor(ctx, req.ProjectRoot)
		if err != nil {
			return nil, err
		}

		state.mu.Lock()
		res, err := e.events.LogEvent(ctx, state.graph, key, req.TaskID, payload)
		snapshot, version, err := e.commit(state, err)
		state.mu.Unlock()
		if err != nil {
			return nil, classify(err)
		}
		return res, e.persist(ctx, state, key, snapshot, version)
	}()
	e.metrics.Observe("log_event", start, err)
	return result, err
}

// SimilarAttempts ranks past steps against a query. Read-only.
func (e *Engine) SimilarAttempts(ctx context.Context, req *SimilarAttemptsRequest) (*retrieval.Response, error) {
	start := time.Now()
	result, err := func() (*retrieval.Response, error) {
		if err := e.validateRequest(req); err != nil {
			return nil, err
		}
		limit := req.Limit
		if limit == 0 {
			limit = DefaultSimilarLimit
		}
		state, _, err := e.projectFor(ctx, req.ProjectRoot)
		if err != nil {
			return nil, err
		}

		state.mu.RLock()
		defer state.mu.RUnlock()
		return e.ranker.SimilarAttempts(state.graph, req.Query, req.FilePaths, limit), nil
	}()
	e.metrics.Observe("similar_attempts", start, err)
	return result, err
}

// ContextForFiles assembles a context pack for a file set. Read-only.
func (e *Engine) ContextForFiles(ctx context.Context, req *ContextForFilesRequest) (*ContextForFilesResponse, error) {
	start := time.Now()
	result, err := func() (*ContextForFilesResponse, error) {
		if err := e.validateRequest(req); err != nil {
			return nil, err
		}
		radius := req.Radius
		if radius == 0 {
			radius = DefaultContextRadius
		}
		state, _, err := e.projectFor(ctx, req.ProjectRoot)
		if err != nil {
			return nil, err
		}

		state.mu.RLock()
		defer state.mu.RUnlock()
		pack, display := e.assembler.ContextForFiles(state.graph, req.FilePaths, radius)
		return &ContextForFilesResponse{ContextPack: pack, ReturnDisplay: display}, nil
	}()
	e.metrics.Observe("context_for_files", start, err)
	return result, err
}

// Close releases the snapshot store.
func (e *Engine) Close() error {
	if e.snapshots == nil {
		return nil
	}
	return e.snapshots.Close()
}

// validateRequest checks validator tags, mapping failures to ErrValidation.
func (e *Engine) validateRequest(req any) error {
	if err := e.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// projectFor returns the project's state, loading the snapshot lazily on
// first touch. A missing snapshot means a fresh empty graph.
func (e *Engine) projectFor(ctx context.Context, rootPath string) (*projectState, string, error) {
	key := graph.ProjectID(rootPath)

	e.mu.Lock()
	defer e.mu.Unlock()
	if state, ok := e.projects[key]; ok {
		return state, key, nil
	}

	g := graph.NewStore()
	if e.snapshots != nil {
		data, err := e.snapshots.Load(ctx, key)
		switch {
		case err == nil:
			g, err = graph.RestoreSnapshot(data)
			if err != nil {
				return nil, "", fmt.Errorf("restore snapshot %s: %w", key, err)
			}
			e.logger.InfoContext(ctx, "project snapshot restored",
				slog.String("key", key),
				slog.Int("nodes", g.NodeCount()),
				slog.Int("edges", g.EdgeCount()))
		case errors.Is(err, storage.ErrNotFound):
			// First sighting of this project.
		default:
			return nil, "", fmt.Errorf("%w: load snapshot %s: %v", ErrPersistence, key, err)
		}
	}

	state := &projectState{graph: g}
	e.projects[key] = state
	return state, key, nil
}

// commit serializes the graph and advances the project version. Must be
// called with the project write lock held, so the snapshot and its
// version describe the same committed state.
func (e *Engine) commit(state *projectState, opErr error) ([]byte, uint64, error) {
	if opErr != nil {
		return nil, 0, opErr
	}
	snapshot, err := state.graph.Snapshot()
	if err != nil {
		return nil, 0, err
	}
	state.version++
	return snapshot, state.version, nil
}

// persist writes a snapshot with bounded retry. Called outside the
// project lock so a slow disk does not stall subsequent writers, but
// serialized per project via saveMu: a snapshot older than the last
// durably written one is skipped rather than letting a slow writer
// overwrite a newer document.
func (e *Engine) persist(ctx context.Context, state *projectState, key string, snapshot []byte, version uint64) error {
	if e.snapshots == nil {
		return nil
	}

	state.saveMu.Lock()
	defer state.saveMu.Unlock()
	if version <= state.savedVersion {
		e.logger.DebugContext(ctx, "stale snapshot skipped",
			slog.String("key", key),
			slog.Uint64("version", version),
			slog.Uint64("saved_version", state.savedVersion))
		return nil
	}

	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		if err = e.snapshots.Save(ctx, key, snapshot); err == nil {
			state.savedVersion = version
			return nil
		}
		e.logger.WarnContext(ctx, "snapshot save failed",
			slog.String("key", key),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		if attempt < saveAttempts {
			time.Sleep(saveBackoff)
		}
	}
	return fmt.Errorf("%w: save snapshot %s after %d attempts: %v",
		ErrPersistence, key, saveAttempts, err)
}
