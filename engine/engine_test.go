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
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/dualgraph/graph"
	"github.com/AleutianAI/dualgraph/indexer"
	"github.com/AleutianAI/dualgraph/storage"
)

const demoRoot = "/workspace/demo"

func demoFiles() []indexer.FileInput {
	return []indexer.FileInput{
		{
			Path: "/workspace/demo/src/main.ts", Language: "typescript", SizeBytes: 120,
			Symbols: []indexer.SymbolInput{
				{Name: "greet", Kind: "function",
					Concepts: []indexer.ConceptInput{{Label: "greeting"}}},
			},
		},
		{Path: "/workspace/demo/README.md", Language: "markdown", SizeBytes: 40},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	return New(store)
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestIndexThenQuery(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.IndexProject(ctx, &IndexProjectRequest{
		ProjectRoot: demoRoot, Files: demoFiles(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesIndexed)
	assert.Equal(t, 1, res.SymbolsIndexed)
	assert.Equal(t, 1, res.ConceptsIndexed)

	pack, err := e.ContextForFiles(ctx, &ContextForFilesRequest{
		ProjectRoot: demoRoot,
		FilePaths:   []string{"/workspace/demo/src/main.ts"},
	})
	require.NoError(t, err)
	require.Len(t, pack.ContextPack.Symbols, 1)
	assert.Equal(t, "greet", pack.ContextPack.Symbols[0].Name)
	assert.Equal(t, DefaultContextRadius, pack.ContextPack.Radius)
	assert.NotEmpty(t, pack.ReturnDisplay)
}

func TestEventFlow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	startRes, err := e.LogEvent(ctx, &LogEventRequest{
		ProjectRoot: demoRoot, Kind: "task_start",
		Payload: mustPayload(t, map[string]any{"user_prompt": "add greeting tests"}),
	})
	require.NoError(t, err)
	taskID := startRes.TaskID

	_, err = e.LogEvent(ctx, &LogEventRequest{
		ProjectRoot: demoRoot, TaskID: taskID, Kind: "step",
		Payload: mustPayload(t, map[string]any{
			"order": 1, "llm_summary": "write greeting tests",
			"files_touched": []string{"/workspace/demo/src/main.ts"},
		}),
	})
	require.NoError(t, err)

	toolRes, err := e.LogEvent(ctx, &LogEventRequest{
		ProjectRoot: demoRoot, TaskID: taskID, Kind: "tool_start",
		Payload: mustPayload(t, map[string]any{"tool_name": "vitest"}),
	})
	require.NoError(t, err)
	require.NotEmpty(t, toolRes.ToolID)

	endRes, err := e.LogEvent(ctx, &LogEventRequest{
		ProjectRoot: demoRoot, TaskID: taskID, Kind: "tool_end",
		Payload: mustPayload(t, map[string]any{"tool_name": "vitest", "success": true}),
	})
	require.NoError(t, err)
	assert.Equal(t, toolRes.ToolID, endRes.ToolID)

	sim, err := e.SimilarAttempts(ctx, &SimilarAttemptsRequest{
		ProjectRoot: demoRoot, Query: "greeting",
		FilePaths: []string{"/workspace/demo/src/main.ts"},
	})
	require.NoError(t, err)
	require.Len(t, sim.Results, 1)
	assert.Equal(t, taskID, sim.Results[0].TaskID)
	assert.InDelta(t, 2.1, sim.Results[0].Score, 0)
}

func TestErrorClassification(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	t.Run("missing project root fails validation", func(t *testing.T) {
		_, err := e.IndexProject(ctx, &IndexProjectRequest{})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown event kind fails validation", func(t *testing.T) {
		_, err := e.LogEvent(ctx, &LogEventRequest{
			ProjectRoot: demoRoot, Kind: "teleport",
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("tool_start before any step is a precondition error", func(t *testing.T) {
		startRes, err := e.LogEvent(ctx, &LogEventRequest{
			ProjectRoot: demoRoot, Kind: "task_start",
			Payload: mustPayload(t, map[string]any{}),
		})
		require.NoError(t, err)

		_, err = e.LogEvent(ctx, &LogEventRequest{
			ProjectRoot: demoRoot, TaskID: startRes.TaskID, Kind: "tool_start",
			Payload: mustPayload(t, map[string]any{"tool_name": "bash"}),
		})
		assert.ErrorIs(t, err, ErrPrecondition)
	})

	t.Run("unknown task id is not found", func(t *testing.T) {
		_, err := e.LogEvent(ctx, &LogEventRequest{
			ProjectRoot: demoRoot, TaskID: "no-such-task", Kind: "task_end",
			Payload: mustPayload(t, map[string]any{"status": "completed"}),
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("context request requires file paths", func(t *testing.T) {
		_, err := e.ContextForFiles(ctx, &ContextForFilesRequest{ProjectRoot: demoRoot})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestSnapshotPersistence(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	store, err := storage.NewFileStore(base, nil)
	require.NoError(t, err)
	e := New(store)
	_, err = e.IndexProject(ctx, &IndexProjectRequest{ProjectRoot: demoRoot, Files: demoFiles()})
	require.NoError(t, err)

	// A fresh engine over the same base dir sees the persisted graph.
	store2, err := storage.NewFileStore(base, nil)
	require.NoError(t, err)
	e2 := New(store2)
	pack, err := e2.ContextForFiles(ctx, &ContextForFilesRequest{
		ProjectRoot: demoRoot,
		FilePaths:   []string{"/workspace/demo/src/main.ts"},
	})
	require.NoError(t, err)
	require.Len(t, pack.ContextPack.Symbols, 1)
	assert.Equal(t, "greet", pack.ContextPack.Symbols[0].Name)
}

// gatedStore stalls its first Save until release is closed; later saves
// go straight through. It records the last document written per key.
type gatedStore struct {
	stalled chan struct{}
	release chan struct{}
	once    sync.Once

	mu   sync.Mutex
	data map[string][]byte
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		stalled: make(chan struct{}),
		release: make(chan struct{}),
		data:    make(map[string][]byte),
	}
}

func (g *gatedStore) Load(ctx context.Context, key string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (g *gatedStore) Save(ctx context.Context, key string, data []byte) error {
	g.once.Do(func() {
		close(g.stalled)
		<-g.release
	})
	g.mu.Lock()
	defer g.mu.Unlock()
	g.data[key] = append([]byte(nil), data...)
	return nil
}

func (g *gatedStore) Close() error { return nil }

func TestConcurrentWritersKeepNewestSnapshot(t *testing.T) {
	store := newGatedStore()
	e := New(store)
	ctx := context.Background()

	startPayload := mustPayload(t, map[string]any{
		"task_id": "t1", "user_prompt": "slow disk",
	})
	stepPayload := mustPayload(t, map[string]any{
		"order": 1, "llm_summary": "first step",
	})

	// The task_start commits in memory, then stalls inside Save.
	startDone := make(chan error, 1)
	go func() {
		_, err := e.LogEvent(ctx, &LogEventRequest{
			ProjectRoot: demoRoot, Kind: "task_start", Payload: startPayload,
		})
		startDone <- err
	}()
	<-store.stalled

	// A second writer commits the step while the first snapshot is still
	// in flight; its own save queues behind the stalled one.
	stepDone := make(chan error, 1)
	go func() {
		_, err := e.LogEvent(ctx, &LogEventRequest{
			ProjectRoot: demoRoot, TaskID: "t1", Kind: "step", Payload: stepPayload,
		})
		stepDone <- err
	}()
	require.Eventually(t, func() bool {
		resp, err := e.SimilarAttempts(ctx, &SimilarAttemptsRequest{
			ProjectRoot: demoRoot, Query: "first step",
		})
		return err == nil && len(resp.Results) == 1
	}, time.Second, 5*time.Millisecond, "step must commit in memory while the first save is stalled")

	close(store.release)
	require.NoError(t, <-startDone)
	require.NoError(t, <-stepDone)

	store.mu.Lock()
	data := store.data[graph.ProjectID(demoRoot)]
	store.mu.Unlock()
	require.NotEmpty(t, data)

	g, err := graph.RestoreSnapshot(data)
	require.NoError(t, err)
	assert.Len(t, g.FindNodes(graph.KindStep), 1,
		"durable snapshot must contain the later event, not the stale document")
}

// failingStore loads fine but refuses every save.
type failingStore struct{}

func (f *failingStore) Load(ctx context.Context, key string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (f *failingStore) Save(ctx context.Context, key string, data []byte) error {
	return errors.New("disk full")
}

func (f *failingStore) Close() error { return nil }

func TestPersistenceFailureKeepsResult(t *testing.T) {
	e := New(&failingStore{})
	res, err := e.IndexProject(context.Background(), &IndexProjectRequest{
		ProjectRoot: demoRoot, Files: demoFiles(),
	})

	require.ErrorIs(t, err, ErrPersistence)
	require.NotNil(t, res, "result must accompany a persistence failure")
	assert.Equal(t, 2, res.FilesIndexed)

	// The in-memory graph is still correct and queryable.
	pack, err := e.ContextForFiles(context.Background(), &ContextForFilesRequest{
		ProjectRoot: demoRoot,
		FilePaths:   []string{"/workspace/demo/src/main.ts"},
	})
	require.NoError(t, err)
	assert.Len(t, pack.ContextPack.Symbols, 1)
}
