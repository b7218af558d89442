// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/dualgraph/graph"
)

const demoRoot = "/workspace/demo"

func demoFiles() []FileInput {
	return []FileInput{
		{
			Path:      "/workspace/demo/src/main.ts",
			Language:  "typescript",
			SizeBytes: 120,
			Symbols: []SymbolInput{
				{
					Name: "greet",
					Kind: "function",
					Concepts: []ConceptInput{
						{Label: "greeting", Description: "produces a greeting"},
					},
				},
			},
		},
		{
			Path:      "/workspace/demo/README.md",
			Language:  "markdown",
			SizeBytes: 40,
		},
	}
}

func TestIndexProject(t *testing.T) {
	t.Run("demo fixture", func(t *testing.T) {
		store := graph.NewStore()
		res, err := New().IndexProject(context.Background(), store, demoRoot, demoFiles())
		require.NoError(t, err)

		assert.Equal(t, 2, res.FilesIndexed)
		assert.Equal(t, 1, res.SymbolsIndexed)
		assert.Equal(t, 1, res.ConceptsIndexed)

		_, ok := store.GetNode("/workspace/demo")
		assert.True(t, ok, "root directory node must exist")
		_, ok = store.GetNode("/workspace/demo/src")
		assert.True(t, ok, "intermediate directory node must exist")

		assert.True(t, store.HasEdge(graph.EdgeDirContainsFile,
			"/workspace/demo/src", "/workspace/demo/src/main.ts"))
		assert.True(t, store.HasEdge(graph.EdgeDirContainsFile,
			"/workspace/demo", "/workspace/demo/README.md"))
		assert.True(t, store.HasEdge(graph.EdgeDirContainsDir,
			"/workspace/demo", "/workspace/demo/src"))
		assert.True(t, store.HasEdge(graph.EdgeFileContainsSymbol,
			"/workspace/demo/src/main.ts", "/workspace/demo/src/main.ts::greet"))
		assert.True(t, store.HasEdge(graph.EdgeSymbolImplementsConcept,
			"/workspace/demo/src/main.ts::greet", "greeting"))

		projectID := graph.ProjectID(demoRoot)
		assert.True(t, store.HasEdge(graph.EdgeProjectContainsDir, projectID, "/workspace/demo/src"))
	})

	t.Run("re-indexing identical input is idempotent", func(t *testing.T) {
		store := graph.NewStore()
		ix := New()
		_, err := ix.IndexProject(context.Background(), store, demoRoot, demoFiles())
		require.NoError(t, err)
		nodes, edges := store.NodeCount(), store.EdgeCount()

		res, err := ix.IndexProject(context.Background(), store, demoRoot, demoFiles())
		require.NoError(t, err)
		assert.Equal(t, 2, res.FilesIndexed)
		assert.Equal(t, nodes, store.NodeCount(), "no duplicate nodes")
		assert.Equal(t, edges, store.EdgeCount(), "no duplicate edges")
	})

	t.Run("deeply nested file creates the full directory chain", func(t *testing.T) {
		store := graph.NewStore()
		_, err := New().IndexProject(context.Background(), store, demoRoot, []FileInput{
			{Path: "/workspace/demo/a/b/c/deep.go", Language: "go", SizeBytes: 10},
		})
		require.NoError(t, err)

		assert.True(t, store.HasEdge(graph.EdgeDirContainsDir, "/workspace/demo", "/workspace/demo/a"))
		assert.True(t, store.HasEdge(graph.EdgeDirContainsDir, "/workspace/demo/a", "/workspace/demo/a/b"))
		assert.True(t, store.HasEdge(graph.EdgeDirContainsDir, "/workspace/demo/a/b", "/workspace/demo/a/b/c"))
		assert.True(t, store.HasEdge(graph.EdgeDirContainsFile, "/workspace/demo/a/b/c", "/workspace/demo/a/b/c/deep.go"))
	})

	t.Run("concepts are shared across symbols", func(t *testing.T) {
		store := graph.NewStore()
		res, err := New().IndexProject(context.Background(), store, demoRoot, []FileInput{
			{
				Path: "/workspace/demo/a.go", Language: "go", SizeBytes: 10,
				Symbols: []SymbolInput{
					{Name: "Login", Concepts: []ConceptInput{{Label: "auth"}}},
				},
			},
			{
				Path: "/workspace/demo/b.go", Language: "go", SizeBytes: 20,
				Symbols: []SymbolInput{
					{Name: "Logout", Concepts: []ConceptInput{{Label: "auth"}}},
				},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.ConceptsIndexed, "same label is one concept node")
		assert.Len(t, store.FindNodes(graph.KindConcept), 1)
		assert.Len(t, store.InNeighbors(graph.EdgeSymbolImplementsConcept, "auth"), 2)
	})
}

func TestUpdateFiles(t *testing.T) {
	seed := func(t *testing.T) (*Indexer, *graph.Store) {
		t.Helper()
		ix := New()
		store := graph.NewStore()
		_, err := ix.IndexProject(context.Background(), store, demoRoot, demoFiles())
		require.NoError(t, err)
		return ix, store
	}

	t.Run("unchanged fingerprint skips re-extraction", func(t *testing.T) {
		ix, store := seed(t)
		res, err := ix.UpdateFiles(context.Background(), store, demoRoot, demoFiles(), nil)
		require.NoError(t, err)
		assert.Equal(t, 0, res.UpdatedFiles, "identical size and path means unchanged")
	})

	t.Run("changed file drops stale symbols", func(t *testing.T) {
		ix, store := seed(t)
		changed := []FileInput{{
			Path: "/workspace/demo/src/main.ts", Language: "typescript", SizeBytes: 500,
			Symbols: []SymbolInput{
				{Name: "farewell", Concepts: []ConceptInput{{Label: "parting"}}},
			},
		}}
		res, err := ix.UpdateFiles(context.Background(), store, demoRoot, changed, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.UpdatedFiles)

		_, ok := store.GetNode("/workspace/demo/src/main.ts::greet")
		assert.False(t, ok, "stale symbol must be removed")
		_, ok = store.GetNode("/workspace/demo/src/main.ts::farewell")
		assert.True(t, ok)
	})

	t.Run("new file grows the directory forest", func(t *testing.T) {
		ix, store := seed(t)
		res, err := ix.UpdateFiles(context.Background(), store, demoRoot, []FileInput{
			{Path: "/workspace/demo/pkg/util.go", Language: "go", SizeBytes: 30},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.UpdatedFiles)
		assert.True(t, store.HasEdge(graph.EdgeDirContainsDir, "/workspace/demo", "/workspace/demo/pkg"))
		assert.True(t, store.HasEdge(graph.EdgeDirContainsFile, "/workspace/demo/pkg", "/workspace/demo/pkg/util.go"))
	})

	t.Run("deletion leaves no orphaned symbols", func(t *testing.T) {
		ix, store := seed(t)
		res, err := ix.UpdateFiles(context.Background(), store, demoRoot, nil,
			[]string{"/workspace/demo/src/main.ts"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.UpdatedFiles)

		_, ok := store.GetNode("/workspace/demo/src/main.ts")
		assert.False(t, ok)
		_, ok = store.GetNode("/workspace/demo/src/main.ts::greet")
		assert.False(t, ok, "symbols of a deleted file must not linger")
		assert.Empty(t, store.OutNeighbors(graph.EdgeDirContainsFile, "/workspace/demo/src"))

		_, ok = store.GetNode("greeting")
		assert.True(t, ok, "concepts may be shared and are never deleted")
	})

	t.Run("deleting an unknown path is a no-op", func(t *testing.T) {
		ix, store := seed(t)
		res, err := ix.UpdateFiles(context.Background(), store, demoRoot, nil,
			[]string{"/workspace/demo/ghost.go"})
		require.NoError(t, err)
		assert.Equal(t, 0, res.UpdatedFiles)
	})
}
