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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertNode(t *testing.T) {
	t.Run("creates a new node", func(t *testing.T) {
		s := NewStore()
		n, err := s.UpsertNode(KindFile, "/a/b.go", &FileProps{Path: "/a/b.go", Language: "go"})
		require.NoError(t, err)
		assert.Equal(t, "/a/b.go", n.ID)
		assert.Equal(t, KindFile, n.Kind)
		assert.Equal(t, 1, s.NodeCount())
	})

	t.Run("merge keeps fields the second call omits", func(t *testing.T) {
		s := NewStore()
		_, err := s.UpsertNode(KindFile, "/a/b.go", &FileProps{
			Path: "/a/b.go", Language: "go", SizeBytes: 120, Hash: "abc",
		})
		require.NoError(t, err)

		n, err := s.UpsertNode(KindFile, "/a/b.go", &FileProps{Path: "/a/b.go", SizeBytes: 200})
		require.NoError(t, err)

		fp := n.Props.(*FileProps)
		assert.Equal(t, int64(200), fp.SizeBytes)
		assert.Equal(t, "go", fp.Language, "omitted field must survive the merge")
		assert.Equal(t, "abc", fp.Hash)
		assert.Equal(t, 1, s.NodeCount(), "upsert must not duplicate the node")
	})

	t.Run("merge unions list fields preserving order", func(t *testing.T) {
		s := NewStore()
		_, err := s.UpsertNode(KindStep, "step-1", &StepProps{
			Order: 1, FilesTouched: []string{"a.go", "b.go"},
		})
		require.NoError(t, err)

		n, err := s.UpsertNode(KindStep, "step-1", &StepProps{
			FilesTouched: []string{"b.go", "c.go"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.go", "b.go", "c.go"}, n.Props.(*StepProps).FilesTouched)
	})

	t.Run("kind mismatch on existing node is an error", func(t *testing.T) {
		s := NewStore()
		_, err := s.UpsertNode(KindFile, "x", &FileProps{Path: "x"})
		require.NoError(t, err)

		_, err = s.UpsertNode(KindDirectory, "x", &DirectoryProps{Path: "x"})
		assert.ErrorIs(t, err, ErrKindMismatch)
	})

	t.Run("props kind must match declared kind", func(t *testing.T) {
		s := NewStore()
		_, err := s.UpsertNode(KindFile, "x", &DirectoryProps{Path: "x"})
		assert.ErrorIs(t, err, ErrKindMismatch)
	})

	t.Run("empty id is invalid", func(t *testing.T) {
		s := NewStore()
		_, err := s.UpsertNode(KindFile, "", &FileProps{})
		assert.ErrorIs(t, err, ErrInvalidNode)
	})

	t.Run("pointer result fields overwrite on merge", func(t *testing.T) {
		s := NewStore()
		_, err := s.UpsertNode(KindToolInvocation, "tool-1", &ToolProps{ToolName: "pytest"})
		require.NoError(t, err)

		ok := false
		dur := int64(0)
		n, err := s.UpsertNode(KindToolInvocation, "tool-1", &ToolProps{
			Success: &ok, DurationMillis: &dur,
		})
		require.NoError(t, err)

		tp := n.Props.(*ToolProps)
		require.NotNil(t, tp.Success)
		assert.False(t, *tp.Success, "explicit false must be stored, not treated as omitted")
		require.NotNil(t, tp.DurationMillis)
		assert.Equal(t, int64(0), *tp.DurationMillis)
		assert.Equal(t, "pytest", tp.ToolName)
	})
}

func TestConnect(t *testing.T) {
	newPair := func(t *testing.T) *Store {
		t.Helper()
		s := NewStore()
		_, err := s.UpsertNode(KindDirectory, "/a", &DirectoryProps{Path: "/a"})
		require.NoError(t, err)
		_, err = s.UpsertNode(KindFile, "/a/b.go", &FileProps{Path: "/a/b.go"})
		require.NoError(t, err)
		return s
	}

	t.Run("duplicate edge is a no-op", func(t *testing.T) {
		s := newPair(t)
		require.NoError(t, s.Connect(EdgeDirContainsFile, "/a", "/a/b.go"))
		require.NoError(t, s.Connect(EdgeDirContainsFile, "/a", "/a/b.go"))
		assert.Equal(t, 1, s.EdgeCount())
		assert.Equal(t, []string{"/a/b.go"}, s.OutNeighbors(EdgeDirContainsFile, "/a"))
	})

	t.Run("same endpoints under a different type is a distinct edge", func(t *testing.T) {
		s := newPair(t)
		require.NoError(t, s.Connect(EdgeDirContainsFile, "/a", "/a/b.go"))
		require.NoError(t, s.Connect(EdgeToolTouchesFile, "/a", "/a/b.go"))
		assert.Equal(t, 2, s.EdgeCount())
	})

	t.Run("missing endpoint is an error", func(t *testing.T) {
		s := newPair(t)
		err := s.Connect(EdgeDirContainsFile, "/a", "/nope")
		assert.ErrorIs(t, err, ErrNodeNotFound)

		err = s.Connect(EdgeDirContainsFile, "/nope", "/a/b.go")
		assert.ErrorIs(t, err, ErrNodeNotFound)
		assert.Equal(t, 0, s.EdgeCount())
	})

	t.Run("in-neighbors mirror out-neighbors", func(t *testing.T) {
		s := newPair(t)
		require.NoError(t, s.Connect(EdgeDirContainsFile, "/a", "/a/b.go"))
		assert.Equal(t, []string{"/a"}, s.InNeighbors(EdgeDirContainsFile, "/a/b.go"))
		assert.True(t, s.HasEdge(EdgeDirContainsFile, "/a", "/a/b.go"))
		assert.False(t, s.HasEdge(EdgeDirContainsFile, "/a/b.go", "/a"))
	})
}

func TestFindNodes(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"/c.go", "/a.go", "/b.go"} {
		_, err := s.UpsertNode(KindFile, id, &FileProps{Path: id})
		require.NoError(t, err)
	}
	_, err := s.UpsertNode(KindConcept, "auth", &ConceptProps{Label: "auth"})
	require.NoError(t, err)

	files := s.FindNodes(KindFile)
	require.Len(t, files, 3)
	assert.Equal(t, "/c.go", files[0].ID, "insertion order, not lexical order")
	assert.Equal(t, "/a.go", files[1].ID)
	assert.Equal(t, "/b.go", files[2].ID)

	assert.Empty(t, s.FindNodes(KindTask))
}

func TestRemoveNode(t *testing.T) {
	build := func(t *testing.T) *Store {
		t.Helper()
		s := NewStore()
		mustUpsert(t, s, KindDirectory, "/a", &DirectoryProps{Path: "/a"})
		mustUpsert(t, s, KindFile, "/a/b.go", &FileProps{Path: "/a/b.go"})
		mustUpsert(t, s, KindSymbol, "/a/b.go::Foo", &SymbolProps{Name: "Foo"})
		mustUpsert(t, s, KindConcept, "auth", &ConceptProps{Label: "auth"})
		require.NoError(t, s.Connect(EdgeDirContainsFile, "/a", "/a/b.go"))
		require.NoError(t, s.Connect(EdgeFileContainsSymbol, "/a/b.go", "/a/b.go::Foo"))
		require.NoError(t, s.Connect(EdgeSymbolImplementsConcept, "/a/b.go::Foo", "auth"))
		return s
	}

	t.Run("drops all touching edges and index entries", func(t *testing.T) {
		s := build(t)
		s.RemoveNode("/a/b.go")

		_, ok := s.GetNode("/a/b.go")
		assert.False(t, ok)
		assert.Empty(t, s.OutNeighbors(EdgeDirContainsFile, "/a"))
		assert.Empty(t, s.InNeighbors(EdgeFileContainsSymbol, "/a/b.go::Foo"))
		assert.Equal(t, 1, s.EdgeCount(), "symbol->concept edge is untouched")
		assert.Empty(t, s.FindNodes(KindFile))
	})

	t.Run("removing an absent id is a no-op", func(t *testing.T) {
		s := build(t)
		s.RemoveNode("/nope")
		assert.Equal(t, 4, s.NodeCount())
		assert.Equal(t, 3, s.EdgeCount())
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewStore()
	mustUpsert(t, s, KindProject, "proj-1", &ProjectProps{RootPath: "/workspace/demo"})
	mustUpsert(t, s, KindDirectory, "/workspace/demo/src", &DirectoryProps{Path: "/workspace/demo/src"})
	mustUpsert(t, s, KindFile, "/workspace/demo/src/main.py", &FileProps{
		Path: "/workspace/demo/src/main.py", Language: "python", SizeBytes: 90, Hash: "h1",
	})
	ok := true
	dur := int64(1500)
	mustUpsert(t, s, KindToolInvocation, "tool-1", &ToolProps{
		ToolName:       "pytest",
		Params:         map[string]any{"args": "-q"},
		Success:        &ok,
		DurationMillis: &dur,
		FilesTouched:   []string{"/workspace/demo/src/main.py"},
	})
	require.NoError(t, s.Connect(EdgeProjectContainsDir, "proj-1", "/workspace/demo/src"))
	require.NoError(t, s.Connect(EdgeDirContainsFile, "/workspace/demo/src", "/workspace/demo/src/main.py"))

	data, err := s.Snapshot()
	require.NoError(t, err)

	restored, err := RestoreSnapshot(data)
	require.NoError(t, err)

	assert.Equal(t, s.NodeCount(), restored.NodeCount())
	assert.Equal(t, s.EdgeCount(), restored.EdgeCount())

	n, found := restored.GetNode("tool-1")
	require.True(t, found)
	tp := n.Props.(*ToolProps)
	require.NotNil(t, tp.Success)
	assert.True(t, *tp.Success)
	require.NotNil(t, tp.DurationMillis)
	assert.Equal(t, int64(1500), *tp.DurationMillis)

	assert.True(t, restored.HasEdge(EdgeDirContainsFile,
		"/workspace/demo/src", "/workspace/demo/src/main.py"))

	// New nodes must keep sequencing after the restored ones.
	fresh, err := restored.UpsertNode(KindConcept, "auth", &ConceptProps{Label: "auth"})
	require.NoError(t, err)
	assert.Greater(t, fresh.Seq, n.Seq)

	// Identical graphs serialize to identical bytes.
	again, err := restored.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestRestoreSnapshotUnknownKind(t *testing.T) {
	_, err := RestoreSnapshot([]byte(`{"version":1,"nodes":[{"id":"x","kind":"hologram","seq":0,"props":{}}],"edges":[]}`))
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = RestoreSnapshot([]byte(`{"version":1,"nodes":[],"edges":[{"type":"teleports_to","from":"a","to":"b"}]}`))
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func mustUpsert(t *testing.T, s *Store, kind NodeKind, id string, props Props) {
	t.Helper()
	_, err := s.UpsertNode(kind, id, props)
	require.NoError(t, err)
}
