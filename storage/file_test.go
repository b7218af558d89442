// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		s, err := NewFileStore(t.TempDir(), nil)
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, s.Save(ctx, "proj-1", []byte(`{"version":1}`)))
		data, err := s.Load(ctx, "proj-1")
		require.NoError(t, err)
		assert.Equal(t, `{"version":1}`, string(data))
	})

	t.Run("missing key is ErrNotFound", func(t *testing.T) {
		s, err := NewFileStore(t.TempDir(), nil)
		require.NoError(t, err)
		_, err = s.Load(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save replaces the previous snapshot", func(t *testing.T) {
		s, err := NewFileStore(t.TempDir(), nil)
		require.NoError(t, err)

		require.NoError(t, s.Save(ctx, "proj-1", []byte("old")))
		require.NoError(t, s.Save(ctx, "proj-1", []byte("new")))
		data, err := s.Load(ctx, "proj-1")
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("no temp files remain after save", func(t *testing.T) {
		base := t.TempDir()
		s, err := NewFileStore(base, nil)
		require.NoError(t, err)
		require.NoError(t, s.Save(ctx, "proj-1", []byte("x")))

		entries, err := os.ReadDir(filepath.Join(base, "proj-1"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "project.json", entries[0].Name())
	})

	t.Run("empty base dir is rejected", func(t *testing.T) {
		_, err := NewFileStore("", nil)
		assert.Error(t, err)
	})
}
