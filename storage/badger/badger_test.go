// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/dualgraph/storage"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip in memory", func(t *testing.T) {
		s, err := Open(InMemoryConfig())
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, s.Save(ctx, "proj-1", []byte(`{"version":1}`)))
		data, err := s.Load(ctx, "proj-1")
		require.NoError(t, err)
		assert.Equal(t, `{"version":1}`, string(data))
	})

	t.Run("missing key maps to storage.ErrNotFound", func(t *testing.T) {
		s, err := Open(InMemoryConfig())
		require.NoError(t, err)
		defer s.Close()

		_, err = s.Load(ctx, "ghost")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("save replaces the previous snapshot", func(t *testing.T) {
		s, err := Open(InMemoryConfig())
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, s.Save(ctx, "proj-1", []byte("old")))
		require.NoError(t, s.Save(ctx, "proj-1", []byte("new")))
		data, err := s.Load(ctx, "proj-1")
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("persistent store survives reopen", func(t *testing.T) {
		dir := t.TempDir()
		cfg := DefaultConfig(dir)

		s, err := Open(cfg)
		require.NoError(t, err)
		require.NoError(t, s.Save(ctx, "proj-1", []byte("durable")))
		require.NoError(t, s.Close())

		s, err = Open(cfg)
		require.NoError(t, err)
		defer s.Close()
		data, err := s.Load(ctx, "proj-1")
		require.NoError(t, err)
		assert.Equal(t, "durable", string(data))
	})

	t.Run("persistent store requires a path", func(t *testing.T) {
		_, err := Open(Config{})
		assert.Error(t, err)
	})
}
