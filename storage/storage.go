// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage persists graph snapshots: one serialized document per
// project, addressed by the project key.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no snapshot exists for the key.
var ErrNotFound = errors.New("snapshot not found")

// Store persists one snapshot document per project key.
//
// Thread Safety: implementations must be safe for concurrent use; the
// engine may persist different projects from different goroutines.
type Store interface {
	// Load returns the snapshot for the key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save durably writes the snapshot for the key, replacing any
	// previous one. A crash mid-save must never leave a half-written
	// snapshot readable.
	Save(ctx context.Context, key string, data []byte) error

	// Close releases backend resources.
	Close() error
}
