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
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"lukechampine.com/blake3"
)

// Code Graph node IDs are deterministic functions of identifying
// attributes, so repeated indexing of the same input is idempotent.
// ETG node IDs are generated once at creation (see the etg package).

// ProjectID derives the stable project key from the normalized root path.
// The same key addresses the project's persisted snapshot.
func ProjectID(rootPath string) string {
	sum := blake3.Sum256([]byte(NormalizePath(rootPath)))
	return hex.EncodeToString(sum[:16])
}

// SymbolID derives a symbol node's ID from its file and declared name.
func SymbolID(filePath, name string) string {
	return fmt.Sprintf("%s::%s", NormalizePath(filePath), name)
}

// FileFingerprint derives the cheap content fingerprint stored on file
// nodes and compared during incremental updates. It hashes path and size
// rather than content; callers that have a real content hash should pass
// it through instead.
func FileFingerprint(filePath string, sizeBytes int64) string {
	h := blake3.New(16, nil)
	fmt.Fprintf(h, "%s\x00%d", NormalizePath(filePath), sizeBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizePath cleans a slash-separated path and strips any trailing
// slash, so the same location always maps to the same node ID.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if cleaned != "/" {
		cleaned = strings.TrimSuffix(cleaned, "/")
	}
	return cleaned
}
