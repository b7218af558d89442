// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package indexer builds and refreshes the Code Graph from caller-supplied
// file descriptors. The indexer never reads the filesystem: languages,
// sizes, symbols, and concepts arrive already extracted.
package indexer

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/dualgraph/graph"
)

// ConceptInput describes a semantic tag attached to a symbol. Concepts
// are keyed by label and shared across symbols and files.
type ConceptInput struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

// SymbolInput describes one declared symbol within a file.
type SymbolInput struct {
	Name          string         `json:"name"`
	Kind          string         `json:"kind,omitempty"`
	Signature     string         `json:"signature,omitempty"`
	SpanStartLine int            `json:"span_start_line,omitempty"`
	SpanEndLine   int            `json:"span_end_line,omitempty"`
	Docstring     string         `json:"docstring,omitempty"`
	Concepts      []ConceptInput `json:"concepts,omitempty"`
}

// FileInput describes one file to index.
type FileInput struct {
	Path         string        `json:"path"`
	Language     string        `json:"language,omitempty"`
	SizeBytes    int64         `json:"size_bytes,omitempty"`
	LastModified string        `json:"last_modified,omitempty"`

	// Hash is an optional real content hash. When empty, a fingerprint is
	// derived from path and size.
	Hash string `json:"hash,omitempty"`

	Symbols []SymbolInput `json:"symbols,omitempty"`
}

// IndexResult reports what a full indexing pass created or refreshed.
type IndexResult struct {
	// ProjectID is the deterministic project node ID.
	ProjectID string `json:"project_id"`

	// FilesIndexed is the number of file nodes upserted.
	FilesIndexed int `json:"files_indexed"`

	// SymbolsIndexed is the number of symbol nodes upserted.
	SymbolsIndexed int `json:"symbols_indexed"`

	// ConceptsIndexed is the number of distinct concept labels seen.
	ConceptsIndexed int `json:"concepts_indexed"`

	// DurationMillis is the wall-clock time the pass took.
	DurationMillis int64 `json:"duration_ms"`
}

// UpdateResult reports what an incremental pass changed.
type UpdateResult struct {
	// ProjectID is the deterministic project node ID.
	ProjectID string `json:"project_id"`

	// UpdatedFiles counts files actually mutated: new files, files whose
	// fingerprint changed, and deleted files. Files skipped by hash
	// invalidation are not counted.
	UpdatedFiles int `json:"updated_files"`

	// DurationMillis is the wall-clock time the pass took.
	DurationMillis int64 `json:"duration_ms"`
}

// Indexer writes Code Graph nodes and edges into a graph.Store. It is one
// of the two writers into the store (the other is etg.Logger); the engine
// serializes access between them.
type Indexer struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option is a functional option for configuring Indexer.
type Option func(*Indexer)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(ix *Indexer) {
		if now != nil {
			ix.now = now
		}
	}
}

// New creates an Indexer.
func New(opts ...Option) *Indexer {
	ix := &Indexer{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// IndexProject builds or refreshes the Code Graph for a project from a
// flat file list.
//
// Description:
//
//	Upserts the project node, the full ancestor-directory forest, every
//	file, its declared symbols, and their concepts. The complete set of
//	distinct ancestor directories is collected across all files before
//	any directory edge is created, so deeply nested files never leave
//	gaps in the dir_contains_dir chain. All node IDs are deterministic,
//	so re-indexing identical input is idempotent.
//
// Inputs:
//
//	ctx - Context, consulted between files; a cancelled context aborts
//	      the pass (already-applied upserts remain and self-heal on retry).
//	store - The project's graph. Caller must hold the write side.
//	rootPath - Absolute project root path.
//	files - File descriptors with optional nested symbols and concepts.
//
// Outputs:
//
//	*IndexResult - Counts and wall-clock duration. Nil only on error.
//	error - Context cancellation or a store-level failure.
func (ix *Indexer) IndexProject(ctx context.Context, store *graph.Store, rootPath string, files []FileInput) (*IndexResult, error) {
	start := ix.now()
	root := graph.NormalizePath(rootPath)
	projectID := graph.ProjectID(root)

	if _, err := store.UpsertNode(graph.KindProject, projectID, &graph.ProjectProps{RootPath: root}); err != nil {
		return nil, err
	}

	if err := ix.indexDirectories(store, projectID, root, files); err != nil {
		return nil, err
	}

	result := &IndexResult{ProjectID: projectID}
	conceptLabels := make(map[string]bool)
	for i := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		symbols, err := ix.indexFile(store, root, &files[i], conceptLabels)
		if err != nil {
			return nil, err
		}
		result.FilesIndexed++
		result.SymbolsIndexed += symbols
	}
	result.ConceptsIndexed = len(conceptLabels)
	result.DurationMillis = ix.now().Sub(start).Milliseconds()

	ix.logger.InfoContext(ctx, "project indexed",
		slog.String("project_id", projectID),
		slog.Int("files", result.FilesIndexed),
		slog.Int("symbols", result.SymbolsIndexed),
		slog.Int("concepts", result.ConceptsIndexed),
		slog.Int64("duration_ms", result.DurationMillis))
	return result, nil
}

// UpdateFiles applies an incremental delta to an already-indexed project.
//
// Description:
//
//	Recomputes only the named files. A file whose stored fingerprint
//	matches the incoming one keeps its symbols (hash-based invalidation);
//	a changed file has its old symbols removed before re-extraction so
//	deleted symbols do not linger. Deleted files lose their file node,
//	all symbols reachable via file_contains_symbol, and every touching
//	edge; concepts are never deleted, since they may be shared.
//
// Inputs:
//
//	ctx - Context, consulted between files.
//	store - The project's graph. Caller must hold the write side.
//	rootPath - Absolute project root path.
//	addedOrModified - Full descriptors for new or changed files.
//	deleted - Paths of files removed from the project.
//
// Outputs:
//
//	*UpdateResult - Count of actually-mutated files plus duration.
//	error - Context cancellation or a store-level failure.
func (ix *Indexer) UpdateFiles(ctx context.Context, store *graph.Store, rootPath string, addedOrModified []FileInput, deleted []string) (*UpdateResult, error) {
	start := ix.now()
	root := graph.NormalizePath(rootPath)
	projectID := graph.ProjectID(root)

	// The project node is created lazily by every operation that receives
	// a project root.
	if _, err := store.UpsertNode(graph.KindProject, projectID, &graph.ProjectProps{RootPath: root}); err != nil {
		return nil, err
	}
	if err := ix.indexDirectories(store, projectID, root, addedOrModified); err != nil {
		return nil, err
	}

	result := &UpdateResult{ProjectID: projectID}
	conceptLabels := make(map[string]bool)
	for i := range addedOrModified {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := &addedOrModified[i]
		fileID := graph.NormalizePath(f.Path)
		fingerprint := f.Hash
		if fingerprint == "" {
			fingerprint = graph.FileFingerprint(f.Path, f.SizeBytes)
		}

		if existing, ok := store.GetNode(fileID); ok {
			fp, isFile := existing.Props.(*graph.FileProps)
			if isFile && fp.Hash == fingerprint {
				ix.logger.DebugContext(ctx, "file unchanged, skipping",
					slog.String("path", fileID))
				continue
			}
			// Content changed: drop stale symbols before re-extraction.
			ix.removeFileSymbols(store, fileID)
		}

		if _, err := ix.indexFile(store, root, f, conceptLabels); err != nil {
			return nil, err
		}
		result.UpdatedFiles++
	}

	for _, p := range deleted {
		fileID := graph.NormalizePath(p)
		if _, ok := store.GetNode(fileID); !ok {
			continue
		}
		ix.removeFileSymbols(store, fileID)
		store.RemoveNode(fileID)
		result.UpdatedFiles++
	}

	result.DurationMillis = ix.now().Sub(start).Milliseconds()
	ix.logger.InfoContext(ctx, "incremental update applied",
		slog.String("project_id", projectID),
		slog.Int("updated_files", result.UpdatedFiles),
		slog.Int64("duration_ms", result.DurationMillis))
	return result, nil
}

// indexDirectories collects the distinct ancestor-directory set across
// all files, then upserts the directory forest. The walk up each path
// chain terminates at the project root (inclusive) or when a directory
// has already been collected.
func (ix *Indexer) indexDirectories(store *graph.Store, projectID, root string, fileInputs []FileInput) error {
	dirSet := make(map[string]bool)
	for i := range fileInputs {
		dir := parentDir(graph.NormalizePath(fileInputs[i].Path))
		for dir != "" && !dirSet[dir] {
			if !withinRoot(dir, root) {
				break
			}
			dirSet[dir] = true
			if dir == root {
				break
			}
			dir = parentDir(dir)
		}
	}

	// Deterministic order keeps repeated indexing byte-identical in
	// snapshots. Sorted order also visits parents before children.
	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		if _, err := store.UpsertNode(graph.KindDirectory, dir, &graph.DirectoryProps{Path: dir}); err != nil {
			return err
		}
		if err := store.Connect(graph.EdgeProjectContainsDir, projectID, dir); err != nil {
			return err
		}
		if parent := parentDir(dir); dirSet[parent] {
			if err := store.Connect(graph.EdgeDirContainsDir, parent, dir); err != nil {
				return err
			}
		}
	}
	return nil
}

// indexFile upserts one file node plus its symbols and concepts, and
// returns the number of symbols written. conceptLabels accumulates the
// distinct labels seen across the whole pass.
func (ix *Indexer) indexFile(store *graph.Store, root string, f *FileInput, conceptLabels map[string]bool) (int, error) {
	fileID := graph.NormalizePath(f.Path)
	fingerprint := f.Hash
	if fingerprint == "" {
		fingerprint = graph.FileFingerprint(f.Path, f.SizeBytes)
	}

	if _, err := store.UpsertNode(graph.KindFile, fileID, &graph.FileProps{
		Path:         fileID,
		Language:     f.Language,
		SizeBytes:    f.SizeBytes,
		Hash:         fingerprint,
		LastModified: f.LastModified,
	}); err != nil {
		return 0, err
	}

	if dir := parentDir(fileID); dir != "" && withinRoot(dir, root) {
		if _, ok := store.GetNode(dir); ok {
			if err := store.Connect(graph.EdgeDirContainsFile, dir, fileID); err != nil {
				return 0, err
			}
		}
	}

	symbols := 0
	for _, sym := range f.Symbols {
		symbolID := graph.SymbolID(fileID, sym.Name)
		if _, err := store.UpsertNode(graph.KindSymbol, symbolID, &graph.SymbolProps{
			Name:          sym.Name,
			SymbolKind:    sym.Kind,
			Signature:     sym.Signature,
			SpanStartLine: sym.SpanStartLine,
			SpanEndLine:   sym.SpanEndLine,
			Docstring:     sym.Docstring,
		}); err != nil {
			return symbols, err
		}
		if err := store.Connect(graph.EdgeFileContainsSymbol, fileID, symbolID); err != nil {
			return symbols, err
		}
		symbols++

		for _, c := range sym.Concepts {
			if c.Label == "" {
				continue
			}
			if _, err := store.UpsertNode(graph.KindConcept, c.Label, &graph.ConceptProps{
				Label:       c.Label,
				Description: c.Description,
				Source:      c.Source,
			}); err != nil {
				return symbols, err
			}
			if err := store.Connect(graph.EdgeSymbolImplementsConcept, symbolID, c.Label); err != nil {
				return symbols, err
			}
			conceptLabels[c.Label] = true
		}
	}
	return symbols, nil
}

// removeFileSymbols removes every symbol reachable from the file via
// file_contains_symbol, taking their concept edges with them.
func (ix *Indexer) removeFileSymbols(store *graph.Store, fileID string) {
	for _, symbolID := range store.OutNeighbors(graph.EdgeFileContainsSymbol, fileID) {
		store.RemoveNode(symbolID)
	}
}

// parentDir returns the parent directory of a normalized path, or "" at
// the filesystem root.
func parentDir(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	parent := path.Dir(p)
	if parent == p {
		return ""
	}
	return parent
}

// withinRoot reports whether dir is the root itself or below it.
func withinRoot(dir, root string) bool {
	if root == "" {
		return false
	}
	return dir == root || strings.HasPrefix(dir, root+"/")
}
