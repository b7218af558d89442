// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package contextpack joins Code Graph and ETG data for a file set into
// a renderable context pack. Like retrieval, it is a pure reader.
package contextpack

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/dualgraph/graph"
)

// FileRef is one requested file, echoed with its stored metadata. A path
// that has no file node in the graph is still echoed, marked unindexed.
type FileRef struct {
	Path         string `json:"path"`
	Language     string `json:"language,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	Hash         string `json:"hash,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Indexed      bool   `json:"indexed"`
}

// SymbolRef is one symbol included in a pack.
type SymbolRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind,omitempty"`
	Signature string `json:"signature,omitempty"`
	File      string `json:"file"`
}

// ConceptRef is one concept included in a pack.
type ConceptRef struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// StepRef is one historical step whose files_touched overlap the
// requested file set.
type StepRef struct {
	StepID     string   `json:"step_id"`
	TaskID     string   `json:"task_id,omitempty"`
	LLMSummary string   `json:"llm_summary,omitempty"`
	Files      []string `json:"files"`
}

// Pack is the structured context for a set of files.
type Pack struct {
	// Files echoes the normalized requested paths with their stored
	// metadata, in request order.
	Files []FileRef `json:"files"`

	// Symbols are the symbols declared in the requested files.
	Symbols []SymbolRef `json:"symbols"`

	// Concepts are the concepts those symbols implement, deduplicated
	// across the whole symbol set.
	Concepts []ConceptRef `json:"concepts"`

	// Steps are past steps that touched any requested file.
	Steps []StepRef `json:"steps"`

	// Radius echoes the requested hop radius. Expansion is fixed
	// single-hop (file to symbol to concept) regardless of its value;
	// deeper radii are a documented limitation, not an error.
	Radius int `json:"radius"`
}

// Assembler builds context packs. Stateless apart from its logger.
type Assembler struct {
	logger *slog.Logger
}

// Option is a functional option for configuring Assembler.
type Option func(*Assembler)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ContextForFiles assembles the pack for a set of files.
//
// Description:
//
//	For each requested file, follows file_contains_symbol to collect
//	symbols, then symbol_implements_concept to collect concepts
//	(deduplicated by concept ID across the whole symbol set). Separately
//	collects every step whose files_touched overlaps the requested set.
//	Unknown file paths contribute nothing; they are not an error.
//
// Inputs:
//
//	store - The project's graph. Caller must hold at least the read side.
//	filePaths - The requested files.
//	radius - Hop radius; recorded in the pack, expansion stays single-hop.
//
// Outputs:
//
//	*Pack - The structured pack. Never nil.
//	string - A human-readable display block.
func (a *Assembler) ContextForFiles(store *graph.Store, filePaths []string, radius int) (*Pack, string) {
	pack := &Pack{
		Files:    make([]FileRef, 0, len(filePaths)),
		Symbols:  []SymbolRef{},
		Concepts: []ConceptRef{},
		Steps:    []StepRef{},
		Radius:   radius,
	}

	requested := make(map[string]bool, len(filePaths))
	for _, p := range filePaths {
		fileID := graph.NormalizePath(p)
		if fileID == "" || requested[fileID] {
			continue
		}
		requested[fileID] = true
		pack.Files = append(pack.Files, fileRef(store, fileID))
	}

	seenConcepts := make(map[string]bool)
	for _, file := range pack.Files {
		fileID := file.Path
		for _, symbolID := range store.OutNeighbors(graph.EdgeFileContainsSymbol, fileID) {
			n, ok := store.GetNode(symbolID)
			if !ok {
				continue
			}
			sp, isSymbol := n.Props.(*graph.SymbolProps)
			if !isSymbol {
				continue
			}
			pack.Symbols = append(pack.Symbols, SymbolRef{
				ID:        n.ID,
				Name:      sp.Name,
				Kind:      sp.SymbolKind,
				Signature: sp.Signature,
				File:      fileID,
			})

			for _, conceptID := range store.OutNeighbors(graph.EdgeSymbolImplementsConcept, symbolID) {
				if seenConcepts[conceptID] {
					continue
				}
				seenConcepts[conceptID] = true
				cn, found := store.GetNode(conceptID)
				if !found {
					continue
				}
				if cp, isConcept := cn.Props.(*graph.ConceptProps); isConcept {
					pack.Concepts = append(pack.Concepts, ConceptRef{
						Label:       cp.Label,
						Description: cp.Description,
					})
				}
			}
		}
	}

	for _, step := range store.FindNodes(graph.KindStep) {
		sp, ok := step.Props.(*graph.StepProps)
		if !ok {
			continue
		}
		if !touchesAny(sp.FilesTouched, requested) {
			continue
		}
		taskID := ""
		if owners := store.InNeighbors(graph.EdgeTaskHasStep, step.ID); len(owners) > 0 {
			taskID = owners[0]
		}
		pack.Steps = append(pack.Steps, StepRef{
			StepID:     step.ID,
			TaskID:     taskID,
			LLMSummary: sp.LLMSummary,
			Files:      append([]string(nil), sp.FilesTouched...),
		})
	}

	a.logger.Debug("context pack assembled",
		slog.Int("files", len(pack.Files)),
		slog.Int("symbols", len(pack.Symbols)),
		slog.Int("concepts", len(pack.Concepts)),
		slog.Int("steps", len(pack.Steps)))
	return pack, renderDisplay(pack)
}

// fileRef echoes a requested path with the metadata its file node holds.
func fileRef(store *graph.Store, fileID string) FileRef {
	ref := FileRef{Path: fileID}
	n, ok := store.GetNode(fileID)
	if !ok || n.Kind != graph.KindFile {
		return ref
	}
	ref.Indexed = true
	if fp, isFile := n.Props.(*graph.FileProps); isFile {
		ref.Language = fp.Language
		ref.SizeBytes = fp.SizeBytes
		ref.Hash = fp.Hash
		ref.LastModified = fp.LastModified
	}
	return ref
}

// touchesAny reports whether any touched file is in the requested set.
func touchesAny(files []string, requested map[string]bool) bool {
	for _, f := range files {
		if requested[graph.NormalizePath(f)] {
			return true
		}
	}
	return false
}

// renderDisplay formats the pack as a human-readable block.
func renderDisplay(pack *Pack) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context for %d file(s) (radius=%d)\n", len(pack.Files), pack.Radius)

	b.WriteString("Files:\n")
	for _, f := range pack.Files {
		switch {
		case !f.Indexed:
			fmt.Fprintf(&b, "  - %s (not indexed)\n", f.Path)
		case f.Language != "":
			fmt.Fprintf(&b, "  - %s (size=%d, lang=%s)\n", f.Path, f.SizeBytes, f.Language)
		default:
			fmt.Fprintf(&b, "  - %s\n", f.Path)
		}
	}

	b.WriteString("Symbols:\n")
	for _, s := range pack.Symbols {
		fmt.Fprintf(&b, "  - %s (%s)\n", s.Name, s.File)
	}

	b.WriteString("Concepts:\n")
	for _, c := range pack.Concepts {
		fmt.Fprintf(&b, "  - %s\n", c.Label)
	}

	b.WriteString("Steps:\n")
	for _, s := range pack.Steps {
		fmt.Fprintf(&b, "  - %s\n", s.StepID)
	}
	return b.String()
}
