// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval ranks historical steps against a new query. It is a
// pure reader over the graph: it never mutates the store.
package retrieval

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/AleutianAI/dualgraph/graph"
)

// Scoring weights, in tenths of a point. Scores are computed in integer
// tenths and converted to float exactly once, so a rendered score like
// 2.1 is exact rather than a floating point artifact.
const (
	// summaryMatchTenths is awarded for a case-insensitive substring
	// match between the query and a step's summary.
	summaryMatchTenths = 10

	// fileOverlapTenths is awarded when the step's files_touched overlap
	// the caller's file filter.
	fileOverlapTenths = 10

	// maxFileBonusTenths caps the per-file activity bonus.
	maxFileBonusTenths = 3
)

// Result is one ranked step.
type Result struct {
	// StepID is the step node's ID.
	StepID string `json:"step_id"`

	// TaskID is the owning task's ID, resolved via task_has_step.
	TaskID string `json:"task_id"`

	// Files is the step's files_touched list.
	Files []string `json:"files"`

	// LLMSummary is the step's recorded summary.
	LLMSummary string `json:"llm_summary"`

	// Score is the similarity score. Always an exact multiple of 0.1.
	Score float64 `json:"score"`
}

// Response is the full ranked answer: the structured list plus its
// markdown rendering.
type Response struct {
	// Results is the ranked list, best first, truncated to the limit.
	Results []Result `json:"results"`

	// SummaryMarkdown renders one line per result:
	// "{rank}. Step {step_id} ({comma-joined files}) score={score}".
	SummaryMarkdown string `json:"summary_markdown"`
}

// Ranker scores steps. Stateless apart from its logger.
type Ranker struct {
	logger *slog.Logger
}

// Option is a functional option for configuring Ranker.
type Option func(*Ranker)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Ranker.
func New(opts ...Option) *Ranker {
	r := &Ranker{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SimilarAttempts ranks every step in the project against the query.
//
// Description:
//
//	Each step scores one point for a case-insensitive substring match
//	between the query and its summary, one point when its files_touched
//	overlap the file filter, plus 0.1 per touched file capped at 0.3.
//	The sort is stable descending: equal scores keep the graph's
//	node-insertion order, which is a contract consumers rely on, not an
//	accident of the sort.
//
// Inputs:
//
//	store - The project's graph. Caller must hold at least the read side.
//	query - Free-text query; empty disables the summary criterion.
//	filePaths - Optional file filter; nil/empty disables the overlap
//	            criterion.
//	limit - Maximum results; non-positive means unlimited.
//
// Outputs:
//
//	*Response - Ranked results plus markdown. Never nil.
func (r *Ranker) SimilarAttempts(store *graph.Store, query string, filePaths []string, limit int) *Response {
	filter := make(map[string]bool, len(filePaths))
	for _, p := range filePaths {
		filter[graph.NormalizePath(p)] = true
	}
	queryLower := strings.ToLower(query)

	type scored struct {
		result Result
		tenths int
	}
	steps := store.FindNodes(graph.KindStep)
	ranked := make([]scored, 0, len(steps))
	for _, step := range steps {
		sp, ok := step.Props.(*graph.StepProps)
		if !ok {
			continue
		}

		tenths := 0
		if query != "" && strings.Contains(strings.ToLower(sp.LLMSummary), queryLower) {
			tenths += summaryMatchTenths
		}
		if len(filter) > 0 && overlaps(sp.FilesTouched, filter) {
			tenths += fileOverlapTenths
		}
		tenths += min(len(sp.FilesTouched), maxFileBonusTenths)

		ranked = append(ranked, scored{
			result: Result{
				StepID:     step.ID,
				TaskID:     owningTask(store, step.ID),
				Files:      append([]string(nil), sp.FilesTouched...),
				LLMSummary: sp.LLMSummary,
				Score:      float64(tenths) / 10,
			},
			tenths: tenths,
		})
	}

	// FindNodes already yields insertion order; the stable sort keeps it
	// within equal scores.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].tenths > ranked[j].tenths })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	resp := &Response{Results: make([]Result, 0, len(ranked))}
	var md strings.Builder
	for i, s := range ranked {
		resp.Results = append(resp.Results, s.result)
		fmt.Fprintf(&md, "%d. Step %s (%s) score=%.1f\n",
			i+1, s.result.StepID, strings.Join(s.result.Files, ", "), s.result.Score)
	}
	resp.SummaryMarkdown = md.String()

	r.logger.Debug("similar attempts ranked",
		slog.Int("candidates", len(steps)),
		slog.Int("returned", len(resp.Results)))
	return resp
}

// owningTask resolves the task that owns a step via its task_has_step
// in-edge. Returns "" for an orphaned step.
func owningTask(store *graph.Store, stepID string) string {
	tasks := store.InNeighbors(graph.EdgeTaskHasStep, stepID)
	if len(tasks) == 0 {
		return ""
	}
	return tasks[0]
}

// overlaps reports whether any member of files is in the filter set.
func overlaps(files []string, filter map[string]bool) bool {
	for _, f := range files {
		if filter[graph.NormalizePath(f)] {
			return true
		}
	}
	return false
}
