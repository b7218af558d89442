// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/dualgraph/engine"
)

// Tool names exposed over the wire.
const (
	ToolIndexProject    = "graph_index_project"
	ToolUpdateFiles     = "graph_update_files"
	ToolLogEvent        = "etg_log_event"
	ToolSimilarAttempts = "etg_query_similar_attempts"
	ToolContextForFiles = "graph_context_for_files"
)

// toolDefinition describes one callable tool for tools/list.
type toolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// textContent is one block of a tool call result.
type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// toolResult is the tools/call result envelope.
type toolResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// objectSchema builds a JSON-schema-style object declaration.
func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// toolDefinitions lists the five graph operations.
func toolDefinitions() []toolDefinition {
	str := map[string]any{"type": "string"}
	integer := map[string]any{"type": "integer"}
	strArray := map[string]any{"type": "array", "items": str}

	return []toolDefinition{
		{
			Name:        ToolIndexProject,
			Description: "Build or refresh the Code Graph for a project from a flat file list.",
			InputSchema: objectSchema([]string{"project_root"}, map[string]any{
				"project_root": str,
				"files": map[string]any{
					"type": "array",
					"items": objectSchema([]string{"path"}, map[string]any{
						"path":          str,
						"language":      str,
						"size_bytes":    integer,
						"last_modified": str,
						"symbols":       map[string]any{"type": "array"},
					}),
				},
			}),
		},
		{
			Name:        ToolUpdateFiles,
			Description: "Apply an incremental file delta to an indexed project.",
			InputSchema: objectSchema([]string{"project_root"}, map[string]any{
				"project_root":      str,
				"added_or_modified": map[string]any{"type": "array"},
				"deleted":           strArray,
			}),
		},
		{
			Name:        ToolLogEvent,
			Description: "Append one lifecycle event to a project's Execution Trace Graph.",
			InputSchema: objectSchema([]string{"project_root", "kind"}, map[string]any{
				"project_root": str,
				"task_id":      str,
				"kind": map[string]any{
					"type": "string",
					"enum": []string{"task_start", "step", "tool_start", "tool_end",
						"checkpoint", "error", "task_end"},
				},
				"payload": map[string]any{"type": "object"},
			}),
		},
		{
			Name:        ToolSimilarAttempts,
			Description: "Rank past steps by similarity to a query and optional file filter.",
			InputSchema: objectSchema([]string{"project_root"}, map[string]any{
				"project_root": str,
				"query":        str,
				"file_paths":   strArray,
				"limit":        integer,
			}),
		},
		{
			Name:        ToolContextForFiles,
			Description: "Assemble a context pack (symbols, concepts, past steps) for a file set.",
			InputSchema: objectSchema([]string{"project_root", "file_paths"}, map[string]any{
				"project_root": str,
				"file_paths":   strArray,
				"radius":       integer,
			}),
		},
	}
}

// callTool dispatches a tools/call to the engine and packs the result.
func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	decode := func(req any) error {
		if err := json.Unmarshal(args, req); err != nil {
			return fmt.Errorf("%w: decode %s arguments: %v", engine.ErrValidation, name, err)
		}
		return nil
	}

	var (
		result any
		err    error
	)
	switch name {
	case ToolIndexProject:
		req := &engine.IndexProjectRequest{}
		if err = decode(req); err == nil {
			result, err = s.engine.IndexProject(ctx, req)
		}
	case ToolUpdateFiles:
		req := &engine.UpdateFilesRequest{}
		if err = decode(req); err == nil {
			result, err = s.engine.UpdateFiles(ctx, req)
		}
	case ToolLogEvent:
		req := &engine.LogEventRequest{}
		if err = decode(req); err == nil {
			result, err = s.engine.LogEvent(ctx, req)
		}
	case ToolSimilarAttempts:
		req := &engine.SimilarAttemptsRequest{}
		if err = decode(req); err == nil {
			result, err = s.engine.SimilarAttempts(ctx, req)
		}
	case ToolContextForFiles:
		req := &engine.ContextForFilesRequest{}
		if err = decode(req); err == nil {
			result, err = s.engine.ContextForFiles(ctx, req)
		}
	default:
		return nil, fmt.Errorf("%w: unknown tool %q", engine.ErrValidation, name)
	}
	if err != nil {
		return nil, err
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal %s result: %w", name, err)
	}
	return &toolResult{Content: []textContent{{Type: "text", Text: string(text)}}}, nil
}
