// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/dualgraph/contextpack"
	"github.com/AleutianAI/dualgraph/etg"
	"github.com/AleutianAI/dualgraph/indexer"
)

// Defaults applied to optional request fields.
const (
	// DefaultSimilarLimit is the result limit when the caller passes 0.
	DefaultSimilarLimit = 5

	// DefaultContextRadius is the hop radius when the caller passes 0.
	DefaultContextRadius = 1
)

// IndexProjectRequest asks for a full Code Graph build.
type IndexProjectRequest struct {
	ProjectRoot string              `json:"project_root" validate:"required"`
	Files       []indexer.FileInput `json:"files"`
}

// UpdateFilesRequest asks for an incremental Code Graph update. Modified
// entries arrive as full descriptors because the engine never reads the
// filesystem itself.
type UpdateFilesRequest struct {
	ProjectRoot     string              `json:"project_root" validate:"required"`
	AddedOrModified []indexer.FileInput `json:"added_or_modified"`
	Deleted         []string            `json:"deleted"`
}

// LogEventRequest appends one lifecycle event. Payload is decoded into
// the typed payload selected by Kind.
type LogEventRequest struct {
	ProjectRoot string          `json:"project_root" validate:"required"`
	TaskID      string          `json:"task_id"`
	Kind        string          `json:"kind" validate:"required"`
	Payload     json.RawMessage `json:"payload"`
}

// SimilarAttemptsRequest ranks past steps against a query.
type SimilarAttemptsRequest struct {
	ProjectRoot string   `json:"project_root" validate:"required"`
	Query       string   `json:"query"`
	FilePaths   []string `json:"file_paths"`
	Limit       int      `json:"limit" validate:"min=0,max=100"`
}

// ContextForFilesRequest assembles a context pack for a file set.
type ContextForFilesRequest struct {
	ProjectRoot string   `json:"project_root" validate:"required"`
	FilePaths   []string `json:"file_paths" validate:"required,min=1"`
	Radius      int      `json:"radius" validate:"min=0,max=5"`
}

// ContextForFilesResponse pairs the structured pack with its rendering.
type ContextForFilesResponse struct {
	ContextPack   *contextpack.Pack `json:"context_pack"`
	ReturnDisplay string            `json:"returnDisplay"`
}

// decodeEventPayload turns a raw JSON payload into the typed payload for
// the named kind. Unknown kinds and malformed JSON wrap ErrValidation.
func decodeEventPayload(kind string, raw json.RawMessage) (etg.Payload, error) {
	var payload etg.Payload
	switch etg.ParseEventKind(kind) {
	case etg.EventTaskStart:
		payload = &etg.TaskStartPayload{}
	case etg.EventStep:
		payload = &etg.StepPayload{}
	case etg.EventToolStart:
		payload = &etg.ToolStartPayload{}
	case etg.EventToolEnd:
		payload = &etg.ToolEndPayload{}
	case etg.EventCheckpoint:
		payload = &etg.CheckpointPayload{}
	case etg.EventError:
		payload = &etg.ErrorPayload{}
	case etg.EventTaskEnd:
		payload = &etg.TaskEndPayload{}
	default:
		return nil, fmt.Errorf("%w: unknown event kind %q", ErrValidation, kind)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, payload); err != nil {
			return nil, fmt.Errorf("%w: decode %s payload: %v", ErrValidation, kind, err)
		}
	}
	return payload, nil
}
