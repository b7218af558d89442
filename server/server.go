// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the engine's five operations as tools over
// newline-delimited JSON-RPC 2.0 on stdio. Diagnostics never touch
// stdout; that stream carries protocol frames only.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/AleutianAI/dualgraph/engine"
)

// Protocol identity reported by initialize.
const (
	serverName      = "dualgraph"
	serverVersion   = "1.0.0"
	protocolVersion = "2024-11-05"
)

// Server runs the stdio request loop.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
}

// Option is a functional option for configuring Server.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server over the given engine.
func New(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{engine: eng, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads newline-delimited requests from r and writes responses to w
// until r is exhausted or ctx is cancelled. Malformed lines produce a
// parse-error response rather than killing the loop.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if err := enc.Encode(&response{
				JSONRPC: "2.0",
				ID:      json.RawMessage("null"),
				Error:   &rpcError{Code: codeParseError, Message: "parse error"},
			}); err != nil {
				return err
			}
			continue
		}

		resp := s.dispatch(ctx, &req)
		if resp == nil {
			continue // notification
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// dispatch routes one request. Returns nil for notifications.
func (s *Server) dispatch(ctx context.Context, req *request) *response {
	result, rpcErr := s.handle(ctx, req)
	if req.isNotification() {
		return nil
	}

	resp := &response{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr}
	if resp.ID == nil {
		resp.ID = json.RawMessage("null")
	}
	return resp
}

// handle executes one method.
func (s *Server) handle(ctx context.Context, req *request) (any, *rpcError) {
	if req.JSONRPC != "2.0" {
		return nil, &rpcError{Code: codeInvalidRequest, Message: "jsonrpc must be \"2.0\""}
	}

	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    serverName,
				"version": serverVersion,
			},
		}, nil

	case "ping":
		return map[string]any{}, nil

	case "notifications/initialized":
		return nil, nil

	case "tools/list":
		return map[string]any{"tools": toolDefinitions()}, nil

	case "roots/list":
		return map[string]any{"roots": []any{}}, nil

	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			return nil, &rpcError{Code: codeInvalidParams, Message: "tools/call requires a tool name"}
		}

		result, err := s.callTool(ctx, params.Name, params.Arguments)
		if err != nil {
			s.logger.WarnContext(ctx, "tool call failed",
				slog.String("tool", params.Name),
				slog.String("error", err.Error()))
			return nil, &rpcError{Code: errorCode(err), Message: err.Error()}
		}
		return result, nil

	default:
		return nil, &rpcError{
			Code:    codeMethodNotFound,
			Message: fmt.Sprintf("method %q not found", req.Method),
		}
	}
}
