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
	"encoding/json"
	"errors"

	"github.com/AleutianAI/dualgraph/engine"
)

// JSON-RPC 2.0 error codes, plus engine-specific codes in the
// server-defined range.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603

	codeNotFound     = -32001
	codePrecondition = -32002
	codePersistence  = -32003
)

// request is an incoming JSON-RPC 2.0 request or notification.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification reports whether the request carries no id and therefore
// expects no response.
func (r *request) isNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// response is an outgoing JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is the JSON-RPC error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// errorCode maps an engine error to its JSON-RPC code.
func errorCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return codeInvalidParams
	case errors.Is(err, engine.ErrNotFound):
		return codeNotFound
	case errors.Is(err, engine.ErrPrecondition):
		return codePrecondition
	case errors.Is(err, engine.ErrPersistence):
		return codePersistence
	default:
		return codeInternalError
	}
}
