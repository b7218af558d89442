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
	"encoding/json"
	"fmt"
)

// snapshotVersion is bumped when the snapshot layout changes shape.
const snapshotVersion = 1

// snapshotNode is the wire form of a node. Kind and edge types travel as
// their string names so snapshots survive enum renumbering.
type snapshotNode struct {
	ID    string          `json:"id"`
	Kind  string          `json:"kind"`
	Seq   uint64          `json:"seq"`
	Props json.RawMessage `json:"props"`
}

// snapshotEdge is the wire form of an edge.
type snapshotEdge struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

// snapshotDoc is the full serialized graph document.
type snapshotDoc struct {
	Version int            `json:"version"`
	Nodes   []snapshotNode `json:"nodes"`
	Edges   []snapshotEdge `json:"edges"`
}

// Snapshot serializes the graph as a single JSON document. Nodes are
// ordered by insertion sequence and edges by insertion order, so the same
// graph always produces the same bytes.
func (s *Store) Snapshot() ([]byte, error) {
	doc := snapshotDoc{
		Version: snapshotVersion,
		Nodes:   make([]snapshotNode, 0, len(s.nodes)),
		Edges:   make([]snapshotEdge, 0, len(s.edges)),
	}

	for _, n := range s.NodesBySeq() {
		raw, err := json.Marshal(n.Props)
		if err != nil {
			return nil, fmt.Errorf("marshal props for node %s: %w", n.ID, err)
		}
		doc.Nodes = append(doc.Nodes, snapshotNode{
			ID:    n.ID,
			Kind:  n.Kind.String(),
			Seq:   n.Seq,
			Props: raw,
		})
	}
	for _, e := range s.edges {
		doc.Edges = append(doc.Edges, snapshotEdge{
			Type: e.Type.String(),
			From: e.From,
			To:   e.To,
		})
	}

	return json.Marshal(doc)
}

// RestoreSnapshot rebuilds a Store from a document produced by Snapshot.
// Unknown node kinds or edge types return ErrUnknownKind rather than
// silently dropping data.
func RestoreSnapshot(data []byte) (*Store, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	s := NewStore()
	for _, sn := range doc.Nodes {
		kind := ParseNodeKind(sn.Kind)
		if kind == KindUnknown {
			return nil, fmt.Errorf("%w: node kind %q", ErrUnknownKind, sn.Kind)
		}
		props, err := decodeProps(kind, sn.Props)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", sn.ID, err)
		}
		node := &Node{ID: sn.ID, Kind: kind, Seq: sn.Seq, Props: props}
		s.nodes[sn.ID] = node
		s.nodesByKind[kind] = append(s.nodesByKind[kind], node)
		if sn.Seq >= s.nextSeq {
			s.nextSeq = sn.Seq + 1
		}
	}
	for _, se := range doc.Edges {
		t := ParseEdgeType(se.Type)
		if t == EdgeTypeUnknown {
			return nil, fmt.Errorf("%w: edge type %q", ErrUnknownKind, se.Type)
		}
		if err := s.Connect(t, se.From, se.To); err != nil {
			return nil, fmt.Errorf("restore edge %s %s->%s: %w", se.Type, se.From, se.To, err)
		}
	}
	return s, nil
}

// decodeProps unmarshals raw props into the concrete struct for the kind.
func decodeProps(kind NodeKind, raw json.RawMessage) (Props, error) {
	var props Props
	switch kind {
	case KindProject:
		props = &ProjectProps{}
	case KindDirectory:
		props = &DirectoryProps{}
	case KindFile:
		props = &FileProps{}
	case KindSymbol:
		props = &SymbolProps{}
	case KindConcept:
		props = &ConceptProps{}
	case KindTask:
		props = &TaskProps{}
	case KindStep:
		props = &StepProps{}
	case KindToolInvocation:
		props = &ToolProps{}
	case KindCheckpoint:
		props = &CheckpointProps{}
	case KindError:
		props = &ErrorProps{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err := json.Unmarshal(raw, props); err != nil {
		return nil, fmt.Errorf("unmarshal %s props: %w", kind, err)
	}
	return props, nil
}
