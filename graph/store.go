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
	"fmt"
	"sort"
)

// endpointKey indexes adjacency lists by (edge type, endpoint node ID).
type endpointKey struct {
	Type EdgeType
	ID   string
}

// Store holds one project's dual graph: typed nodes, a deduplicated edge
// set, and adjacency indexes for O(degree) traversal.
//
// Store is not safe for concurrent use; the engine serializes access.
type Store struct {
	// nodes maps node ID to the node.
	nodes map[string]*Node

	// nodesByKind preserves insertion order within each kind.
	nodesByKind map[NodeKind][]*Node

	// edgeSet is the authoritative edge set, keyed by the edge value.
	edgeSet map[Edge]struct{}

	// edges preserves edge insertion order for snapshots.
	edges []Edge

	// out indexes edges by (type, from); in indexes by (type, to).
	// Neighbor IDs keep insertion order.
	out map[endpointKey][]string
	in  map[endpointKey][]string

	// nextSeq is the insertion counter assigned to new nodes.
	nextSeq uint64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		nodes:       make(map[string]*Node),
		nodesByKind: make(map[NodeKind][]*Node),
		edgeSet:     make(map[Edge]struct{}),
		out:         make(map[endpointKey][]string),
		in:          make(map[endpointKey][]string),
	}
}

// UpsertNode creates the node if absent, otherwise merges props into the
// existing node field-wise. The node's kind never changes: upserting an
// existing ID with a different kind returns ErrKindMismatch.
//
// The store takes ownership of props; callers must not mutate it after
// the call.
func (s *Store) UpsertNode(kind NodeKind, id string, props Props) (*Node, error) {
	if id == "" || props == nil {
		return nil, fmt.Errorf("%w: id=%q props=%v", ErrInvalidNode, id, props)
	}
	if props.Kind() != kind {
		return nil, fmt.Errorf("%w: props are %s, node kind is %s",
			ErrKindMismatch, props.Kind(), kind)
	}

	if existing, ok := s.nodes[id]; ok {
		if existing.Kind != kind {
			return nil, fmt.Errorf("%w: node %s is %s, upsert says %s",
				ErrKindMismatch, id, existing.Kind, kind)
		}
		if err := existing.Props.Merge(props); err != nil {
			return nil, err
		}
		return existing, nil
	}

	node := &Node{
		ID:    id,
		Kind:  kind,
		Seq:   s.nextSeq,
		Props: props,
	}
	s.nextSeq++
	s.nodes[id] = node
	s.nodesByKind[kind] = append(s.nodesByKind[kind], node)
	return node, nil
}

// Connect adds a directed typed edge. Both endpoints must already exist.
// Re-adding an existing (type, from, to) triple is a no-op.
func (s *Store) Connect(edgeType EdgeType, from, to string) error {
	if _, ok := s.nodes[from]; !ok {
		return fmt.Errorf("%w: edge source %s", ErrNodeNotFound, from)
	}
	if _, ok := s.nodes[to]; !ok {
		return fmt.Errorf("%w: edge target %s", ErrNodeNotFound, to)
	}

	e := Edge{Type: edgeType, From: from, To: to}
	if _, exists := s.edgeSet[e]; exists {
		return nil
	}
	s.edgeSet[e] = struct{}{}
	s.edges = append(s.edges, e)
	s.out[endpointKey{edgeType, from}] = append(s.out[endpointKey{edgeType, from}], to)
	s.in[endpointKey{edgeType, to}] = append(s.in[endpointKey{edgeType, to}], from)
	return nil
}

// GetNode returns the node with the given ID, if present.
func (s *Store) GetNode(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// FindNodes returns all nodes of the given kind in insertion order.
// The returned slice is a copy; the nodes themselves are shared.
func (s *Store) FindNodes(kind NodeKind) []*Node {
	src := s.nodesByKind[kind]
	out := make([]*Node, len(src))
	copy(out, src)
	return out
}

// OutNeighbors returns the IDs of nodes reachable from `from` along edges
// of the given type, in edge-insertion order.
func (s *Store) OutNeighbors(edgeType EdgeType, from string) []string {
	src := s.out[endpointKey{edgeType, from}]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// InNeighbors returns the IDs of nodes with an edge of the given type
// pointing at `to`, in edge-insertion order.
func (s *Store) InNeighbors(edgeType EdgeType, to string) []string {
	src := s.in[endpointKey{edgeType, to}]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// HasEdge reports whether the exact (type, from, to) edge exists.
func (s *Store) HasEdge(edgeType EdgeType, from, to string) bool {
	_, ok := s.edgeSet[Edge{Type: edgeType, From: from, To: to}]
	return ok
}

// NodeCount returns the total number of nodes.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the total number of edges.
func (s *Store) EdgeCount() int { return len(s.edges) }

// RemoveNode deletes the node and every edge touching it, updating the
// adjacency indexes on both sides. Removing an absent ID is a no-op.
func (s *Store) RemoveNode(id string) {
	node, ok := s.nodes[id]
	if !ok {
		return
	}

	// Collect the edges to drop before mutating anything.
	var doomed []Edge
	for _, e := range s.edges {
		if e.From == id || e.To == id {
			doomed = append(doomed, e)
		}
	}

	for _, e := range doomed {
		delete(s.edgeSet, e)
		s.out[endpointKey{e.Type, e.From}] = removeID(s.out[endpointKey{e.Type, e.From}], e.To)
		s.in[endpointKey{e.Type, e.To}] = removeID(s.in[endpointKey{e.Type, e.To}], e.From)
	}
	if len(doomed) > 0 {
		kept := s.edges[:0]
		for _, e := range s.edges {
			if e.From != id && e.To != id {
				kept = append(kept, e)
			}
		}
		s.edges = kept
	}

	delete(s.nodes, id)
	byKind := s.nodesByKind[node.Kind]
	for i, n := range byKind {
		if n.ID == id {
			s.nodesByKind[node.Kind] = append(byKind[:i], byKind[i+1:]...)
			break
		}
	}
}

// removeID drops the first occurrence of id from the slice, dropping the
// map entry's slice header in place.
func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// NodesBySeq returns every node sorted by insertion sequence. Used by the
// snapshot codec to produce a deterministic node table.
func (s *Store) NodesBySeq() []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Edges returns a copy of the edge list in insertion order.
func (s *Store) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}
