// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// Package dialogue implements the state-machine-constrained protocol of
// §4.8: a finite-state graph of Nodes and Edges, with per-session state
// tracking and idle-session cleanup.
package dialogue

import (
	"sync"
	"time"

	"github.com/agentmesh/uagents-go/internal/agenterr"
	"github.com/agentmesh/uagents-go/protocol"
)

// Node is a named state in the dialogue graph.
type Node struct {
	Name   string
	Root   bool
	Ender  bool
}

// Edge is a labeled transition between two nodes, carrying the message
// model that triggers it and the handler invoked on traversal.
type Edge struct {
	Name       string
	ParentNode string
	ChildNode  string
	Model      string // schema digest
	Handler    protocol.Handler
	Starter    bool
}

// DefaultSessionTTL is the idle-session retention bound (§4.8).
const DefaultSessionTTL = time.Hour

// Dialogue is a Protocol whose reply graph is the transition function of a
// finite-state graph (§4.8). Construction validates the graph once;
// thereafter sessions move through it via Accept/Advance.
type Dialogue struct {
	*protocol.Protocol

	nodes map[string]Node
	edges []Edge
	root  string

	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[string]sessionState
}

type sessionState struct {
	currentNode string
	lastActive  time.Time
}

// New builds a Dialogue from nodes and edges, validating the invariants of
// §4.8: exactly one root, every edge references known nodes, and every
// node is reachable from the root.
func New(name, version string, nodes []Node, edges []Edge) (*Dialogue, error) {
	d := &Dialogue{
		Protocol:   protocol.New(name, version),
		nodes:      make(map[string]Node),
		edges:      edges,
		sessionTTL: DefaultSessionTTL,
		sessions:   make(map[string]sessionState),
	}

	rootCount := 0
	for _, n := range nodes {
		d.nodes[n.Name] = n
		if n.Root {
			rootCount++
			d.root = n.Name
		}
	}
	if rootCount != 1 {
		return nil, agenterr.New(agenterr.KindConfig, "dialogue must have exactly one root node", nil).
			WithDetail("root_count", rootCount)
	}

	for _, e := range edges {
		if _, ok := d.nodes[e.ParentNode]; !ok {
			return nil, agenterr.New(agenterr.KindConfig, "edge references unknown parent node", nil).
				WithDetail("node", e.ParentNode)
		}
		if _, ok := d.nodes[e.ChildNode]; !ok {
			return nil, agenterr.New(agenterr.KindConfig, "edge references unknown child node", nil).
				WithDetail("node", e.ChildNode)
		}
		d.OnMessage(e.Model, e.Handler)
	}

	if err := d.checkReachability(); err != nil {
		return nil, err
	}

	d.deriveReplyGraph()
	return d, nil
}

// WithSessionTTL overrides the default 1h idle-session retention bound.
func (d *Dialogue) WithSessionTTL(ttl time.Duration) *Dialogue {
	d.sessionTTL = ttl
	return d
}

// checkReachability verifies every node is reachable from root (§4.8: "no
// deadlocks from the root").
func (d *Dialogue) checkReachability() error {
	reachable := map[string]bool{d.root: true}
	changed := true
	for changed {
		changed = false
		for _, e := range d.edges {
			if reachable[e.ParentNode] && !reachable[e.ChildNode] {
				reachable[e.ChildNode] = true
				changed = true
			}
		}
	}
	for name := range d.nodes {
		if !reachable[name] {
			return agenterr.New(agenterr.KindConfig, "node unreachable from root", nil).
				WithDetail("node", name)
		}
	}
	return nil
}

// deriveReplyGraph builds the Protocol's reply graph from outgoing edges
// per node, per §4.8: "reply sets are derived from outgoing edges, not
// declared manually."
func (d *Dialogue) deriveReplyGraph() {
	byParent := make(map[string][]Edge)
	for _, e := range d.edges {
		byParent[e.ParentNode] = append(byParent[e.ParentNode], e)
	}
	for _, e := range d.edges {
		for _, out := range byParent[e.ChildNode] {
			d.Protocol.OnMessage(e.Model, e.Handler, out.Model)
		}
	}
}

// starterEdges returns edges outgoing from the root node.
func (d *Dialogue) starterEdges() []Edge {
	var out []Edge
	for _, e := range d.edges {
		if e.ParentNode == d.root {
			out = append(out, e)
		}
	}
	return out
}

// Accept reports whether schema S may be accepted for session at its
// current state, per §4.8: "accepted iff there exists an edge
// (current_state(session), _, model=S, _)". A brand-new session may only
// accept a starter edge.
func (d *Dialogue) Accept(session, schemaDigest string) (Edge, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, exists := d.sessions[session]
	current := d.root
	if exists {
		current = state.currentNode
	}

	for _, e := range d.edges {
		if e.ParentNode != current || e.Model != schemaDigest {
			continue
		}
		if !exists && !e.Starter {
			continue
		}
		return e, true
	}
	return Edge{}, false
}

// Advance records that session traversed edge, updating current_node and
// closing the session if the resulting node is an ender state.
func (d *Dialogue) Advance(session string, edge Edge) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.nodes[edge.ChildNode].Ender {
		delete(d.sessions, session)
		return
	}
	d.sessions[session] = sessionState{currentNode: edge.ChildNode, lastActive: time.Now()}
}

// CleanupIdleSessions removes sessions idle for longer than the configured
// TTL; intended to be called periodically by a background task.
func (d *Dialogue) CleanupIdleSessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for session, state := range d.sessions {
		if time.Since(state.lastActive) > d.sessionTTL {
			delete(d.sessions, session)
			removed++
		}
	}
	return removed
}

// SessionCount reports how many sessions currently have tracked state.
func (d *Dialogue) SessionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// Edges returns the dialogue's transition table, so a runtime can learn
// which schema digests belong to this state machine (to route Accept/
// Advance calls around the Protocol's normal handler dispatch).
func (d *Dialogue) Edges() []Edge {
	out := make([]Edge, len(d.edges))
	copy(out, d.edges)
	return out
}
