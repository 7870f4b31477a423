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

package agentctx

import (
	"sync"
	"time"

	"github.com/agentmesh/uagents-go/envelope"
)

// ProtocolIndex answers "which addresses support this protocol digest",
// backing Sender.AgentsByProtocol. Each Agent keeps its own index, to
// which Include adds the agent's own address for each included protocol's
// digest; no other agents' addresses are added, in a Bureau either.
type ProtocolIndex struct {
	mu      sync.RWMutex
	byDigest map[string][]string
}

// NewProtocolIndex builds an empty index.
func NewProtocolIndex() *ProtocolIndex {
	return &ProtocolIndex{byDigest: make(map[string][]string)}
}

// Add records that address exposes protocolDigest.
func (p *ProtocolIndex) Add(protocolDigest, address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.byDigest[protocolDigest] {
		if existing == address {
			return
		}
	}
	p.byDigest[protocolDigest] = append(p.byDigest[protocolDigest], address)
}

// Lookup returns up to limit addresses exposing protocolDigest (limit<=0
// means unbounded).
func (p *ProtocolIndex) Lookup(protocolDigest string, limit int) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	all := p.byDigest[protocolDigest]
	if limit <= 0 || limit >= len(all) {
		out := make([]string, len(all))
		copy(out, all)
		return out
	}
	out := make([]string, limit)
	copy(out, all[:limit])
	return out
}

// History is an in-memory, per-session envelope log backing
// Sender.History (§3 EnvelopeHistoryEntry). It is intentionally simple:
// a bounded ring would be the production choice, but the spec only
// requires retrieval by session.
type History struct {
	mu      sync.Mutex
	entries map[string][]HistoryEntry
}

// NewHistory builds an empty session history log.
func NewHistory() *History {
	return &History{entries: make(map[string][]HistoryEntry)}
}

// Record appends env to its session's history.
func (h *History) Record(env *envelope.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[env.Session] = append(h.entries[env.Session], HistoryEntry{
		Timestamp:      time.Now(),
		Version:        env.Version,
		Sender:         env.Sender,
		Target:         env.Target,
		Session:        env.Session,
		SchemaDigest:   env.SchemaDigest,
		ProtocolDigest: env.ProtocolDigest,
		Payload:        env.Payload,
	})
}

// For returns the recorded history for session, oldest first.
func (h *History) For(session string) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries[session]))
	copy(out, h.entries[session])
	return out
}
