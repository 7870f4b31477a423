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

// Package protocol implements the Protocol bundle of §4.7: models, reply
// graph, handlers, and interval tasks, with a canonical manifest digest
// used as the on-chain protocol_digest.
package protocol

import (
	"context"
	"time"

	"github.com/agentmesh/uagents-go/internal/agenterr"
	"github.com/agentmesh/uagents-go/schema"
)

// Handler processes one inbound message. ctx is a context.Context to which
// the agent runtime attaches the handler-facing context with
// agentctx.NewContext, so this package does not import agentctx.
type Handler func(ctx context.Context, sender string, payload []byte) error

// IntervalHandler fires on a fixed period, independent of inbound traffic.
type IntervalHandler struct {
	Handler Handler
	Period  time.Duration
}

// Protocol is a named+versioned bundle of models, handlers, and the reply
// graph that constrains which schemas a handler may reply with.
type Protocol struct {
	Name    string
	Version string

	models  map[string]*schema.Model
	replies map[string]map[string]bool

	signedHandlers   map[string]Handler
	unsignedHandlers map[string]Handler

	intervalHandlers []IntervalHandler
	intervalMessages map[string]bool
}

// New builds an empty protocol bundle named name:version.
func New(name, version string) *Protocol {
	return &Protocol{
		Name:             name,
		Version:          version,
		models:           make(map[string]*schema.Model),
		replies:          make(map[string]map[string]bool),
		signedHandlers:   make(map[string]Handler),
		unsignedHandlers: make(map[string]Handler),
		intervalMessages: make(map[string]bool),
	}
}

// CanonicalName returns "name:version".
func (p *Protocol) CanonicalName() string { return p.Name + ":" + p.Version }

// RegisterModel associates a schema digest with its Model definition.
func (p *Protocol) RegisterModel(digest string, m *schema.Model) {
	p.models[digest] = m
}

// OnMessage registers a signed-message handler for the given incoming
// schema digest, and declares which outgoing schema digests it may reply
// with (the reply graph, §3/§4.7).
func (p *Protocol) OnMessage(incoming string, handler Handler, replies ...string) {
	p.signedHandlers[incoming] = handler
	p.addReplies(incoming, replies)
}

// OnUnsignedMessage registers an unsigned-message handler (accepted
// without envelope verification — used sparingly, e.g. public REST-style
// inbound traffic routed through the envelope dispatcher).
func (p *Protocol) OnUnsignedMessage(incoming string, handler Handler, replies ...string) {
	p.unsignedHandlers[incoming] = handler
	p.addReplies(incoming, replies)
}

func (p *Protocol) addReplies(incoming string, replies []string) {
	set, ok := p.replies[incoming]
	if !ok {
		set = make(map[string]bool)
		p.replies[incoming] = set
	}
	for _, r := range replies {
		set[r] = true
	}
}

// OnInterval registers a handler that fires every period, and declares the
// schema digests it may send (interval_messages, §4.7) so the dispatch
// table can pre-register them even with no inbound handler.
func (p *Protocol) OnInterval(period time.Duration, handler Handler, sends ...string) {
	p.intervalHandlers = append(p.intervalHandlers, IntervalHandler{Handler: handler, Period: period})
	for _, s := range sends {
		p.intervalMessages[s] = true
	}
}

// Handler returns the handler registered for incoming, and whether it was
// a signed- or unsigned-message registration.
func (p *Protocol) Handler(incoming string) (handler Handler, signed bool, ok bool) {
	if h, ok := p.signedHandlers[incoming]; ok {
		return h, true, true
	}
	if h, ok := p.unsignedHandlers[incoming]; ok {
		return h, false, true
	}
	return nil, false, false
}

// AllowedReplies returns the set of outgoing schema digests declared for
// an incoming schema digest.
func (p *Protocol) AllowedReplies(incoming string) map[string]bool {
	return p.replies[incoming]
}

// IntervalHandlers returns the registered interval tasks.
func (p *Protocol) IntervalHandlers() []IntervalHandler { return p.intervalHandlers }

// Merge folds other into p, following the inclusion rule of §4.7:
// conflicting handlers or models for the same schema digest fail fast with
// ProtocolConflict; reply graphs are unioned.
func (p *Protocol) Merge(other *Protocol) error {
	for digest, model := range other.models {
		if existing, ok := p.models[digest]; ok && !sameSchema(existing, model) {
			return agenterr.New(agenterr.KindProtocolConflict, "duplicated model with different schema", nil).
				WithDetail("schema_digest", digest)
		}
		p.models[digest] = model
	}
	for digest, h := range other.signedHandlers {
		if _, ok := p.signedHandlers[digest]; ok {
			return agenterr.New(agenterr.KindProtocolConflict, "two handlers registered for one schema", nil).
				WithDetail("schema_digest", digest)
		}
		p.signedHandlers[digest] = h
	}
	for digest, h := range other.unsignedHandlers {
		if _, ok := p.unsignedHandlers[digest]; ok {
			return agenterr.New(agenterr.KindProtocolConflict, "two handlers registered for one schema", nil).
				WithDetail("schema_digest", digest)
		}
		p.unsignedHandlers[digest] = h
	}
	for incoming, set := range other.replies {
		existing, ok := p.replies[incoming]
		if !ok {
			existing = make(map[string]bool)
			p.replies[incoming] = existing
		}
		for r := range set {
			existing[r] = true
		}
	}
	p.intervalHandlers = append(p.intervalHandlers, other.intervalHandlers...)
	for digest := range other.intervalMessages {
		p.intervalMessages[digest] = true
	}
	return nil
}

func sameSchema(a, b *schema.Model) bool {
	da, errA := schema.Digest(a)
	db, errB := schema.Digest(b)
	return errA == nil && errB == nil && da == db
}
