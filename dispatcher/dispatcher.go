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

// Package dispatcher implements the process-wide inbound routing table of
// §4.9: address -> agent_sink, envelope verification, and FIFO enqueue
// onto each agent's inbound queue.
package dispatcher

import (
	"sync"
	"time"

	"github.com/agentmesh/uagents-go/envelope"
	"github.com/agentmesh/uagents-go/internal/agenterr"
	"github.com/agentmesh/uagents-go/internal/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// dedupCacheSize bounds the at-most-once signature cache (§8); beyond this
// many distinct signatures the oldest are evicted regardless of age.
const dedupCacheSize = 8192

// dedupTTL is how long a signature is remembered for redelivery detection.
const dedupTTL = 5 * time.Minute

// InboundMessage is what the dispatcher places on an agent's inbound
// queue: (sender, schema_digest, payload_string, session), per §4.9.
type InboundMessage struct {
	Sender       string
	SchemaDigest string
	Payload      string
	Session      string
}

// Sink receives inbound messages routed to one local agent.
type Sink interface {
	Address() string
	Enqueue(msg InboundMessage)
	// VerifyFunc returns the verification function bound to this agent's
	// sender-recovery logic, or nil when none is available. With nil,
	// unsigned envelopes are still accepted but a signed envelope is
	// rejected as BadSignature.
	VerifyFunc(sender string) envelope.VerifyFunc
}

// Dispatcher routes inbound envelopes to the correct local agent sink.
// The table is written once at startup and read concurrently thereafter
// (§5), so reads take the RLock fast path.
type Dispatcher struct {
	mu    sync.RWMutex
	sinks map[string]Sink

	// seen remembers signatures of recently dispatched signed envelopes so
	// a redelivered envelope is handled at most once (§8).
	seen *expirable.LRU[string, struct{}]
}

// New builds an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		sinks: make(map[string]Sink),
		seen:  expirable.NewLRU[string, struct{}](dedupCacheSize, nil, dedupTTL),
	}
}

// Register installs sink under its own address. Safe to call after
// startup if the implementation supports hot-including protocols (§5),
// protected by the same lock readers use.
func (d *Dispatcher) Register(sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[sink.Address()] = sink
}

// Unregister removes a previously registered sink.
func (d *Dispatcher) Unregister(address string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sinks, address)
}

// Lookup returns the sink registered for address, if any.
func (d *Dispatcher) Lookup(address string) (Sink, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sink, ok := d.sinks[address]
	return sink, ok
}

// Dispatch implements the four steps of §4.9: verify if signed, look up
// the target sink, enqueue, return. It never blocks on handler execution;
// the runtime drains each agent's queue independently.
func (d *Dispatcher) Dispatch(env *envelope.Envelope) error {
	start := time.Now()
	defer func() { metrics.DispatchDuration.Observe(time.Since(start).Seconds()) }()

	sink, ok := d.Lookup(env.Target)
	if !ok {
		metrics.EnvelopesDispatched.WithLabelValues("no_handler").Inc()
		return agenterr.New(agenterr.KindNoLocalAgent, "no local agent for target address", nil).
			WithDetail("target", env.Target)
	}

	if env.Signature != "" {
		verify := sink.VerifyFunc(env.Sender)
		if verify == nil {
			metrics.EnvelopesDispatched.WithLabelValues("bad_signature").Inc()
			metrics.SignatureVerifications.WithLabelValues("invalid").Inc()
			return agenterr.New(agenterr.KindBadSignature, "agent has no verifier for sender", nil).
				WithDetail("sender", env.Sender)
		}
		if err := env.Verify(verify); err != nil {
			metrics.EnvelopesDispatched.WithLabelValues("bad_signature").Inc()
			metrics.SignatureVerifications.WithLabelValues("invalid").Inc()
			return err
		}
		metrics.SignatureVerifications.WithLabelValues("valid").Inc()

		if _, dup := d.seen.Get(env.Signature); dup {
			metrics.EnvelopesDispatched.WithLabelValues("duplicate").Inc()
			return nil
		}
		d.seen.Add(env.Signature, struct{}{})
	} else {
		metrics.SignatureVerifications.WithLabelValues("unsigned").Inc()
	}

	payload, err := env.DecodePayload()
	if err != nil {
		metrics.EnvelopesDispatched.WithLabelValues("no_handler").Inc()
		return err
	}

	sink.Enqueue(InboundMessage{
		Sender:       env.Sender,
		SchemaDigest: env.SchemaDigest,
		Payload:      payload,
		Session:      env.Session,
	})
	metrics.EnvelopesDispatched.WithLabelValues("delivered").Inc()
	return nil
}

// LocalDispatch bypasses HTTP entirely: both sender and target are owned
// by the same process (e.g. a Bureau), so it synthesizes an envelope and
// dispatches it directly (§4.9).
func (d *Dispatcher) LocalDispatch(sender, target, session, schemaDigest, payload string) error {
	env := envelope.New(sender, target, session, schemaDigest)
	if payload != "" {
		env.EncodePayload(payload)
	}
	sink, ok := d.Lookup(target)
	if !ok {
		return agenterr.New(agenterr.KindNoLocalAgent, "no local agent for target address", nil).
			WithDetail("target", target)
	}
	decoded, err := env.DecodePayload()
	if err != nil {
		return err
	}
	sink.Enqueue(InboundMessage{Sender: sender, SchemaDigest: schemaDigest, Payload: decoded, Session: session})
	return nil
}
