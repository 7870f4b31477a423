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

// Package agentctx implements the handler-facing Context façade of §4.11:
// the value passed to every handler, exposing agent identity, storage,
// logging, session, and the send/broadcast APIs.
package agentctx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentmesh/uagents-go/dispenser"
	"github.com/agentmesh/uagents-go/envelope"
	"github.com/agentmesh/uagents-go/internal/logger"
	"github.com/agentmesh/uagents-go/kvstore"
	"github.com/agentmesh/uagents-go/resolver"
)

// AgentView is the read-only identity surface exposed to handlers.
type AgentView struct {
	Name       string
	Address    string
	Identifier string
	Sign       envelope.SignFunc
}

// Sender resolves a destination and sends env via the dispenser; both
// Context implementations share this so InternalContext/ExternalContext
// only differ in reply-set enforcement.
type Sender interface {
	Resolve(ctx context.Context, identifier string) (resolver.Result, error)
	Send(ctx context.Context, env *envelope.Envelope, endpoints []resolver.Endpoint, sync bool, timeout time.Duration) dispenser.Status
	RegisterWait(session, schemaDigest string) <-chan *envelope.Envelope
	UnregisterWait(session string)
	AgentsByProtocol(protocolDigest string, limit int) []string
	History(session string) []HistoryEntry
}

// HistoryEntry mirrors EnvelopeHistoryEntry from §3.
type HistoryEntry struct {
	Timestamp      time.Time
	Version        int
	Sender         string
	Target         string
	Session        string
	SchemaDigest   string
	ProtocolDigest string
	Payload        string
}

// baseContext holds everything InternalContext and ExternalContext share.
type baseContext struct {
	agent   AgentView
	storage *kvstore.Store
	log     logger.Logger
	session string
	sender  Sender
}

func (c *baseContext) Agent() AgentView   { return c.agent }
func (c *baseContext) Storage() *kvstore.Store { return c.storage }
func (c *baseContext) Logger() logger.Logger   { return c.log }
func (c *baseContext) Session() string         { return c.session }

// send builds, signs, and dispatches an envelope carrying payload to
// destination, returning the resulting delivery status (§4.11 `send`).
func (c *baseContext) send(ctx context.Context, destination, schemaDigest string, payload []byte, timeout time.Duration) dispenser.Status {
	res, err := c.sender.Resolve(ctx, destination)
	if err != nil || res.Address == "" {
		return dispenser.Status{Status: dispenser.StatusFailed, Detail: "no endpoints", Destination: destination, Session: c.session}
	}

	env := envelope.New(c.agent.Address, res.Address, c.session, schemaDigest)
	env.EncodePayload(string(payload))
	if err := env.Sign(c.agent.Sign); err != nil {
		return dispenser.Status{Status: dispenser.StatusFailed, Detail: "sign error", Destination: destination, Session: c.session}
	}

	return c.sender.Send(ctx, env, res.Endpoints, false, timeout)
}

// sendAndReceive implements §4.11's blocking request/response helper: it
// registers a pending-query future keyed on the session before sending, so
// a fast reply racing the send still lands on the waiter.
func (c *baseContext) sendAndReceive(ctx context.Context, destination, schemaDigest string, payload []byte, timeout time.Duration) (*envelope.Envelope, dispenser.Status) {
	wait := c.sender.RegisterWait(c.session, "")
	status := c.send(ctx, destination, schemaDigest, payload, timeout)
	if status.Status == dispenser.StatusFailed {
		return nil, status
	}

	select {
	case reply := <-wait:
		return reply, dispenser.Status{Status: dispenser.StatusDelivered, Destination: destination, Session: c.session}
	case <-time.After(timeout):
		c.sender.UnregisterWait(c.session)
		return nil, dispenser.Status{Status: dispenser.StatusFailed, Detail: "timeout", Destination: destination, Session: c.session}
	}
}

// broadcast resolves up to limit addresses exposing protocolDigest, then
// sends concurrently (§4.11).
func (c *baseContext) broadcast(ctx context.Context, protocolDigest string, schemaDigest string, payload []byte, limit int, timeout time.Duration) []dispenser.Status {
	addresses := c.sender.AgentsByProtocol(protocolDigest, limit)
	results := make([]dispenser.Status, len(addresses))

	var wg sync.WaitGroup
	for i, addr := range addresses {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			results[i] = c.send(ctx, addr, schemaDigest, payload, timeout)
		}(i, addr)
	}
	wg.Wait()
	return results
}

func (c *baseContext) sessionHistory() []HistoryEntry {
	return c.sender.History(c.session)
}

func (c *baseContext) sendWalletMessage(destination, text, msgType string) {
	c.log.Info("wallet message sent",
		logger.String("destination", destination),
		logger.String("type", msgType),
		logger.String("text", fmt.Sprintf("%.64s", text)))
}
