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
	"context"
	"time"

	"github.com/agentmesh/uagents-go/dispenser"
	"github.com/agentmesh/uagents-go/envelope"
	"github.com/agentmesh/uagents-go/internal/logger"
	"github.com/agentmesh/uagents-go/kvstore"
)

// Context is the handler-facing API shared by InternalContext and
// ExternalContext (§4.11).
type Context interface {
	Agent() AgentView
	Storage() *kvstore.Store
	Logger() logger.Logger
	Session() string
	Send(ctx context.Context, destination, schemaDigest string, payload []byte, timeout time.Duration) dispenser.Status
	SendAndReceive(ctx context.Context, destination, schemaDigest string, payload []byte, timeout time.Duration) (*envelope.Envelope, dispenser.Status)
	Broadcast(ctx context.Context, protocolDigest, schemaDigest string, payload []byte, limit int, timeout time.Duration) []dispenser.Status
	SendWalletMessage(destination, text, msgType string)
	SessionHistory() []HistoryEntry
}

// InternalContext is handed to interval handlers and to handlers invoked
// without an inbound message (e.g. startup hooks): there is no reply set
// to police, so every send is permitted (§4.11).
type InternalContext struct {
	*baseContext
}

// NewInternalContext builds a Context unconstrained by any reply set.
func NewInternalContext(agent AgentView, storage *kvstore.Store, log logger.Logger, session string, sender Sender) *InternalContext {
	return &InternalContext{baseContext: &baseContext{agent: agent, storage: storage, log: log, session: session, sender: sender}}
}

func (c *InternalContext) Send(ctx context.Context, destination, schemaDigest string, payload []byte, timeout time.Duration) dispenser.Status {
	return c.send(ctx, destination, schemaDigest, payload, timeout)
}

func (c *InternalContext) SendAndReceive(ctx context.Context, destination, schemaDigest string, payload []byte, timeout time.Duration) (*envelope.Envelope, dispenser.Status) {
	return c.sendAndReceive(ctx, destination, schemaDigest, payload, timeout)
}

func (c *InternalContext) Broadcast(ctx context.Context, protocolDigest, schemaDigest string, payload []byte, limit int, timeout time.Duration) []dispenser.Status {
	return c.broadcast(ctx, protocolDigest, schemaDigest, payload, limit, timeout)
}

func (c *InternalContext) SendWalletMessage(destination, text, msgType string) {
	c.sendWalletMessage(destination, text, msgType)
}

func (c *InternalContext) SessionHistory() []HistoryEntry { return c.sessionHistory() }

// ReplyPolicy reports which schema digests are valid replies to the
// message that's currently being handled.
type ReplyPolicy interface {
	AllowedReplies(incomingSchemaDigest string) map[string]bool
}

// ExternalContext is handed to message handlers reacting to an inbound
// envelope. It enforces that any outbound `send` uses a schema declared
// as a reply to the inbound message's schema (§4.11): off the reply
// graph, it warns unless strict mode is enabled, in which case it
// refuses to send at all.
type ExternalContext struct {
	*baseContext
	policy         ReplyPolicy
	inboundSchema  string
	strict         bool
}

// NewExternalContext builds a Context constrained to policy's declared
// replies for inboundSchema. strict turns violations into hard failures
// instead of warnings.
func NewExternalContext(agent AgentView, storage *kvstore.Store, log logger.Logger, session string, sender Sender, policy ReplyPolicy, inboundSchema string, strict bool) *ExternalContext {
	return &ExternalContext{
		baseContext:   &baseContext{agent: agent, storage: storage, log: log, session: session, sender: sender},
		policy:        policy,
		inboundSchema: inboundSchema,
		strict:        strict,
	}
}

func (c *ExternalContext) checkReply(schemaDigest string) bool {
	allowed := c.policy.AllowedReplies(c.inboundSchema)
	if len(allowed) == 0 || allowed[schemaDigest] {
		return true
	}
	if c.strict {
		return false
	}
	c.log.Warn("reply not declared for inbound message schema",
		logger.String("inbound_schema", c.inboundSchema),
		logger.String("outbound_schema", schemaDigest))
	return true
}

func (c *ExternalContext) Send(ctx context.Context, destination, schemaDigest string, payload []byte, timeout time.Duration) dispenser.Status {
	if !c.checkReply(schemaDigest) {
		return dispenser.Status{Status: dispenser.StatusFailed, Detail: "schema not in declared replies", Destination: destination, Session: c.session}
	}
	return c.send(ctx, destination, schemaDigest, payload, timeout)
}

func (c *ExternalContext) SendAndReceive(ctx context.Context, destination, schemaDigest string, payload []byte, timeout time.Duration) (*envelope.Envelope, dispenser.Status) {
	if !c.checkReply(schemaDigest) {
		return nil, dispenser.Status{Status: dispenser.StatusFailed, Detail: "schema not in declared replies", Destination: destination, Session: c.session}
	}
	return c.sendAndReceive(ctx, destination, schemaDigest, payload, timeout)
}

func (c *ExternalContext) Broadcast(ctx context.Context, protocolDigest, schemaDigest string, payload []byte, limit int, timeout time.Duration) []dispenser.Status {
	if !c.checkReply(schemaDigest) {
		return nil
	}
	return c.broadcast(ctx, protocolDigest, schemaDigest, payload, limit, timeout)
}

func (c *ExternalContext) SendWalletMessage(destination, text, msgType string) {
	c.sendWalletMessage(destination, text, msgType)
}

func (c *ExternalContext) SessionHistory() []HistoryEntry { return c.sessionHistory() }
