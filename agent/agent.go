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

// Package agent implements the agent runtime of §4.13: the cooperative
// scheduler that drives interval tasks, inbound dispatch, outbound
// dispensing, and registration on top of the lower-level packages.
package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentmesh/uagents-go/agentctx"
	"github.com/agentmesh/uagents-go/crypto"
	"github.com/agentmesh/uagents-go/dialogue"
	"github.com/agentmesh/uagents-go/dispatcher"
	"github.com/agentmesh/uagents-go/dispenser"
	"github.com/agentmesh/uagents-go/envelope"
	"github.com/agentmesh/uagents-go/internal/logger"
	"github.com/agentmesh/uagents-go/internal/metrics"
	"github.com/agentmesh/uagents-go/kvstore"
	"github.com/agentmesh/uagents-go/protocol"
	"github.com/agentmesh/uagents-go/registration"
	"github.com/agentmesh/uagents-go/resolver"
	transporthttp "github.com/agentmesh/uagents-go/transport/http"
	"github.com/google/uuid"
)

// DefaultRegistrationInterval is how often the registration policy is
// ticked (§4.13).
const DefaultRegistrationInterval = 60 * time.Second

// DefaultShutdownTimeout bounds how long Shutdown waits for in-flight
// work before returning (§4.13).
const DefaultShutdownTimeout = 10 * time.Second

// DefaultDialogueCleanupInterval is how often idle dialogue sessions are
// swept (§4.8).
const DefaultDialogueCleanupInterval = time.Minute

// Config is the static configuration an Agent is built from.
type Config struct {
	Name                 string
	Endpoints            []string
	Port                 int
	Network              crypto.Network
	RegistrationInterval time.Duration
	ShutdownTimeout      time.Duration
	// StrictReplies turns an undeclared outbound reply schema into a hard
	// failure instead of a logged warning (§4.11).
	StrictReplies bool
	// MetricsEnabled controls whether the HTTP transport serves /metrics.
	// Defaults to true; set false to disable the route entirely.
	MetricsEnabled *bool
	// MetricsPath overrides the default /metrics route.
	MetricsPath string
}

func (c *Config) applyDefaults() {
	if c.RegistrationInterval <= 0 {
		c.RegistrationInterval = DefaultRegistrationInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Agent wires together an identity, the local dispatch table, the
// outbound dispenser, a resolver, a registration policy, and the HTTP
// transport into a single runnable process (§4.13).
type Agent struct {
	cfg     Config
	keyPair crypto.KeyPair
	address string

	mainProtocol *protocol.Protocol
	dialogues    []*dialogue.Dialogue

	storage    *kvstore.Store
	dispatcher *dispatcher.Dispatcher
	dispenser  *dispenser.Dispenser
	resolver   resolver.Resolver
	regPolicy  registration.Policy
	server     *transporthttp.Server

	protocolIndex   *agentctx.ProtocolIndex
	protocolDigests []string
	history         *agentctx.History

	log   logger.Logger
	inbox chan dispatcher.InboundMessage

	verifiersMu sync.RWMutex
	verifiers   map[string]envelope.VerifyFunc

	waitersMu sync.Mutex
	waiters   map[string]chan *envelope.Envelope

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an Agent identified by keyPair. storage, res, and regPolicy
// may be nil (storage becomes unavailable to handlers, no Almanac
// registration is attempted).
func New(cfg Config, keyPair crypto.KeyPair, storage *kvstore.Store, res resolver.Resolver, regPolicy registration.Policy) (*Agent, error) {
	cfg.applyDefaults()

	address, err := crypto.AddressOf(keyPair, cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("agent: derive address: %w", err)
	}

	a := &Agent{
		cfg:           cfg,
		keyPair:       keyPair,
		address:       address,
		mainProtocol:  protocol.New(cfg.Name, "1.0"),
		storage:       storage,
		dispatcher:    dispatcher.New(),
		resolver:      res,
		regPolicy:     regPolicy,
		protocolIndex: agentctx.NewProtocolIndex(),
		history:       agentctx.NewHistory(),
		log:           logger.NewDefaultLogger().WithFields(logger.String("agent", cfg.Name), logger.String("address", address)),
		inbox:         make(chan dispatcher.InboundMessage, 256),
		verifiers:     make(map[string]envelope.VerifyFunc),
		waiters:       make(map[string]chan *envelope.Envelope),
	}
	a.dispenser = dispenser.New(a)
	a.server = transporthttp.NewServer(a.dispatcher, a.log, fmt.Sprintf(":%d", cfg.Port)).WithReplyWaiter(a)
	if cfg.MetricsEnabled != nil && !*cfg.MetricsEnabled {
		a.server.WithMetricsPath("")
	} else if cfg.MetricsPath != "" {
		a.server.WithMetricsPath(cfg.MetricsPath)
	}
	a.dispatcher.Register(a)
	a.verifiers[address] = keyPair.Verify

	return a, nil
}

// Address returns the agent's bech32 AgentAddress.
func (a *Agent) Address() string { return a.address }

// Name returns the agent's human-readable name.
func (a *Agent) Name() string { return a.cfg.Name }

// Server exposes the HTTP transport so callers can register REST routes
// (§4.12) before calling Run.
func (a *Agent) Server() *transporthttp.Server { return a.server }

func (a *Agent) view() agentctx.AgentView {
	return agentctx.AgentView{Name: a.cfg.Name, Address: a.address, Identifier: a.address, Sign: a.keyPair.Sign}
}

// RegisterContact teaches the agent how to verify signed envelopes from
// address. Addresses derive from a one-way hash of the public key
// (§3/§6.6), so a verifier must be learned out of band (resolver lookup,
// manual trust, or Bureau co-location) rather than recovered from the
// address itself.
func (a *Agent) RegisterContact(address string, verify envelope.VerifyFunc) {
	a.verifiersMu.Lock()
	defer a.verifiersMu.Unlock()
	a.verifiers[address] = verify
}

// Include folds protocol p's models, handlers, and reply graph into the
// agent's effective protocol (§4.7's inclusion rule) and records p's
// manifest digest for registration and protocol-based discovery.
func (a *Agent) Include(p *protocol.Protocol) error {
	if err := a.mainProtocol.Merge(p); err != nil {
		return err
	}
	digest, err := p.Digest()
	if err != nil {
		return fmt.Errorf("agent: protocol digest: %w", err)
	}
	a.protocolDigests = append(a.protocolDigests, digest)
	a.protocolIndex.Add(digest, a.address)
	return nil
}

// IncludeDialogue folds a Dialogue's state machine in like Include, and
// additionally tracks it so Run can police per-session transitions and
// sweep idle sessions (§4.8).
func (a *Agent) IncludeDialogue(d *dialogue.Dialogue) error {
	if err := a.Include(d.Protocol); err != nil {
		return err
	}
	a.dialogues = append(a.dialogues, d)
	return nil
}

// OnMessage registers a signed-message handler on the agent's main
// protocol bundle (§4.7).
func (a *Agent) OnMessage(incoming string, h protocol.Handler, replies ...string) {
	a.mainProtocol.OnMessage(incoming, h, replies...)
}

// OnUnsignedMessage registers an unsigned-message handler.
func (a *Agent) OnUnsignedMessage(incoming string, h protocol.Handler, replies ...string) {
	a.mainProtocol.OnUnsignedMessage(incoming, h, replies...)
}

// OnInterval registers a periodic handler.
func (a *Agent) OnInterval(period time.Duration, h protocol.Handler, sends ...string) {
	a.mainProtocol.OnInterval(period, h, sends...)
}

// --- dispatcher.Sink ---

// Enqueue places an inbound message on the agent's processing queue,
// dropping it with a warning if the queue is saturated rather than
// blocking the dispatcher's caller (§4.9/§5).
func (a *Agent) Enqueue(msg dispatcher.InboundMessage) {
	select {
	case a.inbox <- msg:
	default:
		a.log.Warn("inbox saturated, dropping inbound message", logger.String("sender", msg.Sender))
	}
}

// VerifyFunc returns the verifier learned for sender, if any.
func (a *Agent) VerifyFunc(sender string) envelope.VerifyFunc {
	a.verifiersMu.RLock()
	defer a.verifiersMu.RUnlock()
	return a.verifiers[sender]
}

// --- agentctx.Sender ---

// Resolve looks the destination up: a sink sharing this process's
// dispatch table (e.g. a Bureau sibling) resolves immediately with no
// endpoints, since Send special-cases local delivery; anything else goes
// through the configured resolver chain.
func (a *Agent) Resolve(ctx context.Context, identifier string) (resolver.Result, error) {
	if _, ok := a.dispatcher.Lookup(identifier); ok {
		return resolver.Result{Address: identifier}, nil
	}
	if a.resolver == nil {
		return resolver.Result{}, nil
	}
	return a.resolver.Resolve(ctx, identifier)
}

// Send delivers env either by direct local dispatch (when the target is
// registered on this same process, e.g. inside a Bureau) or by handing
// it to the outbound dispenser.
func (a *Agent) Send(ctx context.Context, env *envelope.Envelope, endpoints []resolver.Endpoint, sync bool, timeout time.Duration) dispenser.Status {
	a.history.Record(env)

	if _, ok := a.dispatcher.Lookup(env.Target); ok {
		payload, err := env.DecodePayload()
		if err != nil {
			return dispenser.Status{Status: dispenser.StatusFailed, Detail: "decode error", Destination: env.Target, Session: env.Session}
		}
		if err := a.dispatcher.LocalDispatch(env.Sender, env.Target, env.Session, env.SchemaDigest, payload); err != nil {
			return dispenser.Status{Status: dispenser.StatusFailed, Detail: err.Error(), Destination: env.Target, Session: env.Session}
		}
		return dispenser.Status{Status: dispenser.StatusDelivered, Destination: env.Target, Session: env.Session}
	}

	return a.dispenser.Send(ctx, env, endpoints, sync, timeout)
}

// RegisterWait implements send_and_receive's pending-future registration
// (§4.11): the next envelope routed to this session via RouteResponse
// (a synchronous dispenser reply) fulfills the returned channel.
func (a *Agent) RegisterWait(session, schemaDigest string) <-chan *envelope.Envelope {
	ch := make(chan *envelope.Envelope, 1)
	a.waitersMu.Lock()
	a.waiters[session] = ch
	a.waitersMu.Unlock()
	return ch
}

// UnregisterWait cancels a pending wait registered by RegisterWait, e.g.
// after the caller's own timeout fires, so a reply that arrives afterward
// is no longer swallowed into an abandoned channel and instead falls back
// to normal dispatch via RouteResponse (§5).
func (a *Agent) UnregisterWait(session string) {
	a.waitersMu.Lock()
	delete(a.waiters, session)
	a.waitersMu.Unlock()
}

// AgentsByProtocol backs broadcast (§4.11).
func (a *Agent) AgentsByProtocol(protocolDigest string, limit int) []string {
	return a.protocolIndex.Lookup(protocolDigest, limit)
}

// History backs session_history (§4.11).
func (a *Agent) History(session string) []agentctx.HistoryEntry {
	return a.history.For(session)
}

// --- dispenser.ResponseRouter ---

// RouteResponse delivers a synchronous reply to whichever send_and_receive
// call is waiting on its session, or falls back to normal local dispatch
// if nothing is waiting (§4.10/§4.11).
func (a *Agent) RouteResponse(reply *envelope.Envelope) {
	a.waitersMu.Lock()
	ch, ok := a.waiters[reply.Session]
	if ok {
		delete(a.waiters, reply.Session)
	}
	a.waitersMu.Unlock()

	if ok {
		select {
		case ch <- reply:
		default:
		}
		return
	}
	if err := a.dispatcher.Dispatch(reply); err != nil {
		a.log.Warn("unsolicited reply could not be dispatched", logger.Error(err))
	}
}

// --- lifecycle ---

// Run starts the agent's own HTTP server plus its background tasks
// (inbound processing, interval handlers, registration loop, dialogue
// cleanup) and blocks until ctx is cancelled (§4.13). A Bureau-managed
// agent instead calls startTasks directly against a shared server.
func (a *Agent) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.server.Start(); err != nil {
		return fmt.Errorf("agent: start transport: %w", err)
	}

	a.startTasks(runCtx)

	a.log.Info("agent running")
	<-runCtx.Done()
	return nil
}

// startTasks launches the agent's background goroutines against runCtx
// without touching the HTTP server, so a Bureau can drive several agents
// off one shared server and one shared cancellation.
func (a *Agent) startTasks(runCtx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.processInbound(runCtx)
	}()

	for _, ih := range a.mainProtocol.IntervalHandlers() {
		ih := ih
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.runInterval(runCtx, ih)
		}()
	}

	if a.regPolicy != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.runRegistration(runCtx)
		}()
	}

	if len(a.dialogues) > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.runDialogueCleanup(runCtx)
		}()
	}
}

// Shutdown cancels all background tasks and stops the HTTP server,
// waiting up to ShutdownTimeout for a clean stop (§4.13).
func (a *Agent) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownTimeout)
	defer cancel()

	a.awaitTasks(shutdownCtx)
	return a.server.Stop(shutdownCtx)
}

// awaitTasks cancels the running context and waits (bounded by ctx) for
// all background goroutines to exit, without touching the HTTP server —
// the piece a Bureau reuses for each of its member agents while it alone
// owns the shared server's lifecycle.
func (a *Agent) awaitTasks(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown timed out waiting for background tasks")
	}
}

func (a *Agent) processInbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.inbox:
			a.handleInbound(ctx, msg)
		}
	}
}

func (a *Agent) handleInbound(ctx context.Context, msg dispatcher.InboundMessage) {
	edge, dlg, isDialogueMessage := a.acceptDialogue(msg.Session, msg.SchemaDigest)
	if isDialogueMessage {
		if dlg == nil {
			a.log.Warn("dialogue rejected message for current session state",
				logger.String("session", msg.Session), logger.String("schema_digest", msg.SchemaDigest))
			return
		}
		defer dlg.Advance(msg.Session, edge)
	}

	handler, _, ok := a.mainProtocol.Handler(msg.SchemaDigest)
	if !ok {
		a.log.Warn("no handler registered for schema", logger.String("schema_digest", msg.SchemaDigest))
		return
	}

	ec := agentctx.NewExternalContext(a.view(), a.storage, a.log, msg.Session, a, a.mainProtocol, msg.SchemaDigest, a.cfg.StrictReplies)
	hctx := agentctx.NewContext(ctx, ec)
	if err := handler(hctx, msg.Sender, []byte(msg.Payload)); err != nil {
		a.log.Error("handler returned error", logger.Error(err), logger.String("schema_digest", msg.SchemaDigest))
	}
}

// acceptDialogue reports whether schemaDigest belongs to one of the
// agent's included dialogues and, if so, whether the dialogue's state
// machine accepts it for this session right now.
func (a *Agent) acceptDialogue(session, schemaDigest string) (dialogue.Edge, *dialogue.Dialogue, bool) {
	for _, dlg := range a.dialogues {
		owns := false
		for _, e := range dlg.Edges() {
			if e.Model == schemaDigest {
				owns = true
				break
			}
		}
		if !owns {
			continue
		}
		edge, ok := dlg.Accept(session, schemaDigest)
		if !ok {
			metrics.DialogueTransitionsRejected.WithLabelValues(dlg.Name).Inc()
			return dialogue.Edge{}, nil, true
		}
		if edge.Starter {
			metrics.DialogueSessionsStarted.WithLabelValues(dlg.Name).Inc()
		}
		return edge, dlg, true
	}
	return dialogue.Edge{}, nil, false
}

func (a *Agent) runInterval(ctx context.Context, ih protocol.IntervalHandler) {
	ticker := time.NewTicker(ih.Period)
	defer ticker.Stop()

	var running int32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !atomic.CompareAndSwapInt32(&running, 0, 1) {
				a.log.Warn("interval handler still running, skipping tick", logger.Duration("period", ih.Period))
				continue
			}
			go func() {
				defer atomic.StoreInt32(&running, 0)
				ic := agentctx.NewInternalContext(a.view(), a.storage, a.log, uuid.NewString(), a)
				hctx := agentctx.NewContext(ctx, ic)
				if err := ih.Handler(hctx, a.address, nil); err != nil {
					a.log.Error("interval handler error", logger.Error(err))
				}
			}()
		}
	}
}

func (a *Agent) runRegistration(ctx context.Context) {
	a.register(ctx)

	ticker := time.NewTicker(a.cfg.RegistrationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.register(ctx)
		}
	}
}

func (a *Agent) register(ctx context.Context) {
	desired := registration.Record{
		Endpoints:       a.cfg.Endpoints,
		ProtocolDigests: a.protocolDigests,
		ExpiresAt:       time.Now().Add(365 * 24 * time.Hour),
	}
	if err := a.regPolicy.Tick(ctx, desired); err != nil {
		metrics.RegistrationAttempts.WithLabelValues("failure").Inc()
		a.log.Error("registration tick failed", logger.Error(err))
		return
	}
	metrics.RegistrationAttempts.WithLabelValues("success").Inc()
	metrics.RegistrationSecondsRemaining.Set(time.Until(desired.ExpiresAt).Seconds())
}

func (a *Agent) runDialogueCleanup(ctx context.Context) {
	ticker := time.NewTicker(DefaultDialogueCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, dlg := range a.dialogues {
				if n := dlg.CleanupIdleSessions(); n > 0 {
					metrics.DialogueSessionsExpired.WithLabelValues(dlg.Name).Add(float64(n))
					a.log.Info("dialogue cleanup", logger.Int("sessions_expired", n))
				}
				metrics.DialogueSessionsActive.WithLabelValues(dlg.Name).Set(float64(dlg.SessionCount()))
			}
		}
	}
}
