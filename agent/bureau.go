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

package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/agentmesh/uagents-go/dispatcher"
	"github.com/agentmesh/uagents-go/internal/logger"
	transporthttp "github.com/agentmesh/uagents-go/transport/http"
)

// Bureau hosts several agents in one process behind a single HTTP server
// and a single inbound dispatch table, routing each envelope to the
// right agent by its target address (§4.13).
type Bureau struct {
	dispatcher *dispatcher.Dispatcher
	server     *transporthttp.Server
	log        logger.Logger
	agents     []*Agent

	cancel context.CancelFunc
}

// NewBureau builds a Bureau listening on port.
func NewBureau(port int) *Bureau {
	d := dispatcher.New()
	log := logger.NewDefaultLogger().WithFields(logger.String("component", "bureau"))
	return &Bureau{
		dispatcher: d,
		server:     transporthttp.NewServer(d, log, fmt.Sprintf(":%d", port)),
		log:        log,
	}
}

// Add installs agent a under the Bureau's shared dispatcher and HTTP
// server, replacing the per-agent server/dispatcher it was constructed
// with. Agents already added may RegisterContact each other directly
// since they share one process and one address->verifier lookup is all
// local dispatch needs.
func (b *Bureau) Add(a *Agent) {
	a.dispatcher = b.dispatcher
	a.server = b.server
	b.dispatcher.Register(a)
	b.agents = append(b.agents, a)
}

// Agents returns the Bureau's member agents, in the order they were
// added.
func (b *Bureau) Agents() []*Agent { return b.agents }

// Run starts the shared HTTP server and every member agent's background
// tasks, then blocks until ctx is cancelled (§4.13).
func (b *Bureau) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	if err := b.server.Start(); err != nil {
		return fmt.Errorf("bureau: start transport: %w", err)
	}
	for _, a := range b.agents {
		a.cancel = cancel
		a.startTasks(runCtx)
	}

	b.log.Info("bureau running", logger.Int("agents", len(b.agents)))
	<-runCtx.Done()
	return nil
}

// Shutdown cancels every member agent's background tasks and stops the
// shared HTTP server once, bounded by the slowest agent's
// ShutdownTimeout.
func (b *Bureau) Shutdown(ctx context.Context) error {
	var timeout time.Duration
	for _, a := range b.agents {
		if a.cfg.ShutdownTimeout > timeout {
			timeout = a.cfg.ShutdownTimeout
		}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if b.cancel != nil {
		b.cancel()
	}
	for _, a := range b.agents {
		a.awaitTasks(ctx)
	}
	return b.server.Stop(ctx)
}
