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

// Package dispenser implements the outbound send queue of §4.10: resolve
// endpoints, POST envelopes in order, and surface delivery status while
// preserving (session, target) ordering.
package dispenser

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/agentmesh/uagents-go/envelope"
	"github.com/agentmesh/uagents-go/internal/logger"
	"github.com/agentmesh/uagents-go/internal/metrics"
	"github.com/agentmesh/uagents-go/resolver"
)

// Status is the outcome of an outbound send attempt (§4.10).
type Status struct {
	Status      string // "sent" | "delivered" | "failed"
	Detail      string
	Destination string
	Endpoint    string
	Session     string
}

const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// DefaultTimeout is the per-endpoint attempt timeout used when Send is
// given timeout <= 0; the wait for the whole send is bounded by the
// caller's ctx (§4.10, §5).
const DefaultTimeout = 30 * time.Second

// ResponseRouter routes a synchronous reply envelope either to a pending
// query future or, if none is waiting, to local dispatch.
type ResponseRouter interface {
	RouteResponse(reply *envelope.Envelope)
}

// item is one queued outbound unit: an envelope plus its resolved
// endpoints, whether a synchronous reply is expected, and where to report
// the result.
type item struct {
	env       *envelope.Envelope
	endpoints []resolver.Endpoint
	sync      bool
	timeout   time.Duration
	result    chan Status
}

// queueKey orders deliveries per (session, target): each key gets its own
// FIFO channel, so sends sharing a key are delivered in submission order,
// while sends under different keys (including different sessions to the
// same target) may interleave freely (§5).
type queueKey struct {
	session string
	target  string
}

// Dispenser drains per-(session,target) queues, attempting each envelope's
// endpoints in order until one succeeds or all are exhausted.
type Dispenser struct {
	client *http.Client
	router ResponseRouter
	log    logger.Logger

	mu     sync.Mutex
	queues map[queueKey]chan item
}

// New builds a Dispenser that routes synchronous replies through router.
func New(router ResponseRouter) *Dispenser {
	return &Dispenser{
		client: &http.Client{},
		router: router,
		log:    logger.NewDefaultLogger().WithFields(logger.String("component", "dispenser")),
		queues: make(map[queueKey]chan item),
	}
}

// Send enqueues env for delivery to endpoints and blocks until the attempt
// completes (the caller is typically itself running on a worker goroutine
// per queueKey, so blocking here only serializes that one destination).
func (d *Dispenser) Send(ctx context.Context, env *envelope.Envelope, endpoints []resolver.Endpoint, sync bool, timeout time.Duration) Status {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	key := queueKey{session: env.Session, target: env.Target}
	queue := d.queueFor(key)

	result := make(chan Status, 1)
	queue <- item{env: env, endpoints: endpoints, sync: sync, timeout: timeout, result: result}

	select {
	case status := <-result:
		return status
	case <-ctx.Done():
		return Status{Status: StatusFailed, Detail: "timeout", Destination: env.Target, Session: env.Session}
	}
}

func (d *Dispenser) queueFor(key queueKey) chan item {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queues[key]
	if !ok {
		q = make(chan item, 64)
		d.queues[key] = q
		go d.drain(q)
	}
	return q
}

// drain processes one (session,target) queue in FIFO order, guaranteeing
// submission-order delivery for that destination (§4.10/§5).
func (d *Dispenser) drain(queue chan item) {
	for it := range queue {
		it.result <- d.attempt(it)
	}
}

func (d *Dispenser) attempt(it item) Status {
	status := d.doAttempt(it)
	if status.Status == StatusFailed {
		metrics.EnvelopesSent.WithLabelValues("failed").Inc()
	} else {
		metrics.EnvelopesSent.WithLabelValues("delivered").Inc()
	}
	return status
}

func (d *Dispenser) doAttempt(it item) Status {
	if len(it.endpoints) == 0 {
		return Status{Status: StatusFailed, Detail: "no endpoints", Destination: it.env.Target, Session: it.env.Session}
	}

	data, err := it.env.MarshalCanonicalJSON()
	if err != nil {
		return Status{Status: StatusFailed, Detail: "encode error", Destination: it.env.Target, Session: it.env.Session}
	}
	metrics.EnvelopeSize.Observe(float64(len(data)))

	for _, ep := range it.endpoints {
		ctx, cancel := context.WithTimeout(context.Background(), it.timeout)
		status, ok := d.post(ctx, ep, data, it)
		cancel()
		if ok {
			return status
		}
	}
	return Status{Status: StatusFailed, Detail: "all endpoints failed", Destination: it.env.Target, Session: it.env.Session}
}

func (d *Dispenser) post(ctx context.Context, ep resolver.Endpoint, data []byte, it item) (Status, bool) {
	start := time.Now()
	connectionMode := "async"
	if it.sync {
		connectionMode = "sync"
	}
	defer func() {
		metrics.DispenseDuration.WithLabelValues(strconv.FormatBool(it.sync)).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(data))
	if err != nil {
		return Status{}, false
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-uagents-connection", connectionMode)

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn("dispenser: endpoint attempt failed", logger.String("endpoint", ep.URL), logger.Error(err))
		return Status{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Status{}, false
	}
	if resp.StatusCode >= 400 {
		return Status{Status: StatusFailed, Detail: "rejected", Destination: it.env.Target, Endpoint: ep.URL, Session: it.env.Session}, true
	}

	if it.sync {
		var reply envelope.Envelope
		if err := json.NewDecoder(resp.Body).Decode(&reply); err == nil && reply.Sender != "" {
			if d.router != nil {
				d.router.RouteResponse(&reply)
			}
		}
	}

	return Status{Status: StatusDelivered, Destination: it.env.Target, Endpoint: ep.URL, Session: it.env.Session}, true
}
