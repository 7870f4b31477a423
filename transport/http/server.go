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

// Package http implements the wire transport of §4.12/§6.2: POST /submit
// for inbound envelopes, HEAD /submit for readiness probing, and
// per-agent REST route registration.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/agentmesh/uagents-go/dispatcher"
	"github.com/agentmesh/uagents-go/envelope"
	"github.com/agentmesh/uagents-go/internal/agenterr"
	"github.com/agentmesh/uagents-go/internal/logger"
	"github.com/agentmesh/uagents-go/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultSyncWaitTimeout bounds how long a sync /submit POST blocks for a
// handler-produced reply before the connection gives up (§4.12/§6.2).
const DefaultSyncWaitTimeout = 30 * time.Second

// ReplyWaiter lets the transport block a sync /submit POST for a
// handler-produced reply on the inbound envelope's session, the same
// pending-future mechanism send_and_receive uses (§4.10/§4.11).
type ReplyWaiter interface {
	RegisterWait(session, schemaDigest string) <-chan *envelope.Envelope
	UnregisterWait(session string)
}

// restRoute identifies one (method, path) REST registration; §4.12
// allows at most one handler per pair per agent.
type restRoute struct {
	method string
	path   string
}

// RESTHandler answers a registered REST route with a JSON-encodable
// response or an error.
type RESTHandler func(r *http.Request) (interface{}, error)

// Server serves /submit for envelope delivery and any agent-registered
// REST routes, following the teacher's health.Server lifecycle shape:
// construct, Start, Stop(ctx).
type Server struct {
	dispatcher  *dispatcher.Dispatcher
	log         logger.Logger
	addr        string
	server      *http.Server
	metricsPath string
	waiter      ReplyWaiter

	mu     sync.RWMutex
	routes map[restRoute]RESTHandler
}

// NewServer builds a Server that routes inbound envelopes through d and
// listens on addr (e.g. ":8000"). Metrics are served at /metrics unless
// WithMetricsPath overrides it.
func NewServer(d *dispatcher.Dispatcher, log logger.Logger, addr string) *Server {
	return &Server{
		dispatcher:  d,
		log:         log,
		addr:        addr,
		metricsPath: "/metrics",
		routes:      make(map[restRoute]RESTHandler),
	}
}

// WithMetricsPath overrides the default /metrics route, or disables it
// entirely when path is empty.
func (s *Server) WithMetricsPath(path string) *Server {
	s.metricsPath = path
	return s
}

// WithReplyWaiter wires w so a sync /submit POST can block for a handler
// reply instead of acking immediately. Without it, sync POSTs fall back to
// a plain accepted ack.
func (s *Server) WithReplyWaiter(w ReplyWaiter) *Server {
	s.waiter = w
	return s
}

// RegisterREST installs handler for method and path. It returns an error
// if that (method, path) pair is already registered (§4.12).
func (s *Server) RegisterREST(method, path string, handler RESTHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := restRoute{method: method, path: path}
	if _, exists := s.routes[key]; exists {
		return agenterr.New(agenterr.KindConfig, "REST route already registered", nil).
			WithDetail("method", method).WithDetail("path", path)
	}
	s.routes[key] = handler
	return nil
}

// Handler builds the http.Handler serving /submit and registered REST
// routes, independent of Start/Stop's listener lifecycle so tests can
// drive it with httptest.NewServer directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/submit", s.handleSubmit)
	if s.metricsPath != "" {
		mux.Handle(s.metricsPath, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/", s.handleREST)
	return mux
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.log.Info("starting agent transport server", logger.String("addr", s.addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("transport server error", logger.Error(err))
		}
	}()

	return nil
}

// Stop shuts the server down, waiting up to ctx's deadline for in-flight
// requests to finish.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleSubmit implements POST /submit (deliver an envelope) and
// HEAD /submit (readiness probe, §6.2).
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
		s.submitEnvelope(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) submitEnvelope(w http.ResponseWriter, r *http.Request) {
	if err := requireJSONContentType(r); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidEnvelope", err.Error())
		return
	}

	var env envelope.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidEnvelope", "malformed envelope body")
		return
	}

	isSync := r.Header.Get("x-uagents-connection") == "sync"

	var wait <-chan *envelope.Envelope
	if isSync && s.waiter != nil {
		wait = s.waiter.RegisterWait(env.Session, env.SchemaDigest)
	}

	if err := s.dispatcher.Dispatch(&env); err != nil {
		if isSync && s.waiter != nil {
			s.waiter.UnregisterWait(env.Session)
		}
		status, reason := statusForError(err)
		writeError(w, status, reason, err.Error())
		return
	}

	if !isSync {
		w.WriteHeader(http.StatusOK)
		return
	}

	if s.waiter == nil {
		// No reply-waiter wired (e.g. a bare dispatcher in tests); fall
		// back to a plain ack rather than blocking forever.
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
		return
	}

	select {
	case reply := <-wait:
		data, err := reply.MarshalCanonicalJSON()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "InvalidEnvelope", "failed to encode reply envelope")
			return
		}
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case <-time.After(DefaultSyncWaitTimeout):
		s.waiter.UnregisterWait(env.Session)
		writeError(w, http.StatusGatewayTimeout, "DeliveryFailure", "no synchronous reply within timeout")
	}
}

// requireJSONContentType enforces §4.12: a /submit POST with a missing or
// non-JSON content-type is rejected with 400 before the body is parsed.
func requireJSONContentType(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return errors.New("missing content-type header")
	}
	media, _, err := mime.ParseMediaType(ct)
	if err != nil || media != "application/json" {
		return errors.New("content-type must be application/json")
	}
	return nil
}

// handleREST dispatches to a registered REST route, or 404s.
func (s *Server) handleREST(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	handler, ok := s.routes[restRoute{method: r.Method, path: r.URL.Path}]
	s.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	resp, err := handler(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "HandlerException", err.Error())
		return
	}

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeError emits the {error, detail} JSON body required by §4.12.
func writeError(w http.ResponseWriter, status int, reason, detail string) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason, "detail": detail})
}

func statusForError(err error) (int, string) {
	switch {
	case agenterr.Is(err, agenterr.KindBadSignature):
		return http.StatusUnauthorized, "BadSignature"
	case agenterr.Is(err, agenterr.KindNoLocalAgent):
		return http.StatusNotFound, "NoLocalAgent"
	case agenterr.Is(err, agenterr.KindInvalidEnvelope):
		return http.StatusBadRequest, "InvalidEnvelope"
	default:
		return http.StatusInternalServerError, fmt.Sprintf("%v", err)
	}
}
