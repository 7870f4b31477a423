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

package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agentmesh/uagents-go/internal/logger"
)

// AgentversePolicy registers once via an HTTPS POST to a central registry
// that internally mirrors to the on-chain contract (§4.6).
type AgentversePolicy struct {
	address      string
	registeredAt time.Time
	endpoint     string
	client       *http.Client
	log          logger.Logger
	registered   bool
}

// NewAgentversePolicy builds a policy posting to registryURL.
func NewAgentversePolicy(address, registryURL string) *AgentversePolicy {
	return &AgentversePolicy{
		address:  address,
		endpoint: registryURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      logger.NewDefaultLogger().WithFields(logger.String("component", "registration")),
	}
}

type agentverseRegisterBody struct {
	Address   string   `json:"address"`
	Endpoints []string `json:"endpoints"`
	Protocols []string `json:"protocols"`
}

// Tick registers on the first call and again once DefaultMinSecondsLeft
// has passed since the last success; changes to desired in between are
// not sent until then.
func (p *AgentversePolicy) Tick(ctx context.Context, desired Record) error {
	if p.registered && time.Since(p.registeredAt) < DefaultMinSecondsLeft {
		return nil
	}

	body, err := json.Marshal(agentverseRegisterBody{
		Address:   p.address,
		Endpoints: desired.Endpoints,
		Protocols: desired.ProtocolDigests,
	})
	if err != nil {
		return fmt.Errorf("registration: encode agentverse body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("registration: build agentverse request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("registration: agentverse POST failed, will retry next cycle", logger.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		p.log.Warn("registration: agentverse rejected registration",
			logger.Int("status", resp.StatusCode))
		return nil
	}

	p.registered = true
	p.registeredAt = time.Now()
	return nil
}
