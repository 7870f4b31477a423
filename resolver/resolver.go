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
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

// Package resolver implements the identifier -> (address, endpoints)
// resolver chain (§4.5): an Almanac REST resolver, an on-chain contract
// resolver, and a name-service resolver, composed with weighted-random
// endpoint sampling.
package resolver

import (
	"context"
	"strings"
)

// Endpoint is one weighted delivery target for a resolved address.
type Endpoint struct {
	URL    string
	Weight float64
}

// Result is the outcome of a resolve: a canonical address (empty if
// unresolved) and its known endpoints.
type Result struct {
	Address   string
	Endpoints []Endpoint
}

// Resolver resolves an identifier (a bech32 address or a human name) to a
// canonical address and its endpoints. Implementations MUST return a zero
// Result (no error) if none of their sources succeed, per §4.5.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (Result, error)
}

// IsAddress reports whether identifier looks like a raw bech32 agent
// address rather than a human name, per §4.5 ("starts with agent1/
// test-agent1").
func IsAddress(identifier string) bool {
	return strings.HasPrefix(identifier, "agent1") || strings.HasPrefix(identifier, "test-agent1")
}

// Chain tries each resolver in order for address identifiers, and routes
// name identifiers through the configured name-service resolver first.
type Chain struct {
	rest        Resolver
	contract    Resolver
	nameService NameResolver
	maxEndpoints int
}

// NameResolver resolves a human name to a canonical address, per §4.5/§6.4.
type NameResolver interface {
	ResolveName(ctx context.Context, name string) (string, error)
}

// NewChain builds the default three-resolver chain. maxEndpoints bounds the
// number of endpoints returned by Resolve (default 10 when <= 0).
func NewChain(rest, contract Resolver, nameService NameResolver, maxEndpoints int) *Chain {
	if maxEndpoints <= 0 {
		maxEndpoints = 10
	}
	return &Chain{rest: rest, contract: contract, nameService: nameService, maxEndpoints: maxEndpoints}
}

// Resolve implements the chain described in §4.5: REST, then on-chain
// contract, with an optional name-service hop first for non-address
// identifiers. Endpoints are reduced to maxEndpoints via weighted sampling.
func (c *Chain) Resolve(ctx context.Context, identifier string) (Result, error) {
	address := identifier
	if !IsAddress(identifier) {
		if c.nameService == nil {
			return Result{}, nil
		}
		resolved, err := c.nameService.ResolveName(ctx, identifier)
		if err != nil || resolved == "" {
			return Result{}, nil
		}
		address = resolved
	}

	if c.rest != nil {
		if res, err := c.rest.Resolve(ctx, address); err == nil && res.Address != "" && len(res.Endpoints) > 0 {
			return c.sampled(res), nil
		}
	}
	if c.contract != nil {
		if res, err := c.contract.Resolve(ctx, address); err == nil && res.Address != "" && len(res.Endpoints) > 0 {
			return c.sampled(res), nil
		}
	}
	return Result{}, nil
}

func (c *Chain) sampled(res Result) Result {
	if len(res.Endpoints) <= c.maxEndpoints {
		return res
	}
	res.Endpoints = WeightedSample(res.Endpoints, c.maxEndpoints)
	return res
}
