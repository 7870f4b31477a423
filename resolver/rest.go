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

package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"time"
)

// almanacRecord mirrors the JSON shape returned by the Almanac REST API
// for GET /agents/{address} (§6.3).
type almanacRecord struct {
	Address   string              `json:"address"`
	Endpoints []almanacEndpointDTO `json:"endpoints"`
}

type almanacEndpointDTO struct {
	URL    string  `json:"url"`
	Weight float64 `json:"weight"`
}

// RESTResolver queries the Almanac REST API for an address's record.
type RESTResolver struct {
	baseURL string
	client  *http.Client
}

// NewRESTResolver builds a resolver against baseURL (e.g.
// "https://almanac.example.com"). A zero-value timeout uses 10s.
func NewRESTResolver(baseURL string, timeout time.Duration) *RESTResolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTResolver{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

// Resolve issues GET {baseURL}/agents/{address}. Per §4.5, any of {network
// error, 4xx, empty endpoints} is treated as "this resolver has nothing" —
// the chain falls back, it does not surface the error.
func (r *RESTResolver) Resolve(ctx context.Context, address string) (Result, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return Result{}, nil
	}
	u.Path = path.Join(u.Path, "agents", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, nil
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Result{}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Result{}, nil
	}

	var rec almanacRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return Result{}, nil
	}
	if len(rec.Endpoints) == 0 {
		return Result{}, nil
	}

	endpoints := make([]Endpoint, len(rec.Endpoints))
	for i, e := range rec.Endpoints {
		endpoints[i] = Endpoint{URL: e.URL, Weight: e.Weight}
	}
	return Result{Address: rec.Address, Endpoints: endpoints}, nil
}
