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
	"math"
	"math/rand"
	"sort"
)

// WeightedSample draws up to k endpoints without replacement using the
// Efraimidis-Spirakis algorithm (§4.5): each endpoint is assigned a key
// u^(1/w), where u is uniform(0,1) and w is its weight, and the top-k keys
// win. This reproduces weighted-without-replacement sampling with a single
// O(n log n) sort and no rejection loop.
func WeightedSample(endpoints []Endpoint, k int) []Endpoint {
	return weightedSampleRand(endpoints, k, rand.Float64)
}

// weightedSampleRand takes an injectable uniform(0,1) source so tests can
// verify the sampling distribution deterministically.
func weightedSampleRand(endpoints []Endpoint, k int, uniform func() float64) []Endpoint {
	if k <= 0 || len(endpoints) == 0 {
		return nil
	}
	if k >= len(endpoints) {
		out := make([]Endpoint, len(endpoints))
		copy(out, endpoints)
		return out
	}

	type keyed struct {
		endpoint Endpoint
		key      float64
	}
	keys := make([]keyed, len(endpoints))
	for i, e := range endpoints {
		w := e.Weight
		if w <= 0 {
			w = 1e-9
		}
		u := uniform()
		if u <= 0 {
			u = 1e-12
		}
		keys[i] = keyed{endpoint: e, key: math.Pow(u, 1/w)}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].key > keys[j].key })

	out := make([]Endpoint, k)
	for i := 0; i < k; i++ {
		out[i] = keys[i].endpoint
	}
	return out
}
