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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DialogueSessionsStarted tracks sessions that traversed a starter edge.
	DialogueSessionsStarted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dialogue",
			Name:      "sessions_started_total",
			Help:      "Total number of dialogue sessions started",
		},
		[]string{"dialogue"},
	)

	// DialogueSessionsActive tracks sessions with tracked state.
	DialogueSessionsActive = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dialogue",
			Name:      "sessions_active",
			Help:      "Number of dialogue sessions with live state",
		},
		[]string{"dialogue"},
	)

	// DialogueSessionsExpired tracks idle sessions CleanupIdleSessions removed.
	DialogueSessionsExpired = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dialogue",
			Name:      "sessions_expired_total",
			Help:      "Total number of dialogue sessions evicted for being idle",
		},
		[]string{"dialogue"},
	)

	// DialogueTransitionsRejected tracks schema digests that did not match
	// any outgoing edge for a session's current state.
	DialogueTransitionsRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dialogue",
			Name:      "transitions_rejected_total",
			Help:      "Total number of messages rejected for not matching any outgoing edge",
		},
		[]string{"dialogue"},
	)
)
