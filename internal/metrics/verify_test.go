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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	if EnvelopesDispatched == nil {
		t.Error("EnvelopesDispatched metric is nil")
	}
	if EnvelopesSent == nil {
		t.Error("EnvelopesSent metric is nil")
	}
	if DialogueSessionsStarted == nil {
		t.Error("DialogueSessionsStarted metric is nil")
	}
	if RegistrationAttempts == nil {
		t.Error("RegistrationAttempts metric is nil")
	}
}

func TestMetricsIncrement(t *testing.T) {
	EnvelopesDispatched.WithLabelValues("delivered").Inc()
	EnvelopesSent.WithLabelValues("delivered").Inc()
	DispatchDuration.Observe(0.001)
	DispenseDuration.WithLabelValues("true").Observe(0.05)

	DialogueSessionsStarted.WithLabelValues("chitchat").Inc()
	DialogueSessionsActive.WithLabelValues("chitchat").Set(1)
	DialogueSessionsExpired.WithLabelValues("chitchat").Inc()

	SignatureVerifications.WithLabelValues("valid").Inc()
	RegistrationAttempts.WithLabelValues("success").Inc()
	RegistrationSecondsRemaining.Set(3600)

	if count := testutil.CollectAndCount(EnvelopesDispatched); count == 0 {
		t.Error("EnvelopesDispatched has no metrics collected")
	}
	if count := testutil.CollectAndCount(DialogueSessionsStarted); count == 0 {
		t.Error("DialogueSessionsStarted has no metrics collected")
	}
	if count := testutil.CollectAndCount(RegistrationAttempts); count == 0 {
		t.Error("RegistrationAttempts has no metrics collected")
	}
}
