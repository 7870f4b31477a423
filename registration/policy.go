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

// Package registration implements the agent registration policies of §4.6:
// deciding when and how to publish an agent's (endpoints, protocol_digests)
// to the Almanac.
package registration

import (
	"context"
	"time"

	"github.com/agentmesh/uagents-go/internal/agenterr"
	"github.com/agentmesh/uagents-go/internal/logger"
)

// Record is the on-chain presence record compared against on each tick.
type Record struct {
	Endpoints       []string
	ProtocolDigests []string
	Metadata        map[string]string
	ExpiresAt       time.Time
	Sequence        uint64
}

// Ledger is the on-chain contract surface consumed by the ledger-based
// policy (§6.3): query_record, get_sequence, get_registration_fee,
// get_contract_version, register.
type Ledger interface {
	QueryRecord(ctx context.Context, address string) (Record, error)
	Sequence(ctx context.Context, address string) (uint64, error)
	RegistrationFee(ctx context.Context) (uint64, error)
	ContractVersion(ctx context.Context) (string, error)
	Register(ctx context.Context, req RegisterRequest) error
}

// RegisterRequest is the signed registration transaction body (§6.3).
type RegisterRequest struct {
	Address   string
	Endpoints []string
	Protocols []string
	Sequence  uint64
	Signature []byte
}

// Wallet is the minimal balance/signing surface the ledger policy needs.
type Wallet interface {
	Balance(ctx context.Context) (uint64, error)
	Sign(digest []byte) ([]byte, error)
}

// Policy decides when and how to publish agent presence. Tick is invoked
// every registration_check_interval (default 60s, §4.13); it must not
// block longer than the caller's context allows and must never panic on a
// transient failure (§4.6/§7: logged and retried next cycle).
type Policy interface {
	Tick(ctx context.Context, desired Record) error
}

// expectedContractMajor is the semver major this client was built against;
// ContractVersionMismatch is a warning, not fatal (§4.6).
const expectedContractMajor = "1"

// DefaultMinSecondsLeft is the re-registration threshold before expiry.
const DefaultMinSecondsLeft = 24 * time.Hour

// DefaultBroadcastRetries bounds the exponential-backoff retry loop.
const DefaultBroadcastRetries = 7

// backoffBase/backoffCap implement §4.6's "starting at 0.64s, capped at
// ~32s" schedule: 0.64, 1.28, 2.56, 5.12, 10.24, 20.48, 32(capped), ...
const (
	backoffBase = 640 * time.Millisecond
	backoffCap  = 32 * time.Second
)

func backoffDelay(attempt int) time.Duration {
	d := backoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}

// LedgerPolicy is the default registration policy: broadcast a new
// registration transaction when the desired record differs from the
// on-chain one, or expiry is within minSecondsLeft.
type LedgerPolicy struct {
	address         string
	ledger          Ledger
	wallet          Wallet
	minSecondsLeft  time.Duration
	broadcastRetries int
	log             logger.Logger
}

// NewLedgerPolicy builds the default ledger-based policy for address.
func NewLedgerPolicy(address string, ledger Ledger, wallet Wallet) *LedgerPolicy {
	return &LedgerPolicy{
		address:          address,
		ledger:           ledger,
		wallet:           wallet,
		minSecondsLeft:   DefaultMinSecondsLeft,
		broadcastRetries: DefaultBroadcastRetries,
		log:              logger.NewDefaultLogger().WithFields(logger.String("component", "registration")),
	}
}

// WithMinSecondsLeft overrides the default 24h re-registration threshold.
func (p *LedgerPolicy) WithMinSecondsLeft(d time.Duration) *LedgerPolicy {
	p.minSecondsLeft = d
	return p
}

// WithBroadcastRetries overrides the default retry budget.
func (p *LedgerPolicy) WithBroadcastRetries(n int) *LedgerPolicy {
	p.broadcastRetries = n
	return p
}

// Tick compares desired against the on-chain record and broadcasts a new
// registration if needed, per §4.6.
func (p *LedgerPolicy) Tick(ctx context.Context, desired Record) error {
	if version, err := p.ledger.ContractVersion(ctx); err == nil {
		if major(version) != expectedContractMajor {
			p.log.Warn("registration: contract version mismatch",
				logger.String("contract_version", version),
				logger.String("expected_major", expectedContractMajor))
		}
	}

	current, err := p.ledger.QueryRecord(ctx, p.address)
	if err != nil {
		p.log.Warn("registration: query_record failed, will retry next cycle", logger.Error(err))
		return nil
	}

	secondsLeft := time.Until(current.ExpiresAt)
	if recordsEqual(current, desired) && secondsLeft > p.minSecondsLeft {
		return nil
	}

	return p.broadcast(ctx, desired)
}

func (p *LedgerPolicy) broadcast(ctx context.Context, desired Record) error {
	fee, err := p.ledger.RegistrationFee(ctx)
	if err != nil {
		p.log.Warn("registration: could not read registration fee, will retry next cycle", logger.Error(err))
		return nil
	}
	balance, err := p.wallet.Balance(ctx)
	if err != nil {
		p.log.Warn("registration: could not read wallet balance, will retry next cycle", logger.Error(err))
		return nil
	}
	if balance < fee {
		err := agenterr.New(agenterr.KindInsufficientFunds, "wallet balance below registration fee", nil).
			WithDetail("balance", balance).WithDetail("fee", fee)
		p.log.Error("registration failed", logger.Error(err))
		return nil
	}

	sequence, err := p.ledger.Sequence(ctx, p.address)
	if err != nil {
		p.log.Warn("registration: could not read sequence number, will retry next cycle", logger.Error(err))
		return nil
	}

	req := RegisterRequest{
		Address:   p.address,
		Endpoints: desired.Endpoints,
		Protocols: desired.ProtocolDigests,
		Sequence:  sequence,
	}

	var lastErr error
	for attempt := 0; attempt < p.broadcastRetries; attempt++ {
		sig, err := p.wallet.Sign(signBytes(req))
		if err != nil {
			return err
		}
		req.Signature = sig

		if err := p.ledger.Register(ctx, req); err == nil {
			return nil
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(attempt)):
		}
	}

	err = agenterr.New(agenterr.KindBroadcastTimeout, "registration tx not included within retry budget", lastErr)
	p.log.Error("registration failed", logger.Error(err))
	return nil
}

func recordsEqual(a, b Record) bool {
	if len(a.Endpoints) != len(b.Endpoints) || len(a.ProtocolDigests) != len(b.ProtocolDigests) {
		return false
	}
	for i := range a.Endpoints {
		if a.Endpoints[i] != b.Endpoints[i] {
			return false
		}
	}
	for i := range a.ProtocolDigests {
		if a.ProtocolDigests[i] != b.ProtocolDigests[i] {
			return false
		}
	}
	return true
}

func major(semver string) string {
	for i, c := range semver {
		if c == '.' {
			return semver[:i]
		}
	}
	return semver
}

func signBytes(req RegisterRequest) []byte {
	data := req.Address
	for _, e := range req.Endpoints {
		data += "|" + e
	}
	for _, p := range req.Protocols {
		data += "|" + p
	}
	return []byte(data)
}
