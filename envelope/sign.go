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

package envelope

import (
	"crypto/sha256"

	"github.com/agentmesh/uagents-go/internal/agenterr"
)

// SignFunc signs an arbitrary digest and returns the signature bytes; it is
// satisfied by crypto.KeyPair.Sign.
type SignFunc func(digest []byte) ([]byte, error)

// VerifyFunc verifies a signature over a digest against a known public key;
// it is satisfied by crypto.KeyPair.Verify, or by a closure that binds a
// public key into keys.VerifyEd25519.
type VerifyFunc func(digest, signature []byte) error

// digest computes sha256 over sender || target || decoded-payload-bytes ||
// session || schema_digest, in that exact order (§3). The signature covers
// this digest, not the full JSON encoding, so it is representation
// independent of field order, base64 padding, or key ordering on the wire.
func (e *Envelope) digest() ([]byte, error) {
	payload, err := e.payloadBytes()
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	h.Write([]byte(e.Sender))
	h.Write([]byte(e.Target))
	h.Write(payload)
	h.Write([]byte(e.Session))
	h.Write([]byte(e.SchemaDigest))
	return h.Sum(nil), nil
}

// Digest exposes the signing digest for callers that need to sign out of
// band (e.g. a hardware wallet flow).
func (e *Envelope) Digest() ([]byte, error) { return e.digest() }

// Sign computes the envelope's digest and signs it with sign, storing the
// resulting signature on the envelope.
func (e *Envelope) Sign(sign SignFunc) error {
	digest, err := e.digest()
	if err != nil {
		return err
	}
	sig, err := sign(digest)
	if err != nil {
		return agenterr.New(agenterr.KindInvalidEnvelope, "signing failed", err)
	}
	e.Signature = encodeSignature(sig)
	return nil
}

// Verify recomputes the digest and checks it against the envelope's stored
// signature using verify, which the caller must have bound to Sender's
// public key. A missing, malformed or non-verifying signature all return a
// KindBadSignature error; the missing case carries the detail
// reason=MissingSignature (§4.3).
func (e *Envelope) Verify(verify VerifyFunc) error {
	if e.Signature == "" {
		return agenterr.New(agenterr.KindBadSignature, "missing signature", nil).WithDetail("reason", "MissingSignature")
	}
	digest, err := e.digest()
	if err != nil {
		return err
	}
	sig, err := decodeSignature(e.Signature)
	if err != nil {
		return agenterr.New(agenterr.KindBadSignature, "malformed signature", err)
	}
	if err := verify(digest, sig); err != nil {
		return agenterr.New(agenterr.KindBadSignature, "signature verification failed", err)
	}
	return nil
}
