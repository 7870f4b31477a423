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

// Package envelope implements the wire-format container that carries every
// message between agents: a signed, content-addressed JSON object (§3,
// §4.3, §6.1).
package envelope

import (
	"encoding/base64"
	"encoding/json"

	"github.com/agentmesh/uagents-go/internal/agenterr"
)

// CurrentVersion is the only envelope version this implementation emits.
const CurrentVersion = 1

// Envelope is the wire-format message container. Field order here matches
// the serialization order required by §3 so that encoding/json, which
// emits struct fields in declaration order, produces the documented layout.
type Envelope struct {
	Version        int    `json:"version"`
	Sender         string `json:"sender"`
	Target         string `json:"target"`
	Session        string `json:"session"`
	SchemaDigest   string `json:"schema_digest"`
	ProtocolDigest string `json:"protocol_digest,omitempty"`
	Payload        string `json:"payload,omitempty"`
	Expires        int64  `json:"expires,omitempty"`
	Nonce          uint64 `json:"nonce,omitempty"`
	Signature      string `json:"signature,omitempty"`
}

// New builds an unsigned envelope with the current version.
func New(sender, target, session, schemaDigest string) *Envelope {
	return &Envelope{
		Version:      CurrentVersion,
		Sender:       sender,
		Target:       target,
		Session:      session,
		SchemaDigest: schemaDigest,
	}
}

// EncodePayload stores body as the base64-encoded payload (§4.3).
func (e *Envelope) EncodePayload(body string) {
	e.Payload = base64.StdEncoding.EncodeToString([]byte(body))
}

// DecodePayload returns the UTF-8 decoded payload, or "" if none is set.
func (e *Envelope) DecodePayload() (string, error) {
	if e.Payload == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(e.Payload)
	if err != nil {
		return "", agenterr.New(agenterr.KindInvalidEnvelope, "payload is not valid base64", err)
	}
	return string(raw), nil
}

// payloadBytes returns the decoded payload bytes, or an empty slice if
// none is set, for use in the signing digest (§3: "payload-bytes-decoded-
// or-empty").
func (e *Envelope) payloadBytes() ([]byte, error) {
	if e.Payload == "" {
		return []byte{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(e.Payload)
	if err != nil {
		return nil, agenterr.New(agenterr.KindInvalidEnvelope, "payload is not valid base64", err)
	}
	return raw, nil
}

// MarshalCanonicalJSON serializes the envelope without added whitespace, matching
// §6.1's "MUST be serialized without added whitespace when signing".
func (e *Envelope) MarshalCanonicalJSON() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEnvelope decodes a wire-format envelope. Unknown top-level keys
// are ignored, per §4.3, because json.Unmarshal already discards fields
// with no matching struct tag.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, agenterr.New(agenterr.KindInvalidEnvelope, "malformed envelope JSON", err)
	}
	return &e, nil
}
