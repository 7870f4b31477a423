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

package dialogue

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// DeriveSealKey expands a shared secret (e.g. an ECDH output or a
// pre-shared passphrase) into a ChaCha20-Poly1305 key, following the same
// HKDF extract-then-expand construction the teacher uses for session
// traffic keys (core/session/session.go), applied here to at-rest
// encryption of a retained dialogue transcript instead of wire traffic.
func DeriveSealKey(secret []byte, dialogueName string) ([]byte, error) {
	h := hkdf.New(sha256.New, secret, nil, []byte("agentmesh/dialogue-seal/v1:"+dialogueName))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	return key, nil
}

// SealTranscript encrypts plaintext (typically a JSON-encoded slice of
// agentctx.HistoryEntry) under key, so a Storage-backed transcript can be
// retained at rest without exposing message content (§4.8's "retained
// history" is silent on encryption; this is an optional hardening, not a
// spec requirement).
func SealTranscript(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// OpenTranscript reverses SealTranscript.
func OpenTranscript(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("dialogue: sealed transcript shorter than nonce")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
