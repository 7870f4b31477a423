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

package keys

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	sagecrypto "github.com/agentmesh/uagents-go/crypto"
)

// ed25519KeyPair implements KeyPair for Ed25519 identities.
type ed25519KeyPair struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	id         string
}

// GenerateEd25519KeyPair generates a fresh random Ed25519 key pair.
func GenerateEd25519KeyPair() (sagecrypto.KeyPair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return newEd25519KeyPair(privateKey, publicKey), nil
}

// DeriveEd25519KeyPair deterministically derives an Ed25519 key pair from a
// seed phrase and derivation index, per §4.1: identical (seed, index) always
// yields the same key pair and therefore the same AgentAddress.
func DeriveEd25519KeyPair(seedPhrase string, index uint32) (sagecrypto.KeyPair, error) {
	seed := deriveSeed(seedPhrase, index, ed25519.SeedSize)
	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey := privateKey.Public().(ed25519.PublicKey)
	return newEd25519KeyPair(privateKey, publicKey), nil
}

func newEd25519KeyPair(privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey) *ed25519KeyPair {
	hash := sha256.Sum256(publicKey)
	return &ed25519KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         hex.EncodeToString(hash[:8]),
	}
}

func (kp *ed25519KeyPair) PublicKey() crypto.PublicKey { return kp.publicKey }
func (kp *ed25519KeyPair) PublicKeyBytes() []byte      { return append([]byte(nil), kp.publicKey...) }
func (kp *ed25519KeyPair) Type() sagecrypto.KeyType    { return sagecrypto.KeyTypeEd25519 }

// PrivateKeySeed exposes the 32-byte Ed25519 seed for durable storage
// (storage.fileKeyStorage round-trips it through ImportEd25519Seed).
func (kp *ed25519KeyPair) PrivateKeySeed() []byte {
	return append([]byte(nil), kp.privateKey.Seed()...)
}

// ImportEd25519Seed reconstructs a key pair from a stored 32-byte seed.
func ImportEd25519Seed(seed []byte, id string) (sagecrypto.KeyPair, error) {
	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey := privateKey.Public().(ed25519.PublicKey)
	kp := newEd25519KeyPair(privateKey, publicKey)
	if id != "" {
		kp.id = id
	}
	return kp, nil
}

// Sign signs digest directly; Ed25519 is deterministic so repeated calls
// over the same digest yield the same signature (signing is pure, §4.1).
func (kp *ed25519KeyPair) Sign(digest []byte) ([]byte, error) {
	return ed25519.Sign(kp.privateKey, digest), nil
}

func (kp *ed25519KeyPair) Verify(digest, signature []byte) error {
	if len(signature) == 0 {
		return sagecrypto.ErrMissingSignature
	}
	if !ed25519.Verify(kp.publicKey, digest, signature) {
		return sagecrypto.ErrInvalidSignature
	}
	return nil
}

func (kp *ed25519KeyPair) ID() string { return kp.id }

// VerifyEd25519 verifies a digest/signature pair against a raw public key,
// for callers that hold only the sender's public key, not a full KeyPair.
func VerifyEd25519(publicKey ed25519.PublicKey, digest, signature []byte) error {
	if len(signature) == 0 {
		return sagecrypto.ErrMissingSignature
	}
	if !ed25519.Verify(publicKey, digest, signature) {
		return sagecrypto.ErrInvalidSignature
	}
	return nil
}
