// Package crypto provides agent identity key material: generation,
// deterministic derivation from a seed, signing, verification, and the
// bech32 address binding described in the address derivation spec.
package crypto

import (
	"crypto"
	"errors"
)

// KeyType identifies the signature algorithm backing a KeyPair.
type KeyType string

const (
	KeyTypeEd25519   KeyType = "Ed25519"
	KeyTypeSecp256k1 KeyType = "Secp256k1"
)

// KeyPair is an identity keypair: deterministic per (seed, index), capable
// of signing an envelope digest and exposing the bytes needed to derive an
// AgentAddress.
type KeyPair interface {
	// PublicKey returns the public key.
	PublicKey() crypto.PublicKey

	// PublicKeyBytes returns the canonical wire encoding of the public key,
	// the input to the address hash (see DeriveAddress).
	PublicKeyBytes() []byte

	// Type returns the key algorithm.
	Type() KeyType

	// Sign signs an arbitrary digest. Pure: same input always yields a
	// signature that verifies, though the signature bytes themselves may
	// vary (ed25519 is deterministic, secp256k1 recoverable signatures are
	// not required to be).
	Sign(digest []byte) ([]byte, error)

	// Verify checks a signature over digest produced by the holder of this
	// key pair's private key.
	Verify(digest, signature []byte) error

	// ID returns a short stable identifier for this key pair, derived from
	// the public key (used as the private-key-store map key).
	ID() string
}

// KeyStorage persists key pairs.
type KeyStorage interface {
	Store(id string, keyPair KeyPair) error
	Load(id string) (KeyPair, error)
	Delete(id string) error
	List() ([]string, error)
	Exists(id string) bool
}

// Common sentinel errors returned by this package and its storage backends.
var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrInvalidKeyType   = errors.New("invalid key type")
	ErrKeyExists        = errors.New("key already exists")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMissingSignature = errors.New("missing signature")
)
