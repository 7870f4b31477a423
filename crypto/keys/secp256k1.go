package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	sagecrypto "github.com/agentmesh/uagents-go/crypto"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// secp256k1KeyPair implements KeyPair for Secp256k1 identities.
type secp256k1KeyPair struct {
	privateKey *secp256k1.PrivateKey
	publicKey  *secp256k1.PublicKey
	id         string
}

// GenerateSecp256k1KeyPair generates a fresh random Secp256k1 key pair.
func GenerateSecp256k1KeyPair() (sagecrypto.KeyPair, error) {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return newSecp256k1KeyPair(privateKey), nil
}

// DeriveSecp256k1KeyPair deterministically derives a Secp256k1 key pair from
// a seed phrase and derivation index (§4.1).
func DeriveSecp256k1KeyPair(seedPhrase string, index uint32) (sagecrypto.KeyPair, error) {
	seed := deriveSeed(seedPhrase, index, 32)
	privateKey := secp256k1.PrivKeyFromBytes(seed)
	return newSecp256k1KeyPair(privateKey), nil
}

func newSecp256k1KeyPair(privateKey *secp256k1.PrivateKey) *secp256k1KeyPair {
	publicKey := privateKey.PubKey()
	hash := sha256.Sum256(publicKey.SerializeCompressed())
	return &secp256k1KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         hex.EncodeToString(hash[:8]),
	}
}

func (kp *secp256k1KeyPair) PublicKey() crypto.PublicKey { return kp.publicKey.ToECDSA() }
func (kp *secp256k1KeyPair) PublicKeyBytes() []byte      { return kp.publicKey.SerializeCompressed() }
func (kp *secp256k1KeyPair) Type() sagecrypto.KeyType    { return sagecrypto.KeyTypeSecp256k1 }

// PrivateKeySeed exposes the 32-byte scalar for durable storage.
func (kp *secp256k1KeyPair) PrivateKeySeed() []byte {
	b := kp.privateKey.Serialize()
	return append([]byte(nil), b...)
}

// ImportSecp256k1Scalar reconstructs a key pair from a stored 32-byte scalar.
func ImportSecp256k1Scalar(scalar []byte, id string) (sagecrypto.KeyPair, error) {
	privateKey := secp256k1.PrivKeyFromBytes(scalar)
	kp := newSecp256k1KeyPair(privateKey)
	if id != "" {
		kp.id = id
	}
	return kp, nil
}

// Sign hashes digest with SHA-256 and produces a fixed-size r||s signature
// followed by one trailing byte that is always 0; it is not a computed
// recovery id.
func (kp *secp256k1KeyPair) Sign(digest []byte) ([]byte, error) {
	hash := sha256.Sum256(digest)
	r, s, err := ecdsa.Sign(rand.Reader, kp.privateKey.ToECDSA(), hash[:])
	if err != nil {
		return nil, err
	}
	return append(serializeSignature(r, s), 0), nil
}

func (kp *secp256k1KeyPair) Verify(digest, signature []byte) error {
	if len(signature) == 0 {
		return sagecrypto.ErrMissingSignature
	}
	hash := sha256.Sum256(digest)
	r, s, err := deserializeSignature(signature)
	if err != nil {
		return sagecrypto.ErrInvalidSignature
	}
	if !ecdsa.Verify(kp.publicKey.ToECDSA(), hash[:], r, s) {
		return sagecrypto.ErrInvalidSignature
	}
	return nil
}

func (kp *secp256k1KeyPair) ID() string { return kp.id }

// serializeSignature packs an ECDSA signature into a fixed 64-byte r||s form.
func serializeSignature(r, s *big.Int) []byte {
	rBytes := r.Bytes()
	sBytes := s.Bytes()
	signature := make([]byte, 64)
	copy(signature[32-len(rBytes):32], rBytes)
	copy(signature[64-len(sBytes):64], sBytes)
	return signature
}

// deserializeSignature accepts either the bare 64-byte r||s form or the
// 65-byte form with a trailing recovery byte (see Sign).
func deserializeSignature(data []byte) (*big.Int, *big.Int, error) {
	if len(data) != 64 && len(data) != 65 {
		return nil, nil, sagecrypto.ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(data[:32])
	s := new(big.Int).SetBytes(data[32:64])
	return r, s, nil
}
