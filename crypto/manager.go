package crypto

import "fmt"

// Manager centralizes key pair generation, derivation and storage, the way
// the teacher's crypto.Manager centralizes export/import/rotation.
type Manager struct {
	storage KeyStorage
}

// NewManager creates a manager backed by in-memory storage; call SetStorage
// to switch to a durable backend (see storage.NewFileKeyStorage).
func NewManager() *Manager {
	return &Manager{storage: NewMemoryKeyStorage()}
}

// SetStorage swaps the key storage backend.
func (m *Manager) SetStorage(storage KeyStorage) { m.storage = storage }

// GenerateKeyPair creates a fresh random key pair of the given type.
func (m *Manager) GenerateKeyPair(keyType KeyType) (KeyPair, error) {
	switch keyType {
	case KeyTypeEd25519:
		return GenerateEd25519KeyPair()
	case KeyTypeSecp256k1:
		return GenerateSecp256k1KeyPair()
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidKeyType, keyType)
	}
}

// DeriveKeyPair derives a deterministic key pair from a mnemonic seed phrase
// and numeric derivation index, per §4.1: (seed, index) uniquely determines
// the key pair and therefore the address.
func (m *Manager) DeriveKeyPair(keyType KeyType, seedPhrase string, index uint32) (KeyPair, error) {
	switch keyType {
	case KeyTypeEd25519:
		return DeriveEd25519KeyPair(seedPhrase, index)
	case KeyTypeSecp256k1:
		return DeriveSecp256k1KeyPair(seedPhrase, index)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidKeyType, keyType)
	}
}

func (m *Manager) StoreKeyPair(keyPair KeyPair) error { return m.storage.Store(keyPair.ID(), keyPair) }
func (m *Manager) LoadKeyPair(id string) (KeyPair, error) { return m.storage.Load(id) }
func (m *Manager) DeleteKeyPair(id string) error { return m.storage.Delete(id) }
func (m *Manager) ListKeyPairs() ([]string, error) { return m.storage.List() }
