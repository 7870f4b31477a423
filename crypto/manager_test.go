package crypto_test

import (
	"testing"

	sagecrypto "github.com/agentmesh/uagents-go/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerDeriveKeyPairDeterministic(t *testing.T) {
	m := sagecrypto.NewManager()

	kp1, err := m.DeriveKeyPair(sagecrypto.KeyTypeEd25519, "alice-1", 0)
	require.NoError(t, err)
	kp2, err := m.DeriveKeyPair(sagecrypto.KeyTypeEd25519, "alice-1", 0)
	require.NoError(t, err)

	assert.Equal(t, kp1.PublicKeyBytes(), kp2.PublicKeyBytes())
}

func TestManagerStoreAndLoad(t *testing.T) {
	m := sagecrypto.NewManager()
	kp, err := m.GenerateKeyPair(sagecrypto.KeyTypeEd25519)
	require.NoError(t, err)

	require.NoError(t, m.StoreKeyPair(kp))
	loaded, err := m.LoadKeyPair(kp.ID())
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyBytes(), loaded.PublicKeyBytes())
}

func TestManagerRejectsUnsupportedType(t *testing.T) {
	m := sagecrypto.NewManager()
	_, err := m.GenerateKeyPair("rsa")
	assert.ErrorIs(t, err, sagecrypto.ErrInvalidKeyType)
}
