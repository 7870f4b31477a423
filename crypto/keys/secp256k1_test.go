package keys

import (
	"testing"

	sagecrypto "github.com/agentmesh/uagents-go/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecp256k1KeyPair(t *testing.T) {
	t.Run("GenerateKeyPair", func(t *testing.T) {
		keyPair, err := GenerateSecp256k1KeyPair()
		require.NoError(t, err)
		assert.Equal(t, sagecrypto.KeyTypeSecp256k1, keyPair.Type())
		assert.NotNil(t, keyPair.PublicKey())
		assert.NotEmpty(t, keyPair.ID())
	})

	t.Run("SignAndVerify", func(t *testing.T) {
		keyPair, err := GenerateSecp256k1KeyPair()
		require.NoError(t, err)

		digest := []byte("hello agent")
		sig, err := keyPair.Sign(digest)
		require.NoError(t, err)
		require.NoError(t, keyPair.Verify(digest, sig))
	})

	t.Run("VerifyRejectsTamperedDigest", func(t *testing.T) {
		keyPair, err := GenerateSecp256k1KeyPair()
		require.NoError(t, err)

		digest := []byte("hello agent")
		sig, err := keyPair.Sign(digest)
		require.NoError(t, err)

		tampered := append([]byte(nil), digest...)
		tampered[0] ^= 0xFF
		require.ErrorIs(t, keyPair.Verify(tampered, sig), sagecrypto.ErrInvalidSignature)
	})

	t.Run("DeriveIsDeterministic", func(t *testing.T) {
		kp1, err := DeriveSecp256k1KeyPair("correct horse battery staple", 0)
		require.NoError(t, err)
		kp2, err := DeriveSecp256k1KeyPair("correct horse battery staple", 0)
		require.NoError(t, err)
		assert.Equal(t, kp1.PublicKeyBytes(), kp2.PublicKeyBytes())

		kp3, err := DeriveSecp256k1KeyPair("correct horse battery staple", 1)
		require.NoError(t, err)
		assert.NotEqual(t, kp1.PublicKeyBytes(), kp3.PublicKeyBytes())
	})
}
