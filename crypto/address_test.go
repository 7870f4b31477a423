package crypto_test

import (
	"testing"

	sagecrypto "github.com/agentmesh/uagents-go/crypto"
	"github.com/agentmesh/uagents-go/crypto/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAddressStableAndPrefixed(t *testing.T) {
	kp, err := keys.DeriveEd25519KeyPair("alice-1", 0)
	require.NoError(t, err)

	addr1, err := sagecrypto.AddressOf(kp, sagecrypto.NetworkMainnet)
	require.NoError(t, err)
	addr2, err := sagecrypto.AddressOf(kp, sagecrypto.NetworkMainnet)
	require.NoError(t, err)

	assert.Equal(t, addr1, addr2, "same key must derive the same address every time")
	assert.Regexp(t, `^agent1`, addr1)
	require.NoError(t, sagecrypto.ValidateAddress(addr1))

	testAddr, err := sagecrypto.AddressOf(kp, sagecrypto.NetworkTestnet)
	require.NoError(t, err)
	assert.Regexp(t, `^test-agent1`, testAddr)
	assert.NotEqual(t, addr1, testAddr)
}

func TestDeriveAddressDiffersByIndex(t *testing.T) {
	kp0, err := keys.DeriveEd25519KeyPair("bob-1", 0)
	require.NoError(t, err)
	kp1, err := keys.DeriveEd25519KeyPair("bob-1", 1)
	require.NoError(t, err)

	a0, err := sagecrypto.AddressOf(kp0, sagecrypto.NetworkMainnet)
	require.NoError(t, err)
	a1, err := sagecrypto.AddressOf(kp1, sagecrypto.NetworkMainnet)
	require.NoError(t, err)

	assert.NotEqual(t, a0, a1)
}

func TestValidateAddressRejectsBadChecksumAndWrongLength(t *testing.T) {
	kp, err := keys.DeriveEd25519KeyPair("carol-1", 0)
	require.NoError(t, err)
	addr, err := sagecrypto.AddressOf(kp, sagecrypto.NetworkMainnet)
	require.NoError(t, err)

	tampered := []byte(addr)
	// Flip a character in the data part, away from the "agent1" prefix.
	tampered[len(tampered)-1] ^= 0x01
	assert.Error(t, sagecrypto.ValidateAddress(string(tampered)))

	assert.Error(t, sagecrypto.ValidateAddress("agent1qqqqqqqqqqqqqqqqqq"))
}
