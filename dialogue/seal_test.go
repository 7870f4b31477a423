package dialogue_test

import (
	"testing"

	"github.com/agentmesh/uagents-go/dialogue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealTranscriptRoundTrips(t *testing.T) {
	key, err := dialogue.DeriveSealKey([]byte("shared-secret"), "chitchat")
	require.NoError(t, err)

	plaintext := []byte(`[{"session":"abc","schema":"model:greet"}]`)
	sealed, err := dialogue.SealTranscript(key, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := dialogue.OpenTranscript(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpenTranscriptFailsWithWrongKey(t *testing.T) {
	key1, err := dialogue.DeriveSealKey([]byte("secret-one"), "chitchat")
	require.NoError(t, err)
	key2, err := dialogue.DeriveSealKey([]byte("secret-two"), "chitchat")
	require.NoError(t, err)

	sealed, err := dialogue.SealTranscript(key1, []byte("hello"))
	require.NoError(t, err)

	_, err = dialogue.OpenTranscript(key2, sealed)
	assert.Error(t, err)
}

func TestDeriveSealKeyIsDeterministicPerDialogueName(t *testing.T) {
	k1, err := dialogue.DeriveSealKey([]byte("secret"), "chitchat")
	require.NoError(t, err)
	k2, err := dialogue.DeriveSealKey([]byte("secret"), "chitchat")
	require.NoError(t, err)
	k3, err := dialogue.DeriveSealKey([]byte("secret"), "negotiation")
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}
