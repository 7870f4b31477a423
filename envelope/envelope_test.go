package envelope_test

import (
	"testing"

	"github.com/agentmesh/uagents-go/crypto/keys"
	"github.com/agentmesh/uagents-go/envelope"
	"github.com/agentmesh/uagents-go/internal/agenterr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePayloadRoundTrip(t *testing.T) {
	e := envelope.New("agent1sender", "agent1target", uuid.NewString(), "model:abc")
	e.EncodePayload(`{"message":"hi"}`)

	got, err := e.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, `{"message":"hi"}`, got)
}

func TestDecodePayloadEmptyWhenUnset(t *testing.T) {
	e := envelope.New("a", "b", uuid.NewString(), "model:abc")
	got, err := e.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	e := envelope.New("agent1sender", "agent1target", uuid.NewString(), "model:abc")
	e.EncodePayload(`{"message":"hi"}`)

	require.NoError(t, e.Sign(kp.Sign))
	assert.NotEmpty(t, e.Signature)
	assert.NoError(t, e.Verify(kp.Verify))
}

func TestVerifyFailsOnTamperedField(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	e := envelope.New("agent1sender", "agent1target", uuid.NewString(), "model:abc")
	require.NoError(t, e.Sign(kp.Sign))

	e.Target = "agent1someoneelse"
	err = e.Verify(kp.Verify)
	require.Error(t, err)
	assert.True(t, agenterr.Is(err, agenterr.KindBadSignature))
}

func TestVerifyFailsWhenMissingSignature(t *testing.T) {
	e := envelope.New("a", "b", uuid.NewString(), "model:abc")
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	err = e.Verify(kp.Verify)
	require.Error(t, err)
	assert.True(t, agenterr.Is(err, agenterr.KindBadSignature))
}

func TestDigestIndependentOfWireRepresentation(t *testing.T) {
	e1 := &envelope.Envelope{Sender: "a", Target: "b", Session: "s", SchemaDigest: "model:x"}
	e1.EncodePayload(`{"a":1}`)

	e2 := &envelope.Envelope{Version: 99, ProtocolDigest: "proto:z", Sender: "a", Target: "b", Session: "s", SchemaDigest: "model:x"}
	e2.EncodePayload(`{"a":1}`)

	d1, err := e1.Digest()
	require.NoError(t, err)
	d2, err := e2.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestUnmarshalIgnoresUnknownTopLevelKeys(t *testing.T) {
	data := []byte(`{"version":1,"sender":"a","target":"b","session":"s","schema_digest":"model:x","unexpected_field":"ignored"}`)
	e, err := envelope.UnmarshalEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, "a", e.Sender)
}
