package dispatcher_test

import (
	"testing"

	"github.com/agentmesh/uagents-go/crypto/keys"
	"github.com/agentmesh/uagents-go/dispatcher"
	"github.com/agentmesh/uagents-go/envelope"
	"github.com/agentmesh/uagents-go/internal/agenterr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	address string
	verify  envelope.VerifyFunc
	inbox   []dispatcher.InboundMessage
}

func (s *fakeSink) Address() string { return s.address }
func (s *fakeSink) Enqueue(msg dispatcher.InboundMessage) { s.inbox = append(s.inbox, msg) }
func (s *fakeSink) VerifyFunc(sender string) envelope.VerifyFunc { return s.verify }

func TestDispatchEnqueuesVerifiedEnvelope(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	sink := &fakeSink{address: "agent1target", verify: kp.Verify}
	d := dispatcher.New()
	d.Register(sink)

	env := envelope.New("agent1sender", "agent1target", uuid.NewString(), "model:x")
	env.EncodePayload(`{"hello":"world"}`)
	require.NoError(t, env.Sign(kp.Sign))

	require.NoError(t, d.Dispatch(env))
	require.Len(t, sink.inbox, 1)
	assert.Equal(t, "agent1sender", sink.inbox[0].Sender)
	assert.Equal(t, `{"hello":"world"}`, sink.inbox[0].Payload)
}

func TestDispatchDropsBadSignature(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	other, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	sink := &fakeSink{address: "agent1target", verify: other.Verify}
	d := dispatcher.New()
	d.Register(sink)

	env := envelope.New("agent1sender", "agent1target", uuid.NewString(), "model:x")
	require.NoError(t, env.Sign(kp.Sign))

	err = d.Dispatch(env)
	require.Error(t, err)
	assert.True(t, agenterr.Is(err, agenterr.KindBadSignature))
	assert.Empty(t, sink.inbox)
}

func TestDispatchReturnsNoLocalAgent(t *testing.T) {
	d := dispatcher.New()
	env := envelope.New("agent1sender", "agent1nobody", uuid.NewString(), "model:x")

	err := d.Dispatch(env)
	require.Error(t, err)
	assert.True(t, agenterr.Is(err, agenterr.KindNoLocalAgent))
}

func TestDispatchDropsRedeliveredSignature(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	sink := &fakeSink{address: "agent1target", verify: kp.Verify}
	d := dispatcher.New()
	d.Register(sink)

	env := envelope.New("agent1sender", "agent1target", uuid.NewString(), "model:x")
	env.EncodePayload(`{"hello":"world"}`)
	require.NoError(t, env.Sign(kp.Sign))

	require.NoError(t, d.Dispatch(env))
	require.NoError(t, d.Dispatch(env))
	assert.Len(t, sink.inbox, 1, "a redelivered envelope with the same signature must be handled at most once")
}

func TestLocalDispatchShortCircuitsToSink(t *testing.T) {
	sink := &fakeSink{address: "agent1bob"}
	d := dispatcher.New()
	d.Register(sink)

	require.NoError(t, d.LocalDispatch("agent1alice", "agent1bob", uuid.NewString(), "model:ping", `{"text":"ping"}`))
	require.Len(t, sink.inbox, 1)
	assert.Equal(t, "agent1alice", sink.inbox[0].Sender)
}
