package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/agentmesh/uagents-go/agent"
	"github.com/agentmesh/uagents-go/agentctx"
	"github.com/agentmesh/uagents-go/crypto"
	"github.com/agentmesh/uagents-go/crypto/keys"
	"github.com/agentmesh/uagents-go/envelope"
	"github.com/agentmesh/uagents-go/protocol"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAgent(t *testing.T, name string) *agent.Agent {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	a, err := agent.New(agent.Config{Name: name, Port: 0}, kp, nil, nil, nil)
	require.NoError(t, err)
	return a
}

func TestBureauPingPongLocalDispatch(t *testing.T) {
	alice := newTestAgent(t, "alice")
	bob := newTestAgent(t, "bob")

	pongReceived := make(chan string, 1)
	alice.OnMessage("model:pong", func(ctx context.Context, sender string, payload []byte) error {
		pongReceived <- string(payload)
		return nil
	})
	bob.OnMessage("model:ping", func(ctx context.Context, sender string, payload []byte) error {
		ac, ok := agentctx.FromContext(ctx)
		if !ok {
			t.Error("handler context missing agentctx.Context")
			return nil
		}
		ac.Send(context.Background(), sender, "model:pong", []byte(`{"text":"pong"}`), time.Second)
		return nil
	}, "model:pong")

	bureau := agent.NewBureau(0)
	bureau.Add(alice)
	bureau.Add(bob)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bureau.Run(runCtx) }()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(20 * time.Millisecond) // let the HTTP listener come up

	session := uuid.NewString()
	env := envelope.New(alice.Address(), bob.Address(), session, "model:ping")
	env.EncodePayload(`{"text":"ping"}`)

	status := alice.Send(context.Background(), env, nil, false, time.Second)
	assert.Equal(t, "delivered", status.Status)

	select {
	case payload := <-pongReceived:
		assert.JSONEq(t, `{"text":"pong"}`, payload)
	case <-time.After(time.Second):
		t.Fatal("did not receive pong within timeout")
	}
}

func TestAgentAddressDerivedFromPublicKey(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	a, err := agent.New(agent.Config{Name: "solo", Port: 0}, kp, nil, nil, nil)
	require.NoError(t, err)

	want, err := crypto.AddressOf(kp, crypto.NetworkMainnet)
	require.NoError(t, err)
	assert.Equal(t, want, a.Address())
}

func TestIncludeRejectsConflictingHandlerForSameSchema(t *testing.T) {
	a := newTestAgent(t, "conflict")
	noop := func(ctx context.Context, sender string, payload []byte) error { return nil }

	p1 := protocol.New("chat", "1.0")
	p1.OnMessage("model:ping", noop)
	require.NoError(t, a.Include(p1))

	p2 := protocol.New("chat", "1.0")
	p2.OnMessage("model:ping", noop)
	assert.Error(t, a.Include(p2))
}
