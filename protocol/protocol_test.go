package protocol_test

import (
	"context"
	"testing"

	"github.com/agentmesh/uagents-go/internal/agenterr"
	"github.com/agentmesh/uagents-go/protocol"
	"github.com/agentmesh/uagents-go/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, sender string, payload []byte) error { return nil }

func TestManifestDigestStableAcrossModelRegistrationOrder(t *testing.T) {
	queryModel := schema.New("Query", schema.Integer("guests"), schema.Integer("duration"))
	replyModel := schema.New("Reply", schema.String("status"))
	queryDigest, err := schema.Digest(queryModel)
	require.NoError(t, err)
	replyDigest, err := schema.Digest(replyModel)
	require.NoError(t, err)

	p1 := protocol.New("booking", "1.0")
	p1.RegisterModel(queryDigest, queryModel)
	p1.RegisterModel(replyDigest, replyModel)
	p1.OnMessage(queryDigest, noop, replyDigest)

	p2 := protocol.New("booking", "1.0")
	p2.RegisterModel(replyDigest, replyModel)
	p2.RegisterModel(queryDigest, queryModel)
	p2.OnMessage(queryDigest, noop, replyDigest)

	d1, err := p1.Digest()
	require.NoError(t, err)
	d2, err := p2.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestMergeUnionsReplyGraph(t *testing.T) {
	model := schema.New("Ping", schema.String("text"))
	digest, err := schema.Digest(model)
	require.NoError(t, err)

	a := protocol.New("p", "1.0")
	a.RegisterModel(digest, model)
	a.OnMessage(digest, noop, "model:reply-a")

	b := protocol.New("p", "1.0")
	b.RegisterModel(digest, model)
	b.OnMessage("model:other", noop, "model:reply-b")

	require.NoError(t, a.Merge(b))
	assert.True(t, a.AllowedReplies(digest)["model:reply-a"])
	_, _, ok := a.Handler("model:other")
	assert.True(t, ok)
}

func TestMergeFailsOnConflictingHandlers(t *testing.T) {
	model := schema.New("Ping", schema.String("text"))
	digest, err := schema.Digest(model)
	require.NoError(t, err)

	a := protocol.New("p", "1.0")
	a.OnMessage(digest, noop)

	b := protocol.New("p", "1.0")
	b.OnMessage(digest, noop)

	err = a.Merge(b)
	require.Error(t, err)
	assert.True(t, agenterr.Is(err, agenterr.KindProtocolConflict))
}

func TestMergeFailsOnConflictingModelSchema(t *testing.T) {
	modelA := schema.New("Thing", schema.String("a"))
	modelB := schema.New("Thing", schema.Integer("a"))

	a := protocol.New("p", "1.0")
	a.RegisterModel("model:shared", modelA)

	b := protocol.New("p", "1.0")
	b.RegisterModel("model:shared", modelB)

	err := a.Merge(b)
	require.Error(t, err)
	assert.True(t, agenterr.Is(err, agenterr.KindProtocolConflict))
}
