package dialogue_test

import (
	"context"
	"testing"

	"github.com/agentmesh/uagents-go/dialogue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, sender string, payload []byte) error { return nil }

func threeStateDialogue(t *testing.T) *dialogue.Dialogue {
	nodes := []dialogue.Node{
		{Name: "start", Root: true},
		{Name: "working"},
		{Name: "end", Ender: true},
	}
	edges := []dialogue.Edge{
		{Name: "init", ParentNode: "start", ChildNode: "working", Model: "model:init", Handler: noop, Starter: true},
		{Name: "close", ParentNode: "working", ChildNode: "end", Model: "model:close", Handler: noop},
	}
	d, err := dialogue.New("booking", "1.0", nodes, edges)
	require.NoError(t, err)
	return d
}

// TestDialogueEnforcementRejectsCloseWithoutInit reproduces scenario 5:
// sending Close without a prior Init in a new session is rejected.
func TestDialogueEnforcementRejectsCloseWithoutInit(t *testing.T) {
	d := threeStateDialogue(t)
	_, ok := d.Accept("session-1", "model:close")
	assert.False(t, ok)
}

func TestDialogueCompletesAndClearsSessionState(t *testing.T) {
	d := threeStateDialogue(t)

	edge, ok := d.Accept("session-2", "model:init")
	require.True(t, ok)
	d.Advance("session-2", edge)
	assert.Equal(t, 1, d.SessionCount())

	edge, ok = d.Accept("session-2", "model:close")
	require.True(t, ok)
	d.Advance("session-2", edge)
	assert.Equal(t, 0, d.SessionCount())
}

func TestDialogueAcceptsStarterEdgeForNewSession(t *testing.T) {
	d := threeStateDialogue(t)
	_, ok := d.Accept("brand-new-session", "model:init")
	assert.True(t, ok, "init is the starter edge and must be accepted for a new session")
}

func TestNewRejectsGraphWithoutExactlyOneRoot(t *testing.T) {
	nodes := []dialogue.Node{{Name: "a", Root: true}, {Name: "b", Root: true}}
	edges := []dialogue.Edge{{Name: "x", ParentNode: "a", ChildNode: "b", Model: "model:x", Handler: noop}}
	_, err := dialogue.New("p", "1.0", nodes, edges)
	assert.Error(t, err)
}

func TestNewRejectsUnreachableNode(t *testing.T) {
	nodes := []dialogue.Node{
		{Name: "start", Root: true},
		{Name: "orphan"},
	}
	edges := []dialogue.Edge{}
	_, err := dialogue.New("p", "1.0", nodes, edges)
	assert.Error(t, err)
}

func TestNewRejectsEdgeToUnknownNode(t *testing.T) {
	nodes := []dialogue.Node{{Name: "start", Root: true}}
	edges := []dialogue.Edge{{Name: "x", ParentNode: "start", ChildNode: "missing", Model: "model:x", Handler: noop}}
	_, err := dialogue.New("p", "1.0", nodes, edges)
	assert.Error(t, err)
}
