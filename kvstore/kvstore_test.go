package kvstore_test

import (
	"path/filepath"
	"testing"

	"github.com/agentmesh/uagents-go/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetHasRemoveClear(t *testing.T) {
	store, err := kvstore.Open(filepath.Join(t.TempDir(), "agent_alice_data.json"))
	require.NoError(t, err)

	ok, err := store.Has("count")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("count", 3))
	ok, err = store.Has("count")
	require.NoError(t, err)
	assert.True(t, ok)

	var got int
	ok, err = store.Get("count", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, got)

	require.NoError(t, store.Remove("count"))
	ok, err = store.Has("count")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearRemovesEverything(t *testing.T) {
	store, err := kvstore.Open(filepath.Join(t.TempDir(), "agent_bob_data.json"))
	require.NoError(t, err)

	require.NoError(t, store.Set("a", 1))
	require.NoError(t, store.Set("b", "two"))
	require.NoError(t, store.Clear())

	ok, err := store.Has("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent_carol_data.json")
	store1, err := kvstore.Open(path)
	require.NoError(t, err)
	require.NoError(t, store1.Set("greeting", "hi"))

	store2, err := kvstore.Open(path)
	require.NoError(t, err)
	var got string
	ok, err := store2.Get("greeting", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hi", got)
}
