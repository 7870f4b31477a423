package storage

import (
	"path/filepath"
	"testing"

	"github.com/agentmesh/uagents-go/crypto/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKeyStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileKeyStorage(dir)
	require.NoError(t, err)

	kp, err := keys.DeriveEd25519KeyPair("alice-1", 0)
	require.NoError(t, err)

	require.NoError(t, store.Store("alice", kp))
	assert.True(t, store.Exists("alice"))

	loaded, err := store.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyBytes(), loaded.PublicKeyBytes())

	ids, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	require.NoError(t, store.Delete("alice"))
	assert.False(t, store.Exists("alice"))
}

func TestFileKeyStorageRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileKeyStorage(dir)
	require.NoError(t, err)

	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	assert.Error(t, store.Store("../escape", kp))
}

func TestFileKeyStoragePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	store1, err := NewFileKeyStorage(dir)
	require.NoError(t, err)

	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	require.NoError(t, store1.Store("bob", kp))

	store2, err := NewFileKeyStorage(dir)
	require.NoError(t, err)
	loaded, err := store2.Load("bob")
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyBytes(), loaded.PublicKeyBytes())

	_ = filepath.Join(dir, "private_keys.json")
}
