package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoneBackendIsAlwaysAuthenticated(t *testing.T) {
	b := NewNoneBackend()
	assert.True(t, b.IsAuthenticated("anyone"))
	assert.True(t, b.IsAuthenticated(""))
}

func TestNoneBackendHandshakeHooksAreNoops(t *testing.T) {
	b := NewNoneBackend()
	require.NoError(t, b.HandleHello("alice", "routing-1", uuid.New(), []byte("ignored")))
	require.NoError(t, b.HandleAuthenticated(uuid.New()))
	require.NoError(t, b.HandleAuthentication("alice", "routing-1", uuid.New()))
	b.SaveLastWork([][]byte{[]byte("ignored")})
}

func TestNoneBackendRoutingRoundTrip(t *testing.T) {
	b := NewNoneBackend()
	_, ok := b.GetRoutingID("alice")
	assert.False(t, ok)

	b.RegisterRoutingID("alice", []byte("routing-1"))
	id, ok := b.GetRoutingID("alice")
	assert.True(t, ok)
	assert.Equal(t, []byte("routing-1"), id)
}
