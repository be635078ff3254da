package heartbeat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoneBackendDoesNothing(t *testing.T) {
	var b NoneBackend
	require.NoError(t, b.Configure(&fakeRPC{}))
	require.NoError(t, b.HandleHeartbeat("alice", []byte("routing-1")))
	require.NoError(t, b.HandleTimeout("alice", []byte("routing-1")))
	require.NoError(t, b.Stop())
}
