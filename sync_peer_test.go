package pseud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSyncPeerCallsRemoteHandler exercises a real REQ/ROUTER round
// trip: a blocking SyncPeer dialing a regular ROUTER-bound Peer. The
// REQ socket's wire-level empty delimiter frame lines up with the
// ROUTER-style 6-frame shape DecodeFrames expects, exactly as
// original_source/pseud/client.py's SyncClient talks to a
// pseud/server.py Server.
func TestSyncPeerCallsRemoteHandler(t *testing.T) {
	const addr = "inproc://pseud-test-syncpeer"

	server, err := NewPeer(RoleServer, WithUserID("server"))
	require.NoError(t, err)
	server.Register("echo", func(callerID string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return args[0], nil
	})
	require.NoError(t, server.Bind(addr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, server.Start(ctx))
	defer server.Stop()

	client, err := NewSyncPeer("client", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, client.Connect(addr))
	defer client.Close()

	reply, err := client.Call("echo", []interface{}{"hi"}, nil)
	require.NoError(t, err)

	var decoded string
	require.NoError(t, client.codec.Unmarshal(reply, &decoded))
	require.Equal(t, "hi", decoded)
}

// TestSyncPeerTimesOutOnNoReply covers SyncClient's RCVTIMEO -> zmq.Again
// -> TimeoutError translation when the bound peer never answers.
func TestSyncPeerTimesOutOnNoReply(t *testing.T) {
	const addr = "inproc://pseud-test-syncpeer-timeout"

	// Bind a socket so Connect succeeds, but never Start a dispatch
	// loop to answer it.
	server, err := NewPeer(RoleServer, WithUserID("server"))
	require.NoError(t, err)
	require.NoError(t, server.Bind(addr))
	defer server.Stop()

	client, err := NewSyncPeer("client", 30*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, client.Connect(addr))
	defer client.Close()

	_, err = client.Call("echo", nil, nil)
	require.Error(t, err)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}
