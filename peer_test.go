package pseud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestPeerRoundTripCallsRemoteHandler exercises a real ZeroMQ
// ROUTER-to-ROUTER round trip between a RoleServer peer (binding) and
// a RoleClient peer (connecting), covering the basic call scenario in
// spec.md §8: the client sends WORK, the server dispatches to a
// registered handler, and the client's Call unblocks with the decoded
// result.
func TestPeerRoundTripCallsRemoteHandler(t *testing.T) {
	const addr = "inproc://pseud-test-roundtrip"

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

	client, err := NewPeer(RoleClient, WithUserID("client"), WithPeerRoutingID([]byte("server")))
	require.NoError(t, err)
	require.NoError(t, client.Connect(addr))
	require.NoError(t, client.Start(ctx))
	defer client.Stop()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	reply, err := client.SendTo("").Call(callCtx, "echo", []interface{}{"hello"}, nil)
	require.NoError(t, err)

	var decoded string
	require.NoError(t, client.opts.codec.Unmarshal(reply, &decoded))
	require.Equal(t, "hello", decoded)
}

// TestPeerRoundTripServiceNotFound covers a call against a name the
// server never registered: the client's Call should fail with a
// reconstructed *ServiceNotFoundError.
func TestPeerRoundTripServiceNotFound(t *testing.T) {
	const addr = "inproc://pseud-test-notfound"

	server, err := NewPeer(RoleServer, WithUserID("server"))
	require.NoError(t, err)
	require.NoError(t, server.Bind(addr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, server.Start(ctx))
	defer server.Stop()

	client, err := NewPeer(RoleClient, WithUserID("client"), WithPeerRoutingID([]byte("server")))
	require.NoError(t, err)
	require.NoError(t, client.Connect(addr))
	require.NoError(t, client.Start(ctx))
	defer client.Stop()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	_, err = client.SendTo("").Call(callCtx, "nope", nil, nil)
	require.Error(t, err)
	var notFound *ServiceNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "nope", notFound.Name)
}

// TestPeerRoundTripTimeout covers a call against a handler that never
// replies within the deadline: Call should unblock with a
// *TimeoutError once the call table's own timer fires.
func TestPeerRoundTripTimeout(t *testing.T) {
	const addr = "inproc://pseud-test-timeout"

	server, err := NewPeer(RoleServer, WithUserID("server"))
	require.NoError(t, err)
	block := make(chan struct{})
	server.Register("block", func(callerID string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		<-block
		return nil, nil
	})
	require.NoError(t, server.Bind(addr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, server.Start(ctx))
	defer func() {
		close(block)
		server.Stop()
	}()

	client, err := NewPeer(RoleClient, WithUserID("client"), WithPeerRoutingID([]byte("server")))
	require.NoError(t, err)
	require.NoError(t, client.Connect(addr))
	require.NoError(t, client.Start(ctx))
	defer client.Stop()

	_, err = client.SendTo("").CallWithTimeout(context.Background(), 50*time.Millisecond, "block", nil, nil)
	require.Error(t, err)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}
