package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRPC struct {
	sent   [][][]byte
	failed map[uuid.UUID]error
	socket interface{}
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{failed: make(map[uuid.UUID]error)}
}

func (f *fakeRPC) SendMessage(frames [][]byte) error {
	f.sent = append(f.sent, frames)
	return nil
}

func (f *fakeRPC) FailCall(correlationID uuid.UUID, err error) {
	f.failed[correlationID] = err
}

func (f *fakeRPC) UserID() string { return "tester" }

func (f *fakeRPC) Socket() interface{} { return f.socket }

func (f *fakeRPC) Context() interface{} { return nil }

func TestUntrustedKeyClientSendsHelloThenGivesUp(t *testing.T) {
	rpc := newFakeRPC()
	client := NewUntrustedKeyClient("pub", "sec", "serverpub", "alice", "s3cr3t")
	client.rpc = rpc

	id := uuid.New()
	require.NoError(t, client.HandleAuthentication("alice", "routing-1", id))
	require.NoError(t, client.HandleAuthentication("alice", "routing-1", id))
	assert.Len(t, rpc.sent, 2)

	require.NoError(t, client.HandleAuthentication("alice", "routing-1", id))
	assert.Len(t, rpc.sent, 2)
	require.Error(t, rpc.failed[id])
}

func TestUntrustedKeyServerHandleHelloPromotesKey(t *testing.T) {
	rpc := newFakeRPC()
	server := NewUntrustedKeyServer("pub", "sec", func(login string) (string, bool) {
		if login == "alice" {
			return "s3cr3t", true
		}
		return "", false
	})
	server.rpc = rpc
	server.pendingKeys["routing-1"] = "rawkey"

	payload := mustPack(t, []interface{}{"alice", "s3cr3t"})
	id := uuid.New()
	require.NoError(t, server.HandleHello("rawkey", "routing-1", id, payload))

	assert.True(t, server.IsAuthenticated("routing-1"))
	assert.Len(t, rpc.sent, 1)
}

func TestUntrustedKeyServerHandleHelloRejectsBadPassword(t *testing.T) {
	rpc := newFakeRPC()
	server := NewUntrustedKeyServer("pub", "sec", func(login string) (string, bool) {
		return "s3cr3t", true
	})
	server.rpc = rpc
	server.pendingKeys["routing-1"] = "rawkey"

	payload := mustPack(t, []interface{}{"alice", "wrong"})
	id := uuid.New()
	require.NoError(t, server.HandleHello("rawkey", "routing-1", id, payload))

	assert.False(t, server.IsAuthenticated("routing-1"))
}
