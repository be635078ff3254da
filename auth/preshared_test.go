package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreSharedServerVerify(t *testing.T) {
	b := NewPreSharedServer()

	ok := b.verify(zapRequest{Credentials: [][]byte{[]byte("alice"), []byte("alice")}})
	assert.True(t, ok.Allow)
	assert.Equal(t, "alice", ok.UserID)

	bad := b.verify(zapRequest{Credentials: [][]byte{[]byte("alice"), []byte("wrong")}})
	assert.False(t, bad.Allow)
}

func TestPreSharedServerRoutingRoundTrip(t *testing.T) {
	b := NewPreSharedServer()
	b.RegisterRoutingID("alice", []byte("routing-1"))

	id, ok := b.GetRoutingID("alice")
	assert.True(t, ok)
	assert.Equal(t, []byte("routing-1"), id)
}
