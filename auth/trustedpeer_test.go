package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustedPeerServerIsAlwaysAuthenticated(t *testing.T) {
	b := NewTrustedPeerServer()
	assert.True(t, b.IsAuthenticated("anyone"))
}

func TestTrustedPeerServerRoutingRoundTrip(t *testing.T) {
	b := NewTrustedPeerServer()
	b.RegisterRoutingID("tech-7", []byte("routing-9"))

	id, ok := b.GetRoutingID("tech-7")
	assert.True(t, ok)
	assert.Equal(t, []byte("routing-9"), id)

	_, ok = b.GetRoutingID("unknown")
	assert.False(t, ok)
}
