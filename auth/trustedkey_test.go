package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustedKeyServerVerifyUsesKnownIdentityWhenPresent(t *testing.T) {
	b := NewTrustedKeyServer("pub", "sec", map[string]string{"rawkey": "alice"})

	verdict := b.verify(zapRequest{Credentials: [][]byte{[]byte("rawkey")}})
	assert.True(t, verdict.Allow)
	assert.Equal(t, "alice", verdict.UserID)
}

func TestTrustedKeyServerVerifyFallsBackToZ85OfUnknownKey(t *testing.T) {
	b := NewTrustedKeyServer("pub", "sec", nil)

	// Z85 requires a length that is a multiple of 4 bytes.
	verdict := b.verify(zapRequest{Credentials: [][]byte{[]byte("abcd")}})
	assert.True(t, verdict.Allow)
	assert.NotEmpty(t, verdict.UserID)
	assert.NotEqual(t, "abcd", verdict.UserID)
}

func TestTrustedKeyServerIsAlwaysAuthenticated(t *testing.T) {
	b := NewTrustedKeyServer("pub", "sec", nil)
	assert.True(t, b.IsAuthenticated("anyone"))
}

func TestTrustedKeyServerRoutingRoundTrip(t *testing.T) {
	b := NewTrustedKeyServer("pub", "sec", nil)
	b.RegisterRoutingID("alice", []byte("routing-1"))

	id, ok := b.GetRoutingID("alice")
	assert.True(t, ok)
	assert.Equal(t, []byte("routing-1"), id)
}

func TestTrustedKeyClientIsAlwaysAuthenticated(t *testing.T) {
	b := NewTrustedKeyClient("pub", "sec", "server-pub")
	assert.True(t, b.IsAuthenticated("server"))

	_, ok := b.GetRoutingID("server")
	assert.False(t, ok)
}
