package heartbeat

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRPC struct {
	sent          int32
	peerRoutingID []byte
}

func (f *fakeRPC) SendMessage(frames [][]byte) error {
	atomic.AddInt32(&f.sent, 1)
	return nil
}

func (f *fakeRPC) PeerRoutingID() []byte { return f.peerRoutingID }

func (f *fakeRPC) Context() interface{} { return nil }

func TestTestingClientBackendPingsOnInterval(t *testing.T) {
	rpc := &fakeRPC{peerRoutingID: []byte("server")}
	b := &TestingClientBackend{Interval: 10 * time.Millisecond}
	require.NoError(t, b.Configure(rpc))
	defer b.Stop()

	time.Sleep(55 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&rpc.sent), int32(3))
}

func TestTestingServerBackendFiresTimeoutWhenQuiet(t *testing.T) {
	b := &TestingServerBackend{Timeout: 20 * time.Millisecond, timers: make(map[string]*time.Timer)}

	fired := make(chan struct{}, 1)
	b.timers["routing-1"] = time.AfterFunc(b.Timeout, func() {
		_ = b.HandleTimeout("alice", []byte("routing-1"))
		fired <- struct{}{}
	})

	select {
	case <-fired:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout handler never fired")
	}

	b.mu.Lock()
	_, stillTracked := b.timers["routing-1"]
	b.mu.Unlock()
	assert.False(t, stillTracked)
}
