package heartbeat

import (
	"sync"
	"time"

	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Default timings are literal constants carried over from
// conftest.py's TestingHeartbeatBackendForServer.timeout = .2 and the
// client's asyncio.sleep(.1) ping loop (SPEC_FULL.md §6.E).
const (
	DefaultPingInterval = 100 * time.Millisecond
	DefaultPeerTimeout  = 200 * time.Millisecond
)

// livenessEndpoint is the inproc PUB address the older pybidirpc
// lineage (src/pybidirpc/heartbeat.py) binds its monitoring socket to.
const livenessEndpoint = "inproc://testing_heartbeating_backend"

// LivenessEvent is emitted on the PUB liveness channel for every
// heartbeat received and every timeout detected, replacing the
// original's ad hoc "{peer_id}" / "Gone {peer_id}" strings with a
// typed, msgpack-encoded value (SPEC_FULL.md §6.E).
type LivenessEvent struct {
	UserID string
	Alive  bool
}

// TestingClientBackend pings its single counterpart on a fixed
// interval using empty-payload HEARTBEAT frames. Grounded on
// conftest.py's TestingHeartbeatBackendForClient.
type TestingClientBackend struct {
	Interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewTestingClientBackend returns a TestingClientBackend pinging every
// DefaultPingInterval unless overridden.
func NewTestingClientBackend() *TestingClientBackend {
	return &TestingClientBackend{Interval: DefaultPingInterval}
}

func (b *TestingClientBackend) Configure(rpc RPC) error {
	interval := b.Interval
	if interval == 0 {
		interval = DefaultPingInterval
	}
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.loop(rpc, interval)
	return nil
}

func (b *TestingClientBackend) loop(rpc RPC, interval time.Duration) {
	defer close(b.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			frames := [][]byte{rpc.PeerRoutingID(), {}, []byte("v1"), {}, {0x06}, {}}
			if err := rpc.SendMessage(frames); err != nil {
				return
			}
		}
	}
}

func (b *TestingClientBackend) Stop() error {
	if b.stop == nil {
		return nil
	}
	close(b.stop)
	<-b.done
	return nil
}

func (b *TestingClientBackend) HandleHeartbeat(userID string, routingID []byte) error { return nil }

func (b *TestingClientBackend) HandleTimeout(userID string, routingID []byte) error { return nil }

// TestingServerBackend tracks a per-peer timeout, rearmed on every
// HEARTBEAT received, firing HandleTimeout (and a "peer-gone" liveness
// event) if DefaultPeerTimeout elapses without one. Grounded on
// conftest.py's TestingHeartbeatBackendForServer, whose task_pool of
// per-peer cancel-and-reschedule timers this mirrors with
// per-peer time.Timer values.
type TestingServerBackend struct {
	Timeout time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pub     *zmq4.Socket
	ctx     *zmq4.Context
	stopped bool
}

// NewTestingServerBackend returns a TestingServerBackend with
// DefaultPeerTimeout unless overridden.
func NewTestingServerBackend() *TestingServerBackend {
	return &TestingServerBackend{Timeout: DefaultPeerTimeout, timers: make(map[string]*time.Timer)}
}

func (b *TestingServerBackend) Configure(rpc RPC) error {
	ctx, ok := rpc.Context().(*zmq4.Context)
	if !ok {
		return errors.New("heartbeat: TestingServerBackend requires a *zmq4.Context")
	}
	pub, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return errors.Wrap(err, "heartbeat: creating PUB socket")
	}
	if err := pub.Bind(livenessEndpoint); err != nil {
		return errors.Wrap(err, "heartbeat: binding PUB socket")
	}
	b.ctx = ctx
	b.pub = pub
	return nil
}

func (b *TestingServerBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil
	}
	b.stopped = true
	for _, t := range b.timers {
		t.Stop()
	}
	if b.pub != nil {
		return errors.Wrap(b.pub.Close(), "heartbeat: closing PUB socket")
	}
	return nil
}

// HandleHeartbeat rearms routingID's timeout timer and emits an
// Alive=true LivenessEvent.
func (b *TestingServerBackend) HandleHeartbeat(userID string, routingID []byte) error {
	key := string(routingID)
	timeout := b.Timeout
	if timeout == 0 {
		timeout = DefaultPeerTimeout
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	if t, ok := b.timers[key]; ok {
		t.Stop()
	}
	b.timers[key] = time.AfterFunc(timeout, func() {
		_ = b.HandleTimeout(userID, routingID)
	})
	b.mu.Unlock()

	return b.emit(LivenessEvent{UserID: userID, Alive: true})
}

// HandleTimeout removes routingID's timer and emits an Alive=false
// LivenessEvent ("peer-gone", per spec.md §8).
func (b *TestingServerBackend) HandleTimeout(userID string, routingID []byte) error {
	b.mu.Lock()
	delete(b.timers, string(routingID))
	stopped := b.stopped
	b.mu.Unlock()
	if stopped {
		return nil
	}
	return b.emit(LivenessEvent{UserID: userID, Alive: false})
}

func (b *TestingServerBackend) emit(event LivenessEvent) error {
	payload, err := msgpack.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "heartbeat: encoding liveness event")
	}
	b.mu.Lock()
	pub := b.pub
	b.mu.Unlock()
	if pub == nil {
		return nil
	}
	_, err = pub.SendBytes(payload, 0)
	return errors.Wrap(err, "heartbeat: publishing liveness event")
}
