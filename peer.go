package pseud

import (
	"context"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ticosax/pseud/registry"
)

// Role distinguishes the two symmetric ends of a connection. Both
// roles share the same Peer implementation and always use a ROUTER
// socket; the role only decides whether Disconnect disconnects or
// unbinds.
type Role int

const (
	// RoleClient is the initiator: it Connects a ROUTER socket out to
	// a known address.
	RoleClient Role = iota
	// RoleServer is the responder: it Binds a ROUTER socket and
	// accepts connections.
	RoleServer
)

// maxEHOSTUNREACHRetry caps retrying a send that a ROUTER socket
// rejected because it does not yet know the destination routing id,
// matching common.py's MAX_EHOSTUNREACH_RETRY = 3.
const maxEHOSTUNREACHRetry = 3

const ehostunreachBackoff = 100 * time.Millisecond

// Peer is one end of a bidirectional RPC connection: it owns a ZeroMQ
// ROUTER socket, a name registry, pluggable auth/heartbeat backends,
// and the call table tracking its own outstanding calls. Grounded on
// original_source/pseud/common.py's BaseRPC and
// xiqingping-birpc/birpc.go's Endpoint.
type Peer struct {
	role Role
	opts *peerOptions

	zctx   *zmq4.Context
	socket *zmq4.Socket

	calls *callTable

	mu            sync.Mutex
	peerRoutingID []byte
	ehostunreach  map[string]int
	proxyTo       *Peer

	group    *errgroup.Group
	groupCtx context.Context
	stopOnce sync.Once
}

// NewPeer constructs a Peer in the given role. The socket is neither
// bound nor connected until Bind or Connect is called.
func NewPeer(role Role, opts ...Option) (*Peer, error) {
	resolved, err := resolvePeerOptions(opts)
	if err != nil {
		return nil, err
	}
	zctx, err := zmq4.NewContext()
	if err != nil {
		return nil, errors.Wrap(err, "pseud: creating ZeroMQ context")
	}
	p := &Peer{
		role:          role,
		opts:          resolved,
		zctx:          zctx,
		calls:         newCallTable(),
		ehostunreach:  make(map[string]int),
		peerRoutingID: resolved.peerRoutingID,
	}
	p.Register("rpc.list_methods", func(string, []interface{}, map[string]interface{}) (interface{}, error) {
		return p.opts.registry.List(), nil
	})
	return p, nil
}

func (p *Peer) setupSocket() error {
	socket, err := p.zctx.NewSocket(zmq4.ROUTER)
	if err != nil {
		return errors.Wrap(err, "pseud: creating ROUTER socket")
	}
	if err := socket.SetRouterMandatory(1); err != nil {
		return errors.Wrap(err, "pseud: setting ROUTER_MANDATORY")
	}
	if err := socket.SetRouterHandover(1); err != nil {
		return errors.Wrap(err, "pseud: setting ROUTER_HANDOVER")
	}
	if err := socket.SetProbeRouter(1); err != nil {
		return errors.Wrap(err, "pseud: setting PROBE_ROUTER")
	}
	if err := socket.SetIdentity(p.opts.userID); err != nil {
		return errors.Wrap(err, "pseud: setting socket identity")
	}
	p.socket = socket

	if err := p.opts.authBackend.Configure(p); err != nil {
		return errors.Wrap(err, "pseud: configuring auth backend")
	}
	return nil
}

// Bind opens the responder side of a connection at address.
func (p *Peer) Bind(address string) error {
	if err := p.setupSocket(); err != nil {
		return err
	}
	if err := p.socket.Bind(address); err != nil {
		return errors.Wrapf(err, "pseud: binding %s", address)
	}
	return nil
}

// Connect opens the initiator side of a connection to address.
func (p *Peer) Connect(address string) error {
	if err := p.setupSocket(); err != nil {
		return err
	}
	if err := p.socket.Connect(address); err != nil {
		return errors.Wrapf(err, "pseud: connecting %s", address)
	}
	return nil
}

// Disconnect detaches the socket from address (Disconnect for a
// RoleClient peer, Unbind otherwise) without closing it or stopping
// background tasks; Stop closes the socket and stops them.
func (p *Peer) Disconnect(address string) error {
	if p.role == RoleClient {
		return errors.Wrap(p.socket.Disconnect(address), "pseud: disconnecting")
	}
	return errors.Wrap(p.socket.Unbind(address), "pseud: unbinding")
}

// Register exposes h under name in the peer's default-domain
// registry. Use WithRegistry at construction time for domain-scoped
// registration.
func (p *Peer) Register(name string, h registry.Handler) {
	p.opts.registry.Register(name, registry.DefaultDomain, h, false)
}

// RegisterWithIdentity is like Register, but h additionally receives
// the authenticated caller id as its first argument.
func (p *Peer) RegisterWithIdentity(name string, h registry.Handler) {
	p.opts.registry.Register(name, registry.DefaultDomain, h, true)
}

// SetProxy installs another Peer consulted when a WORK's name is not
// found locally, mirroring common.py's proxy_to fallback
// (_handle_work's except ServiceNotFoundError branch).
func (p *Peer) SetProxy(proxy *Peer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.proxyTo = proxy
}

// Start launches the dispatch loop, tracked in an errgroup.Group so
// Stop can await its terminal state -- replacing common.py's bare
// self.reader task with error-propagating group tracking -- and then
// configures the heartbeat backend. Backend goroutines are not in the
// group: each backend starts them itself and ends them in its own Stop.
func (p *Peer) Start(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	p.group = group
	p.groupCtx = groupCtx

	group.Go(func() error {
		return p.dispatchLoop(groupCtx)
	})
	if err := p.opts.heartbeat.Configure(p); err != nil {
		return errors.Wrap(err, "pseud: configuring heartbeat backend")
	}
	return nil
}

// Stop cancels the dispatch loop, releases the auth/heartbeat
// backends, closes the socket, and fails every still-pending call --
// mirroring common.py's stop()'s asyncio.gather over backend stops.
func (p *Peer) Stop() error {
	var stopErr error
	p.stopOnce.Do(func() {
		p.calls.cancelAll(errors.New("pseud: peer stopped"))
		if err := p.opts.authBackend.Stop(); err != nil {
			stopErr = err
		}
		if err := p.opts.heartbeat.Stop(); err != nil && stopErr == nil {
			stopErr = err
		}
		if p.socket != nil {
			if err := p.socket.Close(); err != nil && stopErr == nil {
				stopErr = errors.Wrap(err, "pseud: closing socket")
			}
		}
		if p.group != nil {
			if err := p.group.Wait(); err != nil && stopErr == nil && !errors.Is(err, context.Canceled) {
				stopErr = err
			}
		}
	})
	return stopErr
}

// SendMessage writes one already-framed multipart message, retrying
// up to maxEHOSTUNREACHRetry times with a 100ms backoff when the
// ROUTER socket reports EHOSTUNREACH, per common.py's send_message.
func (p *Peer) SendMessage(frames [][]byte) error {
	_, err := p.socket.SendMessage(frames)
	if err == nil {
		key := string(frames[0])
		p.mu.Lock()
		delete(p.ehostunreach, key)
		p.mu.Unlock()
		return nil
	}
	if !isEHOSTUNREACH(err) {
		return errors.Wrap(err, "pseud: sending message")
	}

	key := string(frames[0])
	p.mu.Lock()
	count := p.ehostunreach[key]
	p.mu.Unlock()
	if count >= maxEHOSTUNREACHRetry {
		p.mu.Lock()
		delete(p.ehostunreach, key)
		p.mu.Unlock()
		return errors.WithStack(&TransportUnreachableError{Target: frames[0]})
	}
	p.mu.Lock()
	p.ehostunreach[key] = count + 1
	p.mu.Unlock()

	time.Sleep(ehostunreachBackoff)
	return p.SendMessage(frames)
}

// FailCall resolves a still-pending call with err; implements
// auth.RPC for backends like auth.UntrustedKeyClient that give up
// after exhausting their retry budget.
func (p *Peer) FailCall(correlationID uuid.UUID, err error) {
	p.calls.resolve(correlationID, Result{Err: err})
}

// UserID returns this peer's own identity.
func (p *Peer) UserID() string { return p.opts.userID }

// Socket exposes the underlying *zmq4.Socket for auth backends that
// need to set mechanism options directly.
func (p *Peer) Socket() interface{} { return p.socket }

// Context exposes the peer's own *zmq4.Context, so that auth/heartbeat
// backends bind their ZAP responder or PUB liveness socket on it
// rather than a throwaway context of their own -- required for
// inproc://zeromq.zap.01 to be visible to this peer's socket at all.
func (p *Peer) Context() interface{} { return p.zctx }

// PeerRoutingID returns the single counterpart's routing id: the one
// pre-seeded with WithPeerRoutingID, replaced by the sender of each
// inbound frame once frames arrive.
func (p *Peer) PeerRoutingID() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peerRoutingID
}

func (p *Peer) setPeerRoutingID(id []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.peerRoutingID = append([]byte(nil), id...)
}

// SendTo builds a call against userID, the destination's own
// identity. An empty userID addresses the single counterpart this
// peer is connected to (valid for a RoleClient peer once its
// PeerRoutingID is known, either from WithPeerRoutingID or from a
// prior reply).
func (p *Peer) SendTo(userID string) *Target {
	return &Target{peer: p, userID: userID}
}

// Stats is a snapshot of operationally useful peer counters, added as
// a supplemented accessor (SPEC_FULL.md §6.H) in the shape of
// c6ai-hlf-easy/node/peer.go's GetConfig/GetID getters.
type Stats struct {
	PendingCalls int
}

// Stats returns a point-in-time snapshot of this peer's internal
// state.
func (p *Peer) Stats() Stats {
	p.calls.mu.Lock()
	defer p.calls.mu.Unlock()
	return Stats{PendingCalls: len(p.calls.pending)}
}

func isEHOSTUNREACH(err error) bool {
	errno, ok := errors.Cause(err).(zmq4.Errno)
	return ok && errno == zmq4.Errno(syscall.EHOSTUNREACH)
}

func (p *Peer) logEntry() *log.Entry {
	fields := log.Fields{"user_id": p.opts.userID}
	for k, v := range p.opts.logger {
		fields[k] = v
	}
	return log.WithFields(fields)
}
