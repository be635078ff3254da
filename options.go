package pseud

import (
	"time"

	"github.com/pkg/errors"

	"github.com/ticosax/pseud/auth"
	"github.com/ticosax/pseud/codec"
	"github.com/ticosax/pseud/heartbeat"
	"github.com/ticosax/pseud/registry"
)

// peerOptions holds every configurable knob of a Peer, assembled by
// Option values passed to NewPeer. The functional-options shape
// (Option interface + peerOptionFunc closures + resolvePeerOptions
// validator) is grounded on
// joeycumines-go-utilpkg/inprocgrpc/options.go's channelOptions /
// Option / channelOptionImpl / resolveOptions.
type peerOptions struct {
	userID      string
	authBackend auth.Backend
	heartbeat   heartbeat.Backend
	registry    *registry.Registry
	codec       *codec.Packer
	callTimeout time.Duration
	logger      logFields

	// peerRoutingID is the counterpart's known-in-advance ROUTER
	// identity, needed by an initiator (RoleClient) peer to address
	// its very first WORK before any reply has taught it that
	// identity, mirroring BaseRPC's peer_routing_id constructor
	// argument in common.py.
	peerRoutingID []byte
}

const defaultCallTimeout = 30 * time.Second

// Option configures a Peer at construction time.
type Option interface {
	apply(*peerOptions)
}

type peerOptionFunc func(*peerOptions)

func (f peerOptionFunc) apply(o *peerOptions) { f(o) }

// WithUserID sets the Peer's own identity, used as its ROUTER socket
// identity and as the user_id field of its log lines.
func WithUserID(userID string) Option {
	return peerOptionFunc(func(o *peerOptions) { o.userID = userID })
}

// WithAuthBackend installs an authentication handshake. Defaults to
// auth.NewNoneBackend() if never called.
func WithAuthBackend(b auth.Backend) Option {
	return peerOptionFunc(func(o *peerOptions) { o.authBackend = b })
}

// WithHeartbeatBackend installs a liveness monitor. Defaults to
// heartbeat.NoneBackend{} if never called.
func WithHeartbeatBackend(b heartbeat.Backend) Option {
	return peerOptionFunc(func(o *peerOptions) { o.heartbeat = b })
}

// WithRegistry installs the name -> Handler table consulted for
// inbound WORK. Defaults to a fresh, empty *registry.Registry.
func WithRegistry(r *registry.Registry) Option {
	return peerOptionFunc(func(o *peerOptions) { o.registry = r })
}

// WithCodec installs the payload (de)serializer. Defaults to
// codec.NewPacker().
func WithCodec(p *codec.Packer) Option {
	return peerOptionFunc(func(o *peerOptions) { o.codec = p })
}

// WithCallTimeout sets the default deadline applied to Call when no
// per-call deadline is given via CallWithTimeout. Defaults to 30s.
func WithCallTimeout(d time.Duration) Option {
	return peerOptionFunc(func(o *peerOptions) { o.callTimeout = d })
}

// logFields is the minimal structured-logging context a Peer attaches
// to every log line it emits, mirroring the fields named in
// SPEC_FULL.md §3 ("Logging").
type logFields map[string]interface{}

// WithLogFields attaches extra structured fields (beyond user_id) to
// every log line a Peer emits.
func WithLogFields(fields map[string]interface{}) Option {
	return peerOptionFunc(func(o *peerOptions) {
		for k, v := range fields {
			o.logger[k] = v
		}
	})
}

// WithPeerRoutingID pre-seeds the counterpart's known-in-advance
// ROUTER identity, required by a RoleClient peer calling
// SendTo("").Call before any reply has arrived to teach it that
// identity dynamically.
func WithPeerRoutingID(id []byte) Option {
	return peerOptionFunc(func(o *peerOptions) { o.peerRoutingID = append([]byte(nil), id...) })
}

func resolvePeerOptions(opts []Option) (*peerOptions, error) {
	o := &peerOptions{
		registry:    registry.New(nil),
		codec:       codec.NewPacker(),
		authBackend: auth.NewNoneBackend(),
		heartbeat:   heartbeat.NoneBackend{},
		callTimeout: defaultCallTimeout,
		logger:      make(logFields),
	}
	for _, opt := range opts {
		opt.apply(o)
	}
	if o.userID == "" {
		return nil, errors.New("pseud: WithUserID is required")
	}
	return o, nil
}
