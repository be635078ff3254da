// Package auth implements pluggable authentication handshakes for a
// Peer. A Backend owns whatever ZeroMQ security mechanism it needs
// (PLAIN, CURVE, or none) and, where that mechanism requires an
// application-level round trip, the HELLO/AUTHENTICATED/UNAUTHORIZED
// frame handling for it.
package auth

import (
	"github.com/google/uuid"
)

// RPC is the collaborator surface a Backend needs from its owning
// peer: enough to configure the underlying socket, send handshake
// frames, and fail a pending call when a retry budget is exhausted.
// Peer implements this interface; auth never imports package pseud,
// which would create an import cycle, so the dependency runs the
// other way.
type RPC interface {
	// SendMessage writes one already-framed multipart message to the
	// peer's socket.
	SendMessage(frames [][]byte) error
	// FailCall resolves a still-pending outbound call with err, a
	// no-op if the call already completed or does not exist.
	FailCall(correlationID uuid.UUID, err error)
	// UserID is this peer's own identity, used by initiator-side
	// backends constructing a HELLO payload.
	UserID() string
	// Socket exposes the peer's live ZeroMQ socket for mechanism
	// configuration (PLAIN_SERVER, CURVE_SERVER, curve keys, ...).
	// Concrete type is *zmq4.Socket; declared as interface{} here so
	// this package does not need to import zmq4 just to name it.
	Socket() interface{}
	// Context exposes the peer's own ZeroMQ context. A ZAP responder
	// must be bound in this same context: libzmq resolves the
	// inproc://zeromq.zap.01 endpoint per-context, so a ZAP socket
	// bound on any other context is invisible to the peer's socket.
	// Concrete type is *zmq4.Context; declared as interface{} for the
	// same reason as Socket.
	Context() interface{}
}

// Backend is the pluggable authentication handshake. Every method
// mirrors one defined by the original implementation's
// IAuthenticationBackend (pseud/interfaces.py), kept under the same
// names translated to Go casing.
type Backend interface {
	// Configure applies this backend's ZeroMQ mechanism options to
	// the owning peer's socket and starts any background goroutine it
	// needs (a ZAP responder, for instance).
	Configure(rpc RPC) error
	// Stop releases any resources Configure acquired.
	Stop() error

	// IsAuthenticated reports whether peerID has completed whatever
	// handshake this backend requires.
	IsAuthenticated(peerID string) bool

	// HandleHello processes a HELLO frame sent by an initiator
	// presenting credentials, replying AUTHENTICATED or UNAUTHORIZED.
	HandleHello(userID, routingID string, correlationID uuid.UUID, payload []byte) error
	// HandleAuthenticated processes a successful handshake
	// completion notice, replaying any deferred WORK.
	HandleAuthenticated(correlationID uuid.UUID) error
	// HandleAuthentication is invoked on the initiator side when the
	// responder rejects a WORK with UNAUTHORIZED, prompting the
	// backend to (re)send a HELLO or give up per its own retry
	// policy. On the responder side the dispatch loop invokes it for
	// any non-HELLO frame from a peer IsAuthenticated rejects, so the
	// backend can challenge it. The three-argument form is the Open Question
	// resolution recorded in SPEC_FULL.md §8.1.
	HandleAuthentication(userID, routingID string, correlationID uuid.UUID) error

	// SaveLastWork records a WORK frame tuple that had to wait for an
	// in-flight handshake to complete, so it can be replayed once
	// HandleAuthenticated fires.
	SaveLastWork(frames [][]byte)

	// GetPredicateArguments returns the extra arguments a registry
	// Predicate receives for peerID (empty for every backend in this
	// package; present for parity with the original interface, which
	// some deployments use to thread claims through to predicates).
	GetPredicateArguments(peerID string) map[string]interface{}

	// GetRoutingID resolves a previously registered ZeroMQ routing id
	// for userID.
	GetRoutingID(userID string) ([]byte, bool)
	// RegisterRoutingID records the routing id a userID is currently
	// reachable at.
	RegisterRoutingID(userID string, routingID []byte)
}
