// Package heartbeat implements pluggable liveness monitoring for a
// Peer: a backend decides how (or whether) ping frames are exchanged
// and what happens when a peer goes quiet.
package heartbeat

// RPC is the collaborator surface a Backend needs from its owning
// peer. Peer implements this interface; see auth.RPC for why the
// dependency runs this direction instead of an import.
type RPC interface {
	// SendMessage writes one already-framed multipart message to the
	// peer's socket.
	SendMessage(frames [][]byte) error
	// PeerRoutingID is this peer's counterpart's ROUTER routing id,
	// empty until a connection is established (used by the
	// initiator side, which has exactly one counterpart).
	PeerRoutingID() []byte
	// Context exposes the peer's own ZeroMQ context, so a backend's
	// PUB liveness socket shares it instead of living in an isolated
	// context of its own. Concrete type is *zmq4.Context; declared as
	// interface{} for the same reason as auth.RPC.Socket.
	Context() interface{}
}

// Backend is the pluggable heartbeat mechanism, mirroring the original
// implementation's IHeartbeatBackend (pseud/heartbeat.py).
type Backend interface {
	// Configure starts whatever background goroutines this backend
	// needs.
	Configure(rpc RPC) error
	// Stop releases any resources Configure acquired.
	Stop() error

	// HandleHeartbeat processes an inbound HEARTBEAT frame from
	// routingID, resetting that peer's timeout clock if one is kept.
	HandleHeartbeat(userID string, routingID []byte) error
	// HandleTimeout is invoked when a tracked peer has not sent a
	// HEARTBEAT within this backend's timeout window.
	HandleTimeout(userID string, routingID []byte) error
}
