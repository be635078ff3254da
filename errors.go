package pseud

import "fmt"

// ServiceNotFoundError is returned when a WORK's callable name is not in
// the registry, even after a configured proxy lookup.
type ServiceNotFoundError struct {
	Name string
}

func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("pseud: service not found: %q", e.Name)
}

// UnauthorizedError is the typed form of a remote ERROR whose kind is
// "UnauthorizedError". A call whose handshake retry budget runs out is
// not failed with this type: auth.UntrustedKeyClient fails it with its
// own "max authentication retries reached" error.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	if e.Reason == "" {
		return "pseud: unauthorized"
	}
	return "pseud: unauthorized: " + e.Reason
}

// TimeoutError is returned when a call's deadline elapses before a
// reply arrives.
type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "pseud: call timed out" }

// ProtocolVersionMismatchError is returned when the VERSION frame of an
// inbound message does not match the expected literal. The dispatch
// loop logs it and drops the frame; SyncPeer.Call returns it to its
// caller.
type ProtocolVersionMismatchError struct {
	Got, Want []byte
}

func (e *ProtocolVersionMismatchError) Error() string {
	return fmt.Sprintf("pseud: protocol version mismatch: got %q want %q", e.Got, e.Want)
}

// MalformedFrameError is returned when a frame tuple has the wrong
// count, or a frame that must decode cleanly does not.
type MalformedFrameError struct {
	FrameCount int
	Reason     string
}

func (e *MalformedFrameError) Error() string {
	if e.Reason != "" {
		return "pseud: malformed frame: " + e.Reason
	}
	return fmt.Sprintf("pseud: malformed frame: unexpected frame count %d", e.FrameCount)
}

// TransportUnreachableError is returned when the ROUTER socket reports
// that it does not yet know the destination routing id.
type TransportUnreachableError struct {
	Target []byte
}

func (e *TransportUnreachableError) Error() string {
	return fmt.Sprintf("pseud: transport unreachable: routing id %x", e.Target)
}

// CodecUnknownTypeError describes a value the codec has no encoding
// rule for. Nothing in this package constructs it: Call reports a local
// encoding failure, before anything is sent, as the codec's error
// wrapped with "pseud: encoding WORK payload", and a peer that cannot
// encode a handler's result replies with an ERROR of kind
// "CodecUnknownTypeError", which arrives as a *RemoteError.
type CodecUnknownTypeError struct {
	TypeName string
}

func (e *CodecUnknownTypeError) Error() string {
	return fmt.Sprintf("pseud: codec has no encoder for type %s", e.TypeName)
}

// IdentityCollisionError is raised when two distinct public keys claim
// the same user id under a key-based auth backend. spec.md §9(b)
// resolves this ambiguity in the original source (one lineage raised,
// one silently rewrote) by specifying: raise and surface the collision.
type IdentityCollisionError struct {
	UserID string
}

func (e *IdentityCollisionError) Error() string {
	return fmt.Sprintf("pseud: identity collision: user id %q already bound to a different key", e.UserID)
}

// RemoteError is the reconstructed form of an exception raised inside a
// remote handler: the wire carries (kind name, human message, formatted
// trace) and the caller-side completion is failed with this type unless
// the kind name is one that reconstructRemoteError maps to a typed error.
type RemoteError struct {
	Kind    string
	Message string
	Trace   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("pseud: remote error (%s): %s\n%s", e.Kind, e.Message, formatRemoteTraceback(e.Trace))
}

func formatRemoteTraceback(trace string) string {
	if trace == "" {
		return ""
	}
	return "-- Beginning of remote traceback --\n" + trace + "\n-- End of remote traceback --"
}

// reconstructRemoteError maps the wire's exception-kind-name field to one of our
// own sentinel error constructors, so ServiceNotFound/Unauthorized/
// Timeout round-trip as typed errors on the caller side instead of a
// generic RemoteError. Unknown kinds fall through to RemoteError,
// carrying name, message and trace verbatim.
func reconstructRemoteError(kind, message, trace string) error {
	switch kind {
	case "ServiceNotFoundError":
		return &ServiceNotFoundError{Name: message}
	case "UnauthorizedError":
		return &UnauthorizedError{Reason: message}
	case "TimeoutError":
		return &TimeoutError{}
	default:
		return &RemoteError{Kind: kind, Message: message, Trace: trace}
	}
}
