package pseud

// Kind classifies a frame's payload. It is transmitted on the wire as a
// single byte.
type Kind byte

const (
	// KindOK tags a successful WORK reply.
	KindOK Kind = 0x01
	// KindHello tags a credential-presentation frame sent by an
	// initiator in response to UNAUTHORIZED.
	KindHello Kind = 0x02
	// KindWork tags an outbound procedure call.
	KindWork Kind = 0x03
	// KindAuthenticated tags a successful handshake completion.
	KindAuthenticated Kind = 0x04
	// KindHeartbeat tags a liveness frame; its payload is always empty.
	KindHeartbeat Kind = 0x06
	// KindError tags a failed WORK reply.
	KindError Kind = 0x10
	// KindUnauthorized tags a handshake rejection or challenge.
	KindUnauthorized Kind = 0x11
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "OK"
	case KindHello:
		return "HELLO"
	case KindWork:
		return "WORK"
	case KindAuthenticated:
		return "AUTHENTICATED"
	case KindHeartbeat:
		return "HEARTBEAT"
	case KindError:
		return "ERROR"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "UNKNOWN"
	}
}

// Version is the literal VERSION frame every message must carry. A
// mismatch is fatal for that frame: it is logged and dropped.
var Version = []byte("v1")

// EmptyDelimiter is the ROUTER envelope delimiter frame: a zero-length
// message part separating the routing prefix from the application
// frames.
var EmptyDelimiter = []byte{}

// CorrelationIDSize is the fixed size, in bytes, of a correlation id.
const CorrelationIDSize = 16
