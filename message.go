package pseud

import (
	"bytes"

	"github.com/google/uuid"
)

// Message is the logical, decoded form of one wire frame tuple.
type Message struct {
	CorrelationID uuid.UUID
	Kind          Kind
	Payload       []byte
	// PeerRoutingID is the ROUTER-assigned identity of the frame's
	// sender, when the frame carried an envelope. Empty for REQ-style
	// frames, which have none.
	PeerRoutingID []byte
}

// frameShape classifies an inbound frame tuple by its length, per the
// wire layout in SPEC_FULL.md / spec.md §4.C.
type frameShape int

const (
	shapeProbe frameShape = iota
	shapeReq
	shapeRouter
)

// classifyFrames returns the shape implied by the number of frames, or
// an error for any other length (a protocol error: the caller should
// log and drop).
func classifyFrames(frames [][]byte) (frameShape, error) {
	switch len(frames) {
	case 2:
		return shapeProbe, nil
	case 4:
		return shapeReq, nil
	case 6:
		return shapeRouter, nil
	default:
		return 0, &MalformedFrameError{FrameCount: len(frames)}
	}
}

// decodedFrame is the result of decoding one inbound frame tuple: either
// a connect-probe (Message is nil, Probe is true) or an application
// message.
type decodedFrame struct {
	Probe   bool
	Message *Message
}

// DecodeFrames turns one inbound ZeroMQ multipart message into a
// decodedFrame. It validates frame count and the VERSION frame, but
// does not decode Payload: that is the codec's job.
func DecodeFrames(frames [][]byte) (*decodedFrame, error) {
	shape, err := classifyFrames(frames)
	if err != nil {
		return nil, err
	}

	switch shape {
	case shapeProbe:
		// [peer_routing_id, PAYLOAD] -- silently consumed by the caller.
		return &decodedFrame{Probe: true}, nil

	case shapeReq:
		// [VERSION, correlation_id, KIND, PAYLOAD]
		version, correlationID, kindFrame, payload := frames[0], frames[1], frames[2], frames[3]
		if !bytes.Equal(version, Version) {
			return nil, &ProtocolVersionMismatchError{Got: version, Want: Version}
		}
		if len(kindFrame) != 1 {
			return nil, &MalformedFrameError{Reason: "KIND frame must be exactly one byte"}
		}
		id, err := correlationIDFromBytes(correlationID)
		if err != nil {
			return nil, &MalformedFrameError{Reason: err.Error()}
		}
		return &decodedFrame{Message: &Message{
			CorrelationID: id,
			Kind:          Kind(kindFrame[0]),
			Payload:       payload,
		}}, nil

	case shapeRouter:
		// [peer_routing_id, EMPTY, VERSION, correlation_id, KIND, PAYLOAD]
		routingID, _, version, correlationID, kindFrame, payload :=
			frames[0], frames[1], frames[2], frames[3], frames[4], frames[5]
		if !bytes.Equal(version, Version) {
			return nil, &ProtocolVersionMismatchError{Got: version, Want: Version}
		}
		if len(kindFrame) != 1 {
			return nil, &MalformedFrameError{Reason: "KIND frame must be exactly one byte"}
		}
		id, err := correlationIDFromBytes(correlationID)
		if err != nil {
			return nil, &MalformedFrameError{Reason: err.Error()}
		}
		return &decodedFrame{Message: &Message{
			CorrelationID: id,
			Kind:          Kind(kindFrame[0]),
			Payload:       payload,
			PeerRoutingID: routingID,
		}}, nil
	}
	panic("unreachable")
}

// correlationIDFromBytes allows the empty-correlation-id case (HEARTBEAT
// frames carry no correlation id and decode to the zero id) alongside
// properly sized 16-byte ids.
func correlationIDFromBytes(b []byte) (uuid.UUID, error) {
	if len(b) == 0 {
		return uuid.UUID{}, nil
	}
	return uuid.FromBytes(b)
}

// EncodeRouterFrames builds the 6-frame ROUTER-style wire form.
func EncodeRouterFrames(routingID []byte, msg *Message) [][]byte {
	return [][]byte{
		routingID,
		EmptyDelimiter,
		Version,
		correlationIDBytes(msg.CorrelationID),
		{byte(msg.Kind)},
		msg.Payload,
	}
}

// EncodeReqFrames builds the 4-frame REQ-style wire form.
func EncodeReqFrames(msg *Message) [][]byte {
	return [][]byte{
		Version,
		correlationIDBytes(msg.CorrelationID),
		{byte(msg.Kind)},
		msg.Payload,
	}
}

func correlationIDBytes(id uuid.UUID) []byte {
	if id == (uuid.UUID{}) {
		return nil
	}
	b := id // copy
	return b[:]
}

// NewCorrelationID produces a fresh 16-byte random correlation id, one
// per outbound WORK.
func NewCorrelationID() uuid.UUID {
	return uuid.New()
}
