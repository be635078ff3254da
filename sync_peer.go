package pseud

import (
	"time"

	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"

	"github.com/ticosax/pseud/codec"
)

// SyncPeer is the blocking REQ-socket shell supplemented in
// SPEC_FULL.md §6.H, grounded directly on
// original_source/pseud/client.py's SyncClient: a REQ socket, a
// RCVTIMEO-based timeout instead of a call table, and no heartbeat or
// auth-deferring support -- the original never wires an auth backend
// capable of deferring work onto a SyncClient either, since a REQ
// socket cannot have two messages in flight at once.
type SyncPeer struct {
	userID string
	codec  *codec.Packer
	zctx   *zmq4.Context
	socket *zmq4.Socket
	rcvtimeo time.Duration
}

// NewSyncPeer constructs a SyncPeer identified as userID. rcvtimeo
// bounds how long Call blocks waiting for a reply before returning
// *TimeoutError, mirroring SyncClient's zmq.RCVTIMEO socket option.
func NewSyncPeer(userID string, rcvtimeo time.Duration) (*SyncPeer, error) {
	zctx, err := zmq4.NewContext()
	if err != nil {
		return nil, errors.Wrap(err, "pseud: creating ZeroMQ context")
	}
	return &SyncPeer{userID: userID, codec: codec.NewPacker(), zctx: zctx, rcvtimeo: rcvtimeo}, nil
}

// Connect opens the REQ socket against address.
func (s *SyncPeer) Connect(address string) error {
	socket, err := s.zctx.NewSocket(zmq4.REQ)
	if err != nil {
		return errors.Wrap(err, "pseud: creating REQ socket")
	}
	if err := socket.SetRcvtimeo(s.rcvtimeo); err != nil {
		return errors.Wrap(err, "pseud: setting RCVTIMEO")
	}
	if err := socket.SetSndtimeo(s.rcvtimeo); err != nil {
		return errors.Wrap(err, "pseud: setting SNDTIMEO")
	}
	if err := socket.Connect(address); err != nil {
		return errors.Wrapf(err, "pseud: connecting %s", address)
	}
	s.socket = socket
	return nil
}

// Close releases the REQ socket.
func (s *SyncPeer) Close() error {
	if s.socket == nil {
		return nil
	}
	return errors.Wrap(s.socket.Close(), "pseud: closing REQ socket")
}

// Call sends name(args, kwargs) as a WORK frame and blocks for the OK
// or ERROR reply, returning *TimeoutError if none arrives within
// rcvtimeo. Grounded on SyncClient.send_message's zmq.Again ->
// asyncio.TimeoutError translation.
func (s *SyncPeer) Call(name string, args []interface{}, kwargs map[string]interface{}) ([]byte, error) {
	payload, err := s.codec.Marshal([]interface{}{name, args, kwargs})
	if err != nil {
		return nil, errors.Wrap(err, "pseud: encoding WORK payload")
	}

	correlationID := NewCorrelationID()
	msg := &Message{CorrelationID: correlationID, Kind: KindWork, Payload: payload}
	if _, err := s.socket.SendMessage(EncodeReqFrames(msg)); err != nil {
		return nil, errors.Wrap(err, "pseud: sending WORK")
	}

	frames, err := s.socket.RecvMessageBytes(0)
	if err != nil {
		return nil, &TimeoutError{}
	}
	decoded, err := DecodeFrames(frames)
	if err != nil {
		return nil, err
	}
	if decoded.Message.Kind == KindError {
		var tuple struct {
			Kind    string
			Message string
			Trace   string
		}
		if err := s.codec.Unmarshal(decoded.Message.Payload, &tuple); err != nil {
			return nil, errors.Wrap(err, "pseud: decoding ERROR payload")
		}
		return nil, reconstructRemoteError(tuple.Kind, tuple.Message, tuple.Trace)
	}
	return decoded.Message.Payload, nil
}
