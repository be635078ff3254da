package pseud

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Target is an explicit call-builder bound to one destination user id,
// replacing the original implementation's dynamic
// AttributeWrapper/__getattr__ call-chaining sugar
// (common.py's send_to/AttributeWrapper) with an ordinary Go value, per
// the Design Notes in spec.md §9: Go has no attribute-interception
// hook, and a method-per-remote-name API would require code
// generation this runtime does not have, so the call name is passed
// as an ordinary string argument instead.
type Target struct {
	peer   *Peer
	userID string
}

// Call issues name(args, kwargs) against the Target's destination and
// blocks for a reply or the peer's default call timeout, whichever
// comes first. The returned bytes are the still-encoded OK payload;
// decode them with the peer's codec.
func (t *Target) Call(ctx context.Context, name string, args []interface{}, kwargs map[string]interface{}) ([]byte, error) {
	return t.CallWithTimeout(ctx, t.peer.opts.callTimeout, name, args, kwargs)
}

// CallWithTimeout is Call with an explicit deadline, grounded on
// xiqingping-birpc/birpc.go's CallWithDeadline.
func (t *Target) CallWithTimeout(ctx context.Context, timeout time.Duration, name string, args []interface{}, kwargs map[string]interface{}) ([]byte, error) {
	routingID, err := t.resolveRoutingID()
	if err != nil {
		return nil, err
	}

	payload, err := t.peer.opts.codec.Marshal([]interface{}{name, args, kwargs})
	if err != nil {
		return nil, errors.Wrap(err, "pseud: encoding WORK payload")
	}

	correlationID := NewCorrelationID()
	msg := &Message{CorrelationID: correlationID, Kind: KindWork, Payload: payload}
	frames := EncodeRouterFrames(routingID, msg)

	resultCh := t.peer.calls.register(correlationID, timeout)
	t.peer.opts.authBackend.SaveLastWork(frames)
	if err := t.peer.SendMessage(frames); err != nil {
		t.peer.calls.resolve(correlationID, Result{Err: err})
	}

	select {
	case res := <-resultCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Value, nil
	case <-ctx.Done():
		t.peer.calls.resolve(correlationID, Result{Err: ctx.Err()})
		return nil, ctx.Err()
	}
}

func (t *Target) resolveRoutingID() ([]byte, error) {
	if t.userID == "" {
		if id := t.peer.PeerRoutingID(); len(id) > 0 {
			return id, nil
		}
		return nil, errors.New("pseud: no destination: SendTo(\"\") requires a connected counterpart")
	}
	if id, ok := t.peer.opts.authBackend.GetRoutingID(t.userID); ok {
		return id, nil
	}
	return nil, errors.Errorf("pseud: no known routing id for user %q", t.userID)
}
