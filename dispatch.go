package pseud

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ticosax/pseud/registry"
)

// dispatchLoop is the single reader goroutine: it receives one
// multipart message at a time and routes it by Kind, mirroring
// common.py's on_socket_ready/dispatch split and
// xiqingping-birpc/birpc.go's Serve() read-loop goroutine.
func (p *Peer) dispatchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frames, err := p.socket.RecvMessageBytes(0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "pseud: receiving message")
		}

		decoded, err := DecodeFrames(frames)
		if err != nil {
			p.logEntry().WithError(err).Warn("pseud: dropping malformed frame")
			continue
		}
		if decoded.Probe {
			continue
		}
		p.handle(decoded.Message)
	}
}

func (p *Peer) handle(msg *Message) {
	if len(msg.PeerRoutingID) > 0 {
		p.setPeerRoutingID(msg.PeerRoutingID)
	}
	routingID := string(msg.PeerRoutingID)

	logEntry := p.logEntry().WithFields(map[string]interface{}{
		"correlation_id": msg.CorrelationID.String(),
		"kind":           msg.Kind.String(),
	})

	// Every frame type but HELLO requires an already-authenticated
	// peer; an unauthenticated sender gets challenged instead of
	// dispatched, mirroring on_socket_ready's gate in common.py. HELLO
	// carries the credentials that make IsAuthenticated true, so it is
	// the one kind let through regardless.
	if msg.Kind != KindHello && !p.opts.authBackend.IsAuthenticated(routingID) {
		logEntry.Debug("pseud: frame from unauthenticated peer, challenging")
		if err := p.opts.authBackend.HandleAuthentication(routingID, routingID, msg.CorrelationID); err != nil {
			logEntry.WithError(err).Warn("pseud: authentication challenge failed")
		}
		return
	}

	switch msg.Kind {
	case KindWork:
		p.handleWork(msg)
	case KindOK:
		p.calls.resolve(msg.CorrelationID, Result{Value: msg.Payload})
	case KindError:
		p.handleError(msg)
	case KindHeartbeat:
		if err := p.opts.heartbeat.HandleHeartbeat(routingID, msg.PeerRoutingID); err != nil {
			logEntry.WithError(err).Warn("pseud: heartbeat handler failed")
		}
	case KindHello:
		if err := p.opts.authBackend.HandleHello(routingID, routingID, msg.CorrelationID, msg.Payload); err != nil {
			// Per the Open Question resolution in SPEC_FULL.md §8.2, an
			// identity collision is logged at error level and the frame
			// is dropped rather than silently overwriting the earlier
			// binding.
			logEntry.Error("pseud: HELLO handling failed: " + err.Error())
		}
	case KindAuthenticated:
		if err := p.opts.authBackend.HandleAuthenticated(msg.CorrelationID); err != nil {
			logEntry.WithError(err).Warn("pseud: authenticated handler failed")
		}
	case KindUnauthorized:
		if err := p.opts.authBackend.HandleAuthentication(routingID, routingID, msg.CorrelationID); err != nil {
			logEntry.WithError(err).Warn("pseud: authentication handler failed")
		}
	default:
		logEntry.Warn("pseud: unknown frame kind, dropping")
	}
}

func (p *Peer) handleWork(msg *Message) {
	routingID := string(msg.PeerRoutingID)

	var call struct {
		Name   string
		Args   []interface{}
		Kwargs map[string]interface{}
	}
	if err := p.opts.codec.Unmarshal(msg.Payload, &call); err != nil {
		p.replyError(msg, "MalformedFrameError", err.Error())
		return
	}

	result, err := p.invoke(routingID, call.Name, call.Args, call.Kwargs)
	if err != nil {
		if _, ok := errors.Cause(err).(*ServiceNotFoundError); ok && p.proxyTo != nil {
			result, err = p.proxyTo.invoke(routingID, call.Name, call.Args, call.Kwargs)
		}
	}
	if err != nil {
		p.replyError(msg, kindNameOf(err), remoteMessage(err))
		return
	}

	payload, err := p.opts.codec.Marshal(result)
	if err != nil {
		p.replyError(msg, "CodecUnknownTypeError", err.Error())
		return
	}
	reply := &Message{CorrelationID: msg.CorrelationID, Kind: KindOK, Payload: payload}
	if err := p.SendMessage(EncodeRouterFrames(msg.PeerRoutingID, reply)); err != nil {
		p.logEntry().WithError(err).Warn("pseud: sending OK reply failed")
	}
}

func (p *Peer) invoke(callerID, name string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	predicates := map[string]registry.Predicate{registry.DefaultDomain: registry.PassThrough}
	entry, ok := p.opts.registry.Lookup(name, callerID, predicates)
	if !ok {
		return nil, &ServiceNotFoundError{Name: name}
	}
	if entry.WantsCallerIdentity {
		return entry.Handler(callerID, args, kwargs)
	}
	return entry.Handler("", args, kwargs)
}

func kindNameOf(err error) string {
	switch errors.Cause(err).(type) {
	case *ServiceNotFoundError:
		return "ServiceNotFoundError"
	case *UnauthorizedError:
		return "UnauthorizedError"
	case *TimeoutError:
		return "TimeoutError"
	default:
		return "RemoteError"
	}
}

// remoteMessage extracts the ERROR frame's wire-level message: the
// domain payload reconstructRemoteError expects (the bare service
// name, the bare unauthorized reason, ...), never the Go error's
// formatted Error() string, which would otherwise round-trip back as
// e.g. a ServiceNotFoundError.Name of `pseud: service not found:
// "nope"` instead of `nope`.
func remoteMessage(err error) string {
	switch e := errors.Cause(err).(type) {
	case *ServiceNotFoundError:
		return e.Name
	case *UnauthorizedError:
		return e.Reason
	case *TimeoutError:
		return ""
	default:
		return err.Error()
	}
}

func (p *Peer) replyError(msg *Message, kind, message string) {
	payload, err := p.opts.codec.Marshal([]interface{}{kind, message, ""})
	if err != nil {
		p.logEntry().WithError(err).Error("pseud: encoding ERROR reply failed")
		return
	}
	reply := &Message{CorrelationID: msg.CorrelationID, Kind: KindError, Payload: payload}
	if err := p.SendMessage(EncodeRouterFrames(msg.PeerRoutingID, reply)); err != nil {
		p.logEntry().WithError(err).Warn("pseud: sending ERROR reply failed")
	}
}

func (p *Peer) handleError(msg *Message) {
	var tuple struct {
		Kind    string
		Message string
		Trace   string
	}
	if err := p.opts.codec.Unmarshal(msg.Payload, &tuple); err != nil {
		p.calls.resolve(msg.CorrelationID, Result{Err: errors.Wrap(err, "pseud: decoding ERROR payload")})
		return
	}
	p.calls.resolve(msg.CorrelationID, Result{Err: reconstructRemoteError(tuple.Kind, tuple.Message, tuple.Trace)})
}
