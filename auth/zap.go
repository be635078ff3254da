package auth

import (
	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// zapEndpoint is the fixed inproc address libzmq polls for
// authentication decisions, per the ZAP RFC
// (http://rfc.zeromq.org/spec:27) and the original implementation's
// every ZAP-based backend (pseud/auth.py, conftest.py).
const zapEndpoint = "inproc://zeromq.zap.01"

// zapRequest is the decoded form of one ZAP request as the ROUTER
// socket receives it: 8 fixed frames (envelope, delimiter, version,
// sequence, domain, address, identity, mechanism) followed by the
// mechanism's credentials -- two frames for PLAIN (username,
// password, 10 in all), one for CURVE (the 32-byte public key, 9 in
// all).
type zapRequest struct {
	ZID         []byte
	Version     []byte
	Sequence    []byte
	Domain      []byte
	Address     []byte
	Identity    []byte
	Mechanism   []byte
	Credentials [][]byte
}

// zapVerdict is what a mechanism-specific verifier decides for one
// zapRequest.
type zapVerdict struct {
	Allow       bool
	UserID      string
	StatusText  string
}

// zapResponder runs a ROUTER socket bound to zapEndpoint and applies
// verify to every inbound request, replying per the RFC's 200/400
// status codes. It is the shared scaffolding every PLAIN/CURVE backend
// in this package configures identically, mirroring the original
// implementation's repeated _zap_handler boilerplate
// (conftest.py's PlainForServer, CurveWithTrustedKeyForServer,
// CurveWithUntrustedKeyForServer).
type zapResponder struct {
	ctx    *zmq4.Context
	socket *zmq4.Socket
	done   chan struct{}
	verify func(zapRequest) zapVerdict
}

func newZAPResponder(ctx *zmq4.Context, verify func(zapRequest) zapVerdict) (*zapResponder, error) {
	socket, err := ctx.NewSocket(zmq4.ROUTER)
	if err != nil {
		return nil, errors.Wrap(err, "auth: creating ZAP socket")
	}
	if err := socket.SetLinger(0); err != nil {
		return nil, errors.Wrap(err, "auth: configuring ZAP socket")
	}
	if err := socket.Bind(zapEndpoint); err != nil {
		return nil, errors.Wrap(err, "auth: binding ZAP socket")
	}
	r := &zapResponder{ctx: ctx, socket: socket, done: make(chan struct{}), verify: verify}
	go r.loop()
	return r, nil
}

func (r *zapResponder) loop() {
	for {
		frames, err := r.socket.RecvMessageBytes(0)
		select {
		case <-r.done:
			return
		default:
		}
		if err != nil {
			log.WithError(err).Debug("auth: ZAP socket closed")
			return
		}
		if len(frames) < 8 {
			log.WithField("frame_count", len(frames)).Warn("auth: malformed ZAP request")
			continue
		}
		req := zapRequest{
			ZID:       frames[0],
			Version:   frames[2],
			Sequence:  frames[3],
			Domain:    frames[4],
			Address:   frames[5],
			Identity:  frames[6],
			Mechanism: frames[7],
		}
		if len(frames) > 8 {
			req.Credentials = frames[8:]
		}
		verdict := r.verify(req)
		r.reply(req, verdict)
	}
}

func (r *zapResponder) reply(req zapRequest, v zapVerdict) {
	statusCode := []byte("400")
	statusText := []byte("Unauthorized")
	userID := []byte{}
	if v.Allow {
		statusCode = []byte("200")
		statusText = []byte("OK")
		userID = []byte(v.UserID)
	}
	if v.StatusText != "" {
		statusText = []byte(v.StatusText)
	}
	reply := [][]byte{req.ZID, {}, []byte("1.0"), req.Sequence, statusCode, statusText, userID, {}}
	if _, err := r.socket.SendMessage(reply); err != nil {
		log.WithError(err).Error("auth: sending ZAP reply")
	}
}

func (r *zapResponder) stop() error {
	close(r.done)
	if err := r.socket.Close(); err != nil {
		return errors.Wrap(err, "auth: closing ZAP socket")
	}
	return nil
}
