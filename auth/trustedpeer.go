package auth

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
)

// TrustedPeerServer is the "field technician" backend (SPEC_FULL.md
// §6.D): PLAIN mechanism, but the ZAP handler accepts whatever login
// the peer presents with no password check at all. Grounded on
// conftest.py's TrustedPeerForServer, which subclasses PlainForServer
// and overrides only _zap_handler.
type TrustedPeerServer struct {
	mu      sync.Mutex
	routing map[string][]byte
	zap     *zapResponder
}

// NewTrustedPeerServer returns a ready-to-configure TrustedPeerServer.
func NewTrustedPeerServer() *TrustedPeerServer {
	return &TrustedPeerServer{routing: make(map[string][]byte)}
}

func (b *TrustedPeerServer) Configure(rpc RPC) error {
	socket, ok := rpc.Socket().(*zmq4.Socket)
	if !ok {
		return errors.New("auth: TrustedPeerServer requires a *zmq4.Socket")
	}
	if err := socket.SetPlainServer(1); err != nil {
		return errors.Wrap(err, "auth: enabling PLAIN server mechanism")
	}
	ctx, ok := rpc.Context().(*zmq4.Context)
	if !ok {
		return errors.New("auth: TrustedPeerServer requires a *zmq4.Context")
	}
	zap, err := newZAPResponder(ctx, func(req zapRequest) zapVerdict {
		login := ""
		if len(req.Credentials) > 0 {
			login = string(req.Credentials[0])
		}
		return zapVerdict{Allow: true, UserID: login}
	})
	if err != nil {
		return err
	}
	b.zap = zap
	return nil
}

func (b *TrustedPeerServer) Stop() error {
	if b.zap == nil {
		return nil
	}
	return b.zap.stop()
}

func (b *TrustedPeerServer) IsAuthenticated(peerID string) bool { return true }

func (b *TrustedPeerServer) HandleHello(userID, routingID string, correlationID uuid.UUID, payload []byte) error {
	return nil
}

func (b *TrustedPeerServer) HandleAuthenticated(correlationID uuid.UUID) error { return nil }

func (b *TrustedPeerServer) HandleAuthentication(userID, routingID string, correlationID uuid.UUID) error {
	return nil
}

func (b *TrustedPeerServer) SaveLastWork(frames [][]byte) {}

func (b *TrustedPeerServer) GetPredicateArguments(peerID string) map[string]interface{} {
	return map[string]interface{}{}
}

func (b *TrustedPeerServer) GetRoutingID(userID string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.routing[userID]
	return id, ok
}

func (b *TrustedPeerServer) RegisterRoutingID(userID string, routingID []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routing[userID] = routingID
}
