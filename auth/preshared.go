package auth

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
)

// PreSharedServer authenticates initiators with the ZeroMQ PLAIN
// mechanism, accepting a connection only when the presented password
// equals the login itself (spec.md §4.D.2's "Pre-shared credentials"
// backend). Grounded directly on conftest.py's PlainForServer.
type PreSharedServer struct {
	mu      sync.Mutex
	routing map[string][]byte

	zap *zapResponder
}

// NewPreSharedServer returns a ready-to-configure PreSharedServer.
func NewPreSharedServer() *PreSharedServer {
	return &PreSharedServer{routing: make(map[string][]byte)}
}

func (b *PreSharedServer) Configure(rpc RPC) error {
	socket, ok := rpc.Socket().(*zmq4.Socket)
	if !ok {
		return errors.New("auth: PreSharedServer requires a *zmq4.Socket")
	}
	if err := socket.SetPlainServer(1); err != nil {
		return errors.Wrap(err, "auth: enabling PLAIN server mechanism")
	}
	ctx, ok := rpc.Context().(*zmq4.Context)
	if !ok {
		return errors.New("auth: PreSharedServer requires a *zmq4.Context")
	}
	zap, err := newZAPResponder(ctx, b.verify)
	if err != nil {
		return err
	}
	b.zap = zap
	return nil
}

func (b *PreSharedServer) verify(req zapRequest) zapVerdict {
	if len(req.Credentials) != 2 {
		return zapVerdict{Allow: false}
	}
	login, password := string(req.Credentials[0]), string(req.Credentials[1])
	if login != password {
		return zapVerdict{Allow: false}
	}
	return zapVerdict{Allow: true, UserID: login}
}

func (b *PreSharedServer) Stop() error {
	if b.zap == nil {
		return nil
	}
	return b.zap.stop()
}

func (b *PreSharedServer) IsAuthenticated(peerID string) bool { return true }

func (b *PreSharedServer) HandleHello(userID, routingID string, correlationID uuid.UUID, payload []byte) error {
	return nil
}

func (b *PreSharedServer) HandleAuthenticated(correlationID uuid.UUID) error { return nil }

func (b *PreSharedServer) HandleAuthentication(userID, routingID string, correlationID uuid.UUID) error {
	return nil
}

func (b *PreSharedServer) SaveLastWork(frames [][]byte) {}

func (b *PreSharedServer) GetPredicateArguments(peerID string) map[string]interface{} {
	return map[string]interface{}{}
}

func (b *PreSharedServer) GetRoutingID(userID string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.routing[userID]
	return id, ok
}

func (b *PreSharedServer) RegisterRoutingID(userID string, routingID []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routing[userID] = routingID
}

// PreSharedClient configures the PLAIN mechanism on the initiator
// side with a fixed login/password pair, grounded on conftest.py's
// PlainForClient. It never needs a HELLO round trip: the mechanism
// handshake happens inside libzmq before any application frame is
// exchanged.
type PreSharedClient struct {
	Login, Password string

	mu      sync.Mutex
	routing map[string][]byte
}

// NewPreSharedClient returns a PreSharedClient that will present login
// as both username and password, per the server's login==password
// check.
func NewPreSharedClient(login string) *PreSharedClient {
	return &PreSharedClient{Login: login, Password: login, routing: make(map[string][]byte)}
}

func (b *PreSharedClient) Configure(rpc RPC) error {
	socket, ok := rpc.Socket().(*zmq4.Socket)
	if !ok {
		return errors.New("auth: PreSharedClient requires a *zmq4.Socket")
	}
	if err := socket.SetPlainUsername(b.Login); err != nil {
		return errors.Wrap(err, "auth: setting PLAIN username")
	}
	if err := socket.SetPlainPassword(b.Password); err != nil {
		return errors.Wrap(err, "auth: setting PLAIN password")
	}
	return nil
}

func (b *PreSharedClient) Stop() error { return nil }

func (b *PreSharedClient) IsAuthenticated(peerID string) bool { return true }

func (b *PreSharedClient) HandleHello(userID, routingID string, correlationID uuid.UUID, payload []byte) error {
	return nil
}

func (b *PreSharedClient) HandleAuthenticated(correlationID uuid.UUID) error { return nil }

func (b *PreSharedClient) HandleAuthentication(userID, routingID string, correlationID uuid.UUID) error {
	return nil
}

func (b *PreSharedClient) SaveLastWork(frames [][]byte) {}

func (b *PreSharedClient) GetPredicateArguments(peerID string) map[string]interface{} {
	return map[string]interface{}{}
}

func (b *PreSharedClient) GetRoutingID(userID string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.routing[userID]
	return id, ok
}

func (b *PreSharedClient) RegisterRoutingID(userID string, routingID []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routing[userID] = routingID
}
