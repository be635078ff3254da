package auth

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
)

// TrustedKeyClient configures the CURVE mechanism against a known
// server public key, grounded on conftest.py's
// CurveWithTrustedKeyForClient. No application-level handshake is
// involved: authentication is the CURVE handshake itself.
type TrustedKeyClient struct {
	PublicKey, SecretKey, ServerPublicKey string

	mu      sync.Mutex
	routing map[string][]byte
}

// NewTrustedKeyClient returns a TrustedKeyClient for the given
// Z85-encoded keypair and the server's Z85-encoded public key.
func NewTrustedKeyClient(publicKey, secretKey, serverPublicKey string) *TrustedKeyClient {
	return &TrustedKeyClient{
		PublicKey: publicKey, SecretKey: secretKey, ServerPublicKey: serverPublicKey,
		routing: make(map[string][]byte),
	}
}

func (b *TrustedKeyClient) Configure(rpc RPC) error {
	socket, ok := rpc.Socket().(*zmq4.Socket)
	if !ok {
		return errors.New("auth: TrustedKeyClient requires a *zmq4.Socket")
	}
	if err := socket.SetCurveServerkey(b.ServerPublicKey); err != nil {
		return errors.Wrap(err, "auth: setting CURVE server key")
	}
	if err := socket.SetCurvePublickey(b.PublicKey); err != nil {
		return errors.Wrap(err, "auth: setting CURVE public key")
	}
	if err := socket.SetCurveSecretkey(b.SecretKey); err != nil {
		return errors.Wrap(err, "auth: setting CURVE secret key")
	}
	return nil
}

func (b *TrustedKeyClient) Stop() error { return nil }

func (b *TrustedKeyClient) IsAuthenticated(peerID string) bool { return true }

func (b *TrustedKeyClient) HandleHello(userID, routingID string, correlationID uuid.UUID, payload []byte) error {
	return nil
}

func (b *TrustedKeyClient) HandleAuthenticated(correlationID uuid.UUID) error { return nil }

func (b *TrustedKeyClient) HandleAuthentication(userID, routingID string, correlationID uuid.UUID) error {
	return nil
}

func (b *TrustedKeyClient) SaveLastWork(frames [][]byte) {}

func (b *TrustedKeyClient) GetPredicateArguments(peerID string) map[string]interface{} {
	return map[string]interface{}{}
}

func (b *TrustedKeyClient) GetRoutingID(userID string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.routing[userID]
	return id, ok
}

func (b *TrustedKeyClient) RegisterRoutingID(userID string, routingID []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routing[userID] = routingID
}

// TrustedKeyServer runs the CURVE mechanism as server and trusts
// whatever public key the peer presents, labeling it by its Z85
// encoding unless a caller-supplied name is already known for it.
// Grounded on conftest.py's CurveWithTrustedKeyForServer, including
// its known_identities convenience mapping for test fixtures.
type TrustedKeyServer struct {
	PublicKey, SecretKey string

	mu              sync.Mutex
	knownIdentities map[string]string // raw public key bytes (as string) -> user id
	routing         map[string][]byte

	zap *zapResponder
}

// NewTrustedKeyServer returns a TrustedKeyServer for the given Z85
// keypair. known maps a caller's raw (binary, not Z85) public key to
// a human-readable user id for callers the deployment wants named
// rather than identified by key, mirroring conftest.py's
// known_identities fixture map.
func NewTrustedKeyServer(publicKey, secretKey string, known map[string]string) *TrustedKeyServer {
	return &TrustedKeyServer{
		PublicKey: publicKey, SecretKey: secretKey,
		knownIdentities: known,
		routing:         make(map[string][]byte),
	}
}

func (b *TrustedKeyServer) Configure(rpc RPC) error {
	socket, ok := rpc.Socket().(*zmq4.Socket)
	if !ok {
		return errors.New("auth: TrustedKeyServer requires a *zmq4.Socket")
	}
	if err := socket.SetCurvePublickey(b.PublicKey); err != nil {
		return errors.Wrap(err, "auth: setting CURVE public key")
	}
	if err := socket.SetCurveSecretkey(b.SecretKey); err != nil {
		return errors.Wrap(err, "auth: setting CURVE secret key")
	}
	if err := socket.SetCurveServer(1); err != nil {
		return errors.Wrap(err, "auth: enabling CURVE server mechanism")
	}
	ctx, ok := rpc.Context().(*zmq4.Context)
	if !ok {
		return errors.New("auth: TrustedKeyServer requires a *zmq4.Context")
	}
	zap, err := newZAPResponder(ctx, b.verify)
	if err != nil {
		return err
	}
	b.zap = zap
	return nil
}

func (b *TrustedKeyServer) verify(req zapRequest) zapVerdict {
	key := ""
	if len(req.Credentials) > 0 {
		key = string(req.Credentials[0])
	}
	if name, ok := b.knownIdentities[key]; ok {
		return zapVerdict{Allow: true, UserID: name}
	}
	return zapVerdict{Allow: true, UserID: z85EncodeForLog(key)}
}

func (b *TrustedKeyServer) Stop() error {
	if b.zap == nil {
		return nil
	}
	return b.zap.stop()
}

func (b *TrustedKeyServer) IsAuthenticated(peerID string) bool { return true }

func (b *TrustedKeyServer) HandleHello(userID, routingID string, correlationID uuid.UUID, payload []byte) error {
	return nil
}

func (b *TrustedKeyServer) HandleAuthenticated(correlationID uuid.UUID) error { return nil }

func (b *TrustedKeyServer) HandleAuthentication(userID, routingID string, correlationID uuid.UUID) error {
	return nil
}

func (b *TrustedKeyServer) SaveLastWork(frames [][]byte) {}

func (b *TrustedKeyServer) GetPredicateArguments(peerID string) map[string]interface{} {
	return map[string]interface{}{}
}

func (b *TrustedKeyServer) GetRoutingID(userID string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.routing[userID]
	return id, ok
}

func (b *TrustedKeyServer) RegisterRoutingID(userID string, routingID []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routing[userID] = routingID
}
