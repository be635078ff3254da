package auth

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultMaxAuthenticationRetries is the initiator-side retry budget
// for the untrusted-key challenge before a pending call is failed with
// Unauthorized, matching conftest.py's CurveWithUntrustedKeyForClient
// max_retries = 2.
const DefaultMaxAuthenticationRetries = 2

// UntrustedKeyClient runs the initiator side of the two-step
// CURVE challenge (spec.md §4.D.3): CURVE is already in effect at the
// transport level, but the server will reject WORK from a key it
// hasn't promoted to trusted yet, replying UNAUTHORIZED and calling
// HandleAuthentication here, which responds with a HELLO carrying
// (user id, password). Grounded on conftest.py's
// CurveWithUntrustedKeyForClient.
type UntrustedKeyClient struct {
	PublicKey, SecretKey, ServerPublicKey string
	UserID, Password                      string
	MaxRetries                            int

	mu            sync.Mutex
	retries       map[uuid.UUID]int
	routing       map[string][]byte
	pendingReplay [][][]byte
	authenticated bool
	rpc           RPC
}

// NewUntrustedKeyClient returns an UntrustedKeyClient that will answer
// an authentication challenge with userID/password, up to
// DefaultMaxAuthenticationRetries times per correlation id.
func NewUntrustedKeyClient(publicKey, secretKey, serverPublicKey, userID, password string) *UntrustedKeyClient {
	return &UntrustedKeyClient{
		PublicKey: publicKey, SecretKey: secretKey, ServerPublicKey: serverPublicKey,
		UserID: userID, Password: password,
		MaxRetries: DefaultMaxAuthenticationRetries,
		retries:    make(map[uuid.UUID]int),
		routing:    make(map[string][]byte),
	}
}

func (b *UntrustedKeyClient) Configure(rpc RPC) error {
	socket, ok := rpc.Socket().(*zmq4.Socket)
	if !ok {
		return errors.New("auth: UntrustedKeyClient requires a *zmq4.Socket")
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
	b.rpc = rpc
	return nil
}

func (b *UntrustedKeyClient) Stop() error { return nil }

func (b *UntrustedKeyClient) IsAuthenticated(peerID string) bool { return true }

func (b *UntrustedKeyClient) HandleHello(userID, routingID string, correlationID uuid.UUID, payload []byte) error {
	return nil
}

func (b *UntrustedKeyClient) HandleAuthenticated(correlationID uuid.UUID) error {
	b.mu.Lock()
	frames := b.pendingReplay
	b.pendingReplay = nil
	b.authenticated = true
	b.mu.Unlock()

	for _, f := range frames {
		if err := b.rpc.SendMessage(f); err != nil {
			return errors.Wrap(err, "auth: replaying deferred work")
		}
	}
	return nil
}

// HandleAuthentication is called when the responder rejects a WORK
// with UNAUTHORIZED. It replies with a HELLO carrying (user id,
// password) up to MaxRetries times per correlation id, after which the
// pending call is failed, matching CurveWithUntrustedKeyForClient's
// itertools.count() retry counter.
func (b *UntrustedKeyClient) HandleAuthentication(userID, routingID string, correlationID uuid.UUID) error {
	max := b.MaxRetries
	if max == 0 {
		max = DefaultMaxAuthenticationRetries
	}

	b.mu.Lock()
	count := b.retries[correlationID]
	b.retries[correlationID] = count + 1
	b.mu.Unlock()

	if count >= max {
		b.rpc.FailCall(correlationID, &unauthorizedMaxRetries{})
		return nil
	}

	payload, err := msgpack.Marshal([]interface{}{b.UserID, b.Password})
	if err != nil {
		return errors.Wrap(err, "auth: packing HELLO payload")
	}
	return b.rpc.SendMessage(helloFrames(routingID, correlationID, payload))
}

// SaveLastWork records frames for replay once the handshake completes.
// Once this client has already been through AUTHENTICATED, further
// WORK is no longer deferred -- there is no in-flight challenge left
// to replay it after -- so appending here would only grow
// pendingReplay forever across a long-lived connection's calls.
func (b *UntrustedKeyClient) SaveLastWork(frames [][]byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.authenticated {
		return
	}
	b.pendingReplay = append(b.pendingReplay, frames)
}

func (b *UntrustedKeyClient) GetPredicateArguments(peerID string) map[string]interface{} {
	return map[string]interface{}{}
}

func (b *UntrustedKeyClient) GetRoutingID(userID string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.routing[userID]
	return id, ok
}

func (b *UntrustedKeyClient) RegisterRoutingID(userID string, routingID []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routing[userID] = routingID
}

type unauthorizedMaxRetries struct{}

func (e *unauthorizedMaxRetries) Error() string { return "auth: max authentication retries reached" }
