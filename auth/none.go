package auth

import (
	"sync"

	"github.com/google/uuid"
)

// NoneBackend performs no handshake at all: every peer is considered
// authenticated, and the socket is left on its default (NULL)
// mechanism. Grounded on the original implementation's NoOp backend in
// pseud/auth.py, the only backend the asyncio lineage still ships.
type NoneBackend struct {
	mu      sync.Mutex
	routing map[string][]byte
}

// NewNoneBackend returns a ready-to-use NoneBackend.
func NewNoneBackend() *NoneBackend {
	return &NoneBackend{routing: make(map[string][]byte)}
}

func (b *NoneBackend) Configure(rpc RPC) error { return nil }

func (b *NoneBackend) Stop() error { return nil }

func (b *NoneBackend) IsAuthenticated(peerID string) bool { return true }

func (b *NoneBackend) HandleHello(userID, routingID string, correlationID uuid.UUID, payload []byte) error {
	return nil
}

func (b *NoneBackend) HandleAuthenticated(correlationID uuid.UUID) error { return nil }

func (b *NoneBackend) HandleAuthentication(userID, routingID string, correlationID uuid.UUID) error {
	return nil
}

func (b *NoneBackend) SaveLastWork(frames [][]byte) {}

func (b *NoneBackend) GetPredicateArguments(peerID string) map[string]interface{} {
	return map[string]interface{}{}
}

func (b *NoneBackend) GetRoutingID(userID string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.routing[userID]
	return id, ok
}

func (b *NoneBackend) RegisterRoutingID(userID string, routingID []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routing[userID] = routingID
}
