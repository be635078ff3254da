package auth

import "github.com/google/uuid"

// These mirror the Kind byte values and frame shape defined in the
// owning module's root package (wire.go, message.go). They are
// duplicated here, rather than imported, because package auth is a
// collaborator of the root package and importing it back would create
// a cycle; RPC.SendMessage is the only surface this package needs.
const (
	kindHello         byte = 0x02
	kindAuthenticated byte = 0x04
	kindUnauthorized  byte = 0x11
)

var version = []byte("v1")

// helloFrames builds the ROUTER-style 6-frame tuple for a HELLO reply
// carrying payload, addressed back to routingID.
func helloFrames(routingID string, correlationID uuid.UUID, payload []byte) [][]byte {
	return [][]byte{[]byte(routingID), {}, version, correlationID[:], {kindHello}, payload}
}

// authenticatedFrames builds the ROUTER-style 6-frame AUTHENTICATED
// reply.
func authenticatedFrames(routingID string, correlationID uuid.UUID, payload []byte) [][]byte {
	return [][]byte{[]byte(routingID), {}, version, correlationID[:], {kindAuthenticated}, payload}
}

// unauthorizedFrames builds the ROUTER-style 6-frame UNAUTHORIZED
// reply.
func unauthorizedFrames(routingID string, correlationID uuid.UUID, payload []byte) [][]byte {
	return [][]byte{[]byte(routingID), {}, version, correlationID[:], {kindUnauthorized}, payload}
}
