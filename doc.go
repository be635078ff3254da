// Package pseud implements a bidirectional RPC runtime on top of ZeroMQ
// ROUTER sockets.
//
// Two symmetric peers, conventionally called "client" (initiator) and
// "server" (responder), each issue named procedure calls against the
// other over a single long-lived connection. Calls are correlated with
// random identifiers so either side can carry several outstanding calls
// concurrently, authenticate each other through pluggable handshakes,
// and monitor liveness through pluggable heartbeats.
//
// The wire protocol, the call-correlation machinery, the authentication
// state machine, and the dispatch loop are the core of this package; the
// codec (package codec), the name registry (package registry), the auth
// backends (package auth) and the heartbeat backends (package heartbeat)
// are its pluggable collaborators.
package pseud
