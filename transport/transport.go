// Package transport defines the collaborator a client uses to reach a
// server replica, and ships an in-process loopback implementation so the
// write/read round trip can be exercised without a real network stack.
package transport

import (
	"github.com/privateboard/cuckoopir/cuckoo"
	"github.com/privateboard/cuckoopir/server"
)

// Peer is how a client reaches one server replica. A real deployment
// would implement this over gRPC or HTTP; this module ships only the
// loopback implementation below, since a network stack is outside this
// system's scope.
type Peer interface {
	Write(item cuckoo.Item) (*cuckoo.Item, error)
	Read(keysBlob []byte) ([]byte, error)
}

// Loopback wraps a *server.Server directly, for running a client against
// one or more replicas in the same process.
type Loopback struct {
	srv *server.Server
}

// NewLoopback wraps srv as a Peer.
func NewLoopback(srv *server.Server) *Loopback {
	return &Loopback{srv: srv}
}

// Write delegates to the wrapped server's Write.
func (l *Loopback) Write(item cuckoo.Item) (*cuckoo.Item, error) {
	return l.srv.Write(item)
}

// Read delegates to the wrapped server's HandleRequest.
func (l *Loopback) Read(keysBlob []byte) ([]byte, error) {
	return l.srv.HandleRequest(keysBlob)
}
