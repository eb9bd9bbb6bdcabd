package manager

import (
	"context"

	"github.com/maxogod/session-relay/src/relay/internal/pubsub"
	"github.com/maxogod/session-relay/src/relay/internal/sessions/clients"
)

// HandshakeData describes the request that originated a handshake.
type HandshakeData struct {
	Address string
	Headers map[string][]string
	Query   map[string][]string
}

// SessionStore issues connection ids, tracks which of them are handshaken and owns
// the client session of each one. Lifecycle events are relayed on the pub/sub channel.
type SessionStore interface {
	// Handshake issues a fresh id and registers it as handshaken.
	Handshake(ctx context.Context, data HandshakeData) (string, error)

	// IsHandshaken reports whether id completed a handshake and was not disconnected.
	IsHandshaken(ctx context.Context, id string) (bool, error)

	// Client returns the session of id, creating it on first use. A destroyed
	// session is replaced by a fresh one.
	Client(id string) clients.ClientSession

	// Disconnect unregisters id, destroys its session and publishes the disconnect
	// notifications carrying reason. Unknown ids are ignored.
	Disconnect(ctx context.Context, id string, force bool, reason string) error

	// Heartbeat publishes a liveness signal for id.
	Heartbeat(ctx context.Context, id string) error

	// Message publishes packet as data destined to the connection id.
	Message(ctx context.Context, id string, packet any) error

	Publish(ctx context.Context, topic string, data any) error
	Subscribe(ctx context.Context, topic string, handler pubsub.Handler) error
	Unsubscribe(ctx context.Context, topic string) error

	// ReapStaleClients evicts cached sessions that were destroyed outside Disconnect.
	ReapStaleClients()

	// Close destroys every cached session and releases the channel and counter store.
	Close() error
}
