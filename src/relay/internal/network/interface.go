package network

import "github.com/maxogod/session-relay/src/common/network"

// ConnectionManager defines the interface for managing incoming websocket connections.
type ConnectionManager interface {

	// StartListening starts serving websocket upgrades on the configured port and path.
	// It returns an error if it fails to bind the port.
	StartListening() error

	// AcceptConnection waits for and returns the next upgraded connection in a blocking manner.
	// It returns ErrListenerClosed once Close was called.
	AcceptConnection() (network.ConnectionInterface, error)

	// Addr returns the address the manager listens on, empty before StartListening.
	Addr() string

	// Close stops accepting connections and releases the listening port.
	Close() error
}
