package network

import (
	"net/http"
	"time"
)

// ConnectionInterface is a message oriented client connection.
type ConnectionInterface interface {
	// ReceiveData blocks until a full message arrives from the peer.
	ReceiveData() ([]byte, error)

	// SendData writes data as a single message. Safe for concurrent use.
	SendData(data []byte) error

	// Ping sends a websocket ping; the peer answers with a pong.
	Ping(timeout time.Duration) error

	// SetPongHandler registers fn to run on every pong received by ReceiveData.
	SetPongHandler(fn func())

	// RemoteAddr returns the address of the peer.
	RemoteAddr() string

	// Request returns the HTTP request that opened the connection, nil for dialed connections.
	Request() *http.Request

	Close() error
}
