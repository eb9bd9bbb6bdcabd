package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/maxogod/session-relay/src/common/logger"
	"github.com/maxogod/session-relay/src/common/network"
)

var ErrListenerClosed = errors.New("connection manager closed")

const shutdownTimeout = 5 * time.Second

type connectionManager struct {
	port     int
	path     string
	upgrader websocket.Upgrader

	listener net.Listener
	server   *http.Server
	accepted chan network.ConnectionInterface
	done     chan struct{}
	once     sync.Once
}

func NewConnectionManager(port int, path string) ConnectionManager {
	return &connectionManager{
		port: port,
		path: path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		accepted: make(chan network.ConnectionInterface),
		done:     make(chan struct{}),
	}
}

func (cm *connectionManager) StartListening() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cm.port))
	if err != nil {
		return err
	}
	cm.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(cm.path, cm.upgrade)
	cm.server = &http.Server{Handler: mux}

	go func() {
		if err := cm.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Errorf("action: serve_websocket | result: fail | error: %v", err)
		}
	}()

	return nil
}

func (cm *connectionManager) AcceptConnection() (network.ConnectionInterface, error) {
	select {
	case conn := <-cm.accepted:
		return conn, nil
	case <-cm.done:
		return nil, ErrListenerClosed
	}
}

func (cm *connectionManager) Addr() string {
	if cm.listener == nil {
		return ""
	}
	return cm.listener.Addr().String()
}

func (cm *connectionManager) Close() error {
	var err error
	cm.once.Do(func() {
		close(cm.done)
		if cm.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = cm.server.Shutdown(ctx)
		}
	})
	return err
}

func (cm *connectionManager) upgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Warnf("action: upgrade_connection | result: fail | remote: %s | error: %v", r.RemoteAddr, err)
		return
	}

	conn := network.NewConnectionFromExistent(ws, r)
	select {
	case cm.accepted <- conn:
	case <-cm.done:
		conn.Close()
	}
}
