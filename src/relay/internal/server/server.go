package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/maxogod/session-relay/src/common/logger"
	commonNetwork "github.com/maxogod/session-relay/src/common/network"
	"github.com/maxogod/session-relay/src/relay/config"
	"github.com/maxogod/session-relay/src/relay/internal/healthcheck"
	"github.com/maxogod/session-relay/src/relay/internal/network"
	"github.com/maxogod/session-relay/src/relay/internal/pubsub"
	"github.com/maxogod/session-relay/src/relay/internal/sessions/clients"
	"github.com/maxogod/session-relay/src/relay/internal/sessions/manager"
	"github.com/maxogod/session-relay/src/relay/internal/sessions/topics"
	"github.com/maxogod/session-relay/src/relay/internal/storage"
)

const (
	pingTimeout = 5 * time.Second

	reasonTransportClose = "transport close"
	reasonTransportError = "transport error"
	reasonShutdown       = "server shutdown"
)

type Server struct {
	config            *config.Config
	running           atomic.Bool
	ready             chan struct{}
	connectionManager network.ConnectionManager
	store             manager.SessionStore
	pingServer        healthcheck.PingServer // for service health checks
	connections       sync.Map
	shutdownOnce      sync.Once
}

// NewServer builds the session store from conf and wires it to a websocket listener.
func NewServer(conf *config.Config) (*Server, error) {
	channel, err := newChannel(conf)
	if err != nil {
		return nil, err
	}

	counter, err := newCounterStore(conf)
	if err != nil {
		channel.Close()
		return nil, err
	}

	store := manager.NewSessionStore(manager.Options{
		Namespace: conf.Namespace,
		Channel:   channel,
		Counter:   counter,
	})
	return NewServerWithStore(conf, store), nil
}

func NewServerWithStore(conf *config.Config, store manager.SessionStore) *Server {
	s := &Server{
		config:            conf,
		ready:             make(chan struct{}),
		connectionManager: network.NewConnectionManager(conf.Port, conf.Path),
		store:             store,
		pingServer:        healthcheck.NewPingServer(conf.HealthCheckPort),
	}
	s.running.Store(true)

	return s
}

func (s *Server) Run() error {
	s.setupGracefulShutdown()
	defer s.Shutdown()

	err := s.connectionManager.StartListening()
	if err != nil {
		logger.Logger.Errorf("Failed to start listening: %v", err)
		return err
	}
	close(s.ready)
	logger.Logger.Infof("action: listen | result: success | addr: %s | path: %s", s.connectionManager.Addr(), s.config.Path)

	go s.pingServer.Run() // Start health check server

	for s.running.Load() {
		s.store.ReapStaleClients()

		clientConnection, connErr := s.connectionManager.AcceptConnection()
		if connErr != nil {
			if !s.running.Load() || errors.Is(connErr, network.ErrListenerClosed) {
				logger.Logger.Infof("action: shutdown_signal | result: closing listener")
				break
			}
			logger.Logger.Errorf("Failed to accept connection: %v", connErr)
			break
		}

		go s.handleConnection(clientConnection)
	}

	return nil
}

// Ready is closed once the server accepts connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the websocket listen address; only valid after Ready.
func (s *Server) Addr() string {
	return s.connectionManager.Addr()
}

func (s *Server) Store() manager.SessionStore {
	return s.store
}

func (s *Server) setupGracefulShutdown() {
	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChannel
		logger.Logger.Infof("action: shutdown_signal | result: received")
		s.Shutdown()
	}()
}

func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.running.Store(false)
		s.connectionManager.Close()

		ctx := context.Background()
		s.connections.Range(func(key, value any) bool {
			id := key.(string)
			if err := s.store.Disconnect(ctx, id, true, reasonShutdown); err != nil {
				logger.Logger.Warnf("[%s] Failed to disconnect on shutdown: %v", id, err)
			}
			value.(commonNetwork.ConnectionInterface).Close()
			return true
		})

		if err := s.store.Close(); err != nil {
			logger.Logger.Errorf("action: close_session_store | result: fail | error: %v", err)
		}

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		s.pingServer.Shutdown(ctx)

		logger.Logger.Infof("action: shutdown | result: success")
	})
}

/* --- PRIVATE METHODS --- */

func (s *Server) handleConnection(conn commonNetwork.ConnectionInterface) {
	ctx := context.Background()
	defer conn.Close()

	id, err := s.store.Handshake(ctx, handshakeData(conn))
	if err != nil {
		logger.Logger.Errorf("action: handshake | result: fail | remote: %s | error: %v", conn.RemoteAddr(), err)
		return
	}
	s.connections.Store(id, conn)
	defer s.connections.Delete(id)

	reason := s.serveSession(ctx, id, conn)

	if err = s.store.Disconnect(ctx, id, false, reason); err != nil {
		logger.Logger.Warnf("[%s] Failed to disconnect: %v", id, err)
	}
	logger.Logger.Debugf("[%s] Connection closed: %s", id, reason)
}

func (s *Server) serveSession(ctx context.Context, id string, conn commonNetwork.ConnectionInterface) string {
	session := s.store.Client(id)

	subscribed := s.subscribeSessionTopics(ctx, id, conn, session)
	defer func() {
		for _, topic := range subscribed {
			if err := s.store.Unsubscribe(ctx, topic); err != nil && !errors.Is(err, pubsub.ErrChannelClosed) {
				logger.Logger.Debugf("[%s] Failed to unsubscribe %s: %v", id, topic, err)
			}
		}
	}()

	conn.SetPongHandler(func() {
		if err := s.store.Heartbeat(ctx, id); err != nil {
			logger.Logger.Debugf("[%s] Failed to relay heartbeat: %v", id, err)
		}
	})

	// The id is the first frame; anything buffered before it is flushed right after.
	if err := conn.SendData([]byte(id)); err != nil {
		logger.Logger.Warnf("[%s] Failed to send handshake id: %v", id, err)
		return reasonTransportError
	}

	send := func(msg string) {
		if err := conn.SendData([]byte(msg)); err != nil {
			logger.Logger.Debugf("[%s] Failed to write message: %v", id, err)
		}
	}
	err := session.Consume(clients.ConsumerFuncs{
		OnFlush: func(batch []string) {
			for _, msg := range batch {
				send(msg)
			}
		},
		OnDeliver: send,
	})
	if err != nil {
		logger.Logger.Warnf("[%s] Failed to attach consumer: %v", id, err)
		return reasonTransportError
	}

	stopPing := make(chan struct{})
	defer close(stopPing)
	go s.keepAlive(id, conn, stopPing)

	return s.readLoop(ctx, id, conn, session)
}

// subscribeSessionTopics closes the connection on forced disconnects and, in echo
// mode, sends every message relayed by the client back to it.
func (s *Server) subscribeSessionTopics(ctx context.Context, id string, conn commonNetwork.ConnectionInterface, session clients.ClientSession) []string {
	var subscribed []string

	forceTopic := topics.Topic(topics.DisconnectForce, id)
	err := s.store.Subscribe(ctx, forceTopic, func(_ string, reason any) {
		logger.Logger.Debugf("[%s] Forced disconnect: %v", id, reason)
		conn.Close()
	})
	if err != nil {
		logger.Logger.Warnf("[%s] Failed to subscribe %s: %v", id, forceTopic, err)
	} else {
		subscribed = append(subscribed, forceTopic)
	}

	if !s.config.Echo {
		return subscribed
	}

	messageTopic := topics.Topic(topics.Message, id)
	err = s.store.Subscribe(ctx, messageTopic, func(_ string, payload any) {
		if err := session.Publish(fmt.Sprint(payload)); err != nil {
			logger.Logger.Debugf("[%s] Failed to echo message: %v", id, err)
		}
	})
	if err != nil {
		logger.Logger.Warnf("[%s] Failed to subscribe %s: %v", id, messageTopic, err)
	} else {
		subscribed = append(subscribed, messageTopic)
	}
	return subscribed
}

func (s *Server) readLoop(ctx context.Context, id string, conn commonNetwork.ConnectionInterface, session clients.ClientSession) string {
	for {
		data, err := conn.ReceiveData()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Logger.Debugf("[%s] Error receiving data: %v", id, err)
				return reasonTransportError
			}
			return reasonTransportClose
		}

		if _, err = session.Count(ctx); err != nil {
			logger.Logger.Warnf("[%s] Failed to count request: %v", id, err)
		}

		if err = session.OnMessage(ctx, string(data)); err != nil {
			logger.Logger.Warnf("[%s] Failed to relay message: %v", id, err)
		}
	}
}

func (s *Server) keepAlive(id string, conn commonNetwork.ConnectionInterface, stop <-chan struct{}) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.Ping(pingTimeout); err != nil {
				logger.Logger.Debugf("[%s] Failed to ping client: %v", id, err)
				return
			}
		}
	}
}

func handshakeData(conn commonNetwork.ConnectionInterface) manager.HandshakeData {
	data := manager.HandshakeData{Address: conn.RemoteAddr()}
	if r := conn.Request(); r != nil {
		data.Headers = r.Header
		data.Query = r.URL.Query()
	}
	return data
}

func newChannel(conf *config.Config) (pubsub.Channel, error) {
	switch conf.Transport.Kind {
	case config.TransportAMQP:
		channel, err := pubsub.NewAMQPChannel(conf.Transport.Address, conf.Transport.Exchange, conf.Transport.DeleteExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect relay channel: %w", err)
		}
		return channel, nil
	default:
		return pubsub.NewMemoryChannel(), nil
	}
}

func newCounterStore(conf *config.Config) (storage.CounterStore, error) {
	switch conf.Storage.Kind {
	case config.StorageDisk:
		return storage.NewDiskCounterStorage(conf.Storage.Path)
	default:
		return storage.NewMemoryCounterStorage(), nil
	}
}
