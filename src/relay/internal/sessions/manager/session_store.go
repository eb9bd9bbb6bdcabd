package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/maxogod/session-relay/src/common/logger"
	"github.com/maxogod/session-relay/src/relay/internal/metrics"
	"github.com/maxogod/session-relay/src/relay/internal/pubsub"
	"github.com/maxogod/session-relay/src/relay/internal/registry"
	"github.com/maxogod/session-relay/src/relay/internal/sessions/clients"
	"github.com/maxogod/session-relay/src/relay/internal/sessions/topics"
	"github.com/maxogod/session-relay/src/relay/internal/storage"
)

var ErrIDExhausted = errors.New("unable to generate a unique session id")

const maxIDAttempts = 5

// Options configures a SessionStore. Nil collaborators default to in-memory ones.
type Options struct {
	Namespace string
	Registry  registry.Registry
	Channel   pubsub.Channel
	Counter   storage.CounterStore
}

type sessionStore struct {
	namespace string
	registry  registry.Registry
	channel   pubsub.Channel
	counter   storage.CounterStore
	clients   sync.Map

	generateID func() (string, error)
}

func NewSessionStore(opts Options) SessionStore {
	logger.Logger.Infof("action: init_session_store | namespace: %q", opts.Namespace)

	ss := &sessionStore{
		namespace:  opts.Namespace,
		registry:   opts.Registry,
		channel:    opts.Channel,
		counter:    opts.Counter,
		generateID: generateID,
	}
	if ss.registry == nil {
		ss.registry = registry.NewMemoryRegistry()
	}
	if ss.channel == nil {
		ss.channel = pubsub.NewMemoryChannel()
	}
	if ss.counter == nil {
		ss.counter = storage.NewMemoryCounterStorage()
	}
	return ss
}

func (ss *sessionStore) Handshake(ctx context.Context, data HandshakeData) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := ss.generateID()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrIDExhausted, err)
		}

		taken, err := ss.registry.Exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check handshake registry: %w", err)
		}
		if taken {
			logger.Logger.Warnf("[%s] Generated id collides with a handshaken client, retrying", id)
			continue
		}

		if err = ss.registry.Add(ctx, id); err != nil {
			return "", fmt.Errorf("failed to register handshake: %w", err)
		}

		metrics.RecordHandshake()
		metrics.SetHandshaken(ss.registry.Len())
		logger.Logger.Debugf("[%s] Handshaken client from %s", id, data.Address)
		return id, nil
	}
	return "", ErrIDExhausted
}

func (ss *sessionStore) IsHandshaken(ctx context.Context, id string) (bool, error) {
	exists, err := ss.registry.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check handshake registry: %w", err)
	}
	return exists, nil
}

func (ss *sessionStore) Client(id string) clients.ClientSession {
	for {
		fresh := clients.NewClientSession(id, ss.namespace, ss, ss.counter)

		current, loaded := ss.clients.LoadOrStore(id, fresh)
		if !loaded {
			metrics.SessionOpened()
			logger.Logger.Debugf("[%s] Initializing client session", id)
			return fresh
		}

		session := current.(clients.ClientSession)
		if !session.IsDestroyed() {
			return session
		}

		if ss.clients.CompareAndSwap(id, session, fresh) {
			logger.Logger.Debugf("[%s] Replacing destroyed client session", id)
			return fresh
		}
	}
}

// Disconnect only acts for the caller whose Remove actually unregistered id, so
// concurrent disconnects of the same id notify once.
func (ss *sessionStore) Disconnect(ctx context.Context, id string, force bool, reason string) error {
	removed, err := ss.registry.Remove(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to unregister handshake: %w", err)
	}
	if !removed {
		return nil
	}

	logger.Logger.Debugf("[%s] Destroying client session, force: %t, reason: %s", id, force, reason)

	if current, ok := ss.clients.LoadAndDelete(id); ok {
		current.(clients.ClientSession).Destroy()
		metrics.SessionClosed()
	}
	metrics.RecordDisconnect(force)
	metrics.SetHandshaken(ss.registry.Len())

	var forceErr error
	if force {
		forceErr = ss.Publish(ctx, topics.Topic(topics.DisconnectForce, id), reason)
	}
	return errors.Join(forceErr, ss.Publish(ctx, topics.Topic(topics.Disconnect, id), reason))
}

func (ss *sessionStore) Heartbeat(ctx context.Context, id string) error {
	return ss.Publish(ctx, topics.Topic(topics.HeartbeatClear, id), nil)
}

func (ss *sessionStore) Message(ctx context.Context, id string, packet any) error {
	return ss.Publish(ctx, topics.Topic(topics.Message, id), packet)
}

func (ss *sessionStore) Publish(ctx context.Context, topic string, data any) error {
	kind := "custom"
	if k, _, err := topics.Parse(topic); err == nil && k.Known() {
		kind = string(k)
	}

	err := ss.channel.Publish(ctx, topic, data)
	metrics.RecordNotification(kind, err == nil)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

func (ss *sessionStore) Subscribe(ctx context.Context, topic string, handler pubsub.Handler) error {
	return ss.channel.Subscribe(ctx, topic, handler)
}

func (ss *sessionStore) Unsubscribe(ctx context.Context, topic string) error {
	return ss.channel.Unsubscribe(ctx, topic)
}

func (ss *sessionStore) ReapStaleClients() {
	ss.clients.Range(func(key, value any) bool {
		session := value.(clients.ClientSession)
		if session.IsDestroyed() && ss.clients.CompareAndDelete(key, value) {
			metrics.SessionClosed()
		}
		return true
	})
}

func (ss *sessionStore) Close() error {
	ss.clients.Range(func(key, value any) bool {
		value.(clients.ClientSession).Destroy()
		if ss.clients.CompareAndDelete(key, value) {
			metrics.SessionClosed()
		}
		return true
	})

	return errors.Join(ss.channel.Close(), ss.counter.Close())
}
