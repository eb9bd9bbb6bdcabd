package clients

import (
	"context"
	"fmt"
	"sync"

	"github.com/maxogod/session-relay/src/common/logger"
	"github.com/maxogod/session-relay/src/relay/internal/metrics"
	"github.com/maxogod/session-relay/src/relay/internal/sessions/topics"
	"github.com/maxogod/session-relay/src/relay/internal/storage"
)

const countField = "count"

// clientSession serializes every state transition and consumer callback behind mu,
// so consumers must not call back into the same session.
type clientSession struct {
	id         string
	counterKey string
	emitter    NotificationEmitter
	counter    storage.CounterStore

	mu    sync.Mutex
	state sessionState
}

func NewClientSession(id, namespace string, emitter NotificationEmitter, counter storage.CounterStore) ClientSession {
	return &clientSession{
		id:         id,
		counterKey: CounterKey(namespace, id),
		emitter:    emitter,
		counter:    counter,
		state:      &buffering{},
	}
}

// CounterKey builds the side store key holding the request counter of id.
func CounterKey(namespace, id string) string {
	key := "client:" + id
	if namespace != "" {
		key = namespace + ":" + key
	}
	return key
}

func (cs *clientSession) ID() string {
	return cs.id
}

func (cs *clientSession) Consume(consumer Consumer) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	switch st := cs.state.(type) {
	case *destroyed:
		return ErrSessionDestroyed
	case *buffering:
		cs.state = &streaming{consumer: consumer}
		if len(st.queue) > 0 {
			logger.Logger.Debugf("[%s] Flushing %d buffered messages", cs.id, len(st.queue))
			consumer.Flush(st.queue)
			metrics.RecordMessages("flushed", len(st.queue))
		}
	case *streaming:
		st.consumer = consumer
	}
	return nil
}

func (cs *clientSession) Publish(msg string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	switch st := cs.state.(type) {
	case *destroyed:
		return ErrSessionDestroyed
	case *buffering:
		st.queue = append(st.queue, msg)
		metrics.RecordMessages("buffered", 1)
	case *streaming:
		st.consumer.Deliver(msg)
		metrics.RecordMessages("delivered", 1)
	}
	return nil
}

func (cs *clientSession) Pause() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	switch st := cs.state.(type) {
	case *destroyed:
		return ErrSessionDestroyed
	case *streaming:
		cs.state = &buffering{lastConsumer: st.consumer}
	}
	return nil
}

func (cs *clientSession) Destroy() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if st, ok := cs.state.(*buffering); ok && len(st.queue) > 0 {
		logger.Logger.Debugf("[%s] Dropping %d undelivered messages", cs.id, len(st.queue))
	}
	cs.state = &destroyed{}
}

func (cs *clientSession) IsPaused() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.state.paused()
}

func (cs *clientSession) IsDestroyed() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	_, ok := cs.state.(*destroyed)
	return ok
}

func (cs *clientSession) Buffered() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if st, ok := cs.state.(*buffering); ok {
		return len(st.queue)
	}
	return 0
}

func (cs *clientSession) Count(ctx context.Context) (int64, error) {
	n, err := cs.counter.Increment(ctx, cs.counterKey, countField)
	if err != nil {
		return 0, fmt.Errorf("[%s] failed to count request: %w", cs.id, err)
	}
	return n, nil
}

func (cs *clientSession) Get(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (cs *clientSession) Set(_ context.Context, _, _ string) error {
	return nil
}

func (cs *clientSession) OnMessage(ctx context.Context, msg string) error {
	return cs.emitter.Publish(ctx, topics.Topic(topics.Message, cs.id), msg)
}
