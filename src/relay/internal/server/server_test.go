package server_test

import (
	"context"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/maxogod/session-relay/src/common/logger"
	commonNetwork "github.com/maxogod/session-relay/src/common/network"
	"github.com/maxogod/session-relay/src/relay/config"
	"github.com/maxogod/session-relay/src/relay/internal/server"
	"github.com/maxogod/session-relay/src/relay/internal/sessions/manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger(logger.LoggerEnvDevelopment)
	os.Exit(m.Run())
}

func testConfig(echo bool) *config.Config {
	return &config.Config{
		ID:           "relay-test",
		Port:         0,
		Path:         "/socket",
		Echo:         echo,
		PingInterval: 50 * time.Millisecond,
		Transport:    config.TransportConfig{Kind: config.TransportMemory},
		Storage:      config.StorageConfig{Kind: config.StorageMemory},
	}
}

func startServer(t *testing.T, conf *config.Config) *server.Server {
	s, err := server.NewServer(conf)
	require.NoError(t, err)

	go s.Run()
	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start in time")
	}
	t.Cleanup(s.Shutdown)
	return s
}

// dial connects to s and returns the connection together with the issued id.
func dial(t *testing.T, s *server.Server) (commonNetwork.ConnectionInterface, string) {
	_, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)

	conn, err := commonNetwork.Connect("ws://127.0.0.1:"+port+"/socket", 3)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	id, err := conn.ReceiveData()
	require.NoError(t, err)
	return conn, string(id)
}

func TestConnectionIsHandshaken(t *testing.T) {
	s := startServer(t, testConfig(false))
	_, id := dial(t, s)

	ok, err := s.Store().IsHandshaken(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClientMessagesAreRelayedAndCounted(t *testing.T) {
	ctx := context.Background()
	s := startServer(t, testConfig(false))
	conn, id := dial(t, s)

	relayed := make(chan any, 1)
	require.NoError(t, s.Store().Subscribe(ctx, "message:"+id, func(_ string, payload any) {
		relayed <- payload
	}))

	require.NoError(t, conn.SendData([]byte("hi")))

	select {
	case payload := <-relayed:
		assert.Equal(t, "hi", payload)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not relayed in time")
	}

	n, err := s.Store().Client(id).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestEchoModeSendsMessagesBack(t *testing.T) {
	s := startServer(t, testConfig(true))
	conn, _ := dial(t, s)

	require.NoError(t, conn.SendData([]byte("ping")))

	data, err := conn.ReceiveData()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(data))
}

func TestOutboundMessagesReachClient(t *testing.T) {
	s := startServer(t, testConfig(false))
	conn, id := dial(t, s)

	require.Eventually(t, func() bool {
		return !s.Store().Client(id).IsPaused()
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Store().Client(id).Publish("from server"))

	data, err := conn.ReceiveData()
	require.NoError(t, err)
	assert.Equal(t, "from server", string(data))
}

func TestClosingClientDisconnects(t *testing.T) {
	ctx := context.Background()
	s := startServer(t, testConfig(false))
	conn, id := dial(t, s)

	reasons := make(chan any, 1)
	require.NoError(t, s.Store().Subscribe(ctx, "disconnect:"+id, func(_ string, reason any) {
		reasons <- reason
	}))

	require.NoError(t, conn.Close())

	select {
	case reason := <-reasons:
		assert.NotEmpty(t, reason)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect was not published in time")
	}

	ok, err := s.Store().IsHandshaken(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestForcedDisconnectClosesConnection(t *testing.T) {
	s := startServer(t, testConfig(false))
	conn, id := dial(t, s)

	require.NoError(t, s.Store().Disconnect(context.Background(), id, true, "kicked"))

	_, err := conn.ReceiveData()
	assert.Error(t, err)
}

func TestPongsAreRelayedAsHeartbeats(t *testing.T) {
	ctx := context.Background()
	s := startServer(t, testConfig(false))
	conn, id := dial(t, s)

	var once sync.Once
	beats := make(chan struct{})
	require.NoError(t, s.Store().Subscribe(ctx, "heartbeat-clear:"+id, func(string, any) {
		once.Do(func() { close(beats) })
	}))

	// Reading lets the client answer pings with pongs.
	go func() {
		for {
			if _, err := conn.ReceiveData(); err != nil {
				return
			}
		}
	}()

	select {
	case <-beats:
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat relayed in time")
	}
}

func TestShutdownDisconnectsEveryone(t *testing.T) {
	conf := testConfig(false)
	store := manager.NewSessionStore(manager.Options{})
	s := server.NewServerWithStore(conf, store)
	go s.Run()
	<-s.Ready()

	conn, id := dial(t, s)
	s.Shutdown()

	_, err := conn.ReceiveData()
	assert.Error(t, err)

	ok, err := store.IsHandshaken(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
}
