package healthcheck

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/maxogod/session-relay/src/common/logger"
	"github.com/maxogod/session-relay/src/relay/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type pingServer struct {
	port   int
	mu     sync.Mutex
	server *http.Server
	closed bool
}

func NewPingServer(port int) PingServer {
	return &pingServer{
		port: port,
	}
}

// Handler serves /ping and /metrics.
func Handler() http.Handler {
	metrics.RegisterMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (p *pingServer) Run() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		logger.Logger.Debugf("Ping server shut down before start, not listening")
		return
	}
	p.server = &http.Server{
		Addr:    ":" + strconv.Itoa(p.port),
		Handler: Handler(),
	}
	server := p.server
	p.mu.Unlock()

	logger.Logger.Infof("Starting ping server on port %d", p.port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Logger.Errorf("Ping server failed: %v", err)
	}
}

func (p *pingServer) Shutdown(ctx context.Context) {
	p.mu.Lock()
	p.closed = true
	server := p.server
	p.mu.Unlock()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			logger.Logger.Errorf("Failed to close ping server: %v", err)
		}
	}
}
