package healthcheck

import "context"

// PingServer is a util server that runs alongside the relay to report readiness
// on /ping and expose prometheus metrics on /metrics.
type PingServer interface {

	// Run starts the ping server and blocks until it is shut down.
	Run()

	// Shutdown stops the ping server. A later Run returns without listening.
	Shutdown(ctx context.Context)
}
