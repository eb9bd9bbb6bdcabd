package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	handshakes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "sessions",
			Name:      "handshakes_total",
			Help:      "Completed handshakes.",
		},
	)
	disconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "sessions",
			Name:      "disconnects_total",
			Help:      "Disconnects of handshaken clients.",
		},
		[]string{"forced"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Client sessions currently cached.",
		},
	)
	handshaken = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Subsystem: "sessions",
			Name:      "handshaken",
			Help:      "Ids currently in the handshake registry.",
		},
	)
	messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "sessions",
			Name:      "messages_total",
			Help:      "Outbound messages by how they were handled.",
		},
		[]string{"mode"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "pubsub",
			Name:      "notifications_total",
			Help:      "Notifications published on the relay channel.",
		},
		[]string{"kind", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(handshakes, disconnects, activeSessions, handshaken, messages, notifications)
	})
}

func RecordHandshake() {
	RegisterMetrics()
	handshakes.Inc()
}

func RecordDisconnect(forced bool) {
	RegisterMetrics()
	disconnects.WithLabelValues(strconv.FormatBool(forced)).Inc()
}

func SessionOpened() {
	RegisterMetrics()
	activeSessions.Inc()
}

func SessionClosed() {
	RegisterMetrics()
	activeSessions.Dec()
}

func SetHandshaken(n int) {
	RegisterMetrics()
	handshaken.Set(float64(n))
}

// RecordMessages counts n outbound messages handled in mode ("buffered", "flushed" or "delivered").
func RecordMessages(mode string, n int) {
	RegisterMetrics()
	messages.WithLabelValues(mode).Add(float64(n))
}

func RecordNotification(kind string, success bool) {
	RegisterMetrics()
	notifications.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
}
