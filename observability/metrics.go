// Package observability aggregates runtime telemetry: atomic counters
// feeding the ops /stats endpoint and a Prometheus registry feeding
// /metrics. Counters are cheap enough to bump on every routed message.
package observability

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot is the /stats JSON payload.
type Snapshot struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Sessions         int     `json:"sessions"`
	Groups           int     `json:"groups"`
	ConnectionsTotal uint64  `json:"connections_total"`
	MessagesPublic   uint64  `json:"messages_public"`
	MessagesPrivate  uint64  `json:"messages_private"`
	MessagesGroup    uint64  `json:"messages_group"`
	EntriesPersisted uint64  `json:"entries_persisted"`
	DeliveryFailures uint64  `json:"delivery_failures"`
	EventsDropped    uint64  `json:"events_dropped"`
	Searches         uint64  `json:"searches"`
	AllocMemMb       uint64  `json:"alloc_mem_mb"`
	NumGoroutine     int     `json:"num_goroutine"`
}

// Metrics owns one private Prometheus registry so independent
// instances (tests, embedded servers) never collide on collector
// registration.
type Metrics struct {
	startedAt time.Time
	registry  *prometheus.Registry

	connections      uint64
	messagesPublic   uint64
	messagesPrivate  uint64
	messagesGroup    uint64
	entriesPersisted uint64
	deliveryFailures uint64
	eventsDropped    uint64
	searches         uint64

	sessionCount func() int
	groupCount   func() int

	promConnections prometheus.Counter
	promPublic      prometheus.Counter
	promPrivate     prometheus.Counter
	promGroup       prometheus.Counter
	promPersisted   prometheus.Counter
	promFailures    prometheus.Counter
	promDropped     prometheus.Counter
	promSearches    prometheus.Counter
	promChannelLen  *prometheus.GaugeVec
	promChannelCap  *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	messages := factory.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Messages routed, by kind.",
	}, []string{"kind"})

	m := &Metrics{
		startedAt: time.Now(),
		registry:  registry,
		promConnections: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_connections_total",
			Help: "Accepted client connections.",
		}),
		promPublic:  messages.WithLabelValues("public"),
		promPrivate: messages.WithLabelValues("private"),
		promGroup:   messages.WithLabelValues("group"),
		promPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_entries_persisted_total",
			Help: "Chat entries appended to conversation logs.",
		}),
		promFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_delivery_failures_total",
			Help: "Per-recipient sends that failed and were skipped.",
		}),
		promDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_events_dropped_total",
			Help: "Domain events dropped because the fan-out buffer was full.",
		}),
		promSearches: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_searches_total",
			Help: "Archive searches served.",
		}),
		promChannelLen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chat_channel_length",
			Help: "Elements currently queued, by channel.",
		}, []string{"channel"}),
		promChannelCap: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chat_channel_capacity",
			Help: "Buffer capacity, by channel.",
		}, []string{"channel"}),
	}
	return m
}

// ObserveSizes registers live gauges for the session and group tables.
// Call once during wiring, before the ops server starts serving.
func (m *Metrics) ObserveSizes(sessions, groups func() int) {
	m.sessionCount = sessions
	m.groupCount = groups
	factory := promauto.With(m.registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chat_sessions",
		Help: "Currently connected participants.",
	}, func() float64 { return float64(sessions()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chat_groups",
		Help: "Currently existing groups.",
	}, func() float64 { return float64(groups()) })
}

func (m *Metrics) IncrConnections() {
	atomic.AddUint64(&m.connections, 1)
	m.promConnections.Inc()
}

func (m *Metrics) IncrPublicMessage() {
	atomic.AddUint64(&m.messagesPublic, 1)
	m.promPublic.Inc()
}

func (m *Metrics) IncrPrivateMessage() {
	atomic.AddUint64(&m.messagesPrivate, 1)
	m.promPrivate.Inc()
}

func (m *Metrics) IncrGroupMessage() {
	atomic.AddUint64(&m.messagesGroup, 1)
	m.promGroup.Inc()
}

func (m *Metrics) IncrPersisted() {
	atomic.AddUint64(&m.entriesPersisted, 1)
	m.promPersisted.Inc()
}

func (m *Metrics) IncrDeliveryFailure() {
	atomic.AddUint64(&m.deliveryFailures, 1)
	m.promFailures.Inc()
}

func (m *Metrics) IncrDroppedEvent() {
	atomic.AddUint64(&m.eventsDropped, 1)
	m.promDropped.Inc()
}

func (m *Metrics) IncrSearch() {
	atomic.AddUint64(&m.searches, 1)
	m.promSearches.Inc()
}

// SetChannelFill records one sampled fill level of a buffered channel.
func (m *Metrics) SetChannelFill(name string, length, capacity int) {
	m.promChannelLen.WithLabelValues(name).Set(float64(length))
	m.promChannelCap.WithLabelValues(name).Set(float64(capacity))
}

// Handler serves the Prometheus exposition format for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Stats assembles the current snapshot for the ops JSON endpoint.
func (m *Metrics) Stats() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	snap := Snapshot{
		UptimeSeconds:    time.Since(m.startedAt).Seconds(),
		ConnectionsTotal: atomic.LoadUint64(&m.connections),
		MessagesPublic:   atomic.LoadUint64(&m.messagesPublic),
		MessagesPrivate:  atomic.LoadUint64(&m.messagesPrivate),
		MessagesGroup:    atomic.LoadUint64(&m.messagesGroup),
		EntriesPersisted: atomic.LoadUint64(&m.entriesPersisted),
		DeliveryFailures: atomic.LoadUint64(&m.deliveryFailures),
		EventsDropped:    atomic.LoadUint64(&m.eventsDropped),
		Searches:         atomic.LoadUint64(&m.searches),
		AllocMemMb:       mem.Alloc / 1024 / 1024,
		NumGoroutine:     runtime.NumGoroutine(),
	}
	if m.sessionCount != nil {
		snap.Sessions = m.sessionCount()
	}
	if m.groupCount != nil {
		snap.Groups = m.groupCount()
	}
	return snap
}
