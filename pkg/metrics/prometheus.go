// prometheus.go defines the Prometheus collectors exported by the core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors bundles the metrics the session service records. A nil
// *Collectors is valid and records nothing, so tests can pass nil.
type Collectors struct {
	registry *prometheus.Registry

	// OnlineUsers tracks the number of identities currently registered.
	OnlineUsers prometheus.Gauge

	// SessionsEstablished counts completed key distributions by mode
	// ("hybrid_pqc" or "qkd").
	SessionsEstablished *prometheus.CounterVec

	// SessionFailures counts rejected establishment requests by reason.
	SessionFailures *prometheus.CounterVec

	// IntegrityFailures counts receive-path integrity rejections by kind
	// ("missing", "unsupported", "missing_timestamp", "mismatch", "replay").
	IntegrityFailures *prometheus.CounterVec

	// MessagesRelayed counts encrypted messages forwarded to recipients.
	MessagesRelayed prometheus.Counter

	// ProviderFallbacks counts KEM operations downgraded to simulated output.
	ProviderFallbacks prometheus.Counter
}

// NewCollectors creates and registers the core's collectors on a private
// registry.
func NewCollectors() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		registry: reg,
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cryptexq",
			Name:      "online_users",
			Help:      "Number of identities currently registered.",
		}),
		SessionsEstablished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptexq",
			Name:      "sessions_established_total",
			Help:      "Completed key distributions by protocol mode.",
		}, []string{"mode"}),
		SessionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptexq",
			Name:      "session_failures_total",
			Help:      "Rejected session establishment requests by reason.",
		}, []string{"reason"}),
		IntegrityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptexq",
			Name:      "integrity_failures_total",
			Help:      "Receive-path integrity rejections by kind.",
		}, []string{"kind"}),
		MessagesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryptexq",
			Name:      "messages_relayed_total",
			Help:      "Encrypted messages forwarded to recipients.",
		}),
		ProviderFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryptexq",
			Name:      "provider_fallbacks_total",
			Help:      "KEM operations downgraded to simulated output.",
		}),
	}
	reg.MustRegister(
		c.OnlineUsers,
		c.SessionsEstablished,
		c.SessionFailures,
		c.IntegrityFailures,
		c.MessagesRelayed,
		c.ProviderFallbacks,
	)
	return c
}

// Handler returns the /metrics HTTP handler for this collector set.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Nil-safe recording helpers. The session service calls these uncondition-
// ally; a nil receiver drops the observation.

func (c *Collectors) SetOnlineUsers(n int) {
	if c != nil {
		c.OnlineUsers.Set(float64(n))
	}
}

func (c *Collectors) SessionEstablished(mode string) {
	if c != nil {
		c.SessionsEstablished.WithLabelValues(mode).Inc()
	}
}

func (c *Collectors) SessionFailed(reason string) {
	if c != nil {
		c.SessionFailures.WithLabelValues(reason).Inc()
	}
}

func (c *Collectors) IntegrityFailed(kind string) {
	if c != nil {
		c.IntegrityFailures.WithLabelValues(kind).Inc()
	}
}

func (c *Collectors) MessageRelayed() {
	if c != nil {
		c.MessagesRelayed.Inc()
	}
}

func (c *Collectors) ProviderFallback() {
	if c != nil {
		c.ProviderFallbacks.Inc()
	}
}
