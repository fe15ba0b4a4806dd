// Package metrics exposes the server's Prometheus counters on a private
// registry.
package metrics

import (
	"net/http"

	"Newsletterwebserver/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	Subscriptions   *prometheus.CounterVec
	FailedLogins    *prometheus.CounterVec
	BlockedLogins   *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
	Dispatches      *prometheus.CounterVec
	NewsletterViews *prometheus.CounterVec
	PanicsRecovered prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Subscriptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_subscriptions_total",
			Help: "Subscription form posts by outcome.",
		}, []string{"result"}),
		FailedLogins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_failed_login_attempts_total",
			Help: "Failed login attempts by area.",
		}, []string{"area"}),
		BlockedLogins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_blocked_login_attempts_total",
			Help: "Login attempts refused by the throttle.",
		}, []string{"area"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_rate_limited_requests_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}, []string{"path"}),
		Dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_dispatch_messages_total",
			Help: "Outbound newsletter messages by provider and status.",
		}, []string{"provider", "status"}),
		NewsletterViews: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_page_views_total",
			Help: "Newsletter page views by served edition.",
		}, []string{"edition"}),
		PanicsRecovered: f.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_http_panics_recovered_total",
			Help: "HTTP handler panics recovered by middleware.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveDispatch counts one recipient outcome.
func (m *Metrics) ObserveDispatch(entry domain.DispatchLog) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(entry.Provider, string(entry.Status)).Inc()
}
