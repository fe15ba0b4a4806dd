package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Newsletterwebserver/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveDispatchCountsByProviderAndStatus(t *testing.T) {
	m := New()
	m.ObserveDispatch(domain.DispatchLog{Provider: "smtp", Status: domain.DispatchSent})
	m.ObserveDispatch(domain.DispatchLog{Provider: "smtp", Status: domain.DispatchSent})
	m.ObserveDispatch(domain.DispatchLog{Provider: "smtp", Status: domain.DispatchFailed})

	require.Equal(t, 2.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("smtp", "sent")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("smtp", "failed")))

	var nilMetrics *Metrics
	nilMetrics.ObserveDispatch(domain.DispatchLog{})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Subscriptions.WithLabelValues("new").Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `newsletter_subscriptions_total{result="new"} 1`))
}
