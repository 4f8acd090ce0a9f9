package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/biblenation/internal/account/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.Login("success")
		m.Signup()
		m.GatedQuestion("free_quota")
		m.Notification("admin", "new_account")
		m.PasswordReset("request", "ok")
		m.EmailLogged()
		m.StreamOpened()
		m.StreamClosed()
		m.EventDropped()
	})
}

func TestCountersAndHandler(t *testing.T) {
	m := metrics.New()
	m.Login("success")
	m.Login("success")
	m.Login("invalid_credentials")
	m.Signup()

	count, err := testutil.GatherAndCount(m.Registry(), "biblenation_logins_total")
	require.NoError(t, err)
	require.Equal(t, 2, count) // two label sets

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `biblenation_logins_total{outcome="success"} 2`)
	require.Contains(t, rec.Body.String(), "biblenation_signups_total 1")
}
