package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.CheckIn("SUCCESS")
	m.CheckIn("SUCCESS")
	m.CheckInN("SUCCESS", 3)
	m.CheckInN("SUCCESS", 0)
	m.Registration("created")

	body := scrape(t, m)
	assert.Contains(t, body, `tixora_checkins_total{status="SUCCESS"} 5`)
	assert.Contains(t, body, `tixora_registrations_total{outcome="created"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CheckIn("SUCCESS")
		m.CheckInN("SUCCESS", 2)
		m.Registration("created")
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.CheckIn("ALREADY_CHECKED_IN")

	body := scrape(t, m)
	assert.True(t, strings.Contains(body, `tixora_checkins_total{status="ALREADY_CHECKED_IN"} 1`))
	assert.Contains(t, body, "go_goroutines")
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
