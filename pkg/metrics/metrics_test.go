package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.SetPlayersOnline(3)
	m.Connection("login")
	m.Connection("login")
	m.BackendConnect("lobby", "success")
	m.PacketSuppressed("keepalive")
	m.Ping(50 * time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.playersOnline))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectionsTotal.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backendConnects.WithLabelValues("lobby", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.packetsSuppressed.WithLabelValues("keepalive")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "xenon_ping_ms_count 1"))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	m.SetPlayersOnline(1)
	m.Connection("status")
	m.BackendConnect("lobby", "fail")
	m.PacketSuppressed("chat")
	m.Ping(time.Second)
}
