package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handshakewatch/internal/models"
	"handshakewatch/internal/tcpdump"
)

func TestExporterCountsMeasurements(t *testing.T) {
	e := NewExporter(nil, nil)

	require.NoError(t, e.Write(models.HandshakeMeasurement{ServerAddress: "10.0.0.1", LatencySeconds: 0.02}))
	require.NoError(t, e.Write(models.HandshakeMeasurement{ServerAddress: "10.0.0.1", LatencySeconds: -86399.9}))

	assert.Equal(t, 2.0, testutil.ToFloat64(e.measurements))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.negative))
	assert.Equal(t, 1, testutil.CollectAndCount(e.latency))
}

func TestExporterServesIngestCounters(t *testing.T) {
	var counters tcpdump.IngestCounters
	counters.Lines.Store(10)
	counters.Skipped.Store(7)
	counters.Pending.Store(3)
	depth := 4

	e := NewExporter(&counters, func() int { return depth })
	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "handshakewatch_lines_total 10")
	assert.Contains(t, text, "handshakewatch_lines_skipped_total 7")
	assert.Contains(t, text, "handshakewatch_pending_handshakes 3")
	assert.Contains(t, text, "handshakewatch_queue_depth 4")
}

func TestExporterHealth(t *testing.T) {
	srv := httptest.NewServer(NewExporter(nil, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", strings.TrimSpace(string(body)))
}
