package reporting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handshakewatch/internal/analysis"
	"handshakewatch/internal/models"
)

func TestGenerateSessionReport(t *testing.T) {
	stats := analysis.NewLatencyStats(analysis.DefaultConfig())
	require.NoError(t, stats.Write(models.HandshakeMeasurement{ServerAddress: "192.168.1.10", LatencySeconds: 0.004}))
	require.NoError(t, stats.Write(models.HandshakeMeasurement{ServerAddress: "10.1.1.1", LatencySeconds: 1.5}))

	dir := t.TempDir()
	filename, err := GenerateSessionReport(stats, "html", dir, "session-1234")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(filename))

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	html := string(content)

	assert.Contains(t, html, "Handshake Latency Report")
	assert.Contains(t, html, "session-1234")
	assert.Contains(t, html, "192.168.1.10")
	assert.Contains(t, html, "4.000 ms")
	assert.Contains(t, html, "1.500 s")
	assert.Contains(t, html, string(analysis.AnomalySlowHandshake))
}

func TestGenerateSessionReportEmpty(t *testing.T) {
	stats := analysis.NewLatencyStats(analysis.DefaultConfig())

	filename, err := GenerateSessionReport(stats, "html", t.TempDir(), "")
	require.NoError(t, err)

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(content), "No handshakes measured during this session.")
	assert.Contains(t, string(content), "No alerts triggered during this session.")
}

func TestGenerateSessionReportUnsupportedFormat(t *testing.T) {
	_, err := GenerateSessionReport(analysis.NewLatencyStats(analysis.DefaultConfig()), "pdf", t.TempDir(), "")
	assert.Error(t, err)
}

func TestFormatLatency(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "250 µs", formatLatency(0.00025))
	assert.Equal(t, "12.500 ms", formatLatency(0.0125))
	assert.Equal(t, "2.000 s", formatLatency(2))
	assert.Equal(t, "-86399.900 s", formatLatency(-86399.9))
}
