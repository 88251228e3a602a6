package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"handshakewatch/internal/analysis"
)

const topServers = 20

// GenerateSessionReport writes a summary of the session's handshakes into dir
// and returns the file path. Only the "html" format is supported.
func GenerateSessionReport(stats *analysis.LatencyStats, format, dir, sessionID string) (string, error) {
	if format != "html" {
		return "", fmt.Errorf("unsupported format: %s", format)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("report_%s.html", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := file.WriteString(renderHTML(stats, sessionID, timestamp)); err != nil {
		return "", err
	}

	return filename, nil
}

func renderHTML(stats *analysis.LatencyStats, sessionID, timestamp string) string {
	totals := stats.GetTotals()
	servers := stats.GetTopServers(topServers)
	alerts := stats.GetAlerts(0)

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Handshake Latency Report - %s</title>
    <style>
        body { font-family: sans-serif; margin: 20px; color: #333; }
        h1, h2 { color: #2c3e50; }
        table { width: 100%%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        .summary { background: #eef; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .alert { color: #d9534f; font-weight: bold; }
    </style>
</head>
<body>
    <h1>Handshake Latency Report</h1>
    <div class="summary">
        <p><strong>Session:</strong> %s</p>
        <p><strong>Started:</strong> %s</p>
        <p><strong>Generated:</strong> %s</p>
        <p><strong>Handshakes:</strong> %d</p>
        <p><strong>Mean latency:</strong> %s</p>
        <p><strong>Min / Max:</strong> %s / %s</p>
        <p><strong>Wrapped past midnight:</strong> %d</p>
    </div>

    <h2>Top Addresses</h2>
    <table>
        <thead>
            <tr>
                <th>Address</th>
                <th>Handshakes</th>
                <th>Min</th>
                <th>Mean</th>
                <th>Max</th>
                <th>Last</th>
            </tr>
        </thead>
        <tbody>
`, timestamp, html.EscapeString(sessionID), totals.Started.Format(time.RFC1123), time.Now().Format(time.RFC1123),
		totals.Count, formatLatency(totals.Mean), formatLatency(totals.Min), formatLatency(totals.Max), totals.Negative)

	if len(servers) == 0 {
		b.WriteString("            <tr><td colspan=\"6\">No handshakes measured during this session.</td></tr>\n")
	}
	for _, s := range servers {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(s.Server), s.Count, formatLatency(s.Min), formatLatency(s.Mean), formatLatency(s.Max), formatLatency(s.Last))
	}

	b.WriteString(`        </tbody>
    </table>

    <h2>Latency Alerts</h2>
    <table>
        <thead>
            <tr>
                <th>Time</th>
                <th>Type</th>
                <th>Address</th>
                <th>Message</th>
            </tr>
        </thead>
        <tbody>
`)

	if len(alerts) == 0 {
		b.WriteString("            <tr><td colspan=\"4\">No alerts triggered during this session.</td></tr>\n")
	}
	for _, alert := range alerts {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td class=\"alert\">%s</td><td>%s</td><td>%s</td></tr>\n",
			alert.Timestamp.Format("15:04:05"), alert.Type, html.EscapeString(alert.Source), html.EscapeString(alert.Message))
	}

	b.WriteString(`        </tbody>
    </table>
</body>
</html>`)

	return b.String()
}

func formatLatency(seconds float64) string {
	abs := seconds
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1:
		return fmt.Sprintf("%.3f s", seconds)
	case abs >= 1e-3:
		return fmt.Sprintf("%.3f ms", seconds*1e3)
	default:
		return fmt.Sprintf("%.0f µs", seconds*1e6)
	}
}
