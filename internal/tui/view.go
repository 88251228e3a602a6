package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	sparkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	alertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
)

func (m LatencyModel) View() string {
	title := titleStyle.Render(fmt.Sprintf("handshakewatch - Source: %s", m.source))

	summary := fmt.Sprintf("Handshakes: %d\nMean: %s ms\nMin/Max: %s / %s ms\nWrapped: %d",
		m.totals.Count, formatMillis(m.totals.Mean), formatMillis(m.totals.Min), formatMillis(m.totals.Max), m.totals.Negative)
	summaryBox := infoStyle.Render(summary)

	ingest := fmt.Sprintf("Lines: %d\nSkipped: %d\nPending: %d\nQueued: %d", m.lines, m.skipped, m.pending, m.queued)
	ingestBox := infoStyle.Render(ingest)

	chartBox := infoStyle.Render("Recent latency\n" + renderSparkline(m.recent))
	serversBox := infoStyle.Render("Top addresses\n" + m.table.View())

	var alertLines []string
	for _, a := range m.alerts {
		alertLines = append(alertLines, fmt.Sprintf("%s %s %s",
			a.Timestamp.Format("15:04:05"), alertStyle.Render(string(a.Type)), a.Message))
	}
	if len(alertLines) == 0 {
		alertLines = append(alertLines, "No alerts")
	}
	alertsBox := infoStyle.Render("Alerts\n" + strings.Join(alertLines, "\n"))

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, summaryBox, ingestBox, chartBox)
	body := lipgloss.JoinVertical(lipgloss.Left, title, row1, serversBox, alertsBox)

	return body + "\nPress q to quit."
}

// renderSparkline draws non-negative latencies. Wrapped samples are left out.
func renderSparkline(recent []float64) string {
	data := make([]float64, 0, len(recent))
	peak := 0.0
	for _, v := range recent {
		if v < 0 {
			continue
		}
		data = append(data, v)
		peak = max(peak, v)
	}
	if len(data) == 0 {
		return "Waiting for data..."
	}

	opts := []sparkline.Option{
		sparkline.WithStyle(sparkStyle),
		sparkline.WithData(data),
	}
	if peak > 0 {
		opts = append(opts, sparkline.WithMaxValue(peak*1.1))
	}

	sl := sparkline.New(sparkWidth, sparkHeight, opts...)
	sl.DrawColumnsOnly()
	return sl.View()
}
