package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"handshakewatch/internal/analysis"
	"handshakewatch/internal/tcpdump"
)

const (
	topServers    = 10
	recentAlerts  = 5
	sparkWidth    = 60
	sparkHeight   = 4
	refreshPeriod = 250 * time.Millisecond
)

type TickMsg time.Time

// LatencyModel is the live dashboard over the running monitor.
type LatencyModel struct {
	stats    *analysis.LatencyStats
	counters *tcpdump.IngestCounters
	depth    func() int
	source   string

	totals  analysis.Totals
	servers []analysis.ServerStat
	recent  []float64
	alerts  []analysis.Alert
	lines   int64
	skipped int64
	pending int64
	queued  int

	table table.Model
}

// NewLatencyModel builds the dashboard. counters and depth may be nil.
func NewLatencyModel(stats *analysis.LatencyStats, counters *tcpdump.IngestCounters, depth func() int, source string) LatencyModel {
	columns := []table.Column{
		{Title: "Address", Width: 18},
		{Title: "Count", Width: 8},
		{Title: "Last (ms)", Width: 10},
		{Title: "Mean (ms)", Width: 10},
		{Title: "Max (ms)", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(topServers),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return LatencyModel{
		stats:    stats,
		counters: counters,
		depth:    depth,
		source:   source,
		table:    t,
	}
}

func (m LatencyModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshPeriod, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
