package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

func (m LatencyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case TickMsg:
		m.refresh()
		return m, tickCmd()
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *LatencyModel) refresh() {
	m.totals = m.stats.GetTotals()
	m.servers = m.stats.GetTopServers(topServers)
	m.recent = m.stats.GetRecentLatencies()
	m.alerts = m.stats.GetAlerts(recentAlerts)

	if m.counters != nil {
		m.lines = m.counters.Lines.Load()
		m.skipped = m.counters.Skipped.Load()
		m.pending = m.counters.Pending.Load()
	}
	if m.depth != nil {
		m.queued = m.depth()
	}

	rows := make([]table.Row, len(m.servers))
	for i, stat := range m.servers {
		rows[i] = table.Row{
			stat.Server,
			fmt.Sprintf("%d", stat.Count),
			formatMillis(stat.Last),
			formatMillis(stat.Mean),
			formatMillis(stat.Max),
		}
	}
	m.table.SetRows(rows)
}

func formatMillis(seconds float64) string {
	return fmt.Sprintf("%.3f", seconds*1000)
}
