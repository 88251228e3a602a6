package analysis

import (
	"math"
	"sort"
	"sync"
	"time"

	"handshakewatch/internal/models"
)

const defaultRecentSize = 120

// ServerStat holds latency stats for a single server.
type ServerStat struct {
	Server string
	Count  int64
	Min    float64
	Max    float64
	Mean   float64
	Last   float64
}

// Totals summarizes every measurement seen so far.
type Totals struct {
	Count    int64
	Negative int64 // Wrapped across midnight
	Min      float64
	Max      float64
	Mean     float64
	Started  time.Time
}

type serverAccum struct {
	count int64
	sum   float64
	min   float64
	max   float64
	last  float64
}

// LatencyStats aggregates measurements for the dashboard, the report and the alerts.
// It is a sink and is written by the consumer goroutine.
type LatencyStats struct {
	mu       sync.Mutex
	started  time.Time
	count    int64
	negative int64
	sum      float64
	min      float64
	max      float64
	servers  map[string]*serverAccum

	recent     []float64
	recentHead int
	recentSize int

	anomalyDetector *AnomalyDetector
}

// NewLatencyStats creates a new LatencyStats instance.
func NewLatencyStats(cfg Config) *LatencyStats {
	return &LatencyStats{
		started:         time.Now(),
		min:             math.Inf(1),
		max:             math.Inf(-1),
		servers:         make(map[string]*serverAccum),
		recent:          make([]float64, 0, defaultRecentSize),
		recentSize:      defaultRecentSize,
		anomalyDetector: NewAnomalyDetector(cfg),
	}
}

// Write records one measurement.
func (s *LatencyStats) Write(m models.HandshakeMeasurement) error {
	s.mu.Lock()
	s.count++
	s.sum += m.LatencySeconds
	s.min = math.Min(s.min, m.LatencySeconds)
	s.max = math.Max(s.max, m.LatencySeconds)
	if m.LatencySeconds < 0 {
		s.negative++
	}

	acc, ok := s.servers[m.ServerAddress]
	if !ok {
		acc = &serverAccum{min: m.LatencySeconds, max: m.LatencySeconds}
		s.servers[m.ServerAddress] = acc
	}
	acc.count++
	acc.sum += m.LatencySeconds
	acc.min = math.Min(acc.min, m.LatencySeconds)
	acc.max = math.Max(acc.max, m.LatencySeconds)
	acc.last = m.LatencySeconds

	// Keep circular buffer (last N latencies)
	if len(s.recent) < s.recentSize {
		s.recent = append(s.recent, m.LatencySeconds)
	} else {
		s.recent[s.recentHead] = m.LatencySeconds
		s.recentHead = (s.recentHead + 1) % s.recentSize
	}
	s.mu.Unlock()

	// Anomaly detector has its own mutex
	s.anomalyDetector.Observe(m)
	return nil
}

// GetTotals returns the overall summary.
func (s *LatencyStats) GetTotals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Totals{Count: s.count, Negative: s.negative, Started: s.started}
	if s.count > 0 {
		t.Min = s.min
		t.Max = s.max
		t.Mean = s.sum / float64(s.count)
	}
	return t
}

// GetTopServers returns the top N servers by handshake count.
func (s *LatencyStats) GetTopServers(limit int) []ServerStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]ServerStat, 0, len(s.servers))
	for server, acc := range s.servers {
		stats = append(stats, ServerStat{
			Server: server,
			Count:  acc.count,
			Min:    acc.min,
			Max:    acc.max,
			Mean:   acc.sum / float64(acc.count),
			Last:   acc.last,
		})
	}

	// Sort descending by count, then by address for a stable order
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Server < stats[j].Server
	})

	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// GetRecentLatencies returns the most recent latencies, oldest first.
func (s *LatencyStats) GetRecentLatencies() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]float64, 0, len(s.recent))
	result = append(result, s.recent[s.recentHead:]...)
	result = append(result, s.recent[:s.recentHead]...)
	return result
}

// GetAlerts returns recent latency alerts.
func (s *LatencyStats) GetAlerts(limit int) []Alert {
	return s.anomalyDetector.GetRecentAlerts(limit)
}

// SetConfig forwards new thresholds to the anomaly detector.
func (s *LatencyStats) SetConfig(cfg Config) {
	s.anomalyDetector.SetConfig(cfg)
}
