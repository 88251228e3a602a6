package analysis

import (
	"fmt"
	"sync"
	"time"

	"handshakewatch/internal/models"
)

// AnomalyType represents the type of anomaly detected.
type AnomalyType string

const (
	AnomalySlowHandshake AnomalyType = "SLOW_HANDSHAKE"
	AnomalyClockWrap     AnomalyType = "CLOCK_WRAP"
)

// Config holds configuration for the anomaly detector.
type Config struct {
	SlowThreshold time.Duration // Latency above which a handshake is reported
	AlertCooldown time.Duration // Minimum gap between slow alerts for one server
	MaxAlerts     int           // Alerts kept in history
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		SlowThreshold: 1 * time.Second,
		AlertCooldown: 10 * time.Second,
		MaxAlerts:     20,
	}
}

// Alert represents a detected latency anomaly.
type Alert struct {
	Type      AnomalyType
	Source    string // Server address
	Message   string // Human-readable description
	Timestamp time.Time
}

// AnomalyDetector watches completed handshakes for unusual latencies.
type AnomalyDetector struct {
	mu sync.Mutex

	config Config

	lastSlowAlert map[string]time.Time // server -> last alert time

	alerts []Alert

	now func() time.Time
}

// NewAnomalyDetector creates a new anomaly detection engine.
func NewAnomalyDetector(cfg Config) *AnomalyDetector {
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = DefaultConfig().MaxAlerts
	}
	return &AnomalyDetector{
		config:        cfg,
		lastSlowAlert: make(map[string]time.Time),
		alerts:        make([]Alert, 0),
		now:           time.Now,
	}
}

// SetConfig replaces thresholds at runtime.
func (ad *AnomalyDetector) SetConfig(cfg Config) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = ad.config.MaxAlerts
	}
	ad.config = cfg
	ad.trimLocked()
}

// Observe analyzes one measurement.
func (ad *AnomalyDetector) Observe(m models.HandshakeMeasurement) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	now := ad.now()

	// Rule 1: capture crossed midnight between SYN and ACK
	if m.LatencySeconds < 0 {
		ad.addAlert(Alert{
			Type:      AnomalyClockWrap,
			Source:    m.ServerAddress,
			Message:   fmt.Sprintf("Negative latency %.6fs for %s (capture crossed midnight)", m.LatencySeconds, m.ServerAddress),
			Timestamp: now,
		})
		return
	}

	// Rule 2: slow handshake, throttled per server
	if ad.config.SlowThreshold <= 0 || m.LatencySeconds <= ad.config.SlowThreshold.Seconds() {
		return
	}
	last, exists := ad.lastSlowAlert[m.ServerAddress]
	if exists && now.Sub(last) <= ad.config.AlertCooldown {
		return
	}
	ad.addAlert(Alert{
		Type:      AnomalySlowHandshake,
		Source:    m.ServerAddress,
		Message:   fmt.Sprintf("Slow handshake for %s: %.3fs (threshold %s)", m.ServerAddress, m.LatencySeconds, ad.config.SlowThreshold),
		Timestamp: now,
	})
	ad.lastSlowAlert[m.ServerAddress] = now
}

// addAlert adds an alert to the history (circular buffer).
func (ad *AnomalyDetector) addAlert(alert Alert) {
	ad.alerts = append(ad.alerts, alert)
	ad.trimLocked()
}

func (ad *AnomalyDetector) trimLocked() {
	if len(ad.alerts) > ad.config.MaxAlerts {
		ad.alerts = ad.alerts[len(ad.alerts)-ad.config.MaxAlerts:]
	}
}

// GetRecentAlerts returns the most recent alerts (thread-safe).
func (ad *AnomalyDetector) GetRecentAlerts(limit int) []Alert {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	if len(ad.alerts) == 0 {
		return []Alert{}
	}

	start := 0
	if limit > 0 && len(ad.alerts) > limit {
		start = len(ad.alerts) - limit
	}

	result := make([]Alert, len(ad.alerts)-start)
	copy(result, ad.alerts[start:])

	return result
}
