package analysis

import (
	"regexp"
	"strings"

	"handshakewatch/internal/models"
	"handshakewatch/internal/tcpdump"
)

var ipv4Pattern = regexp.MustCompile(`^((25[0-5]|2[0-4]\d|[01]?\d\d?)\.){3}(25[0-5]|2[0-4]\d|[01]?\d\d?)$`)

// HandshakeTracker correlates SYN and final ACK events per connection key.
// It is not safe for concurrent use; only the ingest goroutine may call it.
type HandshakeTracker struct {
	pending map[string]string // connection key -> time of day of the SYN
}

// NewHandshakeTracker creates an empty tracker.
func NewHandshakeTracker() *HandshakeTracker {
	return &HandshakeTracker{
		pending: make(map[string]string),
	}
}

// Dispatch routes a classified event to OnSynAck or OnFinalAck.
func (t *HandshakeTracker) Dispatch(ev models.PacketEvent) (models.HandshakeMeasurement, bool) {
	switch ev.Kind {
	case models.KindSynAck:
		t.OnSynAck(ev.ConnectionKey, ev.TimeOfDay)
	case models.KindFinalAck:
		return t.OnFinalAck(ev.ConnectionKey, ev.TimeOfDay)
	}
	return models.HandshakeMeasurement{}, false
}

// OnSynAck records the start of a handshake. A later SYN for the same key
// replaces the earlier one.
func (t *HandshakeTracker) OnSynAck(key, timeOfDay string) {
	t.pending[key] = timeOfDay
}

// OnFinalAck completes the handshake for key. The pending entry is removed
// whenever it exists, even if no measurement can be produced from it.
func (t *HandshakeTracker) OnFinalAck(key, timeOfDay string) (models.HandshakeMeasurement, bool) {
	start, ok := t.pending[key]
	if !ok {
		return models.HandshakeMeasurement{}, false
	}
	delete(t.pending, key)

	addr, ok := ServerAddress(key)
	if !ok {
		return models.HandshakeMeasurement{}, false
	}

	latency, err := tcpdump.Elapsed(start, timeOfDay)
	if err != nil {
		return models.HandshakeMeasurement{}, false
	}

	return models.HandshakeMeasurement{
		ServerAddress:  addr,
		LatencySeconds: latency,
	}, true
}

// Pending returns the SYN time stored for key.
func (t *HandshakeTracker) Pending(key string) (string, bool) {
	v, ok := t.pending[key]
	return v, ok
}

// Len returns the number of handshakes waiting for their final ACK.
func (t *HandshakeTracker) Len() int {
	return len(t.pending)
}

// ServerAddress extracts the IPv4 address from an "a.b.c.d.port" key.
func ServerAddress(key string) (string, bool) {
	idx := strings.LastIndexByte(key, '.')
	if idx <= 0 {
		return "", false
	}
	addr := key[:idx]
	if !ipv4Pattern.MatchString(addr) {
		return "", false
	}
	return addr, true
}
