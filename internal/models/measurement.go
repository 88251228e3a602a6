package models

import "time"

// HandshakeMeasurement is one completed handshake.
type HandshakeMeasurement struct {
	ServerAddress  string
	LatencySeconds float64

	// ObservedAt is the wall-clock time the final ACK was matched.
	// Zero when the measurement did not pass through the ingest loop.
	ObservedAt time.Time
}
