package sink

import (
	"errors"
	"fmt"
	"strconv"

	"handshakewatch/internal/logger"
	"handshakewatch/internal/models"
)

// Sink receives completed measurements from the consumer goroutine.
type Sink interface {
	Write(m models.HandshakeMeasurement) error
}

// Func adapts a function to a Sink.
type Func func(m models.HandshakeMeasurement) error

func (f Func) Write(m models.HandshakeMeasurement) error {
	return f(m)
}

// Multi writes to every sink in order and returns the joined errors.
type Multi []Sink

func (ms Multi) Write(m models.HandshakeMeasurement) error {
	var errs []error
	for _, s := range ms {
		if err := s.Write(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BestEffort wraps a sink whose failures must not stop the pipeline.
// Errors are logged and dropped.
func BestEffort(name string, s Sink) Sink {
	return Func(func(m models.HandshakeMeasurement) error {
		if err := s.Write(m); err != nil {
			logger.Warn("Sink write failed", "sink", name, "server", m.ServerAddress, "error", err)
		}
		return nil
	})
}

// FormatRecord renders a measurement as one log line: ('10.0.0.1', 0.123456)
func FormatRecord(m models.HandshakeMeasurement) string {
	return fmt.Sprintf("('%s', %s)", m.ServerAddress, strconv.FormatFloat(m.LatencySeconds, 'f', -1, 64))
}
