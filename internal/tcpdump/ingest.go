package tcpdump

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"handshakewatch/internal/logger"
	"handshakewatch/internal/models"
)

// Dispatcher consumes classified events and reports completed handshakes.
type Dispatcher interface {
	Dispatch(ev models.PacketEvent) (models.HandshakeMeasurement, bool)
	Len() int
}

// Publisher accepts completed measurements.
type Publisher interface {
	Push(ctx context.Context, m models.HandshakeMeasurement) error
}

// IngestCounters are updated by the ingest goroutine and safe to read from others.
type IngestCounters struct {
	Lines        atomic.Int64
	Skipped      atomic.Int64
	SynAcks      atomic.Int64
	FinalAcks    atomic.Int64
	Measurements atomic.Int64
	Pending      atomic.Int64
}

// Ingest reads capture lines from r until EOF or ctx ends. Lines that cannot
// be decoded or classified are skipped.
func Ingest(ctx context.Context, r io.Reader, d Dispatcher, out Publisher, counters *IngestCounters) error {
	if counters == nil {
		counters = &IngestCounters{}
	}

	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		raw, err := reader.ReadString('\n')
		if len(raw) > 0 {
			if perr := ingestLine(ctx, raw, d, out, counters); perr != nil {
				return perr
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read capture stream: %w", err)
		}
	}
}

func ingestLine(ctx context.Context, raw string, d Dispatcher, out Publisher, counters *IngestCounters) error {
	line := strings.TrimRightFunc(raw, unicode.IsSpace)
	if line == "" {
		return nil
	}
	counters.Lines.Add(1)

	if !utf8.ValidString(line) {
		counters.Skipped.Add(1)
		return nil
	}

	ev := Classify(line)
	switch ev.Kind {
	case models.KindSynAck:
		counters.SynAcks.Add(1)
	case models.KindFinalAck:
		counters.FinalAcks.Add(1)
	default:
		counters.Skipped.Add(1)
		return nil
	}

	m, ok := d.Dispatch(ev)
	counters.Pending.Store(int64(d.Len()))
	if !ok {
		return nil
	}

	m.ObservedAt = time.Now()
	if err := out.Push(ctx, m); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to enqueue measurement: %w", err)
	}
	counters.Measurements.Add(1)
	logger.Debug("Handshake measured", "server", m.ServerAddress, "latency_seconds", m.LatencySeconds)
	return nil
}
