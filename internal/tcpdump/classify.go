package tcpdump

import (
	"strings"

	"handshakewatch/internal/models"
)

// Column positions in a tcpdump summary line:
// 11:26:43.974019 IP 10.0.0.2.51234 > 10.0.0.1.http: Flags [S], seq 1, ...
const (
	fieldTime  = 0
	fieldKey   = 2
	fieldHint  = 4
	fieldFlags = 6
	fieldAck   = 8

	minFields = 9
)

// Classify splits a capture line on whitespace and classifies it.
func Classify(line string) models.PacketEvent {
	return ClassifyFields(strings.Fields(line))
}

// ClassifyFields classifies a pre-split capture line. Lines with fewer than
// nine fields are reported as KindOther.
func ClassifyFields(fields []string) models.PacketEvent {
	if len(fields) < minFields {
		return models.PacketEvent{Kind: models.KindOther}
	}

	ev := models.PacketEvent{
		TimeOfDay:     fields[fieldTime],
		ConnectionKey: fields[fieldKey],
		Kind:          models.KindOther,
		HTTPHint:      strings.Contains(strings.ToLower(fields[fieldHint]), "http"),
	}

	flags := strings.ToUpper(fields[fieldFlags])
	switch {
	case ev.HTTPHint && strings.HasPrefix(flags, "[S],"):
		ev.Kind = models.KindSynAck
	case strings.HasPrefix(flags, "[.],") && strings.HasPrefix(fields[fieldAck], "1,"):
		ev.Kind = models.KindFinalAck
	}

	return ev
}
