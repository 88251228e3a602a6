package models

// EventKind classifies a capture line.
type EventKind string

const (
	KindSynAck   EventKind = "SYN_ACK"
	KindFinalAck EventKind = "FINAL_ACK"
	KindOther    EventKind = "OTHER"
)

// PacketEvent holds the fields extracted from one capture line.
type PacketEvent struct {
	TimeOfDay     string // HH:MM:SS.ffffff as printed by the capture tool
	ConnectionKey string // ip.port token used to correlate both halves of a handshake
	Kind          EventKind
	HTTPHint      bool // Port/traffic column mentioned http
}
