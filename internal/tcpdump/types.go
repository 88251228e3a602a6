package tcpdump

import "io"

// DefaultFilter selects packets with the SYN or ACK bit set.
const DefaultFilter = "tcp[tcpflags] & (tcp-syn|tcp-ack) != 0"

// DefaultCommand is the capture binary started by StartCapture.
const DefaultCommand = "tcpdump"

// CaptureConfig describes the external capture process.
type CaptureConfig struct {
	Command   string    // Binary to run, tcpdump by default
	Interface string    // Passed as -i when set
	Filter    string    // BPF expression, DefaultFilter when empty
	Args      []string  // Extra arguments placed before the filter
	Stderr    io.Writer // Receives the process stderr, os.Stderr when nil
}
