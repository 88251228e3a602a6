package cmd

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handshakewatch/internal/config"
)

func tcpFrame(t *testing.T, src, dst string, sport, dport uint16, seq, ack uint32, syn, isAck bool) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x66},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(sport),
		DstPort: layers.TCPPort(dport),
		Seq:     seq,
		Ack:     ack,
		SYN:     syn,
		ACK:     isAck,
		Window:  5840,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buffer := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buffer, opts, eth, ip, tcp))
	return buffer.Bytes()
}

func writeHandshakePcap(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	start := time.Date(2026, 10, 14, 9, 30, 0, 0, time.Local)
	frames := []struct {
		at   time.Duration
		data []byte
	}{
		{0, tcpFrame(t, "10.0.0.2", "10.0.0.1", 40000, 80, 100, 0, true, false)},
		{time.Millisecond, tcpFrame(t, "10.0.0.1", "10.0.0.2", 80, 40000, 900, 101, true, true)},
		{250 * time.Millisecond, tcpFrame(t, "10.0.0.2", "10.0.0.1", 40000, 80, 101, 901, false, true)},
	}
	for _, fr := range frames {
		ci := gopacket.CaptureInfo{Timestamp: start.Add(fr.at), CaptureLength: len(fr.data), Length: len(fr.data)}
		require.NoError(t, w.WritePacket(ci, fr.data))
	}
	return path
}

func TestRunMonitorFromPcapFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	capture := writeHandshakePcap(t, dir)
	out := filepath.Join(dir, "logs", "handshake.log")

	rootCmd.SetArgs([]string{"-r", capture, "-o", out, "--report", "html", "--log-level", "warn"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "('10.0.0.2', 0.25)\n", string(data))

	reports, err := filepath.Glob(filepath.Join(dir, "logs", "report_*.html"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestConfigShowPrintsYAML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HSWATCH_QUEUE_CAPACITY", "32")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{"config", "show"})
	require.NoError(t, rootCmd.Execute())

	text := buf.String()
	assert.Contains(t, text, "capture:")
	assert.Contains(t, text, "capacity: 32")
	assert.Contains(t, text, "slow_threshold: 1s")
}

func TestOpenSourceStdin(t *testing.T) {
	cfg := config.Config{}
	config.ApplyDefaults(&cfg)
	cfg.Capture.Source = config.SourceStdin

	src, err := openSource(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, os.Stdin, src.r)
	assert.NoError(t, src.wait())
}

func TestOpenSourceUnknown(t *testing.T) {
	cfg := config.Config{}
	cfg.Capture.Source = "carrier-pigeon"

	_, err := openSource(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
