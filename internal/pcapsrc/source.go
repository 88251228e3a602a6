package pcapsrc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"

	"handshakewatch/internal/logger"
)

const DefaultSnapLen = 262144

// Config controls native packet capture.
type Config struct {
	Interface    string
	Filter       string // BPF expression applied to live captures
	SnapLen      int
	Promisc      bool
	ResolvePorts bool           // Print well-known ports by name (80 -> http)
	Location     *time.Location // Time zone for rendered timestamps, local by default
}

// OpenLive captures from an interface through libpcap and returns the
// rendered capture lines. The capture stops when ctx is canceled.
func OpenLive(ctx context.Context, cfg Config) (io.ReadCloser, error) {
	snaplen := cfg.SnapLen
	if snaplen <= 0 {
		snaplen = DefaultSnapLen
	}

	handle, err := pcap.OpenLive(cfg.Interface, int32(snaplen), cfg.Promisc, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("failed to open interface %s: %w", cfg.Interface, err)
	}

	if cfg.Filter != "" {
		if err := handle.SetBPFFilter(cfg.Filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set BPF filter %q: %w", cfg.Filter, err)
		}
	}

	logger.Info("Live capture started", "interface", cfg.Interface, "filter", cfg.Filter, "snaplen", snaplen)

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	return stream(ctx, source, newRenderer(cfg), handle.Close), nil
}

// OpenFile reads a pcap file and returns the rendered capture lines.
// The stream ends with the file.
func OpenFile(ctx context.Context, path string, cfg Config) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pcap header of %s: %w", path, err)
	}

	logger.Info("Reading capture file", "path", path, "link_type", r.LinkType().String())

	source := gopacket.NewPacketSource(r, r.LinkType())
	return stream(ctx, source, newRenderer(cfg), func() { f.Close() }), nil
}

func newRenderer(cfg Config) *Renderer {
	r := NewRenderer(cfg.ResolvePorts)
	if cfg.Location != nil {
		r.Location = cfg.Location
	}
	return r
}

// stream pumps rendered packets into a pipe until the source is exhausted or ctx ends.
func stream(ctx context.Context, source *gopacket.PacketSource, renderer *Renderer, release func()) io.ReadCloser {
	pr, pw := io.Pipe()
	packets := source.Packets()

	go func() {
		defer release()

		w := bufio.NewWriter(pw)
		for {
			select {
			case <-ctx.Done():
				pw.Close()
				return
			case pkt, ok := <-packets:
				if !ok {
					err := w.Flush()
					pw.CloseWithError(err)
					return
				}
				line, ok := renderer.Render(pkt)
				if !ok {
					continue
				}
				if _, err := w.WriteString(line + "\n"); err != nil {
					return
				}
				if len(packets) == 0 {
					if err := w.Flush(); err != nil {
						return
					}
				}
			}
		}
	}()

	return pr
}
