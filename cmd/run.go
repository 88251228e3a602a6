package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"handshakewatch/internal/analysis"
	"handshakewatch/internal/config"
	"handshakewatch/internal/logger"
	"handshakewatch/internal/metrics"
	"handshakewatch/internal/pcapsrc"
	"handshakewatch/internal/pipeline"
	"handshakewatch/internal/reporting"
	"handshakewatch/internal/sink"
	"handshakewatch/internal/tcpdump"
	"handshakewatch/internal/tui"
)

const eventsLogName = "handshakewatch-events.log"

// captureStream is the line source feeding the ingest loop.
type captureStream struct {
	r     io.Reader
	wait  func() error
	close func() error
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	diag := io.Writer(os.Stderr)
	if cfg.UI.TUI {
		events := &lumberjack.Logger{
			Filename:   filepath.Join(filepath.Dir(cfg.Output.File), eventsLogName),
			MaxSize:    cfg.Output.MaxSizeMB,
			MaxBackups: cfg.Output.MaxBackups,
		}
		defer events.Close()
		diag = events
	}
	if err := logger.Setup(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: diag}); err != nil {
		return err
	}

	sessionID := uuid.NewString()
	logger.Info("Starting handshake monitor",
		"session", sessionID,
		"source", cfg.Capture.Source,
		"output", cfg.Output.File,
		"queue_capacity", cfg.Queue.Capacity)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logFile, err := sink.NewRotatingFile(sink.RotatingFileConfig{
		Path:       cfg.Output.File,
		MaxSizeMB:  cfg.Output.MaxSizeMB,
		MaxBackups: cfg.Output.MaxBackups,
		Compress:   cfg.Output.Compress,
	})
	if err != nil {
		return err
	}
	defer logFile.Close()

	stats := analysis.NewLatencyStats(analysisConfig(cfg))
	counters := &tcpdump.IngestCounters{}
	queue := pipeline.NewQueue(cfg.Queue.Capacity)
	exporter := metrics.NewExporter(counters, queue.Len)

	sinks := sink.Multi{logFile, stats, exporter}

	if cfg.MySQL.DSN != "" {
		db, err := sink.OpenMySQL(ctx, cfg.MySQL.DSN, cfg.MySQL.Table)
		if err != nil {
			logger.Warn("MySQL sink disabled", "error", err)
		} else {
			defer db.Close()
			sinks = append(sinks, sink.BestEffort("mysql", db))
		}
	}

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := exporter.Serve(ctx, cfg.Metrics.Listen); err != nil {
				logger.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	if cfg.Stream.Listen != "" {
		stream := sink.NewStream()
		sinks = append(sinks, sink.BestEffort("stream", stream))
		go func() {
			if err := stream.Serve(ctx, cfg.Stream.Listen); err != nil {
				logger.Error("Stream server stopped", "error", err)
			}
		}()
	}

	config.Watch(v, func(c config.Config) {
		stats.SetConfig(analysisConfig(c))
		if err := logger.SetLevel(c.Logging.Level); err != nil {
			logger.Warn("Keeping previous log level", "error", err)
		}
	})

	source, err := openSource(ctx, cfg, diag)
	if err != nil {
		return err
	}
	defer source.close()

	tracker := analysis.NewHandshakeTracker()
	consumer := pipeline.NewConsumer(queue, sinks)

	producerDone := make(chan error, 1)
	go func() {
		err := tcpdump.Ingest(ctx, source.r, tracker, queue, counters)
		queue.Close()
		if werr := source.wait(); werr != nil && ctx.Err() == nil && err == nil {
			err = werr
		}
		producerDone <- err
	}()

	// The consumer outlives ctx so a shutdown still drains the queue.
	consumerCtx, cancelConsumer := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelConsumer()
	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Run(consumerCtx)
	}()

	if cfg.UI.TUI {
		model := tui.NewLatencyModel(stats, counters, queue.Len, cfg.Capture.Source)
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			logger.Error("Dashboard failed", "error", err)
		}
		stop()
	}

	var producerErr, consumerErr error
	consumerFinished := false
	select {
	case <-ctx.Done():
		logger.Info("Shutting down", "pending", counters.Pending.Load(), "queued", queue.Len())
		queue.Close()
	case producerErr = <-producerDone:
	case consumerErr = <-consumerDone:
		consumerFinished = true
		stop()
	}
	if !consumerFinished {
		consumerErr = <-consumerDone
	}

	logger.Info("Handshake monitor stopped",
		"session", sessionID,
		"lines", counters.Lines.Load(),
		"skipped", counters.Skipped.Load(),
		"measurements", counters.Measurements.Load(),
		"written", consumer.Written(),
		"unmatched", tracker.Len())

	if cfg.UI.Report != "" {
		path, err := reporting.GenerateSessionReport(stats, cfg.UI.Report, filepath.Dir(cfg.Output.File), sessionID)
		if err != nil {
			logger.Error("Failed to write session report", "error", err)
		} else {
			logger.Info("Session report written", "path", path)
		}
	}

	return errors.Join(consumerErr, producerErr)
}

func analysisConfig(cfg config.Config) analysis.Config {
	return analysis.Config{
		SlowThreshold: cfg.Analysis.SlowThreshold,
		AlertCooldown: cfg.Analysis.AlertCooldown,
		MaxAlerts:     cfg.Analysis.MaxAlerts,
	}
}

func openSource(ctx context.Context, cfg config.Config, stderr io.Writer) (*captureStream, error) {
	noop := func() error { return nil }

	switch cfg.Capture.Source {
	case config.SourceTcpdump:
		capture, err := tcpdump.StartCapture(ctx, tcpdump.CaptureConfig{
			Command:   cfg.Capture.Command,
			Interface: cfg.Capture.Interface,
			Filter:    cfg.Capture.Filter,
			Args:      cfg.Capture.Args,
			Stderr:    stderr,
		})
		if err != nil {
			return nil, err
		}
		return &captureStream{r: capture.Stdout(), wait: capture.Wait, close: noop}, nil

	case config.SourceStdin:
		return &captureStream{r: os.Stdin, wait: noop, close: noop}, nil

	case config.SourcePcap, config.SourceFile:
		pcfg := pcapsrc.Config{
			Interface:    cfg.Capture.Interface,
			Filter:       cfg.Capture.Filter,
			SnapLen:      cfg.Capture.SnapLen,
			Promisc:      cfg.Capture.Promisc,
			ResolvePorts: cfg.Capture.ResolvePorts,
		}
		var (
			rc  io.ReadCloser
			err error
		)
		if cfg.Capture.Source == config.SourcePcap {
			if pcfg.Interface == "" {
				iface, ierr := pcapsrc.DefaultInterface()
				if ierr != nil {
					return nil, ierr
				}
				logger.Info("Selected capture interface", "interface", iface.Name, "ip", iface.IP.String())
				pcfg.Interface = iface.Name
			}
			rc, err = pcapsrc.OpenLive(ctx, pcfg)
		} else {
			rc, err = pcapsrc.OpenFile(ctx, cfg.Capture.File, pcfg)
		}
		if err != nil {
			return nil, err
		}
		return &captureStream{r: rc, wait: noop, close: rc.Close}, nil
	}

	return nil, fmt.Errorf("%w: unknown capture.source %q", config.ErrInvalid, cfg.Capture.Source)
}
