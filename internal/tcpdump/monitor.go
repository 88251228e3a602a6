package tcpdump

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"handshakewatch/internal/logger"
)

// Capture is a running capture process whose stdout carries one packet summary per line.
type Capture struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// captureArgs builds the command line.
// -l: line-buffer stdout so every packet is flushed as it is printed
func captureArgs(cfg CaptureConfig) []string {
	args := []string{"-l"}
	if cfg.Interface != "" {
		args = append(args, "-i", cfg.Interface)
	}
	args = append(args, cfg.Args...)

	filter := cfg.Filter
	if filter == "" {
		filter = DefaultFilter
	}
	return append(args, filter)
}

// StartCapture starts the capture process. It is killed when ctx is canceled.
func StartCapture(ctx context.Context, cfg CaptureConfig) (*Capture, error) {
	command := cfg.Command
	if command == "" {
		command = DefaultCommand
	}

	args := captureArgs(cfg)
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = cfg.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", command, err)
	}

	logger.Info("Capture process started", "command", command, "args", args, "pid", cmd.Process.Pid)

	return &Capture{cmd: cmd, stdout: stdout}, nil
}

// Stdout returns the capture output stream.
func (c *Capture) Stdout() io.Reader {
	return c.stdout
}

// Wait waits for the process to exit. Call it after Stdout reached EOF.
func (c *Capture) Wait() error {
	if err := c.cmd.Wait(); err != nil {
		return fmt.Errorf("capture process exited: %w", err)
	}
	return nil
}
