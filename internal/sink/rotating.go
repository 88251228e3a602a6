package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"handshakewatch/internal/models"
)

const (
	DefaultLogFile    = "/tmp/handshake.log"
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 5
)

// RotatingFileConfig controls the measurement log file.
type RotatingFileConfig struct {
	Path       string
	MaxSizeMB  int  // Rotate once the file would exceed this size
	MaxBackups int  // Rotated generations to keep
	Compress   bool // Gzip rotated generations
}

// RotatingFile appends one record per line to a size-bounded log with backups.
type RotatingFile struct {
	mu sync.Mutex
	lj *lumberjack.Logger
}

// NewRotatingFile creates the parent directory and prepares the log file.
// The file itself is opened lazily on the first write.
func NewRotatingFile(cfg RotatingFileConfig) (*RotatingFile, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultLogFile
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}
	if cfg.MaxBackups < 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &RotatingFile{
		lj: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
			Compress:   cfg.Compress,
		},
	}, nil
}

func (f *RotatingFile) Write(m models.HandshakeMeasurement) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.lj.Write([]byte(FormatRecord(m) + "\n")); err != nil {
		return fmt.Errorf("failed to write measurement log: %w", err)
	}
	return nil
}

// Rotate forces a new generation.
func (f *RotatingFile) Rotate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lj.Rotate()
}

// Close closes the current file.
func (f *RotatingFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lj.Close()
}
