package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	SourceTcpdump = "tcpdump"
	SourceStdin   = "stdin"
	SourcePcap    = "pcap"
	SourceFile    = "file"

	DefaultSource        = SourceTcpdump
	DefaultCommand       = "tcpdump"
	DefaultFilter        = "tcp[tcpflags] & (tcp-syn|tcp-ack) != 0"
	DefaultSnapLen       = 262144
	DefaultOutputFile    = "/tmp/handshake.log"
	DefaultMaxSizeMB     = 100
	DefaultMaxBackups    = 5
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultSlowThreshold = time.Second
	DefaultAlertCooldown = 10 * time.Second
	DefaultMaxAlerts     = 20
	DefaultTable         = "handshake_latency"

	EnvPrefix = "HSWATCH"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every setting of the monitor.
type Config struct {
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Queue    QueueConfig    `mapstructure:"queue" yaml:"queue"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Stream   StreamConfig   `mapstructure:"stream" yaml:"stream"`
	MySQL    MySQLConfig    `mapstructure:"mysql" yaml:"mysql"`
	UI       UIConfig       `mapstructure:"ui" yaml:"ui"`
}

// CaptureConfig selects where capture lines come from.
type CaptureConfig struct {
	Source       string   `mapstructure:"source" yaml:"source"`
	Command      string   `mapstructure:"command" yaml:"command"`
	Interface    string   `mapstructure:"interface" yaml:"interface"`
	Filter       string   `mapstructure:"filter" yaml:"filter"`
	Args         []string `mapstructure:"args" yaml:"args,omitempty"`
	File         string   `mapstructure:"file" yaml:"file,omitempty"`
	SnapLen      int      `mapstructure:"snaplen" yaml:"snaplen"`
	Promisc      bool     `mapstructure:"promisc" yaml:"promisc"`
	ResolvePorts bool     `mapstructure:"resolve_ports" yaml:"resolve_ports"`
}

// OutputConfig is the rotating measurement log.
type OutputConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// QueueConfig bounds the hand-off queue. Zero means unbounded.
type QueueConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type AnalysisConfig struct {
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold"`
	AlertCooldown time.Duration `mapstructure:"alert_cooldown" yaml:"alert_cooldown"`
	MaxAlerts     int           `mapstructure:"max_alerts" yaml:"max_alerts"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen,omitempty"`
}

type StreamConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen,omitempty"`
}

type MySQLConfig struct {
	DSN   string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	Table string `mapstructure:"table" yaml:"table"`
}

type UIConfig struct {
	TUI    bool   `mapstructure:"tui" yaml:"tui"`
	Report string `mapstructure:"report" yaml:"report,omitempty"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("capture.source", DefaultSource)
	v.SetDefault("capture.command", DefaultCommand)
	v.SetDefault("capture.interface", "")
	v.SetDefault("capture.filter", DefaultFilter)
	v.SetDefault("capture.args", []string{})
	v.SetDefault("capture.file", "")
	v.SetDefault("capture.snaplen", DefaultSnapLen)
	v.SetDefault("capture.promisc", true)
	v.SetDefault("capture.resolve_ports", true)
	v.SetDefault("output.file", DefaultOutputFile)
	v.SetDefault("output.max_size_mb", DefaultMaxSizeMB)
	v.SetDefault("output.max_backups", DefaultMaxBackups)
	v.SetDefault("output.compress", false)
	v.SetDefault("queue.capacity", 0)
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("analysis.slow_threshold", DefaultSlowThreshold)
	v.SetDefault("analysis.alert_cooldown", DefaultAlertCooldown)
	v.SetDefault("analysis.max_alerts", DefaultMaxAlerts)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("stream.listen", "")
	v.SetDefault("mysql.dsn", "")
	v.SetDefault("mysql.table", DefaultTable)
	v.SetDefault("ui.tui", false)
	v.SetDefault("ui.report", "")
}

// New returns a viper instance with defaults and environment binding.
// HSWATCH_OUTPUT_FILE overrides output.file, and so on.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile loads path into v. An empty path looks for $HOME/.handshakewatch.yaml
// and silently continues without it.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(home)
	v.SetConfigType("yaml")
	v.SetConfigName(".handshakewatch")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Capture.Source == "" {
		cfg.Capture.Source = DefaultSource
	}
	if cfg.Capture.Command == "" {
		cfg.Capture.Command = DefaultCommand
	}
	if cfg.Capture.Filter == "" {
		cfg.Capture.Filter = DefaultFilter
	}
	if cfg.Capture.SnapLen == 0 {
		cfg.Capture.SnapLen = DefaultSnapLen
	}
	if cfg.Output.File == "" {
		cfg.Output.File = DefaultOutputFile
	}
	if cfg.Output.MaxSizeMB == 0 {
		cfg.Output.MaxSizeMB = DefaultMaxSizeMB
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Analysis.SlowThreshold == 0 {
		cfg.Analysis.SlowThreshold = DefaultSlowThreshold
	}
	if cfg.Analysis.MaxAlerts == 0 {
		cfg.Analysis.MaxAlerts = DefaultMaxAlerts
	}
	if cfg.MySQL.Table == "" {
		cfg.MySQL.Table = DefaultTable
	}
}

// Validate performs minimal validation.
func Validate(cfg Config) error {
	switch cfg.Capture.Source {
	case SourceTcpdump, SourceStdin, SourcePcap:
	case SourceFile:
		if cfg.Capture.File == "" {
			return fmt.Errorf("%w: capture.file is required for the file source", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown capture.source %q", ErrInvalid, cfg.Capture.Source)
	}

	if cfg.Output.MaxSizeMB < 0 {
		return fmt.Errorf("%w: output.max_size_mb must not be negative", ErrInvalid)
	}
	if cfg.Output.MaxBackups < 0 {
		return fmt.Errorf("%w: output.max_backups must not be negative", ErrInvalid)
	}
	if cfg.Queue.Capacity < 0 {
		return fmt.Errorf("%w: queue.capacity must not be negative", ErrInvalid)
	}
	if cfg.Analysis.SlowThreshold < 0 || cfg.Analysis.AlertCooldown < 0 {
		return fmt.Errorf("%w: analysis durations must not be negative", ErrInvalid)
	}
	if cfg.UI.Report != "" && cfg.UI.Report != "html" {
		return fmt.Errorf("%w: unsupported ui.report %q", ErrInvalid, cfg.UI.Report)
	}
	return nil
}

// Dump renders cfg as YAML.
func Dump(cfg Config) ([]byte, error) {
	return yaml.Marshal(&cfg)
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := Dump(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
