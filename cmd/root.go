package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"handshakewatch/internal/config"
)

var (
	cfgFile string
	v       = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "handshakewatch",
	Short: "handshakewatch measures TCP handshake latency",
	Long: `handshakewatch reads packet capture output, pairs every HTTP connection
attempt with the ACK that completes its handshake and appends the measured
latency to a rotating log file.`,
	SilenceUsage: true,
	RunE:         runMonitor,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(configCmd, interfacesCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.handshakewatch.yaml)")
	pf.String("log-level", config.DefaultLogLevel, "diagnostic log level (debug, info, warn, error)")
	pf.String("log-format", config.DefaultLogFormat, "diagnostic log format (json, text)")

	f := rootCmd.Flags()
	f.StringP("source", "s", config.DefaultSource, "capture source: tcpdump, stdin, pcap or file")
	f.StringP("interface", "i", "", "interface to capture from")
	f.StringP("filter", "f", config.DefaultFilter, "bpf filter to apply")
	f.StringP("read-file", "r", "", "read packets from a pcap file (implies --source file)")
	f.StringP("output", "o", config.DefaultOutputFile, "measurement log file")
	f.Int("queue-capacity", 0, "bound the measurement queue, 0 for unbounded")
	f.String("metrics-listen", "", "serve Prometheus metrics on this address")
	f.String("stream-listen", "", "serve the websocket measurement stream on this address")
	f.String("mysql-dsn", "", "also insert measurements into this MySQL database")
	f.Bool("tui", false, "show the live dashboard")
	f.String("report", "", "write a session report on exit (html)")

	bind := map[string]string{
		"logging.level":     "log-level",
		"logging.format":    "log-format",
		"capture.source":    "source",
		"capture.interface": "interface",
		"capture.filter":    "filter",
		"capture.file":      "read-file",
		"output.file":       "output",
		"queue.capacity":    "queue-capacity",
		"metrics.listen":    "metrics-listen",
		"stream.listen":     "stream-listen",
		"mysql.dsn":         "mysql-dsn",
		"ui.tui":            "tui",
		"ui.report":         "report",
	}
	for key, name := range bind {
		flag := pf.Lookup(name)
		if flag == nil {
			flag = f.Lookup(name)
		}
		cobra.CheckErr(v.BindPFlag(key, flag))
	}
}

func initConfig() {
	if err := config.ReadFile(v, cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if used := v.ConfigFileUsed(); used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}

	// -r without an explicit source selects the file source
	if v.GetString("capture.file") != "" && v.GetString("capture.source") == config.DefaultSource {
		v.Set("capture.source", config.SourceFile)
	}
}
