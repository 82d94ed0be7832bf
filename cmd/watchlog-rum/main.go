package main

import (
	"context"
	"fmt"
	"os"
	"time"

	agentrun "github.com/Watchlog-monitoring/watchlog-rum-go/internal/cmd/agent"
	"github.com/Watchlog-monitoring/watchlog-rum-go/internal/transport"
	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// initialize logger for CLI
	// Respect WATCHLOG_LOG_LEVEL for both CLI and agent start output
	level := os.Getenv("WATCHLOG_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "watchlog-rum",
		Short: "Watchlog RUM agent CLI",
		Long:  "watchlog-rum runs the telemetry agent against a collector: a demo emitter for end-to-end checks and a one-shot send for smoke tests.",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print SDK name and version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", transport.SDKName, transport.SDKVersion)
		},
	}
	rootCmd.AddCommand(versionCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent with a synthetic browsing session until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optsFromFlags(cmd)
			if err != nil {
				return err
			}
			intervalMs, _ := cmd.Flags().GetInt("interval-ms")
			opts.Interval = time.Duration(intervalMs) * time.Millisecond
			if err := agentrun.Run(context.Background(), opts); err != nil {
				return fmt.Errorf("agent error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	addConfigFlags(runCmd)
	runCmd.Flags().Int("interval-ms", 2000, "Demo emit interval in ms")
	rootCmd.AddCommand(runCmd)

	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send a single custom event and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optsFromFlags(cmd)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			data, _ := cmd.Flags().GetString("data")
			return agentrun.Send(context.Background(), opts, name, data)
		},
	}
	addConfigFlags(sendCmd)
	sendCmd.Flags().String("name", "cli_event", "Event name")
	sendCmd.Flags().String("data", "", "Event data as a JSON object")
	rootCmd.AddCommand(sendCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to a JSON config file")
	cmd.Flags().String("endpoint", os.Getenv("WATCHLOG_ENDPOINT"), "Collector endpoint URL")
	cmd.Flags().String("api-key", "", "Collector api key")
	cmd.Flags().String("app", "", "Application name")
	cmd.Flags().String("environment", "", "Deployment environment")
	cmd.Flags().String("release", "", "Release identifier")
	cmd.Flags().Float64("sample-rate", -1, "Per-session sample rate in [0,1]; -1 keeps config/default")
	cmd.Flags().String("data-dir", "", "Identity store directory (if not specified, uses OS-specific application data directory)")
	cmd.Flags().String("log-level", os.Getenv("WATCHLOG_LOG_LEVEL"), "Log level: debug|info|warn|error")
	cmd.Flags().String("log-format", os.Getenv("WATCHLOG_LOG_FORMAT"), "Log format: text|json (default text)")
}

func optsFromFlags(cmd *cobra.Command) (agentrun.Options, error) {
	configPath, _ := cmd.Flags().GetString("config")
	endpoint, _ := cmd.Flags().GetString("endpoint")
	apiKey, _ := cmd.Flags().GetString("api-key")
	app, _ := cmd.Flags().GetString("app")
	environment, _ := cmd.Flags().GetString("environment")
	release, _ := cmd.Flags().GetString("release")
	sampleRate, _ := cmd.Flags().GetFloat64("sample-rate")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logFormat, _ := cmd.Flags().GetString("log-format")

	if sampleRate > 1 {
		return agentrun.Options{}, fmt.Errorf("invalid --sample-rate; must be in [0,1]")
	}
	if logLevel != "" {
		_ = os.Setenv("WATCHLOG_LOG_LEVEL", logLevel)
	}
	if logFormat != "" {
		_ = os.Setenv("WATCHLOG_LOG_FORMAT", logFormat)
	}
	return agentrun.Options{
		ConfigPath:  configPath,
		Endpoint:    endpoint,
		APIKey:      apiKey,
		App:         app,
		Environment: environment,
		Release:     release,
		SampleRate:  sampleRate,
		DataDir:     dataDir,
	}, nil
}
