package cli

import (
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/config"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/constants"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/exporter"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/logging"
	"github.com/coral-mesh/jitterbuffer-exporter/pkg/version"
)

func newRunCmd() *cobra.Command {
	var (
		common   commonFlags
		address  string
		port     int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Attach probes and serve metrics until stopped",
		Long: `Attach probes to the target and serve /metrics and /health until SIGINT or SIGTERM.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (JBX_*)
3. Config file (--config flag or ` + constants.DefaultConfigPath + `)
4. Defaults

Environment Variables:
  JBX_BINARY, JBX_PID           - Target binary or process
  JBX_LISTEN_ADDRESS, JBX_PORT  - Exposition endpoint
  JBX_INTERVAL                  - Collection interval (e.g. 5s)
  JBX_BPF_OBJECT                - Instrumentation object path
  JBX_LIBRARY_PATHS             - Comma-separated shared libraries
  JBX_LOG_LEVEL, JBX_LOG_FORMAT - Logging

Examples:
  # Instrument a binary on disk
  jitterbuffer-exporter run --binary /usr/local/bin/srs

  # Instrument a running process, scraping on port 9400
  jitterbuffer-exporter run --pid 4242 --port 9400

  # JSON logs for log shippers
  jitterbuffer-exporter run --binary /usr/bin/ffmpeg --log-format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.load(cmd.Flags())
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("address") {
				cfg.Server.Address = address
			}
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("interval") {
				cfg.Collection.Interval = interval
			}

			logger := logging.NewWithComponent(
				logging.FromFormat(cfg.Logging.Level, cfg.Logging.Format),
				"exporter",
			)
			logger.Info().Str("version", version.String()).Msg("Starting jitterbuffer exporter")
			if overrides := cfg.EnvOverrides(); len(overrides) > 0 {
				logger.Info().
					Strs("variables", lo.Map(overrides, func(o config.Override, _ int) string { return o.Env })).
					Msg("Applied environment overrides")
			}

			if err := exporter.Start(cmd.Context(), cfg, logger); err != nil {
				return err
			}

			logger.Info().Msg("Exporter stopped")
			return nil
		},
	}

	common.register(cmd)
	cmd.Flags().StringVar(&address, "address", constants.DefaultListenAddress, "Address to listen on")
	cmd.Flags().IntVar(&port, "port", constants.DefaultListenPort, "Port to listen on")
	cmd.Flags().DurationVar(&interval, "interval", constants.DefaultCollectionInterval, "Collection interval")

	return cmd
}
