package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/config"
	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/scenario"
)

var (
	envFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sensorsim",
	Short: "Simulate sensors that follow piecewise-linear curves.",
	Long: `sensorsim runs one independent unit per simulated sensor. Each unit ` +
		`walks its sensor's curve and publishes a reading every sampling ` +
		`interval until the run duration has elapsed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}

		loaded, err := config.Load(files...)
		if err != nil {
			return err
		}
		applyFlags(cmd.Flags(), loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		level, _ := config.ParseLevel(cfg.LogLevel)
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
			With("run_id", xid.New().String())
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	def := config.Default()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", "", "env file to load (default ./.env when present)")
	flags.String("transport", def.Transport, "publish transport: mqtt, websocket, recorder or log")
	flags.String("mqtt-endpoint", def.MQTT.Endpoint, "MQTT broker hostname")
	flags.Int("mqtt-port", def.MQTT.Port, "MQTT broker port")
	flags.Bool("mqtt-tls", def.MQTT.TLS, "connect with per-device TLS certificates")
	flags.String("cert-dir", def.MQTT.CertDir, "directory holding <device>.cert.pem and <device>.private.key")
	flags.String("root-ca", def.MQTT.RootCA, "root CA certificate for TLS connections")
	flags.String("ws-url", def.WebSocketURL, "websocket endpoint for the websocket transport")
	flags.String("recorder-addr", def.RecorderAddr, "recorder address for the recorder transport")
	flags.Int("qos", def.QoS, "MQTT QoS for every publish (0, 1 or 2)")
	flags.Duration("publish-timeout", def.PublishTimeout, "timeout for a single publish")
	flags.Duration("connect-timeout", def.ConnectTimeout, "timeout for connecting a publisher")
	flags.String("metrics-addr", def.MetricsAddr, "serve prometheus metrics on this address")
	flags.String("scenario-file", def.ScenarioFile, "YAML file with additional scenarios")
	flags.String("log-level", def.LogLevel, "log level: debug, info, warn or error")
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(flags *pflag.FlagSet, c *config.Config) {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	integer := func(name string, dst *int) {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}

	str("transport", &c.Transport)
	str("mqtt-endpoint", &c.MQTT.Endpoint)
	str("cert-dir", &c.MQTT.CertDir)
	str("root-ca", &c.MQTT.RootCA)
	str("ws-url", &c.WebSocketURL)
	str("recorder-addr", &c.RecorderAddr)
	str("metrics-addr", &c.MetricsAddr)
	str("scenario-file", &c.ScenarioFile)
	str("log-level", &c.LogLevel)
	integer("mqtt-port", &c.MQTT.Port)
	integer("qos", &c.QoS)

	if flags.Changed("mqtt-tls") {
		c.MQTT.TLS, _ = flags.GetBool("mqtt-tls")
	}
	if flags.Changed("publish-timeout") {
		c.PublishTimeout, _ = flags.GetDuration("publish-timeout")
	}
	if flags.Changed("connect-timeout") {
		c.ConnectTimeout, _ = flags.GetDuration("connect-timeout")
	}
}

// loadCatalog returns the built-in scenarios merged with the configured
// scenario file.
func loadCatalog() (scenario.Catalog, error) {
	catalog := scenario.Builtin()
	if cfg.ScenarioFile == "" {
		return catalog, nil
	}

	extra, err := scenario.Load(cfg.ScenarioFile)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", cfg.ScenarioFile, err)
	}
	return catalog.Merge(extra), nil
}
