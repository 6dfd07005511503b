// Package config loads the process configuration of the simulator from an
// optional .env file and SENSORSIM_* environment variables. Command-line
// flags override whatever is loaded here.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/publisher"
)

// ErrInvalidConfig marks configuration errors.
var ErrInvalidConfig = errors.New("invalid configuration")

// Transports a sensor can publish through.
const (
	TransportMQTT      = "mqtt"
	TransportWebSocket = "websocket"
	TransportRecorder  = "recorder"
	TransportLog       = "log"
)

// MQTTConfig describes the broker every sensor connects to.
type MQTTConfig struct {
	Endpoint string
	Port     int
	CertDir  string //directory with <device>.cert.pem and <device>.private.key
	RootCA   string
	TLS      bool
}

// Config is the simulator process configuration.
type Config struct {
	Transport      string
	MQTT           MQTTConfig
	WebSocketURL   string
	RecorderAddr   string
	QoS            int
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	MetricsAddr    string
	ScenarioFile   string
	LogLevel       string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Transport: TransportMQTT,
		MQTT: MQTTConfig{
			Endpoint: "localhost",
			Port:     1883,
			CertDir:  "data",
			RootCA:   filepath.Join("data", "root-CA.crt"),
		},
		WebSocketURL:   "ws://localhost:8080/telemetry",
		RecorderAddr:   "localhost:50051",
		QoS:            0,
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 5 * time.Second,
		LogLevel:       "info",
	}
}

// Load reads envFiles (or ./.env when none are given, if it exists) and
// applies SENSORSIM_* variables on top of the defaults. Variables already
// set in the environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
			}
			*dst = n
		}
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfig, key, v)
			}
			*dst = d
		}
		return nil
	}

	str("SENSORSIM_TRANSPORT", &c.Transport)
	str("SENSORSIM_MQTT_ENDPOINT", &c.MQTT.Endpoint)
	str("SENSORSIM_MQTT_CERT_DIR", &c.MQTT.CertDir)
	str("SENSORSIM_MQTT_ROOT_CA", &c.MQTT.RootCA)
	str("SENSORSIM_WS_URL", &c.WebSocketURL)
	str("SENSORSIM_RECORDER_ADDR", &c.RecorderAddr)
	str("SENSORSIM_METRICS_ADDR", &c.MetricsAddr)
	str("SENSORSIM_SCENARIO_FILE", &c.ScenarioFile)
	str("SENSORSIM_LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("SENSORSIM_MQTT_TLS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: SENSORSIM_MQTT_TLS=%q is not a boolean", ErrInvalidConfig, v)
		}
		c.MQTT.TLS = b
	}

	for _, err := range []error{
		integer("SENSORSIM_MQTT_PORT", &c.MQTT.Port),
		integer("SENSORSIM_QOS", &c.QoS),
		duration("SENSORSIM_CONNECT_TIMEOUT", &c.ConnectTimeout),
		duration("SENSORSIM_PUBLISH_TIMEOUT", &c.PublishTimeout),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate fails fast on settings that would only break once sensors run.
func (c *Config) Validate() error {
	if _, err := publisher.ValidateQoS(c.QoS); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch c.Transport {
	case TransportMQTT:
		if c.MQTT.Endpoint == "" || c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
			return fmt.Errorf("%w: MQTT endpoint %s:%d", ErrInvalidConfig, c.MQTT.Endpoint, c.MQTT.Port)
		}
	case TransportWebSocket:
		if !strings.HasPrefix(c.WebSocketURL, "ws://") && !strings.HasPrefix(c.WebSocketURL, "wss://") {
			return fmt.Errorf("%w: websocket url %q", ErrInvalidConfig, c.WebSocketURL)
		}
	case TransportRecorder:
		if c.RecorderAddr == "" {
			return fmt.Errorf("%w: missing recorder address", ErrInvalidConfig)
		}
	case TransportLog:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Credentials returns the connection details of one device. With TLS
// enabled the device certificate and key are looked up in the cert dir by
// device name.
func (c *Config) Credentials(device string) publisher.Credentials {
	creds := publisher.Credentials{
		Endpoint: c.MQTT.Endpoint,
		Port:     c.MQTT.Port,
		ClientID: device,
	}
	if c.MQTT.TLS {
		creds.RootCA = c.MQTT.RootCA
		creds.Cert = filepath.Join(c.MQTT.CertDir, device+".cert.pem")
		creds.Key = filepath.Join(c.MQTT.CertDir, device+".private.key")
	}
	return creds
}

// ParseLevel maps a level name onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, s)
	}
	return lvl, nil
}
