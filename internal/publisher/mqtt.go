package publisher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT publishes readings through a dedicated paho client.
type MQTT struct {
	client  mqtt.Client
	device  string
	timeout time.Duration
	logger  *slog.Logger
}

// MQTTOptions tunes the MQTT publisher.
type MQTTOptions struct {
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	Logger         *slog.Logger
}

// DialMQTT connects a new client for one device.
func DialMQTT(ctx context.Context, creds Credentials, opt MQTTOptions) (*MQTT, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("missing MQTT client id")
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("device", creds.ClientID)

	opts, err := clientOptions(creds, logger)
	if err != nil {
		return nil, err
	}
	if opt.ConnectTimeout > 0 {
		opts.SetConnectTimeout(opt.ConnectTimeout)
	}

	client := mqtt.NewClient(opts)
	if err := waitToken(ctx, client.Connect(), opt.ConnectTimeout); err != nil {
		// abort the attempt still running inside the client
		client.Disconnect(0)
		return nil, fmt.Errorf("failed to connect to MQTT broker %s:%d: %w", creds.Endpoint, creds.Port, err)
	}

	return newMQTT(client, creds.ClientID, opt.PublishTimeout, logger), nil
}

func newMQTT(client mqtt.Client, device string, timeout time.Duration, logger *slog.Logger) *MQTT {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTT{
		client:  client,
		device:  device,
		timeout: timeout,
		logger:  logger,
	}
}

func clientOptions(creds Credentials, logger *slog.Logger) (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions()
	opts.SetClientID(creds.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn("lost connection to MQTT broker", "error", err)
	})

	if !creds.TLS() {
		opts.AddBroker(fmt.Sprintf("tcp://%s:%d", creds.Endpoint, creds.Port))
		return opts, nil
	}

	tlsConfig, err := loadTLSConfig(creds)
	if err != nil {
		return nil, err
	}
	opts.AddBroker(fmt.Sprintf("ssl://%s:%d", creds.Endpoint, creds.Port))
	opts.SetTLSConfig(tlsConfig)
	return opts, nil
}

func loadTLSConfig(creds Credentials) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if creds.RootCA != "" {
		pem, err := os.ReadFile(creds.RootCA)
		if err != nil {
			return nil, fmt.Errorf("failed to read root CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", creds.RootCA)
		}
		cfg.RootCAs = pool
	}

	if creds.Cert != "" || creds.Key != "" {
		cert, err := tls.LoadX509KeyPair(creds.Cert, creds.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load device certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// Publish sends payload to topic and waits for the broker acknowledgement
// required by qos.
func (m *MQTT) Publish(ctx context.Context, topic string, payload []byte, qos QoS) error {
	if err := Validate(topic, qos); err != nil {
		return err
	}

	token := m.client.Publish(topic, byte(qos), false, payload)
	if err := waitToken(ctx, token, m.timeout); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	m.logger.Debug("published", "topic", topic, "payload", string(payload))
	return nil
}

// Close disconnects the client, allowing in-flight work a short grace period.
func (m *MQTT) Close() error {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
	}
	return nil
}

func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return fmt.Errorf("timed out after %v", timeout)
	}
}
