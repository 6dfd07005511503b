package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/publisher"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "SENSORSIM_TRANSPORT=websocket\n" +
		"SENSORSIM_WS_URL=ws://example:9000/feed\n" +
		"SENSORSIM_QOS=1\n" +
		"SENSORSIM_PUBLISH_TIMEOUT=250ms\n" +
		"SENSORSIM_MQTT_PORT=8883\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	for _, key := range []string{"SENSORSIM_TRANSPORT", "SENSORSIM_WS_URL", "SENSORSIM_QOS", "SENSORSIM_PUBLISH_TIMEOUT", "SENSORSIM_MQTT_PORT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, TransportWebSocket, cfg.Transport)
	assert.Equal(t, "ws://example:9000/feed", cfg.WebSocketURL)
	assert.Equal(t, 1, cfg.QoS)
	assert.Equal(t, 250*time.Millisecond, cfg.PublishTimeout)
	assert.Equal(t, 8883, cfg.MQTT.Port)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	env := map[string]string{"SENSORSIM_QOS": "high"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	err := Default().applyEnv(lookup)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	env = map[string]string{"SENSORSIM_MQTT_TLS": "maybe"}
	assert.ErrorIs(t, Default().applyEnv(lookup), ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.QoS = 3
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	var invalid *publisher.InvalidQoSError
	assert.True(t, errors.As(err, &invalid))

	cfg = Default()
	cfg.Transport = "carrier-pigeon"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Transport = TransportWebSocket
	cfg.WebSocketURL = "http://localhost"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.LogLevel = "chatty"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestCredentials(t *testing.T) {
	cfg := Default()
	plain := cfg.Credentials("pressure-sensor-a")
	assert.Equal(t, "pressure-sensor-a", plain.ClientID)
	assert.False(t, plain.TLS())

	cfg.MQTT.TLS = true
	cfg.MQTT.Endpoint = "broker.example.com"
	cfg.MQTT.Port = 8883
	creds := cfg.Credentials("gas-sensor-a")
	assert.Equal(t, publisher.Credentials{
		Endpoint: "broker.example.com",
		Port:     8883,
		ClientID: "gas-sensor-a",
		RootCA:   filepath.Join("data", "root-CA.crt"),
		Cert:     filepath.Join("data", "gas-sensor-a.cert.pem"),
		Key:      filepath.Join("data", "gas-sensor-a.private.key"),
	}, creds)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}
