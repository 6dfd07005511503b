package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Published("pressure-sensor-a", "telemetry/pressure", "atm", 0.75, 5*time.Millisecond)
	m.Published("pressure-sensor-a", "telemetry/pressure", "atm", 0.5, 5*time.Millisecond)
	m.Failed("gas-sensor-a")
	m.State("gas-sensor-a", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReadingsPublished.WithLabelValues("pressure-sensor-a", "telemetry/pressure")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.SensorValue.WithLabelValues("pressure-sensor-a", "atm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures.WithLabelValues("gas-sensor-a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UnitState.WithLabelValues("gas-sensor-a")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Published("s", "t", "u", 1, time.Millisecond)
		m.Failed("s")
		m.State("s", 1)
	})
}
