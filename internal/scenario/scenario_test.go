package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/curve"
	"code.fbi.h-da.de/distributed-systems/sensorsim/pkg/types"
)

func TestBuiltinNominal(t *testing.T) {
	s, err := Builtin().Get("nominal_all")
	require.NoError(t, err)
	assert.Equal(t, "nominal_all", s.Name)

	sensors, err := s.Build(1)
	require.NoError(t, err)
	require.Len(t, sensors, 4)

	assert.Equal(t, PressureSensorA, sensors[0].Name())
	assert.Equal(t, types.KindPressure, sensors[0].Kind())
	assert.Equal(t, types.KindArgon, sensors[3].Kind())
	assert.Equal(t, types.GasTopic, sensors[3].Topic())

	assert.Equal(t, 5.0, s.MaxTime())
	assert.Equal(t, 8*time.Second, s.DefaultDuration())
}

func TestGetUnknown(t *testing.T) {
	_, err := Builtin().Get("meltdown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nominal_all")
}

func TestBuildDuplicateKnot(t *testing.T) {
	s := Scenario{
		Name: "broken",
		Sensors: []SensorSpec{
			{Name: "pressure-sensor-a", Curve: []Point{{0, 0}, {1, 1}, {1, 2}}},
		},
	}

	_, err := s.Build(1)
	var dup *curve.DuplicateKnotError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, 1.0, dup.T)
}

func TestBuildInfersKindFromName(t *testing.T) {
	s := Scenario{
		Name: "inferred",
		Sensors: []SensorSpec{
			{Name: "gas-sensor-b", Curve: []Point{{0, 3}}},
			{Name: "thermo", Curve: []Point{{0, 3}}},
		},
	}

	sensors, err := s.Build(0.5)
	require.NoError(t, err)
	assert.Equal(t, types.KindArgon, sensors[0].Kind())
	assert.Equal(t, types.KindUnknown, sensors[1].Kind())
}

func TestValidate(t *testing.T) {
	cases := map[string]Scenario{
		"no sensors":   {Name: "a"},
		"no curve":     {Name: "b", Sensors: []SensorSpec{{Name: "x"}}},
		"no name":      {Name: "c", Sensors: []SensorSpec{{Curve: []Point{{0, 0}}}}},
		"bad kind":     {Name: "d", Sensors: []SensorSpec{{Name: "x", Kind: "sonar", Curve: []Point{{0, 0}}}}},
		"duplicate id": {Name: "e", Sensors: []SensorSpec{{Name: "x", Curve: []Point{{0, 0}}}, {Name: "x", Curve: []Point{{0, 0}}}}},
	}

	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.Validate())
		})
	}
}

func TestBuildRejectsBadInterval(t *testing.T) {
	s, err := Builtin().Get("nominal_all")
	require.NoError(t, err)
	_, err = s.Build(0)
	assert.Error(t, err)
}

func TestMaxTimeNeverNegative(t *testing.T) {
	s := Scenario{Sensors: []SensorSpec{{Name: "x", Curve: []Point{{-4, 1}, {-1, 2}}}}}
	assert.Equal(t, 0.0, s.MaxTime())
	assert.Equal(t, 3*time.Second, s.DefaultDuration())
}

const catalogYAML = `
scenarios:
  leak:
    description: slow pressure loss
    sensors:
      - name: pressure-sensor-a
        kind: pressure
        curve: [[0, 1], [10, 0.25], [12.5, 0]]
      - name: gas-sensor-a
        curve: [[0, 0], [4, 50]]
`

func TestDecode(t *testing.T) {
	cat, err := Decode(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	s, err := cat.Get("leak")
	require.NoError(t, err)
	assert.Equal(t, "slow pressure loss", s.Description)
	require.Len(t, s.Sensors, 2)
	assert.Equal(t, []Point{{0, 1}, {10, 0.25}, {12.5, 0}}, s.Sensors[0].Curve)
	assert.Equal(t, 12.5, s.MaxTime())
	assert.Equal(t, 15500*time.Millisecond, s.DefaultDuration())
}

func TestDecodeRejectsBadPoints(t *testing.T) {
	_, err := Decode(strings.NewReader(`
scenarios:
  bad:
    sensors:
      - name: pressure-sensor-a
        curve: [[0, 1, 2]]
`))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("scenarios:\n  bad:\n    sensors: []\n"))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("scenario:\n  typo: {}\n"))
	assert.Error(t, err)
}

func TestLoadAndMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))

	cat, err := Load(path)
	require.NoError(t, err)

	merged := Builtin().Merge(cat)
	assert.Equal(t, []string{"leak", "nominal_all"}, merged.Names())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
