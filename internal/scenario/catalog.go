package scenario

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Device names used by the built-in scenarios.
const (
	GasSensor       = "gas-sensor-a"
	PressureSensorA = "pressure-sensor-a"
	PressureSensorB = "pressure-sensor-b"
	PressureSensorC = "pressure-sensor-c"
)

func rampCurve() []Point {
	return []Point{{0, 0}, {2, 0}, {3, 1}, {5, 1}}
}

// Builtin returns the scenarios that ship with the simulator.
func Builtin() Catalog {
	return Catalog{
		"nominal_all": {
			Description: "all pressure sensors ramp to 1 atm, gas stays at 0 ppm",
			Sensors: []SensorSpec{
				{Name: PressureSensorA, Kind: "pressure", Curve: rampCurve()},
				{Name: PressureSensorB, Kind: "pressure", Curve: rampCurve()},
				{Name: PressureSensorC, Kind: "pressure", Curve: rampCurve()},
				{Name: GasSensor, Kind: "argon", Curve: []Point{{0, 0}, {5, 0}}},
			},
		},
	}
}

type catalogFile struct {
	Scenarios Catalog `yaml:"scenarios"`
}

// Decode reads a YAML catalog of the form
//
//	scenarios:
//	  leak:
//	    sensors:
//	      - name: pressure-sensor-a
//	        kind: pressure
//	        curve: [[0, 1], [10, 0.2]]
func Decode(r io.Reader) (Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse scenario catalog: %w", err)
	}

	for name, s := range file.Scenarios {
		s.Name = name
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Scenarios, nil
}

// Load reads a YAML catalog from path.
func Load(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}
