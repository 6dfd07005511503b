// Package scenario holds named sets of sensor curves and turns them into
// ready-to-run sensors.
package scenario

import (
	"fmt"
	"math"
	"sort"
	"time"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/sensor"
	"code.fbi.h-da.de/distributed-systems/sensorsim/pkg/types"
)

// DurationMargin is added after the last breakpoint when no run duration
// is given.
const DurationMargin = 3.0

// Point is a (time, value) breakpoint as written in scenario files.
type Point [2]float64

// SensorSpec describes one sensor of a scenario.
type SensorSpec struct {
	Name  string  `yaml:"name"`
	Kind  string  `yaml:"kind,omitempty"` //empty means infer from the name
	Curve []Point `yaml:"curve"`
}

// Scenario is a named set of sensors simulated together.
type Scenario struct {
	Name        string       `yaml:"-"`
	Description string       `yaml:"description,omitempty"`
	Sensors     []SensorSpec `yaml:"sensors"`
}

// Catalog maps scenario names to scenarios.
type Catalog map[string]Scenario

// Names returns the scenario names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get looks a scenario up by name.
func (c Catalog) Get(name string) (Scenario, error) {
	s, ok := c[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q (available: %v)", name, c.Names())
	}
	s.Name = name
	return s, nil
}

// Merge returns a catalog holding c overlaid with other.
func (c Catalog) Merge(other Catalog) Catalog {
	out := make(Catalog, len(c)+len(other))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ResolveKind resolves the sensor kind, inferring it from the name when the entry
// does not state one.
func (s SensorSpec) ResolveKind() (types.Kind, error) {
	if s.Kind == "" {
		return types.KindFromName(s.Name), nil
	}
	return types.ParseKind(s.Kind)
}

// Validate checks that every sensor is named uniquely and has a curve.
func (s Scenario) Validate() error {
	if len(s.Sensors) == 0 {
		return fmt.Errorf("scenario %s: no sensors", s.Name)
	}
	seen := make(map[string]bool, len(s.Sensors))
	for _, spec := range s.Sensors {
		if spec.Name == "" {
			return fmt.Errorf("scenario %s: sensor without name", s.Name)
		}
		if seen[spec.Name] {
			return fmt.Errorf("scenario %s: duplicate sensor %s", s.Name, spec.Name)
		}
		seen[spec.Name] = true
		if len(spec.Curve) == 0 {
			return fmt.Errorf("scenario %s: sensor %s has no curve points", s.Name, spec.Name)
		}
		if _, err := spec.ResolveKind(); err != nil {
			return fmt.Errorf("scenario %s: sensor %s: %w", s.Name, spec.Name, err)
		}
	}
	return nil
}

// Build creates one populated sensor per spec. Any invalid spec, such as a
// duplicate breakpoint time, aborts the whole scenario.
func (s Scenario) Build(dt float64) ([]*sensor.Sensor, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sensors := make([]*sensor.Sensor, 0, len(s.Sensors))
	for _, spec := range s.Sensors {
		kind, _ := spec.ResolveKind()
		sn, err := sensor.New(spec.Name, kind, dt)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		for _, pt := range spec.Curve {
			if err := sn.SetCurvePoint(pt[0], pt[1]); err != nil {
				return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
			}
		}
		sensors = append(sensors, sn)
	}
	return sensors, nil
}

// MaxTime returns the latest breakpoint time across all sensors, never
// less than zero.
func (s Scenario) MaxTime() float64 {
	maxT := 0.0
	for _, spec := range s.Sensors {
		for _, pt := range spec.Curve {
			maxT = math.Max(maxT, pt[0])
		}
	}
	return maxT
}

// DefaultDuration is how long a scenario runs when no duration is given:
// the last breakpoint plus DurationMargin, in seconds.
func (s Scenario) DefaultDuration() time.Duration {
	return Seconds(s.MaxTime() + DurationMargin)
}

// Seconds converts fractional seconds into a time.Duration.
func Seconds(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
