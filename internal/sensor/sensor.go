// Package sensor implements simulated sensors that walk a piecewise-linear
// curve as simulated time advances.
package sensor

import (
	"errors"
	"fmt"
	"math"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/curve"
	"code.fbi.h-da.de/distributed-systems/sensorsim/pkg/types"
)

var (
	// ErrSealed is returned when a breakpoint is added after Initialize.
	ErrSealed = errors.New("sensor curve is sealed after initialization")
	// ErrInvalidInterval is returned for a non-positive or non-finite dt.
	ErrInvalidInterval = errors.New("sampling interval must be a positive finite number")
)

// Sensor is a simulated sensor. It is not safe for concurrent use; each
// sensor is driven by exactly one execution unit.
type Sensor struct {
	name  string
	kind  types.Kind
	units string
	topic string
	dt    float64

	curve  curve.Curve
	sealed bool

	ticks int64 //steps taken since the last Initialize, starting at -1
	time  float64
	value float64
}

// New creates a sensor with an empty curve.
func New(name string, kind types.Kind, dt float64) (*Sensor, error) {
	if name == "" {
		return nil, fmt.Errorf("sensor name must not be empty")
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("sensor %s: %w (got %v)", name, ErrInvalidInterval, dt)
	}

	return &Sensor{
		name:  name,
		kind:  kind,
		units: kind.Units(),
		topic: kind.Topic(),
		dt:    dt,
		ticks: -1,
		time:  -dt,
		value: math.NaN(),
	}, nil
}

// SetCurvePoint adds a breakpoint to the sensor's curve.
func (s *Sensor) SetCurvePoint(t, v float64) error {
	if s.sealed {
		return fmt.Errorf("sensor %s: %w", s.name, ErrSealed)
	}
	if err := s.curve.Insert(t, v); err != nil {
		return fmt.Errorf("sensor %s: %w", s.name, err)
	}
	return nil
}

// Initialize resets simulated time to -dt and takes one step, seeding the
// value at simulated time zero. The curve must be complete by now.
func (s *Sensor) Initialize() {
	s.sealed = true
	s.ticks = -1
	s.time = -s.dt
	s.value = math.NaN()
	s.Step(1)
}

// Step advances simulated time by dt, n times. n <= 0 does nothing.
func (s *Sensor) Step(n int) {
	for ; n > 0; n-- {
		s.step()
	}
}

func (s *Sensor) Name() string      { return s.name }
func (s *Sensor) Kind() types.Kind  { return s.kind }
func (s *Sensor) Units() string     { return s.units }
func (s *Sensor) Topic() string     { return s.topic }
func (s *Sensor) Interval() float64 { return s.dt }

// Time returns the current simulated time.
func (s *Sensor) Time() float64 { return s.time }

// Value returns the current value, NaN before the first step.
func (s *Sensor) Value() float64 { return s.value }

// CurveBounds returns the earliest and latest breakpoint times.
func (s *Sensor) CurveBounds() (minT, maxT float64) {
	return s.curve.Bounds()
}

// Knots returns a copy of the curve breakpoints.
func (s *Sensor) Knots() []curve.Knot {
	return s.curve.Knots()
}

// Reading snapshots the current state as a publishable payload.
func (s *Sensor) Reading() types.Reading {
	return types.Reading{
		Name:  s.name,
		Value: s.value,
		Units: s.units,
	}
}
