// Package runner drives simulated sensors: one execution unit per sensor
// steps the curve and publishes a reading every interval until its run
// duration has elapsed.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/metrics"
	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/publisher"
	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/sensor"
)

// State is the lifecycle state of an execution unit.
type State int32

const (
	Created State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return "invalid"
	}
}

// PublishError is a failed publish. It terminates the unit that saw it.
type PublishError struct {
	Sensor string
	Topic  string
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("sensor %s: publish to %q failed: %v", e.Sensor, e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Unit binds one sensor to its own publisher for a bounded run. The unit
// owns the publisher and closes it when it terminates.
type Unit struct {
	sensor   *sensor.Sensor
	pub      publisher.Publisher
	duration time.Duration
	interval time.Duration
	qos      publisher.QoS

	clock   Clock
	metrics *metrics.Metrics
	logger  *slog.Logger

	state     atomic.Int32
	published atomic.Int64
}

// Option configures a Unit.
type Option func(*Unit)

func WithQoS(q publisher.QoS) Option { return func(u *Unit) { u.qos = q } }

func WithClock(c Clock) Option { return func(u *Unit) { u.clock = c } }

func WithMetrics(m *metrics.Metrics) Option { return func(u *Unit) { u.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(u *Unit) { u.logger = l } }

// NewUnit creates a unit that runs s for duration of wall-clock time. The
// suspension between publishes is the sensor's sampling interval in seconds.
func NewUnit(s *sensor.Sensor, pub publisher.Publisher, duration time.Duration, opts ...Option) *Unit {
	u := &Unit{
		sensor:   s,
		pub:      pub,
		duration: duration,
		interval: time.Duration(s.Interval() * float64(time.Second)),
		clock:    realClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = u.logger.With("sensor", s.Name(), "topic", s.Topic())
	return u
}

func (u *Unit) Sensor() *sensor.Sensor { return u.sensor }

// State returns the current lifecycle state. Safe to call from any goroutine.
func (u *Unit) State() State { return State(u.state.Load()) }

// Published returns how many readings were handed off successfully.
func (u *Unit) Published() int64 { return u.published.Load() }

func (u *Unit) setState(s State) {
	u.state.Store(int32(s))
	u.metrics.State(u.sensor.Name(), int(s))
}

// Run initializes the sensor and loops publish, suspend, step until the
// duration has elapsed. The deadline is checked only before a new publish,
// so a run may overshoot by up to one interval. Run returns the first
// publish failure or the context error on cancellation. A unit runs once.
func (u *Unit) Run(ctx context.Context) error {
	if !u.state.CompareAndSwap(int32(Created), int32(Running)) {
		return fmt.Errorf("sensor %s: unit already %s", u.sensor.Name(), u.State())
	}
	u.metrics.State(u.sensor.Name(), int(Running))
	defer u.setState(Terminated)
	defer u.closePublisher()

	topic := u.sensor.Topic()
	if err := publisher.Validate(topic, u.qos); err != nil {
		return &PublishError{Sensor: u.sensor.Name(), Topic: topic, Err: err}
	}

	u.sensor.Initialize()
	start := u.clock.Now()
	u.logger.Info("started sensor simulation", "interval", u.interval, "duration", u.duration)

	for u.clock.Now().Sub(start) < u.duration {
		if err := u.publish(ctx, topic); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		u.clock.Sleep(ctx, u.interval)
		if err := ctx.Err(); err != nil {
			return err
		}

		u.sensor.Step(1)
	}

	u.logger.Info("sensor simulation finished", "published", u.Published())
	return nil
}

func (u *Unit) closePublisher() {
	if err := u.pub.Close(); err != nil {
		u.logger.Warn("failed to close publisher", "error", err)
	}
}

func (u *Unit) publish(ctx context.Context, topic string) error {
	reading := u.sensor.Reading()
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading of %s: %w", u.sensor.Name(), err)
	}

	began := time.Now()
	if err := u.pub.Publish(ctx, topic, payload, u.qos); err != nil {
		u.metrics.Failed(u.sensor.Name())
		return &PublishError{Sensor: u.sensor.Name(), Topic: topic, Err: err}
	}

	u.published.Add(1)
	u.metrics.Published(u.sensor.Name(), topic, reading.Units, reading.Value, time.Since(began))
	u.logger.Debug("published reading", "payload", string(payload), "sim_time", u.sensor.Time())
	return nil
}
