package runner

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one execution unit.
type Result struct {
	Sensor    string
	Published int64
	Err       error
}

// Manager starts a set of execution units and waits for all of them.
type Manager struct {
	Units  []*Unit
	logger *slog.Logger
}

// NewManager creates a manager over units.
func NewManager(logger *slog.Logger, units ...*Unit) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{Units: units, logger: logger}
}

// Add registers another unit before Run.
func (m *Manager) Add(u *Unit) {
	m.Units = append(m.Units, u)
}

// Run starts every unit concurrently and blocks until all have terminated.
// A failing unit never stops its siblings; its error is reported in its
// Result. Results are in the order the units were added.
func (m *Manager) Run(ctx context.Context) []Result {
	m.logger.Info("starting sensor units", "count", len(m.Units))

	results := make([]Result, len(m.Units))
	var g errgroup.Group

	for i, u := range m.Units {
		g.Go(func() error {
			err := u.Run(ctx)
			results[i] = Result{
				Sensor:    u.Sensor().Name(),
				Published: u.Published(),
				Err:       err,
			}

			switch {
			case err == nil:
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				m.logger.Info("sensor unit cancelled", "sensor", u.Sensor().Name())
			default:
				m.logger.Error("sensor unit failed", "sensor", u.Sensor().Name(), "error", err)
			}
			//never fail the group, siblings keep running
			return nil
		})
	}

	_ = g.Wait()
	m.logger.Info("all sensor units terminated")
	return results
}

// Failed returns the results that ended with an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
