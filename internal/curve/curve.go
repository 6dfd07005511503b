// Package curve holds the piecewise-linear breakpoint curves that drive
// simulated sensors.
package curve

import (
	"fmt"
	"math"
	"sort"
)

// Knot is a single (time, value) breakpoint of a curve.
type Knot struct {
	T float64
	V float64
}

// DuplicateKnotError is returned when a breakpoint already exists at T.
type DuplicateKnotError struct {
	T float64
}

func (e *DuplicateKnotError) Error() string {
	return fmt.Sprintf("a value for time=%v already exists in the curve", e.T)
}

// Curve is an ordered set of knots, strictly increasing in time.
// The zero value is an empty curve ready for use.
type Curve struct {
	knots []Knot
	minT  float64
	maxT  float64
}

// New builds a curve from the given knots in any order.
func New(knots ...Knot) (*Curve, error) {
	c := &Curve{}
	for _, k := range knots {
		if err := c.Insert(k.T, k.V); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Insert adds a breakpoint keeping the curve sorted by time. The curve is
// left untouched when a knot already exists at t.
func (c *Curve) Insert(t, v float64) error {
	if math.IsNaN(t) {
		return fmt.Errorf("invalid breakpoint time %v", t)
	}

	idx := sort.Search(len(c.knots), func(i int) bool { return c.knots[i].T >= t })
	if idx < len(c.knots) && c.knots[idx].T == t {
		return &DuplicateKnotError{T: t}
	}

	c.knots = append(c.knots, Knot{})
	copy(c.knots[idx+1:], c.knots[idx:])
	c.knots[idx] = Knot{T: t, V: v}

	c.minT = c.knots[0].T
	c.maxT = c.knots[len(c.knots)-1].T
	return nil
}

// Len returns the number of knots.
func (c *Curve) Len() int {
	return len(c.knots)
}

// At returns the i-th knot in time order.
func (c *Curve) At(i int) Knot {
	return c.knots[i]
}

// First returns the earliest knot. The curve must not be empty.
func (c *Curve) First() Knot {
	return c.knots[0]
}

// Last returns the latest knot. The curve must not be empty.
func (c *Curve) Last() Knot {
	return c.knots[len(c.knots)-1]
}

// Knots returns a copy of the knots in time order.
func (c *Curve) Knots() []Knot {
	out := make([]Knot, len(c.knots))
	copy(out, c.knots)
	return out
}

// Bounds returns the earliest and latest knot times, or NaN, NaN when the
// curve is empty.
func (c *Curve) Bounds() (minT, maxT float64) {
	if len(c.knots) == 0 {
		return math.NaN(), math.NaN()
	}
	return c.minT, c.maxT
}

// Bracket returns the index i of the first segment with
// knots[i].T <= t <= knots[i+1].T. ok is false when no segment contains t,
// which happens for curves with fewer than two knots or t outside the bounds.
func (c *Curve) Bracket(t float64) (i int, ok bool) {
	for i = 0; i+1 < len(c.knots); i++ {
		if c.knots[i].T <= t && c.knots[i+1].T >= t {
			return i, true
		}
	}
	return -1, false
}

// Slope returns the rate of change of segment i.
func (c *Curve) Slope(i int) float64 {
	lo, hi := c.knots[i], c.knots[i+1]
	return (hi.V - lo.V) / (hi.T - lo.T)
}

// ValueAt evaluates the curve at t directly: flat outside the bounds and
// linear inside. It returns NaN for an empty curve.
func (c *Curve) ValueAt(t float64) float64 {
	if len(c.knots) == 0 {
		return math.NaN()
	}
	if t >= c.maxT {
		return c.Last().V
	}
	if t <= c.minT {
		return c.First().V
	}
	i, ok := c.Bracket(t)
	if !ok {
		return math.NaN()
	}
	lo := c.knots[i]
	return lo.V + c.Slope(i)*(t-lo.T)
}
