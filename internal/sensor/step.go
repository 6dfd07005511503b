package sensor

import "math"

// step advances simulated time by one interval and updates the value.
//
// Outside the curve the value is held flat at the nearest end knot. Inside,
// the value moves by slope*dt from the previous value, which reproduces the
// linear value exactly as long as a step does not cross a knot. A step that
// jumps over a knot keeps the slope of the segment it lands in, so the
// result is an approximation until the value next reaches an end of the
// curve.
func (s *Sensor) step() {
	s.ticks++
	s.time = float64(s.ticks) * s.dt

	minT, maxT := s.curve.Bounds()
	switch {
	case s.time >= maxT:
		s.value = s.curve.Last().V
		return
	case s.time <= minT:
		s.value = s.curve.First().V
		return
	}

	i, ok := s.curve.Bracket(s.time)
	if !ok {
		//degenerate curve, keep the previous value
		return
	}

	if math.IsNaN(s.value) {
		//curve starts before time zero, nothing to add onto yet
		s.value = s.curve.ValueAt(s.time)
		return
	}
	s.value += s.curve.Slope(i) * s.dt
}
