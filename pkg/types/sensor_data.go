package types

import (
	"encoding/json"
	"math"
)

// Reading is the payload a sensor publishes on every tick.
type Reading struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

// readingJSON mirrors Reading with a nullable value, since JSON has no NaN.
type readingJSON struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
	Units string   `json:"units"`
}

// MarshalJSON encodes an undefined (NaN or infinite) value as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	out := readingJSON{Name: r.Name, Units: r.Units}
	if !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) {
		v := r.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null or missing value as NaN.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var in readingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Name = in.Name
	r.Units = in.Units
	r.Value = math.NaN()
	if in.Value != nil {
		r.Value = *in.Value
	}
	return nil
}

// Defined reports whether the reading carries a value.
func (r Reading) Defined() bool {
	return !math.IsNaN(r.Value)
}
