package types

import (
	"fmt"
	"strings"
)

// Kind identifies what physical quantity a simulated sensor reports.
// It fixes the reading units and the telemetry topic.
type Kind int

const (
	KindUnknown Kind = iota
	KindPressure
	KindArgon
)

// Telemetry topics readings are published to, one per sensor kind.
const (
	PressureTopic = "telemetry/pressure"
	GasTopic      = "telemetry/gas"
)

func (k Kind) String() string {
	switch k {
	case KindPressure:
		return "pressure"
	case KindArgon:
		return "argon"
	default:
		return "unknown"
	}
}

// Units returns the measurement units reported by sensors of this kind.
// Unknown sensors report no units.
func (k Kind) Units() string {
	switch k {
	case KindPressure:
		return "atm"
	case KindArgon:
		return "ppm"
	default:
		return ""
	}
}

// Topic returns the telemetry topic for this kind. Unknown sensors have
// no topic and cannot publish.
func (k Kind) Topic() string {
	switch k {
	case KindPressure:
		return PressureTopic
	case KindArgon:
		return GasTopic
	default:
		return ""
	}
}

// ParseKind converts a configured kind name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unknown":
		return KindUnknown, nil
	case "pressure":
		return KindPressure, nil
	case "argon", "gas":
		return KindArgon, nil
	default:
		return KindUnknown, fmt.Errorf("unknown sensor kind %q", s)
	}
}

// KindFromName infers the kind from a device name such as
// "pressure-sensor-a" or "gas-sensor-a". It is only meant for scenario
// inputs that do not carry an explicit kind.
func KindFromName(name string) Kind {
	switch {
	case strings.Contains(name, "pressure"):
		return KindPressure
	case strings.Contains(name, "gas"):
		return KindArgon
	default:
		return KindUnknown
	}
}

// MarshalText lets Kind appear by name in YAML and JSON documents.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
