// Package publisher delivers serialized sensor readings to a telemetry
// transport. Every execution unit owns its own Publisher; implementations
// are not meant to be shared between sensors.
package publisher

//go:generate mockgen -destination ../runner/mock_publisher_test.go -package runner -write_package_comment=false code.fbi.h-da.de/distributed-systems/sensorsim/internal/publisher Publisher

import (
	"context"
	"errors"
	"fmt"
)

// QoS is the MQTT delivery guarantee requested for a publish.
type QoS int

const (
	AtMostOnce  QoS = 0
	AtLeastOnce QoS = 1
	ExactlyOnce QoS = 2
)

// ErrEmptyTopic is returned when publishing without a topic, which is the
// case for sensors of unknown kind.
var ErrEmptyTopic = errors.New("empty topic")

// InvalidQoSError reports a QoS outside {0,1,2}.
type InvalidQoSError struct {
	QoS int
}

func (e *InvalidQoSError) Error() string {
	return fmt.Sprintf("invalid QoS value %d", e.QoS)
}

// ValidateQoS fails for anything other than 0, 1 or 2.
func ValidateQoS(q int) (QoS, error) {
	if q < 0 || q > 2 {
		return 0, &InvalidQoSError{QoS: q}
	}
	return QoS(q), nil
}

// Validate checks a publish request before any network interaction.
func Validate(topic string, qos QoS) error {
	if _, err := ValidateQoS(int(qos)); err != nil {
		return err
	}
	if topic == "" {
		return ErrEmptyTopic
	}
	return nil
}

// Publisher hands a serialized reading to a transport.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, qos QoS) error
	Close() error
}

// Credentials describe how a single device connects to the broker.
type Credentials struct {
	Endpoint string
	Port     int
	ClientID string
	RootCA   string //path to the root CA certificate, empty for plain TCP
	Cert     string //path to the device certificate
	Key      string //path to the device private key
}

// TLS reports whether the credentials carry certificate material.
func (c Credentials) TLS() bool {
	return c.RootCA != "" || c.Cert != "" || c.Key != ""
}
