package publisher

import (
	"context"
	"log/slog"
)

// Log is a dry-run publisher that only logs what would be sent.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Publish(ctx context.Context, topic string, payload []byte, qos QoS) error {
	if err := Validate(topic, qos); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "published", "topic", topic, "qos", int(qos), "payload", string(payload))
	return nil
}

func (l *Log) Close() error { return nil }
