package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/recorder"
	"code.fbi.h-da.de/distributed-systems/sensorsim/pkg/types"
)

// Sink receives the readings observed by the monitor.
type Sink interface {
	Record(ctx context.Context, rec recorder.Record) error
}

// Monitor subscribes to the telemetry topics and forwards every reading
// to a sink.
type Monitor struct {
	Topics     []string
	MQTTClient mqtt.Client
	sink       Sink
	timeout    time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	count   atomic.Int64
}

// NewMonitor creates a monitor forwarding to sink.
func NewMonitor(sink Sink, timeout time.Duration, logger *slog.Logger, topics ...string) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		Topics:  topics,
		sink:    sink,
		timeout: timeout,
		logger:  logger,
	}
}

// Start connects to the broker. Subscriptions are (re)made on every connect.
func (m *Monitor) Start(brokerURL, clientID string) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		m.logger.Info("monitor connected to MQTT broker", "broker", brokerURL)
		m.subscribe(client)
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		m.logger.Warn("monitor lost connection to MQTT broker", "error", err)
	})

	m.MQTTClient = mqtt.NewClient(opts)
	if token := m.MQTTClient.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

func (m *Monitor) subscribe(client mqtt.Client) {
	for _, topic := range m.Topics {
		token := client.Subscribe(topic, byte(1), m.handleMessage)
		token.Wait()
		if token.Error() != nil {
			m.logger.Error("failed to subscribe", "topic", topic, "error", token.Error())
			continue
		}
		m.logger.Info("subscribed", "topic", topic)
	}
}

func (m *Monitor) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	m.Forward(msg.Topic(), msg.Payload())
}

// Forward decodes one payload and hands it to the sink asynchronously.
func (m *Monitor) Forward(topic string, payload []byte) {
	var reading types.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		m.logger.Warn("error parsing reading", "topic", topic, "error", err)
		return
	}
	if reading.Name == "" {
		m.logger.Warn("reading without sensor name", "topic", topic)
		return
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		m.logger.Debug("monitor stopped, dropping reading", "sensor", reading.Name)
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		rec := recorder.Record{Reading: reading, Topic: topic, ReceivedAt: time.Now()}
		if err := m.sink.Record(ctx, rec); err != nil {
			m.logger.Error("error forwarding reading", "sensor", reading.Name, "error", err)
			return
		}

		n := m.count.Add(1)
		m.logger.Debug("forwarded reading", "sensor", reading.Name, "value", reading.Value, "units", reading.Units)
		if n%100 == 0 {
			m.logger.Info("processed readings", "count", n)
		}
	}()
}

// Stop disconnects from the broker and then waits for in-flight forwards.
// Readings arriving after Stop are dropped.
func (m *Monitor) Stop() {
	if m.MQTTClient != nil && m.MQTTClient.IsConnected() {
		m.MQTTClient.Disconnect(250)
	}

	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("monitor stopped", "processed", m.Count())
}

// Count returns how many readings were forwarded successfully.
func (m *Monitor) Count() int64 {
	return m.count.Load()
}
