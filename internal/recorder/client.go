package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/publisher"
	"code.fbi.h-da.de/distributed-systems/sensorsim/pkg/types"
)

// Client talks to a recorder. It also satisfies publisher.Publisher so a
// sensor can publish straight into the recorder.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

var _ publisher.Publisher = (*Client)(nil)

// NewClient creates a client for the recorder at addr. Extra dial options
// are appended after the insecure transport credentials.
func NewClient(addr string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to recorder: %w", err)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Record stores one record.
func (c *Client) Record(ctx context.Context, rec Record) error {
	req, err := recordToStruct(rec)
	if err != nil {
		return fmt.Errorf("error encoding record: %w", err)
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	if err := c.conn.Invoke(ctx, RecordMethod, req, new(emptypb.Empty)); err != nil {
		return fmt.Errorf("error recording reading of %s: %w", rec.Name, err)
	}
	return nil
}

// Publish decodes a JSON reading and records it under topic. Every
// recorded reading is acknowledged, so any valid qos is accepted.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos publisher.QoS) error {
	if err := publisher.Validate(topic, qos); err != nil {
		return err
	}

	var reading types.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("payload for topic %s is not a reading: %w", topic, err)
	}
	return c.Record(ctx, Record{Reading: reading, Topic: topic})
}

// List returns every stored record.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, ListMethod, &emptypb.Empty{}, resp); err != nil {
		return nil, fmt.Errorf("error listing readings: %w", err)
	}
	return recordsFromList(resp)
}

// ListBySensor returns the records of one sensor.
func (c *Client) ListBySensor(ctx context.Context, sensor string) ([]Record, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, ListBySensorMethod, wrapperspb.String(sensor), resp); err != nil {
		return nil, fmt.Errorf("error listing readings of %s: %w", sensor, err)
	}
	return recordsFromList(resp)
}

// Delete drops every record of a sensor and returns how many were removed.
func (c *Client) Delete(ctx context.Context, sensor string) (int64, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp := new(wrapperspb.Int64Value)
	if err := c.conn.Invoke(ctx, DeleteMethod, wrapperspb.String(sensor), resp); err != nil {
		return 0, fmt.Errorf("error deleting readings of %s: %w", sensor, err)
	}
	return resp.GetValue(), nil
}
