package main

import (
	"context"
	"fmt"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/config"
	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/publisher"
	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/recorder"
)

// dialPublisher opens a dedicated publisher for one device. Connections
// are never shared between sensors.
func dialPublisher(ctx context.Context, device string) (publisher.Publisher, error) {
	switch cfg.Transport {
	case config.TransportMQTT:
		pub, err := publisher.DialMQTT(ctx, cfg.Credentials(device), publisher.MQTTOptions{
			ConnectTimeout: cfg.ConnectTimeout,
			PublishTimeout: cfg.PublishTimeout,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return pub, nil
	case config.TransportWebSocket:
		pub, err := publisher.DialWebSocket(ctx, cfg.WebSocketURL, cfg.PublishTimeout)
		if err != nil {
			return nil, err
		}
		return pub, nil
	case config.TransportRecorder:
		client, err := recorder.NewClient(cfg.RecorderAddr, cfg.PublishTimeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.TransportLog:
		return publisher.NewLog(logger.With("device", device)), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
