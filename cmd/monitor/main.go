// Command monitor listens to the sensor telemetry topics and forwards
// every reading it sees to the recorder.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/xid"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/config"
	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/recorder"
	"code.fbi.h-da.de/distributed-systems/sensorsim/pkg/types"
)

func main() {
	mqttHost := flag.String("mqtt-host", "localhost", "MQTT broker hostname")
	mqttPort := flag.Int("mqtt-port", 1883, "MQTT broker port")
	recorderAddr := flag.String("recorder-addr", "localhost:50051", "Recorder address")
	duration := flag.Int("duration", 0, "Run duration in seconds (0 = run until interrupted)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	level, err := config.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client, err := recorder.NewClient(*recorderAddr, 5*time.Second)
	if err != nil {
		logger.Error("failed to create recorder client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	monitor := NewMonitor(client, 5*time.Second, logger, types.PressureTopic, types.GasTopic)
	brokerURL := fmt.Sprintf("tcp://%s:%d", *mqttHost, *mqttPort)
	if err := monitor.Start(brokerURL, "sensorsim-monitor-"+xid.New().String()); err != nil {
		logger.Error("failed to start monitor", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *duration > 0 {
		logger.Info("monitor will run for a fixed time", "seconds", *duration)
		select {
		case <-sigChan:
			logger.Info("received termination signal")
		case <-time.After(time.Duration(*duration) * time.Second):
			logger.Info("run duration reached")
		}
	} else {
		logger.Info("monitor running until interrupted")
		<-sigChan
		logger.Info("received termination signal")
	}

	monitor.Stop()
}
