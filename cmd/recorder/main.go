// Command recorder keeps the latest sensor readings in memory and serves
// them over gRPC.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/config"
	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/recorder"
)

func main() {
	port := flag.Int("port", 50051, "Recorder server port")
	dataLimit := flag.Int("data-limit", 1_000_000, "Maximum number of readings to keep")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	level, err := config.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	addr := fmt.Sprintf("0.0.0.0:%d", *port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen", "addr", addr, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	recorder.Register(grpcServer, recorder.NewService(*dataLimit, logger))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("recorder starting", "addr", addr, "data_limit", *dataLimit)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("failed to serve", "error", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	logger.Info("shutting down recorder")

	//let in-flight calls finish instead of cutting them off
	grpcServer.GracefulStop()
	logger.Info("recorder stopped")
}
