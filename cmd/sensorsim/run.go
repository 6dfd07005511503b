package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/metrics"
	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/publisher"
	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/runner"
	"code.fbi.h-da.de/distributed-systems/sensorsim/internal/scenario"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run a scenario until its duration has elapsed.",
	Long: "Run starts one unit per sensor of the scenario. By default the run " +
		"lasts until 3 seconds after the last breakpoint of any sensor.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dt, _ := cmd.Flags().GetFloat64("dt")
		duration := defaultDuration
		if cmd.Flags().Changed("duration") {
			sec, _ := cmd.Flags().GetFloat64("duration")
			if sec < 0 {
				return fmt.Errorf("duration must not be negative")
			}
			duration = scenario.Seconds(sec)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runScenario(ctx, args[0], dt, duration)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Float64("dt", 1.0, "sampling interval in seconds")
	runCmd.Flags().Float64("duration", 0, "run duration in seconds (default: last breakpoint + 3)")
}

// defaultDuration makes runScenario use the scenario's default duration.
// An explicit zero is a valid run length.
const defaultDuration time.Duration = -1

func runScenario(ctx context.Context, name string, dt float64, duration time.Duration) error {
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	sc, err := catalog.Get(name)
	if err != nil {
		return err
	}

	//every setup error aborts before any unit starts
	sensors, err := sc.Build(dt)
	if err != nil {
		return err
	}
	if duration < 0 {
		duration = sc.DefaultDuration()
	}
	qos, err := publisher.ValidateQoS(cfg.QoS)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)

		metricsCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.MetricsAddr, reg, logger); err != nil {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	manager := runner.NewManager(logger)
	var opened []publisher.Publisher
	for _, s := range sensors {
		pub, err := dialPublisher(ctx, s.Name())
		if err != nil {
			for _, p := range opened {
				_ = p.Close()
			}
			return fmt.Errorf("failed to create publisher for %s: %w", s.Name(), err)
		}
		opened = append(opened, pub)
		manager.Add(runner.NewUnit(s, pub, duration,
			runner.WithQoS(qos),
			runner.WithMetrics(m),
			runner.WithLogger(logger),
		))
	}

	logger.Info("running scenario", "scenario", sc.Name, "sensors", len(sensors), "dt", dt, "duration", duration, "transport", cfg.Transport)
	results := manager.Run(ctx)

	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Printf("%-20s published=%-4d %s\n", r.Sensor, r.Published, status)
	}

	if failed := runner.Failed(results); len(failed) > 0 {
		return fmt.Errorf("%d of %d sensors failed", len(failed), len(results))
	}
	return nil
}
