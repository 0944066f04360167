// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opd-ai/go-carsoccer/pkg/config"
	"github.com/opd-ai/go-carsoccer/pkg/engine"
	"github.com/opd-ai/go-carsoccer/pkg/event"
	"github.com/opd-ai/go-carsoccer/pkg/health"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
	"github.com/opd-ai/go-carsoccer/pkg/metrics"
	"github.com/opd-ai/go-carsoccer/pkg/network"
	"github.com/opd-ai/go-carsoccer/pkg/resource"
)

func main() {
	logger := logging.NewLogger().WithComponent("server")
	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())

	configPath := flag.String("config", "config.yaml", "Path to configuration file (.yaml, .yml or .json)")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	flag.Parse()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	var matchConfig *config.MatchConfig
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", *configPath,
		)
		matchConfig = config.DefaultConfig()
	} else {
		matchConfig, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
	}

	if err := config.ApplyEnvironmentOverrides(matchConfig); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}
	env, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Invalid environment configuration", err)
		os.Exit(1)
	}

	bus := event.NewEventBus()
	bus.Subscribe(event.GoalScored, func(e event.Event) {
		if goal, ok := e.(*event.GoalEvent); ok {
			logger.Info(ctx, "Goal scored", "side", goal.Side.String(), "frame", goal.Frame)
		}
	})

	match, err := engine.NewMatch(matchConfig, bus)
	if err != nil {
		logger.Error(ctx, "Failed to create match", err)
		os.Exit(1)
	}
	runner := engine.NewRunner(match, logger)

	collector := metrics.NewCollector()
	collector.Attach(bus)
	defer collector.Detach()

	stream := network.NewStreamServer(runner, bus, env, logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	supervisor := resource.NewSupervisor(runCtx, env, logger)
	if err := supervisor.Start(); err != nil {
		logger.Error(ctx, "Failed to start supervisor", err)
		os.Exit(1)
	}

	// Readiness tolerates a few missed ticks before reporting the loop stalled
	maxFrameAge := 10 * time.Second / time.Duration(matchConfig.NetworkConfig.TickRate)
	if maxFrameAge < time.Second {
		maxFrameAge = time.Second
	}

	healthChecker := health.NewHealthChecker()
	healthChecker.AddCheck(health.NewSimulationHealthCheck(runner.Running, runner.LastFrame, maxFrameAge))
	healthChecker.AddCheck(health.NewStreamHealthCheck(stream.IsListening))
	healthChecker.AddCheck(resource.NewHealthCheck(supervisor))

	opsMux := http.NewServeMux()
	healthChecker.Routes(opsMux)
	collector.Routes(opsMux)

	healthPort := "8080"
	if envPort := os.Getenv("CARSOCCER_HEALTH_PORT"); envPort != "" {
		if _, err := strconv.Atoi(envPort); err == nil {
			healthPort = envPort
		}
	}
	opsServer := &http.Server{
		Addr:         net.JoinHostPort("", healthPort),
		Handler:      opsMux,
		ReadTimeout:  env.ReadTimeout,
		WriteTimeout: env.WriteTimeout,
	}

	if err := supervisor.Go("ops", func(ctx context.Context) error {
		return serveUntilDone(ctx, opsServer, env.ShutdownTimeout)
	}); err != nil {
		logger.Error(ctx, "Failed to start ops server", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Ops server listening", "port", healthPort)

	streamMux := http.NewServeMux()
	stream.Routes(streamMux)

	serverAddr := matchConfig.NetworkConfig.ServerAddress
	logger.Info(ctx, "Starting stream server",
		"address", serverAddr,
		"max_spectators", env.MaxSpectators,
		"tick_rate", matchConfig.NetworkConfig.TickRate,
		"state_rate", matchConfig.NetworkConfig.StateRate,
	)
	if err := stream.Start(serverAddr, streamMux); err != nil {
		logger.Error(ctx, "Failed to start stream server", err, "address", serverAddr)
		os.Exit(1)
	}

	if err := supervisor.Go("simulation", runner.Run); err != nil {
		logger.Error(ctx, "Failed to start simulation", err)
		os.Exit(1)
	}

	<-runCtx.Done()
	logger.Info(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.ShutdownTimeout)
	defer cancel()

	if err := stream.Stop(shutdownCtx); err != nil {
		logger.Error(ctx, "Stream server shutdown failed", err)
	}
	if err := supervisor.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Supervisor shutdown failed", err)
	}
	for _, failure := range supervisor.Failures() {
		logger.Warn(ctx, "Task ended abnormally", "error", failure.Error())
	}
	logger.Info(ctx, "Server stopped", "frames", runner.Snapshot().Frame)
}

// serveUntilDone runs srv until ctx is cancelled, then shuts it down
func serveUntilDone(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
