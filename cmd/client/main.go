// cmd/client/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-carsoccer/pkg/config"
	"github.com/opd-ai/go-carsoccer/pkg/engine"
	"github.com/opd-ai/go-carsoccer/pkg/event"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
	"github.com/opd-ai/go-carsoccer/pkg/network"
	"github.com/opd-ai/go-carsoccer/pkg/render"
	engorender "github.com/opd-ai/go-carsoccer/pkg/render/engo"
)

func main() {
	logger := logging.NewLogger().WithComponent("client")
	ctx := context.Background()

	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	mode := flag.String("mode", "local", "Client mode: 'local' (engo window) or 'spectate' (terminal view of a server)")
	serverURL := flag.String("server", "", "Stream URL for spectate mode (default ws://<server address>/ws)")
	fullscreen := flag.Bool("fullscreen", false, "Run in fullscreen mode (local only)")
	width := flag.Int("width", 800, "Window width (local only)")
	height := flag.Int("height", 1000, "Window height (local only)")
	seed := flag.Uint64("seed", 0, "Ball launch seed, 0 for random (local only)")
	flag.Parse()

	var matchConfig *config.MatchConfig
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", *configPath,
		)
		matchConfig = config.DefaultConfig()
	} else {
		matchConfig, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
	}
	if *seed != 0 {
		matchConfig.Seed = *seed
	}

	switch *mode {
	case "spectate":
		url := *serverURL
		if url == "" {
			url = "ws://" + matchConfig.NetworkConfig.ServerAddress + "/ws"
		}
		if err := spectate(ctx, url, matchConfig, logger); err != nil {
			logger.Error(ctx, "Spectator session failed", err, "url", url)
			os.Exit(1)
		}
	case "local":
		fallthrough
	default:
		startEngo(matchConfig, *width, *height, *fullscreen, logger)
	}
}

// startEngo runs a local match in an engo window. The scene steps the match itself,
// so the runner's ticker loop is never started.
func startEngo(matchConfig *config.MatchConfig, width, height int, fullscreen bool, logger *logging.Logger) {
	ctx := context.Background()
	bus := event.NewEventBus()

	match, err := engine.NewMatch(matchConfig, bus)
	if err != nil {
		logger.Error(ctx, "Failed to create match", err)
		os.Exit(1)
	}
	runner := engine.NewRunner(match, logger)

	scene := engorender.NewMatchScene(runner, bus, matchConfig.Arena, width, height, logger)

	opts := engo.RunOptions{
		Title:      "Car Soccer",
		Width:      width,
		Height:     height,
		Fullscreen: fullscreen,
		VSync:      true,
	}
	engo.Run(opts, scene)
}

// spectate draws the server's snapshots in the terminal until interrupted or disconnected
func spectate(ctx context.Context, url string, matchConfig *config.MatchConfig, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := network.Dial(ctx, url, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Info(ctx, "Connected to stream", "session_id", client.SessionID())

	view := render.NewTerminalRenderer(os.Stdout, 60, 38, matchConfig.Arena)
	view.ClearScreen = true

	for {
		select {
		case state, ok := <-client.States():
			if !ok {
				logger.Info(ctx, "Stream closed by server")
				return nil
			}
			state.Render(view)
		case msg, ok := <-client.Errors():
			if ok {
				logger.Warn(ctx, "Server reported an error", "message", msg)
			}
		case <-client.Done():
			logger.Info(ctx, "Stream closed by server")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
