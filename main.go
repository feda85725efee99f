package main

import (
	"fmt"
	"log/slog"
	"os"

	app "github.com/rocketscienceinc/tictactoe-relay/internal"
	"github.com/rocketscienceinc/tictactoe-relay/internal/config"
)

const defaultConfigPath = "./config.yml"

// main - starts the relay: HTTP endpoints, the WebSocket server and the session janitor.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "relay stopped: %v\n", err)
			os.Exit(1)
		}
	}()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	conf := config.MustLoad(configPath)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: conf.SlogLevel()})).
		With("service", "tictactoe-relay")

	if err := app.RunApp(logger, conf); err != nil {
		panic(fmt.Errorf("relay failed: %w", err))
	}
}
