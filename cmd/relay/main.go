package main

import (
	"chat-relay/internal"
	"chat-relay/runtime"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the relay process.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay error: %v\n", err)
	}
	os.Exit(code)
}

// run keeps every deferred cleanup on the way out, os.Exit only happens in main.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Endpoints, the only fatal step
	relay, err := runtime.Listen(log, config)
	if err != nil {
		log.Error("Failed to bind relay endpoints", "error", err)
		return exitRuntime, err
	}

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Serve until interrupted
	if err := relay.Start(ctx); err != nil {
		return exitRuntime, fmt.Errorf("relay failed: %w", err)
	}
	log.Info("Program stopped cleanly")
	return exitOK, nil
}
