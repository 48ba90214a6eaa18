package main

import (
	"chat-relay/peer"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the peer application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const restartInterval = time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Peer error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & Logger
	config, err := loadConfig()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Channels to the relay and the group
	client, err := peer.Dial(ctx, log, config.RelayAddr, config.MulticastGroup)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connections...")
		_ = client.Close()
	}()

	// 4. Receivers, restarted on failure
	printer := peer.NewPrinter(os.Stdout, !config.NoColor)
	supervisor := workers.NewSupervisor(log, nil, restartInterval)
	supervisor.Add(client.Receivers(printer)...)
	go supervisor.Run(ctx)
	defer supervisor.Stop()

	// 5. Interactive loop
	console := peer.NewConsole(log, client, os.Stdin, printer)
	if err := console.Run(ctx); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}
