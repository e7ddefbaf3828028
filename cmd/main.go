package main

import (
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanups (database close,
// session teardown) always execute before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Delivery engine wiring
	registry := runtime.NewRegistry()
	queue := repositories.NewQueueRepository(db, log)
	groups := repositories.NewGroupRepository(db, log)
	router := runtime.NewRouter(log, registry, groups)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	engine := runtime.NewEngine(log, registry, router, queue,
		address, config.HandshakeTimeout, uint32(config.MaxFrameSize))

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised execution: a crash of the listener restarts it,
	// a signal drains everything.
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(engine)

	log.Info("Starting delivery engine", "address", address)
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
