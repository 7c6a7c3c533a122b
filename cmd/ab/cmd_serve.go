package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/daviddao/agentbridge/pkg/bridge"
	"github.com/daviddao/agentbridge/pkg/config"
	"github.com/daviddao/agentbridge/pkg/contract"
	"github.com/daviddao/agentbridge/pkg/event"
	"github.com/daviddao/agentbridge/pkg/journal"
	"github.com/daviddao/agentbridge/pkg/locks"
	"github.com/daviddao/agentbridge/pkg/mailbox"
	"github.com/daviddao/agentbridge/pkg/server"
)

func cmdServe(args []string) int {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := flags.String("addr", "", "listen address (overrides config)")
	configPath := flags.String("config", defaultConfigPath, "config file path")
	dataDir := flags.String("data-dir", "", "data directory (overrides config)")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: serve: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("serve failed", "error", err)
		return 1
	}
	return 0
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", cfg.DataDir, err)
	}

	contracts := contract.New(contract.Options{
		Path:     cfg.ContractsPath(),
		Logger:   logger,
		Debounce: cfg.Debounce,
	})
	if err := contracts.Load(); err != nil {
		return fmt.Errorf("load contracts: %w", err)
	}

	events := event.New(cfg.RingCapacity)
	b := bridge.New(bridge.Options{
		Mailbox:   mailbox.New(),
		Contracts: contracts,
		Locks:     locks.New(events),
		Events:    events,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := cfg.JournalPath(); path != "" {
		j, err := journal.New(path)
		if err != nil {
			return fmt.Errorf("open journal %s: %w", path, err)
		}
		defer j.Close()
		recorder := journal.NewRecorder(j, logger)
		go recorder.Run(ctx, b.Subscribe())
		logger.Info("journaling events", "path", path)
	}

	srv := server.New(b, logger)
	return srv.Run(ctx, cfg.Addr)
}
