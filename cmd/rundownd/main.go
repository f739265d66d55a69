// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/rundownd/internal/config"
	"github.com/ManuGH/rundownd/internal/daemon"
	"github.com/ManuGH/rundownd/internal/health"
	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/telemetry"
	"github.com/ManuGH/rundownd/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	envFile := flag.String("env-file", ".env", "optional dotenv file read before the environment")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until the config is loaded
	log.Configure(log.Config{Level: "info", Service: "rundownd", Version: version.Version})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*configPath, *envFile, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str(log.FieldPath, *configPath).
			Msg("failed to load configuration")
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: cfg.Telemetry.ServiceName, Version: cfg.Version})
	logger = log.WithComponent("main")
	source := "env+defaults"
	if *configPath != "" {
		source = "file"
	}
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str("source", source).
		Str(log.FieldPath, *configPath).
		Str(log.FieldStudioID, cfg.StudioID).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Str(log.FieldEvent, "startup.checks_failed").Msg("startup checks failed")
	}

	tp, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal().Err(err).Str(log.FieldEvent, "telemetry.init_failed").Msg("failed to initialise tracing")
	}

	holder := config.NewConfigHolder(cfg, loader)
	app, err := daemon.Bootstrap(ctx, holder, daemon.Options{})
	if err != nil {
		logger.Fatal().Err(err).Str(log.FieldEvent, "daemon.bootstrap_failed").Msg("failed to start")
	}
	app.RegisterShutdownHook("telemetry", tp.Shutdown)

	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.exit").Msg("daemon exited with error")
		os.Exit(1)
	}
}
