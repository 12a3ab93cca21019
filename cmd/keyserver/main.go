// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seal.
//
// go-seal is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/viol3/Sui-Unity-SDK-sub000/internal/cli"
	"github.com/viol3/Sui-Unity-SDK-sub000/internal/config"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "/etc/seal/keyserver.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("seal key server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	if envConfig := os.Getenv("SEAL_CONFIG"); envConfig != "" {
		*configPath = envConfig
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		slog.Error("Invalid log level", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.NewSlogAdapter(&logging.SlogConfig{
		Level:  level,
		Format: cfg.Logging.Format,
	})
	logger.Info("Starting key server",
		logging.String("config", *configPath),
		logging.String("version", version),
		logging.String("addr", cfg.KeyServer.Addr()))

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := cli.Serve(ctx, &cfg.KeyServer, logger); err != nil {
		logger.Error("Key server failed", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("Key server stopped")
}
