// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Command nugman is a terminal UI for managing NuGet sources, caches, a local
// package feed and package search on top of the dotnet CLI.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/appconfig"
	"github.com/monadic/nugman/internal/cache"
	"github.com/monadic/nugman/internal/dotnet"
	"github.com/monadic/nugman/internal/localfeed"
	"github.com/monadic/nugman/internal/nugetconfig"
	"github.com/monadic/nugman/internal/search"
	"github.com/monadic/nugman/internal/sources"
	"github.com/monadic/nugman/pkg/queries"
)

var (
	// BuildTag is set during build
	BuildTag = "dev"
	// BuildDate is set during build
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "nugman",
	Short: "Manage NuGet sources, caches and packages from the terminal",
	Long: `nugman - a terminal UI for NuGet

nugman drives the dotnet CLI to:

  - List, add, edit, enable/disable and remove package sources
  - Check source health
  - Inspect and clear the local NuGet caches
  - Maintain a local package feed fed by .nupkg files or project builds
  - Search package sources and inspect package metadata
  - Show every nuget.config that applies to the current directory

Requires the .NET SDK ('dotnet' on PATH).

Environment Variables:
  NUGMAN_DEBUG   Set to 1 to write debug-level session logs
`,
	Version:       BuildTag,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runTUI,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Flags().BoolP("version", "v", false, "print the version and exit")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, cfgErr := appconfig.Load()
	if cfg.Dir == "" {
		return cfgErr
	}

	session := openSessionLogger(cfg.LogsDir())
	defer session.Close()
	logger := session.Logger()
	if cfgErr != nil {
		logger.Warn("load settings, using defaults", zap.Error(cfgErr))
	} else if wrote, err := cfg.EnsureFile(); err != nil {
		logger.Warn("write default settings", zap.Error(err))
	} else if wrote {
		logger.Info("wrote default settings", zap.String("path", cfg.Path()))
	}
	logger.Debug("settings", zap.String("dir", cfg.Dir), zap.String("localSource", cfg.LocalSourceDir))

	svc := buildServices(cfg, logger)
	p := tea.NewProgram(newModel(svc, logger), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		logger.Error("program exited", zap.Error(err))
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// buildServices wires every service to one dotnet gateway.
func buildServices(cfg appconfig.Config, logger *zap.Logger) services {
	gw := dotnet.NewGateway(logger)
	srcs := sources.NewService(gw, cfg, logger)

	svc := services{
		tool:    gw,
		sources: srcs,
		health:  sources.NewHealthChecker(sources.WithLogger(logger)),
		cache:   cache.NewService(gw, logger),
		feed:    localfeed.NewService(cfg, srcs, gw, logger),
		search:  search.NewService(gw, logger),
	}

	if configs, err := nugetconfig.NewService(logger); err != nil {
		logger.Warn("config file discovery unavailable", zap.Error(err))
	} else {
		svc.configs = configs
	}

	// A store that failed to load still serves the built-in searches.
	store, err := queries.NewStore(cfg.SearchesPath())
	if err != nil {
		logger.Warn("load saved searches, using built-ins only", zap.Error(err))
	}
	svc.saved = store
	return svc
}
