// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package sources manages NuGet package sources through `dotnet nuget ... source`
// and probes their health.
package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/appconfig"
	"github.com/monadic/nugman/internal/dotnet"
	"github.com/monadic/nugman/internal/nuget"
)

// Service lists and edits registered sources.
type Service struct {
	runner      dotnet.Runner
	managedName string
	logger      *zap.Logger
}

// NewService creates a source service. The source named cfg.LocalSourceName is
// reported as managed.
func NewService(runner dotnet.Runner, cfg appconfig.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runner:      runner,
		managedName: cfg.LocalSourceName,
		logger:      logger.Named("sources"),
	}
}

// Changes holds the edits for Update. Empty fields are left untouched.
type Changes struct {
	Name string
	URL  string
}

// IsEmpty reports whether there is nothing to update.
func (c Changes) IsEmpty() bool {
	return c.Name == "" && c.URL == ""
}

// Diff returns only the fields of the edited name and URL that differ from current.
func Diff(current nuget.Source, name, url string) Changes {
	var c Changes
	if name != "" && name != current.Name {
		c.Name = name
	}
	if url != "" && url != current.URL {
		c.URL = url
	}
	return c
}

// List returns the registered sources in the order dotnet reports them.
func (s *Service) List(ctx context.Context) ([]nuget.Source, error) {
	out, err := s.runner.Exec(ctx, []string{"nuget", "list", "source", "--format", "Detailed"}, dotnet.ExecOptions{})
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	sources := nuget.ParseSourceList(out)
	for i := range sources {
		if s.managedName != "" && sources[i].Name == s.managedName {
			sources[i].IsManaged = true
		}
	}
	s.logger.Debug("listed sources", zap.Int("count", len(sources)))
	return sources, nil
}

// Add registers a new source.
func (s *Service) Add(ctx context.Context, name, url string) error {
	if _, err := s.runner.Exec(ctx, []string{"nuget", "add", "source", url, "--name", name}, dotnet.ExecOptions{}); err != nil {
		return fmt.Errorf("add source %q: %w", name, err)
	}
	return nil
}

// Update renames a source and/or changes its URL. Only the non-empty fields of
// changes are passed on; an empty Changes is a no-op.
func (s *Service) Update(ctx context.Context, name string, changes Changes) error {
	if changes.IsEmpty() {
		return nil
	}

	args := []string{"nuget", "update", "source", name}
	if changes.URL != "" {
		args = append(args, "--source", changes.URL)
	}
	if changes.Name != "" {
		args = append(args, "--name", changes.Name)
	}
	if _, err := s.runner.Exec(ctx, args, dotnet.ExecOptions{}); err != nil {
		return fmt.Errorf("update source %q: %w", name, err)
	}
	return nil
}

// Enable enables a source.
func (s *Service) Enable(ctx context.Context, name string) error {
	return s.simple(ctx, "enable", name)
}

// Disable disables a source.
func (s *Service) Disable(ctx context.Context, name string) error {
	return s.simple(ctx, "disable", name)
}

// SetEnabled enables or disables a source.
func (s *Service) SetEnabled(ctx context.Context, name string, enabled bool) error {
	if enabled {
		return s.Enable(ctx, name)
	}
	return s.Disable(ctx, name)
}

// Remove unregisters a source.
func (s *Service) Remove(ctx context.Context, name string) error {
	return s.simple(ctx, "remove", name)
}

func (s *Service) simple(ctx context.Context, verb, name string) error {
	if _, err := s.runner.Exec(ctx, []string{"nuget", verb, "source", name}, dotnet.ExecOptions{}); err != nil {
		return fmt.Errorf("%s source %q: %w", verb, name, err)
	}
	return nil
}
