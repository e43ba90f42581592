// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package cache lists, sizes and clears NuGet's local caches.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/monadic/nugman/internal/dotnet"
	"github.com/monadic/nugman/internal/nuget"
)

// ClearResult is the outcome of a clear operation.
type ClearResult struct {
	Success bool
	// Message is the trimmed tool output on success or the failure text otherwise.
	Message string
}

// Service wraps `dotnet nuget locals`.
type Service struct {
	runner dotnet.Runner
	logger *zap.Logger
}

// NewService creates a cache service.
func NewService(runner dotnet.Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{runner: runner, logger: logger.Named("cache")}
}

// ListLocations returns every known cache with its disk usage. Sizes are computed
// concurrently; a directory that cannot be walked counts as zero bytes.
func (s *Service) ListLocations(ctx context.Context) ([]nuget.CacheLocation, error) {
	out, err := s.runner.Exec(ctx, []string{"nuget", "locals", "all", "--list", "--force-english-output"}, dotnet.ExecOptions{})
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}

	locations := nuget.ParseCacheLocals(out)

	var g errgroup.Group
	for i := range locations {
		i := i
		g.Go(func() error {
			locations[i].DiskUsageBytes = s.diskUsage(locations[i].Path)
			return nil
		})
	}
	_ = g.Wait()

	return locations, nil
}

// diskUsage sums the size of all regular files under dir. Entries below dir
// that cannot be read count as zero bytes; only a failure on dir itself
// yields zero for the whole location.
func (s *Service) diskUsage(dir string) int64 {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			s.logger.Debug("disk usage: skip entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				s.logger.Debug("disk usage: stat", zap.String("path", path), zap.Error(err))
				return nil
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("disk usage", zap.String("path", dir), zap.Error(err))
		}
		return 0
	}
	return total
}

// ListContents returns the immediate children of dir. Directories report a size of zero.
func (s *Service) ListContents(dir string) ([]nuget.CacheEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read cache directory: %w", err)
	}

	result := make([]nuget.CacheEntry, 0, len(entries))
	for _, e := range entries {
		entry := nuget.CacheEntry{
			Name:  e.Name(),
			Path:  filepath.Join(dir, e.Name()),
			IsDir: e.IsDir(),
		}
		if !e.IsDir() {
			if info, err := e.Info(); err == nil {
				entry.SizeBytes = info.Size()
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

// Clear clears a single cache. Success means the tool exited zero.
func (s *Service) Clear(ctx context.Context, t nuget.CacheType) ClearResult {
	return s.clear(ctx, string(t))
}

// ClearAll clears every cache.
func (s *Service) ClearAll(ctx context.Context) ClearResult {
	return s.clear(ctx, "all")
}

func (s *Service) clear(ctx context.Context, target string) ClearResult {
	out, err := s.runner.Exec(ctx, []string{"nuget", "locals", target, "--clear"}, dotnet.ExecOptions{})
	if err != nil {
		s.logger.Warn("clear failed", zap.String("cache", target), zap.Error(err))
		return ClearResult{Message: strings.TrimSpace(err.Error())}
	}
	s.logger.Info("cleared", zap.String("cache", target))
	return ClearResult{Success: true, Message: strings.TrimSpace(out)}
}
