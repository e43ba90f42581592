// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package localfeed manages nugman's private folder feed: a directory of .nupkg
// files registered as a NuGet source.
package localfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/appconfig"
	"github.com/monadic/nugman/internal/dotnet"
	"github.com/monadic/nugman/internal/nuget"
)

// AddResultKind discriminates AddResult.
type AddResultKind string

const (
	AddSuccess   AddResultKind = "success"
	AddDuplicate AddResultKind = "duplicate"
	AddError     AddResultKind = "error"
)

// AddResult is the outcome of adding a package to the feed.
// Package is set for success and duplicate; Message for error.
type AddResult struct {
	Kind    AddResultKind
	Package nuget.LocalPackage
	Message string
}

func addFailed(format string, args ...any) AddResult {
	return AddResult{Kind: AddError, Message: fmt.Sprintf(format, args...)}
}

// SourceRegistry is the part of the source service the feed needs to register itself.
type SourceRegistry interface {
	List(ctx context.Context) ([]nuget.Source, error)
	Add(ctx context.Context, name, url string) error
}

// Service manages the local feed directory.
type Service struct {
	dir      string
	name     string
	registry SourceRegistry
	runner   dotnet.Runner
	logger   *zap.Logger
}

// NewService creates a feed service for cfg.LocalSourceDir.
func NewService(cfg appconfig.Config, registry SourceRegistry, runner dotnet.Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		dir:      cfg.LocalSourceDir,
		name:     cfg.LocalSourceName,
		registry: registry,
		runner:   runner,
		logger:   logger.Named("localfeed"),
	}
}

// Dir returns the feed directory.
func (s *Service) Dir() string { return s.dir }

// Name returns the source name the feed is registered under.
func (s *Service) Name() string { return s.name }

// Initialize creates the feed directory and registers it as a source unless a
// source with the feed's name already exists. It is safe to call repeatedly.
func (s *Service) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create local feed directory: %w", err)
	}

	existing, err := s.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("check local feed registration: %w", err)
	}
	for _, src := range existing {
		if src.Name == s.name {
			return nil
		}
	}

	if err := s.registry.Add(ctx, s.name, s.dir); err != nil {
		return fmt.Errorf("register local feed: %w", err)
	}
	s.logger.Info("registered local feed", zap.String("name", s.name), zap.String("dir", s.dir))
	return nil
}

// ListPackages returns the archives directly inside the feed directory, in
// directory order. A missing directory yields an empty list.
func (s *Service) ListPackages() ([]nuget.LocalPackage, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []nuget.LocalPackage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local feed: %w", err)
	}

	packages := []nuget.LocalPackage{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !nuget.IsPackageFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			s.logger.Warn("stat package", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		packages = append(packages, s.describe(e.Name(), nuget.IdentityFromFileName(e.Name()), info.Size()))
	}
	return packages, nil
}

func (s *Service) describe(fileName string, id nuget.PackageIdentity, size int64) nuget.LocalPackage {
	return nuget.LocalPackage{
		ID:            id.ID,
		Version:       id.Version,
		FileName:      fileName,
		FilePath:      filepath.Join(s.dir, fileName),
		FileSizeBytes: size,
	}
}

// RemovePackage deletes one archive.
func (s *Service) RemovePackage(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove package: %w", err)
	}
	return nil
}

// RemovePackages deletes every archive in paths. All removals are attempted;
// failures are joined into the returned error.
func (s *Service) RemovePackages(paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := s.RemovePackage(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CheckDuplicate returns the feed package with the given identity, if any.
// The id comparison ignores case.
func (s *Service) CheckDuplicate(id, version string) (nuget.LocalPackage, bool, error) {
	packages, err := s.ListPackages()
	if err != nil {
		return nuget.LocalPackage{}, false, err
	}
	for _, p := range packages {
		if strings.EqualFold(p.ID, id) && p.Version == version {
			return p, true, nil
		}
	}
	return nuget.LocalPackage{}, false, nil
}

// AddPackageFromFile copies an archive into the feed. An existing file with the
// same name is left alone and reported as a duplicate. The returned package
// carries the placeholder identity; read the manifest for the real one.
func (s *Service) AddPackageFromFile(path string) AddResult {
	fileName := filepath.Base(path)
	dest := filepath.Join(s.dir, fileName)

	if info, err := os.Stat(dest); err == nil {
		return s.duplicate(fileName, info.Size())
	}

	size, err := copyFile(path, dest)
	if errors.Is(err, fs.ErrExist) {
		return s.duplicate(fileName, size)
	}
	if err != nil {
		return addFailed("%v", err)
	}

	s.logger.Info("added package", zap.String("file", fileName))
	return AddResult{Kind: AddSuccess, Package: s.describe(fileName, nuget.PlaceholderIdentity(fileName), size)}
}

func (s *Service) duplicate(fileName string, size int64) AddResult {
	return AddResult{
		Kind:    AddDuplicate,
		Package: s.describe(fileName, nuget.PlaceholderIdentity(fileName), size),
		Message: fmt.Sprintf("%s already exists in the local source", fileName),
	}
}

// copyFile copies src to a new file dst. It fails with fs.ErrExist if dst exists.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, err
	}
	return n, nil
}

// AddPackageFromBuild runs `dotnet pack` for a project with the feed as output
// directory, streaming every output line to sink. The result is the lexically
// last archive created or rewritten by the build.
func (s *Service) AddPackageFromBuild(ctx context.Context, project string, sink func(line string)) AddResult {
	before := s.snapshot()

	args := []string{"pack", project, "-o", s.dir, "-c", "Release", "--nologo"}
	code, err := s.runner.Stream(ctx, args, sink, sink, dotnet.ExecOptions{})
	if err != nil {
		return addFailed("%v", err)
	}
	if code != 0 {
		return addFailed("dotnet pack exited with code %d", code)
	}

	after := s.snapshot()
	var produced []string
	for name, mod := range after {
		if prev, ok := before[name]; !ok || !prev.Equal(mod) {
			produced = append(produced, name)
		}
	}
	if len(produced) == 0 {
		return addFailed("No .nupkg files produced by build")
	}
	sort.Strings(produced)
	fileName := produced[len(produced)-1]

	info, err := os.Stat(filepath.Join(s.dir, fileName))
	if err != nil {
		return addFailed("%v", err)
	}
	s.logger.Info("built package", zap.String("project", project), zap.String("file", fileName))
	return AddResult{Kind: AddSuccess, Package: s.describe(fileName, nuget.IdentityFromFileName(fileName), info.Size())}
}

// snapshot maps archive names in the feed to their modification times.
func (s *Service) snapshot() map[string]time.Time {
	out := map[string]time.Time{}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || !nuget.IsPackageFile(e.Name()) {
			continue
		}
		if info, err := e.Info(); err == nil {
			out[e.Name()] = info.ModTime()
		}
	}
	return out
}
