// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package search queries package sources through `dotnet package search`.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/dotnet"
)

// DefaultPageSize is the number of results requested per page.
const DefaultPageSize = 20

// Options narrow a search. Zero values are omitted from the command line.
type Options struct {
	Source     string
	Take       int
	Skip       int
	Prerelease bool
}

// Package is a single search hit.
type Package struct {
	ID            string `json:"id"`
	LatestVersion string `json:"latestVersion"`
	Description   string `json:"description"`
	// TotalDownloads is nil when the source does not report downloads.
	TotalDownloads *int64 `json:"totalDownloads,omitempty"`
	Owners         string `json:"owners,omitempty"`
}

// Result groups hits by the source that returned them.
type Result struct {
	SourceName string    `json:"sourceName"`
	Packages   []Package `json:"packages"`
}

type payload struct {
	Version      int      `json:"version"`
	Problems     []string `json:"problems"`
	SearchResult []Result `json:"searchResult"`
}

// Service runs searches.
type Service struct {
	runner dotnet.Runner
	logger *zap.Logger
}

// NewService creates a search service.
func NewService(runner dotnet.Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{runner: runner, logger: logger.Named("search")}
}

// Args returns the dotnet arguments for a search.
func Args(term string, opts Options) []string {
	args := []string{"package", "search", term, "--format", "json"}
	if opts.Source != "" {
		args = append(args, "--source", opts.Source)
	}
	if opts.Take > 0 {
		args = append(args, "--take", strconv.Itoa(opts.Take))
	}
	if opts.Skip > 0 {
		args = append(args, "--skip", strconv.Itoa(opts.Skip))
	}
	if opts.Prerelease {
		args = append(args, "--prerelease")
	}
	return args
}

// Search returns results per source in the order dotnet reports them.
func (s *Service) Search(ctx context.Context, term string, opts Options) ([]Result, error) {
	out, err := s.runner.Exec(ctx, Args(term, opts), dotnet.ExecOptions{})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}

	var p payload
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	for _, problem := range p.Problems {
		s.logger.Warn("search problem", zap.String("term", term), zap.String("problem", problem))
	}

	results := make([]Result, 0, len(p.SearchResult))
	for _, r := range p.SearchResult {
		if r.Packages == nil {
			r.Packages = []Package{}
		}
		results = append(results, r)
	}
	return results, nil
}

// Count returns the total number of hits across sources.
func Count(results []Result) int {
	n := 0
	for _, r := range results {
		n += len(r.Packages)
	}
	return n
}
