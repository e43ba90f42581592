// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/dnscache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/monadic/nugman/internal/nuget"
)

// DefaultProbeTimeout bounds a single remote health probe.
const DefaultProbeTimeout = 5 * time.Second

// HealthResult is the outcome of probing one source.
type HealthResult struct {
	SourceName string
	Status     nuget.HealthStatus
	// ResponseTime is zero when no probe was made.
	ResponseTime time.Duration
	Error        string
}

// HealthChecker probes sources for reachability.
type HealthChecker struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// HealthOption configures a HealthChecker.
type HealthOption func(*HealthChecker)

// WithHTTPClient replaces the HTTP client used for remote probes.
func WithHTTPClient(c *http.Client) HealthOption {
	return func(h *HealthChecker) {
		h.client = c
	}
}

// WithProbeTimeout sets the per-probe timeout for remote sources.
func WithProbeTimeout(d time.Duration) HealthOption {
	return func(h *HealthChecker) {
		h.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) HealthOption {
	return func(h *HealthChecker) {
		h.logger = l.Named("health")
	}
}

// NewHealthChecker creates a checker whose default client resolves hosts through
// a shared DNS cache.
func NewHealthChecker(opts ...HealthOption) *HealthChecker {
	h := &HealthChecker{
		timeout: DefaultProbeTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = newCachingClient()
	}
	return h
}

func newCachingClient() *http.Client {
	resolver := &dnscache.Resolver{}
	dialer := &net.Dialer{
		Timeout:   DefaultProbeTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
			},
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: DefaultProbeTimeout,
		},
	}
}

// IsRemote reports whether a source URL is probed over HTTP.
func IsRemote(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Check probes a single source. Disabled sources are never probed.
func (h *HealthChecker) Check(ctx context.Context, src nuget.Source) HealthResult {
	if !src.Enabled {
		return HealthResult{SourceName: src.Name, Status: nuget.HealthDisabled}
	}
	if !IsRemote(src.URL) {
		return h.checkLocal(src)
	}
	return h.checkRemote(ctx, src)
}

func (h *HealthChecker) checkLocal(src nuget.Source) HealthResult {
	start := time.Now()
	info, err := os.Stat(src.URL)
	result := HealthResult{SourceName: src.Name, ResponseTime: time.Since(start)}

	switch {
	case err == nil && info.IsDir():
		result.Status = nuget.HealthHealthy
	case err == nil:
		result.Status = nuget.HealthUnhealthy
		result.Error = "Not a directory"
	case errors.Is(err, fs.ErrNotExist):
		result.Status = nuget.HealthUnhealthy
		result.Error = "Path not found"
	default:
		result.Status = nuget.HealthUnhealthy
		result.Error = err.Error()
	}
	return result
}

func (h *HealthChecker) checkRemote(ctx context.Context, src nuget.Source) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	result := HealthResult{SourceName: src.Name}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, src.URL, nil)
	if err != nil {
		result.Status = nuget.HealthUnhealthy
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		h.logger.Debug("probe failed", zap.String("source", src.Name), zap.Error(err))
		result.Status = nuget.HealthUnhealthy
		result.Error = err.Error()
		return result
	}
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Status = nuget.HealthHealthy
	} else {
		result.Status = nuget.HealthUnhealthy
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return result
}

// CheckAll probes every source concurrently and returns the results in input order.
// A failing probe does not affect the others.
func (h *HealthChecker) CheckAll(ctx context.Context, srcs []nuget.Source) []HealthResult {
	results := make([]HealthResult, len(srcs))

	var g errgroup.Group
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			results[i] = h.Check(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
