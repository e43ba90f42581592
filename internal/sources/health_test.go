// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/monadic/nugman/internal/nuget"
)

func TestCheck_DisabledSourceIsNeverProbed(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	h := NewHealthChecker(WithHTTPClient(srv.Client()))
	result := h.Check(context.Background(), nuget.Source{Name: "off", URL: srv.URL, Enabled: false})

	assert.Equal(t, HealthResult{SourceName: "off", Status: nuget.HealthDisabled}, result)
	assert.Zero(t, hits.Load())
}

func TestCheck_LocalDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	h := NewHealthChecker()
	tests := []struct {
		name   string
		url    string
		status nuget.HealthStatus
		err    string
	}{
		{"directory", dir, nuget.HealthHealthy, ""},
		{"file", file, nuget.HealthUnhealthy, "Not a directory"},
		{"missing", filepath.Join(dir, "missing"), nuget.HealthUnhealthy, "Path not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := h.Check(context.Background(), nuget.Source{Name: tt.name, URL: tt.url, Enabled: true})
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.err, result.Error)
		})
	}
}

func TestCheck_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/ok/v3/index.json":
			w.WriteHeader(http.StatusOK)
		case "/auth/v3/index.json":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	h := NewHealthChecker(WithHTTPClient(srv.Client()))

	ok := h.Check(context.Background(), nuget.Source{Name: "ok", URL: srv.URL + "/ok/v3/index.json", Enabled: true})
	assert.Equal(t, nuget.HealthHealthy, ok.Status)
	assert.Empty(t, ok.Error)
	assert.Positive(t, ok.ResponseTime)

	auth := h.Check(context.Background(), nuget.Source{Name: "auth", URL: srv.URL + "/auth/v3/index.json", Enabled: true})
	assert.Equal(t, nuget.HealthUnhealthy, auth.Status)
	assert.Equal(t, "HTTP 401", auth.Error)

	missing := h.Check(context.Background(), nuget.Source{Name: "missing", URL: srv.URL + "/nope", Enabled: true})
	assert.Equal(t, "HTTP 404", missing.Error)
}

func TestCheck_RemoteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	h := NewHealthChecker(WithHTTPClient(srv.Client()), WithProbeTimeout(50*time.Millisecond))
	result := h.Check(context.Background(), nuget.Source{Name: "slow", URL: srv.URL, Enabled: true})

	assert.Equal(t, nuget.HealthUnhealthy, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestCheck_RemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	h := NewHealthChecker(WithHTTPClient(&http.Client{}))
	result := h.Check(context.Background(), nuget.Source{Name: "down", URL: url, Enabled: true})

	assert.Equal(t, nuget.HealthUnhealthy, result.Status)
	assert.Contains(t, result.Error, "connection refused")
}

func TestCheckAll_KeepsInputOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	srcs := []nuget.Source{
		{Name: "off", URL: "https://api.nuget.org/v3/index.json", Enabled: false},
		{Name: "local", URL: dir, Enabled: true},
		{Name: "gone", URL: filepath.Join(dir, "gone"), Enabled: true},
		{Name: "off2", URL: dir, Enabled: false},
	}

	results := NewHealthChecker().CheckAll(context.Background(), srcs)
	require.Len(t, results, 4)

	assert.Equal(t, "off", results[0].SourceName)
	assert.Equal(t, nuget.HealthDisabled, results[0].Status)
	assert.Equal(t, nuget.HealthHealthy, results[1].Status)
	assert.Equal(t, "Path not found", results[2].Error)
	assert.Equal(t, nuget.HealthDisabled, results[3].Status)
}

func TestCheckAll_Empty(t *testing.T) {
	assert.Empty(t, NewHealthChecker().CheckAll(context.Background(), nil))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://api.nuget.org/v3/index.json"))
	assert.True(t, IsRemote("HTTP://legacy"))
	assert.False(t, IsRemote("/srv/feed"))
	assert.False(t, IsRemote(`C:\feed`))
	assert.False(t, IsRemote("ftp://x"))
}
