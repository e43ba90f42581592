// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package dotnet runs the dotnet CLI. Every nugman service talks to NuGet through
// a Runner from this package.
package dotnet

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrToolNotFound is returned when the dotnet executable cannot be started.
var ErrToolNotFound = errors.New("dotnet CLI not found on PATH")

// ExitError is returned when dotnet ran but exited non-zero.
type ExitError struct {
	Args   []string
	Code   int
	Stderr string
	Stdout string
}

func (e *ExitError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(e.Stdout); msg != "" {
		return msg
	}
	return fmt.Sprintf("dotnet %s exited with code %d", strings.Join(e.Args, " "), e.Code)
}

// waitDelay bounds how long a killed process may hold its output pipes open.
const waitDelay = 2 * time.Second

// ExecOptions tune a single invocation.
type ExecOptions struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Timeout bounds Exec. Zero means no timeout. Stream ignores it.
	Timeout time.Duration
}

// Runner is implemented by Gateway. Services depend on this interface so tests can
// substitute a fake.
type Runner interface {
	Exec(ctx context.Context, args []string, opts ExecOptions) (string, error)
	Stream(ctx context.Context, args []string, onStdout, onStderr func(line string), opts ExecOptions) (int, error)
}

// Info describes the dotnet installation.
type Info struct {
	Available bool
	Version   string
	Error     string
}

// Gateway runs the dotnet executable.
type Gateway struct {
	// path is the dotnet executable (default: "dotnet")
	path   string
	logger *zap.Logger
}

// NewGateway creates a gateway for the dotnet found on PATH.
func NewGateway(logger *zap.Logger) *Gateway {
	return NewGatewayWithPath("dotnet", logger)
}

// NewGatewayWithPath creates a gateway with a custom executable path.
func NewGatewayWithPath(path string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{path: path, logger: logger.Named("dotnet")}
}

// Exec runs dotnet with args and returns its full stdout.
func (g *Gateway) Exec(ctx context.Context, args []string, opts ExecOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.path, args...)
	cmd.Dir = opts.Dir
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	g.logger.Debug("exec",
		zap.Strings("args", args),
		zap.Int("exitCode", cmd.ProcessState.ExitCode()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))

	if err == nil {
		return stdout.String(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && opts.Timeout > 0 {
			return "", fmt.Errorf("dotnet %s timed out after %s: %w", strings.Join(args, " "), opts.Timeout, ctxErr)
		}
		return "", fmt.Errorf("dotnet %s: %w", strings.Join(args, " "), ctxErr)
	}
	return "", g.classify(args, err, stdout.String(), stderr.String())
}

// Stream runs dotnet with args, delivering each non-empty output line to the
// matching callback. Callbacks never run concurrently. A non-zero exit is
// reported through the returned code; the error is only set when the process
// could not be run at all.
func (g *Gateway) Stream(ctx context.Context, args []string, onStdout, onStderr func(line string), opts ExecOptions) (int, error) {
	cmd := exec.CommandContext(ctx, g.path, args...)
	cmd.Dir = opts.Dir
	cmd.WaitDelay = waitDelay

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		g.logger.Debug("stream start failed", zap.Strings("args", args), zap.Error(err))
		return -1, g.classify(args, err, "", "")
	}

	var mu sync.Mutex
	var pumps errgroup.Group
	pumps.Go(func() error { return pumpLines(stdoutPipe, &mu, onStdout) })
	pumps.Go(func() error { return pumpLines(stderrPipe, &mu, onStderr) })
	pumpErr := pumps.Wait()

	waitErr := cmd.Wait()
	code := cmd.ProcessState.ExitCode()
	g.logger.Debug("stream",
		zap.Strings("args", args),
		zap.Int("exitCode", code),
		zap.Duration("elapsed", time.Since(start)))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, fmt.Errorf("dotnet %s: %w", strings.Join(args, " "), ctxErr)
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return -1, fmt.Errorf("dotnet %s: %w", strings.Join(args, " "), waitErr)
	}
	if pumpErr != nil {
		g.logger.Warn("reading output", zap.Strings("args", args), zap.Error(pumpErr))
	}
	return code, nil
}

// pumpLines reads r line by line, handing every non-blank line to sink while holding mu.
// After a read error, such as a line over the buffer limit, the rest of r is
// discarded so the writer never blocks.
func pumpLines(r io.Reader, mu *sync.Mutex, sink func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || sink == nil {
			continue
		}
		mu.Lock()
		sink(line)
		mu.Unlock()
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

// CheckAvailability runs `dotnet --version`.
func (g *Gateway) CheckAvailability(ctx context.Context) Info {
	out, err := g.Exec(ctx, []string{"--version"}, ExecOptions{Timeout: 10 * time.Second})
	if err != nil {
		if errors.Is(err, ErrToolNotFound) {
			return Info{Error: ErrToolNotFound.Error()}
		}
		return Info{Error: err.Error()}
	}
	return Info{Available: true, Version: strings.TrimSpace(out)}
}

func (g *Gateway) classify(args []string, err error, stdout, stderr string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Args:   append([]string(nil), args...),
			Code:   exitErr.ExitCode(),
			Stderr: stderr,
			Stdout: stdout,
		}
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}
	return fmt.Errorf("dotnet %s: %w", strings.Join(args, " "), err)
}
