// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package dotnettest provides a scriptable dotnet.Runner for tests.
package dotnettest

import (
	"context"
	"strings"
	"sync"

	"github.com/monadic/nugman/internal/dotnet"
)

// Response is what the fake returns for one command line.
type Response struct {
	Stdout string
	Err    error
	// Lines are streamed to onStdout by Stream.
	Lines []string
	// ErrLines are streamed to onStderr by Stream.
	ErrLines []string
	// Code is the exit code returned by Stream.
	Code int
	// Run is called before Stream returns, to let tests create files on "build".
	Run func()
}

// Runner records every invocation and answers from a table keyed by the joined args.
type Runner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     [][]string
	opts      []dotnet.ExecOptions
}

// NewRunner creates an empty fake. Unknown command lines succeed with no output.
func NewRunner() *Runner {
	return &Runner{responses: map[string]Response{}}
}

// On registers the response for a command line such as "nuget list source --format Detailed".
func (r *Runner) On(cmdline string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[cmdline] = resp
	return r
}

// Calls returns the recorded argument lists in call order.
func (r *Runner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = append([]string(nil), c...)
	}
	return out
}

// CallLines returns the recorded invocations as joined command lines.
func (r *Runner) CallLines() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = strings.Join(c, " ")
	}
	return out
}

// Options returns the ExecOptions of every recorded call.
func (r *Runner) Options() []dotnet.ExecOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dotnet.ExecOptions(nil), r.opts...)
}

func (r *Runner) record(args []string, opts dotnet.ExecOptions) Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string(nil), args...))
	r.opts = append(r.opts, opts)
	return r.responses[strings.Join(args, " ")]
}

// Exec implements dotnet.Runner.
func (r *Runner) Exec(ctx context.Context, args []string, opts dotnet.ExecOptions) (string, error) {
	resp := r.record(args, opts)
	if resp.Run != nil {
		resp.Run()
	}
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Stdout, nil
}

// Stream implements dotnet.Runner.
func (r *Runner) Stream(ctx context.Context, args []string, onStdout, onStderr func(string), opts dotnet.ExecOptions) (int, error) {
	resp := r.record(args, opts)
	for _, l := range resp.Lines {
		if onStdout != nil {
			onStdout(l)
		}
	}
	for _, l := range resp.ErrLines {
		if onStderr != nil {
			onStderr(l)
		}
	}
	if resp.Run != nil {
		resp.Run()
	}
	if resp.Err != nil {
		return -1, resp.Err
	}
	return resp.Code, nil
}

var _ dotnet.Runner = (*Runner)(nil)
