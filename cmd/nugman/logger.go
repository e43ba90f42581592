// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// debugEnv enables debug-level session logs when set to "1".
const debugEnv = "NUGMAN_DEBUG"

// SessionLogger writes one JSON log file per TUI session
type SessionLogger struct {
	logger    *zap.Logger
	path      string
	startTime time.Time
}

// NewSessionLogger creates <dir>/nugman-<timestamp>.log and a zap logger writing to it
func NewSessionLogger(dir string, debug bool) (*SessionLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02-150405")
	logPath := filepath.Join(dir, fmt.Sprintf("nugman-%s.log", timestamp))

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{logPath}
	config.ErrorOutputPaths = []string{logPath}
	config.Sampling = nil
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	l := &SessionLogger{logger: logger, path: logPath, startTime: time.Now()}
	l.logger.Info("session started", zap.String("version", BuildTag), zap.String("goos", runtime.GOOS))
	return l, nil
}

// openSessionLogger never fails: without a writable log dir it returns a logger
// that discards everything.
func openSessionLogger(dir string) *SessionLogger {
	l, err := NewSessionLogger(dir, os.Getenv(debugEnv) == "1")
	if err != nil {
		return &SessionLogger{logger: zap.NewNop(), startTime: time.Now()}
	}
	return l
}

// Logger returns the underlying zap logger. Safe on nil.
func (l *SessionLogger) Logger() *zap.Logger {
	if l == nil || l.logger == nil {
		return zap.NewNop()
	}
	return l.logger
}

// Path is the log file path, empty when logging is disabled.
func (l *SessionLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close flushes the log and returns its path
func (l *SessionLogger) Close() string {
	if l == nil || l.logger == nil {
		return ""
	}
	l.logger.Info("session ended", zap.Duration("duration", time.Since(l.startTime).Round(time.Millisecond)))
	_ = l.logger.Sync()
	return l.path
}
