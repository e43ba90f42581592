// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package clierr provides error classification and user-friendly error formatting for the TUI.
// It helps distinguish between different error types and provides actionable hints.
package clierr

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"

	"github.com/monadic/nugman/internal/dotnet"
)

// Error types shown to the user.
const (
	TypeToolNotFound = "tool_not_found" // dotnet is not installed or not on PATH
	TypeToolFailed   = "tool_failed"    // dotnet exited non-zero
	TypePermission   = "permission"     // EACCES and friends
	TypeNotFound     = "not_found"      // missing file or directory
	TypeCorrupted    = "corrupted"      // unreadable package archive
	TypeManifest     = "manifest"       // malformed or missing .nuspec
	TypeNetwork      = "network"        // connection/network errors
	TypeInternal     = "internal"       // anything else
)

// InstallHint tells the user how to get the dotnet CLI.
const InstallHint = "Install the .NET SDK from https://dotnet.microsoft.com/download and make sure 'dotnet' is on your PATH."

// IsToolNotFound reports whether the dotnet executable could not be started.
func IsToolNotFound(err error) bool {
	return err != nil && errors.Is(err, dotnet.ErrToolNotFound)
}

// IsPermission checks if the error is a filesystem permission error.
func IsPermission(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	return isPermissionMessage(strings.ToLower(err.Error()))
}

func isPermissionMessage(msg string) bool {
	return strings.Contains(msg, "eacces") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "access is denied") ||
		strings.Contains(msg, "operation not permitted")
}

func isNotFoundMessage(msg string) bool {
	return strings.Contains(msg, "enoent") ||
		strings.Contains(msg, "no such file or directory") ||
		strings.Contains(msg, "cannot find the path") ||
		strings.Contains(msg, "not found")
}

func isCorruptedMessage(msg string) bool {
	return strings.Contains(msg, "corrupted") ||
		strings.Contains(msg, "not a valid zip") ||
		strings.Contains(msg, "invalid zip") ||
		strings.Contains(msg, "bad nupkg")
}

func isManifestMessage(msg string) bool {
	return strings.Contains(msg, "nuspec")
}

func isNetworkMessage(msg string) bool {
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "context deadline exceeded")
}

// ClassifyError determines the type of error for appropriate handling.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if IsToolNotFound(err) {
		return TypeToolNotFound
	}
	if IsPermission(err) {
		return TypePermission
	}
	if errors.Is(err, fs.ErrNotExist) {
		return TypeNotFound
	}
	if t := ClassifyMessage(err.Error()); t != TypeInternal {
		return t
	}
	var exitErr *dotnet.ExitError
	if errors.As(err, &exitErr) {
		return TypeToolFailed
	}
	return TypeInternal
}

// ClassifyMessage classifies a plain error message. Service results that only
// carry text (clear results, add results) go through here.
func ClassifyMessage(message string) string {
	msg := strings.ToLower(message)
	switch {
	case msg == "":
		return ""
	case isPermissionMessage(msg):
		return TypePermission
	case isCorruptedMessage(msg):
		return TypeCorrupted
	case isManifestMessage(msg):
		return TypeManifest
	case isNotFoundMessage(msg):
		return TypeNotFound
	case isNetworkMessage(msg):
		return TypeNetwork
	default:
		return TypeInternal
	}
}

// Guidance returns a short hint for an error message, or "" when there is nothing useful to add.
func Guidance(message string) string {
	return guidanceFor(ClassifyMessage(message), runtime.GOOS)
}

func guidanceFor(errType, goos string) string {
	switch errType {
	case TypeToolNotFound:
		return InstallHint
	case TypePermission:
		if goos == "windows" {
			return "Try running as Administrator, or check folder permissions."
		}
		return "Try running with sudo, or check folder permissions (chmod/chown)."
	case TypeNotFound:
		return "The file or directory does not exist. Check the path and try again."
	case TypeCorrupted:
		return "The .nupkg file may be corrupted. Try re-downloading or re-building it."
	case TypeManifest:
		return "The package may be malformed. Ensure it contains a valid .nuspec file."
	case TypeNetwork:
		return "Check your network connection and the source URL."
	default:
		return ""
	}
}

// Pretty formats an error with a user-friendly message and actionable hints.
func Pretty(err error) string {
	if err == nil {
		return ""
	}

	errType := ClassifyError(err)
	baseMsg := err.Error()

	switch errType {
	case TypeToolNotFound:
		return fmt.Sprintf("dotnet CLI not found on PATH\n\nHint: %s", guidanceFor(errType, runtime.GOOS))
	case TypeToolFailed:
		return fmt.Sprintf("dotnet failed: %s", baseMsg)
	case TypeInternal:
		return fmt.Sprintf("Error: %s", baseMsg)
	default:
		return fmt.Sprintf("Error: %s\n\nHint: %s", baseMsg, guidanceFor(errType, runtime.GOOS))
	}
}

// WrapWithHint wraps an error with an additional hint message. An empty hint
// returns err unchanged.
func WrapWithHint(err error, hint string) error {
	if err == nil || hint == "" {
		return err
	}
	return fmt.Errorf("%w\n\nHint: %s", err, hint)
}

// NothingFound returns a user-friendly message when a listing comes back empty.
// This is different from an error - it's a valid "empty" result.
func NothingFound(resource string) string {
	return fmt.Sprintf("No %s found.", resource)
}
