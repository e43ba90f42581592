// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package nuget

import (
	"regexp"
	"strings"
)

// sourceLinePattern matches "  1.  nuget.org [Enabled]" from
// `dotnet nuget list source --format Detailed`.
var sourceLinePattern = regexp.MustCompile(`^\s*\d+\.\s+(.+?)\s+\[(Enabled|Disabled)\]\s*$`)

// infoPrefixPattern matches the "info : " prefix dotnet puts on locals output.
var infoPrefixPattern = regexp.MustCompile(`^info\s*:\s*`)

// splitLines splits CLI output on newlines and drops carriage returns so that
// Windows and Unix output parse the same way.
func splitLines(output string) []string {
	lines := strings.Split(output, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// ParseSourceList extracts registered sources from the detailed source listing.
// Each "<n>. <name> [Enabled|Disabled]" line must be followed by a non-empty URL
// line; anything else is ignored. Parsed sources default to user level.
func ParseSourceList(output string) []Source {
	sources := []Source{}
	lines := splitLines(output)

	for i, line := range lines {
		match := sourceLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		if i+1 >= len(lines) {
			continue
		}
		url := strings.TrimSpace(lines[i+1])
		if url == "" {
			continue
		}
		sources = append(sources, Source{
			Name:        match[1],
			URL:         url,
			Enabled:     match[2] == "Enabled",
			ConfigLevel: LevelUser,
		})
	}

	return sources
}

// ParseCacheLocals extracts cache locations from `dotnet nuget locals all --list`.
// Lines naming an unknown cache type are dropped.
func ParseCacheLocals(output string) []CacheLocation {
	locations := []CacheLocation{}

	for _, line := range splitLines(output) {
		stripped := strings.TrimSpace(infoPrefixPattern.ReplaceAllString(line, ""))
		if stripped == "" {
			continue
		}

		typ, path, ok := strings.Cut(stripped, ": ")
		if !ok || !IsCacheType(typ) {
			continue
		}
		locations = append(locations, CacheLocation{
			Type: CacheType(typ),
			Path: path,
		})
	}

	return locations
}
