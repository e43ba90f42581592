// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package format renders sizes, counts and labels for the terminal UI.
package format

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// Bytes formats a byte count using 1024-based units with one decimal place:
// 0 -> "0 B", 500 -> "500 B", 1536 -> "1.5 KB".
func Bytes(n int64) string {
	if n == 0 {
		return "0 B"
	}

	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(byteUnits)-1 {
		size /= 1024
		unit++
	}

	if unit == 0 {
		return fmt.Sprintf("%d %s", n, byteUnits[0])
	}
	return fmt.Sprintf("%.1f %s", size, byteUnits[unit])
}

// Downloads abbreviates a download count: 1234 -> "1.2K", 5300000 -> "5.3M".
func Downloads(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

var printer = message.NewPrinter(language.English)

// Grouped formats n with thousands separators: 1234567 -> "1,234,567".
func Grouped(n int64) string {
	return printer.Sprintf("%d", n)
}

// Truncate shortens s to at most width terminal cells, ending in "..." when cut.
func Truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

// PadRight pads s with spaces to width terminal cells. Longer strings are kept intact.
func PadRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
