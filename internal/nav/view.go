// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package nav holds the screen navigation state: the current view, the history
// stack and the collections shared between screens.
package nav

import "github.com/monadic/nugman/internal/nuget"

// View identifies a screen. The set of views is closed; each variant is a plain
// comparable value.
type View interface {
	view()
	// Title is the heading shown for the view.
	Title() string
}

type MainMenu struct{}

type Sources struct{}

type SourceAdd struct{}

type SourceEdit struct {
	SourceName string
}

type Cache struct{}

type CacheBrowse struct {
	CacheType nuget.CacheType
}

type LocalSource struct{}

type LocalSourceAdd struct{}

type PackageDetail struct {
	PackagePath string
}

type PackageSearch struct{}

// SearchResultDetail carries the hit to display. TotalDownloads is nil when
// the source did not report it.
type SearchResultDetail struct {
	PackageID      string
	SourceName     string
	LatestVersion  string
	TotalDownloads *int64
	Owners         string
}

type ConfigViewer struct{}

type ConfigFileDetail struct {
	FilePath string
}

func (MainMenu) view()           {}
func (Sources) view()            {}
func (SourceAdd) view()          {}
func (SourceEdit) view()         {}
func (Cache) view()              {}
func (CacheBrowse) view()        {}
func (LocalSource) view()        {}
func (LocalSourceAdd) view()     {}
func (PackageDetail) view()      {}
func (PackageSearch) view()      {}
func (SearchResultDetail) view() {}
func (ConfigViewer) view()       {}
func (ConfigFileDetail) view()   {}

func (MainMenu) Title() string             { return "nugman" }
func (Sources) Title() string              { return "Sources" }
func (SourceAdd) Title() string            { return "Add Source" }
func (v SourceEdit) Title() string         { return "Edit Source: " + v.SourceName }
func (Cache) Title() string                { return "Cache" }
func (v CacheBrowse) Title() string        { return "Cache: " + string(v.CacheType) }
func (LocalSource) Title() string          { return "Local Source" }
func (LocalSourceAdd) Title() string       { return "Add Package" }
func (PackageDetail) Title() string        { return "Package Detail" }
func (PackageSearch) Title() string        { return "Package Search" }
func (v SearchResultDetail) Title() string { return v.PackageID }
func (ConfigViewer) Title() string         { return "Config Files" }
func (ConfigFileDetail) Title() string     { return "Config File" }
