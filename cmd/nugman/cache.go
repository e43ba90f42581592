// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/cache"
	"github.com/monadic/nugman/internal/clierr"
	"github.com/monadic/nugman/internal/format"
	"github.com/monadic/nugman/internal/nav"
	"github.com/monadic/nugman/internal/nuget"
)

type (
	cacheLoadedMsg struct {
		epochTag
		locations []nuget.CacheLocation
		err       error
	}

	cacheClearedMsg struct {
		epochTag
		target string
		result cache.ClearResult
	}

	cacheEntriesMsg struct {
		epochTag
		entries []nuget.CacheEntry
		err     error
	}
)

func loadCacheCmd(tag epochTag, svc cacheService) tea.Cmd {
	return func() tea.Msg {
		locs, err := svc.ListLocations(context.Background())
		return cacheLoadedMsg{epochTag: tag, locations: locs, err: err}
	}
}

// clearCacheCmd clears one cache, or all of them when t is empty.
func clearCacheCmd(tag epochTag, svc cacheService, t nuget.CacheType) tea.Cmd {
	return func() tea.Msg {
		if t == "" {
			return cacheClearedMsg{epochTag: tag, target: "all caches", result: svc.ClearAll(context.Background())}
		}
		return cacheClearedMsg{epochTag: tag, target: string(t), result: svc.Clear(context.Background(), t)}
	}
}

type cacheScreen struct {
	env *env
	tag epochTag

	list      listView
	locations []nuget.CacheLocation

	loading  bool
	clearing bool
	spinner  spinner.Model
	status   statusLine
	confirm  *confirmPrompt
}

func newCacheScreen(e *env) *cacheScreen {
	s := &cacheScreen{
		env:     e,
		tag:     epochTag{e.nav.Epoch()},
		list:    newListView(e.keys, clierr.NothingFound("cache locations")),
		loading: true,
		spinner: newSpinner(),
	}
	s.setLocations(e.nav.CacheLocations())
	return s
}

func (s *cacheScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, loadCacheCmd(s.tag, s.env.svc.cache))
}

func (s *cacheScreen) setLocations(locs []nuget.CacheLocation) {
	s.locations = locs
	items := make([]listItem, len(locs))
	for i, loc := range locs {
		items[i] = listItem{
			key:    string(loc.Type),
			title:  string(loc.Type),
			detail: loc.Path,
			badge:  valueStyle.Render(format.PadRight(format.Bytes(loc.DiskUsageBytes), 9)),
		}
	}
	s.list.SetItems(items)
}

func (s *cacheScreen) total() int64 {
	var n int64
	for _, loc := range s.locations {
		n += loc.DiskUsageBytes
	}
	return n
}

func (s *cacheScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.loading && !s.clearing {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case cacheLoadedMsg:
		s.loading = false
		if msg.err != nil {
			s.env.logger.Warn("list cache locations", zap.Error(msg.err))
			s.status = errorStatus(msg.err)
			return s, nil
		}
		s.env.nav.SetCacheLocations(msg.locations)
		s.setLocations(msg.locations)
		return s, nil

	case clearStartedMsg:
		s.clearing = true
		s.status = statusLine{}
		return s, tea.Batch(s.spinner.Tick, msg.next)

	case cacheClearedMsg:
		s.clearing = false
		if !msg.result.Success {
			s.env.logger.Warn("clear cache", zap.String("target", msg.target), zap.String("message", msg.result.Message))
			s.status = failureStatus(fmt.Sprintf("Failed to clear %s: %s", msg.target, msg.result.Message))
			return s, nil
		}
		s.status = successStatus("Cleared %s", msg.target)
		if msg.result.Message != "" {
			s.status.text += "\n" + dimStyle.Render(msg.result.Message)
		}
		s.loading = true
		return s, tea.Batch(s.spinner.Tick, loadCacheCmd(s.tag, s.env.svc.cache))

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *cacheScreen) handleKey(msg tea.KeyMsg) (screen, tea.Cmd) {
	if s.confirm != nil {
		done, cmd := s.confirm.resolve(msg)
		if done {
			s.confirm = nil
		}
		return s, cmd
	}
	if s.list.Filtering() {
		var cmd tea.Cmd
		s.list, cmd = s.list.Update(msg)
		return s, cmd
	}

	k := s.env.keys
	idx := s.list.Index()
	switch {
	case key.Matches(msg, k.Enter):
		if idx >= 0 {
			return s, navigateTo(nav.CacheBrowse{CacheType: s.locations[idx].Type}, idx)
		}
		return s, nil

	case key.Matches(msg, k.Clear):
		if idx < 0 || s.clearing {
			return s, nil
		}
		t := s.locations[idx].Type
		s.confirm = &confirmPrompt{
			question: fmt.Sprintf("Clear the %s cache?", t),
			action:   s.startClear(t),
		}
		return s, nil

	case key.Matches(msg, k.ClearAll):
		if s.clearing {
			return s, nil
		}
		s.confirm = &confirmPrompt{
			question: "Clear ALL NuGet caches?",
			action:   s.startClear(""),
		}
		return s, nil

	case key.Matches(msg, k.Refresh):
		s.loading = true
		s.status = statusLine{}
		return s, tea.Batch(s.spinner.Tick, loadCacheCmd(s.tag, s.env.svc.cache))
	}

	var cmd tea.Cmd
	s.list, cmd = s.list.Update(msg)
	return s, cmd
}

// startClear returns the command run once the clear is confirmed.
func (s *cacheScreen) startClear(t nuget.CacheType) tea.Cmd {
	run := clearCacheCmd(s.tag, s.env.svc.cache, t)
	return func() tea.Msg {
		return clearStartedMsg{next: run}
	}
}

// clearStartedMsg flips the screen into its clearing state before the clear runs.
type clearStartedMsg struct {
	next tea.Cmd
}

func (s *cacheScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("NuGet Caches (%s total)", format.Bytes(s.total()))))
	b.WriteString("\n")
	switch {
	case s.clearing:
		b.WriteString(s.spinner.View() + " Clearing...\n")
		height--
	case s.loading:
		b.WriteString(s.spinner.View() + " Measuring cache sizes...\n")
		height--
	}

	footer := ""
	if s.confirm != nil {
		footer = s.confirm.View()
	} else if s.status.kind != statusNone {
		footer = s.status.View()
	}
	listHeight := height - 2
	if footer != "" {
		listHeight -= strings.Count(footer, "\n") + 2
	}
	b.WriteString(s.list.View(width, listHeight))
	if footer != "" {
		b.WriteString("\n\n" + footer)
	}
	return b.String()
}

func (s *cacheScreen) Keys() []key.Binding {
	k := s.env.keys
	browse := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "browse"))
	return []key.Binding{k.Up, k.Down, browse, k.Clear, k.ClearAll, k.Refresh, k.Filter}
}

func (s *cacheScreen) Capturing() bool { return s.confirm != nil || s.list.Filtering() }

func (s *cacheScreen) Cursor() int     { return s.list.Index() }
func (s *cacheScreen) SetCursor(i int) { s.list.SetIndex(i) }

type cacheBrowseScreen struct {
	env *env
	tag epochTag

	cacheType nuget.CacheType
	location  nuget.CacheLocation
	found     bool

	list    listView
	entries []nuget.CacheEntry
	loading bool
	spinner spinner.Model
	status  statusLine
}

func newCacheBrowseScreen(e *env, t nuget.CacheType) *cacheBrowseScreen {
	s := &cacheBrowseScreen{
		env:       e,
		tag:       epochTag{e.nav.Epoch()},
		cacheType: t,
		list:      newListView(e.keys, "This cache is empty."),
		spinner:   newSpinner(),
	}
	for _, loc := range e.nav.CacheLocations() {
		if loc.Type == t {
			s.location, s.found = loc, true
			break
		}
	}
	return s
}

func (s *cacheBrowseScreen) Init() tea.Cmd {
	if !s.found {
		s.status = errorStatus(fmt.Errorf("cache location %s is unknown", s.cacheType))
		return nil
	}
	s.loading = true
	svc, dir, tag := s.env.svc.cache, s.location.Path, s.tag
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		entries, err := svc.ListContents(dir)
		return cacheEntriesMsg{epochTag: tag, entries: entries, err: err}
	})
}

func (s *cacheBrowseScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.loading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case cacheEntriesMsg:
		s.loading = false
		if msg.err != nil {
			s.status = errorStatus(msg.err)
			return s, nil
		}
		s.entries = msg.entries
		items := make([]listItem, len(msg.entries))
		for i, entry := range msg.entries {
			badge := valueStyle.Render(format.Bytes(entry.SizeBytes))
			icon := iconPackage
			if entry.IsDir {
				badge = groupStyle.Render("DIR")
				icon = iconFolder
			}
			items[i] = listItem{key: entry.Path, title: icon + " " + entry.Name, badge: badge}
		}
		s.list.SetItems(items)
		return s, nil

	case tea.KeyMsg:
		if s.list.Filtering() {
			var cmd tea.Cmd
			s.list, cmd = s.list.Update(msg)
			return s, cmd
		}
		if key.Matches(msg, s.env.keys.Enter) || key.Matches(msg, s.env.keys.Inspect) {
			idx := s.list.Index()
			if idx < 0 {
				return s, nil
			}
			entry := s.entries[idx]
			if entry.IsDir || !nuget.IsPackageFile(entry.Name) {
				s.status = infoStatus("Only .nupkg files can be inspected")
				return s, nil
			}
			return s, navigateTo(nav.PackageDetail{PackagePath: entry.Path}, idx)
		}
		var cmd tea.Cmd
		s.list, cmd = s.list.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *cacheBrowseScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Cache: %s (%d entries)", s.cacheType, len(s.entries))))
	b.WriteString("\n")
	if s.found {
		b.WriteString(dimStyle.Render(s.location.Path) + "\n")
		height--
	}
	if s.loading {
		b.WriteString(s.spinner.View() + " Reading cache...\n")
		height--
	}
	listHeight := height - 2
	if s.status.kind != statusNone {
		listHeight -= strings.Count(s.status.text, "\n") + 2
	}
	b.WriteString(s.list.View(width, listHeight))
	if s.status.kind != statusNone {
		b.WriteString("\n\n" + s.status.View())
	}
	return b.String()
}

func (s *cacheBrowseScreen) Keys() []key.Binding {
	k := s.env.keys
	return []key.Binding{k.Up, k.Down, k.Inspect, k.Filter}
}

func (s *cacheBrowseScreen) Capturing() bool { return s.list.Filtering() }

func (s *cacheBrowseScreen) Cursor() int     { return s.list.Index() }
func (s *cacheBrowseScreen) SetCursor(i int) { s.list.SetIndex(i) }
