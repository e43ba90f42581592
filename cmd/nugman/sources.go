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

	"github.com/monadic/nugman/internal/clierr"
	"github.com/monadic/nugman/internal/nav"
	"github.com/monadic/nugman/internal/nuget"
	"github.com/monadic/nugman/internal/sources"
)

type (
	sourcesLoadedMsg struct {
		epochTag
		sources []nuget.Source
		err     error
	}

	healthCheckedMsg struct {
		epochTag
		results []sources.HealthResult
	}

	sourceChangedMsg struct {
		epochTag
		verb string
		name string
		err  error
	}
)

func loadSourcesCmd(tag epochTag, svc sourceService) tea.Cmd {
	return func() tea.Msg {
		srcs, err := svc.List(context.Background())
		return sourcesLoadedMsg{epochTag: tag, sources: srcs, err: err}
	}
}

func checkHealthCmd(tag epochTag, prober healthProber, srcs []nuget.Source) tea.Cmd {
	return func() tea.Msg {
		return healthCheckedMsg{epochTag: tag, results: prober.CheckAll(context.Background(), srcs)}
	}
}

func toggleSourceCmd(tag epochTag, svc sourceService, src nuget.Source) tea.Cmd {
	verb := "Enabled"
	if src.Enabled {
		verb = "Disabled"
	}
	return func() tea.Msg {
		err := svc.SetEnabled(context.Background(), src.Name, !src.Enabled)
		return sourceChangedMsg{epochTag: tag, verb: verb, name: src.Name, err: err}
	}
}

func removeSourceCmd(tag epochTag, svc sourceService, name string) tea.Cmd {
	return func() tea.Msg {
		err := svc.Remove(context.Background(), name)
		return sourceChangedMsg{epochTag: tag, verb: "Removed", name: name, err: err}
	}
}

type sourcesScreen struct {
	env *env
	tag epochTag

	list    listView
	sources []nuget.Source
	health  map[string]sources.HealthResult

	loading bool
	spinner spinner.Model
	status  statusLine
	confirm *confirmPrompt
}

func newSourcesScreen(e *env) *sourcesScreen {
	s := &sourcesScreen{
		env:     e,
		tag:     epochTag{e.nav.Epoch()},
		list:    newListView(e.keys, clierr.NothingFound("package sources")),
		health:  map[string]sources.HealthResult{},
		loading: true,
		spinner: newSpinner(),
	}
	s.setSources(e.nav.Sources())
	return s
}

func (s *sourcesScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, loadSourcesCmd(s.tag, s.env.svc.sources))
}

func (s *sourcesScreen) setSources(srcs []nuget.Source) {
	s.sources = srcs
	s.refreshItems()
}

func (s *sourcesScreen) refreshItems() {
	items := make([]listItem, len(s.sources))
	for i, src := range s.sources {
		items[i] = listItem{
			key:    src.Name,
			title:  src.Name,
			detail: src.URL,
			badge:  s.badges(src),
		}
	}
	s.list.SetItems(items)
}

func (s *sourcesScreen) badges(src nuget.Source) string {
	var parts []string
	if src.IsManaged {
		parts = append(parts, groupStyle.Render(iconManaged+" managed"))
	}
	if src.Enabled {
		parts = append(parts, statusOK.Render(iconOn+" enabled"))
	} else {
		parts = append(parts, dimStyle.Render(iconOff+" disabled"))
	}
	if src.ConfigLevel != nuget.LevelUser {
		parts = append(parts, dimStyle.Render("["+string(src.ConfigLevel)+"]"))
	}
	if h, ok := s.health[src.Name]; ok {
		parts = append(parts, healthBadge(h))
	}
	return strings.Join(parts, " ")
}

func healthBadge(h sources.HealthResult) string {
	switch h.Status {
	case nuget.HealthHealthy:
		text := iconOK + " healthy"
		if h.ResponseTime > 0 {
			text += fmt.Sprintf(" %dms", h.ResponseTime.Milliseconds())
		}
		return statusOK.Render(text)
	case nuget.HealthUnhealthy:
		return statusErr.Render(iconErr + " " + h.Error)
	case nuget.HealthChecking:
		return statusWarn.Render(iconChecking + " checking")
	default:
		return dimStyle.Render("-")
	}
}

func (s *sourcesScreen) selected() (nuget.Source, int, bool) {
	i := s.list.Index()
	if i < 0 || i >= len(s.sources) {
		return nuget.Source{}, i, false
	}
	return s.sources[i], i, true
}

func (s *sourcesScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.loading && !s.checking() {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case sourcesLoadedMsg:
		s.loading = false
		if msg.err != nil {
			s.env.logger.Warn("list sources", zap.Error(msg.err))
			s.status = errorStatus(msg.err)
			return s, nil
		}
		s.env.nav.SetSources(msg.sources)
		s.setSources(msg.sources)
		return s, nil

	case healthCheckedMsg:
		for _, r := range msg.results {
			s.health[r.SourceName] = r
		}
		healthy := 0
		for _, r := range msg.results {
			if r.Status == nuget.HealthHealthy {
				healthy++
			}
		}
		s.status = infoStatus("Health check: %d of %d sources healthy", healthy, len(msg.results))
		s.refreshItems()
		return s, nil

	case sourceChangedMsg:
		if msg.err != nil {
			s.env.logger.Warn("change source", zap.String("name", msg.name), zap.Error(msg.err))
			s.status = errorStatus(msg.err)
			return s, nil
		}
		s.status = successStatus("%s %s", msg.verb, msg.name)
		s.loading = true
		return s, tea.Batch(s.spinner.Tick, loadSourcesCmd(s.tag, s.env.svc.sources))

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *sourcesScreen) checking() bool {
	for _, h := range s.health {
		if h.Status == nuget.HealthChecking {
			return true
		}
	}
	return false
}

func (s *sourcesScreen) handleKey(msg tea.KeyMsg) (screen, tea.Cmd) {
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
	src, idx, ok := s.selected()
	switch {
	case key.Matches(msg, k.Add):
		return s, navigateTo(nav.SourceAdd{}, idx)

	case key.Matches(msg, k.Enter):
		if ok {
			return s, navigateTo(nav.SourceEdit{SourceName: src.Name}, idx)
		}

	case key.Matches(msg, k.Edit):
		if !ok {
			return s, nil
		}
		if !src.Editable() {
			s.status = warnStatus("%s is defined at %s level and cannot be edited here", src.Name, src.ConfigLevel)
			return s, nil
		}
		return s, navigateTo(nav.SourceEdit{SourceName: src.Name}, idx)

	case key.Matches(msg, k.Delete):
		if !ok {
			return s, nil
		}
		if src.IsManaged {
			s.status = warnStatus("%s is the local source managed by nugman and cannot be removed", src.Name)
			return s, nil
		}
		if !src.Deletable() {
			s.status = warnStatus("%s is defined at %s level and cannot be removed here", src.Name, src.ConfigLevel)
			return s, nil
		}
		s.confirm = &confirmPrompt{
			question: fmt.Sprintf("Remove source %q?", src.Name),
			action:   removeSourceCmd(s.tag, s.env.svc.sources, src.Name),
		}
		return s, nil

	case key.Matches(msg, k.Toggle):
		if !ok {
			return s, nil
		}
		if !src.Editable() {
			s.status = warnStatus("%s is defined at %s level and cannot be changed here", src.Name, src.ConfigLevel)
			return s, nil
		}
		return s, toggleSourceCmd(s.tag, s.env.svc.sources, src)

	case key.Matches(msg, k.Health):
		if len(s.sources) == 0 || s.checking() {
			return s, nil
		}
		for _, src := range s.sources {
			s.health[src.Name] = sources.HealthResult{SourceName: src.Name, Status: nuget.HealthChecking}
		}
		s.status = infoStatus("Checking %d sources...", len(s.sources))
		s.refreshItems()
		return s, tea.Batch(s.spinner.Tick, checkHealthCmd(s.tag, s.env.svc.health, s.sources))

	case key.Matches(msg, k.Refresh):
		s.loading = true
		s.status = statusLine{}
		return s, tea.Batch(s.spinner.Tick, loadSourcesCmd(s.tag, s.env.svc.sources))
	}

	var cmd tea.Cmd
	s.list, cmd = s.list.Update(msg)
	return s, cmd
}

func (s *sourcesScreen) View(width, height int) string {
	var b strings.Builder
	title := fmt.Sprintf("Package Sources (%d)", len(s.sources))
	b.WriteString(titleStyle.Render(title))
	if s.loading {
		b.WriteString("\n" + s.spinner.View() + " Loading sources...")
		height--
	}
	b.WriteString("\n")

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

func (s *sourcesScreen) Keys() []key.Binding {
	k := s.env.keys
	return []key.Binding{k.Up, k.Down, k.Add, k.Edit, k.Delete, k.Toggle, k.Health, k.Refresh, k.Filter}
}

func (s *sourcesScreen) Capturing() bool { return s.confirm != nil || s.list.Filtering() }

func (s *sourcesScreen) Cursor() int     { return s.list.Index() }
func (s *sourcesScreen) SetCursor(i int) { s.list.SetIndex(i) }
