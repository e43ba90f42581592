// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/clierr"
	"github.com/monadic/nugman/internal/format"
	"github.com/monadic/nugman/internal/nav"
	"github.com/monadic/nugman/internal/nugetconfig"
)

type (
	configFilesMsg struct {
		epochTag
		files []nugetconfig.File
	}

	configContentsMsg struct {
		epochTag
		contents nugetconfig.Contents
		err      error
	}
)

type configListScreen struct {
	env *env
	tag epochTag

	list      listView
	files     []nugetconfig.File
	overrides []nugetconfig.Override
	loaded    bool

	showOverrides bool
}

func newConfigListScreen(e *env) *configListScreen {
	return &configListScreen{
		env:  e,
		tag:  epochTag{e.nav.Epoch()},
		list: newListView(e.keys, clierr.NothingFound("NuGet config files")),
	}
}

func (s *configListScreen) Init() tea.Cmd {
	if s.env.svc.configs == nil {
		s.loaded = true
		return nil
	}
	svc, tag := s.env.svc.configs, s.tag
	return func() tea.Msg {
		return configFilesMsg{epochTag: tag, files: svc.ListConfigFiles()}
	}
}

func (s *configListScreen) setFiles(files []nugetconfig.File) {
	s.files = files
	s.overrides = nugetconfig.ComputeOverrides(files)
	items := make([]listItem, len(files))
	for i, f := range files {
		badge := groupStyle.Render(format.PadRight(string(f.Level), 8))
		if f.Readable {
			badge += " " + statusOK.Render(iconOK)
		} else {
			badge += " " + statusErr.Render(iconErr+" unreadable")
		}
		items[i] = listItem{key: f.Path, title: f.Path, badge: badge}
	}
	s.list.SetItems(items)
}

func (s *configListScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case configFilesMsg:
		s.loaded = true
		for _, f := range msg.files {
			if !f.Readable {
				s.env.logger.Warn("unreadable config file", zap.String("path", f.Path), zap.String("error", f.Error))
			}
		}
		s.setFiles(msg.files)
		return s, nil

	case tea.KeyMsg:
		if s.list.Filtering() {
			var cmd tea.Cmd
			s.list, cmd = s.list.Update(msg)
			return s, cmd
		}
		k := s.env.keys
		switch {
		case key.Matches(msg, k.Overrides):
			s.showOverrides = !s.showOverrides
			return s, nil
		case key.Matches(msg, k.Refresh):
			return s, s.Init()
		case key.Matches(msg, k.Enter):
			idx := s.list.Index()
			if idx < 0 {
				return s, nil
			}
			return s, navigateTo(nav.ConfigFileDetail{FilePath: s.files[idx].Path}, idx)
		}
		var cmd tea.Cmd
		s.list, cmd = s.list.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *configListScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("NuGet Config Files"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Lowest precedence first. Later files override earlier ones."))
	b.WriteString("\n\n")
	height -= 4

	if !s.loaded {
		b.WriteString(dimStyle.Render("Looking for config files..."))
		return b.String()
	}

	if !s.showOverrides {
		b.WriteString(s.list.View(width, height))
		return b.String()
	}

	listWidth := width/2 - 2
	panelWidth := width - listWidth - 4
	left := activePaneStyle.Width(listWidth).Render(s.list.View(listWidth-2, height-2))
	right := paneStyle.Width(panelWidth).Render(s.renderOverrides(panelWidth - 2))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	return b.String()
}

func (s *configListScreen) renderOverrides(width int) string {
	if len(s.overrides) == 0 {
		return groupStyle.Render("Overrides") + "\n" + dimStyle.Render("No setting is defined in more than one file.")
	}
	lines := []string{groupStyle.Render(fmt.Sprintf("Overrides (%d)", len(s.overrides)))}
	wrap := lipgloss.NewStyle().Width(max(width, 20))
	for _, o := range s.overrides {
		lines = append(lines,
			activeStyle.Render(o.Section+"/"+o.Setting),
			wrap.Render(fmt.Sprintf("  %s %s", valueStyle.Render(o.Value), dimStyle.Render("in "+o.OverriddenBy))),
			wrap.Render(fmt.Sprintf("  %s %s", dimStyle.Render("was "+o.PreviousValue), dimStyle.Render("in "+o.Overrides))),
		)
	}
	return strings.Join(lines, "\n")
}

func (s *configListScreen) Keys() []key.Binding {
	k := s.env.keys
	return []key.Binding{k.Up, k.Down, k.Enter, k.Overrides, k.Refresh, k.Filter}
}

func (s *configListScreen) Capturing() bool { return s.list.Filtering() }

func (s *configListScreen) Cursor() int     { return s.list.Index() }
func (s *configListScreen) SetCursor(i int) { s.list.SetIndex(i) }

type configDetailScreen struct {
	env  *env
	tag  epochTag
	path string

	contents *nugetconfig.Contents
	status   statusLine
	vp       viewport.Model
}

func newConfigDetailScreen(e *env, path string) *configDetailScreen {
	vp := viewport.New(minWidth, minHeight-chromeHeight)
	vp.MouseWheelEnabled = true
	return &configDetailScreen{
		env:  e,
		tag:  epochTag{e.nav.Epoch()},
		path: path,
		vp:   vp,
	}
}

func (s *configDetailScreen) Init() tea.Cmd {
	tag, path := s.tag, s.path
	return func() tea.Msg {
		c, err := nugetconfig.ReadConfigFile(path)
		return configContentsMsg{epochTag: tag, contents: c, err: err}
	}
}

func (s *configDetailScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w, h := bodySize(msg)
		s.vp.Width = w
		s.vp.Height = max(h-3, 1)
		s.render()
		return s, nil

	case configContentsMsg:
		if msg.err != nil {
			s.env.logger.Warn("read config file", zap.String("path", s.path), zap.Error(msg.err))
			s.status = errorStatus(msg.err)
			return s, nil
		}
		s.contents = &msg.contents
		s.render()
		return s, nil
	}

	var cmd tea.Cmd
	s.vp, cmd = s.vp.Update(msg)
	return s, cmd
}

func (s *configDetailScreen) render() {
	if s.contents == nil {
		return
	}
	s.vp.SetContent(renderConfigContents(*s.contents))
}

// renderConfigContents lays out a parsed config file section by section.
func renderConfigContents(c nugetconfig.Contents) string {
	none := dimStyle.Render("None")
	var blocks []string

	var srcs []string
	for _, src := range c.Sources {
		line := activeStyle.Render(src.Name) + "  " + valueStyle.Render(src.Value)
		if src.ProtocolVersion != "" {
			line += dimStyle.Render(" (protocol v" + src.ProtocolVersion + ")")
		}
		srcs = append(srcs, line)
	}
	if len(srcs) == 0 {
		srcs = []string{none}
	}
	blocks = append(blocks, section("Package Sources", srcs...))

	disabled := []string{none}
	if len(c.DisabledSources) > 0 {
		disabled = disabled[:0]
		for _, name := range c.DisabledSources {
			disabled = append(disabled, statusWarn.Render(iconOff)+" "+name)
		}
	}
	blocks = append(blocks, section("Disabled Sources", disabled...))

	var mappings []string
	for _, m := range c.PackageSourceMappings {
		mappings = append(mappings, activeStyle.Render(m.SourceKey))
		for _, p := range m.Patterns {
			mappings = append(mappings, "  "+valueStyle.Render(p))
		}
	}
	if len(mappings) == 0 {
		mappings = []string{none}
	}
	blocks = append(blocks, section("Package Source Mapping", mappings...))

	var settings []string
	for _, st := range c.OtherSettings {
		settings = append(settings, field(st.Key, st.Value))
	}
	if len(settings) == 0 {
		settings = []string{none}
	}
	blocks = append(blocks, section("Config", settings...))

	return strings.Join(blocks, "\n\n")
}

func (s *configDetailScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Config File"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(s.path))
	b.WriteString("\n")
	switch {
	case s.contents != nil:
		b.WriteString(s.vp.View())
	case s.status.kind != statusNone:
		b.WriteString("\n" + s.status.View())
	default:
		b.WriteString(dimStyle.Render("Reading..."))
	}
	return b.String()
}

func (s *configDetailScreen) Keys() []key.Binding {
	k := s.env.keys
	scroll := key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑↓/jk", "scroll"))
	return []key.Binding{scroll, k.PageDown, k.PageUp}
}

func (s *configDetailScreen) Capturing() bool { return false }
