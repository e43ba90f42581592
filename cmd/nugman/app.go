// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/clierr"
	"github.com/monadic/nugman/internal/dotnet"
	"github.com/monadic/nugman/internal/nav"
)

// toolCheckTimeout bounds `dotnet --version` at startup.
const toolCheckTimeout = 15 * time.Second

type phase int

const (
	phaseCheckingTool phase = iota
	phaseToolMissing
	phaseInitFeed
	phaseReady
)

// Model is the root bubbletea model. It owns the navigation state and the
// screen for the current view.
type Model struct {
	env *env

	phase    phase
	toolInfo dotnet.Info
	// warning is a non-fatal startup problem shown on the main menu.
	warning statusLine

	screen   screen
	spinner  spinner.Model
	showHelp bool

	width  int
	height int
}

func newModel(svc services, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Model{
		env: &env{
			svc:    svc,
			nav:    nav.New(),
			logger: logger.Named("ui"),
			keys:   defaultKeyMap(),
		},
		spinner: newSpinner(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, checkToolCmd(m.env.svc.tool))
}

func checkToolCmd(t toolChecker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), toolCheckTimeout)
		defer cancel()
		return toolCheckedMsg{info: t.CheckAvailability(ctx)}
	}
}

func initFeedCmd(f feedService) tea.Cmd {
	return func() tea.Msg {
		return feedInitializedMsg{err: f.Initialize(context.Background())}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.screen == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.screen, cmd = m.screen.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.phase != phaseReady {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case toolCheckedMsg:
		m.toolInfo = msg.info
		if !msg.info.Available {
			m.env.logger.Error("dotnet unavailable", zap.String("error", msg.info.Error))
			m.phase = phaseToolMissing
			return m, nil
		}
		m.env.logger.Info("dotnet available", zap.String("version", msg.info.Version))
		m.phase = phaseInitFeed
		return m, initFeedCmd(m.env.svc.feed)

	case feedInitializedMsg:
		if msg.err != nil {
			m.env.logger.Warn("local feed initialization failed", zap.Error(msg.err))
			err := clierr.WrapWithHint(msg.err, clierr.Guidance(msg.err.Error()))
			m.warning = warnStatus("Local source is not ready: %v", err)
		}
		m.phase = phaseReady
		return m.enter(m.env.nav.Current(), nav.NoIndex)

	case navigateMsg:
		m.env.nav.NavigateFrom(msg.view, msg.from)
		m.env.logger.Debug("navigate", zap.String("view", msg.view.Title()), zap.Int("depth", m.env.nav.Depth()))
		return m.enter(msg.view, nav.NoIndex)

	case backMsg:
		entry := m.env.nav.GoBack()
		m.env.logger.Debug("back", zap.String("view", entry.View.Title()), zap.Int("depth", m.env.nav.Depth()))
		return m.enter(entry.View, entry.ReturnIndex)
	}

	if t, ok := msg.(tagged); ok && t.Epoch() != m.env.nav.Epoch() {
		m.env.logger.Debug("dropping stale result", zap.String("type", fmt.Sprintf("%T", msg)))
		if s, ok := msg.(streamed); ok {
			return m, s.next()
		}
		return m, nil
	}

	if m.screen == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.screen, cmd = m.screen.Update(msg)
	return m, cmd
}

// enter builds the screen for v and restores the list position, if any.
func (m Model) enter(v nav.View, returnIndex int) (tea.Model, tea.Cmd) {
	m.showHelp = false
	m.screen = newScreen(m.env, v)
	if cs, ok := m.screen.(cursorScreen); ok && returnIndex != nav.NoIndex {
		cs.SetCursor(returnIndex)
	}
	if m.width > 0 {
		m.screen, _ = m.screen.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	}
	return m, m.screen.Init()
}

// chromeHeight is the number of lines taken by the header and the help bar.
const chromeHeight = 5

// bodySize is the area a screen may draw in for a terminal of the given size.
func bodySize(msg tea.WindowSizeMsg) (int, int) {
	return msg.Width, max(msg.Height-chromeHeight, 1)
}

func newScreen(e *env, v nav.View) screen {
	switch v := v.(type) {
	case nav.Sources:
		return newSourcesScreen(e)
	case nav.SourceAdd:
		return newSourceFormScreen(e, "")
	case nav.SourceEdit:
		return newSourceFormScreen(e, v.SourceName)
	case nav.Cache:
		return newCacheScreen(e)
	case nav.CacheBrowse:
		return newCacheBrowseScreen(e, v.CacheType)
	case nav.LocalSource:
		return newLocalScreen(e)
	case nav.LocalSourceAdd:
		return newAddPackageScreen(e)
	case nav.PackageDetail:
		return newPackageDetailScreen(e, v.PackagePath)
	case nav.PackageSearch:
		return newSearchScreen(e)
	case nav.SearchResultDetail:
		return newSearchDetailScreen(e, v)
	case nav.ConfigViewer:
		return newConfigListScreen(e)
	case nav.ConfigFileDetail:
		return newConfigDetailScreen(e, v.FilePath)
	default:
		return newMenuScreen(e)
	}
}

func (m Model) atMainMenu() bool {
	_, ok := m.env.nav.Current().(nav.MainMenu)
	return ok
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.env.keys
	if key.Matches(msg, keys.ForceQuit) {
		return m, tea.Quit
	}

	if m.phase != phaseReady {
		if m.phase == phaseToolMissing && (key.Matches(msg, keys.Quit) || key.Matches(msg, keys.Back)) {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.showHelp {
		if key.Matches(msg, keys.Help) || key.Matches(msg, keys.Back) || key.Matches(msg, keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	if !m.screen.Capturing() {
		switch {
		case key.Matches(msg, keys.Quit) && m.atMainMenu():
			return m, tea.Quit
		case key.Matches(msg, keys.Back):
			if m.atMainMenu() {
				return m, nil
			}
			return m, goBack
		case key.Matches(msg, keys.Help):
			m.showHelp = true
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.screen, cmd = m.screen.Update(msg)
	return m, cmd
}

func (m Model) globalKeys() []key.Binding {
	keys := m.env.keys
	if m.atMainMenu() {
		return []key.Binding{keys.Help, keys.Quit}
	}
	return []key.Binding{keys.Back, keys.Help, keys.ForceQuit}
}

func (m Model) View() string {
	if m.width > 0 && (m.width < minWidth || m.height < minHeight) {
		return fmt.Sprintf("%s\n\n%s\n%s",
			statusWarn.Render(iconWarn+" Terminal too small"),
			fmt.Sprintf("nugman needs at least %dx%d, current size is %dx%d.", minWidth, minHeight, m.width, m.height),
			dimStyle.Render("Resize the window to continue."))
	}

	switch m.phase {
	case phaseCheckingTool:
		return titleStyle.Render("nugman") + "\n" + m.spinner.View() + " Checking for dotnet CLI..."
	case phaseToolMissing:
		return m.renderToolMissing()
	case phaseInitFeed:
		return titleStyle.Render("nugman") + "\n" + m.spinner.View() + " Initializing local source..."
	}

	width, height := m.width, m.height
	if width == 0 {
		width, height = minWidth, minHeight
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n\n")

	bodyHeight := height - chromeHeight
	if m.atMainMenu() && m.warning.kind != statusNone {
		bodyHeight -= 2
	}
	if m.showHelp {
		b.WriteString(renderHelpOverlay(m.env.nav.Current().Title(), m.screen.Keys(), m.globalKeys()))
	} else {
		b.WriteString(m.screen.View(width, bodyHeight))
	}

	if m.atMainMenu() && m.warning.kind != statusNone {
		b.WriteString("\n\n")
		b.WriteString(m.warning.View())
	}

	b.WriteString("\n\n")
	bindings := append(append([]key.Binding{}, m.screen.Keys()...), m.globalKeys()...)
	b.WriteString(renderHelpBar(bindings, width))
	return b.String()
}

func (m Model) renderHeader(width int) string {
	var crumbs []string
	for _, e := range m.env.nav.History() {
		crumbs = append(crumbs, e.View.Title())
	}
	current := m.env.nav.Current().Title()

	header := headerStyle.Render("nugman")
	if len(crumbs) == 0 {
		if !m.atMainMenu() {
			header += " " + activeStyle.Render(current)
		} else if m.toolInfo.Version != "" {
			header += " " + dimStyle.Render("dotnet "+m.toolInfo.Version)
		}
		return header
	}
	trail := strings.Join(append(crumbs[1:], ""), " › ")
	return header + " " + breadcrumbStyle.Render(trail) + activeStyle.Render(current)
}

func (m Model) renderToolMissing() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("nugman"))
	b.WriteString("\n")
	msg := m.toolInfo.Error
	if msg == "" {
		msg = dotnet.ErrToolNotFound.Error()
	}
	b.WriteString(statusErr.Render(iconErr + " " + msg))
	b.WriteString("\n\n")
	b.WriteString("Hint: " + clierr.InstallHint)
	b.WriteString("\n\n")
	b.WriteString(renderHelpBar([]key.Binding{m.env.keys.Quit}, m.width))
	return b.String()
}
