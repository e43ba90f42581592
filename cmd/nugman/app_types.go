// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/monadic/nugman/internal/cache"
	"github.com/monadic/nugman/internal/dotnet"
	"github.com/monadic/nugman/internal/localfeed"
	"github.com/monadic/nugman/internal/nav"
	"github.com/monadic/nugman/internal/nuget"
	"github.com/monadic/nugman/internal/nugetconfig"
	"github.com/monadic/nugman/internal/search"
	"github.com/monadic/nugman/internal/sources"
	"github.com/monadic/nugman/pkg/queries"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	breadcrumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	groupStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")).
			Bold(true)

	statusOK = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	statusWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	statusErr = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activePaneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	helpActionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	helpDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// titleCaser for proper title casing (replaces deprecated strings.Title)
var titleCaser = cases.Title(language.English)

// Icons
const (
	iconOK       = "✓"
	iconWarn     = "⚠"
	iconErr      = "✗"
	iconOn       = "●"
	iconOff      = "○"
	iconCursor   = "▶"
	iconChecked  = "◉"
	iconPackage  = "📦"
	iconFolder   = "📁"
	iconManaged  = "★"
	iconChecking = "…"
	iconDownload = "↓"
)

// Minimum terminal size the UI is laid out for.
const (
	minWidth  = 80
	minHeight = 24
)

// Services the UI talks to. Each is satisfied by the matching internal package.
type (
	toolChecker interface {
		CheckAvailability(ctx context.Context) dotnet.Info
	}

	sourceService interface {
		List(ctx context.Context) ([]nuget.Source, error)
		Add(ctx context.Context, name, url string) error
		Update(ctx context.Context, name string, changes sources.Changes) error
		SetEnabled(ctx context.Context, name string, enabled bool) error
		Remove(ctx context.Context, name string) error
	}

	healthProber interface {
		CheckAll(ctx context.Context, srcs []nuget.Source) []sources.HealthResult
	}

	cacheService interface {
		ListLocations(ctx context.Context) ([]nuget.CacheLocation, error)
		ListContents(dir string) ([]nuget.CacheEntry, error)
		Clear(ctx context.Context, t nuget.CacheType) cache.ClearResult
		ClearAll(ctx context.Context) cache.ClearResult
	}

	feedService interface {
		Dir() string
		Name() string
		Initialize(ctx context.Context) error
		ListPackages() ([]nuget.LocalPackage, error)
		RemovePackages(paths []string) error
		CheckDuplicate(id, version string) (nuget.LocalPackage, bool, error)
		AddPackageFromFile(path string) localfeed.AddResult
		AddPackageFromBuild(ctx context.Context, project string, sink func(line string)) localfeed.AddResult
	}

	searchService interface {
		Search(ctx context.Context, term string, opts search.Options) ([]search.Result, error)
	}

	configService interface {
		ListConfigFiles() []nugetconfig.File
	}

	searchStore interface {
		List() []queries.SavedSearch
		Get(name string) (queries.SavedSearch, bool)
		Save(q queries.SavedSearch) error
		Delete(name string) error
		RecordRecent(term string) error
	}
)

// services bundles every dependency of the UI.
type services struct {
	tool    toolChecker
	sources sourceService
	health  healthProber
	cache   cacheService
	feed    feedService
	search  searchService
	configs configService
	saved   searchStore
}

// env is shared by the root model and every screen.
type env struct {
	svc    services
	nav    *nav.State
	logger *zap.Logger
	keys   keyMap

	// lastSearch survives a visit to a result's detail view.
	lastSearch *searchState
}

// searchState is the outcome of the most recent search.
type searchState struct {
	term       string
	prerelease bool
	page       int
	results    []search.Result
}

// screen is the model behind one view.
type screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (screen, tea.Cmd)
	View(width, height int) string
	// Keys are the bindings shown in the footer.
	Keys() []key.Binding
	// Capturing reports whether the screen wants raw keys, e.g. while a text
	// input or confirmation prompt has focus.
	Capturing() bool
}

// cursorScreen is implemented by screens with a list position worth restoring.
type cursorScreen interface {
	Cursor() int
	SetCursor(i int)
}

// epochTag marks a message as the result of work started under a navigation
// epoch. Results from an earlier epoch are dropped.
type epochTag struct {
	epoch uint64
}

func (t epochTag) Epoch() uint64 { return t.epoch }

type tagged interface {
	Epoch() uint64
}

// streamed messages come from a channel that must keep being drained even
// after their screen is gone.
type streamed interface {
	next() tea.Cmd
}

// Startup and navigation messages
type (
	toolCheckedMsg struct {
		info dotnet.Info
	}

	feedInitializedMsg struct {
		err error
	}

	navigateMsg struct {
		view nav.View
		from int
	}

	backMsg struct{}
)

func navigateTo(v nav.View, from int) tea.Cmd {
	return func() tea.Msg { return navigateMsg{view: v, from: from} }
}

func goBack() tea.Msg { return backMsg{} }

// keyMap defines keybindings
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Enter     key.Binding
	Back      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Filter    key.Binding
	Refresh   key.Binding
	Add       key.Binding
	Edit      key.Binding
	Delete    key.Binding
	Toggle    key.Binding
	Health    key.Binding
	Clear     key.Binding
	ClearAll  key.Binding
	Inspect   key.Binding
	Select    key.Binding
	Tab       key.Binding
	NextPage  key.Binding
	PrevPage  key.Binding
	Prerel    key.Binding
	Save      key.Binding
	Overrides key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "x"),
			key.WithHelp("d/x", "delete"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "enable/disable"),
		),
		Health: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "health check"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "clear all"),
		),
		Inspect: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "inspect"),
		),
		Select: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prev page"),
		),
		Prerel: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "prerelease"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save search"),
		),
		Overrides: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "overrides"),
		),
	}
}
