// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/monadic/nugman/internal/cache"
	"github.com/monadic/nugman/internal/dotnet"
	"github.com/monadic/nugman/internal/localfeed"
	"github.com/monadic/nugman/internal/nuget"
	"github.com/monadic/nugman/internal/nugetconfig"
	"github.com/monadic/nugman/internal/search"
	"github.com/monadic/nugman/internal/sources"
	"github.com/monadic/nugman/pkg/queries"
)

type fakeTool struct {
	info dotnet.Info
}

func (f fakeTool) CheckAvailability(ctx context.Context) dotnet.Info { return f.info }

type fakeSources struct {
	mu      sync.Mutex
	sources []nuget.Source
	listErr error
	removed []string
	toggled []string
	added   []string
}

func (f *fakeSources) List(ctx context.Context) ([]nuget.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]nuget.Source(nil), f.sources...), f.listErr
}

func (f *fakeSources) Add(ctx context.Context, name, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, name)
	f.sources = append(f.sources, nuget.Source{Name: name, URL: url, Enabled: true, ConfigLevel: nuget.LevelUser})
	return nil
}

func (f *fakeSources) Update(ctx context.Context, name string, changes sources.Changes) error {
	return nil
}

func (f *fakeSources) SetEnabled(ctx context.Context, name string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggled = append(f.toggled, name)
	for i := range f.sources {
		if f.sources[i].Name == name {
			f.sources[i].Enabled = enabled
		}
	}
	return nil
}

func (f *fakeSources) Remove(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, name)
	kept := f.sources[:0]
	for _, s := range f.sources {
		if s.Name != name {
			kept = append(kept, s)
		}
	}
	f.sources = kept
	return nil
}

type fakeHealth struct{}

func (fakeHealth) CheckAll(ctx context.Context, srcs []nuget.Source) []sources.HealthResult {
	out := make([]sources.HealthResult, len(srcs))
	for i, s := range srcs {
		out[i] = sources.HealthResult{SourceName: s.Name, Status: nuget.HealthHealthy, ResponseTime: 12 * time.Millisecond}
	}
	return out
}

type fakeCache struct {
	mu        sync.Mutex
	locations []nuget.CacheLocation
	entries   []nuget.CacheEntry
	cleared   []nuget.CacheType
	clearAll  int
}

func (f *fakeCache) ListLocations(ctx context.Context) ([]nuget.CacheLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]nuget.CacheLocation(nil), f.locations...), nil
}

func (f *fakeCache) ListContents(dir string) ([]nuget.CacheEntry, error) {
	return f.entries, nil
}

func (f *fakeCache) Clear(ctx context.Context, t nuget.CacheType) cache.ClearResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, t)
	return cache.ClearResult{Success: true, Message: "Clearing NuGet " + string(t) + " cache"}
}

func (f *fakeCache) ClearAll(ctx context.Context) cache.ClearResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearAll++
	return cache.ClearResult{Success: true}
}

func (f *fakeCache) clearedTypes() []nuget.CacheType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]nuget.CacheType(nil), f.cleared...)
}

type fakeFeed struct {
	mu        sync.Mutex
	packages  []nuget.LocalPackage
	initErr   error
	removed   []string
	buildLogs []string
	build     localfeed.AddResult
	// gate, when set, holds the build open until closed.
	gate chan struct{}
}

func (f *fakeFeed) Dir() string                          { return "/feed" }
func (f *fakeFeed) Name() string                         { return "nugman-local" }
func (f *fakeFeed) Initialize(ctx context.Context) error { return f.initErr }

func (f *fakeFeed) ListPackages() ([]nuget.LocalPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]nuget.LocalPackage(nil), f.packages...), nil
}

func (f *fakeFeed) RemovePackages(paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, paths...)
	return nil
}

func (f *fakeFeed) CheckDuplicate(id, version string) (nuget.LocalPackage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.packages {
		if p.ID == id && p.Version == version {
			return p, true, nil
		}
	}
	return nuget.LocalPackage{}, false, nil
}

func (f *fakeFeed) AddPackageFromFile(path string) localfeed.AddResult {
	return localfeed.AddResult{Kind: localfeed.AddError, Message: "not expected in tests"}
}

func (f *fakeFeed) AddPackageFromBuild(ctx context.Context, project string, sink func(line string)) localfeed.AddResult {
	for _, line := range f.buildLogs {
		sink(line)
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.build
}

type fakeSearch struct {
	mu      sync.Mutex
	results []search.Result
	err     error
	terms   []string
	calls   []search.Options
}

func (f *fakeSearch) Search(ctx context.Context, term string, opts search.Options) ([]search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms = append(f.terms, term)
	f.calls = append(f.calls, opts)
	return f.results, f.err
}

func (f *fakeSearch) lastCall() search.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return search.Options{}
	}
	return f.calls[len(f.calls)-1]
}

type fakeConfigs struct {
	files []nugetconfig.File
}

func (f fakeConfigs) ListConfigFiles() []nugetconfig.File { return f.files }

type fakeStore struct {
	mu     sync.Mutex
	saved  []queries.SavedSearch
	recent []string
}

func (f *fakeStore) List() []queries.SavedSearch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queries.SavedSearch(nil), f.saved...)
}

func (f *fakeStore) Save(q queries.SavedSearch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.Category = queries.CategoryUser
	f.saved = append(f.saved, q)
	return nil
}

func (f *fakeStore) Get(name string) (queries.SavedSearch, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.saved {
		if q.Name == name {
			return q, true
		}
	}
	return queries.SavedSearch{}, false
}

func (f *fakeStore) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, q := range f.saved {
		if q.Name == name {
			f.saved = append(f.saved[:i], f.saved[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("search %q not found", name)
}

func (f *fakeStore) RecordRecent(term string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent = append(f.recent, term)
	return nil
}

// fakes groups the doubles behind one services value.
type fakes struct {
	tool    fakeTool
	sources *fakeSources
	cache   *fakeCache
	feed    *fakeFeed
	search  *fakeSearch
	configs fakeConfigs
	store   *fakeStore
}

func newFakes() *fakes {
	return &fakes{
		tool: fakeTool{info: dotnet.Info{Available: true, Version: "8.0.100"}},
		sources: &fakeSources{sources: []nuget.Source{
			{Name: "nuget.org", URL: "https://api.nuget.org/v3/index.json", Enabled: true, ConfigLevel: nuget.LevelUser},
			{Name: "nugman-local", URL: "/feed", Enabled: true, ConfigLevel: nuget.LevelUser, IsManaged: true},
			{Name: "corp", URL: "https://corp.example/nuget", Enabled: false, ConfigLevel: nuget.LevelUser},
		}},
		cache: &fakeCache{locations: []nuget.CacheLocation{
			{Type: nuget.CacheHTTP, Path: "/home/u/.local/share/NuGet/http-cache", DiskUsageBytes: 2048},
			{Type: nuget.CacheGlobalPackages, Path: "/home/u/.nuget/packages", DiskUsageBytes: 5 << 20},
		}},
		feed: &fakeFeed{packages: []nuget.LocalPackage{
			{ID: "Acme.Core", Version: "1.0.0", FileName: "Acme.Core.1.0.0.nupkg", FilePath: "/feed/Acme.Core.1.0.0.nupkg", FileSizeBytes: 4096},
			{ID: "Acme.Web", Version: "2.1.0", FileName: "Acme.Web.2.1.0.nupkg", FilePath: "/feed/Acme.Web.2.1.0.nupkg", FileSizeBytes: 8192},
		}},
		search:  &fakeSearch{},
		configs: fakeConfigs{},
		store:   &fakeStore{saved: []queries.SavedSearch{{Name: "json", Term: "json", Category: queries.CategoryBuiltin}}},
	}
}

func (f *fakes) services() services {
	return services{
		tool:    f.tool,
		sources: f.sources,
		health:  fakeHealth{},
		cache:   f.cache,
		feed:    f.feed,
		search:  f.search,
		configs: f.configs,
		saved:   f.store,
	}
}

// cmdTimeout bounds a single command in the harness. Cursor blink commands
// sleep longer than this and are abandoned.
const cmdTimeout = 150 * time.Millisecond

var appPkg = reflect.TypeOf(backMsg{}).PkgPath()

// harness drives a Model synchronously: every command is run and the messages
// this package defines are fed back until the model settles.
type harness struct {
	t     *testing.T
	model Model
	quit  bool
}

func newHarness(t *testing.T, f *fakes) *harness {
	t.Helper()
	h := &harness{t: t, model: newModel(f.services(), nil)}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.run(h.model.Init())
	return h
}

func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	h.run(cmd)
}

func (h *harness) key(k string) {
	h.t.Helper()
	switch k {
	case "enter":
		h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		h.send(tea.KeyMsg{Type: tea.KeyEscape})
	case "tab":
		h.send(tea.KeyMsg{Type: tea.KeyTab})
	case "ctrl+c":
		h.send(tea.KeyMsg{Type: tea.KeyCtrlC})
	default:
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	}
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	if cmd == nil {
		return
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(cmdTimeout):
		return
	}

	switch msg := msg.(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			h.run(c)
		}
	case tea.QuitMsg:
		h.quit = true
	default:
		if reflect.TypeOf(msg).PkgPath() == appPkg {
			h.send(msg)
		}
	}
}

func (h *harness) view() string {
	return h.model.View()
}

func (h *harness) current() string {
	return fmt.Sprintf("%T", h.model.env.nav.Current())
}
