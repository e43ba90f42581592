// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadic/nugman/internal/localfeed"
	"github.com/monadic/nugman/internal/nuget"
	"github.com/monadic/nugman/internal/nugetconfig"
	"github.com/monadic/nugman/internal/search"
	"github.com/monadic/nugman/pkg/queries"
)

// ===========================================================================
// Sources
// ===========================================================================

func TestSources_ListsWithBadges(t *testing.T) {
	h := newHarness(t, newFakes())
	h.key("1")

	view := h.view()
	assert.Contains(t, view, "Package Sources (3)")
	assert.Contains(t, view, "nuget.org")
	assert.Contains(t, view, "managed")
	assert.Contains(t, view, "disabled")
	assert.Len(t, h.model.env.nav.Sources(), 3)
}

func TestSources_ManagedSourceCannotBeRemoved(t *testing.T) {
	f := newFakes()
	h := newHarness(t, f)
	h.key("1")

	h.key("j")
	h.key("d")
	assert.Contains(t, h.view(), "managed by nugman and cannot be removed")
	assert.False(t, h.model.screen.Capturing())
	assert.Empty(t, f.sources.removed)
}

func TestSources_RemoveAfterConfirm(t *testing.T) {
	f := newFakes()
	h := newHarness(t, f)
	h.key("1")

	h.key("G")
	h.key("d")
	assert.Contains(t, h.view(), `Remove source "corp"?`)
	require.True(t, h.model.screen.Capturing())

	h.key("y")
	assert.Equal(t, []string{"corp"}, f.sources.removed)
	assert.Contains(t, h.view(), "Removed corp")
	assert.Contains(t, h.view(), "Package Sources (2)")
}

func TestSources_CancelRemove(t *testing.T) {
	f := newFakes()
	h := newHarness(t, f)
	h.key("1")

	h.key("G")
	h.key("d")
	h.key("n")
	assert.Empty(t, f.sources.removed)
	assert.False(t, h.model.screen.Capturing())
}

func TestSources_Toggle(t *testing.T) {
	f := newFakes()
	h := newHarness(t, f)
	h.key("1")

	h.key("t")
	assert.Equal(t, []string{"nuget.org"}, f.sources.toggled)
	assert.Contains(t, h.view(), "Disabled nuget.org")
	assert.False(t, h.model.env.nav.Sources()[0].Enabled)
}

func TestSources_HealthCheck(t *testing.T) {
	h := newHarness(t, newFakes())
	h.key("1")

	h.key("h")
	view := h.view()
	assert.Contains(t, view, "Health check: 3 of 3 sources healthy")
	assert.Contains(t, view, "12ms")
}

func TestSources_AddThroughForm(t *testing.T) {
	f := newFakes()
	h := newHarness(t, f)
	h.key("1")
	h.key("a")
	require.Equal(t, "nav.SourceAdd", h.current())

	h.typeText("corp2")
	h.key("enter")
	h.typeText("https://corp2.example/v3/index.json")
	h.key("enter")

	assert.Equal(t, []string{"corp2"}, f.sources.added)
	assert.Equal(t, "nav.Sources", h.current())
	assert.Contains(t, h.view(), "corp2")
}

func TestSources_FormRequiresURL(t *testing.T) {
	f := newFakes()
	h := newHarness(t, f)
	h.key("1")
	h.key("a")

	h.typeText("corp2")
	h.key("tab")
	h.key("enter")
	assert.Contains(t, h.view(), "URL is required")
	assert.Empty(t, f.sources.added)
	assert.Equal(t, "nav.SourceAdd", h.current())
}

// ===========================================================================
// Cache
// ===========================================================================

func TestCache_ShowsLocationsAndTotal(t *testing.T) {
	h := newHarness(t, newFakes())
	h.key("2")

	view := h.view()
	assert.Contains(t, view, "http-cache")
	assert.Contains(t, view, "global-packages")
	assert.Contains(t, view, "/home/u/.nuget/packages")
}

func TestCache_ClearOneAfterConfirm(t *testing.T) {
	f := newFakes()
	h := newHarness(t, f)
	h.key("2")

	h.key("c")
	assert.Contains(t, h.view(), "Clear the http-cache cache?")
	h.key("y")

	assert.Equal(t, []nuget.CacheType{nuget.CacheHTTP}, f.cache.clearedTypes())
	assert.Contains(t, h.view(), "Cleared http-cache")
}

func TestCache_ClearAllNeedsConfirmation(t *testing.T) {
	f := newFakes()
	h := newHarness(t, f)
	h.key("2")

	h.key("C")
	h.key("n")
	assert.Equal(t, 0, f.cache.clearAll)

	h.key("C")
	h.key("y")
	assert.Equal(t, 1, f.cache.clearAll)
	assert.Contains(t, h.view(), "Cleared all caches")
}

func TestCache_BrowseOnlyInspectsPackages(t *testing.T) {
	f := newFakes()
	f.cache.entries = []nuget.CacheEntry{
		{Name: "newtonsoft.json", Path: "/c/newtonsoft.json", IsDir: true},
		{Name: "Acme.Core.1.0.0.nupkg", Path: "/c/Acme.Core.1.0.0.nupkg", SizeBytes: 1024},
	}
	h := newHarness(t, f)
	h.key("2")
	h.key("enter")
	require.Equal(t, "nav.CacheBrowse", h.current())
	assert.Contains(t, h.view(), "(2 entries)")

	h.key("enter")
	assert.Contains(t, h.view(), "Only .nupkg files can be inspected")

	h.key("j")
	h.key("enter")
	assert.Equal(t, "nav.PackageDetail", h.current())
}

// ===========================================================================
// Local source
// ===========================================================================

func TestLocal_RemoveSelected(t *testing.T) {
	f := newFakes()
	h := newHarness(t, f)
	h.key("3")

	h.key(" ")
	h.key("d")
	assert.Contains(t, h.view(), "Remove Acme.Core.1.0.0.nupkg from the local source?")
	h.key("y")

	assert.Equal(t, []string{"/feed/Acme.Core.1.0.0.nupkg"}, f.feed.removed)
	assert.Contains(t, h.view(), "Removed 1 package")
}

func TestLocal_RemoveMany(t *testing.T) {
	f := newFakes()
	h := newHarness(t, f)
	h.key("3")

	h.key(" ")
	h.key(" ")
	h.key("d")
	assert.Contains(t, h.view(), "Remove 2 packages from the local source?")
	h.key("y")
	assert.Len(t, f.feed.removed, 2)
}

func TestLocal_AddFromBuild(t *testing.T) {
	f := newFakes()
	f.feed.buildLogs = []string{"Determining projects to restore...", "Successfully created package 'App.1.0.0.nupkg'."}
	f.feed.build = localfeed.AddResult{Kind: localfeed.AddSuccess, Package: nuget.LocalPackage{ID: "App", Version: "1.0.0"}}
	h := newHarness(t, f)
	h.key("3")
	h.key("a")
	require.Equal(t, "nav.LocalSourceAdd", h.current())

	h.key("tab")
	assert.Contains(t, h.view(), "Add Package From Build")
	h.typeText("/src/App/App.csproj")
	h.key("enter")

	assert.Equal(t, "nav.LocalSource", h.current())
}

func TestLocal_BuildFailureKeepsOutput(t *testing.T) {
	f := newFakes()
	f.feed.buildLogs = []string{"error CS1002: ; expected"}
	f.feed.build = localfeed.AddResult{Kind: localfeed.AddError, Message: "dotnet pack exited with code 1"}
	h := newHarness(t, f)
	h.key("3")
	h.key("a")
	h.key("tab")
	h.typeText("/src/App/App.csproj")
	h.key("enter")

	require.Equal(t, "nav.LocalSourceAdd", h.current())
	view := h.view()
	assert.Contains(t, view, "error CS1002")
	assert.Contains(t, view, "dotnet pack exited with code 1")
}

func TestLocal_AddFromFileRejectsMissingFile(t *testing.T) {
	h := newHarness(t, newFakes())
	h.key("3")
	h.key("a")

	h.typeText(filepath.Join(t.TempDir(), "missing.nupkg"))
	h.key("enter")

	require.Equal(t, "nav.LocalSourceAdd", h.current())
	add := h.model.screen.(*addPackageScreen)
	assert.Equal(t, statusError, add.status.kind)
	assert.False(t, add.processing)
}

func TestLocal_DuplicateShowsWarning(t *testing.T) {
	h := newHarness(t, newFakes())
	h.key("3")
	h.key("a")
	add := h.model.screen.(*addPackageScreen)

	h.send(packageAddedMsg{epochTag: add.tag, result: localfeed.AddResult{
		Kind:    localfeed.AddDuplicate,
		Package: nuget.LocalPackage{FileName: "Foo.1.0.0-beta.nupkg"},
	}})

	require.Equal(t, "nav.LocalSourceAdd", h.current())
	assert.Equal(t, statusWarning, add.status.kind)
	assert.Contains(t, h.view(), "Foo.1.0.0-beta.nupkg is already in the local source")
}

// ===========================================================================
// Search
// ===========================================================================

func int64p(n int64) *int64 { return &n }

func searchFakes() *fakes {
	f := newFakes()
	f.search.results = []search.Result{{
		SourceName: "nuget.org",
		Packages: []search.Package{
			{ID: "Newtonsoft.Json", LatestVersion: "13.0.3", Description: "Json.NET is a popular JSON framework", TotalDownloads: int64p(5_000_000_000), Owners: "dotnetfoundation"},
			{ID: "System.Text.Json", LatestVersion: "9.0.0", Description: "High-performance JSON APIs"},
		},
	}}
	return f
}

func TestSearch_ShowsSavedSearchesFirst(t *testing.T) {
	h := newHarness(t, searchFakes())
	h.key("4")

	view := h.view()
	assert.Contains(t, view, "Saved and recent searches")
	assert.Contains(t, view, "json")
}

func TestSearch_RunAndOpenDetail(t *testing.T) {
	f := searchFakes()
	h := newHarness(t, f)
	h.key("4")

	h.typeText("json")
	h.key("enter")

	assert.Equal(t, []string{"json"}, f.search.terms)
	assert.Equal(t, search.Options{Take: search.DefaultPageSize}, f.search.lastCall())
	assert.Equal(t, []string{"json"}, f.store.recent)

	view := h.view()
	assert.Contains(t, view, "Newtonsoft.Json")
	assert.Contains(t, view, "2 results")
	assert.False(t, h.model.screen.Capturing())

	h.key("j")
	h.key("enter")
	require.Equal(t, "nav.SearchResultDetail", h.current())
	view = h.view()
	assert.Contains(t, view, "System.Text.Json")
	assert.Contains(t, view, "pkg:nuget/System.Text.Json@9.0.0")
	assert.Contains(t, view, "not reported")
	assert.Contains(t, view, "High-performance JSON APIs")

	h.key("esc")
	require.Equal(t, "nav.PackageSearch", h.current())
	s := h.model.screen.(*searchScreen)
	assert.Equal(t, 1, s.Cursor())
	assert.Contains(t, h.view(), "Newtonsoft.Json")
	assert.Len(t, f.search.terms, 1, "returning must not search again")
}

func TestSearch_PrereleaseAndPaging(t *testing.T) {
	f := searchFakes()
	var many []search.Package
	for i := 0; i < search.DefaultPageSize; i++ {
		many = append(many, search.Package{ID: "Pkg" + string(rune('A'+i)), LatestVersion: "1.0.0"})
	}
	f.search.results = []search.Result{{SourceName: "nuget.org", Packages: many}}
	h := newHarness(t, f)
	h.key("4")
	h.typeText("pkg")
	h.key("enter")
	assert.Contains(t, h.view(), "more available")

	h.key("n")
	assert.Equal(t, search.DefaultPageSize, f.search.lastCall().Skip)
	assert.Contains(t, h.view(), "page 2")

	h.key("p")
	assert.Equal(t, 0, f.search.lastCall().Skip)

	h.key("P")
	assert.True(t, f.search.lastCall().Prerelease)
	assert.Contains(t, h.view(), "including prerelease")
}

func TestSearch_SaveTerm(t *testing.T) {
	f := searchFakes()
	h := newHarness(t, f)
	h.key("4")
	h.typeText("json")
	h.key("enter")

	h.key("s")
	require.Len(t, f.store.saved, 2)
	assert.Equal(t, queries.SavedSearch{Name: "json", Term: "json", Category: queries.CategoryUser}, f.store.saved[1])
	assert.Contains(t, h.view(), `Saved search "json"`)
}

func TestSearch_SaveAgainUpdates(t *testing.T) {
	f := searchFakes()
	f.store.saved = []queries.SavedSearch{{Name: "serilog", Term: "serilog", Category: queries.CategoryUser}}
	h := newHarness(t, f)
	h.key("4")
	h.typeText("serilog")
	h.key("enter")

	h.key("s")
	assert.Contains(t, h.view(), `Updated saved search "serilog"`)
}

func TestSearch_DeleteUserSearch(t *testing.T) {
	f := searchFakes()
	f.store.saved = []queries.SavedSearch{
		{Name: "json", Term: "json", Category: queries.CategoryBuiltin},
		{Name: "mine", Term: "serilog", Category: queries.CategoryUser},
	}
	h := newHarness(t, f)
	h.key("4")
	h.key("tab")

	h.key("d")
	assert.Contains(t, h.view(), "Only your own saved searches can be deleted")
	require.Len(t, f.store.saved, 2)

	h.key("j")
	h.key("d")
	assert.Contains(t, h.view(), `Delete saved search "mine"?`)
	require.True(t, h.model.screen.Capturing())
	h.key("y")

	require.Len(t, f.store.saved, 1)
	view := h.view()
	assert.Contains(t, view, `Deleted saved search "mine"`)
	assert.NotContains(t, view, "serilog")
}

func TestSearch_RunSavedSearch(t *testing.T) {
	f := searchFakes()
	f.store.saved = []queries.SavedSearch{{Name: "previews", Term: "Microsoft.Extensions", Prerelease: true, Category: queries.CategoryBuiltin}}
	h := newHarness(t, f)
	h.key("4")

	h.key("tab")
	h.key("enter")
	assert.Equal(t, []string{"Microsoft.Extensions"}, f.search.terms)
	assert.True(t, f.search.lastCall().Prerelease)
}

func TestSearch_EnterIgnoredWhileSearching(t *testing.T) {
	f := searchFakes()
	h := newHarness(t, f)
	h.key("4")
	s := h.model.screen.(*searchScreen)
	s.searching = true

	h.typeText("json")
	h.key("enter")
	assert.Empty(t, f.search.terms)
	assert.Empty(t, f.store.recent)

	s.searching = false
	h.key("enter")
	assert.Equal(t, []string{"json"}, f.search.terms)
}

func TestSearch_OutOfOrderResultsIgnored(t *testing.T) {
	h := newHarness(t, searchFakes())
	h.key("4")
	s := h.model.screen.(*searchScreen)
	s.seq = 2

	h.send(searchResultsMsg{epochTag: s.tag, seq: 1, term: "old", results: []search.Result{{SourceName: "x", Packages: []search.Package{{ID: "Old"}}}}})
	assert.False(t, s.searched)
	assert.NotContains(t, h.view(), "Old")
}

// ===========================================================================
// Config files
// ===========================================================================

const sampleConfig = `<?xml version="1.0" encoding="utf-8"?>
<configuration>
  <packageSources>
    <add key="nuget.org" value="https://api.nuget.org/v3/index.json" protocolVersion="3" />
  </packageSources>
  <disabledPackageSources>
    <add key="corp" value="true" />
  </disabledPackageSources>
  <config>
    <add key="globalPackagesFolder" value="/packages" />
  </config>
</configuration>
`

func TestConfig_ListAndOverrides(t *testing.T) {
	f := newFakes()
	f.configs = fakeConfigs{files: []nugetconfig.File{
		{Path: "/home/u/.nuget/NuGet/NuGet.Config", Level: nugetconfig.LevelUser, Readable: true, Contents: &nugetconfig.Contents{
			Sources: []nugetconfig.SourceEntry{{Name: "corp", Value: "https://old.example"}},
		}},
		{Path: "/repo/nuget.config", Level: nugetconfig.LevelSolution, Readable: true, Contents: &nugetconfig.Contents{
			Sources: []nugetconfig.SourceEntry{{Name: "corp", Value: "https://new.example"}},
		}},
		{Path: "/repo/src/nuget.config", Level: nugetconfig.LevelSolution, Error: "XML syntax error"},
	}}
	h := newHarness(t, f)
	h.key("5")

	view := h.view()
	assert.Contains(t, view, "/repo/nuget.config")
	assert.Contains(t, view, "unreadable")

	h.key("o")
	view = h.view()
	assert.Contains(t, view, "Overrides (1)")
	assert.Contains(t, view, "https://new.example")
}

func TestConfig_FileDetail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nuget.config")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	f := newFakes()
	f.configs = fakeConfigs{files: []nugetconfig.File{{Path: path, Level: nugetconfig.LevelSolution, Readable: true}}}
	h := newHarness(t, f)
	h.key("5")
	h.key("enter")
	require.Equal(t, "nav.ConfigFileDetail", h.current())

	view := h.view()
	assert.Contains(t, view, "Package Sources")
	assert.Contains(t, view, "protocol v3")
	assert.Contains(t, view, "corp")
	assert.Contains(t, view, "globalPackagesFolder")
}
