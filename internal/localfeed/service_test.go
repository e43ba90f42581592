// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package localfeed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadic/nugman/internal/appconfig"
	"github.com/monadic/nugman/internal/dotnet/dotnettest"
	"github.com/monadic/nugman/internal/nuget"
)

type fakeRegistry struct {
	sources []nuget.Source
	listErr error
	added   [][2]string
}

func (f *fakeRegistry) List(ctx context.Context) ([]nuget.Source, error) {
	return f.sources, f.listErr
}

func (f *fakeRegistry) Add(ctx context.Context, name, url string) error {
	f.added = append(f.added, [2]string{name, url})
	f.sources = append(f.sources, nuget.Source{Name: name, URL: url, Enabled: true})
	return nil
}

func testConfig(t *testing.T) appconfig.Config {
	t.Helper()
	return appconfig.Default(t.TempDir())
}

func writePkg(t *testing.T, dir, name string, size int) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

func TestInitialize_RegistersOnce(t *testing.T) {
	cfg := testConfig(t)
	reg := &fakeRegistry{sources: []nuget.Source{{Name: "nuget.org"}}}
	svc := NewService(cfg, reg, dotnettest.NewRunner(), nil)

	require.NoError(t, svc.Initialize(context.Background()))
	require.NoError(t, svc.Initialize(context.Background()))

	assert.DirExists(t, cfg.LocalSourceDir)
	assert.Equal(t, [][2]string{{"nugman-local", cfg.LocalSourceDir}}, reg.added)
}

func TestInitialize_AlreadyRegistered(t *testing.T) {
	cfg := testConfig(t)
	reg := &fakeRegistry{sources: []nuget.Source{{Name: "nugman-local", URL: "/elsewhere"}}}

	require.NoError(t, NewService(cfg, reg, dotnettest.NewRunner(), nil).Initialize(context.Background()))
	assert.Empty(t, reg.added)
}

func TestInitialize_ListFailure(t *testing.T) {
	reg := &fakeRegistry{listErr: errors.New("dotnet CLI not found on PATH")}

	err := NewService(testConfig(t), reg, dotnettest.NewRunner(), nil).Initialize(context.Background())
	assert.Error(t, err)
	assert.Empty(t, reg.added)
}

func TestListPackages(t *testing.T) {
	cfg := testConfig(t)
	writePkg(t, cfg.LocalSourceDir, "Foo.Bar.1.2.3.nupkg", 10)
	writePkg(t, cfg.LocalSourceDir, "shortname.nupkg", 20)
	writePkg(t, cfg.LocalSourceDir, "notes.txt", 5)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.LocalSourceDir, "sub.nupkg"), 0755))
	writePkg(t, filepath.Join(cfg.LocalSourceDir, "nested"), "Deep.1.0.0.nupkg", 5)

	packages, err := NewService(cfg, &fakeRegistry{}, nil, nil).ListPackages()
	require.NoError(t, err)

	assert.Equal(t, []nuget.LocalPackage{
		{ID: "Foo.Bar", Version: "1.2.3", FileName: "Foo.Bar.1.2.3.nupkg", FilePath: filepath.Join(cfg.LocalSourceDir, "Foo.Bar.1.2.3.nupkg"), FileSizeBytes: 10},
		{ID: "shortname", Version: "0.0.0", FileName: "shortname.nupkg", FilePath: filepath.Join(cfg.LocalSourceDir, "shortname.nupkg"), FileSizeBytes: 20},
	}, packages)
}

func TestListPackages_MissingDirectory(t *testing.T) {
	packages, err := NewService(testConfig(t), &fakeRegistry{}, nil, nil).ListPackages()
	require.NoError(t, err)
	assert.NotNil(t, packages)
	assert.Empty(t, packages)
}

func TestRemovePackages_AttemptsAll(t *testing.T) {
	cfg := testConfig(t)
	a := writePkg(t, cfg.LocalSourceDir, "A.1.0.0.nupkg", 1)
	b := writePkg(t, cfg.LocalSourceDir, "B.1.0.0.nupkg", 1)
	missing := filepath.Join(cfg.LocalSourceDir, "Gone.1.0.0.nupkg")

	err := NewService(cfg, &fakeRegistry{}, nil, nil).RemovePackages([]string{a, missing, b})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
}

func TestCheckDuplicate(t *testing.T) {
	cfg := testConfig(t)
	writePkg(t, cfg.LocalSourceDir, "Foo.Bar.1.2.3.nupkg", 1)
	svc := NewService(cfg, &fakeRegistry{}, nil, nil)

	pkg, found, err := svc.CheckDuplicate("foo.bar", "1.2.3")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Foo.Bar.1.2.3.nupkg", pkg.FileName)

	_, found, err = svc.CheckDuplicate("Foo.Bar", "1.2.4")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAddPackageFromFile(t *testing.T) {
	cfg := testConfig(t)
	src := writePkg(t, t.TempDir(), "Foo.Bar.1.2.3.nupkg", 64)
	svc := NewService(cfg, &fakeRegistry{}, nil, nil)
	require.NoError(t, os.MkdirAll(cfg.LocalSourceDir, 0755))

	result := svc.AddPackageFromFile(src)
	require.Equal(t, AddSuccess, result.Kind, result.Message)
	assert.Equal(t, nuget.LocalPackage{
		ID:            "Foo.Bar.1.2.3",
		Version:       "0.0.0",
		FileName:      "Foo.Bar.1.2.3.nupkg",
		FilePath:      filepath.Join(cfg.LocalSourceDir, "Foo.Bar.1.2.3.nupkg"),
		FileSizeBytes: 64,
	}, result.Package)
	assert.FileExists(t, result.Package.FilePath)
}

func TestAddPackageFromFile_DuplicateIsNotOverwritten(t *testing.T) {
	cfg := testConfig(t)
	existing := writePkg(t, cfg.LocalSourceDir, "Foo.1.0.0.nupkg", 3)
	src := writePkg(t, t.TempDir(), "Foo.1.0.0.nupkg", 99)

	result := NewService(cfg, &fakeRegistry{}, nil, nil).AddPackageFromFile(src)
	assert.Equal(t, AddDuplicate, result.Kind)
	assert.Equal(t, existing, result.Package.FilePath)
	assert.Equal(t, "Foo.1.0.0.nupkg already exists in the local source", result.Message)

	info, err := os.Stat(existing)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size())
}

func TestAddPackageFromFile_SameFileTwice(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.LocalSourceDir, 0755))
	src := writePkg(t, t.TempDir(), "Foo.1.0.0-beta.nupkg", 10)
	svc := NewService(cfg, &fakeRegistry{}, nil, nil)

	first := svc.AddPackageFromFile(src)
	require.Equal(t, AddSuccess, first.Kind)

	second := svc.AddPackageFromFile(src)
	assert.Equal(t, AddDuplicate, second.Kind)
	assert.Contains(t, second.Message, "Foo.1.0.0-beta.nupkg")
}

func TestAddPackageFromFile_MissingSource(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.LocalSourceDir, 0755))

	result := NewService(cfg, &fakeRegistry{}, nil, nil).AddPackageFromFile(filepath.Join(t.TempDir(), "nope.nupkg"))
	assert.Equal(t, AddError, result.Kind)
	assert.Contains(t, result.Message, "no such file or directory")
	assert.NoFileExists(t, filepath.Join(cfg.LocalSourceDir, "nope.nupkg"))
}

func packArgs(cfg appconfig.Config, project string) string {
	return "pack " + project + " -o " + cfg.LocalSourceDir + " -c Release --nologo"
}

func TestAddPackageFromBuild(t *testing.T) {
	cfg := testConfig(t)
	writePkg(t, cfg.LocalSourceDir, "Zeta.9.9.9.nupkg", 1)

	runner := dotnettest.NewRunner().On(packArgs(cfg, "/src/App.csproj"), dotnettest.Response{
		Lines:    []string{"Determining projects to restore...", "Successfully created package."},
		ErrLines: []string{"warning NU5104"},
		Run: func() {
			writePkg(t, cfg.LocalSourceDir, "App.1.0.0.nupkg", 7)
			writePkg(t, cfg.LocalSourceDir, "App.1.0.0.symbols.nupkg", 8)
		},
	})

	var lines []string
	result := NewService(cfg, &fakeRegistry{}, runner, nil).
		AddPackageFromBuild(context.Background(), "/src/App.csproj", func(l string) { lines = append(lines, l) })

	require.Equal(t, AddSuccess, result.Kind, result.Message)
	assert.Equal(t, "App.1.0.0.symbols.nupkg", result.Package.FileName)
	assert.Equal(t, []string{"Determining projects to restore...", "Successfully created package.", "warning NU5104"}, lines)
	assert.Equal(t, [][]string{{"pack", "/src/App.csproj", "-o", cfg.LocalSourceDir, "-c", "Release", "--nologo"}}, runner.Calls())
}

func TestAddPackageFromBuild_RewrittenArchive(t *testing.T) {
	cfg := testConfig(t)
	path := writePkg(t, cfg.LocalSourceDir, "App.1.0.0.nupkg", 1)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	writePkg(t, cfg.LocalSourceDir, "Other.2.0.0.nupkg", 1)

	runner := dotnettest.NewRunner().On(packArgs(cfg, "app"), dotnettest.Response{
		Run: func() { writePkg(t, cfg.LocalSourceDir, "App.1.0.0.nupkg", 12) },
	})

	result := NewService(cfg, &fakeRegistry{}, runner, nil).AddPackageFromBuild(context.Background(), "app", nil)
	require.Equal(t, AddSuccess, result.Kind, result.Message)
	assert.Equal(t, "App.1.0.0.nupkg", result.Package.FileName)
	assert.Equal(t, "App", result.Package.ID)
	assert.Equal(t, "1.0.0", result.Package.Version)
	assert.Equal(t, int64(12), result.Package.FileSizeBytes)
}

func TestAddPackageFromBuild_NonZeroExit(t *testing.T) {
	cfg := testConfig(t)
	runner := dotnettest.NewRunner().On(packArgs(cfg, "app"), dotnettest.Response{Code: 1})

	result := NewService(cfg, &fakeRegistry{}, runner, nil).AddPackageFromBuild(context.Background(), "app", nil)
	assert.Equal(t, AddResult{Kind: AddError, Message: "dotnet pack exited with code 1"}, result)
}

func TestAddPackageFromBuild_NothingProduced(t *testing.T) {
	cfg := testConfig(t)
	writePkg(t, cfg.LocalSourceDir, "Old.1.0.0.nupkg", 1)
	runner := dotnettest.NewRunner()

	result := NewService(cfg, &fakeRegistry{}, runner, nil).AddPackageFromBuild(context.Background(), "app", nil)
	assert.Equal(t, AddResult{Kind: AddError, Message: "No .nupkg files produced by build"}, result)
}
