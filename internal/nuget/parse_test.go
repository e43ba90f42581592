// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package nuget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceList(t *testing.T) {
	output := `Registered Sources:
  1.  nuget.org [Enabled]
      https://api.nuget.org/v3/index.json
  2.  MyPrivate [Disabled]
      https://myserver/nuget/v3/index.json
`
	sources := ParseSourceList(output)
	require.Len(t, sources, 2)

	assert.Equal(t, Source{
		Name:        "nuget.org",
		URL:         "https://api.nuget.org/v3/index.json",
		Enabled:     true,
		ConfigLevel: LevelUser,
	}, sources[0])
	assert.Equal(t, Source{
		Name:        "MyPrivate",
		URL:         "https://myserver/nuget/v3/index.json",
		Enabled:     false,
		ConfigLevel: LevelUser,
	}, sources[1])
}

func TestParseSourceList_WindowsLineEndings(t *testing.T) {
	output := "Registered Sources:\r\n  1.  Local Feed [Enabled]\r\n      C:\\packages\r\n\r\n"

	sources := ParseSourceList(output)
	require.Len(t, sources, 1)
	assert.Equal(t, "Local Feed", sources[0].Name)
	assert.Equal(t, `C:\packages`, sources[0].URL)
}

func TestParseSourceList_NoMatches(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "empty", output: ""},
		{name: "header only", output: "Registered Sources:\n"},
		{name: "blank lines", output: "\n\n\n"},
		{name: "no tag", output: "  1.  nuget.org\n      https://api.nuget.org/v3/index.json\n"},
		{name: "unknown tag", output: "  1.  nuget.org [Maybe]\n      https://api.nuget.org/v3/index.json\n"},
		{name: "name without url", output: "  1.  nuget.org [Enabled]\n   \n"},
		{name: "name on last line", output: "  1.  nuget.org [Enabled]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources := ParseSourceList(tt.output)
			assert.NotNil(t, sources)
			assert.Empty(t, sources)
		})
	}
}

func TestParseSourceList_NamesWithSpaces(t *testing.T) {
	output := "  12.  Microsoft Visual Studio Offline Packages [Disabled]\n      /opt/vs/packages\n"

	sources := ParseSourceList(output)
	require.Len(t, sources, 1)
	assert.Equal(t, "Microsoft Visual Studio Offline Packages", sources[0].Name)
	assert.False(t, sources[0].Enabled)
}

func TestParseCacheLocals(t *testing.T) {
	output := `info : http-cache: /home/user/.local/share/NuGet/v3-cache
info : global-packages: /home/user/.nuget/packages/
info : temp: /tmp/NuGetScratch
info : plugins-cache: /home/user/.local/share/NuGet/plugins-cache
`
	locations := ParseCacheLocals(output)
	require.Len(t, locations, 4)
	assert.Equal(t, CacheLocation{Type: CacheHTTP, Path: "/home/user/.local/share/NuGet/v3-cache"}, locations[0])
	assert.Equal(t, CacheLocation{Type: CacheGlobalPackages, Path: "/home/user/.nuget/packages/"}, locations[1])
	assert.Equal(t, CacheTemp, locations[2].Type)
	assert.Equal(t, CachePlugins, locations[3].Type)
}

func TestParseCacheLocals_SingleLine(t *testing.T) {
	locations := ParseCacheLocals("info : http-cache: /tmp/cache\n")
	assert.Equal(t, []CacheLocation{{Type: CacheHTTP, Path: "/tmp/cache"}}, locations)
}

func TestParseCacheLocals_WithoutPrefix(t *testing.T) {
	locations := ParseCacheLocals("http-cache: /some/path\r\nglobal-packages: /other/path\r\n")
	require.Len(t, locations, 2)
	assert.Equal(t, "/some/path", locations[0].Path)
	assert.Equal(t, "/other/path", locations[1].Path)
}

func TestParseCacheLocals_WindowsPaths(t *testing.T) {
	locations := ParseCacheLocals(`info : global-packages: C:\Users\dev\.nuget\packages\`)
	require.Len(t, locations, 1)
	assert.Equal(t, `C:\Users\dev\.nuget\packages\`, locations[0].Path)
}

func TestParseCacheLocals_DropsUnknownTypes(t *testing.T) {
	output := "info : http-cache: /a\ninfo : mystery-cache: /b\nwarn : something odd\n"

	locations := ParseCacheLocals(output)
	require.Len(t, locations, 1)
	assert.Equal(t, CacheHTTP, locations[0].Type)
}

func TestParseCacheLocals_Empty(t *testing.T) {
	for _, input := range []string{"", "\n", "\r\n\r\n", "info : "} {
		locations := ParseCacheLocals(input)
		assert.NotNil(t, locations)
		assert.Empty(t, locations, "input %q", input)
	}
}
