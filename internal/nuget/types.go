// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package nuget holds the domain types shared by nugman's services and the
// parsers that turn dotnet CLI text output into those types.
package nuget

// ConfigLevel is the precedence tier a source is registered at.
type ConfigLevel string

const (
	LevelUser    ConfigLevel = "user"
	LevelProject ConfigLevel = "project"
	LevelMachine ConfigLevel = "machine"
)

// Source is a package source registered with the dotnet CLI.
type Source struct {
	Name        string      `json:"name"`
	URL         string      `json:"url"`
	Enabled     bool        `json:"enabled"`
	ConfigLevel ConfigLevel `json:"configLevel"`
	// IsManaged marks sources owned by nugman itself. They cannot be deleted.
	IsManaged bool `json:"isManaged"`
}

// Editable reports whether the source lives in the user-level config and can
// therefore be changed through the CLI.
func (s Source) Editable() bool {
	return s.ConfigLevel == LevelUser
}

// Deletable reports whether the source may be removed.
func (s Source) Deletable() bool {
	return s.Editable() && !s.IsManaged
}

// CacheType is one of the four cache categories maintained by NuGet.
type CacheType string

const (
	CacheHTTP           CacheType = "http-cache"
	CacheGlobalPackages CacheType = "global-packages"
	CacheTemp           CacheType = "temp"
	CachePlugins        CacheType = "plugins-cache"
)

// CacheTypes lists the recognized cache categories in display order.
var CacheTypes = []CacheType{CacheHTTP, CacheGlobalPackages, CacheTemp, CachePlugins}

// IsCacheType reports whether s names a recognized cache category.
func IsCacheType(s string) bool {
	for _, t := range CacheTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// CacheLocation is an on-disk cache directory reported by `dotnet nuget locals`.
type CacheLocation struct {
	Type CacheType `json:"type"`
	Path string    `json:"path"`
	// DiskUsageBytes is computed on listing and never persisted.
	DiskUsageBytes int64 `json:"diskUsageBytes"`
}

// CacheEntry is an immediate child of a cache directory.
type CacheEntry struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
	IsDir     bool   `json:"isDir"`
}

// LocalPackage is a .nupkg file in the local feed directory.
type LocalPackage struct {
	ID            string `json:"id"`
	Version       string `json:"version"`
	FileName      string `json:"fileName"`
	FilePath      string `json:"filePath"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
}

// PackageIdentity is the (id, version) pair of a package.
type PackageIdentity struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// LicenseType distinguishes SPDX expressions from embedded license files.
type LicenseType string

const (
	LicenseExpression LicenseType = "expression"
	LicenseFile       LicenseType = "file"
)

// PackageLicense is the <license> element of a manifest.
type PackageLicense struct {
	Type  LicenseType `json:"type"`
	Value string      `json:"value"`
}

// RepositoryInfo is the <repository> element of a manifest.
type RepositoryInfo struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
}

// PackageDependency is a single dependency declaration.
type PackageDependency struct {
	ID           string `json:"id"`
	VersionRange string `json:"versionRange"`
}

// DependencyGroup groups dependencies, optionally per target framework.
type DependencyGroup struct {
	TargetFramework string              `json:"targetFramework,omitempty"`
	Dependencies    []PackageDependency `json:"dependencies"`
}

// PackageMetadata is the parsed content of a package manifest.
type PackageMetadata struct {
	ID               string            `json:"id"`
	Version          string            `json:"version"`
	Authors          string            `json:"authors"`
	Description      string            `json:"description"`
	Title            string            `json:"title,omitempty"`
	License          *PackageLicense   `json:"license,omitempty"`
	ProjectURL       string            `json:"projectUrl,omitempty"`
	Copyright        string            `json:"copyright,omitempty"`
	Tags             []string          `json:"tags"`
	ReleaseNotes     string            `json:"releaseNotes,omitempty"`
	Repository       *RepositoryInfo   `json:"repository,omitempty"`
	Dependencies     []DependencyGroup `json:"dependencies"`
	TargetFrameworks []string          `json:"targetFrameworks"`
	PackageURL       string            `json:"packageUrl,omitempty"`
}

// HealthStatus is the outcome of probing a source.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthDisabled  HealthStatus = "disabled"
	HealthChecking  HealthStatus = "checking"
)
