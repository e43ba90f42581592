// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package metadata reads and validates the manifest inside .nupkg archives.
package metadata

import (
	"archive/zip"
	"errors"
	"fmt"
	"strings"

	"github.com/package-url/packageurl-go"

	"github.com/monadic/nugman/internal/nuget"
)

// Validation failure reasons.
const (
	ReasonExtension     = "File must have .nupkg extension"
	ReasonNotZip        = "File is not a valid ZIP archive"
	ReasonNoNuspec      = "Package does not contain a .nuspec file"
	ReasonManyNuspecs   = "Package contains multiple .nuspec files"
	ReasonInvalidNuspec = "Invalid .nuspec XML structure"
)

// ErrNoNuspec is returned when an archive has no root-level manifest.
var ErrNoNuspec = errors.New("no .nuspec found in package")

// ValidationResult is the outcome of Validate. Reason is set when Valid is false.
type ValidationResult struct {
	Valid  bool
	Reason string
}

func invalid(reason string) ValidationResult {
	return ValidationResult{Reason: reason}
}

// openManifest opens the archive and decodes its first root-level manifest.
func openManifest(path string) (*zip.ReadCloser, *nuspecMetadata, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open package: %w", err)
	}

	specs := rootNuspecs(&zr.Reader)
	if len(specs) == 0 {
		zr.Close()
		return nil, nil, ErrNoNuspec
	}

	meta, err := parseNuspec(specs[0])
	if err != nil {
		zr.Close()
		return nil, nil, fmt.Errorf("parse %s: %w", specs[0].Name, err)
	}
	return zr, meta, nil
}

// ReadIdentity returns the id and version declared by the package manifest.
// Absent fields read as "unknown" and nuget.UnknownVersion.
func ReadIdentity(path string) (nuget.PackageIdentity, error) {
	zr, meta, err := openManifest(path)
	if err != nil {
		return nuget.PackageIdentity{}, err
	}
	defer zr.Close()

	id := nuget.PackageIdentity{ID: "unknown", Version: nuget.UnknownVersion}
	if meta != nil {
		if meta.ID != "" {
			id.ID = meta.ID
		}
		if meta.Version != "" {
			id.Version = meta.Version
		}
	}
	return id, nil
}

// ReadMetadata returns the full manifest of a package. A missing id or version is an error.
func ReadMetadata(path string) (nuget.PackageMetadata, error) {
	zr, meta, err := openManifest(path)
	if err != nil {
		return nuget.PackageMetadata{}, err
	}
	defer zr.Close()

	if meta == nil || meta.ID == "" || meta.Version == "" {
		return nuget.PackageMetadata{}, errors.New("missing required fields (id, version)")
	}

	deps := dependencyGroups(meta.Dependencies)
	result := nuget.PackageMetadata{
		ID:               meta.ID,
		Version:          meta.Version,
		Authors:          meta.Authors,
		Description:      meta.Description,
		Title:            meta.Title,
		ProjectURL:       meta.ProjectURL,
		Copyright:        meta.Copyright,
		Tags:             strings.Fields(meta.Tags),
		ReleaseNotes:     meta.ReleaseNotes,
		License:          license(meta.License),
		Repository:       repository(meta.Repository),
		Dependencies:     deps,
		TargetFrameworks: targetFrameworks(deps, libFrameworks(&zr.Reader)),
		PackageURL:       PackageURL(meta.ID, meta.Version),
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	return result, nil
}

// Validate checks that path is a well-formed package: the extension, a readable
// archive with exactly one root-level manifest and the required manifest fields.
func Validate(path string) ValidationResult {
	if !nuget.IsPackageFile(path) {
		return invalid(ReasonExtension)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return invalid(ReasonNotZip)
	}
	defer zr.Close()

	specs := rootNuspecs(&zr.Reader)
	switch {
	case len(specs) == 0:
		return invalid(ReasonNoNuspec)
	case len(specs) > 1:
		return invalid(ReasonManyNuspecs)
	}

	meta, err := parseNuspec(specs[0])
	if err != nil || meta == nil {
		return invalid(ReasonInvalidNuspec)
	}

	var missing []string
	if meta.ID == "" {
		missing = append(missing, "id")
	}
	if meta.Version == "" {
		missing = append(missing, "version")
	}
	if meta.Description == "" {
		missing = append(missing, "description")
	}
	if meta.Authors == "" {
		missing = append(missing, "authors")
	}
	if len(missing) > 0 {
		return invalid("Missing required fields: " + strings.Join(missing, ", "))
	}

	return ValidationResult{Valid: true}
}

// PackageURL returns the purl of a NuGet package, e.g. pkg:nuget/Newtonsoft.Json@13.0.3.
func PackageURL(id, version string) string {
	return packageurl.NewPackageURL(packageurl.TypeNuget, "", id, version, nil, "").ToString()
}

func dependencyGroups(d *nuspecDeps) []nuget.DependencyGroup {
	groups := []nuget.DependencyGroup{}
	if d == nil {
		return groups
	}

	for _, g := range d.Groups {
		groups = append(groups, nuget.DependencyGroup{
			TargetFramework: g.TargetFramework,
			Dependencies:    dependencies(g.Dependencies),
		})
	}
	if len(groups) == 0 && len(d.Dependencies) > 0 {
		groups = append(groups, nuget.DependencyGroup{Dependencies: dependencies(d.Dependencies)})
	}
	return groups
}

func dependencies(raw []nuspecDep) []nuget.PackageDependency {
	deps := make([]nuget.PackageDependency, 0, len(raw))
	for _, d := range raw {
		deps = append(deps, nuget.PackageDependency{ID: d.ID, VersionRange: d.Version})
	}
	return deps
}

// targetFrameworks merges group frameworks and lib/ folders, keeping first-seen order.
func targetFrameworks(groups []nuget.DependencyGroup, lib []string) []string {
	seen := map[string]bool{}
	tfms := []string{}
	add := func(tfm string) {
		if tfm == "" || seen[tfm] {
			return
		}
		seen[tfm] = true
		tfms = append(tfms, tfm)
	}

	for _, g := range groups {
		add(g.TargetFramework)
	}
	for _, tfm := range lib {
		add(tfm)
	}
	return tfms
}

func license(l *nuspecLicense) *nuget.PackageLicense {
	if l == nil {
		return nil
	}
	typ := nuget.LicenseExpression
	if l.Type == "file" {
		typ = nuget.LicenseFile
	}
	return &nuget.PackageLicense{Type: typ, Value: strings.TrimSpace(l.Value)}
}

func repository(r *nuspecRepository) *nuget.RepositoryInfo {
	if r == nil {
		return nil
	}
	return &nuget.RepositoryInfo{Type: r.Type, URL: r.URL, Branch: r.Branch, Commit: r.Commit}
}
