// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package metadata

import (
	"archive/zip"
	"encoding/xml"
	"path/filepath"
	"regexp"
	"strings"
)

// nuspec mirrors the parts of a .nuspec manifest nugman reads. Tags carry no
// namespace so every nuspec schema version matches.
type nuspec struct {
	XMLName  xml.Name        `xml:"package"`
	Metadata *nuspecMetadata `xml:"metadata"`
}

type nuspecMetadata struct {
	ID           string            `xml:"id"`
	Version      string            `xml:"version"`
	Authors      string            `xml:"authors"`
	Description  string            `xml:"description"`
	Title        string            `xml:"title"`
	ProjectURL   string            `xml:"projectUrl"`
	Copyright    string            `xml:"copyright"`
	Tags         string            `xml:"tags"`
	ReleaseNotes string            `xml:"releaseNotes"`
	License      *nuspecLicense    `xml:"license"`
	Repository   *nuspecRepository `xml:"repository"`
	Dependencies *nuspecDeps       `xml:"dependencies"`
}

type nuspecLicense struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type nuspecRepository struct {
	Type   string `xml:"type,attr"`
	URL    string `xml:"url,attr"`
	Branch string `xml:"branch,attr"`
	Commit string `xml:"commit,attr"`
}

type nuspecDeps struct {
	Groups       []nuspecGroup `xml:"group"`
	Dependencies []nuspecDep   `xml:"dependency"`
}

type nuspecGroup struct {
	TargetFramework string      `xml:"targetFramework,attr"`
	Dependencies    []nuspecDep `xml:"dependency"`
}

type nuspecDep struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

// isRootNuspec reports whether a zip entry is a manifest at the archive root.
func isRootNuspec(name string) bool {
	return !strings.ContainsAny(name, `/\`) && strings.EqualFold(filepath.Ext(name), ".nuspec")
}

// rootNuspecs returns the root-level manifest entries of an archive.
func rootNuspecs(r *zip.Reader) []*zip.File {
	var found []*zip.File
	for _, f := range r.File {
		if isRootNuspec(f.Name) {
			found = append(found, f)
		}
	}
	return found
}

// parseNuspec decodes a manifest. The returned metadata is nil when the
// document has no <metadata> element.
func parseNuspec(f *zip.File) (*nuspecMetadata, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc nuspec
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, err
	}
	if doc.Metadata != nil {
		doc.Metadata.trim()
	}
	return doc.Metadata, nil
}

func (m *nuspecMetadata) trim() {
	for _, s := range []*string{
		&m.ID, &m.Version, &m.Authors, &m.Description, &m.Title,
		&m.ProjectURL, &m.Copyright, &m.Tags, &m.ReleaseNotes,
	} {
		*s = strings.TrimSpace(*s)
	}
}

var libFrameworkPattern = regexp.MustCompile(`^lib/([^/]+)/`)

// libFrameworks returns the target framework folder names under lib/ in archive order.
func libFrameworks(r *zip.Reader) []string {
	var tfms []string
	for _, f := range r.File {
		name := strings.ReplaceAll(f.Name, `\`, "/")
		if m := libFrameworkPattern.FindStringSubmatch(name); m != nil {
			tfms = append(tfms, m[1])
		}
	}
	return tfms
}
