// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package nugetconfig discovers and reads the NuGet.Config files that apply to
// the working directory.
package nugetconfig

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Level is where a config file sits in NuGet's hierarchy.
type Level string

const (
	LevelUser     Level = "user"
	LevelSolution Level = "solution"
)

// FileNames are the spellings NuGet accepts for a solution-level config, in lookup order.
var FileNames = []string{"nuget.config", "NuGet.Config", "NuGet.config"}

// SourceEntry is an <add> element under <packageSources>.
type SourceEntry struct {
	Name            string
	Value           string
	ProtocolVersion string
}

// SourceMapping is a <packageSource> element under <packageSourceMapping>.
type SourceMapping struct {
	SourceKey string
	Patterns  []string
}

// Setting is a key/value pair from the <config> section.
type Setting struct {
	Key   string
	Value string
}

// Contents is the parsed content of a config file.
type Contents struct {
	Sources               []SourceEntry
	DisabledSources       []string
	PackageSourceMappings []SourceMapping
	OtherSettings         []Setting
}

// File is a discovered config file. Contents is nil when Readable is false.
type File struct {
	Path     string
	Level    Level
	Readable bool
	Error    string
	Contents *Contents
}

// Override records a setting defined again by a later file.
type Override struct {
	Setting       string
	Section       string
	OverriddenBy  string
	Overrides     string
	Value         string
	PreviousValue string
}

type xmlConfiguration struct {
	PackageSources         *xmlAddSection `xml:"packageSources"`
	DisabledPackageSources *xmlAddSection `xml:"disabledPackageSources"`
	PackageSourceMapping   *xmlMapping    `xml:"packageSourceMapping"`
	Config                 *xmlAddSection `xml:"config"`
}

type xmlAddSection struct {
	Adds []xmlAdd `xml:"add"`
}

type xmlAdd struct {
	Key             string `xml:"key,attr"`
	Value           string `xml:"value,attr"`
	ProtocolVersion string `xml:"protocolVersion,attr"`
}

type xmlMapping struct {
	Sources []struct {
		Key      string `xml:"key,attr"`
		Packages []struct {
			Pattern string `xml:"pattern,attr"`
		} `xml:"package"`
	} `xml:"packageSource"`
}

// Service locates and reads config files.
type Service struct {
	userPath string
	workDir  string
	logger   *zap.Logger
}

// NewService creates a service rooted at the process working directory.
func NewService(logger *zap.Logger) (*Service, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	return NewServiceAt(UserConfigPath(runtime.GOOS, os.Getenv, home), wd, logger), nil
}

// NewServiceAt creates a service with an explicit user config path and working directory.
func NewServiceAt(userPath, workDir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{userPath: userPath, workDir: workDir, logger: logger.Named("nugetconfig")}
}

// UserConfigPath returns the user-level NuGet.Config location for an OS.
func UserConfigPath(goos string, getenv func(string) string, home string) string {
	if goos == "windows" {
		base := getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, "NuGet", "NuGet.Config")
	}
	return filepath.Join(home, ".nuget", "NuGet", "NuGet.Config")
}

// ListConfigFiles returns the user config followed by every solution config from
// the working directory up to and including the filesystem root. Files that
// exist but cannot be parsed are listed as unreadable.
func (s *Service) ListConfigFiles() []File {
	files := []File{}

	if exists(s.userPath) {
		files = append(files, s.load(s.userPath, LevelUser))
	}

	dir := filepath.Clean(s.workDir)
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if exists(candidate) {
				files = append(files, s.load(candidate, LevelSolution))
				break
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return files
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (s *Service) load(path string, level Level) File {
	contents, err := ReadConfigFile(path)
	if err != nil {
		s.logger.Warn("unreadable config", zap.String("path", path), zap.Error(err))
		return File{Path: path, Level: level, Error: err.Error()}
	}
	return File{Path: path, Level: level, Readable: true, Contents: &contents}
}

// ReadConfigFile parses a config file.
func ReadConfigFile(path string) (Contents, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Contents{}, err
	}

	var doc xmlConfiguration
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Contents{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	c := Contents{
		Sources:               []SourceEntry{},
		DisabledSources:       []string{},
		PackageSourceMappings: []SourceMapping{},
		OtherSettings:         []Setting{},
	}
	if doc.PackageSources != nil {
		for _, a := range doc.PackageSources.Adds {
			c.Sources = append(c.Sources, SourceEntry{Name: a.Key, Value: a.Value, ProtocolVersion: a.ProtocolVersion})
		}
	}
	if doc.DisabledPackageSources != nil {
		for _, a := range doc.DisabledPackageSources.Adds {
			if strings.EqualFold(strings.TrimSpace(a.Value), "true") {
				c.DisabledSources = append(c.DisabledSources, a.Key)
			}
		}
	}
	if doc.PackageSourceMapping != nil {
		for _, src := range doc.PackageSourceMapping.Sources {
			m := SourceMapping{SourceKey: src.Key, Patterns: []string{}}
			for _, p := range src.Packages {
				m.Patterns = append(m.Patterns, p.Pattern)
			}
			c.PackageSourceMappings = append(c.PackageSourceMappings, m)
		}
	}
	if doc.Config != nil {
		for _, a := range doc.Config.Adds {
			c.OtherSettings = append(c.OtherSettings, Setting{Key: a.Key, Value: a.Value})
		}
	}
	return c, nil
}

// ComputeOverrides walks files in order and reports every package source and
// config key that a later file defines again.
func ComputeOverrides(files []File) []Override {
	type origin struct {
		value string
		file  string
	}
	overrides := []Override{}
	seen := map[string]origin{}

	record := func(section, key, value, file string) {
		id := section + "." + key
		if prev, ok := seen[id]; ok {
			overrides = append(overrides, Override{
				Setting:       key,
				Section:       section,
				OverriddenBy:  file,
				Overrides:     prev.file,
				Value:         value,
				PreviousValue: prev.value,
			})
		}
		seen[id] = origin{value: value, file: file}
	}

	for _, f := range files {
		if f.Contents == nil {
			continue
		}
		for _, src := range f.Contents.Sources {
			record("packageSources", src.Name, src.Value, f.Path)
		}
		for _, st := range f.Contents.OtherSettings {
			record("config", st.Key, st.Value, f.Path)
		}
	}
	return overrides
}
