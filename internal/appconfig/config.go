// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package appconfig loads and stores nugman's own settings.
//
// Settings live in a per-OS config directory:
//   - Windows: %APPDATA%\nugman
//   - macOS:   ~/Library/Application Support/nugman
//   - Linux:   $XDG_CONFIG_HOME/nugman (or ~/.config/nugman)
//
// The directory holds config.json, the local feed directory, saved searches and logs.
package appconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"sigs.k8s.io/yaml"
)

const (
	// AppName names the config directory.
	AppName = "nugman"

	// DefaultLocalSourceName is the source name the local feed is registered under.
	DefaultLocalSourceName = "nugman-local"

	configFileName   = "config.json"
	searchesFileName = "searches.yaml"
	localSourceDir   = "local-source"
	logsDir          = "logs"
)

// Config holds nugman settings. It is passed by value to the services that need it.
type Config struct {
	LocalSourceDir  string `json:"localSourceDir"`
	LocalSourceName string `json:"localSourceName"`

	// Dir is the config directory these settings belong to.
	Dir string `json:"-"`
}

// Dir returns the per-OS config directory for nugman.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return dirFor(runtime.GOOS, os.Getenv, home), nil
}

func dirFor(goos string, getenv func(string) string, home string) string {
	switch goos {
	case "windows":
		base := getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, AppName)
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppName)
	default:
		base := getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, AppName)
	}
}

// Default returns the settings used when no config file exists.
func Default(dir string) Config {
	return Config{
		LocalSourceDir:  filepath.Join(dir, localSourceDir),
		LocalSourceName: DefaultLocalSourceName,
		Dir:             dir,
	}
}

// Load reads settings from the default config directory.
func Load() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(dir)
}

// LoadFrom reads dir/config.json over the defaults. A missing file is not an
// error. An unreadable or malformed file returns the defaults together with the
// error so the caller can log it and carry on.
func LoadFrom(dir string) (Config, error) {
	cfg := Default(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", configFileName, err)
	}

	var stored Config
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", configFileName, err)
	}
	if stored.LocalSourceDir != "" {
		cfg.LocalSourceDir = stored.LocalSourceDir
	}
	if stored.LocalSourceName != "" {
		cfg.LocalSourceName = stored.LocalSourceName
	}
	return cfg, nil
}

// Save writes the settings to Dir/config.json, creating the directory if needed.
func (c Config) Save() error {
	if c.Dir == "" {
		return fmt.Errorf("save config: no config directory")
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(c.Path(), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", configFileName, err)
	}
	return nil
}

// EnsureFile writes the settings to Dir/config.json when that file does not
// exist yet, so there is a file to edit. It reports whether it wrote one.
func (c Config) EnsureFile() (bool, error) {
	if _, err := os.Stat(c.Path()); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", configFileName, err)
	}
	if err := c.Save(); err != nil {
		return false, err
	}
	return true, nil
}

// Path is the settings file.
func (c Config) Path() string {
	return filepath.Join(c.Dir, configFileName)
}

// SearchesPath is where saved searches are stored.
func (c Config) SearchesPath() string {
	return filepath.Join(c.Dir, searchesFileName)
}

// LogsDir is where session logs are written.
func (c Config) LogsDir() string {
	return filepath.Join(c.Dir, logsDir)
}
