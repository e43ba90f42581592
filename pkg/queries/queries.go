// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package queries provides saved package searches for nugman.
//
// Saved searches are named, reusable search terms that can be:
// - Built-in (shipped with nugman)
// - User-defined (<configDir>/searches.yaml)
// - Recent (the last successful terms, kept in the same file)
//
// Built-in searches help users get started with common packages:
// - json: JSON serializers
// - logging: logging frameworks
// - testing: test frameworks and helpers
package queries

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Categories of saved searches.
const (
	CategoryBuiltin = "builtin"
	CategoryUser    = "user"
	CategoryRecent  = "recent"
)

// MaxRecent is the number of recent terms kept.
const MaxRecent = 10

// SavedSearch represents a named, reusable search
type SavedSearch struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Term        string `yaml:"term" json:"term"`
	Prerelease  bool   `yaml:"prerelease,omitempty" json:"prerelease,omitempty"`
	Category    string `yaml:"-" json:"category,omitempty"` // "builtin", "user" or "recent"
}

// BuiltinSearches are shipped with nugman to help users get started
var BuiltinSearches = []SavedSearch{
	{
		Name:        "json",
		Description: "JSON serializers",
		Term:        "json",
		Category:    CategoryBuiltin,
	},
	{
		Name:        "logging",
		Description: "Logging frameworks and sinks",
		Term:        "logging",
		Category:    CategoryBuiltin,
	},
	{
		Name:        "testing",
		Description: "Test frameworks, runners and assertion libraries",
		Term:        "xunit",
		Category:    CategoryBuiltin,
	},
	{
		Name:        "http",
		Description: "HTTP clients and resilience handlers",
		Term:        "http client",
		Category:    CategoryBuiltin,
	},
	{
		Name:        "previews",
		Description: "Preview builds of the Microsoft.Extensions libraries",
		Term:        "Microsoft.Extensions",
		Prerelease:  true,
		Category:    CategoryBuiltin,
	},
}

// searchesFile is the structure of the user searches file
type searchesFile struct {
	Searches []SavedSearch `yaml:"searches"`
	Recent   []string      `yaml:"recent,omitempty"`
}

// Store manages saved searches from the built-in list and a user file.
// It is safe for concurrent use; writers hold the lock across the file write.
type Store struct {
	mu     sync.Mutex
	path   string
	user   []SavedSearch
	recent []string
	// loadErr is set when the file exists but could not be loaded; writes are
	// refused so the file is not replaced.
	loadErr error
}

// NewStore loads the user searches file at path. A missing file is not an error.
// A malformed file yields a usable read-only store with only the built-in
// searches, plus the parse error.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	f, err := s.load()
	if err != nil {
		s.loadErr = err
		return s, err
	}
	s.user = f.Searches
	s.recent = f.Recent
	return s, nil
}

func (s *Store) load() (searchesFile, error) {
	var f searchesFile
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil // No user searches file
		}
		return f, fmt.Errorf("read searches file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return searchesFile{}, fmt.Errorf("parse searches file: %w", err)
	}
	return f, nil
}

func (s *Store) write() error {
	if s.loadErr != nil {
		return fmt.Errorf("not overwriting %s: %w", s.path, s.loadErr)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(&searchesFile{Searches: s.user, Recent: s.recent})
	if err != nil {
		return fmt.Errorf("marshal searches: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write searches file: %w", err)
	}
	return nil
}

// Save adds or updates a user search
func (s *Store) Save(search SavedSearch) error {
	search.Name = strings.TrimSpace(search.Name)
	search.Term = strings.TrimSpace(search.Term)
	if search.Name == "" || search.Term == "" {
		return fmt.Errorf("saved search needs a name and a term")
	}
	search.Category = ""

	s.mu.Lock()
	defer s.mu.Unlock()

	user := append([]SavedSearch(nil), s.user...)
	found := false
	for i, q := range user {
		if q.Name == search.Name {
			user[i] = search
			found = true
			break
		}
	}
	if !found {
		user = append(user, search)
	}

	prev := s.user
	s.user = user
	if err := s.write(); err != nil {
		s.user = prev
		return err
	}
	return nil
}

// Delete removes a user search
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]SavedSearch, 0, len(s.user))
	for _, q := range s.user {
		if q.Name != name {
			filtered = append(filtered, q)
		}
	}
	if len(filtered) == len(s.user) {
		return fmt.Errorf("search %q not found", name)
	}

	prev := s.user
	s.user = filtered
	if err := s.write(); err != nil {
		s.user = prev
		return err
	}
	return nil
}

// RecordRecent moves term to the front of the recent list, keeping at most
// MaxRecent distinct terms. Terms compare case-insensitively.
func (s *Store) RecordRecent(term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recent := []string{term}
	for _, r := range s.recent {
		if !strings.EqualFold(r, term) {
			recent = append(recent, r)
		}
	}
	if len(recent) > MaxRecent {
		recent = recent[:MaxRecent]
	}

	prev := s.recent
	s.recent = recent
	if err := s.write(); err != nil {
		s.recent = prev
		return err
	}
	return nil
}

// List returns all searches: built-in, then user, then recent
func (s *Store) List() []SavedSearch {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]SavedSearch, 0, len(BuiltinSearches)+len(s.user)+len(s.recent))
	result = append(result, s.ListBuiltin()...)
	result = append(result, s.listUser()...)
	result = append(result, s.listRecent()...)
	return result
}

// ListBuiltin returns only built-in searches
func (s *Store) ListBuiltin() []SavedSearch {
	return append([]SavedSearch(nil), BuiltinSearches...)
}

// ListUser returns only user-defined searches
func (s *Store) ListUser() []SavedSearch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listUser()
}

func (s *Store) listUser() []SavedSearch {
	result := make([]SavedSearch, 0, len(s.user))
	for _, q := range s.user {
		q.Category = CategoryUser
		result = append(result, q)
	}
	return result
}

// ListRecent returns recent terms, most recent first
func (s *Store) ListRecent() []SavedSearch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listRecent()
}

func (s *Store) listRecent() []SavedSearch {
	result := make([]SavedSearch, 0, len(s.recent))
	for _, term := range s.recent {
		result = append(result, SavedSearch{Name: term, Term: term, Category: CategoryRecent})
	}
	return result
}

// Get returns a built-in or user search by name. User searches shadow built-ins.
func (s *Store) Get(name string) (SavedSearch, bool) {
	for _, q := range s.ListUser() {
		if q.Name == name {
			return q, true
		}
	}
	for _, q := range BuiltinSearches {
		if q.Name == name {
			return q, true
		}
	}
	return SavedSearch{}, false
}
