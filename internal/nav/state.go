// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package nav

import "github.com/monadic/nugman/internal/nuget"

// NoIndex marks an entry with no list position to restore.
const NoIndex = -1

// Entry is a history item: a view and the list index to restore on return.
type Entry struct {
	View        View
	ReturnIndex int
}

// State is the navigation state machine. It is not safe for concurrent use;
// the UI loop is its only writer.
type State struct {
	current View
	history []Entry
	epoch   uint64

	sources   []nuget.Source
	locations []nuget.CacheLocation
	packages  []nuget.LocalPackage
}

// New returns the initial state: the main menu with empty history.
func New() *State {
	return &State{current: MainMenu{}}
}

// Current returns the active view.
func (s *State) Current() View { return s.current }

// History returns a copy of the navigation stack, oldest first.
func (s *State) History() []Entry {
	return append([]Entry(nil), s.history...)
}

// Depth is the number of entries on the stack.
func (s *State) Depth() int { return len(s.history) }

// Epoch increases on every transition. Work started under an older epoch
// belongs to a screen the user has left.
func (s *State) Epoch() uint64 { return s.epoch }

// Navigate pushes the current view and makes v current.
func (s *State) Navigate(v View) {
	s.NavigateFrom(v, NoIndex)
}

// NavigateFrom is Navigate, remembering fromIndex as the list position to
// restore when the user comes back.
func (s *State) NavigateFrom(v View, fromIndex int) {
	s.history = append(s.history, Entry{View: s.current, ReturnIndex: fromIndex})
	s.current = v
	s.epoch++
}

// GoBack pops the most recent entry and makes its view current. With an empty
// stack it resets to the main menu and returns NoIndex.
func (s *State) GoBack() Entry {
	s.epoch++
	if len(s.history) == 0 {
		s.current = MainMenu{}
		return Entry{View: s.current, ReturnIndex: NoIndex}
	}

	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.current = last.View
	return last
}

// Reset clears history and returns to the main menu.
func (s *State) Reset() {
	s.history = nil
	s.current = MainMenu{}
	s.epoch++
}

// SetSources replaces the cached source list.
func (s *State) SetSources(v []nuget.Source) {
	s.sources = append([]nuget.Source(nil), v...)
}

// Sources returns a copy of the cached source list.
func (s *State) Sources() []nuget.Source {
	return append([]nuget.Source(nil), s.sources...)
}

// SetCacheLocations replaces the cached cache locations.
func (s *State) SetCacheLocations(v []nuget.CacheLocation) {
	s.locations = append([]nuget.CacheLocation(nil), v...)
}

// CacheLocations returns a copy of the cached cache locations.
func (s *State) CacheLocations() []nuget.CacheLocation {
	return append([]nuget.CacheLocation(nil), s.locations...)
}

// SetLocalPackages replaces the cached local feed packages.
func (s *State) SetLocalPackages(v []nuget.LocalPackage) {
	s.packages = append([]nuget.LocalPackage(nil), v...)
}

// LocalPackages returns a copy of the cached local feed packages.
func (s *State) LocalPackages() []nuget.LocalPackage {
	return append([]nuget.LocalPackage(nil), s.packages...)
}
