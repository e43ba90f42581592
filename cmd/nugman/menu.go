// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/monadic/nugman/internal/nav"
)

type menuEntry struct {
	view    nav.View
	hotkey  string
	summary string
}

var menuEntries = []menuEntry{
	{nav.Sources{}, "1", "Add, edit, enable and health-check package sources"},
	{nav.Cache{}, "2", "Inspect and clear the NuGet caches"},
	{nav.LocalSource{}, "3", "Manage packages in the local feed"},
	{nav.PackageSearch{}, "4", "Search packages across sources"},
	{nav.ConfigViewer{}, "5", "Show the NuGet config files in effect"},
}

type menuScreen struct {
	env  *env
	list listView
}

func newMenuScreen(e *env) *menuScreen {
	s := &menuScreen{env: e, list: newListView(e.keys, "")}
	items := make([]listItem, len(menuEntries))
	for i, entry := range menuEntries {
		items[i] = listItem{
			key:    entry.view.Title(),
			title:  entry.view.Title(),
			detail: entry.summary,
			badge:  helpKeyStyle.Render(entry.hotkey),
		}
	}
	s.list.SetItems(items)
	return s
}

func (s *menuScreen) Init() tea.Cmd { return nil }

func (s *menuScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	if !s.list.Filtering() {
		for i, entry := range menuEntries {
			if km.String() == entry.hotkey {
				return s, navigateTo(entry.view, i)
			}
		}
		if key.Matches(km, s.env.keys.Enter) {
			if i := s.list.Index(); i >= 0 {
				return s, navigateTo(menuEntries[i].view, i)
			}
			return s, nil
		}
	}
	var cmd tea.Cmd
	s.list, cmd = s.list.Update(km)
	return s, cmd
}

func (s *menuScreen) View(width, height int) string {
	return titleStyle.Render("What do you want to manage?") + "\n" + s.list.View(width, height-2)
}

func (s *menuScreen) Keys() []key.Binding {
	k := s.env.keys
	return []key.Binding{k.Up, k.Down, k.Enter, k.Filter}
}

func (s *menuScreen) Capturing() bool { return s.list.Filtering() }

func (s *menuScreen) Cursor() int     { return s.list.Index() }
func (s *menuScreen) SetCursor(i int) { s.list.SetIndex(i) }
