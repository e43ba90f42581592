// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/format"
	"github.com/monadic/nugman/internal/metadata"
	"github.com/monadic/nugman/internal/nav"
	"github.com/monadic/nugman/internal/search"
	"github.com/monadic/nugman/pkg/queries"
)

type (
	searchResultsMsg struct {
		epochTag
		seq     int
		term    string
		page    int
		results []search.Result
		err     error
	}

	searchSavedMsg struct {
		epochTag
		name    string
		updated bool
		err     error
	}

	searchDeletedMsg struct {
		epochTag
		name string
		err  error
	}
)

// searchCmd runs one page of a search and records the term as recent on success.
func searchCmd(tag epochTag, seq int, svc searchService, store searchStore, logger *zap.Logger, term string, page int, prerelease bool) tea.Cmd {
	return func() tea.Msg {
		opts := search.Options{
			Take:       search.DefaultPageSize,
			Skip:       page * search.DefaultPageSize,
			Prerelease: prerelease,
		}
		results, err := svc.Search(context.Background(), term, opts)
		if err == nil && store != nil {
			if rerr := store.RecordRecent(term); rerr != nil {
				logger.Warn("record recent search", zap.Error(rerr))
			}
		}
		return searchResultsMsg{epochTag: tag, seq: seq, term: term, page: page, results: results, err: err}
	}
}

// searchHit locates one package row within a result set.
type searchHit struct {
	source int
	pkg    int
}

type searchScreen struct {
	env *env
	tag epochTag

	input      textinput.Model
	inputFocus bool

	state    searchState
	searched bool
	hits     []searchHit
	results  listView

	saved      []queries.SavedSearch
	savedList  listView
	seq        int
	searching  bool
	spinner    spinner.Model
	status     statusLine
	confirm    *confirmPrompt
}

func newSearchScreen(e *env) *searchScreen {
	ti := textinput.New()
	ti.Placeholder = "Package name or keyword"
	ti.Prompt = "Search: "
	ti.PromptStyle = promptStyle
	ti.CharLimit = 200

	s := &searchScreen{
		env:        e,
		tag:        epochTag{e.nav.Epoch()},
		input:      ti,
		inputFocus: true,
		results:    newListView(e.keys, "No packages matched."),
		savedList:  newListView(e.keys, "No saved searches."),
		spinner:    newSpinner(),
	}
	if e.lastSearch != nil {
		s.state = *e.lastSearch
		s.searched = true
		s.input.SetValue(s.state.term)
		s.inputFocus = false
		s.setResults(s.state.results)
	}
	s.loadSaved()
	return s
}

func (s *searchScreen) loadSaved() {
	if s.env.svc.saved == nil {
		return
	}
	s.saved = s.env.svc.saved.List()
	items := make([]listItem, len(s.saved))
	for i, q := range s.saved {
		badge := dimStyle.Render(q.Category)
		if q.Prerelease {
			badge += " " + statusWarn.Render("pre")
		}
		detail := q.Term
		if q.Description != "" {
			detail = q.Term + " - " + q.Description
		}
		items[i] = listItem{key: q.Category + "/" + q.Name, title: q.Name, detail: detail, badge: badge}
	}
	s.savedList.SetItems(items)
}

func (s *searchScreen) Init() tea.Cmd {
	if s.inputFocus {
		return s.input.Focus()
	}
	return nil
}

func (s *searchScreen) setResults(results []search.Result) {
	s.hits = nil
	var items []listItem
	multi := len(results) > 1
	for si, r := range results {
		for pi, p := range r.Packages {
			s.hits = append(s.hits, searchHit{source: si, pkg: pi})
			badge := valueStyle.Render(p.LatestVersion)
			if p.TotalDownloads != nil {
				badge += " " + dimStyle.Render(iconDownload+format.Downloads(*p.TotalDownloads))
			}
			if multi {
				badge += " " + groupStyle.Render(r.SourceName)
			}
			items = append(items, listItem{
				key:    r.SourceName + "/" + p.ID,
				title:  p.ID,
				detail: strings.Join(strings.Fields(p.Description), " "),
				badge:  badge,
			})
		}
	}
	s.results.SetItems(items)
}

// run starts a search for the input's term at page. It does nothing while
// another search is in flight.
func (s *searchScreen) run(page int) tea.Cmd {
	term := strings.TrimSpace(s.input.Value())
	if term == "" || s.searching {
		return nil
	}
	s.seq++
	s.searching = true
	s.status = statusLine{}
	return tea.Batch(s.spinner.Tick,
		searchCmd(s.tag, s.seq, s.env.svc.search, s.env.svc.saved, s.env.logger, term, page, s.state.prerelease))
}

// hasMore guesses whether another page exists: some source filled the page.
func (s *searchScreen) hasMore() bool {
	for _, r := range s.state.results {
		if len(r.Packages) >= search.DefaultPageSize {
			return true
		}
	}
	return false
}

func (s *searchScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.searching {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case searchResultsMsg:
		if msg.seq != s.seq {
			return s, nil
		}
		s.searching = false
		if msg.err != nil {
			s.env.logger.Warn("search", zap.String("term", msg.term), zap.Error(msg.err))
			s.status = errorStatus(msg.err)
			return s, nil
		}
		s.searched = true
		s.state.term = msg.term
		s.state.page = msg.page
		s.state.results = msg.results
		saved := s.state
		s.env.lastSearch = &saved
		s.setResults(msg.results)
		s.results.SetIndex(0)
		if len(s.hits) > 0 {
			s.inputFocus = false
			s.input.Blur()
		}
		s.loadSaved()
		return s, nil

	case searchSavedMsg:
		if msg.err != nil {
			s.status = errorStatus(msg.err)
			return s, nil
		}
		if msg.updated {
			s.status = successStatus("Updated saved search %q", msg.name)
		} else {
			s.status = successStatus("Saved search %q", msg.name)
		}
		s.loadSaved()
		return s, nil

	case searchDeletedMsg:
		if msg.err != nil {
			s.status = errorStatus(msg.err)
			return s, nil
		}
		s.status = successStatus("Deleted saved search %q", msg.name)
		s.loadSaved()
		return s, nil

	case tea.KeyMsg:
		if s.inputFocus {
			return s.handleInputKey(msg)
		}
		return s.handleListKey(msg)
	}

	if s.inputFocus {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *searchScreen) handleInputKey(msg tea.KeyMsg) (screen, tea.Cmd) {
	k := s.env.keys
	switch {
	case key.Matches(msg, k.Back):
		return s, goBack
	case key.Matches(msg, k.Enter):
		return s, s.run(0)
	case key.Matches(msg, k.Tab):
		s.inputFocus = false
		s.input.Blur()
		return s, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *searchScreen) activeList() *listView {
	if s.searched {
		return &s.results
	}
	return &s.savedList
}

func (s *searchScreen) handleListKey(msg tea.KeyMsg) (screen, tea.Cmd) {
	if s.confirm != nil {
		done, cmd := s.confirm.resolve(msg)
		if done {
			s.confirm = nil
		}
		return s, cmd
	}
	list := s.activeList()
	if list.Filtering() {
		var cmd tea.Cmd
		*list, cmd = list.Update(msg)
		return s, cmd
	}

	k := s.env.keys
	switch {
	case key.Matches(msg, k.Tab):
		s.inputFocus = true
		return s, s.input.Focus()

	case key.Matches(msg, k.Enter):
		idx := list.Index()
		if idx < 0 {
			return s, nil
		}
		if !s.searched {
			if s.searching {
				return s, nil
			}
			q := s.saved[idx]
			s.input.SetValue(q.Term)
			s.state.prerelease = q.Prerelease
			return s, s.run(0)
		}
		hit := s.hits[idx]
		r := s.state.results[hit.source]
		p := r.Packages[hit.pkg]
		return s, navigateTo(nav.SearchResultDetail{
			PackageID:      p.ID,
			SourceName:     r.SourceName,
			LatestVersion:  p.LatestVersion,
			TotalDownloads: p.TotalDownloads,
			Owners:         p.Owners,
		}, idx)

	case key.Matches(msg, k.NextPage):
		if s.searched && !s.searching && s.hasMore() {
			return s, s.run(s.state.page + 1)
		}
		return s, nil

	case key.Matches(msg, k.PrevPage):
		if s.searched && !s.searching && s.state.page > 0 {
			return s, s.run(s.state.page - 1)
		}
		return s, nil

	case key.Matches(msg, k.Prerel):
		if s.searching {
			return s, nil
		}
		s.state.prerelease = !s.state.prerelease
		if s.searched {
			return s, s.run(0)
		}
		return s, nil

	case key.Matches(msg, k.Save):
		term := strings.TrimSpace(s.input.Value())
		if term == "" || s.env.svc.saved == nil {
			return s, nil
		}
		tag, store, prerelease := s.tag, s.env.svc.saved, s.state.prerelease
		return s, func() tea.Msg {
			prev, found := store.Get(term)
			err := store.Save(queries.SavedSearch{Name: term, Term: term, Prerelease: prerelease})
			return searchSavedMsg{epochTag: tag, name: term, updated: found && prev.Category == queries.CategoryUser, err: err}
		}

	case key.Matches(msg, k.Delete):
		idx := list.Index()
		if s.searched || idx < 0 || s.env.svc.saved == nil {
			return s, nil
		}
		q := s.saved[idx]
		if q.Category != queries.CategoryUser {
			s.status = warnStatus("Only your own saved searches can be deleted")
			return s, nil
		}
		tag, store := s.tag, s.env.svc.saved
		s.confirm = &confirmPrompt{
			question: fmt.Sprintf("Delete saved search %q?", q.Name),
			action: func() tea.Msg {
				return searchDeletedMsg{epochTag: tag, name: q.Name, err: store.Delete(q.Name)}
			},
		}
		return s, nil
	}

	var cmd tea.Cmd
	*list, cmd = list.Update(msg)
	return s, cmd
}

func (s *searchScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Package Search"))
	b.WriteString("\n")

	box := paneStyle
	if s.inputFocus {
		box = activePaneStyle
	}
	b.WriteString(box.Width(max(width-4, 20)).Render(s.input.View()))
	b.WriteString("\n")

	flags := "stable only"
	if s.state.prerelease {
		flags = statusWarn.Render("including prerelease")
	}
	info := dimStyle.Render(flags)
	switch {
	case s.searching:
		info = s.spinner.View() + " Searching..."
	case s.searched:
		info += dimStyle.Render(fmt.Sprintf(" · %d results · page %d", search.Count(s.state.results), s.state.page+1))
		if s.hasMore() {
			info += dimStyle.Render(" · more available")
		}
	}
	b.WriteString(info)
	b.WriteString("\n\n")

	listHeight := height - 7
	footer := ""
	if s.confirm != nil {
		footer = s.confirm.View()
	} else if s.status.kind != statusNone {
		footer = s.status.View()
	}
	if footer != "" {
		listHeight -= strings.Count(footer, "\n") + 2
	}
	if s.searched {
		b.WriteString(s.results.View(width, listHeight))
	} else {
		b.WriteString(groupStyle.Render("Saved and recent searches") + "\n")
		b.WriteString(s.savedList.View(width, listHeight-1))
	}
	if footer != "" {
		b.WriteString("\n\n" + footer)
	}
	return b.String()
}

func (s *searchScreen) Keys() []key.Binding {
	k := s.env.keys
	if s.inputFocus {
		run := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search"))
		results := key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "results"))
		return []key.Binding{run, results}
	}
	input := key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "edit term"))
	if !s.searched {
		return []key.Binding{k.Up, k.Down, k.Enter, input, k.Prerel, k.Delete, k.Filter}
	}
	return []key.Binding{k.Up, k.Down, k.Enter, input, k.NextPage, k.PrevPage, k.Prerel, k.Save, k.Filter}
}

func (s *searchScreen) Capturing() bool {
	return s.inputFocus || s.confirm != nil || s.activeList().Filtering()
}

func (s *searchScreen) Cursor() int {
	return s.activeList().Index()
}

func (s *searchScreen) SetCursor(i int) {
	s.activeList().SetIndex(i)
}

type searchDetailScreen struct {
	env  *env
	view nav.SearchResultDetail

	description string
}

func newSearchDetailScreen(e *env, v nav.SearchResultDetail) *searchDetailScreen {
	s := &searchDetailScreen{env: e, view: v}
	if e.lastSearch != nil {
		for _, r := range e.lastSearch.results {
			if r.SourceName != v.SourceName {
				continue
			}
			for _, p := range r.Packages {
				if p.ID == v.PackageID {
					s.description = p.Description
				}
			}
		}
	}
	return s
}

func (s *searchDetailScreen) Init() tea.Cmd { return nil }

func (s *searchDetailScreen) Update(msg tea.Msg) (screen, tea.Cmd) { return s, nil }

func (s *searchDetailScreen) View(width, height int) string {
	v := s.view
	downloads := dimStyle.Render("not reported")
	if v.TotalDownloads != nil {
		downloads = valueStyle.Render(format.Grouped(*v.TotalDownloads)) + dimStyle.Render(" ("+format.Downloads(*v.TotalDownloads)+")")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(iconPackage + " " + v.PackageID))
	b.WriteString("\n")
	b.WriteString(section("Package",
		field("Latest", valueStyle.Render(v.LatestVersion)),
		field("Source", v.SourceName),
		field("Downloads", downloads),
		field("Owners", v.Owners),
		field("Package URL", valueStyle.Render(metadata.PackageURL(v.PackageID, v.LatestVersion))),
	))
	if s.description != "" {
		b.WriteString("\n\n")
		wrap := lipgloss.NewStyle().Width(max(width-4, 20))
		b.WriteString(section("Description", wrap.Render(s.description)))
	}
	return b.String()
}

func (s *searchDetailScreen) Keys() []key.Binding { return nil }

func (s *searchDetailScreen) Capturing() bool { return false }
