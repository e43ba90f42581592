// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/clierr"
	"github.com/monadic/nugman/internal/format"
	"github.com/monadic/nugman/internal/localfeed"
	"github.com/monadic/nugman/internal/metadata"
	"github.com/monadic/nugman/internal/nav"
	"github.com/monadic/nugman/internal/nuget"
)

// buildTail is the number of build output lines kept on screen.
const buildTail = 10

type (
	packagesLoadedMsg struct {
		epochTag
		packages []nuget.LocalPackage
		err      error
	}

	packagesRemovedMsg struct {
		epochTag
		count int
		err   error
	}

	packageAddedMsg struct {
		epochTag
		result localfeed.AddResult
	}

	buildLineMsg struct {
		epochTag
		line string
		ch   <-chan tea.Msg
	}

	buildDoneMsg struct {
		epochTag
		result localfeed.AddResult
	}
)

func (m buildLineMsg) next() tea.Cmd { return waitForBuild(m.ch) }

func loadPackagesCmd(tag epochTag, feed feedService) tea.Cmd {
	return func() tea.Msg {
		pkgs, err := feed.ListPackages()
		return packagesLoadedMsg{epochTag: tag, packages: pkgs, err: err}
	}
}

func removePackagesCmd(tag epochTag, feed feedService, paths []string) tea.Cmd {
	return func() tea.Msg {
		return packagesRemovedMsg{epochTag: tag, count: len(paths), err: feed.RemovePackages(paths)}
	}
}

// addFileCmd validates the archive, rejects a package already in the feed
// under another file name, then copies it.
func addFileCmd(tag epochTag, feed feedService, path string) tea.Cmd {
	return func() tea.Msg {
		if v := metadata.Validate(path); !v.Valid {
			return packageAddedMsg{epochTag: tag, result: localfeed.AddResult{Kind: localfeed.AddError, Message: v.Reason}}
		}
		if id, err := metadata.ReadIdentity(path); err == nil {
			if existing, dup, _ := feed.CheckDuplicate(id.ID, id.Version); dup {
				return packageAddedMsg{epochTag: tag, result: localfeed.AddResult{
					Kind:    localfeed.AddDuplicate,
					Package: existing,
					Message: fmt.Sprintf("%s %s is already in the local source as %s", id.ID, id.Version, existing.FileName),
				}}
			}
		}
		return packageAddedMsg{epochTag: tag, result: feed.AddPackageFromFile(path)}
	}
}

// buildCmd runs the build on its own goroutine and relays its output through
// a channel read one message at a time.
func buildCmd(tag epochTag, feed feedService, project string) tea.Cmd {
	return func() tea.Msg {
		ch := make(chan tea.Msg)
		go func() {
			defer close(ch)
			result := feed.AddPackageFromBuild(context.Background(), project, func(line string) {
				ch <- buildLineMsg{epochTag: tag, line: line, ch: ch}
			})
			ch <- buildDoneMsg{epochTag: tag, result: result}
		}()
		return <-ch
	}
}

func waitForBuild(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

type localScreen struct {
	env *env
	tag epochTag

	list     listView
	packages []nuget.LocalPackage

	loading bool
	spinner spinner.Model
	status  statusLine
	confirm *confirmPrompt
}

func newLocalScreen(e *env) *localScreen {
	s := &localScreen{
		env:     e,
		tag:     epochTag{e.nav.Epoch()},
		list:    newListView(e.keys, clierr.NothingFound("packages")+" Press a to add one."),
		loading: true,
		spinner: newSpinner(),
	}
	s.list.multi = true
	s.setPackages(e.nav.LocalPackages())
	return s
}

func (s *localScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, loadPackagesCmd(s.tag, s.env.svc.feed))
}

func (s *localScreen) setPackages(pkgs []nuget.LocalPackage) {
	s.packages = pkgs
	items := make([]listItem, len(pkgs))
	for i, p := range pkgs {
		items[i] = listItem{
			key:    p.FilePath,
			title:  p.ID,
			detail: p.Version,
			badge:  dimStyle.Render(format.Bytes(p.FileSizeBytes)),
		}
	}
	s.list.SetItems(items)
}

func (s *localScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.loading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case packagesLoadedMsg:
		s.loading = false
		if msg.err != nil {
			s.env.logger.Warn("list local packages", zap.Error(msg.err))
			s.status = errorStatus(msg.err)
			return s, nil
		}
		s.env.nav.SetLocalPackages(msg.packages)
		s.setPackages(msg.packages)
		return s, nil

	case packagesRemovedMsg:
		if msg.err != nil {
			s.env.logger.Warn("remove local packages", zap.Error(msg.err))
			s.status = errorStatus(msg.err)
		} else if msg.count == 1 {
			s.status = successStatus("Removed 1 package")
		} else {
			s.status = successStatus("Removed %d packages", msg.count)
		}
		s.list.ClearSelection()
		s.loading = true
		return s, tea.Batch(s.spinner.Tick, loadPackagesCmd(s.tag, s.env.svc.feed))

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

// targets are the selected packages, or the one under the cursor.
func (s *localScreen) targets() []string {
	if sel := s.list.Selected(); len(sel) > 0 {
		return sel
	}
	if i := s.list.Index(); i >= 0 {
		return []string{s.packages[i].FilePath}
	}
	return nil
}

func (s *localScreen) handleKey(msg tea.KeyMsg) (screen, tea.Cmd) {
	if s.confirm != nil {
		done, cmd := s.confirm.resolve(msg)
		if done {
			s.confirm = nil
		}
		return s, cmd
	}
	if s.list.Filtering() {
		var cmd tea.Cmd
		s.list, cmd = s.list.Update(msg)
		return s, cmd
	}

	k := s.env.keys
	idx := s.list.Index()
	switch {
	case key.Matches(msg, k.Add):
		return s, navigateTo(nav.LocalSourceAdd{}, idx)

	case key.Matches(msg, k.Enter), key.Matches(msg, k.Inspect):
		if idx >= 0 {
			return s, navigateTo(nav.PackageDetail{PackagePath: s.packages[idx].FilePath}, idx)
		}
		return s, nil

	case key.Matches(msg, k.Delete):
		paths := s.targets()
		if len(paths) == 0 {
			return s, nil
		}
		question := fmt.Sprintf("Remove %s from the local source?", filepath.Base(paths[0]))
		if len(paths) > 1 {
			question = fmt.Sprintf("Remove %d packages from the local source?", len(paths))
		}
		s.confirm = &confirmPrompt{question: question, action: removePackagesCmd(s.tag, s.env.svc.feed, paths)}
		return s, nil

	case key.Matches(msg, k.Refresh):
		s.loading = true
		s.status = statusLine{}
		return s, tea.Batch(s.spinner.Tick, loadPackagesCmd(s.tag, s.env.svc.feed))
	}

	var cmd tea.Cmd
	s.list, cmd = s.list.Update(msg)
	return s, cmd
}

func (s *localScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Local Source: %s (%d packages)", s.env.svc.feed.Name(), len(s.packages))))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(s.env.svc.feed.Dir()))
	if n := len(s.list.Selected()); n > 0 {
		b.WriteString("  " + activeStyle.Render(fmt.Sprintf("%d selected", n)))
	}
	b.WriteString("\n")
	height--
	if s.loading {
		b.WriteString(s.spinner.View() + " Loading packages...\n")
		height--
	}

	footer := ""
	if s.confirm != nil {
		footer = s.confirm.View()
	} else if s.status.kind != statusNone {
		footer = s.status.View()
	}
	listHeight := height - 2
	if footer != "" {
		listHeight -= strings.Count(footer, "\n") + 2
	}
	b.WriteString(s.list.View(width, listHeight))
	if footer != "" {
		b.WriteString("\n\n" + footer)
	}
	return b.String()
}

func (s *localScreen) Keys() []key.Binding {
	k := s.env.keys
	return []key.Binding{k.Up, k.Down, k.Select, k.Add, k.Delete, k.Inspect, k.Refresh, k.Filter}
}

func (s *localScreen) Capturing() bool { return s.confirm != nil || s.list.Filtering() }

func (s *localScreen) Cursor() int     { return s.list.Index() }
func (s *localScreen) SetCursor(i int) { s.list.SetIndex(i) }

type addMode int

const (
	addFromFile addMode = iota
	addFromBuild
)

type addPackageScreen struct {
	env *env
	tag epochTag

	mode       addMode
	input      textinput.Model
	processing bool
	output     []string
	spinner    spinner.Model
	status     statusLine
}

func newAddPackageScreen(e *env) *addPackageScreen {
	s := &addPackageScreen{
		env:     e,
		tag:     epochTag{e.nav.Epoch()},
		input:   textinput.New(),
		spinner: newSpinner(),
	}
	s.input.CharLimit = 1024
	s.setMode(addFromFile)
	return s
}

func (s *addPackageScreen) setMode(m addMode) {
	s.mode = m
	s.input.SetValue("")
	s.output = nil
	s.status = statusLine{}
	if m == addFromFile {
		s.input.Placeholder = "/path/to/package.nupkg"
	} else {
		s.input.Placeholder = "/path/to/project.csproj"
	}
}

func (s *addPackageScreen) Init() tea.Cmd { return s.input.Focus() }

func (s *addPackageScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.processing {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case buildLineMsg:
		s.output = append(s.output, msg.line)
		if len(s.output) > buildTail {
			s.output = s.output[len(s.output)-buildTail:]
		}
		return s, msg.next()

	case buildDoneMsg:
		return s.finish(msg.result)

	case packageAddedMsg:
		return s.finish(msg.result)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.env.keys.Back):
			return s, goBack
		case s.processing:
			return s, nil
		case key.Matches(msg, s.env.keys.Tab):
			s.setMode(1 - s.mode)
			return s, nil
		case key.Matches(msg, s.env.keys.Enter):
			return s, s.submit()
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *addPackageScreen) submit() tea.Cmd {
	path := strings.TrimSpace(s.input.Value())
	if path == "" {
		return nil
	}
	s.processing = true
	s.output = nil
	s.status = statusLine{}
	if s.mode == addFromFile {
		return tea.Batch(s.spinner.Tick, addFileCmd(s.tag, s.env.svc.feed, path))
	}
	s.env.logger.Info("building package", zap.String("project", path))
	return tea.Batch(s.spinner.Tick, buildCmd(s.tag, s.env.svc.feed, path))
}

func (s *addPackageScreen) finish(r localfeed.AddResult) (screen, tea.Cmd) {
	s.processing = false
	switch r.Kind {
	case localfeed.AddSuccess:
		s.env.logger.Info("package added", zap.String("id", r.Package.ID), zap.String("version", r.Package.Version))
		return s, goBack
	case localfeed.AddDuplicate:
		msg := r.Message
		if msg == "" {
			msg = r.Package.FileName + " is already in the local source"
		}
		s.status = warnStatus("%s", msg)
	default:
		s.env.logger.Warn("add package", zap.String("message", r.Message))
		s.status = failureStatus(r.Message)
	}
	return s, nil
}

func (s *addPackageScreen) View(width, height int) string {
	var b strings.Builder
	title, label, mode := "Add Package From File", "File path:", "Import .nupkg file"
	if s.mode == addFromBuild {
		title, label, mode = "Add Package From Build", "Project path:", "Build with dotnet pack"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(activeStyle.Render(label) + " " + s.input.View())
	b.WriteString("\n\n")

	if s.processing {
		verb := "Adding package..."
		if s.mode == addFromBuild {
			verb = "Building..."
		}
		b.WriteString(s.spinner.View() + " " + verb)
	} else {
		b.WriteString(dimStyle.Render("Mode: " + mode + " (tab to switch)"))
	}

	if len(s.output) > 0 {
		b.WriteString("\n")
		for _, line := range s.output {
			b.WriteString("\n" + dimStyle.Render(format.Truncate(line, width-2)))
		}
	}
	if s.status.kind != statusNone {
		b.WriteString("\n\n" + s.status.View())
	}
	return b.String()
}

func (s *addPackageScreen) Keys() []key.Binding {
	mode := key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch mode"))
	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit"))
	return []key.Binding{mode, submit}
}

func (s *addPackageScreen) Capturing() bool { return true }
