// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/nuget"
	"github.com/monadic/nugman/internal/sources"
)

type sourceSavedMsg struct {
	epochTag
	err error
}

const (
	fieldName = iota
	fieldURL
)

// sourceFormScreen adds a source, or edits one when editing is set.
type sourceFormScreen struct {
	env *env
	tag epochTag

	editing  bool
	name     string
	original nuget.Source
	found    bool

	inputs []textinput.Model
	focus  int
	saving bool
	status statusLine
}

func newSourceFormScreen(e *env, name string) *sourceFormScreen {
	s := &sourceFormScreen{
		env:     e,
		tag:     epochTag{e.nav.Epoch()},
		editing: name != "",
		name:    name,
		inputs:  make([]textinput.Model, 2),
	}

	nameInput := textinput.New()
	nameInput.Placeholder = "Source name"
	nameInput.CharLimit = 128
	urlInput := textinput.New()
	urlInput.Placeholder = "https://... or a local directory"
	urlInput.CharLimit = 1024
	s.inputs[fieldName], s.inputs[fieldURL] = nameInput, urlInput

	if s.editing {
		for _, src := range e.nav.Sources() {
			if src.Name == name {
				s.original, s.found = src, true
				break
			}
		}
		s.inputs[fieldName].SetValue(s.original.Name)
		s.inputs[fieldURL].SetValue(s.original.URL)
	}
	return s
}

func (s *sourceFormScreen) readOnly() bool {
	return s.editing && (!s.found || !s.original.Editable())
}

func (s *sourceFormScreen) Init() tea.Cmd {
	if s.readOnly() {
		return nil
	}
	return s.inputs[fieldName].Focus()
}

func (s *sourceFormScreen) save() tea.Cmd {
	name := strings.TrimSpace(s.inputs[fieldName].Value())
	url := strings.TrimSpace(s.inputs[fieldURL].Value())
	if name == "" {
		s.status = warnStatus("Name is required")
		return nil
	}
	if url == "" {
		s.status = warnStatus("URL is required")
		return nil
	}

	s.saving = true
	s.status = infoStatus("Saving...")
	tag, svc := s.tag, s.env.svc.sources
	if !s.editing {
		return func() tea.Msg {
			return sourceSavedMsg{epochTag: tag, err: svc.Add(context.Background(), name, url)}
		}
	}

	original := s.original
	changes := sources.Diff(original, name, url)
	return func() tea.Msg {
		return sourceSavedMsg{epochTag: tag, err: svc.Update(context.Background(), original.Name, changes)}
	}
}

func (s *sourceFormScreen) setFocus(i int) tea.Cmd {
	s.focus = i
	var cmd tea.Cmd
	for j := range s.inputs {
		if j == i {
			cmd = s.inputs[j].Focus()
		} else {
			s.inputs[j].Blur()
		}
	}
	return cmd
}

func (s *sourceFormScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case sourceSavedMsg:
		s.saving = false
		if msg.err != nil {
			s.env.logger.Warn("save source", zap.Error(msg.err))
			s.status = errorStatus(msg.err)
			return s, nil
		}
		return s, goBack

	case tea.KeyMsg:
		if s.readOnly() || s.saving {
			return s, nil
		}
		switch {
		case key.Matches(msg, s.env.keys.Back):
			return s, goBack
		case key.Matches(msg, s.env.keys.Tab), msg.Type == tea.KeyShiftTab:
			return s, s.setFocus((s.focus + 1) % len(s.inputs))
		case key.Matches(msg, s.env.keys.Enter):
			if !s.editing && s.focus == fieldName {
				return s, s.setFocus(fieldURL)
			}
			return s, s.save()
		}
		var cmd tea.Cmd
		s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
		return s, cmd
	}

	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return s, cmd
}

func (s *sourceFormScreen) View(width, height int) string {
	var b strings.Builder
	switch {
	case !s.editing:
		b.WriteString(titleStyle.Render("Add Package Source"))
	case s.readOnly():
		b.WriteString(titleStyle.Render("Edit Package Source (Read Only)"))
	default:
		b.WriteString(titleStyle.Render("Edit Package Source"))
	}
	b.WriteString("\n")

	if s.editing && !s.found {
		b.WriteString(errorStatus(errors.New("source not found: " + s.name)).View())
		return b.String()
	}

	if s.readOnly() {
		b.WriteString(field("Name", valueStyle.Render(s.original.Name)) + "\n")
		b.WriteString(field("URL", valueStyle.Render(s.original.URL)) + "\n")
		b.WriteString(field("Level", string(s.original.ConfigLevel)) + "\n\n")
		b.WriteString(dimStyle.Render("Only sources in the user-level config can be changed."))
		return b.String()
	}

	labels := []string{"Name", "URL"}
	for i, in := range s.inputs {
		label := dimStyle.Render(labels[i] + ":")
		if i == s.focus {
			label = activeStyle.Render(labels[i] + ":")
		}
		b.WriteString(label + " " + in.View() + "\n")
	}

	if s.editing {
		changes := sources.Diff(s.original, s.inputs[fieldName].Value(), s.inputs[fieldURL].Value())
		if changes.IsEmpty() {
			b.WriteString("\n" + dimStyle.Render("No changes"))
		}
	} else if strings.TrimSpace(s.inputs[fieldName].Value()) == "" {
		b.WriteString("\n" + dimStyle.Render("Name is required"))
	}
	if s.status.kind != statusNone {
		b.WriteString("\n\n" + s.status.View())
	}
	return b.String()
}

func (s *sourceFormScreen) Keys() []key.Binding {
	if s.readOnly() {
		return nil
	}
	k := s.env.keys
	save := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save"))
	return []key.Binding{k.Tab, save}
}

func (s *sourceFormScreen) Capturing() bool { return !s.readOnly() }
