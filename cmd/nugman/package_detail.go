// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/monadic/nugman/internal/format"
	"github.com/monadic/nugman/internal/metadata"
	"github.com/monadic/nugman/internal/nuget"
)

type metadataLoadedMsg struct {
	epochTag
	meta nuget.PackageMetadata
	err  error
}

type packageDetailScreen struct {
	env  *env
	tag  epochTag
	path string

	meta    *nuget.PackageMetadata
	loading bool
	spinner spinner.Model
	status  statusLine

	vp     viewport.Model
	width  int
	height int
}

func newPackageDetailScreen(e *env, path string) *packageDetailScreen {
	vp := viewport.New(minWidth, minHeight-chromeHeight)
	vp.MouseWheelEnabled = true
	return &packageDetailScreen{
		env:     e,
		tag:     epochTag{e.nav.Epoch()},
		path:    path,
		loading: true,
		spinner: newSpinner(),
		vp:      vp,
	}
}

func (s *packageDetailScreen) Init() tea.Cmd {
	tag, path := s.tag, s.path
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		meta, err := metadata.ReadMetadata(path)
		return metadataLoadedMsg{epochTag: tag, meta: meta, err: err}
	})
}

func (s *packageDetailScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width, s.height = bodySize(msg)
		s.vp.Width = s.width
		s.vp.Height = max(s.height-2, 1)
		s.render()
		return s, nil

	case spinner.TickMsg:
		if !s.loading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case metadataLoadedMsg:
		s.loading = false
		if msg.err != nil {
			s.env.logger.Warn("read package metadata", zap.String("path", s.path), zap.Error(msg.err))
			s.status = errorStatus(msg.err)
			return s, nil
		}
		s.meta = &msg.meta
		s.render()
		return s, nil
	}

	var cmd tea.Cmd
	s.vp, cmd = s.vp.Update(msg)
	return s, cmd
}

func (s *packageDetailScreen) render() {
	if s.meta == nil {
		return
	}
	s.vp.SetContent(renderPackageMetadata(*s.meta, s.path, s.vp.Width))
}

// renderPackageMetadata lays out a manifest for the detail viewport.
func renderPackageMetadata(meta nuget.PackageMetadata, path string, width int) string {
	wrap := lipgloss.NewStyle().Width(max(width-4, 20))
	var blocks []string

	var general []string
	if meta.Title != "" && meta.Title != meta.ID {
		general = append(general, field("Title", meta.Title))
	}
	general = append(general,
		field("Authors", meta.Authors),
		field("License", licenseText(meta.License)),
		field("Project URL", meta.ProjectURL),
		field("Copyright", meta.Copyright),
		field("Tags", strings.Join(meta.Tags, ", ")),
		field("Package URL", valueStyle.Render(meta.PackageURL)),
		field("File", dimStyle.Render(path)),
	)
	if r := meta.Repository; r != nil {
		repo := r.URL
		if r.Type != "" {
			repo = fmt.Sprintf("%s (%s)", r.URL, r.Type)
		}
		if r.Branch != "" {
			repo += " branch " + r.Branch
		}
		if r.Commit != "" {
			repo += " @ " + format.Truncate(r.Commit, 12)
		}
		general = append(general, field("Repository", repo))
	}
	blocks = append(blocks, section("General", general...))

	if meta.Description != "" {
		blocks = append(blocks, section("Description", wrap.Render(meta.Description)))
	}

	if len(meta.TargetFrameworks) > 0 {
		blocks = append(blocks, section("Target Frameworks", valueStyle.Render(strings.Join(meta.TargetFrameworks, "  "))))
	}

	if len(meta.Dependencies) == 0 {
		blocks = append(blocks, section("Dependencies", dimStyle.Render("None")))
	} else {
		var lines []string
		for _, g := range meta.Dependencies {
			name := g.TargetFramework
			if name == "" {
				name = "All frameworks"
			}
			lines = append(lines, activeStyle.Render(name))
			if len(g.Dependencies) == 0 {
				lines = append(lines, "  "+dimStyle.Render("No dependencies"))
			}
			for _, d := range g.Dependencies {
				lines = append(lines, "  "+format.PadRight(d.ID, 40)+" "+dimStyle.Render(d.VersionRange))
			}
		}
		blocks = append(blocks, section("Dependencies", lines...))
	}

	if meta.ReleaseNotes != "" {
		blocks = append(blocks, section("Release Notes", wrap.Render(meta.ReleaseNotes)))
	}
	return strings.Join(blocks, "\n\n")
}

func licenseText(l *nuget.PackageLicense) string {
	if l == nil {
		return ""
	}
	if l.Type == nuget.LicenseFile {
		return l.Value + dimStyle.Render(" (file in package)")
	}
	return l.Value
}

func (s *packageDetailScreen) View(width, height int) string {
	var b strings.Builder
	switch {
	case s.meta != nil:
		b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s %s", iconPackage, s.meta.ID, s.meta.Version)))
		b.WriteString("\n")
		b.WriteString(s.vp.View())
	case s.loading:
		b.WriteString(titleStyle.Render("Package Detail"))
		b.WriteString("\n" + s.spinner.View() + " Reading package...")
	default:
		b.WriteString(titleStyle.Render("Package Detail"))
		b.WriteString("\n" + dimStyle.Render(s.path))
		b.WriteString("\n\n" + s.status.View())
	}
	return b.String()
}

func (s *packageDetailScreen) Keys() []key.Binding {
	k := s.env.keys
	scroll := key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑↓/jk", "scroll"))
	return []key.Binding{scroll, k.PageDown, k.PageUp}
}

func (s *packageDetailScreen) Capturing() bool { return false }
