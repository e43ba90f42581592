// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/monadic/nugman/internal/clierr"
	"github.com/monadic/nugman/internal/format"
)

// listItem is one row of a listView.
type listItem struct {
	// key identifies the item across reloads (used by multi-select).
	key    string
	title  string
	detail string
	// badge is rendered after the detail column as-is.
	badge string
}

type itemSource []listItem

func (s itemSource) String(i int) string { return s[i].title }
func (s itemSource) Len() int            { return len(s) }

// listView is a scrolling list with fuzzy filtering and optional multi-select.
type listView struct {
	keys  keyMap
	items []listItem

	// visible holds indices into items, in display order.
	visible []int
	matched map[int][]int
	cursor  int
	offset  int

	filter    textinput.Model
	filtering bool

	multi    bool
	selected map[string]bool

	// want is a position requested before any items arrived.
	want  int
	empty string
}

func newListView(keys keyMap, empty string) listView {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = promptStyle
	ti.Placeholder = "filter"
	ti.CharLimit = 100
	return listView{
		keys:     keys,
		filter:   ti,
		selected: map[string]bool{},
		want:     -1,
		empty:    empty,
	}
}

// SetItems replaces the rows, keeping the filter and the cursor position where possible.
func (l *listView) SetItems(items []listItem) {
	current := l.Index()
	if current < 0 && l.want >= 0 {
		current, l.want = l.want, -1
	}
	l.items = items
	l.refilter()

	keep := map[string]bool{}
	for _, it := range items {
		if l.selected[it.key] {
			keep[it.key] = true
		}
	}
	l.selected = keep

	if current >= 0 {
		l.SetIndex(current)
	}
}

func (l *listView) refilter() {
	query := strings.TrimSpace(l.filter.Value())
	l.visible = make([]int, 0, len(l.items))
	l.matched = nil
	if query == "" {
		for i := range l.items {
			l.visible = append(l.visible, i)
		}
	} else {
		l.matched = map[int][]int{}
		for _, m := range fuzzy.FindFrom(query, itemSource(l.items)) {
			l.visible = append(l.visible, m.Index)
			l.matched[m.Index] = m.MatchedIndexes
		}
	}
	l.clamp()
}

func (l *listView) clamp() {
	if l.cursor >= len(l.visible) {
		l.cursor = len(l.visible) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

// Len is the number of visible rows.
func (l listView) Len() int { return len(l.visible) }

// Query returns the active filter text.
func (l listView) Query() string { return strings.TrimSpace(l.filter.Value()) }

// Filtering reports whether the filter input has focus.
func (l listView) Filtering() bool { return l.filtering }

// Index returns the item index under the cursor, or -1 when nothing is visible.
func (l listView) Index() int {
	if len(l.visible) == 0 {
		return -1
	}
	return l.visible[l.cursor]
}

// SetIndex moves the cursor to item i. Positions beyond the end clamp to the last row.
func (l *listView) SetIndex(i int) {
	if len(l.items) == 0 {
		l.want = i
		return
	}
	for pos, idx := range l.visible {
		if idx == i {
			l.cursor = pos
			return
		}
	}
	if i >= 0 {
		l.cursor = i
		l.clamp()
	}
}

// Selected returns the keys of the selected items in item order.
func (l listView) Selected() []string {
	var keys []string
	for _, it := range l.items {
		if l.selected[it.key] {
			keys = append(keys, it.key)
		}
	}
	return keys
}

func (l *listView) ClearSelection() {
	l.selected = map[string]bool{}
}

// Update handles navigation, filter and selection keys.
func (l listView) Update(msg tea.KeyMsg) (listView, tea.Cmd) {
	if l.filtering {
		switch msg.Type {
		case tea.KeyEsc:
			l.filtering = false
			l.filter.Blur()
			l.filter.SetValue("")
			l.refilter()
			return l, nil
		case tea.KeyEnter:
			l.filtering = false
			l.filter.Blur()
			return l, nil
		}
		var cmd tea.Cmd
		l.filter, cmd = l.filter.Update(msg)
		l.refilter()
		return l, cmd
	}

	switch {
	case key.Matches(msg, l.keys.Up):
		if l.cursor > 0 {
			l.cursor--
		}
	case key.Matches(msg, l.keys.Down):
		if l.cursor < len(l.visible)-1 {
			l.cursor++
		}
	case key.Matches(msg, l.keys.PageUp):
		l.cursor -= 10
		l.clamp()
	case key.Matches(msg, l.keys.PageDown):
		l.cursor += 10
		l.clamp()
	case msg.String() == "home" || msg.String() == "g":
		l.cursor = 0
	case msg.String() == "end" || msg.String() == "G":
		l.cursor = len(l.visible) - 1
		l.clamp()
	case key.Matches(msg, l.keys.Filter):
		l.filtering = true
		return l, l.filter.Focus()
	case l.multi && key.Matches(msg, l.keys.Select):
		if i := l.Index(); i >= 0 {
			k := l.items[i].key
			if l.selected[k] {
				delete(l.selected, k)
			} else {
				l.selected[k] = true
			}
			if l.cursor < len(l.visible)-1 {
				l.cursor++
			}
		}
	}
	return l, nil
}

// View renders at most height lines.
func (l listView) View(width, height int) string {
	var b strings.Builder
	if l.filtering || l.Query() != "" {
		line := l.filter.View()
		if !l.filtering {
			line = dimStyle.Render("/" + l.Query())
		}
		b.WriteString(line + "  " + dimStyle.Render(fmt.Sprintf("[%d/%d]", len(l.visible), len(l.items))))
		b.WriteString("\n")
		height--
	}

	if len(l.visible) == 0 {
		msg := l.empty
		if len(l.items) > 0 {
			msg = "No matches."
		}
		b.WriteString(dimStyle.Render(msg))
		return b.String()
	}

	if height < 1 {
		height = 1
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+height {
		l.offset = l.cursor - height + 1
	}

	titleWidth := 0
	for _, idx := range l.visible {
		titleWidth = max(titleWidth, runewidth.StringWidth(l.items[idx].title))
	}
	titleWidth = min(titleWidth, max(width/2, 10))

	end := min(l.offset+height, len(l.visible))
	for pos := l.offset; pos < end; pos++ {
		idx := l.visible[pos]
		it := l.items[idx]

		prefix := "  "
		if pos == l.cursor {
			prefix = activeStyle.Render(iconCursor) + " "
		}
		if l.multi {
			if l.selected[it.key] {
				prefix += activeStyle.Render(iconChecked) + " "
			} else {
				prefix += dimStyle.Render(iconOff) + " "
			}
		}

		title := format.Truncate(it.title, titleWidth)
		title = highlight(title, l.matched[idx])
		if pos == l.cursor {
			title = activeStyle.Render(title)
		}
		title += strings.Repeat(" ", max(0, titleWidth-runewidth.StringWidth(format.Truncate(it.title, titleWidth))))

		used := lipgloss.Width(prefix) + titleWidth + 2 + lipgloss.Width(it.badge) + 1
		detail := ""
		if it.detail != "" && width-used > 4 {
			detail = dimStyle.Render(format.Truncate(it.detail, width-used))
		}

		row := prefix + title + "  " + detail
		if it.badge != "" {
			row += " " + it.badge
		}
		b.WriteString(row)
		if pos < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// highlight marks the matched byte positions of s.
func highlight(s string, positions []int) string {
	if len(positions) == 0 {
		return s
	}
	hit := make(map[int]bool, len(positions))
	for _, p := range positions {
		hit[p] = true
	}
	var b strings.Builder
	for i, r := range s {
		if hit[i] {
			b.WriteString(matchStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// confirmPrompt asks a yes/no question before running action.
type confirmPrompt struct {
	question string
	action   tea.Cmd
}

// resolve handles a key while the prompt is open. done is false when the key
// was not an answer.
func (c *confirmPrompt) resolve(msg tea.KeyMsg) (done bool, cmd tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		return true, c.action
	case "n", "N", "esc":
		return true, nil
	}
	return false, nil
}

func (c *confirmPrompt) View() string {
	return promptStyle.Render(iconWarn+" "+c.question) + " " + helpKeyStyle.Render("y") + helpActionStyle.Render("/") + helpKeyStyle.Render("n")
}

type statusKind int

const (
	statusNone statusKind = iota
	statusInfo
	statusSuccess
	statusWarning
	statusError
)

// statusLine is the feedback line shown under a screen's content.
type statusLine struct {
	kind statusKind
	text string
}

func infoStatus(format string, args ...any) statusLine {
	return statusLine{kind: statusInfo, text: fmt.Sprintf(format, args...)}
}

func successStatus(format string, args ...any) statusLine {
	return statusLine{kind: statusSuccess, text: fmt.Sprintf(format, args...)}
}

func warnStatus(format string, args ...any) statusLine {
	return statusLine{kind: statusWarning, text: fmt.Sprintf(format, args...)}
}

// errorStatus renders err with its classification hint.
func errorStatus(err error) statusLine {
	return statusLine{kind: statusError, text: clierr.Pretty(err)}
}

// failureStatus is errorStatus for failures that only carry a message.
func failureStatus(message string) statusLine {
	text := message
	if hint := clierr.Guidance(message); hint != "" {
		text += "\n\nHint: " + hint
	}
	return statusLine{kind: statusError, text: text}
}

func (s statusLine) View() string {
	switch s.kind {
	case statusInfo:
		return dimStyle.Render(s.text)
	case statusSuccess:
		return statusOK.Render(iconOK + " " + s.text)
	case statusWarning:
		return statusWarn.Render(iconWarn + " " + s.text)
	case statusError:
		return statusErr.Render(iconErr + " " + s.text)
	}
	return ""
}

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	return s
}

// renderHelpBar renders bindings as a one-line footer, cut off with an
// ellipsis when wider than width.
func renderHelpBar(bindings []key.Binding, width int) string {
	h := help.New()
	h.Width = width
	h.ShortSeparator = " · "
	h.Styles.ShortKey = helpKeyStyle
	h.Styles.ShortDesc = helpActionStyle
	h.Styles.ShortSeparator = helpDotStyle
	h.Styles.Ellipsis = helpDotStyle
	return h.ShortHelpView(bindings)
}

// renderHelpOverlay lists every binding of the screen plus the global ones.
func renderHelpOverlay(title string, screenKeys, globalKeys []key.Binding) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("246"))

	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(title) + " HELP"))
	b.WriteString("\n")

	group := func(name string, bindings []key.Binding) {
		b.WriteString(sectionStyle.Render(name))
		b.WriteString("\n")
		for _, k := range bindings {
			if !k.Enabled() {
				continue
			}
			h := k.Help()
			b.WriteString("  " + keyStyle.Render(format.PadRight(h.Key, 10)) + " " + descStyle.Render(titleCaser.String(h.Desc)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(screenKeys) > 0 {
		group("THIS SCREEN", screenKeys)
	}
	group("GLOBAL", globalKeys)
	b.WriteString(dimStyle.Render("Press ? or esc to close"))
	return b.String()
}

// section renders a labelled block for detail screens.
func section(name string, lines ...string) string {
	var b strings.Builder
	b.WriteString(groupStyle.Render(name))
	for _, l := range lines {
		b.WriteString("\n  ")
		b.WriteString(l)
	}
	return b.String()
}

// field renders "label: value", dimming the label.
func field(label, value string) string {
	if value == "" {
		value = dimStyle.Render("-")
	}
	return dimStyle.Render(format.PadRight(label+":", 14)) + " " + value
}
