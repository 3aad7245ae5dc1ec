// Package suggest renders the inline completion popup shown while a
// reference or command trigger is being typed.
package suggest

import (
	"strings"

	"github.com/quillworks/sigil/internal/editor"
	"github.com/quillworks/sigil/internal/ui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Model holds the popup state. Unlike a modal picker the popup has no input
// of its own: the query is whatever the user has typed after the trigger
// sigil, and the host feeds it in on every keystroke.
type Model struct {
	items        []editor.Suggestion // All items from the last completion result
	filtered     []editor.Suggestion // Items matching the current query
	cursor       int
	scrollOffset int
	maxVisible   int
	width        int
}

// New creates a popup sized for maxVisible rows.
func New(maxVisible, width int) Model {
	if maxVisible <= 0 {
		maxVisible = 6
	}
	if width <= 0 {
		width = 48
	}
	return Model{maxVisible: maxVisible, width: width}
}

// SetItems replaces the item list and re-applies the query filter, resetting
// the cursor to the top.
func (m Model) SetItems(items []editor.Suggestion, query string) Model {
	m.items = items
	m.cursor = 0
	m.scrollOffset = 0
	return m.filter(query)
}

// SetQuery re-filters the existing items against a new query.
func (m Model) SetQuery(query string) Model {
	m = m.filter(query)
	if m.cursor >= len(m.filtered) {
		m.cursor = 0
		m.scrollOffset = 0
	}
	return m
}

// filter keeps items whose label matches the query, with label matches
// ranked ahead of description-only matches.
func (m Model) filter(query string) Model {
	query = strings.ToLower(strings.TrimLeft(query, "@/"))
	if query == "" {
		m.filtered = m.items
		return m
	}

	var labelMatches []editor.Suggestion
	var infoMatches []editor.Suggestion
	for _, item := range m.items {
		label := strings.ToLower(item.Label + " " + item.Detail)
		if strings.Contains(label, query) {
			labelMatches = append(labelMatches, item)
		} else if strings.Contains(strings.ToLower(item.Info), query) {
			infoMatches = append(infoMatches, item)
		}
	}
	m.filtered = append(labelMatches, infoMatches...)
	return m
}

// Empty reports whether the filter left nothing to show.
func (m Model) Empty() bool {
	return len(m.filtered) == 0
}

// Len returns the number of filtered items.
func (m Model) Len() int {
	return len(m.filtered)
}

// Next moves the cursor down one item.
func (m Model) Next() Model {
	if m.cursor < len(m.filtered)-1 {
		m.cursor++
		m = m.ensureCursorVisible()
	}
	return m
}

// Prev moves the cursor up one item.
func (m Model) Prev() Model {
	if m.cursor > 0 {
		m.cursor--
		m = m.ensureCursorVisible()
	}
	return m
}

// Selected returns the item under the cursor.
func (m Model) Selected() (editor.Suggestion, bool) {
	if m.cursor >= 0 && m.cursor < len(m.filtered) {
		return m.filtered[m.cursor], true
	}
	return editor.Suggestion{}, false
}

// Cursor returns the current cursor position in the filtered list.
func (m Model) Cursor() int {
	return m.cursor
}

func (m Model) ensureCursorVisible() Model {
	if m.cursor >= m.scrollOffset+m.maxVisible {
		m.scrollOffset = m.cursor - m.maxVisible + 1
	}
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	return m
}

// kindBadge returns the one-character badge and its style for a suggestion.
func kindBadge(kind editor.SuggestionKind) (string, lipgloss.Style) {
	switch kind {
	case editor.KindFile:
		return "f", lipgloss.NewStyle().Foreground(styles.SuggestKindFileColor)
	case editor.KindPrompt:
		return "p", lipgloss.NewStyle().Foreground(styles.SuggestPromptColor)
	default:
		return "t", lipgloss.NewStyle().Foreground(styles.SuggestKindTextColor)
	}
}

// View renders the popup box.
func (m Model) View() string {
	if len(m.filtered) == 0 {
		return ""
	}

	contentWidth := m.width

	var content strings.Builder
	endIdx := min(m.scrollOffset+m.maxVisible, len(m.filtered))
	for i := m.scrollOffset; i < endIdx; i++ {
		if i > m.scrollOffset {
			content.WriteString("\n")
		}
		content.WriteString(m.renderItem(m.filtered[i], i == m.cursor, contentWidth))
	}

	if endIdx < len(m.filtered) {
		moreStyle := lipgloss.NewStyle().Foreground(styles.TextMutedColor)
		content.WriteString("\n")
		content.WriteString(moreStyle.Render("↓ more"))
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.SuggestBorderColor).
		Width(contentWidth)

	return boxStyle.Render(content.String())
}

func (m Model) renderItem(item editor.Suggestion, selected bool, width int) string {
	var indicator string
	if selected {
		indicator = styles.SelectionIndicatorStyle.Render(">")
	} else {
		indicator = " "
	}

	badge, badgeStyle := kindBadge(item.Kind)

	labelStyle := lipgloss.NewStyle()
	if selected {
		labelStyle = labelStyle.Bold(true).Foreground(styles.SuggestSelectedColor)
	}

	label := item.Label
	labelWidth := width - 4
	if runewidth.StringWidth(label) > labelWidth {
		label = runewidth.Truncate(label, labelWidth, "...")
	}

	line := indicator + badgeStyle.Render(badge) + " " + labelStyle.Render(label)

	// Secondary line: the identifier, muted, only for the selected item to
	// keep the popup compact.
	if selected && item.Detail != "" && item.Detail != strings.TrimLeft(item.Label, "@/") {
		detailStyle := lipgloss.NewStyle().
			Foreground(styles.TextMutedColor).
			Width(width - 4)
		line += "\n    " + detailStyle.Render(item.Detail)
	}

	return line
}
