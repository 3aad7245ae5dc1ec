// Package hovercard renders the metadata card shown while the pointer rests
// on a recognized reference.
package hovercard

import (
	"strings"

	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/log"
	"github.com/quillworks/sigil/internal/ui/markdown"
	"github.com/quillworks/sigil/internal/ui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// Card renders hover cards at a fixed width.
type Card struct {
	width    int
	renderer *markdown.Renderer
}

// New creates a card renderer. style selects the glamour style used for
// description markdown ("dark" or "light").
func New(width int, style string) Card {
	if width <= 0 {
		width = 44
	}
	r, err := markdown.New(width-4, style)
	if err != nil {
		// Descriptions fall back to plain wrapped text.
		log.ErrorErr(log.CatUI, "markdown renderer init failed", err)
		r = nil
	}
	return Card{width: width, renderer: r}
}

// Render builds the card for a catalog entry: display name, identifier, and
// the description rendered as markdown when one is present.
func (c Card) Render(entry catalog.ResourceEntry) string {
	contentWidth := c.width - 2

	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.TokenResolvedColor)
	idStyle := lipgloss.NewStyle().Foreground(styles.TextMutedColor)

	var content strings.Builder
	content.WriteString(nameStyle.Render(entry.Label()))
	content.WriteString("\n")
	content.WriteString(idStyle.Render(wordwrap.String(entry.Identifier, contentWidth)))

	if entry.MIMEType != "" {
		content.WriteString("\n")
		content.WriteString(idStyle.Render(entry.MIMEType))
	}

	if entry.Description != "" {
		content.WriteString("\n\n")
		content.WriteString(c.renderDescription(entry.Description, contentWidth))
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.SuggestBorderColor).
		Padding(0, 1).
		Width(contentWidth)

	return boxStyle.Render(content.String())
}

func (c Card) renderDescription(desc string, width int) string {
	if c.renderer != nil {
		rendered, err := c.renderer.Render(desc)
		if err == nil {
			return strings.TrimRight(rendered, "\n")
		}
		log.ErrorErr(log.CatUI, "description render failed", err)
	}
	descStyle := lipgloss.NewStyle().Foreground(styles.TextDescriptionColor)
	return descStyle.Render(wordwrap.String(desc, width))
}
