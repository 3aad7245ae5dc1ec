// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Text hierarchy
	TextPrimaryColor     = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#CCCCCC"} // Main composer text
	TextMutedColor       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#696969"} // Hints, help text, footers
	TextDescriptionColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"} // Entry descriptions
	TextPlaceholderColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#777777"} // Composer placeholder

	// Borders
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"} // Unfocused borders
	BorderFocusColor   = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"} // Focused composer border

	// Reference tokens (Catppuccin-flavored accents)
	TokenResolvedColor   = lipgloss.AdaptiveColor{Light: "#179299", Dark: "#94E2D5"} // Catalog-backed references
	TokenUnresolvedColor = lipgloss.AdaptiveColor{Light: "#9CA0B0", Dark: "#6C7086"} // Well-formed but unknown
	TokenHoverBgColor    = lipgloss.AdaptiveColor{Light: "#E6E9EF", Dark: "#313244"} // Hovered reference background

	// Suggestion popup
	SuggestBorderColor   = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#8C8C8C"}
	SuggestSelectedColor = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}
	SuggestKindFileColor = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"}
	SuggestKindTextColor = lipgloss.AdaptiveColor{Light: "#179299", Dark: "#94E2D5"}
	SuggestPromptColor   = lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"}

	// Status indicators
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Reference token styles
	TokenResolvedStyle = lipgloss.NewStyle().
				Foreground(TokenResolvedColor).
				Bold(true)

	TokenUnresolvedStyle = lipgloss.NewStyle().
				Foreground(TokenUnresolvedColor).
				Underline(true)

	TokenHoveredStyle = TokenResolvedStyle.
				Background(TokenHoverBgColor)

	// Selection indicator style (">" prefix in the suggestion list)
	SelectionIndicatorStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(SuggestSelectedColor)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMutedColor).
			Padding(0, 1)

	// Error display
	ErrorStyle = lipgloss.NewStyle().
			Foreground(StatusErrorColor).
			Bold(true)
)

// ApplyTheme applies custom theme colors from configuration.
// Empty strings are ignored, keeping the default values.
func ApplyTheme(resolved, unresolved, accent string) {
	if resolved != "" {
		TokenResolvedColor = lipgloss.AdaptiveColor{Light: resolved, Dark: resolved}
		TokenResolvedStyle = TokenResolvedStyle.Foreground(TokenResolvedColor)
		TokenHoveredStyle = TokenHoveredStyle.Foreground(TokenResolvedColor)
	}
	if unresolved != "" {
		TokenUnresolvedColor = lipgloss.AdaptiveColor{Light: unresolved, Dark: unresolved}
		TokenUnresolvedStyle = TokenUnresolvedStyle.Foreground(TokenUnresolvedColor)
	}
	if accent != "" {
		BorderFocusColor = lipgloss.AdaptiveColor{Light: accent, Dark: accent}
		SuggestSelectedColor = lipgloss.AdaptiveColor{Light: accent, Dark: accent}
		SelectionIndicatorStyle = SelectionIndicatorStyle.Foreground(SuggestSelectedColor)
	}
}
