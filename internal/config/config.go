// Package config provides configuration types and defaults for sigil.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quillworks/sigil/internal/tracing"
)

// ProviderConfig selects and configures the catalog provider.
type ProviderConfig struct {
	// Kind picks the provider: "file" (default) or "mcp".
	Kind string `mapstructure:"kind"`

	// CatalogPath is the catalog file for the file provider.
	CatalogPath string `mapstructure:"catalog_path"`

	// Command and Args launch the MCP server process for the mcp provider.
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// EditorConfig holds the token-editing behavior toggles.
type EditorConfig struct {
	// AtomicDelete deletes a resolved token as a whole unit.
	AtomicDelete bool `mapstructure:"atomic_delete"`

	// BoundaryJump snaps cursor movement across resolved tokens. Off by
	// default; the behavior is deliberately optional.
	BoundaryJump bool `mapstructure:"boundary_jump"`

	// PadInsertions separates text typed directly against a token's end
	// with a space.
	PadInsertions bool `mapstructure:"pad_insertions"`
}

// UIConfig holds presentation options.
type UIConfig struct {
	// MaxVisibleSuggestions caps the popup height.
	MaxVisibleSuggestions int `mapstructure:"max_visible_suggestions"`

	// MarkdownStyle selects the glamour style for tooltips: "dark" or "light".
	MarkdownStyle string `mapstructure:"markdown_style"`
}

// ThemeConfig overrides the shipped colors. Empty strings keep defaults.
type ThemeConfig struct {
	Resolved   string `mapstructure:"resolved"`
	Unresolved string `mapstructure:"unresolved"`
	Accent     string `mapstructure:"accent"`
}

// Config holds all configuration options for sigil.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Editor   EditorConfig   `mapstructure:"editor"`
	UI       UIConfig       `mapstructure:"ui"`
	Theme    ThemeConfig    `mapstructure:"theme"`
	Tracing  tracing.Config `mapstructure:"tracing"`
}

// Defaults returns the shipped configuration.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			Kind:        "file",
			CatalogPath: defaultCatalogPath(),
		},
		Editor: EditorConfig{
			AtomicDelete: true,
		},
		UI: UIConfig{
			MaxVisibleSuggestions: 6,
			MarkdownStyle:         "dark",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

func defaultCatalogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "catalog.yaml"
	}
	return filepath.Join(home, ".config", "sigil", "catalog.yaml")
}

// Validate checks the configuration for contradictions before startup.
func Validate(cfg Config) error {
	switch cfg.Provider.Kind {
	case "file", "":
		if cfg.Provider.CatalogPath == "" {
			return fmt.Errorf("provider.catalog_path required for the file provider")
		}
	case "mcp":
		if cfg.Provider.Command == "" {
			return fmt.Errorf("provider.command required for the mcp provider")
		}
	default:
		return fmt.Errorf("unknown provider kind %q (want \"file\" or \"mcp\")", cfg.Provider.Kind)
	}
	if cfg.UI.MaxVisibleSuggestions < 1 {
		return fmt.Errorf("ui.max_visible_suggestions must be at least 1")
	}
	switch cfg.UI.MarkdownStyle {
	case "dark", "light":
	default:
		return fmt.Errorf("unknown markdown style %q (want \"dark\" or \"light\")", cfg.UI.MarkdownStyle)
	}
	return nil
}

// DefaultConfigTemplate returns the commented starter config written on
// first run.
func DefaultConfigTemplate() string {
	return `# sigil configuration

provider:
  # kind selects the catalog provider: "file" or "mcp".
  kind: file
  # catalog_path points the file provider at a YAML catalog.
  # catalog_path: ~/.config/sigil/catalog.yaml
  # For an MCP server, set kind: mcp and the launch command:
  # command: my-mcp-server
  # args: ["--stdio"]

editor:
  # atomic_delete removes a recognized reference as a whole unit.
  atomic_delete: true
  # boundary_jump snaps arrow-key movement across references.
  boundary_jump: false
  # pad_insertions adds a space when typing directly against a reference.
  pad_insertions: false

ui:
  max_visible_suggestions: 6
  markdown_style: dark

# theme overrides reference colors with hex values.
# theme:
#   resolved: "#94E2D5"
#   unresolved: "#6C7086"
#   accent: "#54A0FF"

tracing:
  enabled: false
  exporter: stdout
`
}

// WriteDefaultConfig writes the starter config to path, creating parent
// directories as needed. Fails if the file already exists.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, []byte(DefaultConfigTemplate()), 0600)
}
