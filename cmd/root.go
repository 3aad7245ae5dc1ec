package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quillworks/sigil/internal/app"
	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/config"
	"github.com/quillworks/sigil/internal/log"
	"github.com/quillworks/sigil/internal/provider/fileprovider"
	"github.com/quillworks/sigil/internal/provider/mcpclient"
	"github.com/quillworks/sigil/internal/tracing"
	"github.com/quillworks/sigil/internal/ui/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:     "sigil",
	Short:   "A reference-aware message composer for catalog-backed chat",
	Long:    `An interactive composer that recognizes @scheme://identifier resource references and /name prompt commands as you type, backed by a file catalog or an MCP server.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/sigil/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"write debug logs to sigil.log")
	rootCmd.PersistentFlags().String("catalog", "",
		"path to a YAML catalog file (file provider)")
	rootCmd.PersistentFlags().String("mcp", "",
		"command to launch an MCP server (mcp provider)")

	_ = viper.BindPFlag("provider.catalog_path", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("provider.command", rootCmd.PersistentFlags().Lookup("mcp"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("provider.kind", defaults.Provider.Kind)
	viper.SetDefault("provider.catalog_path", defaults.Provider.CatalogPath)
	viper.SetDefault("editor.atomic_delete", defaults.Editor.AtomicDelete)
	viper.SetDefault("editor.boundary_jump", defaults.Editor.BoundaryJump)
	viper.SetDefault("editor.pad_insertions", defaults.Editor.PadInsertions)
	viper.SetDefault("ui.max_visible_suggestions", defaults.UI.MaxVisibleSuggestions)
	viper.SetDefault("ui.markdown_style", defaults.UI.MarkdownStyle)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .sigil/config.yaml (current directory)
		// 2. ~/.config/sigil/config.yaml (user config)
		if _, err := os.Stat(".sigil/config.yaml"); err == nil {
			viper.SetConfigFile(".sigil/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "sigil"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create a default at
		// ~/.config/sigil/config.yaml and continue with defaults when even
		// that fails.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			home, homeErr := os.UserHomeDir()
			if homeErr == nil {
				defaultPath := filepath.Join(home, ".config", "sigil", "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
			}
		}
	}

	viper.SetEnvPrefix("SIGIL")
	viper.AutomaticEnv()

	_ = viper.Unmarshal(&cfg)

	if viper.GetBool("debug") {
		debug = true
	}

	// An MCP launch command switches the provider kind implicitly.
	if cfg.Provider.Command != "" {
		cfg.Provider.Kind = "mcp"
	}
}

// newProvider builds the configured catalog provider. The returned cleanup
// runs after the program exits.
func newProvider(cmd *cobra.Command) (catalog.Provider, func(), error) {
	switch cfg.Provider.Kind {
	case "mcp":
		tracer, err := tracing.NewProvider(cfg.Tracing)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing tracing: %w", err)
		}
		client, err := mcpclient.Spawn(cmd.Context(), cfg.Provider.Command, cfg.Provider.Args,
			mcpclient.WithTracer(tracer))
		if err != nil {
			return nil, nil, fmt.Errorf("spawning MCP server: %w", err)
		}
		cleanup := func() {
			_ = client.Close()
			_ = tracer.Shutdown(cmd.Context())
		}
		return client, cleanup, nil

	default:
		p, err := fileprovider.New(cfg.Provider.CatalogPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening catalog %s: %w", cfg.Provider.CatalogPath, err)
		}
		return p, func() {}, nil
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if debug {
		cleanup, err := log.Init("sigil.log")
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer cleanup()
	}

	provider, cleanup, err := newProvider(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	styles.ApplyTheme(cfg.Theme.Resolved, cfg.Theme.Unresolved, cfg.Theme.Accent)
	zone.NewGlobal()

	model, err := app.New(cfg, provider)
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()

	if closeErr := model.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
