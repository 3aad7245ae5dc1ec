// Package app composes the sigil TUI: the reference-aware composer, the
// transcript of submitted messages, hover cards, and live catalog refresh.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quillworks/sigil/internal/cache"
	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/config"
	"github.com/quillworks/sigil/internal/editor"
	"github.com/quillworks/sigil/internal/log"
	"github.com/quillworks/sigil/internal/pubsub"
	"github.com/quillworks/sigil/internal/ui/composer"
	"github.com/quillworks/sigil/internal/ui/hovercard"
	"github.com/quillworks/sigil/internal/ui/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

const refreshTimeout = 5 * time.Second

// Watcher is implemented by providers that can signal catalog file changes.
type Watcher interface {
	Watch() (<-chan struct{}, error)
	Stop() error
}

// transcriptEntry is one submitted item: a free-form message or a delivered
// prompt.
type transcriptEntry struct {
	text       string
	references []editor.Reference
	promptName string
	messages   []catalog.PromptMessage
}

// catalogReloadMsg signals that the provider's backing data changed on disk.
type catalogReloadMsg struct{}

// refreshedMsg reports the outcome of a catalog refresh.
type refreshedMsg struct {
	resources int
	prompts   int
	err       error
}

// Model is the root Bubble Tea model.
type Model struct {
	cfg      config.Config
	session  *editor.Session
	provider catalog.Provider

	composer composer.Model
	card     hovercard.Card
	hovered  *catalog.ResourceEntry

	transcript []transcriptEntry

	catalogListener *pubsub.ContinuousListener[editor.CatalogUpdate]
	watchCh         <-chan struct{}

	// pending holds prompt submissions recorded by the completer's submit
	// callback, which runs off the update loop. Drained on AppliedMsg.
	mu      sync.Mutex
	pending []transcriptEntry

	resourceCount int
	promptCount   int
	statusErr     string

	width  int
	height int

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds the application model around a provider.
func New(cfg config.Config, provider catalog.Provider) (*Model, error) {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		cfg:      cfg,
		session:  editor.NewSession(),
		provider: provider,
		card:     hovercard.New(44, cfg.UI.MarkdownStyle),
		ctx:      ctx,
		cancel:   cancel,
	}
	m.catalogListener = pubsub.NewContinuousListener(ctx, m.session.Broker())

	completer := editor.NewCompleter(provider, func(resources []catalog.ResourceEntry, prompts []catalog.PromptEntry) {
		m.session.Merge(resources, prompts)
	}, m.submitPrompt, cache.NewPromptCache())

	m.composer = composer.New(composer.Config{
		Session:   m.session,
		Completer: completer,
		Options: editor.Options{
			AtomicDelete:  cfg.Editor.AtomicDelete,
			BoundaryJump:  cfg.Editor.BoundaryJump,
			PadInsertions: cfg.Editor.PadInsertions,
		},
		Handlers: editor.Handlers{
			OnClick:     m.referenceClicked,
			OnMouseOver: func(e catalog.ResourceEntry) { m.hovered = &e },
			OnMouseOut:  func(catalog.ResourceEntry) { m.hovered = nil },
		},
		Placeholder: "Type a message, @resource or /prompt...",
		MaxVisible:  cfg.UI.MaxVisibleSuggestions,
		Width:       60,
		Height:      4,
	}).Focus()

	if w, ok := provider.(Watcher); ok {
		ch, err := w.Watch()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("watching catalog: %w", err)
		}
		m.watchCh = ch
	}

	return m, nil
}

func (m *Model) referenceClicked(e catalog.ResourceEntry) {
	log.Info(log.CatUI, "reference opened", "identifier", e.Identifier)
}

// submitPrompt is the completer's submit callback. It runs off the update
// loop, so it only records the submission; Update folds it into the
// transcript when the AppliedMsg arrives.
func (m *Model) submitPrompt(name string, messages []catalog.PromptMessage) error {
	m.mu.Lock()
	m.pending = append(m.pending, transcriptEntry{promptName: name, messages: messages})
	m.mu.Unlock()
	return nil
}

func (m *Model) drainPending() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()
	m.transcript = append(m.transcript, pending...)
}

// Init starts the event listeners and seeds the catalog.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.composer.Init(),
		m.catalogListener.Listen(),
		m.refreshCmd(false),
	}
	if m.watchCh != nil {
		cmds = append(cmds, m.watchCmd())
	}
	return tea.Batch(cmds...)
}

// watchCmd waits for the next provider change signal.
func (m *Model) watchCmd() tea.Cmd {
	ctx, ch := m.ctx, m.watchCh
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			return catalogReloadMsg{}
		}
	}
}

// refreshCmd fetches the full catalog and merges it into the session.
func (m *Model) refreshCmd(reload bool) tea.Cmd {
	provider, session := m.provider, m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		resources, err := provider.ListResources(ctx)
		if err != nil {
			return refreshedMsg{err: err}
		}
		prompts, err := provider.ListPrompts(ctx)
		if err != nil {
			return refreshedMsg{err: err}
		}

		session.Merge(resources, prompts)
		if reload {
			session.Broker().Publish(pubsub.CatalogReloadedEvent, editor.CatalogUpdate{
				Resources: len(resources),
				Prompts:   len(prompts),
			})
		}
		return refreshedMsg{resources: len(resources), prompts: len(prompts)}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.composer = m.composer.SetSize(min(msg.Width-2, 100), 4)
		return m, nil

	case pubsub.Event[editor.CatalogUpdate]:
		// Catalog changed; decorations recompute on the next render.
		if msg.Type == pubsub.CatalogReloadedEvent {
			log.Info(log.CatCatalog, "catalog reloaded",
				"resources", msg.Payload.Resources, "prompts", msg.Payload.Prompts)
		}
		return m, m.catalogListener.Listen()

	case catalogReloadMsg:
		return m, tea.Batch(m.refreshCmd(true), m.watchCmd())

	case refreshedMsg:
		if msg.err != nil {
			m.statusErr = msg.err.Error()
			log.ErrorErr(log.CatCatalog, "catalog refresh failed", msg.err)
			return m, nil
		}
		m.statusErr = ""
		m.resourceCount = msg.resources
		m.promptCount = msg.prompts
		return m, nil

	case composer.SubmitMsg:
		m.transcript = append(m.transcript, transcriptEntry{
			text:       msg.Text,
			references: editor.Extract(msg.Text, m.session.Store()),
		})
		return m, nil

	case composer.AppliedMsg:
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		if msg.Err == nil && msg.Applied.Submitted {
			m.drainPending()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// View renders the transcript, composer, hover card and status bar.
func (m *Model) View() string {
	var sections []string

	if t := m.renderTranscript(); t != "" {
		sections = append(sections, t)
	}
	sections = append(sections, m.composer.View())
	if entry, ok := m.hoveredEntry(); ok {
		sections = append(sections, m.card.Render(entry))
	}
	sections = append(sections, m.renderStatus())

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// hoveredEntry picks the entry to show a card for: mouse hover wins,
// otherwise the resolved reference under the text cursor, if any.
func (m *Model) hoveredEntry() (catalog.ResourceEntry, bool) {
	if m.hovered != nil {
		return *m.hovered, true
	}
	if info, ok := editor.Hover(m.composer.Value(), m.composer.Cursor(), m.session.Store()); ok {
		return info.Entry, true
	}
	return catalog.ResourceEntry{}, false
}

func (m *Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return ""
	}

	labelStyle := lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	refStyle := lipgloss.NewStyle().Foreground(styles.TokenResolvedColor)
	promptStyle := lipgloss.NewStyle().Foreground(styles.SuggestPromptColor).Bold(true)

	// Show the last handful of entries only; this is a demo transcript, not
	// a scrollback buffer.
	entries := m.transcript
	if len(entries) > 8 {
		entries = entries[len(entries)-8:]
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		if e.promptName != "" {
			b.WriteString(promptStyle.Render("/" + e.promptName))
			b.WriteString(labelStyle.Render(fmt.Sprintf(" submitted (%d messages)", len(e.messages))))
			continue
		}
		b.WriteString(e.text)
		if len(e.references) > 0 {
			ids := make([]string, len(e.references))
			for j, r := range e.references {
				ids[j] = r.Entry.Identifier
			}
			b.WriteString("\n")
			b.WriteString(labelStyle.Render("  references: "))
			b.WriteString(refStyle.Render(strings.Join(ids, ", ")))
		}
	}
	return b.String()
}

func (m *Model) renderStatus() string {
	parts := []string{
		m.composer.StatusLine(),
		fmt.Sprintf("%d resources", m.resourceCount),
		fmt.Sprintf("%d prompts", m.promptCount),
	}
	status := styles.StatusBarStyle.Render(strings.Join(parts, " • "))
	if m.statusErr != "" {
		status += "  " + styles.ErrorStyle.Render(m.statusErr)
	}
	return status
}

// Close releases listeners and provider resources.
func (m *Model) Close() error {
	m.cancel()
	m.session.Close()
	if w, ok := m.provider.(Watcher); ok {
		return w.Stop()
	}
	return nil
}
