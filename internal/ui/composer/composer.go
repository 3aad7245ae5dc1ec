// Package composer implements the message input widget: a small multi-line
// editor that recognizes catalog references as they are typed, styles them,
// keeps them atomic under deletion, and drives the completion popup.
package composer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quillworks/sigil/internal/editor"
	"github.com/quillworks/sigil/internal/log"
	"github.com/quillworks/sigil/internal/ui/styles"
	"github.com/quillworks/sigil/internal/ui/suggest"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// tokenZonePrefix namespaces bubblezone IDs for reference chips.
const tokenZonePrefix = "composer-token:"

const completeTimeout = 3 * time.Second

func tokenZoneID(index int) string {
	return fmt.Sprintf("%s%d", tokenZonePrefix, index)
}

// keyMap holds the composer key bindings. Popup bindings apply only while
// the suggestion popup is open.
type keyMap struct {
	PopupNext    key.Binding
	PopupPrev    key.Binding
	PopupAccept  key.Binding
	PopupDismiss key.Binding
	Newline      key.Binding
	Complete     key.Binding
}

var keys = keyMap{
	PopupNext:    key.NewBinding(key.WithKeys("down", "ctrl+n")),
	PopupPrev:    key.NewBinding(key.WithKeys("up", "ctrl+p")),
	PopupAccept:  key.NewBinding(key.WithKeys("enter", "tab")),
	PopupDismiss: key.NewBinding(key.WithKeys("esc")),
	Newline:      key.NewBinding(key.WithKeys("ctrl+j")),
	Complete:     key.NewBinding(key.WithKeys("ctrl+@")),
}

// CompleteResultMsg carries an asynchronous completion result back into the
// update loop. Doc and Cursor echo the request so stale results can be
// dropped after further typing.
type CompleteResultMsg struct {
	Doc    string
	Cursor int
	Result *editor.Result
}

// AppliedMsg carries the outcome of applying a suggestion.
type AppliedMsg struct {
	Applied editor.Applied
	Err     error
}

// SubmitMsg is sent when the composer text is submitted with Enter.
type SubmitMsg struct {
	Text string
}

// Config wires the composer to its collaborators.
type Config struct {
	Session   *editor.Session
	Completer *editor.Completer
	Options   editor.Options
	Handlers  editor.Handlers

	Placeholder string
	MaxVisible  int // suggestion popup rows
	Width       int
	Height      int // visible document lines
}

// Model is the composer state. All document mutation goes through
// transactions and the rewrite filter; nothing edits the doc string directly.
type Model struct {
	cfg     Config
	doc     string
	cursor  int
	focused bool
	width   int
	height  int

	popup   suggest.Model
	active  *editor.Result // trigger span of the open popup, nil when closed
	hoverID string         // identifier of the currently hovered chip
	errText string
}

// New creates a composer.
func New(cfg Config) Model {
	width := cfg.Width
	if width <= 0 {
		width = 60
	}
	height := cfg.Height
	if height <= 0 {
		height = 4
	}
	return Model{
		cfg:    cfg,
		width:  width,
		height: height,
		popup:  suggest.New(cfg.MaxVisible, width-4),
	}
}

// Init is a no-op; the composer has no startup work.
func (m Model) Init() tea.Cmd {
	return nil
}

// Focus gives the composer keyboard focus.
func (m Model) Focus() Model {
	m.focused = true
	return m
}

// Blur removes keyboard focus and closes the popup.
func (m Model) Blur() Model {
	m.focused = false
	m.active = nil
	return m
}

// Focused reports keyboard focus.
func (m Model) Focused() bool { return m.focused }

// Value returns the current document text.
func (m Model) Value() string { return m.doc }

// Cursor returns the current cursor byte offset.
func (m Model) Cursor() int { return m.cursor }

// SetValue replaces the document, placing the cursor at the end. Used for
// programmatic resets; no transaction intent, so no filter involvement.
func (m Model) SetValue(doc string) Model {
	m.doc = doc
	m.cursor = len(doc)
	m.active = nil
	return m
}

// SetSize updates the composer dimensions.
func (m Model) SetSize(width, height int) Model {
	if width > 0 {
		m.width = width
	}
	if height > 0 {
		m.height = height
	}
	return m
}

// PopupOpen reports whether the suggestion popup is showing.
func (m Model) PopupOpen() bool {
	return m.active != nil && !m.popup.Empty()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		return m.updateKey(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case CompleteResultMsg:
		// Drop results for a document state we have since typed past.
		if msg.Doc != m.doc || msg.Cursor != m.cursor {
			return m, nil
		}
		if msg.Result == nil {
			m.active = nil
			return m, nil
		}
		m.active = msg.Result
		m.popup = m.popup.SetItems(msg.Result.Suggestions, m.triggerText())
		return m, nil

	case AppliedMsg:
		m.active = nil
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, nil
		}
		m.errText = ""
		if msg.Applied.Submitted {
			return m, nil
		}
		m.doc = msg.Applied.Doc
		m.cursor = msg.Applied.Cursor
		return m, nil
	}

	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	// Popup navigation takes precedence while it is open.
	if m.PopupOpen() {
		switch {
		case key.Matches(msg, keys.PopupNext):
			m.popup = m.popup.Next()
			return m, nil
		case key.Matches(msg, keys.PopupPrev):
			m.popup = m.popup.Prev()
			return m, nil
		case key.Matches(msg, keys.PopupAccept):
			if s, ok := m.popup.Selected(); ok {
				return m, m.applyCmd(s)
			}
			return m, nil
		case key.Matches(msg, keys.PopupDismiss):
			m.active = nil
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, keys.Newline):
		return m.insert("\n")
	case key.Matches(msg, keys.Complete):
		// Explicit completion, even with nothing typed after the sigil.
		return m, m.completeCmd(true)
	}

	switch msg.Type {
	case tea.KeyRunes:
		return m.insert(string(msg.Runes))
	case tea.KeySpace:
		return m.insert(" ")
	case tea.KeyEnter:
		if strings.TrimSpace(m.doc) == "" {
			return m, nil
		}
		text := m.doc
		m.doc = ""
		m.cursor = 0
		m.active = nil
		return m, func() tea.Msg { return SubmitMsg{Text: text} }
	case tea.KeyBackspace:
		return m.deleteBackward()
	case tea.KeyDelete:
		return m.deleteForward()
	case tea.KeyLeft:
		return m.move(prevBoundary(m.doc, m.cursor)), nil
	case tea.KeyRight:
		return m.move(nextBoundary(m.doc, m.cursor)), nil
	case tea.KeyUp:
		return m.moveVertical(-1), nil
	case tea.KeyDown:
		return m.moveVertical(1), nil
	case tea.KeyCtrlA:
		return m.move(lineStart(m.doc, m.cursor)), nil
	case tea.KeyCtrlE:
		return m.move(lineEnd(m.doc, m.cursor)), nil
	case tea.KeyEscape:
		m.active = nil
		return m, nil
	}

	return m, nil
}

// insert applies typed text through the rewrite filter, then schedules a
// completion pass for the new cursor context.
func (m Model) insert(s string) (Model, tea.Cmd) {
	t := editor.Transaction{
		Doc:     m.doc,
		From:    m.cursor,
		To:      m.cursor,
		Insert:  s,
		SelFrom: m.cursor,
		SelTo:   m.cursor,
		Event:   editor.EventInput,
	}
	m = m.commit(t)
	return m, m.completeCmd(false)
}

func (m Model) deleteBackward() (Model, tea.Cmd) {
	if m.cursor == 0 {
		return m, m.completeCmd(false)
	}
	t := editor.Transaction{
		Doc:     m.doc,
		From:    prevBoundary(m.doc, m.cursor),
		To:      m.cursor,
		SelFrom: m.cursor,
		SelTo:   m.cursor,
		Event:   editor.EventDeleteBackward,
	}
	m = m.commit(t)
	return m, m.completeCmd(false)
}

func (m Model) deleteForward() (Model, tea.Cmd) {
	if m.cursor >= len(m.doc) {
		return m, nil
	}
	t := editor.Transaction{
		Doc:     m.doc,
		From:    m.cursor,
		To:      nextBoundary(m.doc, m.cursor),
		SelFrom: m.cursor,
		SelTo:   m.cursor,
		Event:   editor.EventDeleteForward,
	}
	m = m.commit(t)
	return m, nil
}

// commit runs a transaction through the filter and applies the result.
func (m Model) commit(t editor.Transaction) Model {
	t = editor.Rewrite(t, m.cfg.Session.Store(), m.cfg.Options)
	m.doc, m.cursor = t.Apply()
	m.errText = ""
	return m
}

// move places the cursor, snapping across resolved references when the
// option is on.
func (m Model) move(target int) Model {
	if m.cfg.Options.BoundaryJump {
		target = editor.SnapCursor(m.doc, m.cursor, target, m.cfg.Session.Store())
	}
	m.cursor = clampPos(target, len(m.doc))
	m.active = nil
	return m
}

// moveVertical moves the cursor one line up or down, keeping the byte column
// where possible.
func (m Model) moveVertical(delta int) Model {
	start := lineStart(m.doc, m.cursor)
	col := m.cursor - start

	var targetStart int
	if delta < 0 {
		if start == 0 {
			return m
		}
		targetStart = lineStart(m.doc, start-1)
	} else {
		end := lineEnd(m.doc, m.cursor)
		if end >= len(m.doc) {
			return m
		}
		targetStart = end + 1
	}

	target := targetStart + col
	if limit := lineEnd(m.doc, targetStart); target > limit {
		target = limit
	}
	return m.move(target)
}

func (m Model) updateMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	decos := m.visibleDecorations()

	switch msg.Action {
	case tea.MouseActionMotion:
		for i, d := range decos {
			if d.Kind != editor.DecorationResolved {
				continue
			}
			if z := zone.Get(tokenZoneID(i)); z != nil && z.InBounds(msg) {
				if m.hoverID != d.Identifier {
					m = m.clearHover(decos)
					m.hoverID = d.Identifier
					m.cfg.Handlers.MouseOver(d.Entry)
				}
				return m, nil
			}
		}
		return m.clearHover(decos), nil

	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !m.cfg.Handlers.Clickable() {
			return m, nil
		}
		for i, d := range decos {
			if d.Kind != editor.DecorationResolved {
				continue
			}
			if z := zone.Get(tokenZoneID(i)); z != nil && z.InBounds(msg) {
				log.Debug(log.CatUI, "reference clicked", "identifier", d.Identifier)
				m.cfg.Handlers.Click(d.Entry)
				return m, nil
			}
		}
	}

	return m, nil
}

func (m Model) clearHover(decos []editor.Decoration) Model {
	if m.hoverID == "" {
		return m
	}
	for _, d := range decos {
		if d.Identifier == m.hoverID && d.Kind == editor.DecorationResolved {
			m.cfg.Handlers.MouseOut(d.Entry)
			break
		}
	}
	m.hoverID = ""
	return m
}

// completeCmd runs the completion source off the update loop.
func (m Model) completeCmd(explicit bool) tea.Cmd {
	req := editor.Request{Doc: m.doc, Cursor: m.cursor, Explicit: explicit}
	completer := m.cfg.Completer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), completeTimeout)
		defer cancel()
		return CompleteResultMsg{
			Doc:    req.Doc,
			Cursor: req.Cursor,
			Result: completer.Complete(ctx, req),
		}
	}
}

// applyCmd commits the selected suggestion off the update loop.
func (m Model) applyCmd(s editor.Suggestion) tea.Cmd {
	doc, res := m.doc, m.active
	completer := m.cfg.Completer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), completeTimeout)
		defer cancel()
		applied, err := completer.Apply(ctx, doc, res, s)
		return AppliedMsg{Applied: applied, Err: err}
	}
}

// triggerText returns the partial text in the open trigger span.
func (m Model) triggerText() string {
	if m.active == nil {
		return ""
	}
	from, to := clampPos(m.active.From, len(m.doc)), clampPos(m.active.To, len(m.doc))
	return m.doc[from:to]
}

// visibleLines returns the byte ranges of the lines currently in the
// viewport: the last `height` lines of the document.
func (m Model) visibleLines() []editor.Range {
	lines := strings.Split(m.doc, "\n")
	first := 0
	if len(lines) > m.height {
		first = len(lines) - m.height
	}
	ranges := make([]editor.Range, 0, len(lines)-first)
	offset := 0
	for i, line := range lines {
		if i >= first {
			ranges = append(ranges, editor.Range{From: offset, To: offset + len(line)})
		}
		offset += len(line) + 1
	}
	return ranges
}

func (m Model) visibleDecorations() []editor.Decoration {
	return editor.Decorations(m.doc, m.visibleLines(), m.cfg.Session.Store())
}

// View renders the composer box with styled references, the cursor, and the
// suggestion popup underneath when open.
func (m Model) View() string {
	innerWidth := m.width - 4

	var body string
	if m.doc == "" && m.cfg.Placeholder != "" {
		placeholder := lipgloss.NewStyle().
			Foreground(styles.TextPlaceholderColor).
			Render(m.cfg.Placeholder)
		if m.focused {
			placeholder = cursorCell(" ") + placeholder
		}
		body = placeholder
	} else {
		body = m.renderDoc()
	}

	borderColor := styles.BorderDefaultColor
	if m.focused {
		borderColor = styles.BorderFocusColor
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(innerWidth + 2).
		Render(body)

	sections := []string{box}
	if m.PopupOpen() {
		sections = append(sections, m.popup.View())
	}
	if m.errText != "" {
		sections = append(sections, styles.ErrorStyle.Render(m.errText))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderDoc renders the visible lines with decorations applied and the
// cursor drawn as a reversed cell.
func (m Model) renderDoc() string {
	ranges := m.visibleLines()
	decos := m.visibleDecorations()

	lines := make([]string, 0, len(ranges))
	for _, r := range ranges {
		lines = append(lines, m.renderLine(r, decos))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLine(r editor.Range, decos []editor.Decoration) string {
	plain := lipgloss.NewStyle().Foreground(styles.TextPrimaryColor)

	var b strings.Builder
	pos := r.From
	for i, d := range decos {
		if d.End <= r.From || d.Start >= r.To {
			continue
		}
		if d.Start > pos {
			b.WriteString(m.renderSpan(m.doc[pos:d.Start], pos, plain))
		}

		st := styles.TokenUnresolvedStyle
		if d.Kind == editor.DecorationResolved {
			st = styles.TokenResolvedStyle
			if d.Identifier == m.hoverID {
				st = styles.TokenHoveredStyle
			}
		}
		chip := m.renderSpan(m.doc[d.Start:d.End], d.Start, st)
		if d.Kind == editor.DecorationResolved {
			chip = zone.Mark(tokenZoneID(i), chip)
		}
		b.WriteString(chip)
		pos = d.End
	}
	if pos < r.To {
		b.WriteString(m.renderSpan(m.doc[pos:r.To], pos, plain))
	}
	if m.focused && m.cursor == r.To {
		b.WriteString(cursorCell(" "))
	}
	return b.String()
}

// renderSpan styles a document span, reversing the grapheme under the cursor
// when the cursor falls inside it.
func (m Model) renderSpan(text string, start int, st lipgloss.Style) string {
	if !m.focused || m.cursor < start || m.cursor >= start+len(text) {
		return st.Render(text)
	}
	rel := m.cursor - start
	g, _, _, _ := uniseg.FirstGraphemeClusterInString(text[rel:], -1)
	out := st.Render(text[:rel]) + cursorCell(g)
	if rel+len(g) < len(text) {
		out += st.Render(text[rel+len(g):])
	}
	return out
}

func cursorCell(g string) string {
	return lipgloss.NewStyle().Reverse(true).Render(g)
}

// StatusLine describes the cursor position for the host's status bar, with
// the column measured in display cells rather than bytes.
func (m Model) StatusLine() string {
	start := lineStart(m.doc, m.cursor)
	col := runewidth.StringWidth(m.doc[start:m.cursor]) + 1
	line := strings.Count(m.doc[:m.cursor], "\n") + 1
	return fmt.Sprintf("%d:%d", line, col)
}

// ----------------------------------------------------------------------------
// Grapheme and line helpers
// ----------------------------------------------------------------------------

// nextBoundary returns the byte offset one grapheme cluster after pos.
func nextBoundary(doc string, pos int) int {
	if pos >= len(doc) {
		return len(doc)
	}
	if doc[pos] == '\n' {
		return pos + 1
	}
	g, _, _, _ := uniseg.FirstGraphemeClusterInString(doc[pos:], -1)
	return pos + len(g)
}

// prevBoundary returns the byte offset one grapheme cluster before pos.
func prevBoundary(doc string, pos int) int {
	if pos <= 0 {
		return 0
	}
	if doc[pos-1] == '\n' {
		return pos - 1
	}
	start := strings.LastIndexByte(doc[:pos], '\n') + 1
	rest := doc[start:pos]
	state := -1
	for {
		var g string
		g, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if rest == "" {
			return pos - len(g)
		}
	}
}

func lineStart(doc string, pos int) int {
	return strings.LastIndexByte(doc[:pos], '\n') + 1
}

func lineEnd(doc string, pos int) int {
	if i := strings.IndexByte(doc[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(doc)
}

func clampPos(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
