package app

import (
	"context"
	"testing"

	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/config"
	"github.com/quillworks/sigil/internal/editor"
	"github.com/quillworks/sigil/internal/ui/composer"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	m.Run()
}

type fakeProvider struct {
	resources []catalog.ResourceEntry
	prompts   []catalog.PromptEntry
}

func (f *fakeProvider) ListResources(ctx context.Context) ([]catalog.ResourceEntry, error) {
	return f.resources, nil
}

func (f *fakeProvider) ListPrompts(ctx context.Context) ([]catalog.PromptEntry, error) {
	return f.prompts, nil
}

func (f *fakeProvider) GetPrompt(ctx context.Context, name string) ([]catalog.PromptMessage, error) {
	return []catalog.PromptMessage{{Role: catalog.RoleUser, Text: "hi"}}, nil
}

func newTestApp(t *testing.T) *Model {
	t.Helper()
	provider := &fakeProvider{
		resources: []catalog.ResourceEntry{{Identifier: "github://repo", DisplayName: "Repository"}},
		prompts:   []catalog.PromptEntry{{Name: "summarize"}},
	}
	m, err := New(config.Defaults(), provider)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestInitSeedsCatalog(t *testing.T) {
	m := newTestApp(t)
	cmd := m.Init()
	require.NotNil(t, cmd)

	// The refresh command is one of the batched Init commands; run the
	// refresh directly to avoid picking it out of the batch.
	msg := m.refreshCmd(false)()
	refreshed, ok := msg.(refreshedMsg)
	require.True(t, ok)
	require.NoError(t, refreshed.err)
	require.Equal(t, 1, refreshed.resources)
	require.Equal(t, 1, refreshed.prompts)

	_, _ = m.Update(refreshed)
	require.Equal(t, 1, m.resourceCount)

	_, ok = m.session.Store().Resource("github://repo")
	require.True(t, ok)
}

func TestSubmitRecordsTranscriptWithReferences(t *testing.T) {
	m := newTestApp(t)
	_, _ = m.Update(m.refreshCmd(false)().(refreshedMsg))

	_, _ = m.Update(composer.SubmitMsg{Text: "see @github://repo now"})
	require.Len(t, m.transcript, 1)
	require.Len(t, m.transcript[0].references, 1)
	require.Equal(t, "github://repo", m.transcript[0].references[0].Entry.Identifier)

	require.Contains(t, m.View(), "github://repo")
}

func TestSubmittedPromptsReachTranscript(t *testing.T) {
	m := newTestApp(t)
	require.NoError(t, m.submitPrompt("summarize", []catalog.PromptMessage{{Role: catalog.RoleUser, Text: "x"}}))

	_, _ = m.Update(composer.AppliedMsg{Applied: editor.Applied{Submitted: true}})
	require.Len(t, m.transcript, 1)
	require.Equal(t, "summarize", m.transcript[0].promptName)
}

func TestCursorOnReferenceShowsHoverCard(t *testing.T) {
	m := newTestApp(t)
	_, _ = m.Update(m.refreshCmd(false)().(refreshedMsg))

	m.composer = m.composer.SetValue("@github://repo")
	require.Contains(t, m.View(), "Repository")
}

func TestRefreshErrorShowsInStatus(t *testing.T) {
	m := newTestApp(t)
	_, _ = m.Update(refreshedMsg{err: context.DeadlineExceeded})
	require.Contains(t, m.View(), "deadline")
}

func TestCtrlCQuits(t *testing.T) {
	m := newTestApp(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.Equal(t, tea.Quit(), cmd())
}
