package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillworks/sigil/internal/catalog"
)

// fakeProvider is a scriptable catalog provider for completion tests.
type fakeProvider struct {
	resources  []catalog.ResourceEntry
	prompts    []catalog.PromptEntry
	messages   map[string][]catalog.PromptMessage
	listErr    error
	connectErr error

	listCalls    int
	connectCalls int
	getCalls     int
}

func (p *fakeProvider) Connect(ctx context.Context) error {
	p.connectCalls++
	return p.connectErr
}

func (p *fakeProvider) ListResources(ctx context.Context) ([]catalog.ResourceEntry, error) {
	p.listCalls++
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.resources, nil
}

func (p *fakeProvider) ListPrompts(ctx context.Context) ([]catalog.PromptEntry, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.prompts, nil
}

func (p *fakeProvider) GetPrompt(ctx context.Context, name string) ([]catalog.PromptMessage, error) {
	p.getCalls++
	if msgs, ok := p.messages[name]; ok {
		return msgs, nil
	}
	return nil, catalog.ErrNotFound
}

// testSession wires a Completer to a Session the way the app does.
func testSession(p catalog.Provider, submit SubmitFunc) (*Session, *Completer) {
	session := NewSession()
	completer := NewCompleter(p, func(rs []catalog.ResourceEntry, ps []catalog.PromptEntry) {
		session.Merge(rs, ps)
	}, submit, nil)
	return session, completer
}

// ============================================================================
// Trigger Detection
// ============================================================================

func TestComplete_NoTriggerNoFetch(t *testing.T) {
	p := &fakeProvider{resources: []catalog.ResourceEntry{{Identifier: "a://1"}}}
	_, c := testSession(p, nil)

	res := c.Complete(context.Background(), Request{Doc: "plain text", Cursor: 10})
	require.Nil(t, res)
	require.Zero(t, p.listCalls, "no trigger must mean no fetch")
}

func TestComplete_TriggerSpans(t *testing.T) {
	p := &fakeProvider{resources: []catalog.ResourceEntry{{Identifier: "a://1"}}}
	_, c := testSession(p, nil)

	tests := []struct {
		name     string
		doc      string
		cursor   int
		from, to int
	}{
		{"bare sigil", "Hello @", 7, 6, 7},
		{"partial word", "Hello @git", 10, 6, 10},
		{"prompt sigil", "/dep", 4, 0, 4},
		{"after newline", "first\n@x", 8, 6, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Complete(context.Background(), Request{Doc: tt.doc, Cursor: tt.cursor})
			require.NotNil(t, res)
			require.Equal(t, tt.from, res.From)
			require.Equal(t, tt.to, res.To)
		})
	}
}

func TestComplete_TriggerScopedToCurrentLine(t *testing.T) {
	p := &fakeProvider{resources: []catalog.ResourceEntry{{Identifier: "a://1"}}}
	_, c := testSession(p, nil)

	// The sigil on a previous line is not an in-progress trigger.
	res := c.Complete(context.Background(), Request{Doc: "@x\nplain", Cursor: 8})
	require.Nil(t, res)
}

// ============================================================================
// Fetch, Merge and Ranking
// ============================================================================

func TestComplete_SuggestionsInProviderOrderAndMerged(t *testing.T) {
	p := &fakeProvider{resources: []catalog.ResourceEntry{
		{Identifier: "github://repo", DisplayName: "Repo"},
		{Identifier: "db://users", DisplayName: "Users"},
	}}
	session, c := testSession(p, nil)

	res := c.Complete(context.Background(), Request{Doc: "Hello @", Cursor: 7})
	require.NotNil(t, res)
	require.Len(t, res.Suggestions, 2)
	require.Equal(t, "@Repo", res.Suggestions[0].Label)
	require.Equal(t, "@Users", res.Suggestions[1].Label)

	// Fetched entries are visible to the store before any selection.
	_, ok := session.Store().Resource("github://repo")
	require.True(t, ok)
	_, ok = session.Store().Resource("db://users")
	require.True(t, ok)
}

func TestComplete_LabelFallsBackToIdentifier(t *testing.T) {
	p := &fakeProvider{resources: []catalog.ResourceEntry{{Identifier: "a://1"}}}
	_, c := testSession(p, nil)

	res := c.Complete(context.Background(), Request{Doc: "@", Cursor: 1})
	require.NotNil(t, res)
	require.Equal(t, "@a://1", res.Suggestions[0].Label)
	require.Equal(t, "a://1", res.Suggestions[0].Detail)
}

func TestComplete_DescriptionBoostsRank(t *testing.T) {
	p := &fakeProvider{resources: []catalog.ResourceEntry{
		{Identifier: "a://1"},
		{Identifier: "b://2", Description: "documented"},
		{Identifier: "c://3"},
	}}
	_, c := testSession(p, nil)

	res := c.Complete(context.Background(), Request{Doc: "@", Cursor: 1})
	require.NotNil(t, res)
	require.Equal(t, "@b://2", res.Suggestions[0].Label)
	// Undescribed entries keep provider order behind it.
	require.Equal(t, "@a://1", res.Suggestions[1].Label)
	require.Equal(t, "@c://3", res.Suggestions[2].Label)
}

func TestComplete_KindFromMIMEType(t *testing.T) {
	p := &fakeProvider{
		resources: []catalog.ResourceEntry{
			{Identifier: "a://1", MIMEType: "text/markdown"},
			{Identifier: "b://2"},
		},
		prompts: []catalog.PromptEntry{{Name: "review"}},
	}
	_, c := testSession(p, nil)

	res := c.Complete(context.Background(), Request{Doc: "@", Cursor: 1})
	require.NotNil(t, res)
	kinds := map[string]SuggestionKind{}
	for _, s := range res.Suggestions {
		kinds[s.Label] = s.Kind
	}
	require.Equal(t, KindFile, kinds["@a://1"])
	require.Equal(t, KindText, kinds["@b://2"])
	require.Equal(t, KindPrompt, kinds["/review"])
}

func TestComplete_EmptyCatalogMeansNoSuggestions(t *testing.T) {
	_, c := testSession(&fakeProvider{}, nil)
	require.Nil(t, c.Complete(context.Background(), Request{Doc: "@", Cursor: 1}))
}

func TestComplete_FetchFailureDegradesToNil(t *testing.T) {
	p := &fakeProvider{listErr: errors.New("boom")}
	session, c := testSession(p, nil)

	require.Nil(t, c.Complete(context.Background(), Request{Doc: "@", Cursor: 1}))
	require.Zero(t, session.Store().ResourceCount())
}

// ============================================================================
// Connection Memoization
// ============================================================================

func TestComplete_ConnectionFailureRecordedOnce(t *testing.T) {
	p := &fakeProvider{
		connectErr: errors.New("unreachable"),
		resources:  []catalog.ResourceEntry{{Identifier: "a://1"}},
	}
	_, c := testSession(p, nil)

	for i := 0; i < 3; i++ {
		require.Nil(t, c.Complete(context.Background(), Request{Doc: "@", Cursor: 1}))
	}
	require.Equal(t, 1, p.connectCalls, "connection attempted exactly once")
	require.Zero(t, p.listCalls, "no fetches while not connected")
}

func TestComplete_ConnectsOnceOnSuccess(t *testing.T) {
	p := &fakeProvider{resources: []catalog.ResourceEntry{{Identifier: "a://1"}}}
	_, c := testSession(p, nil)

	c.Complete(context.Background(), Request{Doc: "@", Cursor: 1})
	c.Complete(context.Background(), Request{Doc: "@", Cursor: 1})
	require.Equal(t, 1, p.connectCalls)
	require.Equal(t, 2, p.listCalls, "each trigger fetches independently")
}

// ============================================================================
// Apply
// ============================================================================

func TestApply_ResourceInsertsCanonicalTokenAndSpace(t *testing.T) {
	p := &fakeProvider{resources: []catalog.ResourceEntry{
		{Identifier: "github://repo", DisplayName: "Repo"},
	}}
	_, c := testSession(p, nil)

	doc := "Hello @git"
	res := c.Complete(context.Background(), Request{Doc: doc, Cursor: 10})
	require.NotNil(t, res)

	applied, err := c.Apply(context.Background(), doc, res, res.Suggestions[0])
	require.NoError(t, err)
	require.Equal(t, "Hello @github://repo ", applied.Doc)
	require.Equal(t, len("Hello @github://repo "), applied.Cursor)
	require.False(t, applied.Submitted)
}

func TestApply_SpaceAppendedEvenBeforeExistingSpace(t *testing.T) {
	// Documented contract: the trailing space is unconditional, a doubled
	// space is accepted.
	p := &fakeProvider{resources: []catalog.ResourceEntry{{Identifier: "a://1"}}}
	_, c := testSession(p, nil)

	doc := "Hi @ there"
	res := c.Complete(context.Background(), Request{Doc: doc, Cursor: 4})
	require.NotNil(t, res)

	applied, err := c.Apply(context.Background(), doc, res, res.Suggestions[0])
	require.NoError(t, err)
	require.Equal(t, "Hi @a://1  there", applied.Doc)
}

func TestApply_PromptSubmitsWithoutEditing(t *testing.T) {
	p := &fakeProvider{
		prompts: []catalog.PromptEntry{{Name: "review", Description: "code review"}},
		messages: map[string][]catalog.PromptMessage{
			"review": {{Role: catalog.RoleUser, Text: "please review this"}},
		},
	}
	var gotName string
	var gotMessages []catalog.PromptMessage
	_, c := testSession(p, func(name string, msgs []catalog.PromptMessage) error {
		gotName = name
		gotMessages = msgs
		return nil
	})

	doc := "/rev"
	res := c.Complete(context.Background(), Request{Doc: doc, Cursor: 4})
	require.NotNil(t, res)
	require.True(t, res.Suggestions[0].IsPrompt())

	applied, err := c.Apply(context.Background(), doc, res, res.Suggestions[0])
	require.NoError(t, err)
	require.True(t, applied.Submitted)
	require.Equal(t, doc, applied.Doc, "prompt selection never edits the buffer")
	require.Equal(t, "review", gotName)
	require.Len(t, gotMessages, 1)
	require.Equal(t, catalog.RoleUser, gotMessages[0].Role)
}

func TestApply_PromptWithoutSubmitHandlerFailsLoudly(t *testing.T) {
	p := &fakeProvider{
		prompts:  []catalog.PromptEntry{{Name: "review"}},
		messages: map[string][]catalog.PromptMessage{"review": {}},
	}
	_, c := testSession(p, nil)

	doc := "/rev"
	res := c.Complete(context.Background(), Request{Doc: doc, Cursor: 4})
	require.NotNil(t, res)

	_, err := c.Apply(context.Background(), doc, res, res.Suggestions[0])
	require.ErrorIs(t, err, ErrNoSubmitHandler)
}

// ============================================================================
// Prompt Content Cache
// ============================================================================

type mapCache struct {
	m map[string][]catalog.PromptMessage
}

func (c *mapCache) Get(name string) ([]catalog.PromptMessage, bool) {
	msgs, ok := c.m[name]
	return msgs, ok
}

func (c *mapCache) Set(name string, msgs []catalog.PromptMessage) {
	c.m[name] = msgs
}

func TestApply_PromptContentCached(t *testing.T) {
	p := &fakeProvider{
		prompts: []catalog.PromptEntry{{Name: "review"}},
		messages: map[string][]catalog.PromptMessage{
			"review": {{Role: catalog.RoleUser, Text: "hi"}},
		},
	}
	session := NewSession()
	c := NewCompleter(p, func(rs []catalog.ResourceEntry, ps []catalog.PromptEntry) {
		session.Merge(rs, ps)
	}, func(string, []catalog.PromptMessage) error { return nil },
		&mapCache{m: map[string][]catalog.PromptMessage{}})

	doc := "/rev"
	res := c.Complete(context.Background(), Request{Doc: doc, Cursor: 4})
	require.NotNil(t, res)

	for i := 0; i < 3; i++ {
		_, err := c.Apply(context.Background(), doc, res, res.Suggestions[0])
		require.NoError(t, err)
	}
	require.Equal(t, 1, p.getCalls, "repeat selections served from cache")
}
