package editor

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/log"
	"github.com/quillworks/sigil/internal/token"
)

// ErrNoSubmitHandler is returned when a prompt suggestion is applied but no
// submit callback was wired up. A prompt selected with nowhere to deliver it
// is a host configuration fault, and the one condition that fails loudly.
var ErrNoSubmitHandler = errors.New("editor: prompt selected but no submit handler registered")

// triggerPattern matches an in-progress sigil span immediately before the
// cursor: "@" or "/" plus any partial word characters typed so far.
var triggerPattern = regexp.MustCompile(`[@/][\w-]*$`)

// SuggestionKind groups suggestions for display. Kind affects grouping only,
// never ranking.
type SuggestionKind int

const (
	// KindFile is a resource carrying a content-type marker.
	KindFile SuggestionKind = iota
	// KindText is a resource without one.
	KindText
	// KindPrompt is an invocable prompt command.
	KindPrompt
)

// Suggestion is one insertable completion item.
type Suggestion struct {
	// Label is what the popup shows: sigil + display name.
	Label string
	// Detail is the secondary line: the identifier/URI.
	Detail string
	// Info is the entry description, empty when the provider gave none.
	Info string
	// Kind groups the item for display.
	Kind SuggestionKind
	// Boost ranks items: entries with descriptive metadata sort first.
	Boost int

	identifier string // resource identifier, for insertion
	promptName string // prompt name, for the submit path
}

// IsPrompt reports whether applying this suggestion submits a prompt instead
// of inserting text.
func (s Suggestion) IsPrompt() bool { return s.Kind == KindPrompt }

// Result is a completed suggestion request: the span of the trigger text to
// replace and the ranked items. A nil Result means "no suggestions".
type Result struct {
	From        int
	To          int
	Suggestions []Suggestion
}

// Request is a completion trigger: a document snapshot, the cursor position,
// and whether the user explicitly requested completion (as opposed to it
// firing from a trigger character).
type Request struct {
	Doc      string
	Cursor   int
	Explicit bool
}

// MergeFunc folds freshly fetched entries into the session's catalog store.
// It runs before suggestions are built, so decorations and hover recognize
// fetched entries even before the user picks one.
type MergeFunc func(resources []catalog.ResourceEntry, prompts []catalog.PromptEntry)

// SubmitFunc receives the full content of a selected prompt.
type SubmitFunc func(name string, messages []catalog.PromptMessage) error

// PromptCache caches fetched prompt content between selections.
type PromptCache interface {
	Get(name string) ([]catalog.PromptMessage, bool)
	Set(name string, messages []catalog.PromptMessage)
}

// Connectable is implemented by providers that need an explicit connection
// step before serving fetches.
type Connectable interface {
	Connect(ctx context.Context) error
}

// Completer is the completion source: it turns cursor context into ranked
// suggestions by fetching the provider catalog and merging it into the
// session store.
type Completer struct {
	provider catalog.Provider
	merge    MergeFunc
	submit   SubmitFunc
	cache    PromptCache

	connectOnce sync.Once
	connectErr  error
}

// NewCompleter builds a completion source. merge must be non-nil; submit and
// cache are optional (a nil submit makes prompt selection fail loudly, a nil
// cache disables prompt-content caching).
func NewCompleter(provider catalog.Provider, merge MergeFunc, submit SubmitFunc, cache PromptCache) *Completer {
	return &Completer{provider: provider, merge: merge, submit: submit, cache: cache}
}

// ensureConnected establishes the provider connection exactly once and
// memoizes the outcome; a failed connection is recorded, not retried, and
// every later fetch degrades to "no suggestions".
func (c *Completer) ensureConnected(ctx context.Context) error {
	c.connectOnce.Do(func() {
		if conn, ok := c.provider.(Connectable); ok {
			c.connectErr = conn.Connect(ctx)
			if c.connectErr != nil {
				log.ErrorErr(log.CatProvider, "provider connection failed", c.connectErr)
			}
		}
	})
	return c.connectErr
}

// Complete returns ranked suggestions for the request, or nil for "no
// suggestions". Fetch and connection failures are logged and degrade to nil;
// they never surface as errors from this entry point.
func (c *Completer) Complete(ctx context.Context, req Request) *Result {
	from, to, ok := triggerSpan(req)
	if !ok {
		return nil
	}

	if err := c.ensureConnected(ctx); err != nil {
		return nil
	}

	resources, err := c.provider.ListResources(ctx)
	if err != nil {
		log.ErrorErr(log.CatComplete, "resource fetch failed", err)
		return nil
	}
	prompts, err := c.provider.ListPrompts(ctx)
	if err != nil {
		log.ErrorErr(log.CatComplete, "prompt fetch failed", err)
		return nil
	}
	if len(resources) == 0 && len(prompts) == 0 {
		return nil
	}

	// Merge before building items so the decoration engine and hover see
	// the fetched entries on their next read.
	c.merge(resources, prompts)

	suggestions := make([]Suggestion, 0, len(resources)+len(prompts))
	for _, r := range resources {
		s := Suggestion{
			Label:      token.ResourceSigil + r.Label(),
			Detail:     r.Identifier,
			Info:       r.Description,
			Kind:       KindText,
			identifier: r.Identifier,
		}
		if r.MIMEType != "" {
			s.Kind = KindFile
		}
		if r.Description != "" {
			s.Boost = 1
		} else {
			s.Boost = -1
		}
		suggestions = append(suggestions, s)
	}
	for _, p := range prompts {
		s := Suggestion{
			Label:      token.PromptSigil + p.Name,
			Detail:     p.Name,
			Info:       p.Description,
			Kind:       KindPrompt,
			promptName: p.Name,
		}
		if p.Description != "" {
			s.Boost = 1
		} else {
			s.Boost = -1
		}
		suggestions = append(suggestions, s)
	}

	// Stable: provider order is preserved within a boost class.
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Boost > suggestions[j].Boost
	})

	log.Debug(log.CatComplete, "suggestions built",
		"resources", len(resources), "prompts", len(prompts))
	return &Result{From: from, To: to, Suggestions: suggestions}
}

// triggerSpan locates the in-progress sigil span before the cursor. Only the
// current line is examined, never the whole document. An empty span is only
// accepted for explicit requests.
func triggerSpan(req Request) (from, to int, ok bool) {
	cursor := clamp(req.Cursor, len(req.Doc))
	lineStart := strings.LastIndexByte(req.Doc[:cursor], '\n') + 1
	loc := triggerPattern.FindStringIndex(req.Doc[lineStart:cursor])
	if loc == nil {
		return 0, 0, false
	}
	from, to = lineStart+loc[0], lineStart+loc[1]
	if from == to && !req.Explicit {
		return 0, 0, false
	}
	return from, to, true
}

// Applied is the outcome of applying a suggestion.
type Applied struct {
	// Doc and Cursor are the post-apply document state. Unchanged from the
	// input for prompt suggestions.
	Doc    string
	Cursor int

	// Submitted is true when a prompt was delivered to the submit handler.
	Submitted bool
}

// Apply commits a chosen suggestion against the result's trigger span.
//
// A resource suggestion replaces the span with the canonical token text plus
// exactly one trailing space. By documented contract the space is appended
// unconditionally, even when a space already follows; the doubled space is
// accepted rather than special-cased.
//
// A prompt suggestion never edits the document: it fetches the prompt's full
// content and hands it to the submit handler. With no handler registered it
// returns ErrNoSubmitHandler.
func (c *Completer) Apply(ctx context.Context, doc string, res *Result, s Suggestion) (Applied, error) {
	if s.IsPrompt() {
		if c.submit == nil {
			log.Error(log.CatComplete, "prompt selected without submit handler", "prompt", s.promptName)
			return Applied{Doc: doc}, ErrNoSubmitHandler
		}
		messages, err := c.fetchPrompt(ctx, s.promptName)
		if err != nil {
			log.ErrorErr(log.CatComplete, "prompt content fetch failed", err, "prompt", s.promptName)
			return Applied{Doc: doc}, err
		}
		if err := c.submit(s.promptName, messages); err != nil {
			return Applied{Doc: doc}, err
		}
		return Applied{Doc: doc, Submitted: true}, nil
	}

	insert := token.ResourceSigil + s.identifier + " "
	next := doc[:res.From] + insert + doc[res.To:]
	return Applied{Doc: next, Cursor: res.From + len(insert)}, nil
}

func (c *Completer) fetchPrompt(ctx context.Context, name string) ([]catalog.PromptMessage, error) {
	if c.cache != nil {
		if messages, ok := c.cache.Get(name); ok {
			return messages, nil
		}
	}
	messages, err := c.provider.GetPrompt(ctx, name)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(name, messages)
	}
	return messages, nil
}
