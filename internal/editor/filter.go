package editor

import (
	"github.com/rivo/uniseg"

	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/log"
	"github.com/quillworks/sigil/internal/token"
)

// Options controls the optional behaviors of the editing filter.
type Options struct {
	// AtomicDelete makes single-character deletion at a resolved token's
	// boundary remove the whole token.
	AtomicDelete bool

	// BoundaryJump makes single-step cursor movement across a resolved
	// token land on the far boundary instead of entering the token.
	BoundaryJump bool

	// PadInsertions inserts a separating space when typing directly against
	// a resolved token's end, so new text doesn't fuse into the token.
	PadInsertions bool
}

// DefaultOptions returns the shipped defaults: atomic deletion on, boundary
// jump off (the behavior is deliberately optional), padding off.
func DefaultOptions() Options {
	return Options{AtomicDelete: true}
}

// Rewrite intercepts a transaction before it is applied and may replace it
// with a different one. It is a conservative default-pass-through: when no
// rule matches, the transaction comes back unchanged.
//
// Rules, in precedence order:
//  1. Backward deletion of the character just before the cursor, with the
//     cursor sitting exactly at a resolved token's end: delete the whole
//     token instead.
//  2. Forward deletion of the character at the cursor, with the cursor
//     sitting exactly at a resolved token's start: delete the whole token.
//  3. Deletion near an unresolved token is not intercepted; atomicity is a
//     courtesy only for tokens the catalog has validated.
//  4. Transactions with a range selection pass through unmodified.
//  5. Transactions without a recognized edit intent pass through unmodified.
//
// Token positions are re-derived from the pre-transaction document on every
// call; the filter never trusts cached offsets.
func Rewrite(t Transaction, store *catalog.Store, opts Options) Transaction {
	if t.Event == EventNone || !t.Collapsed() {
		return t
	}

	switch t.Event {
	case EventDeleteBackward, EventDeleteForward:
		if !opts.AtomicDelete || !singleGrapheme(t.Doc, t.From, t.To) {
			return t
		}
		return rewriteDelete(t, store)
	case EventInput:
		if !opts.PadInsertions {
			return t
		}
		return rewritePadding(t, store)
	}
	return t
}

// singleGrapheme reports whether doc[from:to] is exactly one grapheme
// cluster. Deletion widths arrive in bytes, and a single backspace over a
// multi-byte character spans several of them.
func singleGrapheme(doc string, from, to int) bool {
	if from < 0 || to > len(doc) || from >= to {
		return false
	}
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(doc[from:to], -1)
	return len(cluster) == to-from
}

func rewriteDelete(t Transaction, store *catalog.Store) Transaction {
	cursor := t.SelFrom
	for m := range token.Scan(t.Doc) {
		if m.Start > cursor {
			break
		}
		atEnd := t.Event == EventDeleteBackward && m.End == cursor && t.To == cursor
		atStart := t.Event == EventDeleteForward && m.Start == cursor && t.From == cursor
		if !atEnd && !atStart {
			continue
		}
		if _, ok := store.Resource(m.Identifier()); !ok {
			// Unresolved: plain character-level deletion proceeds.
			return t
		}
		log.Debug(log.CatFilter, "atomic token delete", "token", m.Text, "start", m.Start)
		t.From, t.To = m.Start, m.End
		return t
	}
	return t
}

func rewritePadding(t Transaction, store *catalog.Store) Transaction {
	if t.From != t.To || t.Insert == "" || t.Insert == " " {
		return t
	}
	m, ok := token.At(t.Doc, t.From)
	if !ok || m.End != t.From {
		return t
	}
	if _, resolved := store.Resource(m.Identifier()); !resolved {
		return t
	}
	t.Insert = " " + t.Insert
	return t
}

// SnapCursor adjusts a single-step cursor move from pos to target so that a
// resolved token is crossed atomically: a move landing strictly inside the
// token continues to its far boundary. Moves landing on a boundary, or
// anywhere when the token is unresolved, come back unchanged.
func SnapCursor(doc string, pos, target int, store *catalog.Store) int {
	m, ok := token.At(doc, target)
	if !ok || target <= m.Start || target >= m.End {
		return target
	}
	if _, resolved := store.Resource(m.Identifier()); !resolved {
		return target
	}
	if target > pos {
		return m.End
	}
	return m.Start
}
