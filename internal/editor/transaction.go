// Package editor implements the synchronization engine between free-form
// text, the token grammar, and the catalog store: decoration computation,
// token-atomic editing, completion, hover lookup and reference extraction.
//
// Everything here is a pure function over explicit snapshots (document text
// plus a catalog store value); nothing reaches into live UI state. The
// composer UI in internal/ui drives these functions from its update loop.
package editor

// EventKind annotates a transaction with the user intent that produced it.
// Transactions without a recognized intent (EventNone) are never rewritten
// by the filter: programmatic and batch edits are not second-guessed.
type EventKind int

const (
	EventNone EventKind = iota
	EventInput
	EventDeleteBackward
	EventDeleteForward
)

// Transaction describes one proposed edit against a pre-state document.
// From/To give the replaced span ([From, To) in Doc, From == To for a pure
// insert) and SelFrom/SelTo the selection at the time the edit was issued
// (equal when the cursor is collapsed).
type Transaction struct {
	Doc    string
	From   int
	To     int
	Insert string

	SelFrom int
	SelTo   int

	Event EventKind
}

// Collapsed reports whether the transaction was issued with a collapsed
// cursor rather than a range selection.
func (t Transaction) Collapsed() bool {
	return t.SelFrom == t.SelTo
}

// Apply commits the transaction and returns the resulting document and
// cursor position. The cursor lands after inserted text, or at the start of
// a deleted span.
func (t Transaction) Apply() (string, int) {
	doc := t.Doc[:t.From] + t.Insert + t.Doc[t.To:]
	return doc, t.From + len(t.Insert)
}

// Range is a half-open byte span [From, To) within a document, used to scope
// work to the visible viewport.
type Range struct {
	From int
	To   int
}
