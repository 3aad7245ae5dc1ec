package editor

import (
	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/token"
)

// DecorationKind distinguishes tokens the catalog recognizes from tokens it
// does not (yet).
type DecorationKind int

const (
	// DecorationResolved marks a token whose identifier is in the store;
	// the renderer replaces it with an inline chip labeled by Label().
	DecorationResolved DecorationKind = iota

	// DecorationUnresolved marks a token that matches the grammar but is
	// unknown to the store; rendered in a distinct pending/broken style so
	// it doesn't read as plain text.
	DecorationUnresolved
)

// Decoration is one ephemeral render instruction for a visible token span.
// Decorations are recomputed wholesale on every qualifying change; nothing
// patches individual ranges.
type Decoration struct {
	Kind       DecorationKind
	Start      int
	End        int
	Identifier string

	// Entry is the resolved catalog entry. Zero value for unresolved spans.
	Entry catalog.ResourceEntry
}

// Label returns the chip text for a resolved decoration, or the raw
// identifier for an unresolved one.
func (d Decoration) Label() string {
	if d.Kind == DecorationResolved {
		return d.Entry.Label()
	}
	return d.Identifier
}

// Equivalent reports whether two decorations stand for the same token,
// keyed on identifier and kind alone. Position is deliberately ignored so
// the renderer can keep a widget alive for a token that merely moved.
func (d Decoration) Equivalent(o Decoration) bool {
	return d.Identifier == o.Identifier && d.Kind == o.Kind
}

// Decorations computes the full decoration set for the visible portions of
// doc against the given catalog snapshot. Only the visible ranges are
// scanned, never the whole document; a token clipped by a range boundary is
// skipped until it scrolls fully into view.
//
// Recomputation triggers are the caller's business: document change, visible
// range change, or a catalog merge. Nothing here polls.
func Decorations(doc string, visible []Range, store *catalog.Store) []Decoration {
	var decos []Decoration
	for _, r := range visible {
		from, to := clamp(r.From, len(doc)), clamp(r.To, len(doc))
		if from >= to {
			continue
		}
		for m := range token.Scan(doc[from:to]) {
			d := Decoration{
				Start:      from + m.Start,
				End:        from + m.End,
				Identifier: m.Identifier(),
			}
			if entry, ok := store.Resource(d.Identifier); ok {
				d.Kind = DecorationResolved
				d.Entry = entry
			} else {
				d.Kind = DecorationUnresolved
			}
			decos = append(decos, d)
		}
	}
	return decos
}

func clamp(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

// Handlers is the side-channel registry of interaction callbacks attached to
// resolved-token widgets at render time. A nil callback simply omits the
// corresponding affordance; it never panics.
type Handlers struct {
	OnClick     func(catalog.ResourceEntry)
	OnMouseOver func(catalog.ResourceEntry)
	OnMouseOut  func(catalog.ResourceEntry)
}

// Clickable reports whether resolved chips should get a click affordance.
func (h Handlers) Clickable() bool { return h.OnClick != nil }

// Click invokes the click handler if one is registered.
func (h Handlers) Click(e catalog.ResourceEntry) {
	if h.OnClick != nil {
		h.OnClick(e)
	}
}

// MouseOver invokes the mouse-over handler if one is registered.
func (h Handlers) MouseOver(e catalog.ResourceEntry) {
	if h.OnMouseOver != nil {
		h.OnMouseOver(e)
	}
}

// MouseOut invokes the mouse-out handler if one is registered.
func (h Handlers) MouseOut(e catalog.ResourceEntry) {
	if h.OnMouseOut != nil {
		h.OnMouseOut(e)
	}
}
