package editor

import (
	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/token"
)

// HoverInfo describes the resolved token under a cursor position, for
// tooltip display.
type HoverInfo struct {
	Entry catalog.ResourceEntry
	Start int
	End   int
}

// Hover looks up the resolved token at pos. Pure lookup against the given
// snapshots; returns false when pos is not on a token or the token's
// identifier is absent from the store.
func Hover(doc string, pos int, store *catalog.Store) (HoverInfo, bool) {
	m, ok := token.At(doc, pos)
	if !ok {
		return HoverInfo{}, false
	}
	entry, ok := store.Resource(m.Identifier())
	if !ok {
		return HoverInfo{}, false
	}
	return HoverInfo{Entry: entry, Start: m.Start, End: m.End}, true
}
