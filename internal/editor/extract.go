package editor

import (
	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/token"
)

// Reference is one resolved token occurrence in a document, paired with its
// catalog entry.
type Reference struct {
	Entry catalog.ResourceEntry
	Start int
	End   int
}

// Extract returns every resolved token in doc, in document order. Hosts use
// this to serialize which resources a document references, e.g. when
// handing the text to a downstream consumer. Unresolved tokens are not
// reported.
func Extract(doc string, store *catalog.Store) []Reference {
	var refs []Reference
	for m := range token.Scan(doc) {
		entry, ok := store.Resource(m.Identifier())
		if !ok {
			continue
		}
		refs = append(refs, Reference{Entry: entry, Start: m.Start, End: m.End})
	}
	return refs
}
