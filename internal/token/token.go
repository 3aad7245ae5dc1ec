// Package token recognizes resource-reference tokens embedded in free text.
//
// A reference token looks like "@scheme://path/to/thing". The grammar is the
// single wire-level contract shared by the matcher, the atomicity filter and
// the extraction helpers: if two components disagreed on what a token is,
// decorations and deletion behavior would disagree with each other.
package token

import (
	"iter"
	"regexp"
	"strings"
)

// Sigil characters that begin a recognizable token.
const (
	ResourceSigil = "@"
	PromptSigil   = "/"
)

// pattern is the reference-token grammar: "@" sigil, a scheme of word
// characters or hyphens, the literal "://", then a non-whitespace tail whose
// first character must not be another slash (rejects "@scheme:///x").
// No assertion is made about what precedes the sigil.
var pattern = regexp.MustCompile(`@[\w-]+://[^\s/]\S*`)

// Match is a single token occurrence within a scanned string.
// Offsets are byte offsets into the scanned string.
type Match struct {
	Text  string // full matched text, including the sigil
	Start int    // byte offset of the sigil
	End   int    // byte offset one past the last matched byte
}

// Identifier returns the match text with the leading sigil stripped,
// e.g. "github://repo" for "@github://repo".
func (m Match) Identifier() string {
	return strings.TrimPrefix(m.Text, ResourceSigil)
}

// Scan returns a lazy sequence of non-overlapping token matches in s, in
// left-to-right order. The sequence is restartable: ranging over it twice
// yields the same matches.
func Scan(s string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		offset := 0
		for offset < len(s) {
			loc := pattern.FindStringIndex(s[offset:])
			if loc == nil {
				return
			}
			start, end := offset+loc[0], offset+loc[1]
			if !yield(Match{Text: s[start:end], Start: start, End: end}) {
				return
			}
			offset = end
		}
	}
}

// All returns every token match in s as a slice. Convenience over Scan for
// callers that need the full set anyway.
func All(s string) []Match {
	var matches []Match
	for m := range Scan(s) {
		matches = append(matches, m)
	}
	return matches
}

// At returns the match covering or ending exactly at byte offset pos, if any.
// A match "covers" pos when Start <= pos < End; the End == pos case is
// included so callers probing a cursor sitting just after a token find it.
func At(s string, pos int) (Match, bool) {
	for m := range Scan(s) {
		if m.Start > pos {
			break
		}
		if pos <= m.End {
			return m, true
		}
	}
	return Match{}, false
}

// IsToken reports whether s in its entirety matches the token grammar.
func IsToken(s string) bool {
	loc := pattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
