// Package search implements the match index and cursor navigation used to
// highlight a query inside a retrieved ads.txt document.
//
// State is a value type. Every operation returns a new State and never
// mutates its receiver, so callers own the cursor explicitly.
package search

import (
	"fmt"
	"regexp"
)

// NoMatch is the cursor value of a State without matches
const NoMatch = -1

// Match is one occurrence of the query in the document, in byte offsets
type Match struct {
	Offset int
	Length int
}

// End returns the offset just past the match
func (m Match) End() int {
	return m.Offset + m.Length
}

// State is the search state over one document.
// Current is in [0, len(Matches)) when Matches is non-empty and NoMatch otherwise.
type State struct {
	Query   string
	Matches []Match
	Current int
}

// Clear returns the empty state
func Clear() State {
	return State{Current: NoMatch}
}

// SetQuery indexes every non-overlapping, case-insensitive, literal occurrence
// of query in doc, left to right. An empty query yields the empty state.
func SetQuery(doc, query string) State {
	if query == "" {
		return Clear()
	}

	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	found := re.FindAllStringIndex(doc, -1)

	state := State{Query: query, Current: NoMatch}
	if len(found) == 0 {
		return state
	}

	state.Matches = make([]Match, len(found))
	for i, loc := range found {
		state.Matches[i] = Match{Offset: loc[0], Length: loc[1] - loc[0]}
	}
	state.Current = 0
	return state
}

// Next advances the cursor, wrapping to the first match
func (s State) Next() State {
	if len(s.Matches) == 0 {
		return s
	}
	s.Current = (s.Current + 1) % len(s.Matches)
	return s
}

// Prev moves the cursor back, wrapping to the last match
func (s State) Prev() State {
	if len(s.Matches) == 0 {
		return s
	}
	s.Current = (s.Current - 1 + len(s.Matches)) % len(s.Matches)
	return s
}

// HasMatches reports whether the query matched anything
func (s State) HasMatches() bool {
	return len(s.Matches) > 0
}

// CurrentMatch returns the match under the cursor
func (s State) CurrentMatch() (Match, bool) {
	if !s.HasMatches() {
		return Match{}, false
	}
	return s.Matches[s.Current], true
}

// Status renders the match counter shown next to the search box
func (s State) Status() string {
	if s.Query == "" {
		return ""
	}
	if !s.HasMatches() {
		return "No matches"
	}
	return fmt.Sprintf("%d of %d", s.Current+1, len(s.Matches))
}
