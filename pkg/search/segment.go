package search

import "strings"

// Segment is a run of document text, either plain or a highlighted match
type Segment struct {
	Text    string
	Match   bool
	Current bool
	Index   int
}

// Segments splits doc into plain and match segments according to s.
// Concatenating every Segment.Text yields doc again.
func Segments(doc string, s State) []Segment {
	if !s.HasMatches() {
		if doc == "" {
			return nil
		}
		return []Segment{{Text: doc, Index: NoMatch}}
	}

	segments := make([]Segment, 0, 2*len(s.Matches)+1)
	last := 0
	for i, m := range s.Matches {
		if m.Offset > last {
			segments = append(segments, Segment{Text: doc[last:m.Offset], Index: NoMatch})
		}
		segments = append(segments, Segment{
			Text:    doc[m.Offset:m.End()],
			Match:   true,
			Current: i == s.Current,
			Index:   i,
		})
		last = m.End()
	}
	if last < len(doc) {
		segments = append(segments, Segment{Text: doc[last:], Index: NoMatch})
	}
	return segments
}

// Render joins the segments of doc, passing matches through mark
func Render(doc string, s State, mark func(seg Segment) string) string {
	var b strings.Builder
	b.Grow(len(doc))
	for _, seg := range Segments(doc, s) {
		if seg.Match {
			b.WriteString(mark(seg))
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Line returns the zero-based line number containing the current match
func Line(doc string, s State) int {
	m, ok := s.CurrentMatch()
	if !ok {
		return 0
	}
	return strings.Count(doc[:m.Offset], "\n")
}
