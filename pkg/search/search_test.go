package search

import (
	"fmt"
	"strings"
	"testing"
)

const doc = "ads.txt has ADS and ads twice"

func TestSetQuery_CaseInsensitive(t *testing.T) {
	state := SetQuery(doc, "ads")

	if len(state.Matches) != 3 {
		t.Fatalf("len(Matches) = %d, want 3", len(state.Matches))
	}
	if state.Current != 0 {
		t.Errorf("Current = %d, want 0", state.Current)
	}

	expected := []Match{{0, 3}, {12, 3}, {20, 3}}
	for i, m := range state.Matches {
		if m != expected[i] {
			t.Errorf("Matches[%d] = %+v, want %+v", i, m, expected[i])
		}
	}
	if got := doc[state.Matches[1].Offset:state.Matches[1].End()]; got != "ADS" {
		t.Errorf("second match text = %q, want ADS", got)
	}
}

func TestNavigation_WrapAround(t *testing.T) {
	state := SetQuery(doc, "ads")

	state = state.Next().Next()
	if state.Current != 2 {
		t.Fatalf("Current = %d, want 2", state.Current)
	}

	if got := state.Next().Current; got != 0 {
		t.Errorf("Next() from 2 = %d, want 0", got)
	}

	first := SetQuery(doc, "ads")
	if got := first.Prev().Current; got != 2 {
		t.Errorf("Prev() from 0 = %d, want 2", got)
	}
}

func TestNavigation_DoesNotMutateReceiver(t *testing.T) {
	state := SetQuery(doc, "ads")
	_ = state.Next()
	if state.Current != 0 {
		t.Errorf("Current = %d after Next() on copy, want 0", state.Current)
	}
}

func TestNavigation_NoMatchesIsNoop(t *testing.T) {
	state := SetQuery(doc, "zzz")

	if state.Current != NoMatch {
		t.Fatalf("Current = %d, want %d", state.Current, NoMatch)
	}
	if got := state.Next(); got.Current != NoMatch || got.Query != "zzz" {
		t.Errorf("Next() = %+v, want unchanged state", got)
	}
	if got := state.Prev(); got.Current != NoMatch {
		t.Errorf("Prev() = %+v, want unchanged state", got)
	}
}

func TestSetQuery_LiteralMetacharacters(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		query    string
		expected int
	}{
		{"dot is literal", "axb a.b", "a.b", 1},
		{"dot does not match any char", "axb ayb", "a.b", 0},
		{"star", "a*b aab", "a*", 1},
		{"brackets", "[pub] pub", "[pub]", 1},
		{"parens and pipe", "(a|b) a b", "(a|b)", 1},
		{"backslash", `c:\ads c:ads`, `c:\`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := SetQuery(tt.doc, tt.query)
			if len(state.Matches) != tt.expected {
				t.Errorf("SetQuery(%q, %q) = %d matches, want %d", tt.doc, tt.query, len(state.Matches), tt.expected)
			}
		})
	}
}

func TestSetQuery_NonOverlapping(t *testing.T) {
	state := SetQuery("aaaa", "aa")
	if len(state.Matches) != 2 {
		t.Errorf("len(Matches) = %d, want 2", len(state.Matches))
	}
}

func TestSetQuery_EmptyQueryClearsState(t *testing.T) {
	prior := SetQuery(doc, "ads").Next()

	state := SetQuery(doc, "")
	if state.Query != "" || len(state.Matches) != 0 || state.Current != NoMatch {
		t.Errorf("SetQuery(doc, \"\") = %+v, want empty state (prior %+v)", state, prior)
	}
	if state.Status() != "" {
		t.Errorf("Status() = %q, want empty", state.Status())
	}
}

func TestClear(t *testing.T) {
	state := Clear()
	if state.HasMatches() || state.Current != NoMatch {
		t.Errorf("Clear() = %+v, want empty state", state)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{SetQuery(doc, "ads"), "1 of 3"},
		{SetQuery(doc, "ads").Prev(), "3 of 3"},
		{SetQuery(doc, "missing"), "No matches"},
		{Clear(), ""},
	}

	for _, tt := range tests {
		if got := tt.state.Status(); got != tt.expected {
			t.Errorf("Status() = %q, want %q", got, tt.expected)
		}
	}
}

func TestSegments_RoundTrip(t *testing.T) {
	state := SetQuery(doc, "ads").Next()
	segments := Segments(doc, state)

	var b strings.Builder
	current := 0
	matches := 0
	for _, seg := range segments {
		b.WriteString(seg.Text)
		if seg.Match {
			matches++
		}
		if seg.Current {
			current++
			if seg.Index != 1 {
				t.Errorf("current segment index = %d, want 1", seg.Index)
			}
		}
	}

	if b.String() != doc {
		t.Errorf("joined segments = %q, want %q", b.String(), doc)
	}
	if matches != 3 {
		t.Errorf("match segments = %d, want 3", matches)
	}
	if current != 1 {
		t.Errorf("current segments = %d, want 1", current)
	}
}

func TestRender(t *testing.T) {
	state := SetQuery("one ads two ads", "ADS")
	got := Render("one ads two ads", state, func(seg Segment) string {
		if seg.Current {
			return fmt.Sprintf("<<%s>>", seg.Text)
		}
		return fmt.Sprintf("<%s>", seg.Text)
	})

	want := "one <<ads>> two <ads>"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestLine(t *testing.T) {
	text := "# header\nexample.com, 1, DIRECT\nads.example, 2, RESELLER"
	state := SetQuery(text, "reseller")

	if got := Line(text, state); got != 2 {
		t.Errorf("Line() = %d, want 2", got)
	}
	if got := Line(text, Clear()); got != 0 {
		t.Errorf("Line(Clear()) = %d, want 0", got)
	}
}
