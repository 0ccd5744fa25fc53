package presenter

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
)

func TestDashboard_OnResult(t *testing.T) {
	d := NewDashboard()
	d.OnResult(&entity.BatchResult{Domain: "example.com", Found: true, Lines: 12, Source: "resolver"})
	d.OnResult(&entity.BatchResult{Domain: "missing.example"})
	d.OnResult(&entity.BatchResult{Input: "https://"})
	for i := 0; i < maxRecentResults; i++ {
		d.OnResult(&entity.BatchResult{Domain: "filler.example"})
	}

	if len(d.recentResults) != maxRecentResults {
		t.Errorf("recent results = %d, want %d", len(d.recentResults), maxRecentResults)
	}

	want := []string{"✓ example.com (12 lines via resolver)", "✗ missing.example", "! https:// (invalid)"}
	for i, r := range []*entity.BatchResult{
		{Domain: "example.com", Found: true, Lines: 12, Source: "resolver"},
		{Domain: "missing.example"},
		{Input: "https://"},
	} {
		if got := formatResult(r); got != want[i] {
			t.Errorf("formatResult() = %q, want %q", got, want[i])
		}
	}
}

func TestDashboard_View(t *testing.T) {
	d := NewDashboard()
	if got := d.View(); got != "Initializing..." {
		t.Errorf("View() before sizing = %q", got)
	}

	d.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	d.OnMetricsUpdate(&entity.Metrics{Found: 3, NotFound: 1, TotalWorkers: 4, ActiveWorkers: 2})

	view := d.View()
	for _, want := range []string{"Found:", "Hit Rate:          75.0%", "2 / 4"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	if _, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Error("q did not quit")
	}
}
