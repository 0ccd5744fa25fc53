package presenter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
)

const maxRecentResults = 50

// Dashboard is a TUI dashboard for batch progress
type Dashboard struct {
	metrics       *entity.Metrics
	recentResults []string
	width         int
	height        int
	startTime     time.Time
	mu            sync.RWMutex
}

type tickMsg time.Time

// NewDashboard creates a new TUI dashboard
func NewDashboard() *Dashboard {
	return &Dashboard{
		metrics:   &entity.Metrics{},
		startTime: time.Now(),
	}
}

// Init initializes the dashboard
func (d *Dashboard) Init() tea.Cmd {
	return tickCmd()
}

// Update handles dashboard updates
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case tickMsg:
		return d, tickCmd()
	}

	return d, nil
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Initializing..."
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	header := d.renderHeader()
	footer := d.renderFooter()

	availableHeight := max(d.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	halfHeight := availableHeight / 2
	leftWidth := d.width / 2
	rightWidth := d.width - leftWidth

	// Row 1: queue and workers | retrieval outcomes
	row1 := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderGeneralStats(leftWidth, halfHeight),
		d.renderRetrievalStats(rightWidth, halfHeight),
	)

	// Row 2: attempts | recent results
	remainingHeight := availableHeight - halfHeight
	row2 := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderAttemptStats(leftWidth, remainingHeight),
		d.renderRecentResults(rightWidth, remainingHeight),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, row1, row2, footer)
}

// OnMetricsUpdate implements application.MetricsObserver
func (d *Dashboard) OnMetricsUpdate(metrics *entity.Metrics) {
	d.mu.Lock()
	d.metrics = metrics
	d.mu.Unlock()
}

// OnResult implements application.ResultObserver
func (d *Dashboard) OnResult(result *entity.BatchResult) {
	line := formatResult(result)

	d.mu.Lock()
	d.recentResults = append(d.recentResults, line)
	if len(d.recentResults) > maxRecentResults {
		d.recentResults = d.recentResults[len(d.recentResults)-maxRecentResults:]
	}
	d.mu.Unlock()
}

func formatResult(r *entity.BatchResult) string {
	switch {
	case r.Found:
		return fmt.Sprintf("✓ %s (%d lines via %s)", r.Domain, r.Lines, r.Source)
	case r.Domain == "":
		return fmt.Sprintf("! %s (invalid)", r.Input)
	default:
		return fmt.Sprintf("✗ %s", r.Domain)
	}
}

func (d *Dashboard) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	timeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#999999"))

	title := titleStyle.Render("📄 ads.txt Crawler")
	timeInfo := timeStyle.Render(fmt.Sprintf(" Running: %s | Time: %s",
		formatElapsed(time.Since(d.startTime)), time.Now().Format("15:04:05")))

	return title + timeInfo
}

func formatElapsed(elapsed time.Duration) string {
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func boxStyle(color string, width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Padding(1, 2).
		Width(max(width-2, 0)).
		Height(max(height-2, 0))
}

func (d *Dashboard) renderGeneralStats(width, height int) string {
	stats := []string{
		"📊 Batch",
		"",
		fmt.Sprintf("Queue Length:      %d", d.metrics.QueueLength),
		fmt.Sprintf("Active Workers:    %d / %d", d.metrics.ActiveWorkers, d.metrics.TotalWorkers),
		fmt.Sprintf("Domains Enqueued:  %d", d.metrics.TasksEnqueued),
		fmt.Sprintf("Domains Processed: %d", d.metrics.TasksProcessed),
		fmt.Sprintf("Duplicates:        %d", d.metrics.DuplicateInputs),
	}

	if elapsed := time.Since(d.startTime).Seconds(); elapsed > 0 {
		stats = append(stats,
			"",
			fmt.Sprintf("Domain Rate:       %.1f domains/s", float64(d.metrics.TasksProcessed)/elapsed),
		)
	}

	return boxStyle("#874BFD", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderRetrievalStats(width, height int) string {
	stats := []string{
		"🌐 Retrievals",
		"",
		fmt.Sprintf("Found:             %d", d.metrics.Found),
		fmt.Sprintf("Not Found:         %d", d.metrics.NotFound),
		fmt.Sprintf("Via Resolver:      %d", d.metrics.ResolverHits),
		fmt.Sprintf("Via Relays:        %d", d.metrics.RelayHits),
	}

	if finished := d.metrics.Found + d.metrics.NotFound; finished > 0 {
		stats = append(stats,
			"",
			fmt.Sprintf("Hit Rate:          %.1f%%", float64(d.metrics.Found)/float64(finished)*100),
		)
	}

	return boxStyle("#FF6B6B", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderAttemptStats(width, height int) string {
	stats := []string{
		"🔁 Attempts",
		"",
		fmt.Sprintf("Total Attempts:    %d", d.metrics.Attempts),
		fmt.Sprintf("Relay Attempts:    %d", d.metrics.RelayAttempts),
		fmt.Sprintf("Rejected Bodies:   %d", d.metrics.Rejected),
		fmt.Sprintf("Timeouts:          %d", d.metrics.Timeouts),
	}

	if elapsed := time.Since(d.startTime).Seconds(); elapsed > 0 {
		stats = append(stats,
			"",
			fmt.Sprintf("Attempt Rate:      %.1f req/s", float64(d.metrics.Attempts)/elapsed),
		)
	}

	return boxStyle("#4ECDC4", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderRecentResults(width, height int) string {
	lines := []string{
		fmt.Sprintf("📄 Recent Results (Active: %s)", strings.Join(d.metrics.ActiveDomains, ", ")),
		"",
	}

	if len(d.recentResults) == 0 {
		lines = append(lines, "No domains finished yet...")
	} else {
		// border, padding, title and blank line
		maxShow := max(height-6, 0)
		start := max(len(d.recentResults)-maxShow, 0)
		for _, r := range d.recentResults[start:] {
			lines = append(lines, "  "+r)
		}
	}

	return boxStyle("#04B575", width, height).Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) renderFooter() string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262")).
		Padding(1, 0)

	return footerStyle.Render("Press 'q' or 'Ctrl+C' to stop the batch")
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*500, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
