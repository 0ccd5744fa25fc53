package presenter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/adstxt"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/search"
)

// ErrorDismissDelay is how long an error stays on screen
const ErrorDismissDelay = 5 * time.Second

// RetrieveFunc runs one retrieval for raw user input
type RetrieveFunc func(ctx context.Context, raw string) (*entity.RetrievalResult, error)

type focusArea int

const (
	focusDomain focusArea = iota
	focusResult
	focusSearch
)

// retrievedMsg carries a finished retrieval tagged with its request token
type retrievedMsg struct {
	token  uint64
	result *entity.RetrievalResult
	err    error
}

type dismissErrorMsg struct {
	token uint64
}

var (
	viewerTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	urlStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Underline(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#FF6B6B")).Padding(0, 1)
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	matchStyle       = lipgloss.NewStyle().Background(lipgloss.Color("#FFE066")).Foreground(lipgloss.Color("#000000"))
	currentStyle     = lipgloss.NewStyle().Background(lipgloss.Color("#FF9F1C")).Foreground(lipgloss.Color("#000000")).Bold(true)
)

// Viewer is the interactive ads.txt viewer.
// Only the result of the most recent request is ever shown; a result whose
// token is older than the current one is dropped.
type Viewer struct {
	ctx      context.Context
	retrieve RetrieveFunc

	domainInput textinput.Model
	searchInput textinput.Model
	viewport    viewport.Model
	focus       focusArea

	result  *entity.RetrievalResult
	search  search.State
	loading bool
	token   uint64

	errMsg   string
	errToken uint64

	width  int
	height int
}

// NewViewer creates a viewer running retrievals with retrieve
func NewViewer(ctx context.Context, retrieve RetrieveFunc) *Viewer {
	domainInput := textinput.New()
	domainInput.Placeholder = "example.com"
	domainInput.Prompt = "Domain: "
	domainInput.CharLimit = 2048
	domainInput.Focus()

	searchInput := textinput.New()
	searchInput.Placeholder = "search"
	searchInput.Prompt = "/"
	searchInput.CharLimit = 256

	return &Viewer{
		ctx:         ctx,
		retrieve:    retrieve,
		domainInput: domainInput,
		searchInput: searchInput,
		viewport:    viewport.New(80, 20),
		focus:       focusDomain,
	}
}

// SetDomain pre-fills the domain input; a non-empty value is retrieved on start
func (v *Viewer) SetDomain(domain string) {
	v.domainInput.SetValue(domain)
}

// Init implements tea.Model
func (v *Viewer) Init() tea.Cmd {
	if strings.TrimSpace(v.domainInput.Value()) != "" {
		return tea.Batch(textinput.Blink, v.submit())
	}
	return textinput.Blink
}

// Update implements tea.Model
func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.resize()
		return v, nil

	case retrievedMsg:
		return v, v.onRetrieved(msg)

	case dismissErrorMsg:
		if msg.token == v.errToken {
			v.errMsg = ""
		}
		return v, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return v, tea.Quit
		}
		return v, v.onKey(msg)
	}

	var cmd tea.Cmd
	switch v.focus {
	case focusDomain:
		v.domainInput, cmd = v.domainInput.Update(msg)
	case focusSearch:
		v.searchInput, cmd = v.searchInput.Update(msg)
	}
	return v, cmd
}

func (v *Viewer) onKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	if key == "ctrl+f" {
		return v.focusOn(focusSearch)
	}

	switch v.focus {
	case focusDomain:
		switch key {
		case "enter":
			return v.submit()
		case "tab":
			return v.focusOn(focusResult)
		}
		var cmd tea.Cmd
		v.domainInput, cmd = v.domainInput.Update(msg)
		return cmd

	case focusSearch:
		switch key {
		case "enter", "down":
			v.moveTo(v.search.Next())
			return nil
		case "up":
			v.moveTo(v.search.Prev())
			return nil
		case "esc":
			v.clearSearch()
			return v.focusOn(focusResult)
		case "tab":
			return v.focusOn(focusDomain)
		}
		var cmd tea.Cmd
		v.searchInput, cmd = v.searchInput.Update(msg)
		if v.searchInput.Value() != v.search.Query {
			v.moveTo(search.SetQuery(v.content(), v.searchInput.Value()))
		}
		return cmd

	default:
		switch key {
		case "/":
			return v.focusOn(focusSearch)
		case "tab":
			return v.focusOn(focusDomain)
		case "esc":
			v.clearSearch()
			return nil
		case "q":
			return tea.Quit
		case "n":
			v.moveTo(v.search.Next())
			return nil
		case "N":
			v.moveTo(v.search.Prev())
			return nil
		case "down", "up":
			if v.search.HasMatches() {
				if key == "down" {
					v.moveTo(v.search.Next())
				} else {
					v.moveTo(v.search.Prev())
				}
				return nil
			}
		}
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return cmd
	}
}

// submit starts a retrieval for the domain input under a fresh token
func (v *Viewer) submit() tea.Cmd {
	raw := strings.TrimSpace(v.domainInput.Value())
	if raw == "" {
		return v.showError(EmptyInputMessage)
	}

	v.token++
	token := v.token
	v.loading = true
	v.result = nil
	v.clearSearch()
	v.refresh()

	ctx, retrieve := v.ctx, v.retrieve
	return func() tea.Msg {
		result, err := retrieve(ctx, raw)
		return retrievedMsg{token: token, result: result, err: err}
	}
}

func (v *Viewer) onRetrieved(msg retrievedMsg) tea.Cmd {
	if msg.token != v.token {
		return nil
	}
	v.loading = false
	if msg.err != nil {
		v.refresh()
		return v.showError(ErrorMessage(msg.err))
	}
	v.result = msg.result
	v.clearSearch()
	v.refresh()
	v.viewport.GotoTop()
	return v.focusOn(focusResult)
}

// showError displays message and schedules its dismissal
func (v *Viewer) showError(message string) tea.Cmd {
	if message == "" {
		return nil
	}
	v.errToken++
	token := v.errToken
	v.errMsg = message
	return tea.Tick(ErrorDismissDelay, func(time.Time) tea.Msg {
		return dismissErrorMsg{token: token}
	})
}

func (v *Viewer) focusOn(f focusArea) tea.Cmd {
	v.focus = f
	v.domainInput.Blur()
	v.searchInput.Blur()
	switch f {
	case focusDomain:
		return v.domainInput.Focus()
	case focusSearch:
		return v.searchInput.Focus()
	}
	return nil
}

func (v *Viewer) clearSearch() {
	v.searchInput.SetValue("")
	v.moveTo(search.Clear())
}

// moveTo installs a new search state and scrolls its current match into view
func (v *Viewer) moveTo(s search.State) {
	v.search = s
	v.refresh()
	if !s.HasMatches() {
		return
	}
	line := search.Line(v.content(), s)
	if line < v.viewport.YOffset || line >= v.viewport.YOffset+v.viewport.Height {
		v.viewport.SetYOffset(max(line-v.viewport.Height/2, 0))
	}
}

func (v *Viewer) content() string {
	if v.result == nil {
		return ""
	}
	return v.result.Content
}

// refresh re-renders the document with its highlights into the viewport
func (v *Viewer) refresh() {
	switch {
	case v.loading:
		v.viewport.SetContent("Fetching ads.txt...")
	case v.result == nil:
		v.viewport.SetContent("")
	default:
		v.viewport.SetContent(search.Render(v.result.Content, v.search, highlight))
	}
}

func highlight(seg search.Segment) string {
	if seg.Current {
		return currentStyle.Render(seg.Text)
	}
	return matchStyle.Render(seg.Text)
}

func (v *Viewer) resize() {
	// title, domain, url, search, status, help
	chrome := 8
	v.viewport.Width = max(v.width, 1)
	v.viewport.Height = max(v.height-chrome, 1)
	v.domainInput.Width = max(v.width-len(v.domainInput.Prompt)-2, 10)
	v.searchInput.Width = max(v.width/2, 10)
}

// View implements tea.Model
func (v *Viewer) View() string {
	var sections []string

	sections = append(sections, viewerTitleStyle.Render("ads.txt viewer"))
	sections = append(sections, v.domainInput.View())

	if v.errMsg != "" {
		sections = append(sections, errorStyle.Render(v.errMsg))
	} else if v.result != nil {
		sections = append(sections, fmt.Sprintf("%s  %s", urlStyle.Render(v.result.FinalURL),
			statusStyle.Render(fmt.Sprintf("%d lines via %s", adstxt.CountLines(v.result.Content), v.result.Source))))
	} else {
		sections = append(sections, "")
	}

	sections = append(sections, v.viewport.View())

	searchLine := v.searchInput.View()
	if status := v.search.Status(); status != "" {
		searchLine += "  " + statusStyle.Render(status)
	}
	sections = append(sections, searchLine)
	sections = append(sections, helpStyle.Render(v.help()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *Viewer) help() string {
	switch v.focus {
	case focusDomain:
		return "enter: fetch • tab: result • ctrl+f: search • ctrl+c: quit"
	case focusSearch:
		return "enter/↓: next • ↑: prev • esc: clear • ctrl+c: quit"
	}
	return "/: search • n/N: next/prev • esc: clear • tab: domain • q: quit"
}

// Status returns the match count text shown next to the search input
func (v *Viewer) Status() string {
	return v.search.Status()
}

// Error returns the error currently on screen
func (v *Viewer) Error() string {
	return v.errMsg
}

// Result returns the result on screen
func (v *Viewer) Result() *entity.RetrievalResult {
	return v.result
}
