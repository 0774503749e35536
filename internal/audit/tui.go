package audit

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsweep/internal/engine"
	"github.com/amishk599/jobsweep/internal/model"
)

// Lines per listing in the list view (title + subtitle + blank separator).
const listingItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
	viewFailures
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle   = headerStyle.Foreground(lipgloss.Color("39"))
	inactiveHeaderStyle = headerStyle.Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	jobTitleStyle    = lipgloss.NewStyle().Bold(true)
	jobSubtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	selectedJobTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedJobSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(14)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	descDividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	descBodyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	failureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type auditModel struct {
	result        *engine.PreviewResult
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=all, 1=fresh
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view           viewState
	detail         model.Listing
	detailViewport viewport.Model

	open     func(url string)
	wantQuit bool
}

func newAuditModel(res *engine.PreviewResult) auditModel {
	return auditModel{result: res, open: openURL}
}

func (m auditModel) Init() tea.Cmd {
	return nil
}

func (m auditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view != viewList {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderOverlay())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view != viewList {
			return m.updateOverlay(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m auditModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		listings := m.activeListings()
		if len(listings) == 0 {
			return m, nil
		}
		m.detail = listings[m.activeCursor()]
		return m.openOverlay(viewDetail), nil
	case "f":
		return m.openOverlay(viewFailures), nil
	}

	// pgup/pgdn/home/end scroll the active pane.
	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m auditModel) openOverlay(v viewState) auditModel {
	m.view = v
	m.detailViewport = viewport.New(max(m.width-4, 20), max(m.height-4, 5))
	m.detailViewport.SetContent(m.renderOverlay())
	return m
}

func (m auditModel) updateOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if m.view == viewDetail && m.detail.URL != "" {
			m.open(m.detail.URL)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *auditModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.result.All)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.result.Fresh)-1, 0))
	}
}

func (m *auditModel) ensureCursorVisible() {
	vp, cursor := &m.leftViewport, m.leftCursor
	if m.activePane == 1 {
		vp, cursor = &m.rightViewport, m.rightCursor
	}

	top := cursor * listingItemHeight
	bottom := top + listingItemHeight - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m *auditModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// Header + border top/bottom + status bar.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width, m.leftViewport.Height = paneWidth, paneHeight
		m.rightViewport.Width, m.rightViewport.Height = paneWidth, paneHeight
	}
	m.recalcContent()
}

func (m *auditModel) recalcContent() {
	m.leftViewport.SetContent(renderListings(m.result.All, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderListings(m.result.Fresh, m.rightCursor, m.activePane == 1))
}

func (m auditModel) activeListings() []model.Listing {
	if m.activePane == 0 {
		return m.result.All
	}
	return m.result.Fresh
}

func (m auditModel) activeCursor() int {
	if m.activePane == 0 {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m auditModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	switch m.view {
	case viewDetail:
		return m.viewOverlay("Listing", " o open URL  esc/backspace back  ↑/↓ scroll  q quit")
	case viewFailures:
		return m.viewOverlay("Source failures", " esc/backspace back  ↑/↓ scroll  q quit")
	}
	return m.viewList()
}

func (m auditModel) viewList() string {
	paneWidth := m.leftViewport.Width
	all, fresh := len(m.result.All), len(m.result.Fresh)

	leftHeader := fmt.Sprintf(" Found (%d)", all)
	rightHeader := fmt.Sprintf(" New & recent (%d)", fresh)

	leftH, rightH := activeHeaderStyle, inactiveHeaderStyle
	leftB, rightB := activeBorderStyle, inactiveBorderStyle
	if m.activePane == 1 {
		leftH, rightH = rightH, leftH
		leftB, rightB = rightB, leftB
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftH.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightH.Render(rightHeader)),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftB.Width(paneWidth).Render(m.leftViewport.View()),
		" ",
		rightB.Width(paneWidth).Render(m.rightViewport.View()),
	)

	statusText := fmt.Sprintf(" %q in %s | %d found | %d new | %d failures    ←/→/Tab switch  ↑/↓ cursor  Enter detail  f failures  Esc back  q quit",
		m.result.Keyword, m.result.Scope.Name, all, fresh, len(m.result.Failures))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m auditModel) viewOverlay(title, hints string) string {
	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(hints)
	return detailTitleStyle.Render(title) + "\n" + content + "\n" + statusBar
}

func (m auditModel) renderOverlay() string {
	if m.view == viewFailures {
		return renderFailures(m.result.Failures)
	}
	return m.renderDetail()
}

func (m auditModel) renderDetail() string {
	l := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Title", l.Title)
	addField("Company", l.Company)
	addField("Location", l.Location)
	addField("Scope", l.Country)
	b.WriteByte('\n')
	addField("Posted", l.DatePosted)
	addField("Source", l.Source)
	addField("Search term", l.SearchTerm)
	addField("URL", l.URL)

	if l.Description != "" {
		wrapWidth := max(m.width-8, 20)
		label := "── Description "
		b.WriteString("\n" + descDividerStyle.Render(label+strings.Repeat("─", max(wrapWidth-len(label), 3))) + "\n\n")
		b.WriteString(descBodyStyle.Render(wordWrap(l.Description, wrapWidth)) + "\n")
	}
	return b.String()
}

func renderFailures(failures []*model.SoftFailure) string {
	if len(failures) == 0 {
		return "  (no failures)"
	}
	var b strings.Builder
	for _, f := range failures {
		b.WriteString(failureStyle.Render(fmt.Sprintf("⚠ %s [%s/%s]", f.Source, f.Stage, f.Kind)))
		b.WriteByte('\n')
		b.WriteString("  " + f.Err.Error() + "\n\n")
	}
	return b.String()
}

func renderListings(listings []model.Listing, cursor int, isActive bool) string {
	if len(listings) == 0 {
		return "  (no listings)"
	}

	var b strings.Builder
	for i, l := range listings {
		titleSt, subtitleSt, prefix := jobTitleStyle, jobSubtitleStyle, "  "
		if isActive && i == cursor {
			titleSt, subtitleSt, prefix = selectedJobTitleStyle, selectedJobSubtitleStyle, "> "
		}

		posted := l.DatePosted
		if posted == "" {
			posted = "n/a"
		}
		b.WriteString(prefix + titleSt.Render(l.Title) + "\n")
		b.WriteString(prefix + subtitleSt.Render(fmt.Sprintf("%s · %s · %s", l.Source, l.Location, posted)) + "\n")
		if i < len(listings)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunAuditTUI launches the split-pane view of one preview result.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed
// esc to go back to the picker.
func RunAuditTUI(res *engine.PreviewResult) (bool, error) {
	result, err := tea.NewProgram(newAuditModel(res), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	return result.(auditModel).wantQuit, nil
}
