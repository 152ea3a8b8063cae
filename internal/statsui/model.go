// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pomoquest/internal/model"
	"pomoquest/internal/stats"
	"pomoquest/internal/store"
	"pomoquest/internal/unlock"
	"pomoquest/internal/xp"
)

const (
	tabOverview = iota
	tabHistory
	tabCollection
)

const teaserCount = 3

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	equippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	unlockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	lockedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	store   *store.Store
	catalog *unlock.Catalog
	cfg     model.StatsConfig

	report  stats.Report
	unlocks []model.Unlock
	errMsg  string

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	historyTable table.Model

	width  int
	height int
}

// NewModel constructs a stats UI model.
func NewModel(st *store.Store, catalog *unlock.Catalog, cfg model.StatsConfig) *Model {
	m := &Model{
		store:   st,
		catalog: catalog,
		cfg:     cfg,
		tabs:    []string{"Overview", "History", "Collection"},
	}
	m.initViewports()
	m.historyTable = buildHistoryTable(nil, 0, 1)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l", "tab":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "r":
			m.refresh()
			m.updateLayout()
			return m, nil
		case "g", "home":
			if m.activeTab == tabHistory {
				m.historyTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabHistory {
				m.historyTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabHistory {
				var cmd tea.Cmd
				m.historyTable, cmd = m.historyTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.historyTable.SetWidth(m.width)
	m.historyTable.SetHeight(maxInt(1, bodyHeight-1))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabHistory {
		m.historyTable.Focus()
	} else {
		m.historyTable.Blur()
	}
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Refresh: r  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody() string {
	_, bodyHeight, _ := m.layoutHeights()
	if m.activeTab == tabHistory {
		if len(m.report.Sessions) == 0 {
			return fitLines("No sessions recorded yet.", m.width, bodyHeight)
		}
		view := tableMutedStyle.Render(m.historyTable.View())
		return fitLines(view, m.width, bodyHeight)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, bodyHeight)
}

func (m *Model) refresh() {
	ctx := context.Background()
	report, err := stats.BuildReport(ctx, m.store, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	unlocks, err := m.store.ListUnlocks(ctx)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.report = report
	m.unlocks = unlocks
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.historyTable = buildHistoryTable(m.report.Sessions, width, bodyHeight)
	if m.activeTab == tabHistory {
		m.historyTable.Focus()
	}
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, m.catalog, width))
	m.viewports[tabCollection].SetContent(renderCollection(m.catalog, m.unlocks))
}

func renderOverview(report stats.Report, catalog *unlock.Catalog, width int) string {
	p := report.Progress
	earned, needed := xp.XPInCurrentLevel(p.TotalXP)
	cards := []string{
		metricCard("Level", fmt.Sprintf("%d · %s", p.Level, xp.TitleForLevel(p.Level))),
		metricCard("XP", fmt.Sprintf("%d (%d/%d)", p.TotalXP, earned, needed)),
		metricCard("Streak", fmt.Sprintf("%d (best %d)", p.CurrentStreak, p.LongestStreak)),
		metricCard("Sessions", fmt.Sprintf("%d", p.TotalSessions)),
		metricCard("Focus", formatMinutes(p.TotalFocusMinutes)),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}

	sections := []string{summary}
	if len(report.Days) > 0 {
		series := stats.FocusSeries(report.Days)
		if len(series) > width {
			series = series[len(series)-width:]
		}
		sections = append(sections, headerStyle.Render("Focus minutes")+"\n"+stats.Sparkline(series))
	}
	if teasers := catalog.Teasers(p.Level, teaserCount); len(teasers) > 0 {
		lines := []string{headerStyle.Render("Coming up")}
		for _, e := range teasers {
			lines = append(lines, fmt.Sprintf("  Level %d: %s (%s)", e.RequiredLevel, e.Name, e.Category))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	return strings.TrimRight(strings.Join(sections, "\n\n"), "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderCollection(catalog *unlock.Catalog, unlocks []model.Unlock) string {
	byKey := make(map[model.UnlockKey]model.Unlock, len(unlocks))
	for _, u := range unlocks {
		byKey[u.UnlockKey] = u
	}
	categories := []struct {
		cat   model.UnlockCategory
		title string
	}{
		{model.CategoryTheme, "Themes"},
		{model.CategoryCompanion, "Companions"},
		{model.CategoryTitle, "Titles"},
	}
	var sections []string
	for _, c := range categories {
		entries := catalog.ByCategory(c.cat)
		if len(entries) == 0 {
			continue
		}
		lines := []string{headerStyle.Render(c.title)}
		for _, e := range entries {
			lines = append(lines, collectionLine(e, byKey))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func collectionLine(e unlock.Entry, byKey map[model.UnlockKey]model.Unlock) string {
	if u, ok := byKey[e.UnlockKey]; ok {
		marker := "  "
		style := unlockedStyle
		if u.Equipped {
			marker = "* "
			style = equippedStyle
		}
		return style.Render(fmt.Sprintf("%s%s — %s", marker, e.Name, e.Description))
	}
	return lockedStyle.Render(fmt.Sprintf("  %s — %s", e.Name, requirementLabel(e)))
}

func requirementLabel(e unlock.Entry) string {
	var parts []string
	if e.RequiredLevel > 0 {
		parts = append(parts, fmt.Sprintf("level %d", e.RequiredLevel))
	}
	if e.RequiredSessions > 0 {
		parts = append(parts, fmt.Sprintf("%d sessions", e.RequiredSessions))
	}
	if e.RequiredStreak > 0 {
		parts = append(parts, fmt.Sprintf("%d-day streak", e.RequiredStreak))
	}
	return "unlocks at " + strings.Join(parts, ", ")
}

func buildHistoryTable(sessions []model.SessionRecord, width, height int) table.Model {
	columns := []table.Column{
		{Title: "When", Width: 16},
		{Title: "Kind", Width: 11},
		{Title: "Planned", Width: 7},
		{Title: "Elapsed", Width: 7},
		{Title: "Status", Width: 9},
		{Title: "XP", Width: 5},
	}
	rows := make([]table.Row, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, table.Row{
			s.EndedAt.Format("2006-01-02 15:04"),
			string(s.Kind),
			formatDuration(s.Planned),
			formatDuration(s.Elapsed),
			string(s.Status),
			fmt.Sprintf("%d", s.XPAwarded),
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(historyTableStyles())
	return t
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func formatMinutes(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

func formatDuration(d time.Duration) string {
	return formatMinutes(int(d / time.Minute))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
