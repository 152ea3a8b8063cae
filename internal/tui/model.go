// Package tui provides the Bubble Tea timer interface.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pomoquest/internal/model"
	"pomoquest/internal/session"
	"pomoquest/internal/store"
	"pomoquest/internal/timer"
	"pomoquest/internal/xp"
)

const (
	tickInterval = time.Second
	eventBuffer  = 8
	maxBarWidth  = 50
)

var (
	clockStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	kindStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	toastStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type tickMsg time.Time

// Model implements the Bubble Tea timer UI.
type Model struct {
	cfg   model.TimerConfig
	coord *session.Coordinator
	store *store.Store

	tm     *timer.Timer
	events <-chan timer.Event

	nextKind model.Kind
	round    int

	bar      progress.Model
	lastTick time.Time

	progress model.UserProgress
	toast    []string
	note     string
	errMsg   string

	width  int
	height int
}

// NewModel constructs a timer TUI model.
func NewModel(cfg model.TimerConfig, coord *session.Coordinator, st *store.Store) *Model {
	m := &Model{
		cfg:      cfg,
		coord:    coord,
		store:    st,
		nextKind: model.KindWork,
		round:    1,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.resetTimer()
	m.loadProgress()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := m.width - 10
		if barWidth > maxBarWidth {
			barWidth = maxBarWidth
		}
		if barWidth < 10 {
			barWidth = 10
		}
		m.bar.Width = barWidth
		return m, nil
	case tickMsg:
		m.advanceClock(time.Time(msg))
		return m, tickCmd()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	content := strings.Join(m.renderBody(), "\n")
	footer := footerStyle.Render(m.renderFooter())
	help := footerStyle.Render(m.renderHelp())
	if m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 2
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	helpLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, help)
	return body + "\n" + footerLine + "\n" + helpLine
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) advanceClock(now time.Time) {
	delta := tickInterval
	if !m.lastTick.IsZero() {
		if d := now.Sub(m.lastTick); d > 0 {
			delta = d
		}
	}
	m.lastTick = now
	m.tm.Tick(delta)
	m.drainEvents()
}

func (m *Model) drainEvents() {
	for {
		select {
		case event := <-m.events:
			switch event.Type {
			case timer.EventBreakEnding:
				m.note = "Break wraps up in a minute. The next focus round is queued."
			case timer.EventCompleted:
				m.handleCompletion(event.Record)
			}
		default:
			return
		}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.stopAndRecord()
		return m, tea.Quit
	case " ":
		m.handleSpace()
		return m, nil
	case "e":
		if err := m.tm.Extend(m.cfg.ExtendBy); err == nil {
			m.note = fmt.Sprintf("Added %s to this session.", formatClock(m.cfg.ExtendBy))
		}
		return m, nil
	case "m":
		m.startSession(model.KindMicro)
		return m, nil
	case "s":
		m.stopAndRecord()
		return m, nil
	case "tab":
		m.skipQueued()
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleSpace() {
	switch m.tm.State() {
	case timer.StateRunning:
		if err := m.tm.Pause(); err == nil {
			m.note = "Paused. Your time is safe."
		}
	case timer.StatePaused:
		if err := m.tm.Resume(); err == nil {
			m.note = ""
		}
	default:
		m.startSession(m.nextKind)
	}
}

func (m *Model) startSession(kind model.Kind) {
	if m.tm.State() == timer.StateRunning || m.tm.State() == timer.StatePaused {
		return
	}
	if m.tm.State().Terminal() {
		m.resetTimer()
	}
	if err := m.tm.Start(kind, m.cfg.Duration(kind)); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.toast = nil
	m.note = ""
	m.errMsg = ""
	m.lastTick = time.Time{}
}

func (m *Model) stopAndRecord() {
	record, err := m.tm.Stop()
	if err != nil {
		return
	}
	if _, err := m.coord.RecordAbort(context.Background(), record); err != nil {
		m.errMsg = err.Error()
	}
	m.toast = []string{"Session set aside. Everything you finished still counts."}
	m.resetTimer()
}

func (m *Model) skipQueued() {
	if m.tm.State() != timer.StateIdle {
		return
	}
	m.nextKind, m.round = m.coord.NextAfter(m.nextKind, m.round)
	m.resetTimer()
	m.note = fmt.Sprintf("Up next: %s.", kindLabel(m.nextKind))
}

func (m *Model) handleCompletion(record model.SessionRecord) {
	result, err := m.coord.CompleteSession(context.Background(), record)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.toast = buildToast(result)
	m.note = ""
	m.loadProgress()
	m.nextKind, m.round = m.coord.NextAfter(record.Kind, record.Round)
	m.resetTimer()
}

func buildToast(result model.CompletionResult) []string {
	lines := []string{kindDoneLine(result.Record.Kind)}
	if result.XPEarned > 0 {
		lines = append(lines, fmt.Sprintf("+%d XP", result.XPEarned))
		for _, bonus := range result.Bonuses {
			lines = append(lines, fmt.Sprintf("  %s +%d", bonus.Name, bonus.Amount))
		}
	}
	if result.LeveledUp {
		lines = append(lines, fmt.Sprintf("Level up! Level %d — %s", result.NewLevel, result.NewTitle))
	}
	for _, u := range result.NewUnlocks {
		lines = append(lines, fmt.Sprintf("Unlocked: %s (%s)", u.Name, u.Category))
	}
	return lines
}

func kindDoneLine(kind model.Kind) string {
	if kind.IsBreak() {
		return "Break over. Recharged and ready."
	}
	return "Focus session complete!"
}

func (m *Model) resetTimer() {
	m.tm = timer.New(timer.Options{
		Round:          m.round,
		RoundsPerCycle: m.cfg.RoundsPerCycle,
	})
	m.events = m.tm.Subscribe(eventBuffer)
}

func (m *Model) loadProgress() {
	progress, err := m.store.LoadProgress(context.Background())
	if err != nil {
		logErrf("failed to load progress: %v\n", err)
		return
	}
	m.progress = progress
}

func (m *Model) renderBody() []string {
	state := m.tm.State()
	var kind model.Kind
	var remaining time.Duration
	if state == timer.StateIdle {
		kind = m.nextKind
		remaining = m.cfg.Duration(kind)
	} else {
		kind = m.tm.Kind()
		remaining = m.tm.Remaining()
	}

	lines := []string{
		kindStyle.Render(kindLabel(kind)),
		clockStyle.Render(formatClock(remaining)),
		m.bar.ViewAs(m.percent(state)),
		detailStyle.Render(fmt.Sprintf("Round %d of %d", m.round, m.cfg.RoundsPerCycle)),
	}
	switch state {
	case timer.StateIdle:
		lines = append(lines, pausedStyle.Render("Press space to begin."))
	case timer.StatePaused:
		lines = append(lines, pausedStyle.Render("Paused."))
	}
	if m.note != "" {
		lines = append(lines, "", detailStyle.Render(m.note))
	}
	if len(m.toast) > 0 {
		lines = append(lines, "", toastStyle.Render(m.toast[0]))
		for _, line := range m.toast[1:] {
			lines = append(lines, detailStyle.Render(line))
		}
	}
	if m.errMsg != "" {
		lines = append(lines, "", errorStyle.Render(m.errMsg))
	}
	return lines
}

func (m *Model) percent(state timer.State) float64 {
	if state == timer.StateIdle {
		return 0
	}
	return m.tm.PercentComplete()
}

func (m *Model) renderFooter() string {
	p := m.progress
	segments := []string{
		fmt.Sprintf("Level %d · %s", p.Level, xp.TitleForLevel(p.Level)),
		fmt.Sprintf("XP %d", p.TotalXP),
	}
	if p.CurrentStreak > 0 {
		segments = append(segments, fmt.Sprintf("Streak %d", p.CurrentStreak))
	}
	return strings.Join(segments, "  ")
}

func (m *Model) renderHelp() string {
	if m.tm.State() == timer.StateRunning || m.tm.State() == timer.StatePaused {
		return "space pause/resume  e extend  s stop  q quit"
	}
	return "space start  m micro focus  tab skip  q quit"
}

func kindLabel(kind model.Kind) string {
	switch kind {
	case model.KindShortBreak:
		return "Short break"
	case model.KindLongBreak:
		return "Long break"
	case model.KindMicro:
		return "Micro focus"
	default:
		return "Focus"
	}
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
