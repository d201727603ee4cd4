// Package tui provides the Bubble Tea stress check interface.
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

	"github.com/verte-zerg/stresstype/internal/model"
	"github.com/verte-zerg/stresstype/internal/store"
	"github.com/verte-zerg/stresstype/internal/stress"
)

const tickInterval = 250 * time.Millisecond

// controllerMsg carries a finished session from the controller goroutine
// into the program loop.
type controllerMsg struct {
	ev         stress.Event
	persistErr error
}

type tickMsg time.Time

// Model implements the Bubble Tea check UI.
type Model struct {
	ctrl        *stress.Controller
	store       store.Store
	events      chan controllerMsg
	unsubscribe func()

	width  int
	height int

	inputRunes []rune
	gauge      progress.Model
	status     string

	lastScore   int
	hasLast     bool
	allScoreSum int
	allSessions int
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Bold(true)
	cardStyle        = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#444444")).
				Padding(0, 2).
				Align(lipgloss.Center)
	cardValueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
)

var levelColors = map[stress.Level]lipgloss.Color{
	stress.LevelLow:      lipgloss.Color("#52C41A"),
	stress.LevelModerate: lipgloss.Color("#C89A3A"),
	stress.LevelElevated: lipgloss.Color("#FA8C16"),
	stress.LevelHigh:     lipgloss.Color("#FF4D4F"),
}

// NewModel constructs the check UI around ctrl. Finished sessions are saved
// to st when it is non-nil.
func NewModel(ctrl *stress.Controller, st store.Store) *Model {
	m := &Model{
		ctrl:   ctrl,
		store:  st,
		events: make(chan controllerMsg, 4),
		gauge:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.unsubscribe = ctrl.Subscribe(func(ev stress.Event) {
		if ev.Kind != stress.EventFinished {
			return
		}
		m.events <- controllerMsg{ev: ev, persistErr: m.persist(ev.Session)}
	})
	m.loadFooterStats()
	return m
}

// Close detaches the model from its controller and discards any running
// session.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.ctrl.Phase() == model.PhaseRunning {
		m.ctrl.Reset()
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.ctrl.Phase() == model.PhaseRunning {
			return m, tick()
		}
		return m, nil
	case controllerMsg:
		m.handleFinished(msg)
		return m, m.waitForEvent()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.ctrl.Phase() {
		case model.PhaseIdle:
			return m.updateIntro(msg)
		case model.PhaseRunning:
			return m.updateTyping(msg)
		default:
			return m.updateResults(msg)
		}
	default:
		return m, nil
	}
}

func (m *Model) updateIntro(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEnter:
		return m, m.start()
	case msg.Type == tea.KeyEsc, msg.String() == "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyCtrlD:
		m.ctrl.Finish(model.ReasonManual)
	case tea.KeyCtrlR, tea.KeyEsc:
		m.ctrl.Reset()
		m.inputRunes = nil
	case tea.KeyBackspace, tea.KeyDelete:
		if len(m.inputRunes) > 0 {
			m.inputRunes = m.inputRunes[:len(m.inputRunes)-1]
			m.ctrl.RecordInput(string(m.inputRunes))
		}
	case tea.KeySpace:
		m.appendRunes([]rune{' '})
	case tea.KeyRunes:
		m.appendRunes(msg.Runes)
	}
	return m, nil
}

func (m *Model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEnter:
		m.ctrl.Reset()
		return m, m.start()
	case msg.Type == tea.KeyEsc, msg.String() == "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) start() tea.Cmd {
	m.inputRunes = nil
	m.status = ""
	if _, ok := m.ctrl.Start(); !ok {
		return nil
	}
	return tick()
}

func (m *Model) appendRunes(runes []rune) {
	m.inputRunes = append(m.inputRunes, runes...)
	m.ctrl.RecordInput(string(m.inputRunes))
}

func (m *Model) persist(s model.TypingSession) error {
	if m.store == nil {
		return nil
	}
	rec, err := store.NewRecord(s, store.SourceTUI)
	if err != nil {
		return err
	}
	return m.store.InsertSession(context.Background(), rec, s.Events)
}

func (m *Model) handleFinished(msg controllerMsg) {
	if msg.persistErr != nil {
		logErrf("failed to save session: %v\n", msg.persistErr)
		m.status = "Session not saved: " + msg.persistErr.Error()
	}
	if msg.ev.Session.Score == nil {
		return
	}
	score := *msg.ev.Session.Score
	m.lastScore = score
	m.hasLast = true
	m.allScoreSum += score
	m.allSessions++
}

func (m *Model) loadFooterStats() {
	if m.store == nil {
		return
	}
	sessions, err := m.store.ListSessions(context.Background(), model.HistoryConfig{})
	if err != nil {
		logErrf("failed to load session history: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		return
	}
	m.lastScore = sessions[len(sessions)-1].Score
	m.hasLast = true
	for _, s := range sessions {
		m.allScoreSum += s.Score
	}
	m.allSessions = len(sessions)
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.ctrl.Phase() {
	case model.PhaseIdle:
		content = m.viewIntro()
	case model.PhaseRunning:
		content = m.viewTyping()
	default:
		content = m.viewResults()
	}
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(int(float64(m.width)*0.70), 1)
}

func (m *Model) viewIntro() string {
	width := m.contentWidth()
	intro := fmt.Sprintf(
		"Type the passage below as naturally as you can. The check lasts %s and looks at speed, corrections, pauses and accuracy.",
		formatClock(m.ctrl.Duration()),
	)
	target := []rune(m.ctrl.ReferenceText())
	passage := wrapStyledRunes(buildStyledRunes(target, nil, -1), width)
	lines := []string{
		titleStyle.Render("Typing Stress Check"),
		"",
		lipgloss.NewStyle().Width(width).Render(intro),
		"",
		passage,
		"",
		footerStyle.Render("enter start · q quit"),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) viewTyping() string {
	target := []rune(m.ctrl.ReferenceText())
	cursorIndex := -1
	if len(m.inputRunes) < len(target) {
		cursorIndex = len(m.inputRunes)
	}
	styled := buildStyledRunes(target, m.inputRunes, cursorIndex)
	width := m.contentWidth()
	text := renderStyledRunes(styled)
	if width > 0 {
		text = lipgloss.NewStyle().Width(width).Render(wrapStyledRunes(styled, width))
	}
	help := footerStyle.Render("enter finish · ctrl+r restart")
	return text + "\n\n" + help
}

func (m *Model) viewResults() string {
	res, ok := m.ctrl.Result()
	if !ok {
		return ""
	}
	g := stress.GuidanceFor(res.Score)
	title := titleStyle.Foreground(levelColors[g.Level]).Render(g.Title)

	gauge := m.gauge
	gauge.Width = 40
	if w := m.contentWidth(); w > 0 && w < 50 {
		gauge.Width = max(w-10, 10)
	}
	gaugeLine := gauge.ViewAs(float64(res.Score)/100) + fmt.Sprintf("  Score %d/100", res.Score)

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		metricCard("WPM", fmt.Sprintf("%d", res.Metrics.WordsPerMinute)),
		metricCard("Accuracy", fmt.Sprintf("%d%%", res.Metrics.AccuracyPercent)),
		metricCard("Corrections", fmt.Sprintf("%d", res.Metrics.CorrectionCount)),
		metricCard("Hesitations", fmt.Sprintf("%d", res.Metrics.HesitationCount)),
	)

	lines := []string{title, "", gaugeLine, "", g.Message, "", cards}
	if len(g.Recommendations) > 0 {
		lines = append(lines, "", "Recommendations:")
		for _, r := range g.Recommendations {
			lines = append(lines, "  • "+r)
		}
	}
	if m.status != "" {
		lines = append(lines, "", incorrectStyle.Render(m.status))
	}
	lines = append(lines, "", footerStyle.Render("enter new check · q quit"))
	return strings.Join(lines, "\n")
}

func metricCard(label, value string) string {
	return cardStyle.Render(cardValueStyle.Render(value) + "\n" + footerStyle.Render(label))
}

func (m *Model) renderFooter() string {
	var segments []string
	if m.ctrl.Phase() == model.PhaseRunning {
		corrections, hesitations := m.ctrl.Counters()
		segments = append(segments,
			"Time left "+formatClock(m.ctrl.Remaining()),
			fmt.Sprintf("Corrections %d · Hesitations %d", corrections, hesitations),
		)
	}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %d (%s)", m.lastScore, stress.GuidanceFor(m.lastScore).Label))
	}
	if m.allSessions > 0 {
		avg := float64(m.allScoreSum) / float64(m.allSessions)
		segments = append(segments, fmt.Sprintf("All-time avg %.1f over %d checks", avg, m.allSessions))
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func formatClock(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
