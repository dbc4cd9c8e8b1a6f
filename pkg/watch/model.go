package watch

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-posture/pkg/feedback"
	"github.com/teslashibe/go-posture/pkg/monitor"
	"github.com/teslashibe/go-posture/pkg/posture"
)

// FrameMsg carries one frame result into the model.
type FrameMsg monitor.FrameResult

// ConnMsg reports a connection state change.
type ConnMsg struct {
	Connected bool
	Err       error
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	goodStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

// Model is the bubbletea model for the live posture view.
type Model struct {
	url       string
	connected bool
	err       error

	frame    monitor.FrameResult
	hasFrame bool
	frames   int
	alerts   int
}

// NewModel creates a model for the stream at url.
func NewModel(url string) Model {
	return Model{url: url}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case ConnMsg:
		m.connected = msg.Connected
		m.err = msg.Err
	case FrameMsg:
		m.frame = monitor.FrameResult(msg)
		m.hasFrame = true
		m.connected = true
		m.err = nil
		m.frames++
		if msg.AlertTriggered {
			m.alerts++
		}
	}
	return m, nil
}

// Frame returns the latest frame and whether one has arrived.
func (m Model) Frame() (monitor.FrameResult, bool) {
	return m.frame, m.hasFrame
}

// Alerts returns the number of alerts seen since start.
func (m Model) Alerts() int {
	return m.alerts
}

// Connected reports whether the stream is up.
func (m Model) Connected() bool {
	return m.connected
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🧍 Posture Monitor"))
	b.WriteString("\n")
	if m.connected {
		b.WriteString(mutedStyle.Render("connected to " + m.url))
	} else if m.err != nil {
		b.WriteString(criticalStyle.Render("disconnected: " + m.err.Error()))
	} else {
		b.WriteString(mutedStyle.Render("connecting to " + m.url + "..."))
	}
	b.WriteString("\n\n")

	if !m.hasFrame {
		b.WriteString(mutedStyle.Render("waiting for frames"))
		b.WriteString("\n\n" + mutedStyle.Render("q to quit"))
		return b.String()
	}

	f := m.frame
	var body strings.Builder
	row := func(label, value string) {
		body.WriteString(labelStyle.Render(label) + value + "\n")
	}
	row("Score", scoreStyle(f.Score).Render(fmt.Sprintf("%3d", f.Score))+" "+scoreBar(f.Score))
	row("Status", statusStyle(f).Render(f.Status.String()))
	row("Message", statusStyle(f).Render(f.Message))
	if f.Detected && f.Angles.Valid {
		torso, neck, back := f.Angles.Rounded()
		row("Angles", fmt.Sprintf("torso %d°  neck %d°  back %d°", torso, neck, back))
	} else {
		row("Angles", mutedStyle.Render("-"))
	}
	row("Alerts", fmt.Sprintf("%d", m.alerts))
	row("Frames", fmt.Sprintf("%d", m.frames))

	b.WriteString(boxStyle.Render(strings.TrimRight(body.String(), "\n")))
	b.WriteString("\n\n" + mutedStyle.Render("q to quit"))
	return b.String()
}

func scoreStyle(score int) lipgloss.Style {
	switch {
	case posture.IsSlouching(score, posture.DefaultSlouchCutoff):
		return criticalStyle
	case score < 90:
		return warningStyle
	default:
		return goodStyle
	}
}

func statusStyle(f monitor.FrameResult) lipgloss.Style {
	if !f.Detected {
		return mutedStyle
	}
	switch f.Status {
	case feedback.Critical:
		return criticalStyle
	case feedback.Warning:
		return warningStyle
	default:
		return goodStyle
	}
}

// scoreBar renders the score as a 20 cell bar.
func scoreBar(score int) string {
	score = max(0, min(100, score))
	filled := score / 5
	return scoreStyle(score).Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", 20-filled))
}
