// Package status renders the top bar: connection indicator, active table,
// last notification and fetch state.
package status

import (
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgate/dataviewer/internal/live"
	"github.com/tgate/dataviewer/internal/theme"
)

const (
	fps       = 30
	pulseRest = 0.02
)

// FrameMsg advances the notification pulse by one frame.
type FrameMsg struct{}

// Model holds the status bar state.
type Model struct {
	Table       string
	Connected   bool
	Retrying    bool
	RetryIn     time.Duration
	Attempt     int
	GaveUp      bool
	LastMessage time.Time
	Fetching    bool
	FetchErr    error
	Width       int

	spring   harmonica.Spring
	pulse    float64
	velocity float64
}

// New creates a status bar model.
func New() Model {
	return Model{spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.4)}
}

// Apply folds a connection event into the bar. It returns a command when
// the event starts the notification pulse.
func (m *Model) Apply(ev live.Event) tea.Cmd {
	switch ev.Kind {
	case live.EventOpened:
		m.Connected = true
		m.Retrying = false
		m.GaveUp = false
		m.RetryIn = 0
		m.Attempt = 0
	case live.EventClosed:
		m.Connected = false
		m.Retrying = ev.Retrying
		m.RetryIn = ev.RetryIn
		m.Attempt = ev.Attempt
		m.GaveUp = !ev.Retrying && ev.Code != live.CloseManual
	case live.EventMessage:
		if !ev.Relevant {
			return nil
		}
		m.LastMessage = ev.Notification.ReceivedAt
		return m.Pulse()
	}
	return nil
}

// Reconcile corrects the indicator when it disagrees with the client's
// actual connection state, as after a dropped event. It reports whether
// anything changed.
func (m *Model) Reconcile(connected bool) bool {
	if m.Connected == connected {
		return false
	}
	if connected {
		m.Apply(live.Event{Kind: live.EventOpened})
		return true
	}
	m.Connected = false
	m.Retrying = false
	m.RetryIn = 0
	return true
}

// Reset clears per-connection state when the viewer switches tables.
func (m *Model) Reset(table string) {
	m.Table = table
	m.Connected = false
	m.Retrying = false
	m.GaveUp = false
	m.RetryIn = 0
	m.Attempt = 0
	m.LastMessage = time.Time{}
	m.pulse, m.velocity = 0, 0
}

// Pulse kicks the indicator spring. A frame chain is only started when the
// spring was at rest; a running chain picks up the new kick.
func (m *Model) Pulse() tea.Cmd {
	running := m.Pulsing()
	m.pulse = 1
	m.velocity = 0
	if running {
		return nil
	}
	return frame()
}

// Animate steps the spring towards rest and keeps ticking until it settles.
func (m *Model) Animate() tea.Cmd {
	m.pulse, m.velocity = m.spring.Update(m.pulse, m.velocity, 0)
	if math.Abs(m.pulse) < pulseRest && math.Abs(m.velocity) < pulseRest {
		m.pulse, m.velocity = 0, 0
		return nil
	}
	return frame()
}

// Pulsing reports whether the pulse animation is still running.
func (m Model) Pulsing() bool {
	return m.pulse != 0
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg { return FrameMsg{} })
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")

	content := m.indicator() + sep + theme.StyleHeader.Render(m.Table)
	if !m.LastMessage.IsZero() {
		content += sep + theme.StyleDimmed.Render("last change "+m.LastMessage.Format("15:04:05"))
	}
	switch {
	case m.Fetching:
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorAccent).Render("fetching...")
	case m.FetchErr != nil:
		content += sep + theme.StyleError.Render("fetch failed, R to retry")
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) indicator() string {
	color := theme.ConnectionColor(m.Connected, m.Retrying)
	switch {
	case m.Connected:
		dot := "●"
		if m.pulse > 0.5 {
			color = theme.ColorPulse
			dot = "◉"
		}
		return lipgloss.NewStyle().Foreground(color).Render(dot + " Live")
	case m.Retrying:
		return lipgloss.NewStyle().Foreground(color).Render(
			fmt.Sprintf("○ Offline, retry %d in %s", m.Attempt+1, m.RetryIn.Round(time.Millisecond)))
	case m.GaveUp:
		return lipgloss.NewStyle().Foreground(color).Render(
			fmt.Sprintf("○ Offline after %d attempts, r to reconnect", m.Attempt))
	default:
		return lipgloss.NewStyle().Foreground(color).Render("○ Offline")
	}
}
