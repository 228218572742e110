package main

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type RecordingStartMsg struct{}
type RecordingStopMsg struct{}
type RecordingTickMsg struct{ Duration float64 }
type AudioLevelMsg struct{ Level float64 }
type NoVoiceWarningMsg struct{}
type VoiceClearedMsg struct{}
type LogMsg struct{ Text string }
type TranscriptionMsg struct {
	Text     string
	Metrics  []string
	Copied   bool
	NoSpeech bool
}
type ModeLineMsg struct{ Text string }
type DeviceLineMsg struct{ Text string }
type RateLimitMsg struct{ Text string }
type PermissionMsg struct{ Text string }

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
)

type tuiModel struct {
	state             tuiState
	recordingDuration float64
	audioLevel        float64
	noVoice           bool
	msgCount          int
	width, height     int
	modeLine          string
	deviceLine        string
	rateLimit         string
	permLine          string
	logLine           string
	lastText          string
	lastMetrics       []string
	copiedToClipboard bool
	noSpeech          bool
}

var (
	tuiProgram   *tea.Program
	tuiMu        sync.Mutex
	tuiReady     = make(chan struct{})
	tuiReadyOnce sync.Once

	deviceSelectChan = make(chan struct{}, 1)
)

var (
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	modeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpBold    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	copiedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
)

func NewTUIProgram() *tea.Program {
	return tea.NewProgram(tuiModel{}, tea.WithAltScreen())
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func logToTUI(format string, args ...interface{}) {
	tuiSend(LogMsg{Text: fmt.Sprintf(format, args...)})
}

func (m tuiModel) Init() tea.Cmd {
	tuiReadyOnce.Do(func() { close(tuiReady) })
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "ctrl+g":
			select {
			case deviceSelectChan <- struct{}{}:
			default:
			}
		}

	case RecordingStartMsg:
		m.state = tuiStateRecording
		m.recordingDuration = 0
		m.audioLevel = 0
		m.noVoice = false

	case RecordingStopMsg:
		m.state = tuiStateIdle
		m.audioLevel = 0
		m.noVoice = false

	case RecordingTickMsg:
		m.recordingDuration = msg.Duration

	case AudioLevelMsg:
		if m.state == tuiStateRecording {
			m.audioLevel = msg.Level
		}

	case NoVoiceWarningMsg:
		m.noVoice = true

	case VoiceClearedMsg:
		m.noVoice = false

	case LogMsg:
		m.logLine = msg.Text

	case TranscriptionMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.lastMetrics = msg.Metrics
		m.copiedToClipboard = msg.Copied
		m.noSpeech = msg.NoSpeech
		m.logLine = ""

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case RateLimitMsg:
		m.rateLimit = msg.Text

	case PermissionMsg:
		m.permLine = msg.Text
	}
	return m, nil
}

const statusWidth = 36

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string

	if m.state == tuiStateRecording {
		lines = append(lines, recStyle.Render(fmt.Sprintf("● REC %.1fs", m.recordingDuration)))
		lines = append(lines, renderLevelBar(m.audioLevel, statusWidth-4))
		if m.noVoice {
			lines = append(lines, warnStyle.Render("⚠ no voice detected"))
		}
	} else {
		lines = append(lines, idleStyle.Render("○ STANDBY"))
		lines = append(lines, "")
	}

	if m.modeLine != "" {
		lines = append(lines, modeStyle.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, dimStyle.Render(m.deviceLine))
	}
	if m.rateLimit != "" {
		lines = append(lines, dimStyle.Render(m.rateLimit))
	}
	if m.permLine != "" {
		lines = append(lines, warnStyle.Render(m.permLine))
	}
	if m.logLine != "" {
		lines = append(lines, warnStyle.Render(m.logLine))
	}

	lines = append(lines, "")
	lines = append(lines, helpBold.Render("hold")+helpStyle.Render(" right ctrl to dictate"))
	lines = append(lines, helpBold.Render("double-tap")+helpStyle.Render(" to toggle, tap to stop"))
	lines = append(lines, helpStyle.Render("murmur "+version))

	statusPanel := lipgloss.NewStyle().
		Width(statusWidth).
		Height(m.height).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))

	textWidth := m.width - statusWidth - 1
	if textWidth < 20 {
		textWidth = 20
	}
	textPanel := lipgloss.NewStyle().
		Width(textWidth).
		Height(m.height).
		Padding(1, 1).
		Render(m.renderTranscription(textWidth - 2))

	return lipgloss.JoinHorizontal(lipgloss.Top, statusPanel, textPanel)
}

func renderLevelBar(level float64, width int) string {
	// Typical speech RMS sits well below 1.0, scale up for visibility.
	filled := int(level * 8 * float64(width))
	if filled > width {
		filled = width
	}
	return meterStyle.Render(strings.Repeat("▮", filled)) +
		dimStyle.Render(strings.Repeat("▯", width-filled))
}

func (m tuiModel) renderTranscription(wrapWidth int) string {
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	if m.lastText == "" {
		return dimStyle.Render("No transcriptions yet")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)))
	b.WriteString("\n\n")

	style := textStyle
	if m.noSpeech {
		style = warnStyle
	}
	wrapped := wrapText(m.lastText, wrapWidth)
	for i, line := range wrapped {
		b.WriteString(style.Render(line))
		if i == len(wrapped)-1 && m.copiedToClipboard && !m.noSpeech {
			b.WriteString(" " + copiedStyle.Render("[✓ copied]"))
		}
		b.WriteString("\n")
	}

	if len(m.lastMetrics) > 0 {
		b.WriteString("\n")
		for _, metric := range m.lastMetrics {
			b.WriteString(dimStyle.Render(metric) + "\n")
		}
	}
	return b.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
