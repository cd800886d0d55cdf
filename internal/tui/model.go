// Package tui provides the Bubble Tea analysis interface.
package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ysegawa/forceplate/internal/detect"
	"github.com/ysegawa/forceplate/internal/metrics"
	"github.com/ysegawa/forceplate/internal/model"
	"github.com/ysegawa/forceplate/internal/report"
	"github.com/ysegawa/forceplate/internal/session"
	"github.com/ysegawa/forceplate/internal/store"
)

type phase int

const (
	phaseSubject phase = iota
	phaseReady
	phaseChoose
	phaseResult
	phaseConfirmQuit
)

// errNeedChoice interrupts detection when the operator must pick a start
// candidate; the detection is re-run once a choice is made.
var errNeedChoice = errors.New("start candidate choice required")

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
)

// Model implements the Bubble Tea analysis UI.
type Model struct {
	sess  *session.Session
	store *store.Store
	files []string

	phase    phase
	fileIdx  int
	width    int
	height   int
	savedCnt int

	subjectInput textinput.Model

	candidates []float64
	choiceIdx  int

	lastMetrics metrics.Metrics
	plotText    string

	statusMsg string
	errMsg    string
}

// NewModel constructs the analysis TUI model.
func NewModel(sess *session.Session, st *store.Store, files []string) *Model {
	input := textinput.New()
	input.Placeholder = "subject name"
	input.CharLimit = 64
	input.Focus()

	m := &Model{
		sess:         sess,
		store:        st,
		files:        files,
		subjectInput: input,
	}
	if sess.Subject() != "" {
		m.phase = phaseReady
		m.loadCurrentFile()
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.phase == phaseSubject {
		return textinput.Blink
	}
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch m.phase {
	case phaseSubject:
		return m.handleSubjectKey(msg)
	case phaseReady:
		return m.handleReadyKey(msg)
	case phaseChoose:
		return m.handleChooseKey(msg)
	case phaseResult:
		return m.handleResultKey(msg)
	case phaseConfirmQuit:
		return m.handleConfirmQuitKey(msg)
	}
	return m, nil
}

func (m *Model) handleSubjectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		name := strings.TrimSpace(m.subjectInput.Value())
		if name == "" {
			m.errMsg = "subject name must not be empty"
			return m, nil
		}
		m.sess.SetSubject(name)
		m.errMsg = ""
		m.phase = phaseReady
		m.loadCurrentFile()
		return m, nil
	}
	var cmd tea.Cmd
	m.subjectInput, cmd = m.subjectInput.Update(msg)
	return m, cmd
}

func (m *Model) handleReadyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m.requestQuit()
	case "m":
		if m.sess.Mode() == model.ModeLMJ {
			m.sess.SetMode(model.ModeThrowing)
		} else {
			m.sess.SetMode(model.ModeLMJ)
		}
		return m, nil
	case "n":
		m.nextFile()
		return m, nil
	case "d", "enter":
		m.runDetection(nil)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleChooseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.choiceIdx > 0 {
			m.choiceIdx--
		}
		return m, nil
	case "down", "j":
		if m.choiceIdx < len(m.candidates)-1 {
			m.choiceIdx++
		}
		return m, nil
	case "enter":
		chosen := m.candidates[m.choiceIdx]
		m.phase = phaseReady
		m.runDetection(detect.ChooserFunc(func([]float64) (float64, error) {
			return chosen, nil
		}))
		return m, nil
	case "esc", "q":
		// Operator cancellation unwinds the detection attempt cleanly; an
		// earlier unconfirmed result stays available.
		m.candidates = nil
		m.statusMsg = "detection cancelled"
		if _, ok := m.sess.Pending(); ok {
			m.phase = phaseResult
		} else {
			m.phase = phaseReady
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleResultKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.confirmPending()
		return m, nil
	case "x":
		m.sess.Discard()
		m.phase = phaseReady
		m.statusMsg = "result discarded"
		return m, nil
	case "d":
		m.runDetection(nil)
		return m, nil
	case "q", "esc":
		return m.requestQuit()
	}
	return m, nil
}

func (m *Model) handleConfirmQuitKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		return m, tea.Quit
	case "n", "esc":
		if _, ok := m.sess.Pending(); ok {
			m.phase = phaseResult
		} else {
			m.phase = phaseReady
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) requestQuit() (tea.Model, tea.Cmd) {
	if _, ok := m.sess.Pending(); ok {
		m.phase = phaseConfirmQuit
		return m, nil
	}
	return m, tea.Quit
}

func (m *Model) loadCurrentFile() {
	if m.fileIdx >= len(m.files) {
		return
	}
	if err := m.sess.LoadFile(m.files[m.fileIdx]); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.statusMsg = fmt.Sprintf("loaded %s", m.sess.SourceFile())
}

func (m *Model) nextFile() {
	if m.fileIdx+1 >= len(m.files) {
		m.statusMsg = "no more files"
		return
	}
	m.fileIdx++
	m.loadCurrentFile()
}

// runDetection drives the session. With a nil chooser a Throwing detection
// that needs disambiguation is interrupted, the candidates are shown, and the
// detection re-runs with the operator's choice.
func (m *Model) runDetection(chooser detect.Chooser) {
	if chooser == nil {
		chooser = detect.ChooserFunc(func(times []float64) (float64, error) {
			m.candidates = times
			return 0, errNeedChoice
		})
	}
	win, met, err := m.sess.Detect(chooser)
	if err != nil {
		switch {
		case errors.Is(err, errNeedChoice):
			m.choiceIdx = 0
			m.phase = phaseChoose
			m.statusMsg = ""
			m.errMsg = ""
		case errors.Is(err, detect.ErrNoWindow):
			m.statusMsg = "no analysis window found"
			m.errMsg = ""
		default:
			m.errMsg = err.Error()
		}
		return
	}

	m.lastMetrics = met
	m.plotText = m.renderPlot(win)
	m.phase = phaseResult
	m.statusMsg = ""
	m.errMsg = ""
}

func (m *Model) renderPlot(win model.Window) string {
	cfg := m.sess.Config()
	series, err := report.WaveformSeries(m.sess.Table(), win, cfg.AxisChannel)
	if err != nil {
		return ""
	}
	width := 0
	if m.width > 0 {
		width = report.PlotWidthFor(m.width)
	}
	var buf bytes.Buffer
	title := fmt.Sprintf("%s (%s)", cfg.AxisChannel, m.sess.Mode())
	if err := report.PlotWaveform(&buf, title, series, width, 10, false); err != nil {
		return ""
	}
	return buf.String()
}

func (m *Model) confirmPending() {
	rec, err := m.sess.Confirm()
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	ctx := context.Background()
	if _, err := m.store.InsertResult(ctx, rec, time.Now()); err != nil {
		m.phase = phaseReady
		m.statusMsg = ""
		m.errMsg = fmt.Sprintf("failed to save result: %v", err)
		return
	}
	m.savedCnt++
	m.phase = phaseReady
	m.statusMsg = fmt.Sprintf("result saved (%d total)", m.savedCnt)
	m.errMsg = ""
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("forceplate analysis"))
	b.WriteString("\n\n")

	switch m.phase {
	case phaseSubject:
		b.WriteString(labelStyle.Render("Enter subject name:"))
		b.WriteString("\n")
		b.WriteString(m.subjectInput.View())
		b.WriteString("\n")
	case phaseReady:
		m.viewStatus(&b)
		b.WriteString(footerStyle.Render("d/enter detect · m toggle mode · n next file · q quit"))
	case phaseChoose:
		b.WriteString(labelStyle.Render("Multiple start candidates found. Select a time (s):"))
		b.WriteString("\n\n")
		for i, t := range m.candidates {
			line := fmt.Sprintf("  %.4f", t)
			if i == m.choiceIdx {
				line = cursorStyle.Render(fmt.Sprintf("> %.4f", t))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("enter select · esc cancel"))
	case phaseResult:
		m.viewStatus(&b)
		b.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Peak force:"),
			valueStyle.Render(fmt.Sprintf("%.2f N", m.lastMetrics.PeakForce))))
		b.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Impulse:   "),
			valueStyle.Render(fmt.Sprintf("%.2f N·s", m.lastMetrics.Impulse))))
		b.WriteString(fmt.Sprintf("%s %s\n\n",
			labelStyle.Render("Window:    "),
			valueStyle.Render(fmt.Sprintf("%.4fs – %.4fs", m.lastMetrics.StartTime, m.lastMetrics.EndTime))))
		if m.plotText != "" {
			b.WriteString(m.plotText)
		}
		b.WriteString(footerStyle.Render("y confirm · x discard · d re-run · q quit"))
	case phaseConfirmQuit:
		b.WriteString(accentStyle.Render("An unconfirmed result will be lost. Quit anyway? (y/n)"))
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(accentStyle.Render(m.statusMsg))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) viewStatus(b *strings.Builder) {
	file := m.sess.SourceFile()
	if file == "" {
		file = "(none)"
	}
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Subject:"), valueStyle.Render(m.sess.Subject())))
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Mode:   "), valueStyle.Render(string(m.sess.Mode()))))
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("File:   "), valueStyle.Render(file)))
	b.WriteString(fmt.Sprintf("%s %s\n\n", labelStyle.Render("Saved:  "), valueStyle.Render(fmt.Sprintf("%d", m.savedCnt))))
}
