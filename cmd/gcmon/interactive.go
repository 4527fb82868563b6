package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type monitorState int

const (
	stateDashboard monitorState = iota
	stateSetThreshold
)

type monitorModel struct {
	err       error
	w         *workload
	input     textinput.Model
	status    string
	threshold int
	workerOn  bool
	state     monitorState
}

type tickMsg time.Time

type collectDoneMsg struct {
	err       error
	collected int
}

func newMonitorModel(threshold int) (*monitorModel, error) {
	w, err := newWorkload(threshold)
	if err != nil {
		return nil, err
	}
	ti := textinput.New()
	ti.Prompt = "threshold: "
	ti.Width = 12
	return &monitorModel{
		w:         w,
		input:     ti,
		threshold: threshold,
	}, nil
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *monitorModel) Init() tea.Cmd {
	return tick()
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateSetThreshold {
			return m.updateThresholdInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.w.close()
			return m, tea.Quit

		case "a":
			if err := m.w.allocCycles(10); err != nil {
				m.err = err
				return m, nil
			}
			m.status = "allocated 10 cyclic pairs"

		case "l":
			if err := m.w.allocLive(10); err != nil {
				m.err = err
				return m, nil
			}
			m.status = "allocated 10 live objects"

		case "d":
			if err := m.w.dropLive(); err != nil {
				m.err = err
				return m, nil
			}
			m.status = "released half of the live objects"

		case "c":
			return m, m.collect

		case "s":
			done, err := m.w.c.CollectIncremental(0)
			if err != nil {
				m.err = err
				return m, nil
			}
			if done {
				m.status = "incremental pass completed"
			} else {
				m.status = "incremental pass advanced"
			}

		case "w":
			if m.workerOn {
				m.w.c.Stop()
				m.status = "worker stopped"
			} else {
				m.w.c.Start()
				m.status = "worker started"
			}
			m.workerOn = !m.workerOn

		case "t":
			m.input.SetValue(strconv.Itoa(m.threshold))
			m.input.Focus()
			m.state = stateSetThreshold

		case "r":
			m.w.c.ResetStats()
			m.status = "stats reset"
		}

	case collectDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = fmt.Sprintf("collected %d objects", msg.collected)
		}

	case tickMsg:
		return m, tick()
	}

	return m, nil
}

func (m *monitorModel) updateThresholdInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if n, err := strconv.Atoi(strings.TrimSpace(m.input.Value())); err == nil && n >= 0 {
			m.threshold = n
			m.w.c.SetThreshold(n)
			m.status = fmt.Sprintf("threshold set to %d", n)
		} else {
			m.status = "invalid threshold"
		}
		m.input.Blur()
		m.state = stateDashboard
		return m, nil

	case "esc":
		m.input.Blur()
		m.state = stateDashboard
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *monitorModel) collect() tea.Msg {
	collected, err := m.w.c.Collect()
	return collectDoneMsg{collected: collected, err: err}
}

func (m *monitorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("GC Monitor"))
	b.WriteString("\n\n")

	s := m.w.c.Stats()
	rows := []struct {
		label string
		value string
	}{
		{"arena objects", strconv.Itoa(m.w.ar.Len())},
		{"registered", strconv.Itoa(m.w.c.RegisteredLen())},
		{"possible roots", strconv.Itoa(m.w.c.RootSetLen())},
		{"held externally", strconv.Itoa(len(m.w.live))},
		{"collections", strconv.FormatUint(s.Collections, 10)},
		{"cycles detected", strconv.FormatUint(s.CyclesDetected, 10)},
		{"objects collected", strconv.FormatUint(s.ObjectsCollected, 10)},
		{"total gc time", s.TotalTime.String()},
		{"security events", strconv.FormatUint(s.SecurityEvents, 10)},
		{"worker errors", strconv.FormatUint(s.WorkerErrors, 10)},
	}
	for _, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-18s", r.label)))
		b.WriteString(valueStyle.Render(r.value))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	worker := "off"
	if m.workerOn {
		worker = "on"
	}
	b.WriteString(labelStyle.Render("  worker ") + valueStyle.Render(worker))
	b.WriteString(labelStyle.Render("   threshold ") + valueStyle.Render(strconv.Itoa(m.threshold)))
	b.WriteString("\n\n")

	if m.state == stateSetThreshold {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter apply • esc cancel"))
		return b.String()
	}

	if m.err != nil {
		b.WriteString(warnStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
		m.err = nil
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("a cycles • l live • d drop • c collect • s step • w worker • t threshold • r reset • q quit"))
	return b.String()
}

func runInteractive(threshold int) error {
	m, err := newMonitorModel(threshold)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
