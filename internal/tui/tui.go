// Package tui is a live terminal dashboard over a running taskwheel
// Scheduler: a scrolling log of Outcome events plus a one-line form for
// adding quick "every" tasks without leaving the screen.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskwheel/taskwheel"
	"github.com/taskwheel/taskwheel/cron"
	"github.com/taskwheel/taskwheel/executor"
)

// Config holds TUI configuration: the scheduler to watch and the
// channel its Outcome events arrive on. Dashboard does not own either;
// Run's caller is responsible for eventually calling Scheduler.Stop.
type Config struct {
	Scheduler *taskwheel.Scheduler
	Events    <-chan taskwheel.Outcome
}

type model struct {
	viewport  viewport.Model
	textInput textinput.Model
	lines     []string
	ready     bool

	sched  *taskwheel.Scheduler
	events <-chan taskwheel.Outcome
}

func initialModel(cfg Config) model {
	ti := textinput.New()
	ti.Placeholder = `add <id> every <duration> "<command>" — e.g. add 1 every 5s "echo tick"`
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 60

	return model{
		textInput: ti,
		lines:     []string{infoStyle.Render("Dashboard ready. Type a command and press Enter.")},
		sched:     cfg.Scheduler,
		events:    cfg.Events,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForOutcome(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var tiCmd, vpCmd tea.Cmd
	m.textInput, tiCmd = m.textInput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight, footerHeight := 1, 3
		margin := headerHeight + footerHeight
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-margin)
			m.viewport.YPosition = headerHeight
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
			m.textInput.Width = msg.Width - 2
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - margin
			m.textInput.Width = msg.Width - 2
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if v := m.textInput.Value(); v != "" {
				m.appendLine(senderStyle.Render("> ") + v)
				if err := m.handleCommand(v); err != nil {
					m.appendLine(infoStyle.Render("error: " + err.Error()))
				}
				m.textInput.SetValue("")
			}
		}

	case outcomeMsg:
		o := taskwheel.Outcome(msg)
		m.appendLine(fmt.Sprintf("[%s] task=%d instance=%d %s", o.At.Format("15:04:05"), o.TaskID, o.InstanceID, o.Kind))
		return m, tea.Batch(tiCmd, vpCmd, waitForOutcome(m.events))

	case outcomesClosedMsg:
		m.appendLine(infoStyle.Render("event stream closed"))
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *model) appendLine(s string) {
	m.lines = append(m.lines, s)
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// handleCommand understands two forms:
//
//	add <id> every <duration> "<command>"
//	remove <id>
func (m model) handleCommand(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "remove":
		if len(fields) < 2 {
			return fmt.Errorf(`usage: remove <id>`)
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return err
		}
		return m.sched.RemoveTask(id)
	case "add":
		return m.handleAdd(line)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func (m model) handleAdd(line string) error {
	start := strings.Index(line, `"`)
	end := strings.LastIndex(line, `"`)
	if start < 0 || end <= start {
		return fmt.Errorf(`usage: add <id> every <duration> "<command>"`)
	}
	command := line[start+1 : end]
	head := strings.Fields(line[:start])
	if len(head) != 4 || head[0] != "add" || head[2] != "every" {
		return fmt.Errorf(`usage: add <id> every <duration> "<command>"`)
	}

	id, err := strconv.ParseUint(head[1], 10, 64)
	if err != nil {
		return err
	}
	d, err := time.ParseDuration(head[3])
	if err != nil {
		return err
	}

	expr, err := cron.Every(d)
	if err != nil {
		return err
	}

	return m.sched.AddTask(taskwheel.Task{
		ID:             id,
		Frequency:      taskwheel.Repeated(expr),
		ParallelismCap: 1,
		Body: func() executor.Runnable {
			return executor.Subprocess(command)
		},
	})
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s", m.headerView(), m.viewport.View(), m.footerView())
}

func (m model) headerView() string {
	title := "taskwheel dashboard"
	line := strings.Repeat("─", maximum(0, m.viewport.Width-len(title)))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, line)
}

func (m model) footerView() string {
	return infoStyle.Render(m.textInput.View())
}

func maximum(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type outcomeMsg taskwheel.Outcome
type outcomesClosedMsg struct{}

func waitForOutcome(events <-chan taskwheel.Outcome) tea.Cmd {
	return func() tea.Msg {
		o, ok := <-events
		if !ok {
			return outcomesClosedMsg{}
		}
		return outcomeMsg(o)
	}
}

// Run starts the dashboard against an already-running Scheduler.
func Run(cfg Config) error {
	p := tea.NewProgram(initialModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
