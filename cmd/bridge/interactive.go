package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/hostbridge/internal/demo"
	"github.com/wippyai/hostbridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	globalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	memberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

const maxEntries = 12

type entry struct {
	err    error
	src    string
	result string
}

type globalInfo struct {
	name    string
	members []string
}

type interactiveModel struct {
	host      *runtime.Host
	input     textinput.Model
	globals   []globalInfo
	entries   []entry
	history   []string
	recall    int
	showPanel bool
}

type evalResultMsg struct {
	err    error
	src    string
	result string
}

func newInteractiveModel(host *runtime.Host, set *demo.Set) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "user.greet(\"Hello\")"
	ti.Prompt = "js> "
	ti.Width = 60
	ti.Focus()

	m := &interactiveModel{
		host:      host,
		input:     ti,
		showPanel: true,
	}
	for _, g := range set.Globals() {
		info := globalInfo{name: g.Name}
		if names, err := g.Value.HostObject().Members(); err == nil {
			info.members = names
		}
		m.globals = append(m.globals, info)
	}
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab":
			m.showPanel = !m.showPanel
			return m, nil

		case "up":
			if m.recall > 0 {
				m.recall--
				m.input.SetValue(m.history[m.recall])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.recall < len(m.history)-1 {
				m.recall++
				m.input.SetValue(m.history[m.recall])
			} else {
				m.recall = len(m.history)
				m.input.SetValue("")
			}
			m.input.CursorEnd()
			return m, nil

		case "enter":
			src := strings.TrimSpace(m.input.Value())
			if src == "" {
				return m, nil
			}
			m.history = append(m.history, src)
			m.recall = len(m.history)
			m.input.SetValue("")
			return m, m.eval(src)
		}

	case evalResultMsg:
		m.entries = append(m.entries, entry{src: msg.src, result: msg.result, err: msg.err})
		if len(m.entries) > maxEntries {
			m.entries = m.entries[len(m.entries)-maxEntries:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) eval(src string) tea.Cmd {
	return func() tea.Msg {
		v, err := m.host.Main().RunString(context.Background(), src)
		if err != nil {
			return evalResultMsg{src: src, err: err}
		}
		return evalResultMsg{src: src, result: fmt.Sprintf("%v", v)}
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Host Bridge"))
	b.WriteString(" main runtime ")
	b.WriteString(m.host.Main().ID().String())
	b.WriteString("\n\n")

	var log strings.Builder
	for _, e := range m.entries {
		log.WriteString(helpStyle.Render("js> "))
		log.WriteString(e.src)
		log.WriteString("\n")
		if e.err != nil {
			log.WriteString(errorStyle.Render(e.err.Error()))
		} else {
			log.WriteString(resultStyle.Render(e.result))
		}
		log.WriteString("\n")
	}
	log.WriteString(m.input.View())

	if m.showPanel {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(72).Render(log.String()),
			panelStyle.Render(m.panel()),
		))
	} else {
		b.WriteString(log.String())
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter eval • ↑/↓ history • tab members • esc quit"))
	return b.String()
}

func (m *interactiveModel) panel() string {
	var b strings.Builder
	for i, g := range m.globals {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(globalStyle.Render(g.name))
		b.WriteString("\n")
		for _, name := range g.members {
			b.WriteString("  ")
			b.WriteString(memberStyle.Render(name))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func runInteractive(host *runtime.Host, set *demo.Set) error {
	p := tea.NewProgram(newInteractiveModel(host, set), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
