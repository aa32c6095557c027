package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/magenta-go/kernel"
	"github.com/wippyai/magenta-go/sys"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	callStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	paramStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6")).Bold(true)
	resultStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	tableStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

type modelState int

const (
	stateSelectCall modelState = iota
	stateInputArgs
	stateShowResult
)

// call is one kernel entry point the TUI can invoke. Arguments arrive as
// strings in params order.
type call struct {
	name   string
	params []string
	run    func(k *kernel.Kernel, args []string) (string, error)
}

var calls = []call{
	{name: "channel_create", run: callChannelCreate},
	{name: "event_create", run: callEventCreate},
	{name: "vmo_create", params: []string{"size"}, run: callVmoCreate},
	{name: "channel_write", params: []string{"handle", "data", "transfer"}, run: callChannelWrite},
	{name: "channel_read", params: []string{"handle"}, run: callChannelRead},
	{name: "object_signal", params: []string{"handle", "clear", "set"}, run: callObjectSignal},
	{name: "handle_wait_one", params: []string{"handle", "signals"}, run: callWaitOne},
	{name: "handle_duplicate", params: []string{"handle", "rights"}, run: callDuplicate},
	{name: "handle_close", params: []string{"handle"}, run: callClose},
}

type interactiveModel struct {
	k        *kernel.Kernel
	state    modelState
	selected int
	inputs   []textinput.Model
	focusIdx int
	result   string
	err      error
}

type callResultMsg struct {
	result string
	err    error
}

func newInteractiveModel(k *kernel.Kernel) *interactiveModel {
	return &interactiveModel{k: k}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectCall && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectCall && m.selected < len(calls)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectCall:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.invoke
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.invoke

			case stateShowResult:
				m.reset()
				return m, nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}
			return m, nil

		case "esc":
			if m.state != stateSelectCall {
				m.reset()
			}
			return m, nil
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateSelectCall
	m.inputs = nil
	m.result = ""
	m.err = nil
}

func (m *interactiveModel) prepareInputs() {
	c := calls[m.selected]
	m.inputs = make([]textinput.Model, len(c.params))
	for i, p := range c.params {
		ti := textinput.New()
		ti.Prompt = p + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) invoke() tea.Msg {
	c := calls[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = strings.TrimSpace(input.Value())
	}
	result, err := c.run(m.k, args)
	return callResultMsg{result: result, err: err}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("magenta kernel"))
	fmt.Fprintf(&b, " %d live handles\n\n", m.k.Len())

	switch m.state {
	case stateSelectCall:
		b.WriteString("Select a call:\n\n")
		for i, c := range calls {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatCall(c)))
			} else {
				b.WriteString("  " + formatCall(c))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		fmt.Fprintf(&b, "Calling %s\n\n", callStyle.Render(calls[m.selected].name))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		fmt.Fprintf(&b, "Result of %s:\n\n", callStyle.Render(calls[m.selected].name))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	b.WriteString("\n\n")
	b.WriteString(tableStyle.Render(renderTable(m.k)))
	return b.String()
}

func formatCall(c call) string {
	params := make([]string, len(c.params))
	for i, p := range c.params {
		params[i] = paramStyle.Render(p)
	}
	return callStyle.Render(c.name) + "(" + strings.Join(params, ", ") + ")"
}

func renderTable(k *kernel.Kernel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-6s %-10s %s", "HANDLE", "KOID", "TYPE", "RIGHTS")
	k.Each(func(h sys.Handle, info kernel.HandleInfo) bool {
		fmt.Fprintf(&b, "\n%-10d %-6d %-10s %#x", h, info.Koid, info.Type, uint32(info.Rights))
		return true
	})
	return b.String()
}

func runInteractive(k *kernel.Kernel) error {
	p := tea.NewProgram(newInteractiveModel(k), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func parseHandle(s string) (sys.Handle, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("handle %q: %w", s, err)
	}
	return sys.Handle(v), nil
}

// parseBits accepts decimal or 0x-prefixed values. Empty means zero.
func parseBits(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", s, err)
	}
	return uint32(v), nil
}

func statusErr(s sys.Status) error {
	if s < 0 {
		return fmt.Errorf("%s", s)
	}
	return nil
}

func callChannelCreate(k *kernel.Kernel, _ []string) (string, error) {
	var h0, h1 sys.Handle
	if err := statusErr(k.ChannelCreate(0, &h0, &h1)); err != nil {
		return "", err
	}
	return fmt.Sprintf("endpoints %d and %d", h0, h1), nil
}

func callEventCreate(k *kernel.Kernel, _ []string) (string, error) {
	var h sys.Handle
	if err := statusErr(k.EventCreate(0, &h)); err != nil {
		return "", err
	}
	return fmt.Sprintf("event %d", h), nil
}

func callVmoCreate(k *kernel.Kernel, args []string) (string, error) {
	size, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return "", fmt.Errorf("size %q: %w", args[0], err)
	}
	var h sys.Handle
	if err := statusErr(k.VmoCreate(size, 0, &h)); err != nil {
		return "", err
	}
	return fmt.Sprintf("vmo %d (%d bytes)", h, size), nil
}

func callChannelWrite(k *kernel.Kernel, args []string) (string, error) {
	h, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	var transfer []sys.Handle
	if args[2] != "" {
		t, err := parseHandle(args[2])
		if err != nil {
			return "", err
		}
		transfer = append(transfer, t)
	}
	if err := statusErr(k.ChannelWrite(h, 0, []byte(args[1]), transfer)); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes and %d handles", len(args[1]), len(transfer)), nil
}

func callChannelRead(k *kernel.Kernel, args []string) (string, error) {
	h, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	var nb, nh uint32
	switch status := k.ChannelRead(h, 0, nil, &nb, nil, &nh); status {
	case sys.OK:
		return "empty message", nil
	case sys.ErrBufferTooSmall:
	default:
		return "", statusErr(status)
	}
	data := make([]byte, nb)
	handles := make([]sys.Handle, nh)
	if err := statusErr(k.ChannelRead(h, 0, data, &nb, handles, &nh)); err != nil {
		return "", err
	}
	return fmt.Sprintf("data %q handles %v", data[:nb], handles[:nh]), nil
}

func callObjectSignal(k *kernel.Kernel, args []string) (string, error) {
	h, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	clr, err := parseBits(args[1])
	if err != nil {
		return "", err
	}
	set, err := parseBits(args[2])
	if err != nil {
		return "", err
	}
	if err := statusErr(k.ObjectSignal(h, sys.Signals(clr), sys.Signals(set))); err != nil {
		return "", err
	}
	return "ok", nil
}

func callWaitOne(k *kernel.Kernel, args []string) (string, error) {
	h, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	signals, err := parseBits(args[1])
	if err != nil {
		return "", err
	}
	var state sys.SignalsState
	status := k.HandleWaitOne(h, sys.Signals(signals), 0, &state)
	if status != sys.OK && status != sys.ErrTimedOut {
		return "", statusErr(status)
	}
	return fmt.Sprintf("%s satisfied=%#x satisfiable=%#x", status, uint32(state.Satisfied), uint32(state.Satisfiable)), nil
}

func callDuplicate(k *kernel.Kernel, args []string) (string, error) {
	h, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	rights := uint32(sys.RightSameRights)
	if args[1] != "" {
		if rights, err = parseBits(args[1]); err != nil {
			return "", err
		}
	}
	var out sys.Handle
	if err := statusErr(k.HandleDuplicate(h, sys.Rights(rights), &out)); err != nil {
		return "", err
	}
	return fmt.Sprintf("duplicate %d", out), nil
}

func callClose(k *kernel.Kernel, args []string) (string, error) {
	h, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	if err := statusErr(k.HandleClose(h)); err != nil {
		return "", err
	}
	return "closed", nil
}
