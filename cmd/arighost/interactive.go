package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arigato/aubridge/audiounit"
	"github.com/arigato/aubridge/bridge"
	"github.com/arigato/aubridge/resource"
	"github.com/arigato/aubridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	unitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateInputDesc
	stateInputFunc
)

type handleRow struct {
	handle    resource.Handle
	label     string
	unitID    string
	refs      int32
	unitRefs  int32
	hasNative bool
}

type interactiveModel struct {
	err      error
	app      *app
	rt       *runtime.Runtime
	module   *runtime.Module
	instance *runtime.Instance
	wasmFile string
	status   string
	rows     []handleRow
	input    textinput.Model
	selected int
	state    modelState
}

func newInteractiveModel(a *app, wasmFile string) *interactiveModel {
	ti := textinput.New()
	ti.Width = 40
	return &interactiveModel{
		app:      a,
		wasmFile: wasmFile,
		input:    ti,
		state:    stateBrowse,
	}
}

type loadedMsg struct {
	err error
	rt  *runtime.Runtime
	mod *runtime.Module
}

type actionMsg struct {
	err    error
	status string
}

func (m *interactiveModel) Init() tea.Cmd {
	m.refresh()
	if m.wasmFile == "" {
		return nil
	}
	return m.loadGuest
}

func (m *interactiveModel) loadGuest() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.wasmFile)
	if err != nil {
		return loadedMsg{err: err}
	}
	rt, err := m.app.newRuntime(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	mod, err := rt.LoadWASM(ctx, data)
	if err != nil {
		rt.Close(ctx)
		return loadedMsg{err: err}
	}
	return loadedMsg{rt: rt, mod: mod}
}

// refresh rebuilds the handle list from the object table.
func (m *interactiveModel) refresh() {
	b := m.app.bridge
	var rows []handleRow
	b.Table().Each(func(handle resource.Handle, typeID resource.TypeID, v any) bool {
		h, ok := v.(*bridge.AudioUnitHandle)
		if !ok || typeID != b.TypeID() {
			return true
		}
		row := handleRow{
			handle: handle,
			label:  h.String(),
		}
		if u := h.Unit(); u != nil {
			row.hasNative = true
			row.unitID = u.ID().String()[:8]
			row.unitRefs = u.RetainCount()
		}
		rows = append(rows, row)
		return true
	})
	for i := range rows {
		rows[i].refs = b.Table().RefCount(rows[i].handle)
	}
	m.rows = rows
	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *interactiveModel) current() (*bridge.AudioUnitHandle, error) {
	if len(m.rows) == 0 {
		return nil, fmt.Errorf("no handle selected")
	}
	return m.app.bridge.Lookup(m.rows[m.selected].handle)
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state != stateBrowse {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.closeGuest()
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < len(m.rows)-1 {
				m.selected++
			}

		case "n":
			m.startInput(stateInputDesc, "unit: ", "aumx:smxr:appl")

		case "x":
			if m.module == nil {
				m.status, m.err = "", fmt.Errorf("no guest loaded, start with -wasm")
				break
			}
			m.startInput(stateInputFunc, "func: ", strings.Join(m.module.Exports(), " | "))

		case "w":
			return m, m.act(func(h *bridge.AudioUnitHandle) (string, error) {
				u := h.Unit()
				if u == nil {
					return "", fmt.Errorf("handle %d is invalidated", h.Handle())
				}
				nh, err := m.app.bridge.Wrap(u)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("wrapped again as #%d", nh.Handle()), nil
			})

		case "c":
			return m, m.act(func(h *bridge.AudioUnitHandle) (string, error) {
				return fmt.Sprintf("cloned #%d", h.Handle()), m.app.bridge.Retain(h.Handle())
			})

		case "r":
			return m, m.act(func(h *bridge.AudioUnitHandle) (string, error) {
				return fmt.Sprintf("released #%d", h.Handle()), m.app.bridge.Release(h.Handle())
			})

		case "d":
			return m, m.act(func(h *bridge.AudioUnitHandle) (string, error) {
				u := h.Unit()
				if u == nil {
					return "", fmt.Errorf("handle %d is invalidated", h.Handle())
				}
				return "destroyed native unit " + u.ID().String(), m.app.host.Destroy(u)
			})
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.module = msg.mod
		m.status = "guest loaded: " + m.wasmFile

	case actionMsg:
		m.status = msg.status
		m.err = msg.err
		m.refresh()
	}

	return m, nil
}

func (m *interactiveModel) startInput(state modelState, prompt, placeholder string) {
	m.state = state
	m.input.Reset()
	m.input.Prompt = prompt
	m.input.Placeholder = placeholder
	m.input.Focus()
}

func (m *interactiveModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.closeGuest()
		return m, tea.Quit

	case "esc":
		m.state = stateBrowse
		m.input.Blur()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		state := m.state
		m.state = stateBrowse
		m.input.Blur()
		if state == stateInputDesc {
			return m, m.wrapDescription(value)
		}
		return m, m.callGuest(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// act runs fn against the selected handle.
func (m *interactiveModel) act(fn func(*bridge.AudioUnitHandle) (string, error)) tea.Cmd {
	return func() tea.Msg {
		h, err := m.current()
		if err != nil {
			return actionMsg{err: err}
		}
		status, err := fn(h)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: status}
	}
}

func (m *interactiveModel) wrapDescription(value string) tea.Cmd {
	return func() tea.Msg {
		desc, err := audiounit.ParseDescription(value)
		if err != nil {
			return actionMsg{err: err}
		}
		h, err := m.app.wrapNew(context.Background(), desc)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "wrapped " + h.String()}
	}
}

func (m *interactiveModel) callGuest(name string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		h, err := m.current()
		if err != nil {
			return actionMsg{err: err}
		}
		if m.instance == nil {
			inst, err := m.module.Instantiate(ctx)
			if err != nil {
				return actionMsg{err: err}
			}
			m.instance = inst
		}
		results, err := m.instance.CallWithHandles(ctx, name, h)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("%s(#%d) = %v", name, h.Handle(), results)}
	}
}

func (m *interactiveModel) closeGuest() {
	ctx := context.Background()
	if m.instance != nil {
		m.instance.Close(ctx)
	}
	if m.rt != nil {
		m.rt.Close(ctx)
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("AudioUnit Host"))
	b.WriteString(" ")
	b.WriteString(countStyle.Render(fmt.Sprintf("%d/%d handles • %d native units",
		len(m.rows), m.app.table.Capacity(), len(m.app.host.Units()))))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString("No handles. Press n to wrap a unit.\n")
	}
	for i, r := range m.rows {
		line := m.formatRow(r)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.state {
	case stateInputDesc, stateInputFunc:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter confirm • esc back"))
		return b.String()
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	} else if m.status != "" {
		b.WriteString(resultStyle.Render(m.status))
		b.WriteString("\n\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ select • n new • w wrap again • c clone • r release • d destroy native • x call guest • q quit"))
	return b.String()
}

func (m *interactiveModel) formatRow(r handleRow) string {
	refs := countStyle.Render(fmt.Sprintf("refs=%d", r.refs))
	if !r.hasNative {
		return unitStyle.Render(r.label) + " " + refs + " " + errorStyle.Render("invalidated")
	}
	native := countStyle.Render(fmt.Sprintf("unit=%s retain=%d", r.unitID, r.unitRefs))
	return unitStyle.Render(r.label) + " " + refs + " " + native
}

func runInteractive(a *app, wasmFile string) error {
	p := tea.NewProgram(newInteractiveModel(a, wasmFile), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
