package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-codec/roundtrip"
	"github.com/wippyai/wasm-codec/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	idStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	stateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// detailPage bounds the entries shown for one section.
const detailPage = 30

type interactiveModel struct {
	err      error
	module   *wasm.Module
	filename string
	cfg      roundtrip.Config
	filter   textinput.Model
	visible  []int
	details  []string
	selected int
	scroll   int
	state    modelState
}

type modelState int

const (
	stateBrowse modelState = iota
	stateFilter
	stateDetails
)

type loadedMsg struct {
	err    error
	module *wasm.Module
}

type detailsMsg struct {
	err   error
	lines []string
}

func newInteractiveModel(filename string, cfg roundtrip.Config) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "section name or custom section name"
	ti.Prompt = "filter: "
	ti.Width = 40
	return &interactiveModel{
		filename: filename,
		cfg:      cfg,
		filter:   ti,
		state:    stateBrowse,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	mod, err := wasm.DecodeModuleWithOptions(data, m.cfg.Options())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{module: mod}
}

func (m *interactiveModel) loadDetails() tea.Msg {
	s := m.current()
	if s == nil {
		return detailsMsg{}
	}
	lines, err := details(s)
	return detailsMsg{lines: lines, err: err}
}

func (m *interactiveModel) current() *wasm.Section {
	if m.module == nil || m.selected >= len(m.visible) {
		return nil
	}
	return m.module.Sections[m.visible[m.selected]]
}

// applyFilter keeps sections whose ID name or custom section name contains
// the filter text.
func (m *interactiveModel) applyFilter() {
	m.visible = m.visible[:0]
	text := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	for i, s := range m.module.Sections {
		if text == "" || strings.Contains(s.ID.String(), text) || strings.Contains(strings.ToLower(customName(s)), text) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func customName(s *wasm.Section) string {
	if s.ID != wasm.SectionCustom || s.Unknown() {
		return ""
	}
	cs, err := wasm.Get[wasm.CustomSection](s)
	if err != nil {
		return ""
	}
	return cs.Name
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "enter", "esc":
				m.filter.Blur()
				m.state = stateBrowse
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			switch {
			case m.state == stateBrowse && m.selected > 0:
				m.selected--
			case m.state == stateDetails && m.scroll > 0:
				m.scroll--
			}

		case "down", "j":
			switch {
			case m.state == stateBrowse && m.selected < len(m.visible)-1:
				m.selected++
			case m.state == stateDetails && m.scroll < len(m.details)-detailPage:
				m.scroll++
			}

		case "/":
			if m.state == stateBrowse && m.module != nil {
				m.state = stateFilter
				return m, m.filter.Focus()
			}

		case "enter":
			if m.state == stateBrowse && m.current() != nil {
				return m, m.loadDetails
			}

		case "esc":
			if m.state == stateDetails {
				m.state = stateBrowse
				m.details = nil
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.module = msg.module
		m.applyFilter()

	case detailsMsg:
		m.details = msg.lines
		m.err = msg.err
		m.scroll = 0
		m.state = stateDetails
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateDetails {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.module == nil {
		return "Decoding module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Sections"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString(" ")
	b.WriteString(helpStyle.Render(m.cfg.Features.String()))
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse, stateFilter:
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		if len(m.visible) == 0 {
			b.WriteString("No matching sections.\n")
		}
		for i, idx := range m.visible {
			s := m.module.Sections[idx]
			line := m.formatSection(idx, s)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateFilter {
			b.WriteString(helpStyle.Render("enter/esc done"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter decode • / filter • q quit"))
		}

	case stateDetails:
		s := m.current()
		b.WriteString(fmt.Sprintf("%s section, %s\n\n", idStyle.Render(s.ID.String()), stateStyle.Render(s.PayloadType())))
		end := min(m.scroll+detailPage, len(m.details))
		for _, line := range m.details[m.scroll:end] {
			b.WriteString(line)
			b.WriteString("\n")
		}
		if end < len(m.details) {
			b.WriteString(helpStyle.Render(fmt.Sprintf("... %d more", len(m.details)-end)))
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll • esc back • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatSection(idx int, s *wasm.Section) string {
	name := s.ID.String()
	if cn := customName(s); cn != "" {
		name += " " + fmt.Sprintf("%q", cn)
	}
	size := "-"
	if raw, ok := s.Raw(); ok {
		size = fmt.Sprintf("%d bytes", len(raw))
	}
	return fmt.Sprintf("%3d %s  @%d  %s  %s", idx, idStyle.Render(name), s.Offset(), size, stateStyle.Render(s.State().String()))
}

func runInteractive(filename string, cfg roundtrip.Config) error {
	p := tea.NewProgram(newInteractiveModel(filename, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
