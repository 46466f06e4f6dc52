package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/procmeta/pkg/bpmn"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// NodeListModel - Interactive node selection
// =============================================================================

// NodeListModel is the bubbletea model for interactive node selection.
// Typing filters the list by id, name or lane.
type NodeListModel struct {
	Nodes    []*bpmn.NodeMetadata
	Cursor   int
	Selected *bpmn.NodeMetadata
	Height   int
	Offset   int
	Filter   string

	visible []*bpmn.NodeMetadata
}

// NewNodeListModel creates a new node list model.
func NewNodeListModel(nodes []*bpmn.NodeMetadata) NodeListModel {
	return NodeListModel{
		Nodes:   nodes,
		Height:  15,
		visible: nodes,
	}
}

func (m NodeListModel) Init() tea.Cmd {
	return nil
}

func (m NodeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			m.moveCursor(-1)
		case tea.KeyDown:
			m.moveCursor(1)
		case tea.KeyEnter:
			if len(m.visible) > 0 {
				m.Selected = m.visible[m.Cursor]
			}
			return m, tea.Quit
		case tea.KeyBackspace:
			if m.Filter != "" {
				m.Filter = m.Filter[:len(m.Filter)-1]
				m.applyFilter()
			}
		case tea.KeyRunes:
			m.Filter += string(msg.Runes)
			m.applyFilter()
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m *NodeListModel) moveCursor(delta int) {
	next := m.Cursor + delta
	if next < 0 || next >= len(m.visible) {
		return
	}
	m.Cursor = next
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m *NodeListModel) applyFilter() {
	m.Cursor, m.Offset = 0, 0
	if m.Filter == "" {
		m.visible = m.Nodes
		return
	}
	q := strings.ToLower(m.Filter)
	m.visible = nil
	for _, n := range m.Nodes {
		if strings.Contains(strings.ToLower(n.ID), q) ||
			strings.Contains(strings.ToLower(n.Name), q) ||
			strings.Contains(strings.ToLower(n.LaneName()), q) {
			m.visible = append(m.visible, n)
		}
	}
}

func (m NodeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Node"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  type to filter  esc quit"))
	b.WriteString("\n")
	if m.Filter != "" {
		b.WriteString(listNormalStyle.Render("filter: " + m.Filter))
	}
	b.WriteString("\n")

	if len(m.visible) == 0 {
		b.WriteString(listDimStyle.Render("  no matching nodes"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.visible))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		n := m.visible[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, n.ID, n.Type, orDash(n.Name), orDash(n.LaneName())})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Type", "Name", "Lane").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			if m.visible[m.Offset+row].IsConnector() {
				return listDimStyle
			}
			return listNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.visible))))

	return b.String()
}
