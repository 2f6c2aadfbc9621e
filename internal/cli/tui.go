package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/xwire/pkg/xlights"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ControllerPickerModel - Interactive controller selection
// =============================================================================

// ControllerPickerModel is the bubbletea model for choosing which controllers
// an import covers.
type ControllerPickerModel struct {
	Controllers []xlights.Controller
	Models      *xlights.ModelSet // optional, for pixel counts
	Cursor      int
	Checked     map[int]bool
	Height      int
	Offset      int

	// Done is set when the user confirmed the selection, Cancelled when
	// they quit.
	Done      bool
	Cancelled bool
}

// NewControllerPickerModel creates a picker with every controller that has
// models pre-checked.
func NewControllerPickerModel(controllers []xlights.Controller, models *xlights.ModelSet) ControllerPickerModel {
	m := ControllerPickerModel{
		Controllers: controllers,
		Models:      models,
		Checked:     make(map[int]bool),
		Height:      15,
	}
	for i, c := range controllers {
		if m.pixels(c.Name) > 0 {
			m.Checked[i] = true
		}
	}
	return m
}

func (m ControllerPickerModel) Init() tea.Cmd {
	return nil
}

func (m ControllerPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Cancelled = true
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Controllers)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ", "x":
			m.Checked[m.Cursor] = !m.Checked[m.Cursor]
		case "a":
			all := len(m.Selected()) < len(m.Controllers)
			for i := range m.Controllers {
				m.Checked[i] = all
			}
		case "enter":
			if len(m.Selected()) == 0 {
				return m, nil
			}
			m.Done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// Selected returns the checked controller names in file order.
func (m ControllerPickerModel) Selected() []string {
	var names []string
	for i, c := range m.Controllers {
		if m.Checked[i] {
			names = append(names, c.Name)
		}
	}
	return names
}

func (m ControllerPickerModel) pixels(name string) int {
	if m.Models == nil {
		return 0
	}
	if cm, ok := m.Models.Controllers[name]; ok {
		return cm.Pixels
	}
	return 0
}

func (m ControllerPickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Controllers"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  ⏎ import  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Controllers) {
		end = len(m.Controllers)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		c := m.Controllers[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		box := "[ ]"
		if m.Checked[i] {
			box = "[x]"
		}
		px := "—"
		if n := m.pixels(c.Name); n > 0 {
			px = strconv.Itoa(n)
		}
		rows = append(rows, []string{cursor + box, c.Name, c.Type, px})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Controller", "Type", "Pixels").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			idx := m.Offset + row
			switch {
			case idx == m.Cursor:
				return listSelectedStyle
			case m.Checked[idx]:
				return listNormalStyle
			default:
				return listDimStyle
			}
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d selected / %d]", len(m.Selected()), len(m.Controllers))))

	return b.String()
}

// pickControllers runs the picker and returns the chosen names. It returns
// nil when the user quits.
func pickControllers(controllers []xlights.Controller, models *xlights.ModelSet) ([]string, error) {
	final, err := tea.NewProgram(NewControllerPickerModel(controllers, models)).Run()
	if err != nil {
		return nil, err
	}
	m := final.(ControllerPickerModel)
	if !m.Done {
		return nil, nil
	}
	return m.Selected(), nil
}
