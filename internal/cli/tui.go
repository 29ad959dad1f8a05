package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/archviz/pkg/diagram"
	"github.com/matzehuels/archviz/pkg/icons"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorOrange)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// IconBrowser is a two-pane bubbletea model: categories on the left, the
// selected category's icons on the right.
type IconBrowser struct {
	catalog    *icons.Catalog
	categories []diagram.Category
	Cursor     int // selected category
	IconCursor int // selected icon within the category
	focusIcons bool
	Height     int
	Offset     int
}

func newIconBrowser(cat *icons.Catalog) IconBrowser {
	return IconBrowser{
		catalog:    cat,
		categories: cat.Categories(),
		Height:     15,
	}
}

func (m IconBrowser) Init() tea.Cmd {
	return nil
}

func (m IconBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l", "left", "h":
			m.focusIcons = !m.focusIcons
		case "up", "k":
			m = m.move(-1)
		case "down", "j":
			m = m.move(1)
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m IconBrowser) move(delta int) IconBrowser {
	if m.focusIcons {
		n := len(m.keys())
		m.IconCursor = clamp(m.IconCursor+delta, 0, n-1)
		if m.IconCursor < m.Offset {
			m.Offset = m.IconCursor
		}
		if m.IconCursor >= m.Offset+m.Height {
			m.Offset = m.IconCursor - m.Height + 1
		}
		return m
	}
	next := clamp(m.Cursor+delta, 0, len(m.categories)-1)
	if next != m.Cursor {
		m.Cursor = next
		m.IconCursor, m.Offset = 0, 0
	}
	return m
}

func (m IconBrowser) keys() []string {
	if len(m.categories) == 0 {
		return nil
	}
	return m.catalog.Keys(m.categories[m.Cursor])
}

// Selected returns the highlighted category and icon key.
func (m IconBrowser) Selected() (diagram.Category, string) {
	keys := m.keys()
	if len(keys) == 0 {
		return "", ""
	}
	return m.categories[m.Cursor], keys[m.IconCursor]
}

func (m IconBrowser) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Icon Catalog"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab switch pane  q quit"))
	b.WriteString("\n\n")

	var left strings.Builder
	for i, c := range m.categories {
		line := fmt.Sprintf("%-20s", c)
		switch {
		case i == m.Cursor && !m.focusIcons:
			left.WriteString(listSelectedStyle.Render("▸ " + line))
		case i == m.Cursor:
			left.WriteString(listNormalStyle.Render("▸ " + line))
		default:
			left.WriteString(listDimStyle.Render("  " + line))
		}
		left.WriteString("\n")
	}

	keys := m.keys()
	end := min(m.Offset+m.Height, len(keys))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		rows = append(rows, []string{keys[i]})
	}
	header := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	right := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Icon").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return header
			}
			if m.focusIcons && m.Offset+row == m.IconCursor {
				return listSelectedStyle
			}
			return listNormalStyle
		})

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left.String(), "  ", right.Render()))
	b.WriteString("\n")
	if c, k := m.Selected(); k != "" {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  category = %q  icon = %q", c, k)))
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
