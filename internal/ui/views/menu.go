package views

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MenuView asks how to find music
type MenuView struct {
	Width    int
	Height   int
	Choices  []Mode
	Selected int

	TitleStyle    lipgloss.Style
	ChoiceStyle   lipgloss.Style
	SelectedStyle lipgloss.Style
}

// NewMenuView creates the mode selector
func NewMenuView(width, height int) MenuView {
	return MenuView{
		Width:   width,
		Height:  height,
		Choices: []Mode{ModeOffline, ModeOnline},
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		ChoiceStyle: lipgloss.NewStyle().
			Padding(0, 2),
		SelectedStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Reverse(true),
	}
}

// Update handles messages
func (v MenuView) Update(msg tea.Msg) (MenuView, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k", "down", "j", "tab":
			v.Selected = (v.Selected + 1) % len(v.Choices)
		case "enter":
			return v, send(ModeChosenMsg{Mode: v.Choices[v.Selected]})
		}
	}
	return v, nil
}

// View renders the menu centered in the available space
func (v MenuView) View() string {
	var sb strings.Builder
	sb.WriteString(v.TitleStyle.Render("Select a mode:"))
	sb.WriteString("\n")
	for i, choice := range v.Choices {
		if i == v.Selected {
			sb.WriteString(v.SelectedStyle.Render(choice.String()))
		} else {
			sb.WriteString(v.ChoiceStyle.Render(choice.String()))
		}
		sb.WriteString("\n")
	}
	return lipgloss.Place(v.Width, v.Height, lipgloss.Center, lipgloss.Center, sb.String())
}
