package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SearchInput is a bordered text input
type SearchInput struct {
	Input      textinput.Model
	Width      int
	Style      lipgloss.Style
	FocusStyle lipgloss.Style
}

// NewSearchInput creates a new search input
func NewSearchInput(width int, placeholder string) SearchInput {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = "> "
	in.CharLimit = 200
	in.Width = max(width-8, 10)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	return SearchInput{
		Input: in,
		Width: width,
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		FocusStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1),
	}
}

// Focus sets focus on the input
func (s *SearchInput) Focus() tea.Cmd {
	return s.Input.Focus()
}

// Blur removes focus from the input
func (s *SearchInput) Blur() {
	s.Input.Blur()
}

// Focused reports whether the input receives keys
func (s SearchInput) Focused() bool {
	return s.Input.Focused()
}

// Value returns the current text
func (s SearchInput) Value() string {
	return s.Input.Value()
}

// SetValue sets the input value
func (s *SearchInput) SetValue(value string) {
	s.Input.SetValue(value)
}

// Clear clears the input
func (s *SearchInput) Clear() {
	s.Input.Reset()
}

// Update handles messages for the search input
func (s SearchInput) Update(msg tea.Msg) (SearchInput, tea.Cmd) {
	var cmd tea.Cmd
	s.Input, cmd = s.Input.Update(msg)
	return s, cmd
}

// View renders the search input
func (s SearchInput) View() string {
	style := s.Style
	if s.Input.Focused() {
		style = s.FocusStyle
	}
	return style.Width(max(s.Width-4, 10)).Render(s.Input.View())
}
