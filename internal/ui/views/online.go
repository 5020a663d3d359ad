package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/moz/internal/stream"
	"github.com/jscyril/moz/internal/ui/components"
)

// OnlineView searches for remote audio and lists the results
type OnlineView struct {
	Width     int
	Height    int
	SearchBar components.SearchInput
	Results   components.List[stream.Result]
	Searching bool
	Query     string
	Err       error

	BorderStyle lipgloss.Style
	TitleStyle  lipgloss.Style
	ErrStyle    lipgloss.Style
}

// NewOnlineView creates the online screen with the search bar focused
func NewOnlineView(width, height int) (OnlineView, tea.Cmd) {
	v := OnlineView{
		Width:     width,
		Height:    height,
		SearchBar: components.NewSearchInput(width-6, "Search YouTube..."),
		Results:   components.NewList(height-10, width-6, resultLabel),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		ErrStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
	v.Results.Empty = "Type a query and press Enter"
	cmd := v.SearchBar.Focus()
	return v, cmd
}

func resultLabel(r stream.Result) string {
	label := r.Title
	if r.Channel != "" {
		label += "  · " + r.Channel
	}
	if r.Duration > 0 {
		label += "  " + components.FormatDuration(r.Duration)
	}
	return label
}

// SetSize resizes the view and its children
func (v *OnlineView) SetSize(width, height int) {
	v.Width, v.Height = width, height
	v.SearchBar.Width = width - 6
	v.Results.Width, v.Results.Height = width-6, height-10
}

// StartSearch marks query as in flight
func (v *OnlineView) StartSearch(query string) {
	v.Query = query
	v.Searching = true
	v.Err = nil
}

// SetResults shows the outcome of a search and moves focus to the list
func (v *OnlineView) SetResults(results []stream.Result, err error) {
	v.Searching = false
	v.Err = err
	v.Results.SetItems(results)
	if err == nil && len(results) > 0 {
		v.SearchBar.Blur()
	}
}

// Capturing reports whether keys are going to a text field
func (v OnlineView) Capturing() bool {
	return v.SearchBar.Focused()
}

// Update handles messages
func (v OnlineView) Update(msg tea.Msg) (OnlineView, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		v.SearchBar, cmd = v.SearchBar.Update(msg)
		return v, cmd
	}

	if v.SearchBar.Focused() {
		switch key.String() {
		case "enter":
			query := strings.TrimSpace(v.SearchBar.Value())
			if query == "" || v.Searching {
				return v, nil
			}
			return v, send(SearchRequestMsg{Query: query})
		case "esc":
			if len(v.Results.Items) == 0 {
				return v, send(BackMsg{})
			}
			v.SearchBar.Blur()
			return v, nil
		case "down":
			if len(v.Results.Items) > 0 {
				v.SearchBar.Blur()
			}
			return v, nil
		}
		var cmd tea.Cmd
		v.SearchBar, cmd = v.SearchBar.Update(msg)
		return v, cmd
	}

	switch key.String() {
	case "/", "tab":
		return v, v.SearchBar.Focus()
	case "esc":
		return v, send(BackMsg{})
	case "enter":
		if r, ok := v.Results.SelectedItem(); ok {
			return v, send(PlayRequestMsg{Source: r.Source()})
		}
	default:
		v.Results, _ = v.Results.Update(msg)
	}
	return v, nil
}

// View renders the online view
func (v OnlineView) View() string {
	var sb strings.Builder

	sb.WriteString(v.SearchBar.View())
	sb.WriteString("\n\n")

	switch {
	case v.Searching:
		sb.WriteString(fmt.Sprintf("Searching for %q...", v.Query))
	case v.Err != nil:
		sb.WriteString(v.ErrStyle.Render(v.Err.Error()))
	default:
		if v.Query != "" {
			v.Results.Title = fmt.Sprintf("Results for %q", v.Query)
		}
		sb.WriteString(v.Results.View())
	}

	sb.WriteString("\n\n")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if v.SearchBar.Focused() {
		sb.WriteString(helpStyle.Render("[Enter] Search  [↓] Results  [Esc] Back"))
	} else {
		sb.WriteString(helpStyle.Render("[Enter] Play  [/] New search  [↑↓] Navigate  [Esc] Back"))
	}

	return v.BorderStyle.Width(max(v.Width-4, 20)).Render(sb.String())
}
