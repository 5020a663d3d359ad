package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/moz/api"
	"github.com/muesli/reflow/truncate"
)

// List is a scrollable list of items rendered through Label
type List[T any] struct {
	Items         []T
	Selected      int
	Height        int
	Width         int
	Offset        int
	Title         string
	Empty         string
	ShowNumbers   bool
	Label         func(T) string
	Marked        func(T) bool
	SelectedStyle lipgloss.Style
	NormalStyle   lipgloss.Style
	MarkedStyle   lipgloss.Style
	TitleStyle    lipgloss.Style
}

// NewList creates a new list
func NewList[T any](height, width int, label func(T) string) List[T] {
	return List[T]{
		Height:      height,
		Width:       width,
		Label:       label,
		Empty:       "Nothing here",
		ShowNumbers: true,
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		NormalStyle: lipgloss.NewStyle().
			Padding(0, 1),
		MarkedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Padding(0, 1),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
	}
}

// NewTrackList creates a list of local tracks labelled "Artist - Title"
func NewTrackList(height, width int) List[*api.Track] {
	return NewList(height, width, func(t *api.Track) string {
		return fmt.Sprintf("%s - %s", t.Artist, t.Title)
	})
}

// SetItems sets the list items
func (l *List[T]) SetItems(items []T) {
	l.Items = items
	l.Selected = 0
	l.Offset = 0
}

// Update handles messages for the list
func (l List[T]) Update(msg tea.Msg) (List[T], tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "home":
			l.Selected = 0
			l.Offset = 0
		case "end":
			if len(l.Items) > 0 {
				l.Selected = len(l.Items) - 1
				l.ensureVisible()
			}
		case "pgup":
			l.PageUp()
		case "pgdown":
			l.PageDown()
		}
	}
	return l, nil
}

// MoveUp moves selection up
func (l *List[T]) MoveUp() {
	if l.Selected > 0 {
		l.Selected--
		l.ensureVisible()
	}
}

// MoveDown moves selection down
func (l *List[T]) MoveDown() {
	if l.Selected < len(l.Items)-1 {
		l.Selected++
		l.ensureVisible()
	}
}

// PageUp moves selection up by a page
func (l *List[T]) PageUp() {
	l.Selected = max(l.Selected-l.visibleHeight(), 0)
	l.ensureVisible()
}

// PageDown moves selection down by a page
func (l *List[T]) PageDown() {
	l.Selected = max(min(l.Selected+l.visibleHeight(), len(l.Items)-1), 0)
	l.ensureVisible()
}

func (l *List[T]) visibleHeight() int {
	return max(l.Height-2, 1) // Account for title and counter
}

// ensureVisible ensures the selected item is visible
func (l *List[T]) ensureVisible() {
	visible := l.visibleHeight()
	if l.Selected < l.Offset {
		l.Offset = l.Selected
	} else if l.Selected >= l.Offset+visible {
		l.Offset = l.Selected - visible + 1
	}
}

// SelectedItem returns the currently selected item
func (l *List[T]) SelectedItem() (T, bool) {
	if l.Selected >= 0 && l.Selected < len(l.Items) {
		return l.Items[l.Selected], true
	}
	var zero T
	return zero, false
}

// View renders the list
func (l List[T]) View() string {
	var sb strings.Builder

	if l.Title != "" {
		sb.WriteString(l.TitleStyle.Render(l.Title))
		sb.WriteString("\n")
	}

	if len(l.Items) == 0 {
		sb.WriteString(l.NormalStyle.Render(l.Empty))
		return sb.String()
	}

	visible := l.visibleHeight()
	end := min(l.Offset+visible, len(l.Items))
	width := uint(max(l.Width-4, 8))

	for i := l.Offset; i < end; i++ {
		item := l.Items[i]
		line := l.Label(item)
		if l.ShowNumbers {
			line = fmt.Sprintf("%3d. %s", i+1, line)
		}
		line = truncate.StringWithTail(line, width, "...")

		switch {
		case i == l.Selected:
			sb.WriteString(l.SelectedStyle.Render(line))
		case l.Marked != nil && l.Marked(item):
			sb.WriteString(l.MarkedStyle.Render(line))
		default:
			sb.WriteString(l.NormalStyle.Render(line))
		}

		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	if len(l.Items) > visible {
		sb.WriteString("\n")
		sb.WriteString(l.NormalStyle.Render(fmt.Sprintf("  [%d/%d]", l.Selected+1, len(l.Items))))
	}

	return sb.String()
}
