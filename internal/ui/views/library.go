package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/moz/api"
	"github.com/jscyril/moz/internal/ui/components"
)

// LibraryView is the offline screen: a folder browser, then the tracks of
// the chosen folder
type LibraryView struct {
	Width       int
	Height      int
	TrackList   components.List[*api.Track]
	FilterBar   components.SearchInput
	FileBrowser components.FileBrowser
	Browsing    bool
	Filtering   bool
	Loading     bool
	Dir         string
	AllTracks   []*api.Track
	Playing     string

	// Search ranks tracks for the filter bar; nil disables filtering
	Search func(query string) []*api.Track

	BorderStyle lipgloss.Style
	TitleStyle  lipgloss.Style
}

// NewLibraryView creates a library view whose browser starts at startDir
func NewLibraryView(startDir string, width, height int) LibraryView {
	v := LibraryView{
		Width:       width,
		Height:      height,
		TrackList:   components.NewTrackList(height-10, width-6),
		FilterBar:   components.NewSearchInput(width-6, "Filter tracks..."),
		FileBrowser: components.NewFileBrowser(startDir, width, height),
		Browsing:    true,
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
	}
	v.TrackList.Empty = "No playable files in this folder"
	return v
}

// SetSize resizes the view and its children
func (v *LibraryView) SetSize(width, height int) {
	v.Width, v.Height = width, height
	v.TrackList.Width, v.TrackList.Height = width-6, height-10
	v.FileBrowser.Width, v.FileBrowser.Height = width, height
	v.FilterBar.Width = width - 6
}

// SetLoading shows the folder being read
func (v *LibraryView) SetLoading(dir string) {
	v.Dir = dir
	v.Loading = true
	v.Browsing = false
}

// SetTracks sets the tracks of the selected folder
func (v *LibraryView) SetTracks(dir string, tracks []*api.Track) {
	v.Dir = dir
	v.Loading = false
	v.Browsing = false
	v.AllTracks = tracks
	v.FilterBar.Clear()
	v.TrackList.SetItems(tracks)
}

// SetPlaying highlights the track at path
func (v *LibraryView) SetPlaying(path string) {
	v.Playing = path
	v.TrackList.Marked = func(t *api.Track) bool { return t.FilePath == path }
}

// Capturing reports whether keys are going to a text field
func (v LibraryView) Capturing() bool {
	return v.Filtering
}

// Update handles messages
func (v LibraryView) Update(msg tea.Msg) (LibraryView, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		if v.Filtering {
			v.FilterBar, cmd = v.FilterBar.Update(msg)
		}
		return v, cmd
	}

	switch {
	case v.Browsing:
		switch key.String() {
		case "esc":
			return v, send(BackMsg{})
		case "enter", "right", "l":
			v.FileBrowser.EnterSelected()
		case "s":
			return v, send(DirSelectedMsg{Path: v.FileBrowser.SelectedDir()})
		default:
			v.FileBrowser, _ = v.FileBrowser.Update(msg)
		}
		return v, nil

	case v.Filtering:
		switch key.String() {
		case "esc":
			v.Filtering = false
			v.FilterBar.Blur()
			v.FilterBar.Clear()
			v.TrackList.SetItems(v.AllTracks)
			return v, nil
		case "enter":
			v.Filtering = false
			v.FilterBar.Blur()
			return v, nil
		case "up", "down":
			v.TrackList, _ = v.TrackList.Update(msg)
			return v, nil
		}
		var cmd tea.Cmd
		v.FilterBar, cmd = v.FilterBar.Update(msg)
		v.filterTracks(v.FilterBar.Value())
		return v, cmd
	}

	switch key.String() {
	case "/":
		if v.Search == nil {
			return v, nil
		}
		v.Filtering = true
		return v, v.FilterBar.Focus()
	case "esc", "backspace", "b":
		v.Browsing = true
		v.FileBrowser.Navigate(v.FileBrowser.CurrentPath)
	case "enter":
		if track, ok := v.TrackList.SelectedItem(); ok {
			return v, send(PlayRequestMsg{Source: track.Source(), Track: track})
		}
	default:
		v.TrackList, _ = v.TrackList.Update(msg)
	}
	return v, nil
}

// filterTracks filters tracks based on the filter bar
func (v *LibraryView) filterTracks(query string) {
	if query == "" || v.Search == nil {
		v.TrackList.SetItems(v.AllTracks)
		return
	}
	v.TrackList.SetItems(v.Search(query))
}

// SelectedTrack returns the currently selected track
func (v *LibraryView) SelectedTrack() *api.Track {
	track, _ := v.TrackList.SelectedItem()
	return track
}

// View renders the library view
func (v LibraryView) View() string {
	if v.Browsing {
		return v.FileBrowser.View()
	}

	var sb strings.Builder

	sb.WriteString(v.TitleStyle.Render("Music in: " + v.Dir))
	sb.WriteString("\n\n")

	if v.Loading {
		sb.WriteString("Reading tags...")
		return v.BorderStyle.Width(max(v.Width-4, 20)).Render(sb.String())
	}

	if v.Filtering || v.FilterBar.Value() != "" {
		sb.WriteString(v.FilterBar.View())
		sb.WriteString("\n")
	}

	v.TrackList.Title = fmt.Sprintf("%d tracks", len(v.AllTracks))
	sb.WriteString(v.TrackList.View())

	sb.WriteString("\n\n")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if v.Filtering {
		sb.WriteString(helpStyle.Render("[Enter] Keep filter  [Esc] Clear"))
	} else {
		sb.WriteString(helpStyle.Render("[Enter] Play  [/] Filter  [b] Folders  [↑↓] Navigate"))
	}

	return v.BorderStyle.Width(max(v.Width-4, 20)).Render(sb.String())
}
