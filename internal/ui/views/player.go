package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jscyril/moz/api"
	"github.com/jscyril/moz/internal/art"
	"github.com/jscyril/moz/internal/ui/components"
	"github.com/muesli/reflow/truncate"
)

// PlayerView is the now-playing panel
type PlayerView struct {
	Width       int
	Height      int
	Progress    api.Progress
	Track       *api.Track
	Art         []string
	Cached      int64
	Buffering   bool
	Pending     api.Source
	Spinner     spinner.Model
	ProgressBar components.ProgressBar

	// Styles
	TitleStyle    lipgloss.Style
	ArtistStyle   lipgloss.Style
	AlbumStyle    lipgloss.Style
	StatusStyle   lipgloss.Style
	ControlsStyle lipgloss.Style
	ArtStyle      lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewPlayerView creates a new player view
func NewPlayerView(width, height int) PlayerView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	return PlayerView{
		Width:       width,
		Height:      height,
		Art:         art.Placeholder(),
		Spinner:     s,
		ProgressBar: components.NewProgressBar(art.Width),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		ArtistStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		AlbumStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		ControlsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		ArtStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
	}
}

// SetProgress updates the playback snapshot and cache size
func (v *PlayerView) SetProgress(p api.Progress, cached int64) {
	v.Progress = p
	v.Cached = cached
	v.ProgressBar.SetProgress(p)
}

// StartBuffering shows the spinner for src until playback starts
func (v *PlayerView) StartBuffering(src api.Source) tea.Cmd {
	v.Buffering = true
	v.Pending = src
	return v.Spinner.Tick
}

// StopBuffering hides the spinner
func (v *PlayerView) StopBuffering() {
	v.Buffering = false
	v.Pending = api.Source{}
}

// SetTrack sets the tags shown for local sources; nil for remote ones
func (v *PlayerView) SetTrack(track *api.Track) {
	v.Track = track
}

// SetArt replaces the thumbnail
func (v *PlayerView) SetArt(lines []string) {
	if len(lines) == 0 {
		lines = art.Placeholder()
	}
	v.Art = lines
}

// Update advances the spinner while buffering
func (v PlayerView) Update(msg tea.Msg) (PlayerView, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); ok && v.Buffering {
		var cmd tea.Cmd
		v.Spinner, cmd = v.Spinner.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v PlayerView) statusLine() string {
	switch v.Progress.Status {
	case api.StatusPlaying:
		return "▶ PLAYING"
	case api.StatusPaused:
		return "⏸ PAUSED"
	case api.StatusStopping:
		return "■ STOPPING"
	}
	if v.Progress.Current > 0 {
		return "■ FINISHED"
	}
	return "■ STOPPED"
}

// View renders the player view
func (v PlayerView) View() string {
	var sb strings.Builder
	width := uint(max(v.Width-6, art.Width))

	sb.WriteString(v.TitleStyle.Render("Now Playing:"))
	sb.WriteString("\n")

	src := v.Progress.Source
	switch {
	case v.Buffering:
		sb.WriteString(v.Spinner.View())
		sb.WriteString(truncate.StringWithTail("Buffering "+v.Pending.Name(), width-2, "..."))
		sb.WriteString("\n\n\n")
	case src.Kind == api.SourceLocal && src.Path == "":
		sb.WriteString("No song playing.\n")
		sb.WriteString(v.ControlsStyle.Render("Press Enter to play the selected item."))
		sb.WriteString("\n\n")
	case v.Track != nil && !src.IsRemote():
		sb.WriteString(truncate.StringWithTail("Title: "+v.Track.Title, width, "..."))
		sb.WriteString("\n")
		sb.WriteString(v.ArtistStyle.Render(truncate.StringWithTail("Artist: "+v.Track.Artist, width, "...")))
		sb.WriteString("\n")
		sb.WriteString(v.AlbumStyle.Render(truncate.StringWithTail("Album: "+v.Track.Album, width, "...")))
		sb.WriteString("\n")
	default:
		sb.WriteString(truncate.StringWithTail(src.Name(), width, "..."))
		sb.WriteString("\n")
		if src.IsRemote() {
			sb.WriteString(v.AlbumStyle.Render("youtube " + src.ID))
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString("\n")
	sb.WriteString(v.ArtStyle.Render(strings.Join(v.Art, "\n")))
	sb.WriteString("\n\n")

	if !v.Buffering && src.Name() != "" {
		sb.WriteString(v.StatusStyle.Render(v.statusLine()))
		sb.WriteString("\n")
		sb.WriteString(v.ProgressBar.View())
		sb.WriteString("\n")
		if v.Progress.Streaming || v.Cached > 0 {
			sb.WriteString(fmt.Sprintf("Cached: %s", humanize.Bytes(uint64(v.Cached))))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(v.ControlsStyle.Render("[Space] Pause  [x] Stop  [q] Quit"))

	return v.BorderStyle.Width(max(v.Width-2, art.Width+4)).Render(sb.String())
}
