package views

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jscyril/moz/api"
)

// Mode is one of the two ways of finding something to play
type Mode int

const (
	ModeOffline Mode = iota
	ModeOnline
)

func (m Mode) String() string {
	if m == ModeOnline {
		return "Online (YouTube)"
	}
	return "Offline Library"
}

// ModeChosenMsg is sent when a mode is picked from the menu
type ModeChosenMsg struct {
	Mode Mode
}

// DirSelectedMsg is sent when a music folder is picked in the browser
type DirSelectedMsg struct {
	Path string
}

// PlayRequestMsg asks the app to start a source. Track is set for local files.
type PlayRequestMsg struct {
	Source api.Source
	Track  *api.Track
}

// SearchRequestMsg asks the app to run an online search
type SearchRequestMsg struct {
	Query string
}

// BackMsg returns to the previous screen
type BackMsg struct{}

func send(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
