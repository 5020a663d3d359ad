package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/moz/api"
	"github.com/jscyril/moz/internal/art"
	"github.com/jscyril/moz/internal/log"
	"github.com/jscyril/moz/internal/stream"
	"github.com/jscyril/moz/internal/ui/views"
)

// Player is the playback surface the UI drives
type Player interface {
	api.Player
	CachedBytes() int64
	Streaming() bool
}

// Searcher finds remote sources
type Searcher interface {
	Search(ctx context.Context, query string) ([]stream.Result, error)
}

// Catalog holds the tracks of the selected offline folder
type Catalog interface {
	Load(ctx context.Context, dir string) error
	GetAllTracks() []*api.Track
	Search(query string) []*api.Track
	ReadCoverArt(track *api.Track) ([]byte, error)
	Next(id string) *api.Track
	Errors() []error
}

// Screen is the active top level view
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenOffline
	ScreenOnline
)

// Options wires the model to its collaborators
type Options struct {
	Player   Player
	Library  Catalog
	Searcher Searcher

	// Screen is shown first. Dir is where the folder browser starts; with
	// Autoload it is read right away. Query runs a search on start.
	Screen   Screen
	Dir      string
	Autoload bool
	Query    string

	// Tick is the progress refresh interval, 0 disables it
	Tick time.Duration
}

type tickMsg time.Time

type playedMsg struct {
	seq   int
	src   api.Source
	track *api.Track
	err   error
}

type stoppedMsg struct {
	err error
}

type searchedMsg struct {
	query   string
	results []stream.Result
	err     error
}

type loadedMsg struct {
	dir string
	err error
}

type artMsg struct {
	seq   int
	lines []string
}

type eventMsg api.AudioEvent

// Model is the main bubbletea model
type Model struct {
	opts Options

	// Dimensions
	width  int
	height int

	screen Screen

	// Views
	menuView    views.MenuView
	libraryView views.LibraryView
	onlineView  views.OnlineView
	playerView  views.PlayerView

	// State
	ctx        context.Context
	cancel     context.CancelFunc
	playCancel context.CancelFunc
	events     <-chan api.AudioEvent
	seq        int
	current    *api.Track
	startCmds  []tea.Cmd
	err        error
	notice     string

	// Styles
	headerStyle lipgloss.Style
	tabStyle    lipgloss.Style
	activeStyle lipgloss.Style
	errStyle    lipgloss.Style
	noticeStyle lipgloss.Style
	helpStyle   lipgloss.Style
}

// NewModel creates a new application model
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		opts:   opts,
		width:  80,
		height: 24,
		screen: opts.Screen,
		ctx:    ctx,
		cancel: cancel,
		events: opts.Player.Subscribe(),
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginRight(2),
		tabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("240")),
		activeStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")),
		errStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		noticeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}

	m.menuView = views.NewMenuView(m.width, m.height-4)
	if opts.Screen == ScreenOnline {
		m.menuView.Selected = 1
	}
	m.libraryView = views.NewLibraryView(opts.Dir, m.width, m.height-4)
	if opts.Library != nil {
		m.libraryView.Search = opts.Library.Search
	}
	m.playerView = views.NewPlayerView(m.width, m.height-4)

	var focus tea.Cmd
	m.onlineView, focus = views.NewOnlineView(m.width, m.height-4)

	switch opts.Screen {
	case ScreenOnline:
		m.startCmds = append(m.startCmds, focus)
		if opts.Query != "" {
			m.onlineView.SearchBar.SetValue(opts.Query)
			m.startCmds = append(m.startCmds, send(views.SearchRequestMsg{Query: opts.Query}))
		}
	case ScreenOffline:
		if opts.Autoload && opts.Dir != "" {
			m.startCmds = append(m.startCmds, send(views.DirSelectedMsg{Path: opts.Dir}))
		}
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := append([]tea.Cmd{m.listen(), m.tick()}, m.startCmds...)
	return tea.Batch(cmds...)
}

func send(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m Model) tick() tea.Cmd {
	if m.opts.Tick <= 0 {
		return nil
	}
	return tea.Tick(m.opts.Tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listen waits for the next engine event; it returns nil once unsubscribed
func (m Model) listen() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewSizes()
		return m, nil

	case tickMsg:
		m.refresh()
		return m, m.tick()

	case eventMsg:
		m.refresh()
		if msg.Type == api.EventError && msg.Err != nil {
			m.err = msg.Err
		}
		return m, m.listen()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.playerView, cmd = m.playerView.Update(msg)
		return m, cmd

	case views.ModeChosenMsg:
		m.err = nil
		if msg.Mode == views.ModeOnline {
			m.screen = ScreenOnline
			return m, m.onlineView.SearchBar.Focus()
		}
		m.screen = ScreenOffline
		return m, nil

	case views.BackMsg:
		m.screen = ScreenMenu
		return m, nil

	case views.DirSelectedMsg:
		return m, m.load(msg.Path)

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.libraryView.Browsing = true
			m.libraryView.Loading = false
			return m, nil
		}
		m.libraryView.SetTracks(msg.dir, m.opts.Library.GetAllTracks())
		if errs := m.opts.Library.Errors(); len(errs) > 0 {
			m.notice = fmt.Sprintf("%d files could not be read", len(errs))
		}
		return m, nil

	case views.SearchRequestMsg:
		return m, m.search(msg.Query)

	case searchedMsg:
		if msg.query != m.onlineView.Query {
			return m, nil
		}
		m.onlineView.SetResults(msg.results, msg.err)
		return m, nil

	case views.PlayRequestMsg:
		return m, m.play(msg.Source, msg.Track)

	case playedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.playerView.StopBuffering()
		if msg.err != nil {
			if !errors.Is(msg.err, context.Canceled) {
				m.err = msg.err
			}
			return m, nil
		}
		m.current = msg.track
		m.playerView.SetTrack(msg.track)
		if msg.track != nil {
			m.libraryView.SetPlaying(msg.track.FilePath)
		}
		m.refresh()
		return m, nil

	case artMsg:
		if msg.seq == m.seq {
			m.playerView.SetArt(msg.lines)
		}
		return m, nil

	case stoppedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.forward(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, m.quit()
	}
	if m.capturing() {
		return m.forward(msg)
	}

	if msg.String() == "q" {
		return m, m.quit()
	}
	if m.screen == ScreenMenu {
		return m.forward(msg)
	}

	switch msg.String() {
	case " ":
		if err := m.opts.Player.PauseToggle(); err != nil {
			m.err = err
		}
		m.refresh()
		return m, nil
	case "x":
		return m, m.stop()
	case "n":
		if m.screen == ScreenOffline && m.current != nil && m.opts.Library != nil {
			if next := m.opts.Library.Next(m.current.ID); next != nil {
				return m, m.play(next.Source(), next)
			}
		}
		return m, nil
	}
	return m.forward(msg)
}

// forward passes a message to the active screen
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case ScreenMenu:
		m.menuView, cmd = m.menuView.Update(msg)
	case ScreenOffline:
		m.libraryView, cmd = m.libraryView.Update(msg)
	case ScreenOnline:
		m.onlineView, cmd = m.onlineView.Update(msg)
	}
	return m, cmd
}

func (m Model) capturing() bool {
	switch m.screen {
	case ScreenOffline:
		return m.libraryView.Capturing()
	case ScreenOnline:
		return m.onlineView.Capturing()
	}
	return false
}

func (m *Model) refresh() {
	p := m.opts.Player.Progress()
	p.Streaming = p.Streaming || m.opts.Player.Streaming()
	m.playerView.SetProgress(p, m.opts.Player.CachedBytes())
}

// play cancels any pending start and asks the player for src in the background
func (m *Model) play(src api.Source, track *api.Track) tea.Cmd {
	if m.playCancel != nil {
		m.playCancel()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.playCancel = cancel
	m.seq++
	m.err = nil
	m.notice = ""

	seq := m.seq
	player := m.opts.Player
	log.Infof("play %s", src.Name())

	start := func() tea.Msg {
		return playedMsg{seq: seq, src: src, track: track, err: player.Play(ctx, src)}
	}
	return tea.Batch(m.playerView.StartBuffering(src), start, m.loadArt(seq, src, track))
}

func (m *Model) loadArt(seq int, src api.Source, track *api.Track) tea.Cmd {
	lib := m.opts.Library
	return func() tea.Msg {
		if src.IsRemote() || track == nil || lib == nil {
			return artMsg{seq: seq, lines: art.Placeholder()}
		}
		data, err := lib.ReadCoverArt(track)
		if err != nil {
			log.Warnf("cover art %s: %v", track.FilePath, err)
		}
		lines, err := art.Render(data)
		if err != nil {
			log.Warnf("render art %s: %v", track.FilePath, err)
		}
		return artMsg{seq: seq, lines: lines}
	}
}

func (m *Model) stop() tea.Cmd {
	if m.playCancel != nil {
		m.playCancel()
		m.playCancel = nil
	}
	m.seq++
	m.playerView.StopBuffering()
	player := m.opts.Player
	return func() tea.Msg {
		return stoppedMsg{err: player.Stop()}
	}
}

func (m *Model) load(dir string) tea.Cmd {
	m.libraryView.SetLoading(dir)
	m.err = nil
	m.notice = ""
	lib := m.opts.Library
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{dir: dir, err: lib.Load(ctx, dir)}
	}
}

func (m *Model) search(query string) tea.Cmd {
	m.onlineView.StartSearch(query)
	m.err = nil
	s := m.opts.Searcher
	ctx := m.ctx
	return func() tea.Msg {
		results, err := s.Search(ctx, query)
		return searchedMsg{query: query, results: results, err: err}
	}
}

// quit stops playback before the program exits
func (m *Model) quit() tea.Cmd {
	if m.playCancel != nil {
		m.playCancel()
	}
	m.cancel()
	if err := m.opts.Player.Stop(); err != nil {
		log.Errorf("stop on quit: %v", err)
	}
	m.opts.Player.Unsubscribe(m.events)
	return tea.Quit
}

// updateViewSizes updates view dimensions
func (m *Model) updateViewSizes() {
	body := m.height - 4
	m.menuView.Width, m.menuView.Height = m.width, body

	side := m.width
	if m.split() {
		side = m.width / 2
	}
	m.libraryView.SetSize(side, body)
	m.onlineView.SetSize(side, body)
	m.playerView.Width, m.playerView.Height = side, body
}

// split reports whether the browser and the player fit side by side
func (m Model) split() bool {
	return m.width >= 2*(art.Width+6)
}

// View renders the UI
func (m Model) View() string {
	var sb string

	sb += m.renderTabs()
	sb += "\n"

	switch m.screen {
	case ScreenMenu:
		sb += m.menuView.View()
	default:
		var browser string
		if m.screen == ScreenOnline {
			browser = m.onlineView.View()
		} else {
			browser = m.libraryView.View()
		}
		if m.split() {
			sb += lipgloss.JoinHorizontal(lipgloss.Top, browser, m.playerView.View())
		} else {
			sb += lipgloss.JoinVertical(lipgloss.Left, m.playerView.View(), browser)
		}
	}

	if m.err != nil {
		sb += "\n" + m.errStyle.Render(fmt.Sprintf("Error: %v", m.err))
	} else if m.notice != "" {
		sb += "\n" + m.noticeStyle.Render(m.notice)
	}

	sb += "\n" + m.helpStyle.Render(m.help())
	return sb
}

func (m Model) help() string {
	if m.screen == ScreenMenu {
		return "[↑↓] Choose  [Enter] Select  [q] Quit"
	}
	return "[Space] Pause  [x] Stop  [n] Next  [Esc] Back  [q] Quit"
}

// renderTabs renders the header with the active mode highlighted
func (m Model) renderTabs() string {
	rendered := []string{m.headerStyle.Render("moz")}
	for _, mode := range []views.Mode{views.ModeOffline, views.ModeOnline} {
		active := (mode == views.ModeOffline && m.screen == ScreenOffline) ||
			(mode == views.ModeOnline && m.screen == ScreenOnline)
		if active {
			rendered = append(rendered, m.activeStyle.Render(mode.String()))
		} else {
			rendered = append(rendered, m.tabStyle.Render(mode.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// Run starts the bubbletea program. Cancelling ctx ends it like a quit.
func Run(ctx context.Context, opts Options) error {
	model := NewModel(opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
