package components

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/moz/internal/audio"
	"github.com/jscyril/moz/internal/filesystem"
	"github.com/muesli/reflow/truncate"
)

// FileEntry represents a file or directory in the browser
type FileEntry struct {
	Name  string
	Path  string
	IsDir bool
}

// FileBrowser navigates directories so one can be picked as the music folder
type FileBrowser struct {
	Width       int
	Height      int
	CurrentPath string
	Entries     []FileEntry
	Selected    int
	Offset      int
	Err         error

	// Styles
	DirStyle      lipgloss.Style
	FileStyle     lipgloss.Style
	SelectedStyle lipgloss.Style
	PathStyle     lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewFileBrowser creates a new file browser starting at the given path
func NewFileBrowser(startPath string, width, height int) FileBrowser {
	fb := FileBrowser{
		Width:  width,
		Height: height,
		DirStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true),
		FileStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")),
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("255")).
			Bold(true),
		PathStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}

	if startPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			startPath = "/"
		} else {
			startPath = home
		}
	}

	fb.Navigate(startPath)
	return fb
}

// Navigate changes to the specified directory
func (fb *FileBrowser) Navigate(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	entries, err := filesystem.API().ReadDir(path)
	if err != nil {
		fb.Err = err
		return
	}

	fb.CurrentPath = path
	fb.Selected = 0
	fb.Offset = 0
	fb.Err = nil
	fb.Entries = make([]FileEntry, 0, len(entries)+1)

	if path != "/" {
		fb.Entries = append(fb.Entries, FileEntry{
			Name:  "..",
			Path:  filepath.Dir(path),
			IsDir: true,
		})
	}

	var dirs, files []FileEntry
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		fullPath := filepath.Join(path, entry.Name())
		switch {
		case entry.IsDir():
			dirs = append(dirs, FileEntry{Name: entry.Name(), Path: fullPath, IsDir: true})
		case audio.IsSupported(entry.Name()):
			files = append(files, FileEntry{Name: entry.Name(), Path: fullPath})
		}
	}

	byName := func(list []FileEntry) {
		sort.Slice(list, func(i, j int) bool {
			return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
		})
	}
	byName(dirs)
	byName(files)

	fb.Entries = append(fb.Entries, dirs...)
	fb.Entries = append(fb.Entries, files...)
}

// Update handles navigation keys. Selection keys are handled by the owning view.
func (fb FileBrowser) Update(msg tea.Msg) (FileBrowser, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		n := len(fb.Entries)
		if n == 0 {
			return fb, nil
		}
		switch msg.String() {
		case "up", "k":
			fb.Selected = (fb.Selected - 1 + n) % n
		case "down", "j":
			fb.Selected = (fb.Selected + 1) % n
		case "pgup":
			fb.Selected = max(fb.Selected-fb.visibleHeight(), 0)
		case "pgdown":
			fb.Selected = min(fb.Selected+fb.visibleHeight(), n-1)
		case "home":
			fb.Selected = 0
		case "end":
			fb.Selected = n - 1
		case "backspace", "left", "h":
			if fb.CurrentPath != "/" {
				fb.Navigate(filepath.Dir(fb.CurrentPath))
			}
		case "~":
			if home, err := os.UserHomeDir(); err == nil {
				fb.Navigate(home)
			}
		}
		fb.ensureVisible()
	}
	return fb, nil
}

// SelectedEntry returns the currently selected entry, or nil if none
func (fb *FileBrowser) SelectedEntry() *FileEntry {
	if fb.Selected >= 0 && fb.Selected < len(fb.Entries) {
		return &fb.Entries[fb.Selected]
	}
	return nil
}

// EnterSelected descends into the highlighted directory
func (fb *FileBrowser) EnterSelected() {
	if entry := fb.SelectedEntry(); entry != nil && entry.IsDir {
		fb.Navigate(entry.Path)
	}
}

// SelectedDir returns the highlighted directory, or the current one when a
// file is highlighted
func (fb *FileBrowser) SelectedDir() string {
	if entry := fb.SelectedEntry(); entry != nil && entry.IsDir {
		return entry.Path
	}
	return fb.CurrentPath
}

// AudioFiles counts the playable files in the current directory
func (fb *FileBrowser) AudioFiles() int {
	count := 0
	for _, e := range fb.Entries {
		if !e.IsDir {
			count++
		}
	}
	return count
}

// visibleHeight returns the number of visible items
func (fb *FileBrowser) visibleHeight() int {
	h := fb.Height - 8 // Account for border, path, help
	if h < 1 {
		return 1
	}
	return h
}

// ensureVisible ensures the selected item is visible
func (fb *FileBrowser) ensureVisible() {
	visible := fb.visibleHeight()
	if fb.Selected < fb.Offset {
		fb.Offset = fb.Selected
	} else if fb.Selected >= fb.Offset+visible {
		fb.Offset = fb.Selected - visible + 1
	}
}

// View renders the file browser
func (fb FileBrowser) View() string {
	var sb strings.Builder
	maxWidth := uint(max(fb.Width-10, 10))

	sb.WriteString(fb.PathStyle.Render(truncate.StringWithTail(fb.CurrentPath, maxWidth, "...")))
	sb.WriteString("\n\n")

	if fb.Err != nil {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		sb.WriteString(errorStyle.Render("Error: " + fb.Err.Error()))
		sb.WriteString("\n")
	}

	visible := fb.visibleHeight()
	end := min(fb.Offset+visible, len(fb.Entries))

	for i := fb.Offset; i < end; i++ {
		entry := fb.Entries[i]

		line := "  " + entry.Name
		if entry.IsDir {
			line = "▸ " + entry.Name + "/"
		}
		line = truncate.StringWithTail(line, maxWidth, "...")

		switch {
		case i == fb.Selected:
			sb.WriteString(fb.SelectedStyle.Render(line))
		case entry.IsDir:
			sb.WriteString(fb.DirStyle.Render(line))
		default:
			sb.WriteString(fb.FileStyle.Render(line))
		}
		sb.WriteString("\n")
	}

	for i := end - fb.Offset; i < visible; i++ {
		sb.WriteString("\n")
	}

	countStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sb.WriteString(countStyle.Render(fmt.Sprintf("%s\nAudio files here: %d", strings.Repeat("─", 20), fb.AudioFiles())))

	sb.WriteString("\n\n")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sb.WriteString(helpStyle.Render("[Enter] Open  [s] Select folder  [Backspace] Up  [~] Home  [Esc] Back"))

	return fb.BorderStyle.Width(max(fb.Width-4, 20)).Render(sb.String())
}
