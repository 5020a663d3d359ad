package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/moz/api"
)

// ProgressBar renders playback position. With an unknown total only the
// elapsed time is shown.
type ProgressBar struct {
	Width       int
	Current     time.Duration
	Total       time.Duration
	BarChar     string
	EmptyChar   string
	Style       lipgloss.Style
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{
		Width:       width,
		BarChar:     "#",
		EmptyChar:   "-",
		Style:       lipgloss.NewStyle(),
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// SetProgress copies the position out of a progress snapshot
func (p *ProgressBar) SetProgress(prog api.Progress) {
	p.Current = prog.Elapsed()
	p.Total = prog.Duration()
}

// Percent returns the completed fraction in [0, 1], 0 when the total is unknown
func (p ProgressBar) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(float64(p.Current)/float64(p.Total), 1)
}

// View renders the progress bar
func (p ProgressBar) View() string {
	if p.Total <= 0 {
		return p.Style.Render(FormatDuration(p.Current))
	}

	var sb strings.Builder
	percent := p.Percent()

	barWidth := max(p.Width-8, 10) // Leave room for the percentage
	filled := int(float64(barWidth) * percent)
	empty := barWidth - filled

	sb.WriteString("[")
	sb.WriteString(p.FilledStyle.Render(strings.Repeat(p.BarChar, filled)))
	sb.WriteString(p.EmptyStyle.Render(strings.Repeat(p.EmptyChar, empty)))
	sb.WriteString(fmt.Sprintf("] %d%%", int(percent*100)))
	sb.WriteString("\n")
	sb.WriteString(FormatDuration(p.Current))
	sb.WriteString(" / ")
	sb.WriteString(FormatDuration(p.Total))

	return p.Style.Render(sb.String())
}

// FormatDuration formats a duration as MM:SS, truncating partial seconds
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d", m, s)
}
