package cli

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	playerrors "github.com/jscyril/moz/pkg/errors"
	"github.com/samber/lo"
)

var lookPath = exec.LookPath

// CheckDependencies verifies that the programs used for online playback are in PATH
func CheckDependencies(programs ...string) error {
	missing := lo.Filter(programs, func(p string, _ int) bool {
		_, err := lookPath(p)
		return err != nil
	})
	if len(missing) == 0 {
		return nil
	}

	for _, dep := range missing {
		printMissingDependency(dep)
	}
	return fmt.Errorf("%w: %v", playerrors.ErrDependencyMissing, missing)
}

func installHint(dep string) string {
	switch runtime.GOOS {
	case "darwin":
		return "brew install " + dep
	case "linux":
		if dep == "yt-dlp" {
			return "pipx install yt-dlp"
		}
		return "sudo apt install " + dep
	case "windows":
		return "scoop install " + dep
	}
	return ""
}

func printMissingDependency(dep string) {
	red := lipgloss.Color("196")
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(red).
		Padding(1, 2).
		Margin(1, 0)

	title := lipgloss.NewStyle().Bold(true).Foreground(red).Render("Error: Missing Dependency")
	body := fmt.Sprintf("The required program '%s' was not found in your PATH.", dep)

	suggestion := ""
	if cmd := installHint(dep); cmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s",
			lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true).Render(cmd))
	}

	fmt.Println(box.Render(lipgloss.JoinVertical(lipgloss.Left, title, "\n", body, suggestion)))
}
