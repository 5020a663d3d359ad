package cli

import (
	"runtime"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X github.com/jscyril/moz/internal/cli.Version=..."
var (
	Version  = "0.1.0"
	Revision = "unknown"
	BuiltAt  = "unknown"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "Print only the version")
}

// versionCmd prints version and build metadata
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build metadata",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(Version)
			return
		}

		info := struct {
			Version  string
			Revision string
			BuiltAt  string
			OS       string
			Arch     string
		}{
			Version:  Version,
			Revision: Revision,
			BuiltAt:  strings.TrimSpace(BuiltAt),
			OS:       runtime.GOOS,
			Arch:     runtime.GOARCH,
		}

		style := func(s lipgloss.Style) func(string) string {
			return func(v string) string { return s.Render(v) }
		}
		t := template.Must(template.New("version").Funcs(map[string]any{
			"faint":   style(lipgloss.NewStyle().Faint(true)),
			"bold":    style(lipgloss.NewStyle().Bold(true)),
			"magenta": style(lipgloss.NewStyle().Foreground(lipgloss.Color("212"))),
		}).Parse(`{{ magenta "▇▇▇" }} {{ magenta "moz" }}

  {{ faint "Version" }}     {{ bold .Version }}
  {{ faint "Git Commit" }}  {{ bold .Revision }}
  {{ faint "Build Date" }}  {{ bold .BuiltAt }}
  {{ faint "Platform" }}    {{ bold .OS }}/{{ bold .Arch }}
`))
		lo.Must0(t.Execute(cmd.OutOrStdout(), info))
	},
}
