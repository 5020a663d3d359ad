package cli

import (
	"strings"

	"github.com/jscyril/moz/internal/config"
	"github.com/jscyril/moz/internal/ui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(offlineCmd)
	rootCmd.AddCommand(onlineCmd)
}

// offlineCmd opens the folder browser, or the tracks of DIR when given
var offlineCmd = &cobra.Command{
	Use:     "offline [DIR]",
	Short:   "Browse and play local MP3, WAV and FLAC files",
	Aliases: []string{"local"},
	Args:    cobra.MaximumNArgs(1),
	Example: "  moz offline ~/Music",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		opts := ui.Options{Screen: ui.ScreenOffline, Dir: cfg.Library.Dir}
		if len(args) == 1 {
			opts.Dir = config.ExpandHome(args[0])
			opts.Autoload = true
		}
		return launch(cfg, opts)
	},
}

// onlineCmd opens the search screen, running QUERY right away when given
var onlineCmd = &cobra.Command{
	Use:     "online [QUERY]",
	Short:   "Search YouTube and stream the audio, caching it for next time",
	Aliases: []string{"yt"},
	Example: "  moz online lofi hip hop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := CheckDependencies(cfg.Stream.Fetcher, cfg.Stream.Transcoder, "tee"); err != nil {
			return err
		}
		return launch(cfg, ui.Options{
			Screen: ui.ScreenOnline,
			Dir:    cfg.Library.Dir,
			Query:  strings.TrimSpace(strings.Join(args, " ")),
		})
	},
}
