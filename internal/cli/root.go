// Package cli implements the moz command line.
package cli

import (
	"os"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/jscyril/moz/internal/config"
	"github.com/jscyril/moz/internal/log"
	"github.com/jscyril/moz/internal/ui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("backend", "b", "", "Audio output: speaker (16-bit), oto (float32) or null")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"speaker", "oto", "null"}, cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(viper.BindPFlag(config.AudioBackend, rootCmd.PersistentFlags().Lookup("backend")))

	rootCmd.PersistentFlags().String("cache-dir", "", "Directory holding cached streams")
	lo.Must0(viper.BindPFlag(config.CacheDir, rootCmd.PersistentFlags().Lookup("cache-dir")))

	rootCmd.PersistentFlags().Int("preroll", 0, "Milliseconds to buffer a stream before playback starts")
	lo.Must0(viper.BindPFlag(config.StreamPrerollMs, rootCmd.PersistentFlags().Lookup("preroll")))
}

// rootCmd opens the mode selector
var rootCmd = &cobra.Command{
	Use:           "moz",
	Short:         "A terminal music player for local files and YouTube streams",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("version")) {
			versionCmd.Run(versionCmd, args)
			return nil
		}

		cfg := config.Load()
		return launch(cfg, ui.Options{
			Screen: ui.ScreenMenu,
			Dir:    cfg.Library.Dir,
		})
	},
}

// Execute runs the command named on the command line
func Execute() error {
	cc.Init(&cc.Config{
		RootCmd:       rootCmd,
		Headings:      cc.HiCyan + cc.Bold + cc.Underline,
		Commands:      cc.HiYellow + cc.Bold,
		Example:       cc.Italic,
		ExecName:      cc.Bold,
		Flags:         cc.Bold,
		FlagsDataType: cc.Italic + cc.HiBlue,
	})

	err := rootCmd.Execute()
	if err != nil {
		log.Error(err)
	}
	return err
}
