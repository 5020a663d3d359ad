package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jscyril/moz/internal/cache"
	"github.com/jscyril/moz/internal/config"
	"github.com/jscyril/moz/internal/filesystem"
	"github.com/jscyril/moz/internal/stream"
	"github.com/jscyril/moz/internal/where"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cachePathCmd)

	cacheCleanCmd.Flags().BoolP("all", "a", false, "Remove complete entries too")
}

// cacheCmd groups the cache maintenance commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the stream cache",
}

var cacheListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List cached streams, newest first",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := openIndex(config.Load())
		if err != nil {
			return err
		}
		entries, err := index.Entries()
		if err != nil {
			return err
		}
		printEntries(cmd, entries)
		return nil
	},
}

func printEntries(cmd *cobra.Command, entries []cache.Entry) {
	if len(entries) == 0 {
		cmd.Println("Cache is empty")
		return
	}

	faint := lipgloss.NewStyle().Faint(true)
	partial := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	width := lo.Max(lo.Map(entries, func(e cache.Entry, _ int) int { return len(e.ID) }))

	for _, e := range entries {
		state := e.State.String()
		if e.State != cache.Complete {
			state = partial.Render(state)
		}
		cmd.Printf("%-*s  %9s  %s  %s\n",
			width, e.ID,
			humanize.Bytes(uint64(e.Size)),
			faint.Render(humanize.Time(e.ModTime)),
			state,
		)
	}
	cmd.Println(faint.Render(fmt.Sprintf("%d entries, %s", len(entries), humanize.Bytes(uint64(cache.Size(entries))))))
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove partial downloads and leftover stream pipes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := openIndex(config.Load())
		if err != nil {
			return err
		}

		removed, cleanErr := index.Clean(lo.Must(cmd.Flags().GetBool("all")))
		fifos, fifoErr := removeOrphanFIFOs(filesystem.API().Fs, where.Temp())

		cmd.Printf("Removed %d cache entries and %d stream pipes\n", removed, fifos)
		return errors.Join(cleanErr, fifoErr)
	},
}

// removeOrphanFIFOs deletes stream pipes left behind by a crashed session.
// Pipes of a running session are removed too.
func removeOrphanFIFOs(fsys afero.Fs, dir string) (int, error) {
	matches, err := afero.Glob(fsys, stream.FIFOPath(dir, "*"))
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, m := range matches {
		if err := fsys.Remove(m); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(config.Load().Cache.Dir)
	},
}
