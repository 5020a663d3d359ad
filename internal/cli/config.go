package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/moz/internal/config"
	"github.com/jscyril/moz/internal/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
}

// configCmd prints the effective settings
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.Settings()

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(settings)
		}

		key := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
		faint := lipgloss.NewStyle().Faint(true)
		for _, k := range config.Keys() {
			cmd.Printf("%s = %v\n", key.Render(k), settings[k])
			cmd.Println(faint.Render("  " + config.Default[k].Description))
		}
		cmd.Println()
		cmd.Println(faint.Render("config file: " + where.ConfigFile()))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := where.ConfigFile()
		if err := config.SaveDefault(path); err != nil {
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%s already exists", path)
			}
			return err
		}
		cmd.Println("Wrote", path)
		return nil
	},
}
