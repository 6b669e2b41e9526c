package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/adax/internal/config"
	"github.com/muurk/adax/internal/ui"
)

var (
	forceInit bool
	aliasIcon string
)

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configAliasCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Manage the adax configuration file.

The file lives at $XDG_CONFIG_HOME/adax/config.yaml (~/.config/adax/config.yaml
by default). It never contains the account password.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init <account-id>",
	Short: "Create a default configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.CreateDefaultConfig(args[0], forceInit)
		if err != nil {
			return err
		}
		newPrinter().PrintSuccess("Configuration created", map[string]string{
			"Path":    path,
			"Account": args[0],
		})
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing configuration file")
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if format == ui.FormatJSON {
			return newPrinter().PrintJSON(registry)
		}

		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(registry)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Printf("# %s\n%s", path, data)
		return nil
	},
}

var configAliasCmd = &cobra.Command{
	Use:   "alias <room-id> <alias>",
	Short: "Give a room a short name for the command line",
	Example: `  adax config alias 196342 living --icon 🛋
  adax set living 21`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid room id %q", args[0])
		}

		registry.SetRoomAlias(id, args[1], aliasIcon)
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		newPrinter().PrintSuccess("Alias saved", map[string]string{
			"Room":  args[0],
			"Alias": registry.RoomLabel(id, args[1]),
		})
		return nil
	},
}

func init() {
	configAliasCmd.Flags().StringVar(&aliasIcon, "icon", "", "Optional icon shown next to the room")
}
