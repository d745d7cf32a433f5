package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write a default config file",
	Long: `Write a configuration file populated with defaults, as a starting
point for a real deployment.

Example:
  stratengine config --out config.yaml`,
	RunE: runConfig,
}

var configOutPath string

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVarP(&configOutPath, "out", "o", "config.yaml", "where to write the config")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.Default().SaveToFile(configOutPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", configOutPath)
	return nil
}
