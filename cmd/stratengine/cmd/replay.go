package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/config"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a candle CSV through the engine",
	Long: `Replay recorded candles against the configured strategies.

The candles file overrides whatever feed the config selects; everything
else (account, venue, journal, store) comes from the config. The run
ends when the file is exhausted.

Example:
  stratengine replay --config config.yaml --candles btc_1m.csv`,
	RunE: runReplay,
}

var (
	replayConfigPath  string
	replayCandlesPath string
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	replayCmd.Flags().StringVarP(&replayCandlesPath, "candles", "c", "", "path to candle CSV (required)")
	replayCmd.MarkFlagRequired("config")
	replayCmd.MarkFlagRequired("candles")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(replayConfigPath)
	if err != nil {
		return err
	}

	cfg.Feed = config.FeedConfig{Type: "csv", Path: replayCandlesPath}
	return serve(cfg)
}
