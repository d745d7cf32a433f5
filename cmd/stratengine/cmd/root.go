package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stratengine",
	Short: "Condition-driven strategy evaluation and execution engine",
	Long: `Stratengine evaluates indicator conditions ("RSI < 30",
"EMA_12 crosses above EMA_26") against a live or replayed candle stream,
sizes entries under per-strategy risk limits, and routes orders through a
paper trading venue.

It provides tools for:
  - Running the engine against the Binance kline stream
  - Replaying recorded candles for strategy backtests
  - Journaling trades and equity curves to SQLite or CSV
  - Prometheus metrics for ticks, orders and rejections`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
