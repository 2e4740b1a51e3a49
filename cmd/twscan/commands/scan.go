package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/pkg/config"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan cycle now",
	Long: `Runs a single scan cycle immediately, bypassing the trading
calendar, and prints the rendered report pages.

Pages are printed to stdout only; pass --push to also deliver them
over LINE (requires LINE_ENABLED and a channel token).

Example:
  go run ./cmd/twscan scan
  go run ./cmd/twscan scan --profile premarket
  go run ./cmd/twscan scan --push`,
	RunE: runScan,
}

var (
	scanProfile string
	scanPush    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanProfile, "profile", "", "profile override (premarket|live)")
	scanCmd.Flags().BoolVar(&scanPush, "push", false, "also push the report over LINE")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !scanPush {
		cfg.Line.Enabled = false
	}

	log := logger.New(cfg)

	pipeline, st, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := pipeline.RunCycle(context.Background(), scanProfile, true)
	if err != nil {
		return fmt.Errorf("scan cycle: %w", err)
	}

	printCycleResult(result)
	return nil
}

func printCycleResult(result *contracts.CycleResult) {
	fmt.Printf("profile=%s outcome=%s universe=%d picks=%d duration=%s\n",
		result.Profile, result.Outcome, result.UniverseSize, len(result.Picks), result.Duration.Round(time.Millisecond))
	if result.Fallback {
		fmt.Println("warning: universe resolution failed, safety list used")
	}
	if result.Truncated > 0 {
		fmt.Printf("warning: %d instruments skipped at the cycle deadline\n", result.Truncated)
	}
	if result.Report == nil {
		return
	}
	for i, page := range result.Report.Pages {
		fmt.Printf("\n--- page %d/%d ---\n%s\n", i+1, len(result.Report.Pages), page)
	}
}
