package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yucheng-lin/twscan/internal/external/isin"
	"github.com/yucheng-lin/twscan/internal/universe"
	"github.com/yucheng-lin/twscan/pkg/config"
	"github.com/yucheng-lin/twscan/pkg/httputil"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Print the resolved scan universe",
	Long: `Resolves the configured watch directive and prints the
instrument list without scanning anything.

Example:
  go run ./cmd/twscan universe
  WATCHLIST=2330,2317 go run ./cmd/twscan universe`,
	RunE: runUniverse,
}

func init() {
	rootCmd.AddCommand(universeCmd)
}

func runUniverse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	isinHTTP := httputil.New(log, 30*time.Second)
	if !cfg.Universe.TLSVerify {
		isinHTTP = isinHTTP.WithInsecureTLS()
	}
	registry := isin.NewClient(isinHTTP, log)
	resolver := universe.NewResolver(registry, cfg.Universe, log)

	result, err := resolver.Resolve(context.Background(), cfg.Universe.Directive)
	if err != nil {
		return fmt.Errorf("resolve universe: %w", err)
	}

	if result.Fallback {
		fmt.Println("warning: universe resolution failed, safety list used")
	}
	for _, inst := range result.Instruments {
		fmt.Printf("%-8s %-6s %s\n", inst.Code, inst.Segment.Label(), inst.Name)
	}
	fmt.Printf("\n%d instruments\n", len(result.Instruments))
	return nil
}
