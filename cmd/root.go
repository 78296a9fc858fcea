package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-health/provider-qa/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "provider-qa",
	Short: "Provider directory QA pipeline",
	Long:  "Validates provider records against the NPI registry and address services, scores data quality, applies rule-based corrections, and routes low-confidence records to manual review.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
