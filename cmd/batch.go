package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-health/provider-qa/internal/loader"
)

var (
	batchFile  string
	batchJobID string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the QA pipeline over a provider roster file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		providers, err := loader.Load(batchFile)
		if err != nil {
			return eris.Wrapf(err, "load roster %s", batchFile)
		}
		if len(providers) == 0 {
			zap.L().Info("no provider rows found", zap.String("file", batchFile))
			return nil
		}

		result, err := env.Orch.ProcessBatch(ctx, providers, batchJobID)
		if err != nil {
			return eris.Wrap(err, "process batch")
		}

		zap.L().Info("batch finished",
			zap.String("job_id", result.JobID),
			zap.Int("total", result.Total),
			zap.Int("auto_resolved", result.AutoResolved),
			zap.Int("manual_review", result.ManualReview),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "provider roster file, .csv or .xlsx (required)")
	batchCmd.Flags().StringVar(&batchJobID, "job-id", "", "job id (generated when empty)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
