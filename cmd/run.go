package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-health/provider-qa/internal/model"
)

var runProvider model.ProviderRecord

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the QA pipeline for a single provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Orch.ProcessBatch(ctx, []model.ProviderRecord{runProvider}, "")
		if err != nil {
			return eris.Wrap(err, "process provider")
		}

		outcome := result.Providers[0]
		zap.L().Info("provider processed",
			zap.String("provider_id", outcome.ProviderID),
			zap.String("action", string(outcome.Status)),
			zap.Int("confidence", outcome.Confidence),
			zap.Int("risk", outcome.Risk),
		)

		return printJSON(outcome)
	},
}

func init() {
	runCmd.Flags().StringVar(&runProvider.Name, "name", "", "provider name (required)")
	runCmd.Flags().StringVar(&runProvider.NPI, "npi", "", "NPI number")
	runCmd.Flags().StringVar(&runProvider.Phone, "phone", "", "phone number")
	runCmd.Flags().StringVar(&runProvider.Address, "address", "", "practice address")
	runCmd.Flags().StringVar(&runProvider.Specialty, "specialty", "", "specialty")
	runCmd.Flags().StringVar(&runProvider.State, "state", "", "license state")
	runCmd.Flags().StringVar(&runProvider.Email, "email", "", "contact email")
	_ = runCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(runCmd)
}
