package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-health/provider-qa/internal/loader"
	"github.com/meridian-health/provider-qa/internal/model"
	"github.com/meridian-health/provider-qa/internal/store"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk load a provider roster into the store without running QA",
	Long:  "Loads a CSV or XLSX roster as pending rows. On postgres this uses the COPY-based bulk upsert; a later batch run scores the records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		providers, err := loader.Load(importFile)
		if err != nil {
			return eris.Wrapf(err, "load roster %s", importFile)
		}
		if len(providers) == 0 {
			zap.L().Info("no provider rows found", zap.String("file", importFile))
			return nil
		}

		now := time.Now().UTC()
		rows := make([]model.ProviderRow, 0, len(providers))
		for _, p := range providers {
			p.EnsureID()
			rows = append(rows, model.ProviderRow{
				Record:    p,
				Status:    model.OutcomePending,
				UpdatedAt: now,
			})
		}

		n, err := store.ImportProviders(ctx, st, rows)
		if err != nil {
			return eris.Wrap(err, "import providers")
		}

		zap.L().Info("roster imported",
			zap.String("file", importFile),
			zap.Int64("rows", n),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "provider roster file, .csv or .xlsx (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
