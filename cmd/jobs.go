package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var queueLimit int

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of a batch job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "get job")
		}
		if job == nil {
			return eris.Errorf("job not found: %s", args[0])
		}

		return printJSON(job)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <job-id>",
	Short: "Print the summary report for a completed job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Orch.GenerateSummaryReport(ctx, args[0])
		if err != nil {
			return err
		}

		return printJSON(report)
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List providers awaiting manual review, riskiest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		items, err := st.GetWorkflowQueue(ctx, queueLimit)
		if err != nil {
			return eris.Wrap(err, "get workflow queue")
		}

		return printJSON(items)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	queueCmd.Flags().IntVar(&queueLimit, "limit", 50, "max items to list")
	rootCmd.AddCommand(statusCmd, reportCmd, queueCmd)
}
