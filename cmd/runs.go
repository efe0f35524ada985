package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded bulk generation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStoreOnly(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.EventRepo().QueryGenerationRuns(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query runs: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No generation runs recorded.")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-19s  %-4s  %5s  %4s  %4s  %6s  %6s  %8s\n",
			"Run", "Timestamp", "Type", "Count", "Conc", "OK", "Failed", "Cancel", "Ms")
		fmt.Fprintln(out, rule(110))
		for _, r := range runs {
			fmt.Fprintf(out, "%-36s  %-19s  %-4s  %5d  %4d  %4d  %6d  %6d  %8d\n",
				r.RunID,
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				r.QuestionType,
				r.Requested,
				r.Concurrency,
				r.Succeeded,
				r.Failed,
				r.Cancelled,
				r.DurationMs,
			)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
}
