package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/transcript"
)

var segmentsCmd = &cobra.Command{
	Use:   "segments <transcript>",
	Short: "List the segments of a transcript file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		defer f.Close()

		segs, err := transcript.Parse(f)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), segs)
		}

		out := cmd.OutOrStdout()
		if len(segs) == 0 {
			fmt.Fprintln(out, "No segments found.")
			return nil
		}
		width, _ := cmd.Flags().GetInt("width")
		for _, s := range segs {
			fmt.Fprintf(out, "%s  %s\n", s.Label(), truncate(s.Text, width))
		}
		return nil
	},
}

func init() {
	segmentsCmd.Flags().Bool("json", false, "Print segments as JSON")
	segmentsCmd.Flags().Int("width", 80, "Truncate segment text to this many bytes")
}
