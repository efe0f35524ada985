package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/question"
	"github.com/abhisek/quizgen/internal/questiongen"
)

var templateCmd = &cobra.Command{
	Use:   "template <TYPE>",
	Short: "Print the JSON shape, schema, or prompt for a question type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		t := question.Resolve(args[0])
		tpl := questiongen.TemplateFor(t)

		if segment, _ := cmd.Flags().GetString("prompt"); segment != "" {
			fmt.Fprintln(out, questiongen.Compose(segment, t))
			return nil
		}
		if schema, _ := cmd.Flags().GetBool("schema"); schema {
			data, err := json.MarshalIndent(tpl.Schema.Definition, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal schema: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "# %s (%s)\n", tpl.Type, tpl.Type.Label())
		fmt.Fprintln(out, tpl.Shape)
		fmt.Fprintln(out)
		for _, r := range tpl.Rules {
			fmt.Fprintln(out, "- "+r)
		}
		return nil
	},
}

func init() {
	templateCmd.Flags().String("prompt", "", "Print the full prompt composed for this segment text")
	templateCmd.Flags().Bool("schema", false, "Print the JSON Schema used to check model output")
}
