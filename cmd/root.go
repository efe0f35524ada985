package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quizgen",
	Short: "Generate validated quiz questions from transcript segments",
	Long: "quizgen turns a transcript segment and a question type into schema-checked quiz questions\n" +
		"with answer keys, retrying malformed model output and reporting per-question failures.",
	SilenceUsage: true,
}

// Execute runs the root command. Cancelling ctx stops long-running
// commands: generation stops scheduling new batches and serve shuts down.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file (overrides QUIZGEN_CONFIG env var)")
	pf.String("db", "", "Path to SQLite database file (overrides QUIZGEN_DB env var)")
	pf.String("provider", "", "LLM provider: gemini, openai, anthropic, openrouter, mock")
	pf.String("log-mode", "", "Log format: dev or prod")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(segmentsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}
