package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/app"
	"github.com/abhisek/quizgen/internal/bulk"
	"github.com/abhisek/quizgen/internal/question"
	"github.com/abhisek/quizgen/internal/transcript"
	"github.com/abhisek/quizgen/internal/ui/components"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate questions from a transcript segment",
	Example: `  quizgen generate --type SOL --count 5 --segment "Photosynthesis converts light into chemical energy..."
  quizgen generate --type OTL --count 3 --transcript lecture.txt --segment-index 2 --json`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringP("type", "t", "MTL", "Question type: SOL, SML, MTL, OTL (unknown types fall back to MTL)")
	f.IntP("count", "n", 1, "Number of questions to generate")
	f.IntP("concurrency", "c", 0, "Questions generated per batch (0 = configured default)")
	f.StringP("segment", "s", "", "Segment text (use - to read stdin)")
	f.String("transcript", "", "Transcript file to take the segment from")
	f.Int("segment-index", 1, "1-based segment number within --transcript")
	f.Bool("json", false, "Print the full result as JSON")
	f.Bool("tui", false, "Show an interactive progress view")
	f.String("engine", "", "Model to use for this run (overrides the configured model)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	typeTag, _ := flags.GetString("type")
	count, _ := flags.GetInt("count")
	concurrency, _ := flags.GetInt("concurrency")
	asJSON, _ := flags.GetBool("json")
	useTUI, _ := flags.GetBool("tui")

	segment, err := readSegment(cmd)
	if err != nil {
		return err
	}

	qt, ok := question.ParseType(typeTag)
	if !ok {
		qt = question.Resolve(typeTag)
		fmt.Fprintf(os.Stderr, "Unknown question type %q, using %s.\n", typeTag, qt)
	}

	d, err := loadDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	if engine, _ := flags.GetString("engine"); engine != "" {
		d.cfg.Generation.Model = engine
	}

	ctx := cmd.Context()
	_, orch, err := d.pipeline(ctx)
	if err != nil {
		return err
	}

	req := bulk.Request{SegmentText: segment, Type: qt, Count: count, ConcurrencyLimit: concurrency}
	if err := req.Validate(orch.Config()); err != nil {
		return err
	}

	var res *bulk.Result
	if useTUI {
		title := fmt.Sprintf("%s x %d", qt, count)
		res, err = app.Run(ctx, title, count, func(ctx context.Context, onProgress bulk.ProgressFunc) (*bulk.Result, error) {
			return orch.GenerateBulk(ctx, req, onProgress)
		})
	} else {
		res, err = orch.GenerateBulk(ctx, req, func(p bulk.Progress) {
			fmt.Fprintf(os.Stderr, "\r%s", components.NewProgressBar(string(qt), p, 0).Line())
		})
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		if errors.Is(err, app.ErrInterrupted) {
			fmt.Fprintln(os.Stderr, "Interrupted.")
			return nil
		}
		return err
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	printResult(cmd.OutOrStdout(), res)
	if res.Summary.Succeeded == 0 {
		return fmt.Errorf("no questions generated")
	}
	return nil
}

func readSegment(cmd *cobra.Command) (string, error) {
	flags := cmd.Flags()
	text, _ := flags.GetString("segment")
	path, _ := flags.GetString("transcript")
	index, _ := flags.GetInt("segment-index")
	return segmentFrom(text, path, index, cmd.InOrStdin())
}

// segmentFrom resolves the segment from literal text, stdin ("-"), or a
// transcript file.
func segmentFrom(text, path string, index int, stdin io.Reader) (string, error) {
	switch {
	case text != "" && path != "":
		return "", errors.New("use either --segment or --transcript, not both")
	case text == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open transcript: %w", err)
		}
		defer f.Close()
		segs, err := transcript.Parse(f)
		if err != nil {
			return "", err
		}
		seg, ok := transcript.Find(segs, index)
		if !ok {
			return "", fmt.Errorf("transcript %s has no segment %d (found %d)", path, index, len(segs))
		}
		text = seg.Text
	}

	if strings.TrimSpace(text) == "" {
		return "", errors.New("a segment is required: pass --segment or --transcript")
	}
	return text, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res *bulk.Result) {
	n := 0
	for _, o := range res.Outcomes {
		if o.Question == nil {
			continue
		}
		n++
		fmt.Fprintln(w, components.RenderQuestion(n, o.Question))
		fmt.Fprintln(w)
	}

	if res.Summary.Failed+res.Summary.Cancelled > 0 {
		fmt.Fprintln(w, "Failures:")
		for _, o := range res.Outcomes {
			if o.Failure != nil {
				fmt.Fprintln(w, "  "+components.RenderFailure(o.Index, o.Failure))
			}
		}
		fmt.Fprintln(w)
	}

	s := res.Summary
	fmt.Fprintf(w, "%d requested, %d generated, %d failed, %d cancelled in %dms (run %s)\n",
		s.Requested, s.Succeeded, s.Failed, s.Cancelled, s.DurationMs, res.RunID)
}
