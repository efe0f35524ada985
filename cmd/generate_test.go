package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizgen/internal/bulk"
	"github.com/abhisek/quizgen/internal/question"
	"github.com/abhisek/quizgen/internal/questiongen"
)

func TestSegmentFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lecture.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"Segment 1 [0.00s - 5.00s]:\nFirst part.\n\nSegment 2 [5.00s - 9.00s]:\nSecond part.\n"), 0o600))

	got, err := segmentFrom("literal text", "", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "literal text", got)

	got, err = segmentFrom("-", "", 1, strings.NewReader("from stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin\n", got)

	got, err = segmentFrom("", path, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, "Second part.", got)

	_, err = segmentFrom("", path, 3, nil)
	assert.ErrorContains(t, err, "no segment 3")

	_, err = segmentFrom("x", path, 1, nil)
	assert.ErrorContains(t, err, "not both")

	_, err = segmentFrom("  ", "", 1, nil)
	assert.ErrorContains(t, err, "segment is required")
}

func TestPrintResult(t *testing.T) {
	res := &bulk.Result{
		RunID: "run-7",
		Type:  question.TypeSingleChoice,
		Outcomes: []bulk.Outcome{
			{Index: 0, Question: &question.Question{
				Type: question.TypeSingleChoice,
				Text: "Which organelle makes ATP?",
				Lot: &question.Lot{Items: []question.LotItem{
					{ID: "a", Text: "Mitochondria"},
					{ID: "b", Text: "Golgi body"},
				}},
				Solution: question.Solution{Type: question.TypeSingleChoice, ItemID: "a"},
			}},
			{Index: 1, Failure: &questiongen.Failure{Kind: questiongen.KindNoJSONFound, Attempts: 3, Message: "no JSON object"}},
		},
		Summary: bulk.Summary{Requested: 2, Succeeded: 1, Failed: 1},
	}

	var buf bytes.Buffer
	printResult(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "Which organelle makes ATP?")
	assert.Contains(t, out, "#2 no_json_found after 3 attempts")
	assert.Contains(t, out, "2 requested, 1 generated, 1 failed, 0 cancelled")
}
