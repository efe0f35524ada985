package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/quizgen/internal/question"
)

const systemPrompt = `You are an assessment author who turns lecture transcripts into quiz questions.

Rules:
- Ground every question, option, and explanation in the transcript segment you are given. Do not bring in outside facts.
- Write for a learner who has just listened to the segment.
- Keep option texts short and parallel in form. Distractors should be plausible misreadings of the segment, not jokes.
- Answer with a single JSON object and nothing else.`

// jsonOnlyDirective closes every prompt.
const jsonOnlyDirective = `Return ONLY valid JSON in exactly the structure above. Do not include any text outside of the JSON object. Do not include any markdown code blocks.
Replace every placeholder value with real content. All ids are strings and must be unique within the question.`

var commonRules = []string{
	"questionText and hintText may use Markdown.",
	"difficulty is an integer from 1 (easy) to 5 (hard).",
	"timeLimit is in seconds. Keep 300 unless the question needs more reading time.",
}

// Compose builds the generation prompt for one question of type t from
// segment. The output depends only on its arguments.
func Compose(segment string, t question.Type) string {
	tpl := TemplateFor(t)

	var b strings.Builder

	fmt.Fprintf(&b, "Write one %s question (questionType %q) based on the transcript segment below.\n\n",
		tpl.Type.Label(), string(tpl.Type))

	b.WriteString("Transcript segment:\n\"\"\"\n")
	b.WriteString(strings.TrimSpace(segment))
	b.WriteString("\n\"\"\"\n\n")

	b.WriteString("Rules:\n")
	for _, r := range tpl.Rules {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	for _, r := range commonRules {
		fmt.Fprintf(&b, "- %s\n", r)
	}

	b.WriteString("\nRespond in the following JSON format:\n")
	b.WriteString(tpl.Shape)
	b.WriteString("\n\n")
	b.WriteString(jsonOnlyDirective)

	return b.String()
}
