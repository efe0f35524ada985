package components

import (
	"fmt"
	"strings"

	"github.com/abhisek/quizgen/internal/question"
	"github.com/abhisek/quizgen/internal/questiongen"
	"github.com/abhisek/quizgen/internal/ui/theme"
)

var optionLabels = "ABCDEFGHIJ"

// RenderQuestion renders a generated question with its answer key marked.
func RenderQuestion(n int, q *question.Question) string {
	var b strings.Builder
	b.WriteString(theme.Label.Render(fmt.Sprintf("Q%d · %s", n, q.Type.Label())))
	b.WriteString("\n")
	b.WriteString(theme.Body.Bold(true).Render(q.Text))
	b.WriteString("\n")
	if q.Hint != "" {
		b.WriteString(theme.Hint.Render("Hint: " + q.Hint))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch q.Type {
	case question.TypeSingleChoice, question.TypeMultipleChoice:
		renderChoices(&b, q)
	case question.TypeMatching:
		renderMatches(&b, q)
	case question.TypeOrdering:
		renderOrder(&b, q)
	}
	return theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}

func renderChoices(b *strings.Builder, q *question.Question) {
	correct := map[string]bool{}
	for _, it := range q.CorrectItems() {
		correct[it.ID] = true
	}
	for i, it := range q.Lot.Items {
		line := fmt.Sprintf("  %s)  %s", label(i), it.Text)
		if correct[it.ID] {
			b.WriteString(theme.Correct.Render(line + "  ✓"))
		} else {
			b.WriteString(theme.Body.Render(line))
		}
		b.WriteString("\n")
		if it.Explanation != "" {
			b.WriteString(theme.Hint.Render("       " + it.Explanation))
			b.WriteString("\n")
		}
	}
}

func renderMatches(b *strings.Builder, q *question.Question) {
	if len(q.Lots) != 2 {
		return
	}
	for _, m := range q.Solution.Matches {
		left, _ := q.Lots[0].Find(m.Left)
		right, _ := q.Lots[1].Find(m.Right)
		b.WriteString(theme.Body.Render(fmt.Sprintf("  %s  ", left.Text)))
		b.WriteString(theme.Correct.Render("↔"))
		b.WriteString(theme.Body.Render(fmt.Sprintf("  %s", right.Text)))
		b.WriteString("\n")
	}
}

func renderOrder(b *strings.Builder, q *question.Question) {
	b.WriteString(theme.Hint.Render("Shown as:"))
	b.WriteString("\n")
	for i, it := range q.Lot.Items {
		b.WriteString(theme.Body.Render(fmt.Sprintf("  %s)  %s", label(i), it.Text)))
		b.WriteString("\n")
	}
	b.WriteString(theme.Hint.Render("Correct order:"))
	b.WriteString("\n")
	for i, id := range q.Solution.Order {
		it, _ := q.Lot.Find(id)
		b.WriteString(theme.Correct.Render(fmt.Sprintf("  %d.  %s", i+1, it.Text)))
		b.WriteString("\n")
	}
}

// RenderFailure renders one failed index.
func RenderFailure(index int, f *questiongen.Failure) string {
	style := theme.Failed
	if f.Kind == questiongen.KindCancelled {
		style = theme.Cancelled
	}
	line := fmt.Sprintf("#%d %s", index+1, f.Kind)
	if f.Rule != "" {
		line += " (" + f.Rule + ")"
	}
	if f.Attempts > 0 {
		line += fmt.Sprintf(" after %d attempts", f.Attempts)
	}
	return style.Render(line) + theme.Hint.Render(": "+f.Message)
}

func label(i int) string {
	if i < len(optionLabels) {
		return optionLabels[i : i+1]
	}
	return fmt.Sprint(i + 1)
}
