package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizgen/internal/bulk"
	"github.com/abhisek/quizgen/internal/ui/theme"
)

// ProgressBar renders bulk progress as a bar split into succeeded, failed,
// cancelled, and pending cells.
type ProgressBar struct {
	Label    string
	Progress bulk.Progress
	Width    int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, p bulk.Progress, width int) ProgressBar {
	return ProgressBar{Label: label, Progress: p, Width: width}
}

// View renders the progress bar followed by the counts.
func (p ProgressBar) View() string {
	var result string
	if p.Label != "" {
		result += theme.Body.Render(p.Label) + "  "
	}

	counts := fmt.Sprintf("  %d/%d", p.Progress.Completed, p.Progress.Total)
	barWidth := p.Width - lipgloss.Width(result) - len(counts)
	if barWidth < 4 {
		barWidth = 4
	}

	ok, failed, cancelled := p.cells(barWidth)
	empty := barWidth - ok - failed - cancelled

	result += theme.ProgressSucceeded.Render(strings.Repeat(" ", ok)) +
		theme.ProgressFailed.Render(strings.Repeat(" ", failed)) +
		theme.ProgressCancelled.Render(strings.Repeat(" ", cancelled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", empty))

	return result + lipgloss.NewStyle().Foreground(theme.TextDim).Render(counts)
}

// cells splits width proportionally to the outcome counts. Cells are
// rounded down per state so the bar never overflows.
func (p ProgressBar) cells(width int) (ok, failed, cancelled int) {
	if p.Progress.Total <= 0 {
		return 0, 0, 0
	}
	scale := func(n int) int {
		c := width * n / p.Progress.Total
		return min(max(c, 0), width)
	}
	ok = scale(p.Progress.Succeeded)
	failed = min(scale(p.Progress.Failed), width-ok)
	cancelled = min(scale(p.Progress.Cancelled), width-ok-failed)
	return ok, failed, cancelled
}

// Line renders a one-line, uncolored summary for non-terminal output.
func (p ProgressBar) Line() string {
	return fmt.Sprintf("%s %3d%% (%d/%d, %d ok, %d failed, %d cancelled)",
		p.Label, int(p.Progress.Fraction()*100),
		p.Progress.Completed, p.Progress.Total,
		p.Progress.Succeeded, p.Progress.Failed, p.Progress.Cancelled)
}
