// Package transcript splits transcript text into segments that questions
// are generated from.
//
// Two layouts are recognized:
//
//	Segment 1 [0.00s - 42.50s]:
//	text of the first segment
//
//	0.00 --> 4.20
//	one sentence
//
// Text in neither layout is returned as a single segment.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Segment is a contiguous span of transcript text.
type Segment struct {
	Index int           `json:"index"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Label renders the segment header, e.g. "Segment 2 [4.20s - 9.00s]".
func (s Segment) Label() string {
	return fmt.Sprintf("Segment %d [%.2fs - %.2fs]", s.Index, s.Start.Seconds(), s.End.Seconds())
}

var (
	segmentHeader = regexp.MustCompile(`^Segment\s+(\d+)\s*\[\s*([\d.]+)s?\s*-\s*([\d.]+)s?\s*\]\s*:?\s*(.*)$`)
	sentenceRange = regexp.MustCompile(`^([\d.]+)\s*-->\s*([\d.]+)$`)
)

// Parse reads a transcript. Segment indices are 1-based. Empty segments
// are dropped.
func Parse(r io.Reader) ([]Segment, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	hasSentences := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if segmentHeader.MatchString(l) {
			return parseSegmented(lines)
		}
		if sentenceRange.MatchString(l) {
			hasSentences = true
		}
	}
	if hasSentences {
		return parseSentences(lines), nil
	}
	return parsePlain(lines), nil
}

// ParseString is Parse over a string.
func ParseString(s string) ([]Segment, error) {
	return Parse(strings.NewReader(s))
}

func parseSegmented(lines []string) ([]Segment, error) {
	var (
		out []Segment
		cur *Segment
		buf []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = joinText(buf)
		if cur.Text != "" {
			out = append(out, *cur)
		}
		cur, buf = nil, nil
	}

	for n, l := range lines {
		trimmed := strings.TrimSpace(l)
		m := segmentHeader.FindStringSubmatch(trimmed)
		if m == nil {
			if cur != nil {
				buf = append(buf, trimmed)
			}
			continue
		}
		flush()
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: segment number: %w", n+1, err)
		}
		start, err := seconds(m[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: start time: %w", n+1, err)
		}
		end, err := seconds(m[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: end time: %w", n+1, err)
		}
		cur = &Segment{Index: idx, Start: start, End: end}
		if rest := strings.TrimSpace(m[4]); rest != "" {
			buf = append(buf, rest)
		}
	}
	flush()
	return out, nil
}

// parseSentences groups "start --> end" blocks. Each block becomes one
// segment; blocks with an unparsable range are skipped.
func parseSentences(lines []string) []Segment {
	var out []Segment
	for i := 0; i < len(lines); i++ {
		m := sentenceRange.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		start, err1 := seconds(m[1])
		end, err2 := seconds(m[2])

		var buf []string
		for i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if next == "" || sentenceRange.MatchString(next) {
				break
			}
			buf = append(buf, next)
			i++
		}
		if err1 != nil || err2 != nil {
			continue
		}
		if text := joinText(buf); text != "" {
			out = append(out, Segment{Index: len(out) + 1, Start: start, End: end, Text: text})
		}
	}
	return out
}

func parsePlain(lines []string) []Segment {
	text := joinText(lines)
	if text == "" {
		return nil
	}
	return []Segment{{Index: 1, Text: text}}
}

func joinText(lines []string) string {
	var parts []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}

func seconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(math.Round(f*1000)) * time.Millisecond, nil
}

// Find returns the segment with the given 1-based index.
func Find(segments []Segment, index int) (Segment, bool) {
	for _, s := range segments {
		if s.Index == index {
			return s, true
		}
	}
	return Segment{}, false
}
