package questiongen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/quizgen/internal/question"
)

// Extract isolates the JSON object in raw model output, checks it against
// the template for t, and builds the question. The returned error is one
// of *NoJSONFoundError, *MalformedJSONError, or *SchemaViolationError,
// each carrying raw for inspection.
func Extract(raw string, t question.Type) (*question.Question, error) {
	tpl := TemplateFor(t)

	body, err := locateJSON(raw)
	if err != nil {
		return nil, err
	}

	if v := checkShape(tpl, body); v != nil {
		v.Raw = raw
		return nil, v
	}

	var out questionOutput
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &SchemaViolationError{Rule: RuleShape, Message: err.Error(), Raw: raw}
	}

	q, v := build(tpl, &out)
	if v != nil {
		v.Raw = raw
		return nil, v
	}
	return q, nil
}

// locateJSON returns the JSON object embedded in raw. The span from the
// first '{' to the last '}' is tried first. If it does not parse, each
// balanced top-level object is tried in turn, which recovers payloads
// followed by prose that itself contains braces.
func locateJSON(raw string) ([]byte, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, &NoJSONFoundError{Raw: raw}
	}

	candidate := raw[start : end+1]
	firstErr := parseCheck(candidate)
	if firstErr == nil {
		return []byte(candidate), nil
	}

	for _, obj := range balancedObjects(raw[start:]) {
		if obj == candidate {
			continue
		}
		if parseCheck(obj) == nil {
			return []byte(obj), nil
		}
	}

	return nil, &MalformedJSONError{
		Raw:        raw,
		Diagnostic: diagnose(firstErr),
		Err:        firstErr,
	}
}

func parseCheck(s string) error {
	var v map[string]any
	return json.Unmarshal([]byte(s), &v)
}

func diagnose(err error) string {
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return fmt.Sprintf("%s (at byte %d)", syntax.Error(), syntax.Offset)
	}
	return err.Error()
}

// balancedObjects returns every top-level {...} span of s whose braces
// balance, skipping braces inside JSON strings. Quotes are only tracked
// inside an object so apostrophes and quotes in surrounding prose do not
// confuse the scan.
func balancedObjects(s string) []string {
	var (
		out      []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, s[start:i+1])
			}
		}
	}
	return out
}
