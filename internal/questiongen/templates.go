package questiongen

import (
	"strings"

	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/question"
)

// Difficulty bounds. Out-of-range values are clamped, not rejected.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Template is the expected structure for one question type. Templates
// are built once at package init and never modified.
type Template struct {
	Type question.Type

	// Shape is the literal JSON example embedded in the prompt.
	Shape string

	// Rules are type-specific authoring rules listed in the prompt.
	Rules []string

	// Schema is the JSON Schema for the top-level shape. It is checked
	// before the semantic rules and can be sent to providers that support
	// native structured output.
	Schema *llm.Schema
}

// LotCount is the number of lots a question built from t must carry.
func (t Template) LotCount() int {
	return t.Type.LotCount()
}

// placeholders are the filler values used in the shapes. A response that
// still contains one was copied from the example instead of authored.
var placeholders = []string{
	"ID of the LOT",
	"Text Value",
	"Rich Text/Markdown",
	"ID of the solution item",
	"ID of item in lot",
	"Why this option is correct or incorrect",
}

const singleChoiceShape = `{
  "questionType": "SOL",
  "questionText": "Rich Text/Markdown",
  "hintText": "Rich Text/Markdown",
  "difficulty": 2,
  "lot": {
    "lotId": "ID of the LOT",
    "lotItems": [
      {"id": "ID of the LOT item", "lotItemText": "Text Value", "explanation": "Why this option is correct or incorrect"},
      {"id": "ID of the LOT item", "lotItemText": "Text Value", "explanation": "Why this option is correct or incorrect"}
    ]
  },
  "solution": {
    "SOL": {"itemId": "ID of the solution item in the lot"}
  },
  "timeLimit": 300,
  "points": 20
}`

const multipleChoiceShape = `{
  "questionType": "SML",
  "questionText": "Rich Text/Markdown",
  "hintText": "Rich Text/Markdown",
  "difficulty": 2,
  "lot": {
    "lotId": "ID of the LOT",
    "lotItems": [
      {"id": "ID of the LOT item", "lotItemText": "Text Value", "explanation": "Why this option is correct or incorrect"},
      {"id": "ID of the LOT item", "lotItemText": "Text Value", "explanation": "Why this option is correct or incorrect"}
    ]
  },
  "solution": {
    "SML": {"itemIds": ["ID of the solution item in the lot", "ID of the solution item in the lot"]}
  },
  "timeLimit": 300,
  "points": 20
}`

const matchingShape = `{
  "questionType": "MTL",
  "questionText": "Rich Text/Markdown",
  "hintText": "Rich Text/Markdown",
  "difficulty": 2,
  "lots": [
    {
      "lotId": "ID of the LOT",
      "lotItems": [
        {"id": "ID of the LOT item", "lotItemText": "Text Value"},
        {"id": "ID of the LOT item", "lotItemText": "Text Value"}
      ]
    },
    {
      "lotId": "ID of the LOT",
      "lotItems": [
        {"id": "ID of the LOT item", "lotItemText": "Text Value"},
        {"id": "ID of the LOT item", "lotItemText": "Text Value"}
      ]
    }
  ],
  "solution": {
    "MTL": {
      "matches": [
        {"itemIds": ["ID of item in lot 1", "ID of item in lot 2"]},
        {"itemIds": ["ID of item in lot 1", "ID of item in lot 2"]}
      ]
    }
  },
  "timeLimit": 300,
  "points": 20
}`

const orderingShape = `{
  "questionType": "OTL",
  "questionText": "Rich Text/Markdown",
  "hintText": "Rich Text/Markdown",
  "difficulty": 2,
  "lot": {
    "lotId": "ID of the LOT",
    "lotItems": [
      {"id": "ID of the LOT item", "lotItemText": "Text Value"},
      {"id": "ID of the LOT item", "lotItemText": "Text Value"},
      {"id": "ID of the LOT item", "lotItemText": "Text Value"}
    ]
  },
  "solution": {
    "OTL": {
      "orders": [
        {"itemId": "ID of the solution item in the lot", "order": 1},
        {"itemId": "ID of the solution item in the lot", "order": 2},
        {"itemId": "ID of the solution item in the lot", "order": 3}
      ]
    }
  },
  "timeLimit": 300,
  "points": 20
}`

var templates = map[question.Type]Template{
	question.TypeSingleChoice: {
		Type:  question.TypeSingleChoice,
		Shape: singleChoiceShape,
		Rules: []string{
			"Provide 3 to 5 options in the lot. Exactly one option is correct and the others are plausible distractors.",
			"solution.SOL.itemId must be the id of the correct option.",
			"Give every option an explanation of why it is correct or incorrect.",
		},
	},
	question.TypeMultipleChoice: {
		Type:  question.TypeMultipleChoice,
		Shape: multipleChoiceShape,
		Rules: []string{
			"Provide 4 to 6 options in the lot. At least one option is correct, preferably several.",
			"solution.SML.itemIds lists the id of every correct option and nothing else.",
			"Give every option an explanation of why it is correct or incorrect.",
		},
	},
	question.TypeMatching: {
		Type:  question.TypeMatching,
		Shape: matchingShape,
		Rules: []string{
			"Provide exactly two lots with the same number of items, at least 3 each. The first lot is the left column, the second the right column.",
			"Each entry in solution.MTL.matches is [left item id, right item id].",
			"Every item appears in exactly one match. Item ids are unique across both lots.",
		},
	},
	question.TypeOrdering: {
		Type:  question.TypeOrdering,
		Shape: orderingShape,
		Rules: []string{
			"Provide 3 to 6 items in the lot.",
			"solution.OTL.orders lists every item id exactly once, in the correct sequence, numbered from 1.",
			"Do not list the lot items in the correct order.",
		},
	},
}

func init() {
	for typ, tpl := range templates {
		tpl.Schema = &llm.Schema{
			Name:        "question-" + strings.ToLower(string(typ)),
			Description: "A " + typ.Label() + " quiz question with its answer key",
			Definition:  questionSchema(typ),
		}
		templates[typ] = tpl
	}
}

// TemplateFor returns the template for t. Unrecognized types get the
// matching template.
func TemplateFor(t question.Type) Template {
	if tpl, ok := templates[t]; ok {
		return tpl
	}
	return templates[question.TypeMatching]
}

func lotItemSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":          map[string]any{"type": "string"},
			"lotItemText": map[string]any{"type": "string"},
			"explanation": map[string]any{"type": "string"},
		},
		"required": []any{"id", "lotItemText"},
	}
}

func lotSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lotId": map[string]any{"type": "string"},
			"lotItems": map[string]any{
				"type":  "array",
				"items": lotItemSchema(),
			},
		},
		"required": []any{"lotItems"},
	}
}

func solutionVariantSchema(t question.Type) map[string]any {
	str := map[string]any{"type": "string"}
	switch t {
	case question.TypeSingleChoice:
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{"itemId": str},
			"required":   []any{"itemId"},
		}
	case question.TypeMultipleChoice:
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"itemIds": map[string]any{"type": "array", "items": str},
			},
			"required": []any{"itemIds"},
		}
	case question.TypeOrdering:
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"orders": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"itemId": str,
							"order":  map[string]any{"type": "integer"},
						},
						"required": []any{"itemId"},
					},
				},
			},
			"required": []any{"orders"},
		}
	default:
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"matches": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"itemIds": map[string]any{"type": "array", "items": str},
						},
						"required": []any{"itemIds"},
					},
				},
			},
			"required": []any{"matches"},
		}
	}
}

// questionSchema describes the top-level shape. Every scalar field is
// required. lot and lots are left optional here so a missing group is
// reported by the cardinality rule, and the variant key under solution is
// checked the same way.
func questionSchema(t question.Type) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questionType": map[string]any{"type": "string"},
			"questionText": map[string]any{"type": "string"},
			"hintText":     map[string]any{"type": "string"},
			"difficulty":   map[string]any{"type": "integer"},
			"timeLimit":    map[string]any{"type": "integer", "minimum": 1},
			"points":       map[string]any{"type": "integer", "minimum": 0},
			"lot":          lotSchema(),
			"lots":         map[string]any{"type": "array", "items": lotSchema()},
			"solution": map[string]any{
				"type": "object",
				"properties": map[string]any{
					string(t): solutionVariantSchema(t),
				},
			},
		},
		"required": []any{"questionType", "questionText", "hintText", "timeLimit", "points", "solution"},
	}
}
