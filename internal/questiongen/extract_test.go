package questiongen

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/abhisek/quizgen/internal/question"
)

const validSOL = `{
  "questionType": "SOL",
  "questionText": "Where do the light reactions take place?",
  "hintText": "Think about membranes.",
  "difficulty": 2,
  "lot": {
    "lotId": "L1",
    "lotItems": [
      {"id": "a", "lotItemText": "Stroma", "explanation": "The Calvin cycle runs there."},
      {"id": "b", "lotItemText": "Thylakoid membranes", "explanation": "Correct."},
      {"id": "c", "lotItemText": "Nucleus", "explanation": "Not part of photosynthesis."}
    ]
  },
  "solution": {"SOL": {"itemId": "b"}},
  "timeLimit": 120,
  "points": 10
}`

const validSML = `{
  "questionType": "SML",
  "questionText": "Which happen in the light reactions?",
  "hintText": "",
  "lot": {
    "lotItems": [
      {"id": "a", "lotItemText": "Water is split"},
      {"id": "b", "lotItemText": "Oxygen is released"},
      {"id": "c", "lotItemText": "Carbon dioxide is fixed"}
    ]
  },
  "solution": {"SML": {"itemIds": ["a", "b"]}},
  "timeLimit": 300,
  "points": 20
}`

const validMTL = `{
  "questionType": "MTL",
  "questionText": "Match each process to where it happens.",
  "hintText": "",
  "lots": [
    {"lotId": "left", "lotItems": [
      {"id": "l1", "lotItemText": "Light reactions"},
      {"id": "l2", "lotItemText": "Calvin cycle"}
    ]},
    {"lotId": "right", "lotItems": [
      {"id": "r1", "lotItemText": "Stroma"},
      {"id": "r2", "lotItemText": "Thylakoid membranes"}
    ]}
  ],
  "solution": {"MTL": {"matches": [
    {"itemIds": ["l1", "r2"]},
    {"itemIds": ["l2", "r1"]}
  ]}},
  "timeLimit": 300,
  "points": 20
}`

const validOTL = `{
  "questionType": "OTL",
  "questionText": "Order the steps.",
  "hintText": "",
  "lot": {"lotId": "L", "lotItems": [
    {"id": "s3", "lotItemText": "Sugar is made"},
    {"id": "s1", "lotItemText": "Light is absorbed"},
    {"id": "s2", "lotItemText": "Water is split"}
  ]},
  "solution": {"OTL": {"orders": [
    {"itemId": "s1", "order": 1},
    {"itemId": "s2", "order": 2},
    {"itemId": "s3", "order": 3}
  ]}},
  "timeLimit": 240,
  "points": 15
}`

func TestExtract_RoundTrip(t *testing.T) {
	tests := []struct {
		typ question.Type
		raw string
	}{
		{question.TypeSingleChoice, validSOL},
		{question.TypeMultipleChoice, validSML},
		{question.TypeMatching, validMTL},
		{question.TypeOrdering, validOTL},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			q, err := Extract(tt.raw, tt.typ)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Type != tt.typ || q.Solution.Type != tt.typ {
				t.Fatalf("type = %s/%s, want %s", q.Type, q.Solution.Type, tt.typ)
			}

			switch tt.typ {
			case question.TypeSingleChoice:
				if _, ok := q.Lot.Find(q.Solution.ItemID); !ok {
					t.Errorf("solution %q not in lot", q.Solution.ItemID)
				}
			case question.TypeMultipleChoice:
				for _, id := range q.Solution.ItemIDs {
					if _, ok := q.Lot.Find(id); !ok {
						t.Errorf("solution %q not in lot", id)
					}
				}
			case question.TypeMatching:
				if len(q.Lots) != 2 || q.Lot != nil {
					t.Fatalf("expected two lots only, got lot=%v lots=%d", q.Lot, len(q.Lots))
				}
				for _, m := range q.Solution.Matches {
					if _, ok := q.Lots[0].Find(m.Left); !ok {
						t.Errorf("left %q not in first lot", m.Left)
					}
					if _, ok := q.Lots[1].Find(m.Right); !ok {
						t.Errorf("right %q not in second lot", m.Right)
					}
				}
			case question.TypeOrdering:
				got := slices.Sorted(slices.Values(q.Solution.Order))
				want := slices.Sorted(slices.Values(q.Lot.IDs()))
				if !slices.Equal(got, want) {
					t.Errorf("order %v is not a permutation of %v", q.Solution.Order, q.Lot.IDs())
				}
			}
		})
	}
}

func TestExtract_Fields(t *testing.T) {
	q, err := Extract(validSOL, question.TypeSingleChoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text != "Where do the light reactions take place?" || q.Hint != "Think about membranes." {
		t.Errorf("unexpected text/hint: %q / %q", q.Text, q.Hint)
	}
	if q.Difficulty != 2 || q.TimeLimit != 120 || q.Points != 10 {
		t.Errorf("unexpected scoring: %+v", q)
	}
	if q.Lot.ID != "L1" || len(q.Lot.Items) != 3 || q.Lot.Items[1].Explanation != "Correct." {
		t.Errorf("unexpected lot: %+v", q.Lot)
	}
	if len(q.CorrectItems()) != 1 || q.CorrectItems()[0].Text != "Thylakoid membranes" {
		t.Errorf("unexpected correct items: %+v", q.CorrectItems())
	}
	if q.Meta == nil || !q.Meta.IsAIGenerated || q.Meta.IsStudentGenerated {
		t.Errorf("unexpected meta details: %+v", q.Meta)
	}
}

func TestExtract_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		drop string
	}{
		{"hintText", `  "hintText": "Think about membranes.",` + "\n"},
		{"timeLimit", `,` + "\n" + `  "timeLimit": 120`},
		{"points", `,` + "\n" + `  "points": 10`},
		{"questionText", `  "questionText": "Where do the light reactions take place?",` + "\n"},
		{"scoring", `,` + "\n" + `  "timeLimit": 120,` + "\n" + `  "points": 10`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := strings.Replace(validSOL, tt.drop, "", 1)
			if raw == validSOL {
				t.Fatalf("fixture does not contain %q", tt.drop)
			}
			q, err := Extract(raw, question.TypeSingleChoice)
			if q != nil {
				t.Fatalf("expected no question, got %+v", q)
			}
			var sv *SchemaViolationError
			if !errors.As(err, &sv) {
				t.Fatalf("expected SchemaViolationError, got %T: %v", err, err)
			}
			if sv.Rule != RuleShape {
				t.Errorf("rule = %q (%s), want %q", sv.Rule, sv.Message, RuleShape)
			}
		})
	}
}

func TestExtract_ClampsDifficulty(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`"difficulty": 9`, MaxDifficulty},
		{`"difficulty": -3`, MinDifficulty},
		{`"difficulty": 4`, 4},
	}
	for _, tt := range tests {
		q, err := Extract(strings.Replace(validSOL, `"difficulty": 2`, tt.in, 1), question.TypeSingleChoice)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.in, err)
		}
		if q.Difficulty != tt.want {
			t.Errorf("%s: difficulty = %d, want %d", tt.in, q.Difficulty, tt.want)
		}
	}
}

func TestExtract_LegacyExplanationSpelling(t *testing.T) {
	raw := strings.Replace(validSOL, `"explanation": "Correct."`, `"explaination": "Correct."`, 1)
	q, err := Extract(raw, question.TypeSingleChoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Lot.Items[1].Explanation != "Correct." {
		t.Errorf("explanation = %q", q.Lot.Items[1].Explanation)
	}
}

func TestExtract_OrderNumbersWin(t *testing.T) {
	raw := strings.NewReplacer(
		`{"itemId": "s1", "order": 1}`, `{"itemId": "s3", "order": 3}`,
		`{"itemId": "s3", "order": 3}`, `{"itemId": "s1", "order": 1}`,
	).Replace(validOTL)

	q, err := Extract(raw, question.TypeOrdering)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"s1", "s2", "s3"}; !slices.Equal(q.Solution.Order, want) {
		t.Errorf("order = %v, want %v", q.Solution.Order, want)
	}
}

func TestExtract_ToleratesProse(t *testing.T) {
	bare, err := Extract(validMTL, question.TypeMatching)
	if err != nil {
		t.Fatalf("bare: %v", err)
	}

	wrapped := []string{
		"Sure! Here you go: " + validMTL + " Hope that helps!",
		"```json\n" + validMTL + "\n```",
		"Here is the question:\n\n" + validMTL + "\n\nNote: ids use {left}/{right} prefixes.",
	}
	for i, raw := range wrapped {
		q, err := Extract(raw, question.TypeMatching)
		if err != nil {
			t.Errorf("case %d: unexpected error: %v", i, err)
			continue
		}
		if q.Text != bare.Text || !slices.Equal(q.Solution.Matches, bare.Solution.Matches) {
			t.Errorf("case %d: extracted question differs", i)
		}
	}
}

func TestExtract_NoJSON(t *testing.T) {
	for _, raw := range []string{"", "I cannot help with that.", "only an opening {", "} backwards {"} {
		_, err := Extract(raw, question.TypeSingleChoice)
		var nj *NoJSONFoundError
		if !errors.As(err, &nj) {
			t.Errorf("%q: expected NoJSONFoundError, got %v", raw, err)
			continue
		}
		if nj.Raw != raw {
			t.Errorf("raw not preserved: %q", nj.Raw)
		}
	}
}

func TestExtract_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"trailing comma", `{"questionType": "SOL", "questionText": "x",}`},
		{"unbalanced", `Result: {"questionType": "SOL", "lot": {"lotItems": [] }`},
		{"single quotes", `{'questionType': 'SOL'}`},
		{"truncated", strings.TrimSuffix(validSOL, "}") + `, "extra": {"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Extract(tt.raw, question.TypeSingleChoice)
			if q != nil {
				t.Fatal("expected no question")
			}
			var mj *MalformedJSONError
			if !errors.As(err, &mj) {
				t.Fatalf("expected MalformedJSONError, got %T: %v", err, err)
			}
			if mj.Raw != tt.raw || mj.Diagnostic == "" {
				t.Errorf("diagnostic info missing: %+v", mj)
			}
		})
	}
}

func TestExtract_Violations(t *testing.T) {
	tests := []struct {
		name string
		typ  question.Type
		raw  string
		rule string
	}{
		{
			name: "missing solution",
			typ:  question.TypeSingleChoice,
			raw:  `{"questionType": "SOL", "questionText": "q", "lot": {"lotItems": [{"id": "a", "lotItemText": "A"}, {"id": "b", "lotItemText": "B"}]}}`,
			rule: RuleShape,
		},
		{
			name: "numeric item id",
			typ:  question.TypeSingleChoice,
			raw:  strings.Replace(validSOL, `"id": "a"`, `"id": 1`, 1),
			rule: RuleShape,
		},
		{
			name: "string time limit",
			typ:  question.TypeSingleChoice,
			raw:  strings.Replace(validSOL, `"timeLimit": 120`, `"timeLimit": "120"`, 1),
			rule: RuleShape,
		},
		{
			name: "type mismatch",
			typ:  question.TypeMultipleChoice,
			raw:  validSOL,
			rule: RuleTypeMismatch,
		},
		{
			name: "blank question text",
			typ:  question.TypeSingleChoice,
			raw:  strings.Replace(validSOL, `"Where do the light reactions take place?"`, `"  "`, 1),
			rule: RuleBlankQuestionText,
		},
		{
			name: "placeholder",
			typ:  question.TypeSingleChoice,
			raw:  strings.Replace(validSOL, `"Nucleus"`, `"Text Value"`, 1),
			rule: RulePlaceholder,
		},
		{
			name: "single lot for matching",
			typ:  question.TypeMatching,
			raw:  strings.Replace(validSOL, `"SOL"`, `"MTL"`, 1),
			rule: RuleLotCardinality,
		},
		{
			name: "one lot for matching",
			typ:  question.TypeMatching,
			raw: `{"questionType": "MTL", "questionText": "q", "hintText": "", "timeLimit": 60, "points": 5,
				"lots": [{"lotItems": [{"id": "a", "lotItemText": "A"}]}], "solution": {"MTL": {"matches": []}}}`,
			rule: RuleLotCardinality,
		},
		{
			name: "single choice lot sent as lots",
			typ:  question.TypeSingleChoice,
			raw:  strings.Replace(strings.Replace(validSOL, `"lot": {`, `"lots": [{`, 1), "]\n  },\n  \"solution\"", "]\n  }],\n  \"solution\"", 1),
			rule: RuleLotCardinality,
		},
		{
			name: "ordering with both lot and lots",
			typ:  question.TypeOrdering,
			raw:  strings.Replace(validOTL, `"hintText": "",`, `"hintText": "", "lots": [{"lotItems": [{"id": "x", "lotItemText": "X"}]}],`, 1),
			rule: RuleLotCardinality,
		},
		{
			name: "empty lot",
			typ:  question.TypeMatching,
			raw:  strings.Replace(validMTL, `{"id": "r1", "lotItemText": "Stroma"},`+"\n      "+`{"id": "r2", "lotItemText": "Thylakoid membranes"}`, "", 1),
			rule: RuleEmptyLot,
		},
		{
			name: "single option",
			typ:  question.TypeSingleChoice,
			raw: `{"questionType": "SOL", "questionText": "q", "hintText": "", "timeLimit": 60, "points": 5,
				"lot": {"lotItems": [{"id": "a", "lotItemText": "A"}]}, "solution": {"SOL": {"itemId": "a"}}}`,
			rule: RuleTooFewItems,
		},
		{
			name: "blank item id",
			typ:  question.TypeSingleChoice,
			raw:  strings.Replace(validSOL, `"id": "c"`, `"id": " "`, 1),
			rule: RuleBlankItemID,
		},
		{
			name: "blank item text",
			typ:  question.TypeSingleChoice,
			raw:  strings.Replace(validSOL, `"Nucleus"`, `""`, 1),
			rule: RuleBlankItemText,
		},
		{
			name: "duplicate item id",
			typ:  question.TypeSingleChoice,
			raw:  strings.Replace(validSOL, `"id": "c"`, `"id": "a"`, 1),
			rule: RuleDuplicateItemID,
		},
		{
			name: "matching id shared across lots",
			typ:  question.TypeMatching,
			raw:  strings.Replace(validMTL, `"id": "r1"`, `"id": "l1"`, 1),
			rule: RuleDuplicateItemID,
		},
		{
			name: "wrong solution variant",
			typ:  question.TypeSingleChoice,
			raw:  strings.Replace(validSOL, `{"SOL": {"itemId": "b"}}`, `{"SML": {"itemIds": ["b"]}}`, 1),
			rule: RuleSolutionVariant,
		},
		{
			name: "empty sml solution",
			typ:  question.TypeMultipleChoice,
			raw:  strings.Replace(validSML, `["a", "b"]`, `[]`, 1),
			rule: RuleEmptySolution,
		},
		{
			name: "unknown sol id",
			typ:  question.TypeSingleChoice,
			raw:  strings.Replace(validSOL, `{"itemId": "b"}`, `{"itemId": "z"}`, 1),
			rule: RuleUnknownSolutionID,
		},
		{
			name: "duplicate sml id",
			typ:  question.TypeMultipleChoice,
			raw:  strings.Replace(validSML, `["a", "b"]`, `["a", "a"]`, 1),
			rule: RuleDuplicateSolutionID,
		},
		{
			name: "match with three ids",
			typ:  question.TypeMatching,
			raw:  strings.Replace(validMTL, `["l1", "r2"]`, `["l1", "r2", "r1"]`, 1),
			rule: RuleMatchArity,
		},
		{
			name: "reversed match orientation",
			typ:  question.TypeMatching,
			raw:  strings.Replace(validMTL, `["l1", "r2"]`, `["r2", "l1"]`, 1),
			rule: RuleUnknownSolutionID,
		},
		{
			name: "mtl id reused across pairs",
			typ:  question.TypeMatching,
			raw:  strings.Replace(validMTL, `["l2", "r1"]`, `["l2", "r2"]`, 1),
			rule: RuleReusedMatchID,
		},
		{
			name: "mtl leaves a left item unmatched",
			typ:  question.TypeMatching,
			raw:  strings.Replace(validMTL, `,`+"\n    "+`{"itemIds": ["l2", "r1"]}`, "", 1),
			rule: RuleIncompleteMatch,
		},
		{
			name: "otl omits an id",
			typ:  question.TypeOrdering,
			raw:  strings.Replace(validOTL, `,`+"\n    "+`{"itemId": "s3", "order": 3}`, "", 1),
			rule: RuleIncompleteOrder,
		},
		{
			name: "otl duplicates an id",
			typ:  question.TypeOrdering,
			raw:  strings.Replace(validOTL, `{"itemId": "s3", "order": 3}`, `{"itemId": "s2", "order": 3}`, 1),
			rule: RuleDuplicateOrderID,
		},
		{
			name: "otl unknown id",
			typ:  question.TypeOrdering,
			raw:  strings.Replace(validOTL, `{"itemId": "s3", "order": 3}`, `{"itemId": "s9", "order": 3}`, 1),
			rule: RuleUnknownSolutionID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Extract(tt.raw, tt.typ)
			if q != nil {
				t.Fatal("expected no question")
			}
			var sv *SchemaViolationError
			if !errors.As(err, &sv) {
				t.Fatalf("expected SchemaViolationError, got %T: %v", err, err)
			}
			if sv.Rule != tt.rule {
				t.Errorf("rule = %q (%s), want %q", sv.Rule, sv.Message, tt.rule)
			}
			if sv.Raw != tt.raw {
				t.Error("raw text not attached")
			}
		})
	}
}

func TestBalancedObjects(t *testing.T) {
	s := `a {"x": "}"} b {"y": {"z": 1}} c } {unterminated`
	got := balancedObjects(s)
	want := []string{`{"x": "}"}`, `{"y": {"z": 1}}`}
	if !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
