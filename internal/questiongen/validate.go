package questiongen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/quizgen/internal/question"
)

// Rule identifiers reported in SchemaViolationError.Rule.
const (
	RuleShape               = "shape"
	RuleTypeMismatch        = "question_type_mismatch"
	RuleBlankQuestionText   = "blank_question_text"
	RulePlaceholder         = "unreplaced_placeholder"
	RuleLotCardinality      = "lot_cardinality"
	RuleEmptyLot            = "empty_lot"
	RuleTooFewItems         = "too_few_items"
	RuleBlankItemID         = "blank_item_id"
	RuleBlankItemText       = "blank_item_text"
	RuleDuplicateItemID     = "duplicate_item_id"
	RuleSolutionVariant     = "solution_variant"
	RuleEmptySolution       = "empty_solution"
	RuleUnknownSolutionID   = "unknown_solution_id"
	RuleDuplicateSolutionID = "duplicate_solution_id"
	RuleMatchArity          = "match_arity"
	RuleReusedMatchID       = "reused_match_id"
	RuleIncompleteMatch     = "incomplete_match"
	RuleIncompleteOrder     = "incomplete_order"
	RuleDuplicateOrderID    = "duplicate_order_id"
)

// minChoiceItems is the smallest lot a choice or ordering question can use.
const minChoiceItems = 2

// questionOutput is the decoded model response before validation.
type questionOutput struct {
	QuestionType string                     `json:"questionType"`
	QuestionText string                     `json:"questionText"`
	HintText     string                     `json:"hintText"`
	Difficulty   int                        `json:"difficulty"`
	TimeLimit    int                        `json:"timeLimit"`
	Points       int                        `json:"points"`
	Lot          *lotOutput                 `json:"lot"`
	Lots         []lotOutput                `json:"lots"`
	Solution     map[string]json.RawMessage `json:"solution"`
}

type lotOutput struct {
	LotID    string       `json:"lotId"`
	LotItems []itemOutput `json:"lotItems"`
}

type itemOutput struct {
	ID          string `json:"id"`
	LotItemText string `json:"lotItemText"`
	Explanation string `json:"explanation"`

	// Older prompts spelled the field this way and models still echo it.
	Explaination string `json:"explaination"`
}

func (it itemOutput) explanation() string {
	if it.Explanation != "" {
		return it.Explanation
	}
	return it.Explaination
}

type matchOutput struct {
	ItemIDs []string `json:"itemIds"`
}

type orderOutput struct {
	ItemID string `json:"itemId"`
	Order  *int   `json:"order"`
}

type solutionOutput struct {
	ItemID  string        `json:"itemId"`
	ItemIDs []string      `json:"itemIds"`
	Matches []matchOutput `json:"matches"`
	Orders  []orderOutput `json:"orders"`
}

func violation(rule, format string, args ...any) *SchemaViolationError {
	return &SchemaViolationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// build applies the semantic rules in order and returns the first
// violation, or the constructed question.
func build(tpl Template, out *questionOutput) (*question.Question, *SchemaViolationError) {
	if got := strings.ToUpper(strings.TrimSpace(out.QuestionType)); got != string(tpl.Type) {
		return nil, violation(RuleTypeMismatch, "questionType is %q, want %q", out.QuestionType, tpl.Type)
	}
	if strings.TrimSpace(out.QuestionText) == "" {
		return nil, violation(RuleBlankQuestionText, "questionText is blank")
	}
	if v := checkPlaceholders(out); v != nil {
		return nil, v
	}

	lots, v := normalizeLots(tpl, out)
	if v != nil {
		return nil, v
	}
	if v := checkLots(tpl, lots); v != nil {
		return nil, v
	}

	sol, v := buildSolution(tpl, out.Solution, lots)
	if v != nil {
		return nil, v
	}

	q := &question.Question{
		Type:       tpl.Type,
		Text:       strings.TrimSpace(out.QuestionText),
		Hint:       strings.TrimSpace(out.HintText),
		Difficulty: clampDifficulty(out.Difficulty),
		TimeLimit:  out.TimeLimit,
		Points:     out.Points,
		Solution:   sol,
		Meta:       &question.MetaDetails{IsAIGenerated: true},
	}
	if tpl.LotCount() == 1 {
		q.Lot = &lots[0]
	} else {
		q.Lots = lots
	}
	return q, nil
}

// clampDifficulty keeps difficulty in range. Zero means the model left it
// out and is kept as is.
func clampDifficulty(d int) int {
	if d == 0 {
		return 0
	}
	return min(max(d, MinDifficulty), MaxDifficulty)
}

// normalizeLots enforces lot cardinality: single-lot types use "lot" and
// matching uses exactly two entries in "lots".
func normalizeLots(tpl Template, out *questionOutput) ([]question.Lot, *SchemaViolationError) {
	var raw []lotOutput
	switch want := tpl.LotCount(); {
	case want == 1 && out.Lot != nil && len(out.Lots) == 0:
		raw = []lotOutput{*out.Lot}
	case want == 1:
		return nil, violation(RuleLotCardinality, "%s needs exactly one lot in \"lot\"", tpl.Type)
	case out.Lot == nil && len(out.Lots) == want:
		raw = out.Lots
	default:
		return nil, violation(RuleLotCardinality, "%s needs exactly %d lots in \"lots\", got %d", tpl.Type, want, len(out.Lots))
	}

	lots := make([]question.Lot, len(raw))
	for i, l := range raw {
		items := make([]question.LotItem, len(l.LotItems))
		for j, it := range l.LotItems {
			items[j] = question.LotItem{
				ID:          strings.TrimSpace(it.ID),
				Text:        strings.TrimSpace(it.LotItemText),
				Explanation: strings.TrimSpace(it.explanation()),
			}
		}
		lots[i] = question.Lot{ID: strings.TrimSpace(l.LotID), Items: items}
	}
	return lots, nil
}

// checkLots validates items. Ids must be unique across every lot of the
// question so a solution id is never ambiguous.
func checkLots(tpl Template, lots []question.Lot) *SchemaViolationError {
	seen := make(map[string]bool)
	for i, l := range lots {
		if len(l.Items) == 0 {
			return violation(RuleEmptyLot, "lot %d has no items", i)
		}
		if tpl.LotCount() == 1 && len(l.Items) < minChoiceItems {
			return violation(RuleTooFewItems, "lot has %d item(s), need at least %d", len(l.Items), minChoiceItems)
		}
		for j, it := range l.Items {
			if it.ID == "" {
				return violation(RuleBlankItemID, "lot %d item %d has a blank id", i, j)
			}
			if it.Text == "" {
				return violation(RuleBlankItemText, "item %q has blank text", it.ID)
			}
			if seen[it.ID] {
				return violation(RuleDuplicateItemID, "item id %q appears more than once", it.ID)
			}
			seen[it.ID] = true
		}
	}
	return nil
}

func buildSolution(tpl Template, raw map[string]json.RawMessage, lots []question.Lot) (question.Solution, *SchemaViolationError) {
	sol := question.Solution{Type: tpl.Type}

	var body json.RawMessage
	for k, v := range raw {
		if strings.EqualFold(strings.TrimSpace(k), string(tpl.Type)) {
			body = v
			continue
		}
		return sol, violation(RuleSolutionVariant, "solution has variant %q, want only %q", k, tpl.Type)
	}
	if body == nil {
		return sol, violation(RuleSolutionVariant, "solution has no %q variant", tpl.Type)
	}

	var out solutionOutput
	if err := json.Unmarshal(body, &out); err != nil {
		return sol, violation(RuleSolutionVariant, "decode %s solution: %v", tpl.Type, err)
	}

	switch tpl.Type {
	case question.TypeSingleChoice:
		return singleChoiceSolution(sol, out, lots[0])
	case question.TypeMultipleChoice:
		return multipleChoiceSolution(sol, out, lots[0])
	case question.TypeOrdering:
		return orderingSolution(sol, out, lots[0])
	default:
		return matchingSolution(sol, out, lots)
	}
}

func singleChoiceSolution(sol question.Solution, out solutionOutput, lot question.Lot) (question.Solution, *SchemaViolationError) {
	id := strings.TrimSpace(out.ItemID)
	if id == "" {
		return sol, violation(RuleEmptySolution, "SOL solution has no itemId")
	}
	if _, ok := lot.Find(id); !ok {
		return sol, violation(RuleUnknownSolutionID, "solution item %q is not in the lot", id)
	}
	sol.ItemID = id
	return sol, nil
}

func multipleChoiceSolution(sol question.Solution, out solutionOutput, lot question.Lot) (question.Solution, *SchemaViolationError) {
	if len(out.ItemIDs) == 0 {
		return sol, violation(RuleEmptySolution, "SML solution has no itemIds")
	}
	seen := make(map[string]bool, len(out.ItemIDs))
	for _, raw := range out.ItemIDs {
		id := strings.TrimSpace(raw)
		if _, ok := lot.Find(id); !ok {
			return sol, violation(RuleUnknownSolutionID, "solution item %q is not in the lot", id)
		}
		if seen[id] {
			return sol, violation(RuleDuplicateSolutionID, "solution item %q listed twice", id)
		}
		seen[id] = true
		sol.ItemIDs = append(sol.ItemIDs, id)
	}
	return sol, nil
}

// matchingSolution requires each pair to be [left id, right id].
func matchingSolution(sol question.Solution, out solutionOutput, lots []question.Lot) (question.Solution, *SchemaViolationError) {
	if len(out.Matches) == 0 {
		return sol, violation(RuleEmptySolution, "MTL solution has no matches")
	}
	left, right := lots[0], lots[1]
	used := make(map[string]bool)
	for i, m := range out.Matches {
		if len(m.ItemIDs) != 2 {
			return sol, violation(RuleMatchArity, "match %d has %d ids, want 2", i, len(m.ItemIDs))
		}
		l, r := strings.TrimSpace(m.ItemIDs[0]), strings.TrimSpace(m.ItemIDs[1])
		if _, ok := left.Find(l); !ok {
			return sol, violation(RuleUnknownSolutionID, "match %d: %q is not in the first lot", i, l)
		}
		if _, ok := right.Find(r); !ok {
			return sol, violation(RuleUnknownSolutionID, "match %d: %q is not in the second lot", i, r)
		}
		for _, id := range []string{l, r} {
			if used[id] {
				return sol, violation(RuleReusedMatchID, "item %q is used in more than one match", id)
			}
			used[id] = true
		}
		sol.Matches = append(sol.Matches, question.Match{Left: l, Right: r})
	}
	if len(sol.Matches) != len(left.Items) {
		return sol, violation(RuleIncompleteMatch, "%d of %d items in the first lot are matched", len(sol.Matches), len(left.Items))
	}
	return sol, nil
}

// orderingSolution requires orders to be a permutation of the lot. When
// every entry carries an order number the entries are sorted by it.
func orderingSolution(sol question.Solution, out solutionOutput, lot question.Lot) (question.Solution, *SchemaViolationError) {
	if len(out.Orders) == 0 {
		return sol, violation(RuleEmptySolution, "OTL solution has no orders")
	}

	orders := append([]orderOutput(nil), out.Orders...)
	numbered := true
	for _, o := range orders {
		if o.Order == nil {
			numbered = false
			break
		}
	}
	if numbered {
		sort.SliceStable(orders, func(i, j int) bool { return *orders[i].Order < *orders[j].Order })
	}

	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		id := strings.TrimSpace(o.ItemID)
		if _, ok := lot.Find(id); !ok {
			return sol, violation(RuleUnknownSolutionID, "order item %q is not in the lot", id)
		}
		if seen[id] {
			return sol, violation(RuleDuplicateOrderID, "order item %q listed twice", id)
		}
		seen[id] = true
		sol.Order = append(sol.Order, id)
	}
	if len(sol.Order) != len(lot.Items) {
		var missing []string
		for _, id := range lot.IDs() {
			if !seen[id] {
				missing = append(missing, id)
			}
		}
		return sol, violation(RuleIncompleteOrder, "orders omit %s", strings.Join(missing, ", "))
	}
	return sol, nil
}

// checkPlaceholders rejects responses that kept filler text from the
// example shape.
func checkPlaceholders(out *questionOutput) *SchemaViolationError {
	fields := []string{out.QuestionText, out.HintText}
	addLot := func(l lotOutput) {
		fields = append(fields, l.LotID)
		for _, it := range l.LotItems {
			fields = append(fields, it.ID, it.LotItemText, it.explanation())
		}
	}
	if out.Lot != nil {
		addLot(*out.Lot)
	}
	for _, l := range out.Lots {
		addLot(l)
	}
	for _, body := range out.Solution {
		fields = append(fields, string(body))
	}

	for _, f := range fields {
		for _, p := range placeholders {
			if strings.Contains(f, p) {
				return violation(RulePlaceholder, "placeholder %q was not replaced", p)
			}
		}
	}
	return nil
}
