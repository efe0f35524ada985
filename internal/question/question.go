package question

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type identifies the answer shape of a question.
type Type string

const (
	// TypeSingleChoice has exactly one correct option.
	TypeSingleChoice Type = "SOL"

	// TypeMultipleChoice has one or more correct options.
	TypeMultipleChoice Type = "SML"

	// TypeMatching pairs items of a left list with items of a right list.
	TypeMatching Type = "MTL"

	// TypeOrdering asks for the correct sequence of its items.
	TypeOrdering Type = "OTL"
)

// Types lists every supported question type.
var Types = []Type{TypeSingleChoice, TypeMultipleChoice, TypeMatching, TypeOrdering}

// ParseType parses a type tag case-insensitively. The boolean reports
// whether the tag names a supported type.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TypeSingleChoice, TypeMultipleChoice, TypeMatching, TypeOrdering:
		return t, true
	}
	return "", false
}

// Resolve parses a type tag, falling back to TypeMatching for anything
// unrecognized.
func Resolve(s string) Type {
	if t, ok := ParseType(s); ok {
		return t
	}
	return TypeMatching
}

// Label returns a human-readable name for the type.
func (t Type) Label() string {
	switch t {
	case TypeSingleChoice:
		return "single-answer multiple choice"
	case TypeMultipleChoice:
		return "multiple-answer multiple choice"
	case TypeMatching:
		return "matching"
	case TypeOrdering:
		return "ordering"
	default:
		return string(t)
	}
}

// LotCount is the number of item groups a question of this type carries.
func (t Type) LotCount() int {
	if t == TypeMatching {
		return 2
	}
	return 1
}

// LotItem is one option, orderable item, or matchable item.
type LotItem struct {
	ID          string `json:"id"`
	Text        string `json:"lotItemText"`
	Explanation string `json:"explanation,omitempty"`
}

// Lot is an ordered group of items. For ordering questions the slice
// order is the display order; for matching questions lots[0] is the left
// column and lots[1] the right.
type Lot struct {
	ID    string    `json:"lotId,omitempty"`
	Items []LotItem `json:"lotItems"`
}

// Find returns the item with the given id.
func (l Lot) Find(id string) (LotItem, bool) {
	for _, it := range l.Items {
		if it.ID == id {
			return it, true
		}
	}
	return LotItem{}, false
}

// IDs returns item ids in lot order.
func (l Lot) IDs() []string {
	ids := make([]string, len(l.Items))
	for i, it := range l.Items {
		ids[i] = it.ID
	}
	return ids
}

func (l Lot) clone() Lot {
	return Lot{ID: l.ID, Items: append([]LotItem(nil), l.Items...)}
}

// Match pairs a left-column item with a right-column item.
type Match struct {
	Left  string
	Right string
}

// Solution is the answer key. Exactly one of the variant fields is
// populated, selected by Type.
type Solution struct {
	Type Type

	// ItemID is the correct item of a single-choice question.
	ItemID string

	// ItemIDs are the correct items of a multiple-choice question.
	ItemIDs []string

	// Matches are the correct pairs of a matching question.
	Matches []Match

	// Order is the correct sequence of item ids of an ordering question.
	Order []string
}

type solutionItem struct {
	ItemID string `json:"itemId"`
}

type solutionItems struct {
	ItemIDs []string `json:"itemIds"`
}

type solutionMatches struct {
	Matches []solutionItems `json:"matches"`
}

type solutionOrderEntry struct {
	ItemID string `json:"itemId"`
	Order  int    `json:"order"`
}

type solutionOrders struct {
	Orders []solutionOrderEntry `json:"orders"`
}

// MarshalJSON encodes the solution keyed by its type tag, e.g.
// {"SOL":{"itemId":"b"}}.
func (s Solution) MarshalJSON() ([]byte, error) {
	var body any
	switch s.Type {
	case TypeSingleChoice:
		body = solutionItem{ItemID: s.ItemID}
	case TypeMultipleChoice:
		body = solutionItems{ItemIDs: nonNil(s.ItemIDs)}
	case TypeMatching:
		m := solutionMatches{Matches: make([]solutionItems, len(s.Matches))}
		for i, p := range s.Matches {
			m.Matches[i] = solutionItems{ItemIDs: []string{p.Left, p.Right}}
		}
		body = m
	case TypeOrdering:
		o := solutionOrders{Orders: make([]solutionOrderEntry, len(s.Order))}
		for i, id := range s.Order {
			o.Orders[i] = solutionOrderEntry{ItemID: id, Order: i + 1}
		}
		body = o
	default:
		return nil, fmt.Errorf("marshal solution: unknown type %q", s.Type)
	}
	return json.Marshal(map[string]any{string(s.Type): body})
}

func (s Solution) clone() Solution {
	return Solution{
		Type:    s.Type,
		ItemID:  s.ItemID,
		ItemIDs: append([]string(nil), s.ItemIDs...),
		Matches: append([]Match(nil), s.Matches...),
		Order:   append([]string(nil), s.Order...),
	}
}

// MetaDetails records where a question came from.
type MetaDetails struct {
	IsStudentGenerated bool `json:"isStudentGenerated"`
	IsAIGenerated      bool `json:"isAIGenerated"`
}

// Question is a validated, typed quiz question. Values are built once by
// the extractor and treated as read-only afterwards; use Clone to derive
// a modified copy.
type Question struct {
	Type       Type     `json:"questionType"`
	Text       string   `json:"questionText"`
	Hint       string   `json:"hintText"`
	Difficulty int      `json:"difficulty,omitempty"`
	TimeLimit  int      `json:"timeLimit"`
	Points     int      `json:"points"`
	Lot        *Lot     `json:"lot,omitempty"`
	Lots       []Lot    `json:"lots,omitempty"`
	Solution   Solution `json:"solution"`

	Meta *MetaDetails `json:"metaDetails,omitempty"`
}

// Clone returns a deep copy.
func (q *Question) Clone() *Question {
	c := *q
	if q.Meta != nil {
		m := *q.Meta
		c.Meta = &m
	}
	if q.Lot != nil {
		l := q.Lot.clone()
		c.Lot = &l
	}
	if q.Lots != nil {
		c.Lots = make([]Lot, len(q.Lots))
		for i, l := range q.Lots {
			c.Lots[i] = l.clone()
		}
	}
	c.Solution = q.Solution.clone()
	return &c
}

// CorrectItems returns the correct items of a choice question in lot order.
// It returns nil for matching and ordering questions.
func (q *Question) CorrectItems() []LotItem {
	if q.Lot == nil {
		return nil
	}
	var ids []string
	switch q.Type {
	case TypeSingleChoice:
		ids = []string{q.Solution.ItemID}
	case TypeMultipleChoice:
		ids = q.Solution.ItemIDs
	default:
		return nil
	}
	var out []LotItem
	for _, it := range q.Lot.Items {
		for _, id := range ids {
			if it.ID == id {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
