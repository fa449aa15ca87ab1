package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Module identifies one of the four IELTS papers.
type Module string

const (
	ModuleReading   Module = "reading"
	ModuleListening Module = "listening"
	ModuleWriting   Module = "writing"
	ModuleSpeaking  Module = "speaking"
)

// IsObjective reports whether the module is graded automatically against an answer key.
func (m Module) IsObjective() bool {
	return m == ModuleReading || m == ModuleListening
}

// IsManual reports whether the module is graded by a human examiner.
func (m Module) IsManual() bool {
	return m == ModuleWriting || m == ModuleSpeaking
}

func ParseModule(s string) (Module, error) {
	switch m := Module(strings.ToLower(strings.TrimSpace(s))); m {
	case ModuleReading, ModuleListening, ModuleWriting, ModuleSpeaking:
		return m, nil
	default:
		return "", fmt.Errorf("unknown module %q", s)
	}
}

// QuestionType is the type tag a question block declares.
type QuestionType string

const (
	QuestionMultipleChoice      QuestionType = "multiple-choice"
	QuestionMultiSelect         QuestionType = "multi-select"
	QuestionTrueFalseNotGiven   QuestionType = "true-false-not-given"
	QuestionYesNoNotGiven       QuestionType = "yes-no-not-given"
	QuestionGapFill             QuestionType = "gap-fill"
	QuestionSentenceCompletion  QuestionType = "sentence-completion"
	QuestionSummaryCompletion   QuestionType = "summary-completion"
	QuestionNoteCompletion      QuestionType = "note-completion"
	QuestionShortAnswer         QuestionType = "short-answer"
	QuestionMatching            QuestionType = "matching"
	QuestionMatchingHeadings    QuestionType = "matching-headings"
	QuestionMatchingInformation QuestionType = "matching-information"
	QuestionMapLabeling         QuestionType = "map-labeling"
	QuestionDiagramLabeling     QuestionType = "diagram-labeling"
	QuestionUnknown             QuestionType = "unknown"
)

// IsLabeling reports whether answers are drop-zone labels (string or number).
func (t QuestionType) IsLabeling() bool {
	return t == QuestionMapLabeling || t == QuestionDiagramLabeling
}

// IsTriState reports whether answers come from a fixed three-value enumeration.
func (t QuestionType) IsTriState() bool {
	return t == QuestionTrueFalseNotGiven || t == QuestionYesNoNotGiven
}

// IsFreeText reports whether answers are plain strings.
func (t QuestionType) IsFreeText() bool {
	switch t {
	case QuestionMultipleChoice, QuestionGapFill, QuestionSentenceCompletion,
		QuestionSummaryCompletion, QuestionNoteCompletion, QuestionShortAnswer,
		QuestionMatching, QuestionMatchingHeadings, QuestionMatchingInformation:
		return true
	}
	return false
}

// TriStateValues returns the accepted answers for a tri-state type.
func (t QuestionType) TriStateValues() []string {
	switch t {
	case QuestionTrueFalseNotGiven:
		return []string{"TRUE", "FALSE", "NOT GIVEN"}
	case QuestionYesNoNotGiven:
		return []string{"YES", "NO", "NOT GIVEN"}
	}
	return nil
}

// QuestionID is the canonical string form of a question identifier.
// Authoring content uses both numbers and strings; numbers are rendered
// without a trailing fraction so 7 and 7.0 both become "7".
type QuestionID string

// CanonicalQuestionID normalizes an identifier written as text. Numeric
// spellings collapse to one form, so "7", "07" and "7.0" are all "7".
func CanonicalQuestionID(s string) QuestionID {
	trimmed := strings.TrimSpace(s)
	if n, ok := QuestionID(trimmed).Numeric(); ok {
		return n
	}
	return QuestionID(trimmed)
}

// NewQuestionID canonicalizes a decoded JSON identifier.
func NewQuestionID(v any) (QuestionID, bool) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return "", false
		}
		return CanonicalQuestionID(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		return QuestionID(FormatNumber(t)), true
	case int:
		return QuestionID(strconv.Itoa(t)), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return "", false
		}
		return NewQuestionID(f)
	}
	return "", false
}

// Numeric returns the numeric-coerced form of the identifier, if it has one.
func (id QuestionID) Numeric() (QuestionID, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(id)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return QuestionID(FormatNumber(f)), true
}

func (id *QuestionID) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*id = ""
		return nil
	}
	canonical, ok := NewQuestionID(raw)
	if !ok {
		return fmt.Errorf("invalid question id %s", string(b))
	}
	*id = canonical
	return nil
}

// UnmarshalText canonicalizes ids used as JSON object keys.
func (id *QuestionID) UnmarshalText(b []byte) error {
	*id = CanonicalQuestionID(string(b))
	return nil
}

// FormatNumber renders a float with the shortest exact representation.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// QuestionSchema maps question identifiers to their declared type.
type QuestionSchema map[QuestionID]QuestionType

// Lookup finds a question by exact id first, then by numeric-coerced id.
func (s QuestionSchema) Lookup(id QuestionID) (QuestionType, bool) {
	if t, ok := s[id]; ok {
		return t, true
	}
	if n, ok := id.Numeric(); ok {
		t, ok := s[n]
		return t, ok
	}
	return "", false
}

// AnswerMap holds submitted values keyed by question id. Values keep their
// decoded JSON shape: string, float64, []any, bool or nil.
type AnswerMap map[QuestionID]any

// Lookup finds a submitted value by exact id first, then by numeric-coerced id.
func (m AnswerMap) Lookup(id QuestionID) (any, bool) {
	if v, ok := m[id]; ok {
		return v, true
	}
	if n, ok := id.Numeric(); ok {
		if v, ok := m[n]; ok {
			return v, true
		}
		for _, k := range m.sortedIDs() {
			if kn, ok := k.Numeric(); ok && kn == n {
				return m[k], true
			}
		}
	}
	return nil, false
}

// Canonical rekeys m by canonical id. When several spellings collapse to
// the same id, the canonical spelling wins, then the lexically last one.
func (m AnswerMap) Canonical() AnswerMap {
	ids := m.sortedIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		return ids[i] != CanonicalQuestionID(string(ids[i])) && ids[j] == CanonicalQuestionID(string(ids[j]))
	})

	out := make(AnswerMap, len(m))
	for _, id := range ids {
		out[CanonicalQuestionID(string(id))] = m[id]
	}
	return out
}

func (m AnswerMap) sortedIDs() []QuestionID {
	ids := make([]QuestionID, 0, len(m))
	for k := range m {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Merge returns a copy of m with every entry of update applied; the update wins per id.
func (m AnswerMap) Merge(update AnswerMap) AnswerMap {
	merged := make(AnswerMap, len(m)+len(update))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}
	return merged
}

// AnswerKey holds the authoritative correct value per question id.
type AnswerKey map[QuestionID]any

// WritingResponses is the essay payload of the writing module.
type WritingResponses struct {
	Task1Text *string `json:"task1Text,omitempty"`
	Task2Text *string `json:"task2Text,omitempty"`
}

// Merge applies the tasks present in update over w.
func (w WritingResponses) Merge(update WritingResponses) WritingResponses {
	if update.Task1Text != nil {
		w.Task1Text = update.Task1Text
	}
	if update.Task2Text != nil {
		w.Task2Text = update.Task2Text
	}
	return w
}

// SortQuestionIDs orders numeric ids by value, followed by the remaining ids
// in lexical order.
func SortQuestionIDs(ids []QuestionID) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, aErr := strconv.ParseFloat(string(ids[i]), 64)
		b, bErr := strconv.ParseFloat(string(ids[j]), 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return ids[i] < ids[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}
