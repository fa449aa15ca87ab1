package scoring

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
)

// Result holds the graded objective modules of a session.
type Result struct {
	Reading   models.ModuleResult `json:"reading"`
	Listening models.ModuleResult `json:"listening"`
}

// Score grades the reading and listening answers of a session against the
// test's answer keys. The same inputs always produce the same result.
func Score(answers *models.SessionAnswers, def *models.TestDefinition) Result {
	if answers == nil {
		answers = &models.SessionAnswers{}
	}
	if def == nil {
		def = &models.TestDefinition{}
	}
	return Result{
		Reading:   GradeModule(models.ModuleReading, answers.Reading, def.AnswerKey(models.ModuleReading)),
		Listening: GradeModule(models.ModuleListening, answers.Listening, def.AnswerKey(models.ModuleListening)),
	}
}

// GradeModule walks the answer key, not the submission: extra submitted ids
// are ignored and keyed ids without a submission count as incorrect.
func GradeModule(module models.Module, answers models.AnswerMap, key models.AnswerKey) models.ModuleResult {
	matches := matcherFor(module)

	ids := make([]models.QuestionID, 0, len(key))
	for id := range key {
		ids = append(ids, id)
	}
	models.SortQuestionIDs(ids)

	result := models.ModuleResult{
		Module:    module,
		RawTotal:  len(ids),
		Questions: make([]models.QuestionResult, 0, len(ids)),
	}

	for _, id := range ids {
		correct := key[id]
		submitted, ok := answers.Lookup(id)
		isCorrect := ok && matches(submitted, correct)
		if isCorrect {
			result.RawCorrect++
		}
		result.Questions = append(result.Questions, models.QuestionResult{
			ID:        id,
			Submitted: submitted,
			Correct:   correct,
			IsCorrect: isCorrect,
		})
	}

	result.Band = BandFromRawCount(result.RawCorrect)
	return result
}

type matcher func(submitted, correct any) bool

// Listening tolerates transcription variance in case and surrounding
// whitespace; reading requires the exact answer.
func matcherFor(module models.Module) matcher {
	if module == models.ModuleListening {
		return lenientEqual
	}
	return exactEqual
}

func exactEqual(submitted, correct any) bool {
	if a, ok := asList(submitted); ok {
		b, ok := asList(correct)
		return ok && sameSet(a, b, func(s string) string { return s })
	}
	if _, ok := asList(correct); ok {
		return false
	}

	switch c := correct.(type) {
	case string:
		s, ok := submitted.(string)
		return ok && s == c
	case float64:
		s, ok := submitted.(float64)
		return ok && s == c
	case bool:
		s, ok := submitted.(bool)
		return ok && s == c
	case nil:
		return false
	}
	return false
}

func lenientEqual(submitted, correct any) bool {
	if a, ok := asList(submitted); ok {
		b, ok := asList(correct)
		return ok && sameSet(a, b, normalize)
	}
	if _, ok := asList(correct); ok {
		return false
	}

	s, ok := text(submitted)
	if !ok {
		return false
	}
	c, ok := text(correct)
	return ok && normalize(s) == normalize(c)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return models.FormatNumber(t), true
	case int:
		return models.FormatNumber(float64(t)), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func asList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := text(e)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// sameSet compares selections without regard to order.
func sameSet(a, b []string, norm func(string) string) bool {
	if len(a) != len(b) {
		return false
	}
	x := make([]string, len(a))
	y := make([]string, len(b))
	for i := range a {
		x[i] = norm(a[i])
		y[i] = norm(b[i])
	}
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
