package validator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/SAP-F-2025/ielts-exam-service/internal/errors"
	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
)

// Warning is a non-fatal finding about a submitted payload.
type Warning struct {
	Field        string              `json:"field"`
	QuestionType models.QuestionType `json:"question_type,omitempty"`
	Message      string              `json:"message"`
}

// AnswerValidationResult is the outcome of validating reading or listening
// answers. Valid is always true: shape problems never block a save.
type AnswerValidationResult struct {
	Valid            bool                       `json:"valid"`
	Errors           apperrors.ValidationErrors `json:"errors"`
	Warnings         []Warning                  `json:"warnings"`
	ValidatedAnswers models.AnswerMap           `json:"validated_answers"`
}

// ValidateAnswers checks every submitted answer against the shape its
// question type expects. Mismatches and unknown ids become warnings and the
// value is passed through unchanged.
func ValidateAnswers(answers models.AnswerMap, schema models.QuestionSchema) AnswerValidationResult {
	result := AnswerValidationResult{
		Valid:            true,
		Errors:           apperrors.ValidationErrors{},
		Warnings:         []Warning{},
		ValidatedAnswers: make(models.AnswerMap, len(answers)),
	}

	ids := make([]models.QuestionID, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	models.SortQuestionIDs(ids)

	for _, id := range ids {
		value := answers[id]
		result.ValidatedAnswers[id] = value

		qType, ok := schema.Lookup(id)
		if !ok {
			result.Warnings = append(result.Warnings, Warning{
				Field:   string(id),
				Message: fmt.Sprintf("question %s not found in schema", id),
			})
			continue
		}

		if msg, ok := checkShape(qType, value); !ok {
			result.Warnings = append(result.Warnings, Warning{
				Field:        string(id),
				QuestionType: qType,
				Message:      msg,
			})
		}
	}

	return result
}

func checkShape(t models.QuestionType, value any) (string, bool) {
	switch {
	case t.IsTriState():
		allowed := t.TriStateValues()
		s, ok := value.(string)
		if ok && containsFold(allowed, s) {
			return "", true
		}
		return fmt.Sprintf("%s answer must be one of %s, got %s", t, strings.Join(allowed, ", "), describe(value)), false
	case t == models.QuestionMultiSelect:
		if isStringList(value) {
			return "", true
		}
		return fmt.Sprintf("%s answer must be an array of strings, got %s", t, describe(value)), false
	case t.IsLabeling():
		switch value.(type) {
		case string, float64, int, json.Number:
			return "", true
		}
		return fmt.Sprintf("%s answer must be a string or number, got %s", t, describe(value)), false
	case t.IsFreeText():
		if _, ok := value.(string); ok {
			return "", true
		}
		return fmt.Sprintf("%s answer must be a string, got %s", t, describe(value)), false
	}
	return "", true
}

func containsFold(allowed []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, a := range allowed {
		if strings.EqualFold(a, s) {
			return true
		}
	}
	return false
}

func isStringList(value any) bool {
	switch list := value.(type) {
	case []string:
		return true
	case []any:
		for _, v := range list {
			if _, ok := v.(string); !ok {
				return false
			}
		}
		return true
	}
	return false
}

func describe(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, int, json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", value)
}

const (
	writingTask1 = "task1Text"
	writingTask2 = "task2Text"
)

// WritingValidationResult is the outcome of validating a writing payload.
// Responses is populated only when Valid is true.
type WritingValidationResult struct {
	Valid     bool                       `json:"valid"`
	Errors    apperrors.ValidationErrors `json:"errors"`
	Warnings  []Warning                  `json:"warnings"`
	Responses models.WritingResponses    `json:"-"`
}

// ValidateWritingResponses enforces the essay payload contract: an object
// whose task texts, when present, are strings. Unknown keys are tolerated
// with a warning.
func ValidateWritingResponses(responses any) WritingValidationResult {
	result := WritingValidationResult{
		Valid:    true,
		Errors:   apperrors.ValidationErrors{},
		Warnings: []Warning{},
	}

	obj, ok := responses.(map[string]any)
	if !ok {
		result.Valid = false
		result.Errors = append(result.Errors, *apperrors.NewValidationErrorWithRule(
			"writing", fmt.Sprintf("must be an object, got %s", describe(responses)), "object", responses))
		return result
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := obj[key]
		switch key {
		case writingTask1, writingTask2:
			text, ok := value.(string)
			if !ok {
				result.Valid = false
				result.Errors = append(result.Errors, *apperrors.NewValidationErrorWithRule(
					key, fmt.Sprintf("must be a string, got %s", describe(value)), "string", value))
				continue
			}
			if key == writingTask1 {
				result.Responses.Task1Text = &text
			} else {
				result.Responses.Task2Text = &text
			}
		default:
			result.Warnings = append(result.Warnings, Warning{
				Field:   key,
				Message: fmt.Sprintf("unknown writing field %s ignored", key),
			})
		}
	}

	if !result.Valid {
		result.Responses = models.WritingResponses{}
	}
	return result
}
