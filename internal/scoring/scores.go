package scoring

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
)

var (
	ErrInvalidBand   = errors.New("band must be between 0.0 and 9.0 in steps of 0.5")
	ErrUnknownModule = errors.New("unknown module")
)

// OverallBand derives the overall band from the module bands. It stays nil
// until reading and listening are both graded; from then on it is the
// half-band rounded mean of every module band present.
func OverallBand(scores models.SessionScores) *models.Band {
	if scores.Reading == nil || scores.Listening == nil {
		return nil
	}

	sum, n := 0.0, 0
	for _, b := range []*models.Band{scores.Reading, scores.Listening, scores.Writing, scores.Speaking} {
		if b != nil {
			sum += float64(*b)
			n++
		}
	}
	return RoundToHalfBand(sum / float64(n)).Ptr()
}

// WithOverall returns scores with Overall recomputed from the module bands.
func WithOverall(scores models.SessionScores) models.SessionScores {
	scores.Overall = OverallBand(scores)
	return scores
}

// ApplyGrade records band for module and re-derives the overall band. A
// later grade for the same module replaces the earlier one.
func ApplyGrade(current models.SessionScores, module models.Module, band models.Band) (models.SessionScores, error) {
	if !band.Valid() {
		return current, fmt.Errorf("%w: %v", ErrInvalidBand, float64(band))
	}

	next := current
	switch module {
	case models.ModuleReading:
		next.Reading = band.Ptr()
	case models.ModuleListening:
		next.Listening = band.Ptr()
	case models.ModuleWriting:
		next.Writing = band.Ptr()
	case models.ModuleSpeaking:
		next.Speaking = band.Ptr()
	default:
		return current, fmt.Errorf("%w: %q", ErrUnknownModule, module)
	}

	return WithOverall(next), nil
}

// ApplyResult records the band of a graded objective module.
func ApplyResult(current models.SessionScores, result models.ModuleResult) (models.SessionScores, error) {
	return ApplyGrade(current, result.Module, result.Band)
}

// State reports how far grading has progressed.
func State(scores models.SessionScores) models.GradingState {
	if scores.Reading == nil || scores.Listening == nil {
		return models.StateUngraded
	}
	if scores.Writing == nil || scores.Speaking == nil {
		return models.StatePartiallyGraded
	}
	return models.StateFullyGraded
}
