package models

// QuestionResult is the grading outcome of one keyed question.
type QuestionResult struct {
	ID        QuestionID `json:"id"`
	Submitted any        `json:"submitted"`
	Correct   any        `json:"correct"`
	IsCorrect bool       `json:"is_correct"`
}

// ModuleResult is the graded outcome of an objective module.
type ModuleResult struct {
	Module     Module           `json:"module"`
	RawCorrect int              `json:"raw_correct"`
	RawTotal   int              `json:"raw_total"`
	Band       Band             `json:"band"`
	Questions  []QuestionResult `json:"questions"`
}

// GradingState describes how far a session's scores have progressed.
type GradingState string

const (
	StateUngraded        GradingState = "ungraded"
	StatePartiallyGraded GradingState = "partially_graded"
	StateFullyGraded     GradingState = "fully_graded"
)

// SessionScores holds the module bands of a session. Overall is always
// derived from the module bands and never set on its own.
type SessionScores struct {
	Reading   *Band `json:"reading"`
	Listening *Band `json:"listening"`
	Writing   *Band `json:"writing"`
	Speaking  *Band `json:"speaking"`
	Overall   *Band `json:"overall"`
}

// Module returns the band recorded for m, if any.
func (s SessionScores) Module(m Module) *Band {
	switch m {
	case ModuleReading:
		return s.Reading
	case ModuleListening:
		return s.Listening
	case ModuleWriting:
		return s.Writing
	case ModuleSpeaking:
		return s.Speaking
	}
	return nil
}
