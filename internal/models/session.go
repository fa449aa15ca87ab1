package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionSubmitted  SessionStatus = "submitted"
)

// SessionAnswers is everything a candidate submitted, per module.
type SessionAnswers struct {
	Reading   AnswerMap        `json:"reading"`
	Listening AnswerMap        `json:"listening"`
	Writing   WritingResponses `json:"writing"`
}

// ExamSession is one candidate's sitting of a test. Each module's answers
// live in their own column so autosaves of different modules never overwrite
// each other.
type ExamSession struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	TestID    uint          `json:"test_id" gorm:"not null;index"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;index"`
	Status    SessionStatus `json:"status" gorm:"not null;default:in_progress;index"`

	ReadingAnswers   datatypes.JSONType[AnswerMap]        `json:"reading_answers" gorm:"type:jsonb"`
	ListeningAnswers datatypes.JSONType[AnswerMap]        `json:"listening_answers" gorm:"type:jsonb"`
	WritingAnswers   datatypes.JSONType[WritingResponses] `json:"writing_answers" gorm:"type:jsonb"`

	ReadingBand   *Band `json:"reading_band"`
	ListeningBand *Band `json:"listening_band"`
	WritingBand   *Band `json:"writing_band"`
	SpeakingBand  *Band `json:"speaking_band"`
	OverallBand   *Band `json:"overall_band"`

	ReadingResult   datatypes.JSONType[*ModuleResult] `json:"reading_result" gorm:"type:jsonb"`
	ListeningResult datatypes.JSONType[*ModuleResult] `json:"listening_result" gorm:"type:jsonb"`

	// Version increments on every write; updates are conditional on it.
	Version int `json:"version" gorm:"not null;default:1"`

	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	GradedAt    *time.Time `json:"graded_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (ExamSession) TableName() string {
	return "exam_sessions"
}

func (s *ExamSession) Answers() SessionAnswers {
	return SessionAnswers{
		Reading:   s.ReadingAnswers.Data(),
		Listening: s.ListeningAnswers.Data(),
		Writing:   s.WritingAnswers.Data(),
	}
}

func (s *ExamSession) Scores() SessionScores {
	return SessionScores{
		Reading:   s.ReadingBand,
		Listening: s.ListeningBand,
		Writing:   s.WritingBand,
		Speaking:  s.SpeakingBand,
		Overall:   s.OverallBand,
	}
}

func (s *ExamSession) SetScores(scores SessionScores) {
	s.ReadingBand = scores.Reading
	s.ListeningBand = scores.Listening
	s.WritingBand = scores.Writing
	s.SpeakingBand = scores.Speaking
	s.OverallBand = scores.Overall
}
