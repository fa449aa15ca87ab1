package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TestStatus string

const (
	TestDraft     TestStatus = "draft"
	TestPublished TestStatus = "published"
	TestArchived  TestStatus = "archived"
)

// QuestionGroup is a reading section or listening part. Question blocks are
// kept raw because their shape varies by authoring version.
type QuestionGroup struct {
	Title     string            `json:"title,omitempty"`
	Passage   string            `json:"passage,omitempty"`
	AudioURL  string            `json:"audioUrl,omitempty"`
	Questions []json.RawMessage `json:"questions"`
}

type ReadingPaper struct {
	Sections []QuestionGroup `json:"sections"`
}

type ListeningPaper struct {
	Parts []QuestionGroup `json:"parts"`
}

// AnswerContent carries the answer key of a module. It is never part of the
// candidate-facing view of a test.
type AnswerContent struct {
	Answers AnswerKey `json:"answers"`
}

// TestDefinition is the engine's view of a test.
type TestDefinition struct {
	Reading          ReadingPaper   `json:"reading"`
	Listening        ListeningPaper `json:"listening"`
	ReadingContent   AnswerContent  `json:"readingContent"`
	ListeningContent AnswerContent  `json:"listeningContent"`
}

// Blocks returns the raw question blocks of an objective module in paper order.
func (d *TestDefinition) Blocks(module Module) []json.RawMessage {
	var groups []QuestionGroup
	switch module {
	case ModuleReading:
		groups = d.Reading.Sections
	case ModuleListening:
		groups = d.Listening.Parts
	default:
		return nil
	}

	var blocks []json.RawMessage
	for _, g := range groups {
		blocks = append(blocks, g.Questions...)
	}
	return blocks
}

// AnswerKey returns the authoritative key of an objective module.
func (d *TestDefinition) AnswerKey(module Module) AnswerKey {
	switch module {
	case ModuleReading:
		return d.ReadingContent.Answers
	case ModuleListening:
		return d.ListeningContent.Answers
	}
	return nil
}

type Test struct {
	ID          uint                               `json:"id" gorm:"primaryKey"`
	Title       string                             `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string                            `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Status      TestStatus                         `json:"status" gorm:"default:draft;index" validate:"omitempty,oneof=draft published archived"`
	Reading     datatypes.JSONType[ReadingPaper]   `json:"reading" gorm:"type:jsonb"`
	Listening   datatypes.JSONType[ListeningPaper] `json:"listening" gorm:"type:jsonb"`
	ReadingKey  datatypes.JSONType[AnswerContent]  `json:"readingContent" gorm:"column:reading_content;type:jsonb"`
	ListenKey   datatypes.JSONType[AnswerContent]  `json:"listeningContent" gorm:"column:listening_content;type:jsonb"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Test) TableName() string {
	return "tests"
}

// Definition assembles the engine's view of the test, answer keys included.
func (t *Test) Definition() *TestDefinition {
	return &TestDefinition{
		Reading:          t.Reading.Data(),
		Listening:        t.Listening.Data(),
		ReadingContent:   t.ReadingKey.Data(),
		ListeningContent: t.ListenKey.Data(),
	}
}

// CandidateTest is what a candidate may see: the papers without answer keys.
type CandidateTest struct {
	ID        uint           `json:"id"`
	Title     string         `json:"title"`
	Reading   ReadingPaper   `json:"reading"`
	Listening ListeningPaper `json:"listening"`
}

func (t *Test) CandidateView() *CandidateTest {
	return &CandidateTest{
		ID:        t.ID,
		Title:     t.Title,
		Reading:   t.Reading.Data(),
		Listening: t.Listening.Data(),
	}
}
