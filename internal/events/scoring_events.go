package events

import (
	"strconv"
	"time"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/google/uuid"
)

// EventType represents different types of scoring events
type EventType string

const (
	// Session events
	EventSessionStarted   EventType = "session.started"
	EventSessionSubmitted EventType = "session.submitted"

	// Grading events
	EventModuleGraded     EventType = "session.module_graded"
	EventSessionFinalized EventType = "session.finalized"
)

const (
	eventSource  = "ielts-exam-service"
	eventVersion = "1.0"
)

// ScoringEvent is the envelope of every event the service publishes
type ScoringEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewScoringEvent wraps data in an envelope with a fresh id
func NewScoringEvent(eventType EventType, data interface{}) *ScoringEvent {
	return &ScoringEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// Session event payloads

type SessionStartedEvent struct {
	SessionID uint      `json:"session_id"`
	TestID    uint      `json:"test_id"`
	StudentID string    `json:"student_id"`
	StartedAt time.Time `json:"started_at"`
}

type SessionSubmittedEvent struct {
	SessionID      uint                 `json:"session_id"`
	TestID         uint                 `json:"test_id"`
	StudentID      string               `json:"student_id"`
	SubmittedAt    time.Time            `json:"submitted_at"`
	Scores         models.SessionScores `json:"scores"`
	State          models.GradingState  `json:"state"`
	ReadingCorrect int                  `json:"reading_correct"`
	ReadingTotal   int                  `json:"reading_total"`
	ListenCorrect  int                  `json:"listening_correct"`
	ListenTotal    int                  `json:"listening_total"`
}

// Grading event payloads

type ModuleGradedEvent struct {
	SessionID uint                 `json:"session_id"`
	TestID    uint                 `json:"test_id"`
	StudentID string               `json:"student_id"`
	Module    models.Module        `json:"module"`
	Band      models.Band          `json:"band"`
	GradedBy  string               `json:"graded_by"`
	Scores    models.SessionScores `json:"scores"`
	State     models.GradingState  `json:"state"`
}

type SessionFinalizedEvent struct {
	SessionID   uint                 `json:"session_id"`
	TestID      uint                 `json:"test_id"`
	StudentID   string               `json:"student_id"`
	Scores      models.SessionScores `json:"scores"`
	OverallBand models.Band          `json:"overall_band"`
	FinalizedAt time.Time            `json:"finalized_at"`
}

// Keyed is implemented by payloads that belong to one session. Events with
// the same key land on the same Kafka partition and keep their order.
type Keyed interface {
	PartitionKey() string
}

func sessionKey(id uint) string { return "session-" + strconv.FormatUint(uint64(id), 10) }

func (e SessionStartedEvent) PartitionKey() string   { return sessionKey(e.SessionID) }
func (e SessionSubmittedEvent) PartitionKey() string { return sessionKey(e.SessionID) }
func (e ModuleGradedEvent) PartitionKey() string     { return sessionKey(e.SessionID) }
func (e SessionFinalizedEvent) PartitionKey() string { return sessionKey(e.SessionID) }
