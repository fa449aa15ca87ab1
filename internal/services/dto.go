package services

import (
	"time"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/validator"
)

// ===== TEST DTOs =====

type CreateTestRequest struct {
	Title            string                `json:"title" validate:"required,min=1,max=200"`
	Description      *string               `json:"description" validate:"omitempty,max=1000"`
	Reading          models.ReadingPaper   `json:"reading"`
	Listening        models.ListeningPaper `json:"listening"`
	ReadingContent   models.AnswerContent  `json:"readingContent"`
	ListeningContent models.AnswerContent  `json:"listeningContent"`
}

type UpdateTestStatusRequest struct {
	Status models.TestStatus `json:"status" validate:"required,oneof=draft published archived"`
}

type ListTestsRequest struct {
	Status    *models.TestStatus `form:"status" validate:"omitempty,oneof=draft published archived"`
	Limit     int                `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int                `form:"offset" validate:"min=0"`
	SortBy    string             `form:"sort_by" validate:"omitempty,oneof=created_at title"`
	SortOrder string             `form:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type TestSummary struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	Status      models.TestStatus `json:"status"`
	CreatedBy   string            `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
}

type TestListResponse struct {
	Tests  []TestSummary `json:"tests"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type TestResponse struct {
	Test    *models.Test                `json:"test"`
	Defects []validator.AuthoringDefect `json:"defects"`
}

type SchemaResponse struct {
	TestID  uint                        `json:"test_id"`
	Module  models.Module               `json:"module"`
	Schema  models.QuestionSchema       `json:"schema"`
	Defects []validator.AuthoringDefect `json:"defects"`
}

// ===== SESSION DTOs =====

type StartSessionRequest struct {
	TestID uint `json:"test_id" validate:"required"`
}

type SaveProgressRequest struct {
	Answers interface{} `json:"answers"`
}

type SessionResponse struct {
	ID              uint                  `json:"id"`
	TestID          uint                  `json:"test_id"`
	StudentID       string                `json:"student_id"`
	Status          models.SessionStatus  `json:"status"`
	Answers         models.SessionAnswers `json:"answers"`
	Scores          models.SessionScores  `json:"scores"`
	State           models.GradingState   `json:"state"`
	ReadingResult   *models.ModuleResult  `json:"reading_result,omitempty"`
	ListeningResult *models.ModuleResult  `json:"listening_result,omitempty"`
	Version         int                   `json:"version"`
	StartedAt       time.Time             `json:"started_at"`
	SubmittedAt     *time.Time            `json:"submitted_at,omitempty"`
	GradedAt        *time.Time            `json:"graded_at,omitempty"`
}

type SaveProgressResponse struct {
	Module   models.Module       `json:"module"`
	Warnings []validator.Warning `json:"warnings"`
	Session  *SessionResponse    `json:"session"`
}

// ===== GRADING DTOs =====

type GradeModuleRequest struct {
	Module models.Module `json:"module" validate:"required,manual_module"`
	Band   *models.Band  `json:"band" validate:"required,band"`
}

type GradeResponse struct {
	SessionID uint                 `json:"session_id"`
	Scores    models.SessionScores `json:"scores"`
	State     models.GradingState  `json:"state"`
	GradedAt  *time.Time           `json:"graded_at,omitempty"`
}

type CalculateBandRequest struct {
	CorrectCount *int `json:"correct_count" validate:"required,min=0"`
}

type CalculateBandResponse struct {
	CorrectCount int         `json:"correct_count"`
	Band         models.Band `json:"band"`
}

type CalculateOverallRequest struct {
	Reading   *models.Band `json:"reading" validate:"omitempty,band"`
	Listening *models.Band `json:"listening" validate:"omitempty,band"`
	Writing   *models.Band `json:"writing" validate:"omitempty,band"`
	Speaking  *models.Band `json:"speaking" validate:"omitempty,band"`
}

type CalculateOverallResponse struct {
	Scores models.SessionScores `json:"scores"`
	State  models.GradingState  `json:"state"`
}

// NewSessionResponse converts a stored session to its API shape.
func NewSessionResponse(s *models.ExamSession) *SessionResponse {
	return &SessionResponse{
		ID:              s.ID,
		TestID:          s.TestID,
		StudentID:       s.StudentID,
		Status:          s.Status,
		Answers:         s.Answers(),
		Scores:          s.Scores(),
		State:           sessionState(s),
		ReadingResult:   s.ReadingResult.Data(),
		ListeningResult: s.ListeningResult.Data(),
		Version:         s.Version,
		StartedAt:       s.StartedAt,
		SubmittedAt:     s.SubmittedAt,
		GradedAt:        s.GradedAt,
	}
}
