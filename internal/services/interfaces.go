package services

import (
	"context"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
)

// TestService manages test definitions and the schemas derived from them
type TestService interface {
	Create(ctx context.Context, req *CreateTestRequest, actor models.Actor) (*TestResponse, error)
	Get(ctx context.Context, id uint, actor models.Actor) (*models.Test, error)
	GetCandidateView(ctx context.Context, id uint, actor models.Actor) (*models.CandidateTest, error)
	GetSchema(ctx context.Context, id uint, module models.Module, actor models.Actor) (*SchemaResponse, error)
	UpdateStatus(ctx context.Context, id uint, status models.TestStatus, actor models.Actor) (*models.Test, error)
	List(ctx context.Context, req *ListTestsRequest, actor models.Actor) (*TestListResponse, error)
	Delete(ctx context.Context, id uint, actor models.Actor) error

	// Definition returns the full test, answer keys included, for internal
	// scoring use.
	Definition(ctx context.Context, id uint) (*models.Test, error)
	// Schema is GetSchema without the caller checks, for internal use.
	Schema(ctx context.Context, id uint, module models.Module) (*SchemaResponse, error)
}

// SessionService drives a candidate through a sitting
type SessionService interface {
	Start(ctx context.Context, req *StartSessionRequest, actor models.Actor) (*SessionResponse, error)
	SaveProgress(ctx context.Context, sessionID uint, module models.Module, payload interface{}, actor models.Actor) (*SaveProgressResponse, error)
	Submit(ctx context.Context, sessionID uint, actor models.Actor) (*SessionResponse, error)
	Get(ctx context.Context, sessionID uint, actor models.Actor) (*SessionResponse, error)
}

// GradingService records examiner bands and recomputes scores
type GradingService interface {
	GradeModule(ctx context.Context, sessionID uint, req *GradeModuleRequest, actor models.Actor) (*GradeResponse, error)
	Regrade(ctx context.Context, sessionID uint, actor models.Actor) (*GradeResponse, error)
	CalculateBand(req *CalculateBandRequest) (*CalculateBandResponse, error)
	CalculateOverall(req *CalculateOverallRequest) (*CalculateOverallResponse, error)
}

// ExportService renders results for download
type ExportService interface {
	ExportTestResults(ctx context.Context, testID uint, actor models.Actor) ([]byte, error)
}

// ServiceManager bundles the services handed to the transport layer
type ServiceManager struct {
	Test    TestService
	Session SessionService
	Grading GradingService
	Export  ExportService
}
