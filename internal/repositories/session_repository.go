package repositories

import (
	"context"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"gorm.io/gorm"
)

// SessionRepository interface for exam session operations. Writes are
// conditional on ExamSession.Version and return ErrVersionConflict when the
// stored row has moved on; on success the in-memory Version is advanced.
type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error)
	GetByTest(ctx context.Context, tx *gorm.DB, testID uint, filters SessionFilters) ([]*models.ExamSession, int64, error)
	GetActive(ctx context.Context, tx *gorm.DB, testID uint, studentID string) (*models.ExamSession, error)

	// UpdateAnswers writes only the answer column of module.
	UpdateAnswers(ctx context.Context, tx *gorm.DB, session *models.ExamSession, module models.Module) error
	// Save writes status, timestamps, bands and module results.
	Save(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error

	GetResultStats(ctx context.Context, tx *gorm.DB, testID uint) (*TestResultStats, error)
}
