package repositories

import (
	"context"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"gorm.io/gorm"
)

// TestRepository interface for test definition operations
type TestRepository interface {
	Create(ctx context.Context, tx *gorm.DB, test *models.Test) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error)
	Update(ctx context.Context, tx *gorm.DB, test *models.Test) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error // Soft delete
	List(ctx context.Context, tx *gorm.DB, filters TestFilters) ([]*models.Test, int64, error)
}
