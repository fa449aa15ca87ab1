package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db      *gorm.DB
	test    repositories.TestRepository
	session repositories.SessionRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:      db,
		test:    NewTestPostgreSQL(db),
		session: NewSessionPostgreSQL(db),
	}
}

func (r *repository) Test() repositories.TestRepository {
	return r.test
}

func (r *repository) Session() repositories.SessionRepository {
	return r.session
}

func (r *repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// Migrate creates or updates the tables of the service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Test{}, &models.ExamSession{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
