package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/repositories"
	"gorm.io/gorm"
)

type SessionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error {
	db := s.getDB(tx)
	if session.Status == "" {
		session.Status = models.SessionInProgress
	}
	session.Version = 1
	return db.WithContext(ctx).Create(session).Error
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error) {
	db := s.getDB(tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByTest(ctx context.Context, tx *gorm.DB, testID uint, filters repositories.SessionFilters) ([]*models.ExamSession, int64, error) {
	db := s.getDB(tx)
	query := db.WithContext(ctx).Model(&models.ExamSession{}).Where("test_id = ?", testID)
	query = s.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset,
		"created_at", "submitted_at", "overall_band")

	var sessions []*models.ExamSession
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// GetActive returns the in-progress session of a student, or nil if none.
func (s *SessionPostgreSQL) GetActive(ctx context.Context, tx *gorm.DB, testID uint, studentID string) (*models.ExamSession, error) {
	db := s.getDB(tx)
	var session models.ExamSession
	err := db.WithContext(ctx).
		Where("test_id = ? AND student_id = ? AND status = ?", testID, studentID, models.SessionInProgress).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) UpdateAnswers(ctx context.Context, tx *gorm.DB, session *models.ExamSession, module models.Module) error {
	updates := map[string]interface{}{}
	switch module {
	case models.ModuleReading:
		updates["reading_answers"] = session.ReadingAnswers
	case models.ModuleListening:
		updates["listening_answers"] = session.ListeningAnswers
	case models.ModuleWriting:
		updates["writing_answers"] = session.WritingAnswers
	default:
		return fmt.Errorf("module %s has no stored answers", module)
	}
	return s.conditionalUpdate(ctx, tx, session, updates)
}

func (s *SessionPostgreSQL) Save(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error {
	return s.conditionalUpdate(ctx, tx, session, map[string]interface{}{
		"status":           session.Status,
		"submitted_at":     session.SubmittedAt,
		"graded_at":        session.GradedAt,
		"reading_band":     session.ReadingBand,
		"listening_band":   session.ListeningBand,
		"writing_band":     session.WritingBand,
		"speaking_band":    session.SpeakingBand,
		"overall_band":     session.OverallBand,
		"reading_result":   session.ReadingResult,
		"listening_result": session.ListeningResult,
	})
}

// conditionalUpdate applies updates only if the stored version still equals
// session.Version, then advances it.
func (s *SessionPostgreSQL) conditionalUpdate(ctx context.Context, tx *gorm.DB, session *models.ExamSession, updates map[string]interface{}) error {
	db := s.getDB(tx)
	now := time.Now()
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = now

	result := db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ? AND version = ?", session.ID, session.Version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: session %d at version %d", repositories.ErrVersionConflict, session.ID, session.Version)
	}

	session.Version++
	session.UpdatedAt = now
	return nil
}

func (s *SessionPostgreSQL) GetResultStats(ctx context.Context, tx *gorm.DB, testID uint) (*repositories.TestResultStats, error) {
	db := s.getDB(tx)
	var row struct {
		Total          int
		Submitted      int
		FullyGraded    int
		AverageOverall *float64
	}

	err := db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = ?) AS submitted,
			COUNT(*) FILTER (WHERE reading_band IS NOT NULL AND listening_band IS NOT NULL
				AND writing_band IS NOT NULL AND speaking_band IS NOT NULL) AS fully_graded,
			AVG(overall_band) AS average_overall`, models.SessionSubmitted).
		Where("test_id = ?", testID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	stats := &repositories.TestResultStats{
		TotalSessions:     row.Total,
		SubmittedSessions: row.Submitted,
		FullyGraded:       row.FullyGraded,
	}
	if row.AverageOverall != nil {
		stats.AverageOverall = *row.AverageOverall
	}
	return stats, nil
}

func (s *SessionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

func (s *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
