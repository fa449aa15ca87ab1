package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/ielts-exam-service/internal/cache"
	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/repositories"
	"github.com/SAP-F-2025/ielts-exam-service/internal/scoring"
)

const maxWriteAttempts = 3

// sessionMutator serializes every change to a session: the per-session lock
// orders writers across replicas, and the version check on each write turns
// anything that slipped past the lock into a retry instead of a lost update.
type sessionMutator struct {
	repo   repositories.Repository
	locker cache.SessionLocker
	logger *slog.Logger
}

func (m *sessionMutator) load(ctx context.Context, sessionID uint) (*models.ExamSession, error) {
	session, err := m.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// mutate reloads the session and applies fn under the session lock. fn must
// persist its change through the session repository; a version conflict
// reloads and runs fn again.
func (m *sessionMutator) mutate(ctx context.Context, sessionID uint, fn func(session *models.ExamSession) error) (*models.ExamSession, error) {
	unlock, err := m.locker.Lock(ctx, cache.SessionLockKey(sessionID))
	if err != nil {
		if errors.Is(err, cache.ErrLockTimeout) {
			return nil, ErrSessionBusy
		}
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	defer unlock()

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		session, err := m.load(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		err = fn(session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			return nil, err
		}

		m.logger.Warn("Session changed during write, retrying",
			"session_id", sessionID,
			"attempt", attempt,
			"version", session.Version)
	}

	return nil, fmt.Errorf("%w: session %d kept changing", ErrConflict, sessionID)
}

func sessionState(s *models.ExamSession) models.GradingState {
	return scoring.State(s.Scores())
}

// ensureOwner allows students into their own sessions and staff into any.
func ensureOwner(session *models.ExamSession, actor models.Actor, action string) error {
	if actor.Role.IsStaff() || session.StudentID == actor.UserID {
		return nil
	}
	return NewPermissionError(actor.UserID, session.ID, "session", action, "not the session owner")
}

func ensureStaff(actor models.Actor, resourceID uint, resource, action string) error {
	if actor.Role.IsStaff() {
		return nil
	}
	return NewPermissionError(actor.UserID, resourceID, resource, action, "requires teacher or admin role")
}
