package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/ielts-exam-service/internal/events"
	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
)

// ScoringEventService publishes the lifecycle of a session's scores
type ScoringEventService interface {
	NotifySessionStarted(ctx context.Context, session *models.ExamSession) error
	NotifySessionSubmitted(ctx context.Context, session *models.ExamSession) error
	NotifyModuleGraded(ctx context.Context, session *models.ExamSession, module models.Module, band models.Band, gradedBy string) error
	NotifySessionFinalized(ctx context.Context, session *models.ExamSession) error
}

type scoringEventService struct {
	eventPublisher events.EventPublisher
	logger         *slog.Logger
}

func NewScoringEventService(eventPublisher events.EventPublisher, logger *slog.Logger) ScoringEventService {
	return &scoringEventService{
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

func (s *scoringEventService) NotifySessionStarted(ctx context.Context, session *models.ExamSession) error {
	s.logger.Info("Publishing session started event", "session_id", session.ID)

	event := events.NewScoringEvent(events.EventSessionStarted, events.SessionStartedEvent{
		SessionID: session.ID,
		TestID:    session.TestID,
		StudentID: session.StudentID,
		StartedAt: session.StartedAt,
	})
	return s.eventPublisher.PublishScoringEvent(ctx, event)
}

func (s *scoringEventService) NotifySessionSubmitted(ctx context.Context, session *models.ExamSession) error {
	s.logger.Info("Publishing session submitted event", "session_id", session.ID)

	data := events.SessionSubmittedEvent{
		SessionID: session.ID,
		TestID:    session.TestID,
		StudentID: session.StudentID,
		Scores:    session.Scores(),
		State:     sessionState(session),
	}
	if session.SubmittedAt != nil {
		data.SubmittedAt = *session.SubmittedAt
	}
	if r := session.ReadingResult.Data(); r != nil {
		data.ReadingCorrect, data.ReadingTotal = r.RawCorrect, r.RawTotal
	}
	if r := session.ListeningResult.Data(); r != nil {
		data.ListenCorrect, data.ListenTotal = r.RawCorrect, r.RawTotal
	}

	return s.eventPublisher.PublishScoringEvent(ctx, events.NewScoringEvent(events.EventSessionSubmitted, data))
}

func (s *scoringEventService) NotifyModuleGraded(ctx context.Context, session *models.ExamSession, module models.Module, band models.Band, gradedBy string) error {
	s.logger.Info("Publishing module graded event",
		"session_id", session.ID,
		"module", module,
		"band", band)

	event := events.NewScoringEvent(events.EventModuleGraded, events.ModuleGradedEvent{
		SessionID: session.ID,
		TestID:    session.TestID,
		StudentID: session.StudentID,
		Module:    module,
		Band:      band,
		GradedBy:  gradedBy,
		Scores:    session.Scores(),
		State:     sessionState(session),
	})
	return s.eventPublisher.PublishScoringEvent(ctx, event)
}

func (s *scoringEventService) NotifySessionFinalized(ctx context.Context, session *models.ExamSession) error {
	scores := session.Scores()
	if scores.Overall == nil {
		return nil
	}
	s.logger.Info("Publishing session finalized event",
		"session_id", session.ID,
		"overall_band", *scores.Overall)

	finalizedAt := time.Now().UTC()
	if session.GradedAt != nil {
		finalizedAt = *session.GradedAt
	}

	event := events.NewScoringEvent(events.EventSessionFinalized, events.SessionFinalizedEvent{
		SessionID:   session.ID,
		TestID:      session.TestID,
		StudentID:   session.StudentID,
		Scores:      scores,
		OverallBand: *scores.Overall,
		FinalizedAt: finalizedAt,
	})
	return s.eventPublisher.PublishScoringEvent(ctx, event)
}
