package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/ielts-exam-service/internal/cache"
	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/repositories"
	"github.com/SAP-F-2025/ielts-exam-service/internal/scoring"
	"github.com/SAP-F-2025/ielts-exam-service/internal/validator"
	"gorm.io/datatypes"
)

type gradingService struct {
	repo      repositories.Repository
	tests     TestService
	events    ScoringEventService
	mutator   *sessionMutator
	logger    *slog.Logger
	opLogger  *ServiceLogger
	validator *validator.Validator
	now       func() time.Time
}

func NewGradingService(
	repo repositories.Repository,
	tests TestService,
	events ScoringEventService,
	locker cache.SessionLocker,
	logger *slog.Logger,
	validator *validator.Validator,
) GradingService {
	return &gradingService{
		repo:      repo,
		tests:     tests,
		events:    events,
		mutator:   &sessionMutator{repo: repo, locker: locker, logger: logger},
		logger:    logger,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: "ielts", Component: "grading"}),
		validator: validator,
		now:       time.Now,
	}
}

// ===== GRADING OPERATIONS =====

// GradeModule records an examiner band for writing or speaking. A later
// grade for the same module replaces the earlier one.
func (s *gradingService) GradeModule(ctx context.Context, sessionID uint, req *GradeModuleRequest, actor models.Actor) (resp *GradeResponse, err error) {
	op := s.opLogger.WithOperation(ctx, "grade_module", actor.UserID)
	defer func() { op.LogResult(sessionID, "session", err) }()

	if err := ensureStaff(actor, sessionID, "session", "grade"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var before models.GradingState
	session, err := s.mutator.mutate(ctx, sessionID, func(session *models.ExamSession) error {
		if session.Status != models.SessionSubmitted {
			return ErrSessionNotSubmitted
		}
		before = sessionState(session)

		scores, err := scoring.ApplyGrade(session.Scores(), req.Module, *req.Band)
		if err != nil {
			return err
		}
		s.record(session, scores)
		return s.repo.Session().Save(ctx, nil, session)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Module graded",
		"session_id", sessionID,
		"module", req.Module,
		"band", *req.Band,
		"graded_by", actor.UserID,
		"state_before", before,
		"state", sessionState(session))

	if err := s.events.NotifyModuleGraded(ctx, session, req.Module, *req.Band, actor.UserID); err != nil {
		s.logger.Error("Failed to publish module graded event", "session_id", sessionID, "error", err)
	}
	s.notifyIfFinal(ctx, session)

	return newGradeResponse(session), nil
}

// Regrade scores the stored answers against the current answer key again.
// Running it twice yields the same scores.
func (s *gradingService) Regrade(ctx context.Context, sessionID uint, actor models.Actor) (resp *GradeResponse, err error) {
	op := s.opLogger.WithOperation(ctx, "regrade_session", actor.UserID)
	defer func() { op.LogResult(sessionID, "session", err) }()

	if err := ensureStaff(actor, sessionID, "session", "regrade"); err != nil {
		return nil, err
	}

	session, err := s.mutator.mutate(ctx, sessionID, func(session *models.ExamSession) error {
		if session.Status != models.SessionSubmitted {
			return ErrSessionNotSubmitted
		}

		test, err := s.tests.Definition(ctx, session.TestID)
		if err != nil {
			return err
		}

		answers := session.Answers()
		result := scoring.Score(&answers, test.Definition())

		scores, err := scoring.ApplyResult(session.Scores(), result.Reading)
		if err != nil {
			return err
		}
		scores, err = scoring.ApplyResult(scores, result.Listening)
		if err != nil {
			return err
		}

		session.ReadingResult = datatypes.NewJSONType(&result.Reading)
		session.ListeningResult = datatypes.NewJSONType(&result.Listening)
		s.record(session, scores)
		return s.repo.Session().Save(ctx, nil, session)
	})
	if err != nil {
		return nil, err
	}

	s.notifyIfFinal(ctx, session)
	return newGradeResponse(session), nil
}

// ===== UTILITIES =====

func (s *gradingService) CalculateBand(req *CalculateBandRequest) (*CalculateBandResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return &CalculateBandResponse{
		CorrectCount: *req.CorrectCount,
		Band:         scoring.BandFromRawCount(*req.CorrectCount),
	}, nil
}

func (s *gradingService) CalculateOverall(req *CalculateOverallRequest) (*CalculateOverallResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	scores := scoring.WithOverall(models.SessionScores{
		Reading:   req.Reading,
		Listening: req.Listening,
		Writing:   req.Writing,
		Speaking:  req.Speaking,
	})
	return &CalculateOverallResponse{
		Scores: scores,
		State:  scoring.State(scores),
	}, nil
}

// ===== HELPERS =====

// record stores scores on the session and stamps GradedAt once every
// module has a band.
func (s *gradingService) record(session *models.ExamSession, scores models.SessionScores) {
	session.SetScores(scores)
	if scoring.State(scores) == models.StateFullyGraded {
		now := s.now()
		session.GradedAt = &now
	} else {
		session.GradedAt = nil
	}
}

// notifyIfFinal publishes the final scores whenever a write leaves the
// session fully graded, so consumers always hold the latest overall band.
func (s *gradingService) notifyIfFinal(ctx context.Context, session *models.ExamSession) {
	if sessionState(session) != models.StateFullyGraded {
		return
	}
	if err := s.events.NotifySessionFinalized(ctx, session); err != nil {
		s.logger.Error("Failed to publish session finalized event", "session_id", session.ID, "error", err)
	}
}

func newGradeResponse(session *models.ExamSession) *GradeResponse {
	return &GradeResponse{
		SessionID: session.ID,
		Scores:    session.Scores(),
		State:     sessionState(session),
		GradedAt:  session.GradedAt,
	}
}
