package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/ielts-exam-service/internal/cache"
	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/repositories"
	"github.com/SAP-F-2025/ielts-exam-service/internal/scoring"
	"github.com/SAP-F-2025/ielts-exam-service/internal/validator"
	"gorm.io/datatypes"
)

type sessionService struct {
	repo      repositories.Repository
	tests     TestService
	events    ScoringEventService
	mutator   *sessionMutator
	logger    *slog.Logger
	opLogger  *ServiceLogger
	validator *validator.Validator
	now       func() time.Time
}

func NewSessionService(
	repo repositories.Repository,
	tests TestService,
	events ScoringEventService,
	locker cache.SessionLocker,
	logger *slog.Logger,
	validator *validator.Validator,
) SessionService {
	return &sessionService{
		repo:      repo,
		tests:     tests,
		events:    events,
		mutator:   &sessionMutator{repo: repo, locker: locker, logger: logger},
		logger:    logger,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: "ielts", Component: "session"}),
		validator: validator,
		now:       time.Now,
	}
}

// ===== CORE SESSION OPERATIONS =====

// Start opens a session for the caller, or resumes the one already in
// progress for the same test.
func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest, actor models.Actor) (resp *SessionResponse, err error) {
	op := s.opLogger.WithOperation(ctx, "start_session", actor.UserID)
	defer func() {
		var id uint
		if resp != nil {
			id = resp.ID
		}
		op.LogResult(id, "session", err)
	}()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.tests.Definition(ctx, req.TestID)
	if err != nil {
		return nil, err
	}
	if test.Status != models.TestPublished && !actor.Role.IsStaff() {
		return nil, ErrTestNotPublished
	}

	active, err := s.repo.Session().GetActive(ctx, nil, req.TestID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}
	if active != nil {
		s.logger.Info("Resuming active session", "session_id", active.ID, "student_id", actor.UserID)
		return NewSessionResponse(active), nil
	}

	session := &models.ExamSession{
		TestID:           req.TestID,
		StudentID:        actor.UserID,
		Status:           models.SessionInProgress,
		ReadingAnswers:   datatypes.NewJSONType(models.AnswerMap{}),
		ListeningAnswers: datatypes.NewJSONType(models.AnswerMap{}),
		WritingAnswers:   datatypes.NewJSONType(models.WritingResponses{}),
		ReadingResult:    datatypes.NewJSONType[*models.ModuleResult](nil),
		ListeningResult:  datatypes.NewJSONType[*models.ModuleResult](nil),
		StartedAt:        s.now(),
	}
	if err := s.repo.Session().Create(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.events.NotifySessionStarted(ctx, session); err != nil {
		s.logger.Error("Failed to publish session started event", "session_id", session.ID, "error", err)
	}

	return NewSessionResponse(session), nil
}

// SaveProgress merges an autosave of one module into the session. Answers of
// other modules and other questions are left untouched.
func (s *sessionService) SaveProgress(ctx context.Context, sessionID uint, module models.Module, payload interface{}, actor models.Actor) (resp *SaveProgressResponse, err error) {
	op := s.opLogger.WithOperation(ctx, "save_progress", actor.UserID)
	defer func() { op.LogResult(sessionID, "session", err) }()

	if module != models.ModuleReading && module != models.ModuleListening && module != models.ModuleWriting {
		return nil, fmt.Errorf("%w: cannot save answers for %s", ErrInvalidModule, module)
	}

	var warnings []validator.Warning
	session, err := s.mutator.mutate(ctx, sessionID, func(session *models.ExamSession) error {
		if session.StudentID != actor.UserID {
			return NewPermissionError(actor.UserID, session.ID, "session", "save_progress", "not the session owner")
		}
		if session.Status != models.SessionInProgress {
			return ErrSessionAlreadySubmitted
		}

		if module == models.ModuleWriting {
			result := validator.ValidateWritingResponses(payload)
			if !result.Valid {
				return result.Errors
			}
			warnings = result.Warnings
			merged := session.WritingAnswers.Data().Merge(result.Responses)
			session.WritingAnswers = datatypes.NewJSONType(merged)
			return s.repo.Session().UpdateAnswers(ctx, nil, session, module)
		}

		answers, err := toAnswerMap(payload)
		if err != nil {
			return err
		}

		schema, err := s.tests.Schema(ctx, session.TestID, module)
		if err != nil {
			return err
		}
		result := validator.ValidateAnswers(answers, schema.Schema)
		warnings = result.Warnings

		switch module {
		case models.ModuleReading:
			session.ReadingAnswers = datatypes.NewJSONType(session.ReadingAnswers.Data().Merge(result.ValidatedAnswers))
		case models.ModuleListening:
			session.ListeningAnswers = datatypes.NewJSONType(session.ListeningAnswers.Data().Merge(result.ValidatedAnswers))
		}
		return s.repo.Session().UpdateAnswers(ctx, nil, session, module)
	})
	if err != nil {
		return nil, err
	}

	for _, w := range warnings {
		s.logger.Warn("Answer shape warning",
			"session_id", sessionID,
			"module", module,
			"field", w.Field,
			"question_type", w.QuestionType,
			"message", w.Message)
	}
	if warnings == nil {
		warnings = []validator.Warning{}
	}

	return &SaveProgressResponse{
		Module:   module,
		Warnings: warnings,
		Session:  NewSessionResponse(session),
	}, nil
}

// Submit closes the session and grades its objective modules. A session is
// submitted at most once.
func (s *sessionService) Submit(ctx context.Context, sessionID uint, actor models.Actor) (resp *SessionResponse, err error) {
	op := s.opLogger.WithOperation(ctx, "submit_session", actor.UserID)
	defer func() { op.LogResult(sessionID, "session", err) }()

	session, err := s.mutator.mutate(ctx, sessionID, func(session *models.ExamSession) error {
		if session.StudentID != actor.UserID {
			return NewPermissionError(actor.UserID, session.ID, "session", "submit", "not the session owner")
		}
		if session.Status != models.SessionInProgress {
			return ErrSessionAlreadySubmitted
		}

		test, err := s.tests.Definition(ctx, session.TestID)
		if err != nil {
			return err
		}

		answers := session.Answers()
		result := scoring.Score(&answers, test.Definition())
		s.warnOnUnusualTotal(session, result.Reading)
		s.warnOnUnusualTotal(session, result.Listening)

		scores, err := scoring.ApplyResult(session.Scores(), result.Reading)
		if err != nil {
			return err
		}
		scores, err = scoring.ApplyResult(scores, result.Listening)
		if err != nil {
			return err
		}

		now := s.now()
		session.Status = models.SessionSubmitted
		session.SubmittedAt = &now
		session.ReadingResult = datatypes.NewJSONType(&result.Reading)
		session.ListeningResult = datatypes.NewJSONType(&result.Listening)
		session.SetScores(scores)
		if scoring.State(scores) == models.StateFullyGraded {
			session.GradedAt = &now
		}

		return s.repo.Session().Save(ctx, nil, session)
	})
	if err != nil {
		return nil, err
	}

	if err := s.events.NotifySessionSubmitted(ctx, session); err != nil {
		s.logger.Error("Failed to publish session submitted event", "session_id", session.ID, "error", err)
	}

	return NewSessionResponse(session), nil
}

func (s *sessionService) Get(ctx context.Context, sessionID uint, actor models.Actor) (*SessionResponse, error) {
	session, err := s.mutator.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := ensureOwner(session, actor, "read"); err != nil {
		return nil, err
	}
	return NewSessionResponse(session), nil
}

// ===== HELPERS =====

func (s *sessionService) warnOnUnusualTotal(session *models.ExamSession, result models.ModuleResult) {
	if result.RawTotal == scoring.ReferenceQuestionCount {
		return
	}
	s.logger.Warn("Module question count differs from the band table reference; band applied unscaled",
		"session_id", session.ID,
		"test_id", session.TestID,
		"module", result.Module,
		"raw_total", result.RawTotal,
		"reference_total", scoring.ReferenceQuestionCount)
}

// toAnswerMap accepts a decoded JSON object of question id to answer.
func toAnswerMap(payload interface{}) (models.AnswerMap, error) {
	switch v := payload.(type) {
	case models.AnswerMap:
		return v.Canonical(), nil
	case map[string]interface{}:
		answers := make(models.AnswerMap, len(v))
		for k, value := range v {
			answers[models.QuestionID(k)] = value
		}
		return answers.Canonical(), nil
	}
	return nil, ValidationErrors{*NewValidationError("answers", "must be an object keyed by question id", payload)}
}
