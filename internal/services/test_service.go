package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/ielts-exam-service/internal/cache"
	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/repositories"
	"github.com/SAP-F-2025/ielts-exam-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type testService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	cacheTTL  time.Duration
	logger    *slog.Logger
	opLogger  *ServiceLogger
	validator *validator.Validator
}

func NewTestService(repo repositories.Repository, cacheService cache.CacheService, cacheTTL time.Duration, logger *slog.Logger, validator *validator.Validator) TestService {
	return &testService{
		repo:      repo,
		cache:     cacheService,
		cacheTTL:  cacheTTL,
		logger:    logger,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: "ielts", Component: "test"}),
		validator: validator,
	}
}

// ===== CORE OPERATIONS =====

func (s *testService) Create(ctx context.Context, req *CreateTestRequest, actor models.Actor) (resp *TestResponse, err error) {
	op := s.opLogger.WithOperation(ctx, "create_test", actor.UserID)
	defer func() {
		var id uint
		if resp != nil {
			id = resp.Test.ID
		}
		op.LogResult(id, "test", err)
	}()

	if err := ensureStaff(actor, 0, "test", "create"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test := &models.Test{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TestDraft,
		Reading:     datatypes.NewJSONType(req.Reading),
		Listening:   datatypes.NewJSONType(req.Listening),
		ReadingKey:  datatypes.NewJSONType(req.ReadingContent),
		ListenKey:   datatypes.NewJSONType(req.ListeningContent),
		CreatedBy:   actor.UserID,
	}

	// authoring defects are reported, never fatal
	var defects []validator.AuthoringDefect
	def := test.Definition()
	for _, module := range []models.Module{models.ModuleReading, models.ModuleListening} {
		_, moduleDefects := validator.Extract(def, module)
		defects = append(defects, moduleDefects...)
	}
	if defects == nil {
		defects = []validator.AuthoringDefect{}
	}

	if err := s.repo.Test().Create(ctx, nil, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}
	s.logDefects(ctx, test.ID, defects)

	return &TestResponse{Test: test, Defects: defects}, nil
}

func (s *testService) Get(ctx context.Context, id uint, actor models.Actor) (*models.Test, error) {
	if err := ensureStaff(actor, id, "test", "read_answer_key"); err != nil {
		return nil, err
	}
	return s.Definition(ctx, id)
}

func (s *testService) GetCandidateView(ctx context.Context, id uint, actor models.Actor) (*models.CandidateTest, error) {
	test, err := s.Definition(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && test.Status != models.TestPublished {
		return nil, ErrTestNotPublished
	}
	return test.CandidateView(), nil
}

func (s *testService) GetSchema(ctx context.Context, id uint, module models.Module, actor models.Actor) (*SchemaResponse, error) {
	test, err := s.Definition(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && test.Status != models.TestPublished {
		return nil, ErrTestNotPublished
	}
	return s.Schema(ctx, id, module)
}

// Schema extracts the question schema of an objective module through the
// cache. Authoring defects are logged on extraction.
func (s *testService) Schema(ctx context.Context, id uint, module models.Module) (*SchemaResponse, error) {
	if !module.IsObjective() {
		return nil, fmt.Errorf("%w: %s has no question schema", ErrInvalidModule, module)
	}

	key := cache.TestSchemaKey(id, string(module))
	var cached SchemaResponse
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	test, err := s.Definition(ctx, id)
	if err != nil {
		return nil, err
	}

	schema, defects := validator.Extract(test.Definition(), module)
	s.logDefects(ctx, id, defects)
	if defects == nil {
		defects = []validator.AuthoringDefect{}
	}

	resp := &SchemaResponse{
		TestID:  id,
		Module:  module,
		Schema:  schema,
		Defects: defects,
	}
	if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
		s.logger.Warn("Schema cache write failed", "test_id", id, "module", module, "error", err)
	}
	return resp, nil
}

func (s *testService) UpdateStatus(ctx context.Context, id uint, status models.TestStatus, actor models.Actor) (test *models.Test, err error) {
	op := s.opLogger.WithOperation(ctx, "update_test_status", actor.UserID)
	defer func() { op.LogResult(id, "test", err) }()

	if err := ensureStaff(actor, id, "test", "update_status"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(&UpdateTestStatusRequest{Status: status}); err != nil {
		return nil, err
	}

	test, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	test.Status = status
	if err := s.repo.Test().Update(ctx, nil, test); err != nil {
		return nil, fmt.Errorf("failed to update test status: %w", err)
	}
	s.invalidate(ctx, id)

	return test, nil
}

const defaultListLimit = 20

// List pages through tests. Students only ever see published ones.
func (s *testService) List(ctx context.Context, req *ListTestsRequest, actor models.Actor) (*TestListResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	filters := repositories.TestFilters{
		Status:    req.Status,
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if filters.Limit == 0 {
		filters.Limit = defaultListLimit
	}
	if !actor.Role.IsStaff() {
		published := models.TestPublished
		filters.Status = &published
	}

	tests, total, err := s.repo.Test().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	summaries := make([]TestSummary, 0, len(tests))
	for _, t := range tests {
		summaries = append(summaries, TestSummary{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			CreatedBy:   t.CreatedBy,
			CreatedAt:   t.CreatedAt,
		})
	}

	return &TestListResponse{
		Tests:  summaries,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

// Delete soft-deletes a test nobody has sat yet. Tests with sessions must be
// archived instead so their results stay exportable.
func (s *testService) Delete(ctx context.Context, id uint, actor models.Actor) (err error) {
	op := s.opLogger.WithOperation(ctx, "delete_test", actor.UserID)
	defer func() { op.LogResult(id, "test", err) }()

	if err := ensureStaff(actor, id, "test", "delete"); err != nil {
		return err
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.Test().GetByID(ctx, tx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTestNotFound
			}
			return fmt.Errorf("failed to get test: %w", err)
		}

		_, sessions, err := s.repo.Session().GetByTest(ctx, tx, id, repositories.SessionFilters{Limit: 1})
		if err != nil {
			return fmt.Errorf("failed to count sessions: %w", err)
		}
		if sessions > 0 {
			return NewBusinessRuleError("test_has_sessions",
				"test has been sat and can only be archived",
				map[string]interface{}{"test_id": id, "sessions": sessions})
		}

		if err := s.repo.Test().Delete(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete test: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

// Definition loads a test through the cache.
func (s *testService) Definition(ctx context.Context, id uint) (*models.Test, error) {
	var cached models.Test
	err := s.cache.Get(ctx, cache.TestKey(id), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Test cache read failed", "test_id", id, "error", err)
	}

	test, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.TestKey(id), test, s.cacheTTL); err != nil {
		s.logger.Warn("Test cache write failed", "test_id", id, "error", err)
	}
	return test, nil
}

// ===== HELPERS =====

func (s *testService) load(ctx context.Context, id uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (s *testService) invalidate(ctx context.Context, id uint) {
	if err := s.cache.Delete(ctx, cache.TestKey(id)); err != nil {
		s.logger.Warn("Test cache invalidation failed", "test_id", id, "error", err)
	}
	if err := s.cache.DeletePattern(ctx, cache.TestDerivedPattern(id)); err != nil {
		s.logger.Warn("Test cache invalidation failed", "test_id", id, "error", err)
	}
}

func (s *testService) logDefects(ctx context.Context, testID uint, defects []validator.AuthoringDefect) {
	for _, d := range defects {
		s.logger.WarnContext(ctx, "Test authoring defect",
			"test_id", testID,
			"module", d.Module,
			"block", d.Block,
			"kind", d.Kind,
			"question_id", d.QuestionID,
			"message", d.Message)
	}
}
