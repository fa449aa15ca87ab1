package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/ielts-exam-service/internal/cache"
	"github.com/SAP-F-2025/ielts-exam-service/internal/events"
	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/repositories"
	"github.com/SAP-F-2025/ielts-exam-service/internal/scoring"
	"github.com/SAP-F-2025/ielts-exam-service/internal/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ===== MOCK TEST REPOSITORY =====

type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) Create(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	args := m.Called(ctx, tx, test)
	return args.Error(0)
}

func (m *MockTestRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	args := m.Called(ctx, tx, id)
	if test := args.Get(0); test != nil {
		return test.(*models.Test), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTestRepository) Update(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	args := m.Called(ctx, tx, test)
	return args.Error(0)
}

func (m *MockTestRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockTestRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	args := m.Called(ctx, tx, filters)
	return args.Get(0).([]*models.Test), args.Get(1).(int64), args.Error(2)
}

// ===== IN-MEMORY SESSION REPOSITORY =====

// memSessionRepository stores copies of sessions and enforces the version
// check of the real repository.
type memSessionRepository struct {
	mu       sync.Mutex
	nextID   uint
	sessions map[uint]*models.ExamSession
	writes   int

	// bumpNext simulates that many concurrent writers landing just before
	// the next writes.
	bumpNext int
}

func newMemSessionRepository() *memSessionRepository {
	return &memSessionRepository{sessions: make(map[uint]*models.ExamSession)}
}

func cloneSession(s *models.ExamSession) *models.ExamSession {
	data, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	var out models.ExamSession
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

func (r *memSessionRepository) Create(_ context.Context, _ *gorm.DB, session *models.ExamSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	session.ID = r.nextID
	session.Version = 1
	session.CreatedAt = time.Now()
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *memSessionRepository) GetByID(_ context.Context, _ *gorm.DB, id uint) (*models.ExamSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneSession(s), nil
}

func (r *memSessionRepository) GetByTest(_ context.Context, _ *gorm.DB, testID uint, filters repositories.SessionFilters) ([]*models.ExamSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*models.ExamSession
	for _, s := range r.sessions {
		if s.TestID == testID {
			all = append(all, cloneSession(s))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := int64(len(all))
	if filters.Offset >= len(all) {
		return []*models.ExamSession{}, total, nil
	}
	all = all[filters.Offset:]
	if filters.Limit > 0 && filters.Limit < len(all) {
		all = all[:filters.Limit]
	}
	return all, total, nil
}

func (r *memSessionRepository) GetActive(_ context.Context, _ *gorm.DB, testID uint, studentID string) (*models.ExamSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TestID == testID && s.StudentID == studentID && s.Status == models.SessionInProgress {
			return cloneSession(s), nil
		}
	}
	return nil, nil
}

func (r *memSessionRepository) UpdateAnswers(_ context.Context, _ *gorm.DB, session *models.ExamSession, module models.Module) error {
	return r.write(session, func(stored *models.ExamSession) {
		switch module {
		case models.ModuleReading:
			stored.ReadingAnswers = cloneSession(session).ReadingAnswers
		case models.ModuleListening:
			stored.ListeningAnswers = cloneSession(session).ListeningAnswers
		case models.ModuleWriting:
			stored.WritingAnswers = cloneSession(session).WritingAnswers
		}
	})
}

func (r *memSessionRepository) Save(_ context.Context, _ *gorm.DB, session *models.ExamSession) error {
	return r.write(session, func(stored *models.ExamSession) {
		c := cloneSession(session)
		stored.Status = c.Status
		stored.SubmittedAt = c.SubmittedAt
		stored.GradedAt = c.GradedAt
		stored.SetScores(c.Scores())
		stored.ReadingResult = c.ReadingResult
		stored.ListeningResult = c.ListeningResult
	})
}

func (r *memSessionRepository) write(session *models.ExamSession, apply func(stored *models.ExamSession)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[session.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if r.bumpNext > 0 {
		r.bumpNext--
		stored.Version++
	}
	if stored.Version != session.Version {
		return fmt.Errorf("%w: session %d", repositories.ErrVersionConflict, session.ID)
	}

	apply(stored)
	stored.Version++
	session.Version++
	r.writes++
	return nil
}

func (r *memSessionRepository) GetResultStats(_ context.Context, _ *gorm.DB, testID uint) (*repositories.TestResultStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &repositories.TestResultStats{}
	sum, n := 0.0, 0
	for _, s := range r.sessions {
		if s.TestID != testID {
			continue
		}
		stats.TotalSessions++
		if s.Status == models.SessionSubmitted {
			stats.SubmittedSessions++
		}
		if scoring.State(s.Scores()) == models.StateFullyGraded {
			stats.FullyGraded++
		}
		if s.OverallBand != nil {
			sum += float64(*s.OverallBand)
			n++
		}
	}
	if n > 0 {
		stats.AverageOverall = sum / float64(n)
	}
	return stats, nil
}

func (r *memSessionRepository) stored(t *testing.T, id uint) *models.ExamSession {
	t.Helper()
	s, err := r.GetByID(context.Background(), nil, id)
	require.NoError(t, err)
	return s
}

// ===== REPOSITORY AGGREGATE =====

type mockRepository struct {
	tests    *MockTestRepository
	sessions *memSessionRepository
}

func (m *mockRepository) Test() repositories.TestRepository       { return m.tests }
func (m *mockRepository) Session() repositories.SessionRepository { return m.sessions }

func (m *mockRepository) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// ===== FIXTURES =====

var (
	student = models.Actor{UserID: "student-1", Role: models.RoleStudent}
	other   = models.Actor{UserID: "student-2", Role: models.RoleStudent}
	teacher = models.Actor{UserID: "teacher-1", Role: models.RoleTeacher}
)

type fixture struct {
	testRepo  *MockTestRepository
	sessions  *memSessionRepository
	publisher *events.MockEventPublisher
	cache     cache.CacheService

	tests   TestService
	session SessionService
	grading GradingService
	export  ExportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		testRepo:  &MockTestRepository{},
		sessions:  newMemSessionRepository(),
		publisher: events.NewMockEventPublisher(logger),
		cache:     cache.NewMemoryCache(),
	}
	repo := &mockRepository{tests: f.testRepo, sessions: f.sessions}
	v := validator.New()
	locker := cache.NewMemoryLocker(5 * time.Second)
	eventService := NewScoringEventService(f.publisher, logger)

	f.tests = NewTestService(repo, f.cache, time.Minute, logger, v)
	f.session = NewSessionService(repo, f.tests, eventService, locker, logger, v)
	f.grading = NewGradingService(repo, f.tests, eventService, locker, logger, v)
	f.export = NewExportService(repo, f.tests, logger)
	return f
}

// withTest makes test resolvable by id.
func (f *fixture) withTest(test *models.Test) *models.Test {
	f.testRepo.On("GetByID", mock.Anything, mock.Anything, test.ID).Return(test, nil)
	return test
}

// itemsBlock builds a block registering ids from..from+n-1.
func itemsBlock(qType models.QuestionType, from, n int) json.RawMessage {
	items := make([]map[string]interface{}, n)
	for i := range items {
		items[i] = map[string]interface{}{"id": from + i}
	}
	data, _ := json.Marshal(map[string]interface{}{"type": qType, "items": items})
	return data
}

func answerKey(prefix string, n int) models.AnswerKey {
	key := make(models.AnswerKey, n)
	for i := 1; i <= n; i++ {
		key[models.QuestionID(strconv.Itoa(i))] = fmt.Sprintf("%s%d", prefix, i)
	}
	return key
}

// buildTest returns a test with n gap-fill reading and n note-completion
// listening questions keyed r1..rn and l1..ln.
func buildTest(id uint, status models.TestStatus, n int) *models.Test {
	return &models.Test{
		ID:     id,
		Title:  "Academic Practice " + strconv.Itoa(int(id)),
		Status: status,
		Reading: datatypes.NewJSONType(models.ReadingPaper{Sections: []models.QuestionGroup{
			{Title: "Passage 1", Questions: []json.RawMessage{itemsBlock(models.QuestionGapFill, 1, n)}},
		}}),
		Listening: datatypes.NewJSONType(models.ListeningPaper{Parts: []models.QuestionGroup{
			{Title: "Part 1", Questions: []json.RawMessage{itemsBlock(models.QuestionNoteCompletion, 1, n)}},
		}}),
		ReadingKey: datatypes.NewJSONType(models.AnswerContent{Answers: answerKey("r", n)}),
		ListenKey:  datatypes.NewJSONType(models.AnswerContent{Answers: answerKey("l", n)}),
		CreatedBy:  teacher.UserID,
	}
}

// answersWithCorrect answers the first correct questions right and the rest
// of total wrong.
func answersWithCorrect(prefix string, correct, total int) map[string]interface{} {
	answers := make(map[string]interface{}, total)
	for i := 1; i <= total; i++ {
		if i <= correct {
			answers[strconv.Itoa(i)] = fmt.Sprintf("%s%d", prefix, i)
		} else {
			answers[strconv.Itoa(i)] = "wrong"
		}
	}
	return answers
}
