package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/repositories"
	"github.com/SAP-F-2025/ielts-exam-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores draft and reports defects", func(t *testing.T) {
		f := newFixture(t)
		f.testRepo.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Test")).
			Run(func(args mock.Arguments) { args.Get(2).(*models.Test).ID = 12 }).
			Return(nil).Once()

		req := &CreateTestRequest{
			Title: "Academic Mock 3",
			Reading: models.ReadingPaper{Sections: []models.QuestionGroup{{Questions: []json.RawMessage{
				itemsBlock(models.QuestionGapFill, 1, 2),
				json.RawMessage(`{"type":"matching","data":{"startId":"x","items":[{}]}}`),
			}}}},
			ReadingContent: models.AnswerContent{Answers: answerKey("r", 2)},
		}

		resp, err := f.tests.Create(ctx, req, teacher)
		require.NoError(t, err)

		assert.Equal(t, uint(12), resp.Test.ID)
		assert.Equal(t, models.TestDraft, resp.Test.Status)
		assert.Equal(t, teacher.UserID, resp.Test.CreatedBy)
		require.Len(t, resp.Defects, 1)
		assert.Equal(t, validator.DefectMalformedBlock, resp.Defects[0].Kind)
		assert.Equal(t, models.ModuleReading, resp.Defects[0].Module)
		f.testRepo.AssertExpectations(t)
	})

	t.Run("students cannot author", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.tests.Create(ctx, &CreateTestRequest{Title: "x"}, student)

		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
		f.testRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("title required", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.tests.Create(ctx, &CreateTestRequest{}, teacher)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "title", verrs[0].Field)
	})
}

func TestTestService_DefinitionIsCached(t *testing.T) {
	f := newFixture(t)
	test := buildTest(1, models.TestPublished, 3)
	f.testRepo.On("GetByID", mock.Anything, mock.Anything, uint(1)).Return(test, nil).Once()

	first, err := f.tests.Definition(context.Background(), 1)
	require.NoError(t, err)
	second, err := f.tests.Definition(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, answerKey("r", 3), second.Definition().AnswerKey(models.ModuleReading))
	f.testRepo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestTestService_NotFound(t *testing.T) {
	f := newFixture(t)
	f.testRepo.On("GetByID", mock.Anything, mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

	_, err := f.tests.Get(context.Background(), 99, teacher)
	assert.ErrorIs(t, err, ErrTestNotFound)
	assert.True(t, IsNotFound(err))

	f.testRepo.On("GetByID", mock.Anything, mock.Anything, uint(98)).Return(nil, errors.New("connection reset"))
	_, err = f.tests.Get(context.Background(), 98, teacher)
	assert.ErrorContains(t, err, "failed to get test")
	assert.False(t, IsNotFound(err))
}

func TestTestService_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestDraft, 2))
	f.withTest(buildTest(2, models.TestPublished, 2))

	_, err := f.tests.Get(ctx, 2, student)
	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr, "answer keys are staff only")

	_, err = f.tests.GetCandidateView(ctx, 1, student)
	assert.ErrorIs(t, err, ErrTestNotPublished)

	view, err := f.tests.GetCandidateView(ctx, 2, student)
	require.NoError(t, err)
	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "readingContent")
	assert.NotContains(t, string(data), "r1")

	draft, err := f.tests.GetCandidateView(ctx, 1, teacher)
	require.NoError(t, err)
	assert.Equal(t, uint(1), draft.ID)
}

func TestTestService_GetSchema(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(2, models.TestPublished, 3))

	resp, err := f.tests.GetSchema(ctx, 2, models.ModuleListening, student)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionSchema{
		"1": models.QuestionNoteCompletion,
		"2": models.QuestionNoteCompletion,
		"3": models.QuestionNoteCompletion,
	}, resp.Schema)
	assert.Empty(t, resp.Defects)

	cached, err := f.tests.GetSchema(ctx, 2, models.ModuleListening, student)
	require.NoError(t, err)
	assert.Equal(t, resp.Schema, cached.Schema)

	_, err = f.tests.GetSchema(ctx, 2, models.ModuleWriting, teacher)
	assert.ErrorIs(t, err, ErrInvalidModule)
	assert.True(t, IsValidation(err))
}

func TestTestService_UpdateStatusInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	test := buildTest(3, models.TestDraft, 2)
	f.withTest(test)
	f.testRepo.On("Update", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Test")).Return(nil).Once()

	_, err := f.tests.GetCandidateView(ctx, 3, student)
	require.ErrorIs(t, err, ErrTestNotPublished)

	updated, err := f.tests.UpdateStatus(ctx, 3, models.TestPublished, teacher)
	require.NoError(t, err)
	assert.Equal(t, models.TestPublished, updated.Status)

	_, err = f.tests.GetCandidateView(ctx, 3, student)
	assert.NoError(t, err)

	_, err = f.tests.UpdateStatus(ctx, 3, models.TestStatus("live"), teacher)
	assert.True(t, IsValidation(err))
}

func TestTestService_ListRestrictsStudentsToPublished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	published := models.TestPublished
	test := buildTest(4, models.TestPublished, 1)

	f.testRepo.On("List", mock.Anything, mock.Anything, repositories.TestFilters{Status: &published, Limit: defaultListLimit}).
		Return([]*models.Test{test}, int64(1), nil).Once()
	resp, err := f.tests.List(ctx, &ListTestsRequest{}, student)
	require.NoError(t, err)
	require.Len(t, resp.Tests, 1)
	assert.Equal(t, test.Title, resp.Tests[0].Title)
	assert.Equal(t, int64(1), resp.Total)

	f.testRepo.On("List", mock.Anything, mock.Anything, repositories.TestFilters{Limit: 5, SortBy: "title", SortOrder: "asc"}).
		Return([]*models.Test{}, int64(0), nil).Once()
	resp, err = f.tests.List(ctx, &ListTestsRequest{Limit: 5, SortBy: "title", SortOrder: "asc"}, teacher)
	require.NoError(t, err)
	assert.Empty(t, resp.Tests)

	_, err = f.tests.List(ctx, &ListTestsRequest{SortBy: "band"}, teacher)
	assert.True(t, IsValidation(err))
	f.testRepo.AssertExpectations(t)
}

func TestTestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(5, models.TestDraft, 1))
	f.withTest(buildTest(6, models.TestPublished, 1))
	f.testRepo.On("Delete", mock.Anything, mock.Anything, uint(5)).Return(nil).Once()
	f.testRepo.On("GetByID", mock.Anything, mock.Anything, uint(7)).Return(nil, gorm.ErrRecordNotFound)

	require.NoError(t, f.tests.Delete(ctx, 5, teacher))

	_, err := f.session.Start(ctx, &StartSessionRequest{TestID: 6}, student)
	require.NoError(t, err)
	err = f.tests.Delete(ctx, 6, teacher)
	assert.True(t, IsBusinessRule(err))

	assert.ErrorIs(t, f.tests.Delete(ctx, 7, teacher), ErrTestNotFound)
	assert.True(t, IsUnauthorized(f.tests.Delete(ctx, 5, student)))
	f.testRepo.AssertNumberOfCalls(t, "Delete", 1)
}
