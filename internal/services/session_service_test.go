package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/SAP-F-2025/ielts-exam-service/internal/events"
	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSession(t *testing.T, f *fixture, testID uint) *SessionResponse {
	t.Helper()
	resp, err := f.session.Start(context.Background(), &StartSessionRequest{TestID: testID}, student)
	require.NoError(t, err)
	return resp
}

func TestSessionService_Start(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 3))
	f.withTest(buildTest(2, models.TestDraft, 3))

	first := startSession(t, f, 1)
	assert.Equal(t, models.SessionInProgress, first.Status)
	assert.Equal(t, models.StateUngraded, first.State)
	assert.Equal(t, 1, first.Version)
	assert.Len(t, f.publisher.EventsOfType(events.EventSessionStarted), 1)

	again := startSession(t, f, 1)
	assert.Equal(t, first.ID, again.ID, "an in-progress session is resumed")

	_, err := f.session.Start(ctx, &StartSessionRequest{TestID: 2}, student)
	assert.ErrorIs(t, err, ErrTestNotPublished)

	_, err = f.session.Start(ctx, &StartSessionRequest{}, student)
	assert.True(t, IsValidation(err))
}

func TestSessionService_SaveProgressMergesPerModule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 5))
	s := startSession(t, f, 1)

	_, err := f.session.SaveProgress(ctx, s.ID, models.ModuleReading, map[string]interface{}{"1": "r1", "2": "x"}, student)
	require.NoError(t, err)
	_, err = f.session.SaveProgress(ctx, s.ID, models.ModuleListening, map[string]interface{}{"1": "l1"}, student)
	require.NoError(t, err)
	resp, err := f.session.SaveProgress(ctx, s.ID, models.ModuleReading, map[string]interface{}{"2": "r2", "3": "r3"}, student)
	require.NoError(t, err)

	assert.Equal(t, models.AnswerMap{"1": "r1", "2": "r2", "3": "r3"}, resp.Session.Answers.Reading)
	assert.Equal(t, models.AnswerMap{"1": "l1"}, resp.Session.Answers.Listening)

	stored := f.sessions.stored(t, s.ID)
	assert.Equal(t, 4, stored.Version)
	assert.Equal(t, models.AnswerMap{"1": "r1", "2": "r2", "3": "r3"}, stored.ReadingAnswers.Data())
}

func TestSessionService_SaveProgressCanonicalizesIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 7))
	s := startSession(t, f, 1)

	_, err := f.session.SaveProgress(ctx, s.ID, models.ModuleReading, map[string]interface{}{"7": "wrong"}, student)
	require.NoError(t, err)
	resp, err := f.session.SaveProgress(ctx, s.ID, models.ModuleReading, map[string]interface{}{"7.0": "r7", "01": "r1"}, student)
	require.NoError(t, err)
	assert.Equal(t, models.AnswerMap{"1": "r1", "7": "r7"}, resp.Session.Answers.Reading)

	submitted, err := f.session.Submit(ctx, s.ID, student)
	require.NoError(t, err)
	require.NotNil(t, submitted.ReadingResult)
	assert.Equal(t, 2, submitted.ReadingResult.RawCorrect)
}

func TestSessionService_SaveProgressWarnsButKeeps(t *testing.T) {
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 2))
	s := startSession(t, f, 1)

	resp, err := f.session.SaveProgress(context.Background(), s.ID, models.ModuleReading,
		map[string]interface{}{"1": 42.0, "77": "stray"}, student)
	require.NoError(t, err)

	require.Len(t, resp.Warnings, 2)
	assert.Equal(t, "1", resp.Warnings[0].Field)
	assert.Equal(t, models.QuestionGapFill, resp.Warnings[0].QuestionType)
	assert.Equal(t, "77", resp.Warnings[1].Field)
	assert.Equal(t, models.AnswerMap{"1": 42.0, "77": "stray"}, resp.Session.Answers.Reading)
}

func TestSessionService_SaveWriting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 2))
	s := startSession(t, f, 1)

	_, err := f.session.SaveProgress(ctx, s.ID, models.ModuleWriting, map[string]interface{}{"task1Text": "The chart shows"}, student)
	require.NoError(t, err)
	resp, err := f.session.SaveProgress(ctx, s.ID, models.ModuleWriting, map[string]interface{}{"task2Text": "Some people", "draft": true}, student)
	require.NoError(t, err)

	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "draft", resp.Warnings[0].Field)
	require.NotNil(t, resp.Session.Answers.Writing.Task1Text)
	assert.Equal(t, "The chart shows", *resp.Session.Answers.Writing.Task1Text)
	assert.Equal(t, "Some people", *resp.Session.Answers.Writing.Task2Text)

	before := f.sessions.stored(t, s.ID).Version
	_, err = f.session.SaveProgress(ctx, s.ID, models.ModuleWriting, map[string]interface{}{"task1Text": 123.0}, student)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "task1Text", verrs[0].Field)
	assert.Equal(t, before, f.sessions.stored(t, s.ID).Version, "rejected payload is not written")
}

func TestSessionService_SaveProgressRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 2))
	s := startSession(t, f, 1)

	_, err := f.session.SaveProgress(ctx, s.ID, models.ModuleReading, map[string]interface{}{"1": "r1"}, other)
	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)

	_, err = f.session.SaveProgress(ctx, s.ID, models.ModuleSpeaking, map[string]interface{}{}, student)
	assert.ErrorIs(t, err, ErrInvalidModule)

	_, err = f.session.SaveProgress(ctx, s.ID, models.ModuleReading, []interface{}{"r1"}, student)
	assert.True(t, IsValidation(err))

	_, err = f.session.SaveProgress(ctx, 404, models.ModuleReading, map[string]interface{}{}, student)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_ConcurrentSavesKeepEveryAnswer(t *testing.T) {
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 20))
	s := startSession(t, f, 1)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			module := models.ModuleReading
			if i%2 == 0 {
				module = models.ModuleListening
			}
			_, err := f.session.SaveProgress(context.Background(), s.ID, module,
				map[string]interface{}{fmt.Sprint(i): "a"}, student)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored := f.sessions.stored(t, s.ID)
	assert.Len(t, stored.ReadingAnswers.Data(), 10)
	assert.Len(t, stored.ListeningAnswers.Data(), 10)
	assert.Equal(t, 21, stored.Version)
}

func TestSessionService_RetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 2))
	s := startSession(t, f, 1)

	f.sessions.bumpNext = 1
	resp, err := f.session.SaveProgress(ctx, s.ID, models.ModuleReading, map[string]interface{}{"1": "r1"}, student)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Session.Version)

	f.sessions.bumpNext = maxWriteAttempts
	_, err = f.session.SaveProgress(ctx, s.ID, models.ModuleReading, map[string]interface{}{"2": "r2"}, student)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, models.AnswerMap{"1": "r1"}, f.sessions.stored(t, s.ID).ReadingAnswers.Data())
}

func TestSessionService_SubmitOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 40))
	s := startSession(t, f, 1)

	_, err := f.session.SaveProgress(ctx, s.ID, models.ModuleReading, answersWithCorrect("r", 30, 40), student)
	require.NoError(t, err)
	_, err = f.session.SaveProgress(ctx, s.ID, models.ModuleListening, answersWithCorrect("l", 26, 40), student)
	require.NoError(t, err)

	_, err = f.session.Submit(ctx, s.ID, other)
	var permErr *PermissionError
	require.ErrorAs(t, err, &permErr)

	resp, err := f.session.Submit(ctx, s.ID, student)
	require.NoError(t, err)

	assert.Equal(t, models.SessionSubmitted, resp.Status)
	assert.NotNil(t, resp.SubmittedAt)
	assert.Equal(t, models.StatePartiallyGraded, resp.State)
	assert.Equal(t, models.Band(7.0), *resp.Scores.Reading)
	assert.Equal(t, models.Band(6.5), *resp.Scores.Listening)
	assert.Equal(t, models.Band(7.0), *resp.Scores.Overall)
	require.NotNil(t, resp.ReadingResult)
	assert.Equal(t, 30, resp.ReadingResult.RawCorrect)
	assert.Equal(t, 40, resp.ReadingResult.RawTotal)

	_, err = f.session.Submit(ctx, s.ID, student)
	assert.ErrorIs(t, err, ErrSessionAlreadySubmitted)
	_, err = f.session.SaveProgress(ctx, s.ID, models.ModuleReading, map[string]interface{}{"1": "r1"}, student)
	assert.ErrorIs(t, err, ErrSessionAlreadySubmitted)

	submitted := f.publisher.EventsOfType(events.EventSessionSubmitted)
	require.Len(t, submitted, 1)
	data := submitted[0].Data.(events.SessionSubmittedEvent)
	assert.Equal(t, 30, data.ReadingCorrect)
	assert.Equal(t, 26, data.ListenCorrect)
}

func TestSessionService_SubmitWithoutAnswers(t *testing.T) {
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 40))
	s := startSession(t, f, 1)

	resp, err := f.session.Submit(context.Background(), s.ID, student)
	require.NoError(t, err)
	assert.Equal(t, models.Band(0), *resp.Scores.Reading)
	assert.Equal(t, models.Band(0), *resp.Scores.Overall)
}

func TestSessionService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withTest(buildTest(1, models.TestPublished, 2))
	s := startSession(t, f, 1)

	got, err := f.session.Get(ctx, s.ID, student)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = f.session.Get(ctx, s.ID, teacher)
	assert.NoError(t, err)

	_, err = f.session.Get(ctx, s.ID, other)
	assert.True(t, IsUnauthorized(err))
}
