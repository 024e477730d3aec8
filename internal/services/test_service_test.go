package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/events"
	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
	"github.com/SAP-F-2025/practice-engine/internal/validator"
)

type testFixture struct {
	repo      *mockRepository
	publisher *events.MockEventPublisher
	svc       TestService
}

func newTestFixture() *testFixture {
	repo := newMockRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := events.NewMockEventPublisher(logger)

	svc := NewTestService(
		repo,
		logger,
		validator.NewValidator(),
		NewEvaluationService(logger),
		publisher,
	)

	return &testFixture{repo: repo, publisher: publisher, svc: svc}
}

func openTest(id uint) *models.Test {
	now := time.Now()
	return &models.Test{
		ID:              id,
		Name:            "Midterm",
		DurationMinutes: 60,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
	}
}

func closedTest(id uint) *models.Test {
	now := time.Now()
	return &models.Test{
		ID:              id,
		Name:            "Midterm",
		DurationMinutes: 60,
		StartTime:       now.Add(-2 * time.Hour),
		EndTime:         now.Add(-time.Hour),
	}
}

func TestSubmitTest_RecordsEverySubmission(t *testing.T) {
	f := newTestFixture()
	questions := []*models.Question{mcq(1, "a", 1), mcq(2, "b", 1), nat(3, "7", 2)}

	f.repo.test.On("GetByID", mock.Anything, mock.Anything, uint(5)).Return(openTest(5), nil)
	f.repo.question.On("GetByTest", mock.Anything, mock.Anything, uint(5)).Return(questions, nil)
	f.repo.score.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, "student-1").
		Return(&models.StudentScore{StudentID: "student-1"}, nil)
	f.repo.test.On("BestScore", mock.Anything, mock.Anything, "student-1", uint(5)).
		Return(&repositories.BestScore{Best: 0, Attempts: 0}, nil)
	f.repo.test.On("CreateAttempt", mock.Anything, mock.Anything, mock.AnythingOfType("*models.TestAttempt")).
		Run(func(args mock.Arguments) {
			args.Get(2).(*models.TestAttempt).ID = 42
		}).Return(nil)
	f.repo.score.On("AddTestScore", mock.Anything, mock.Anything, "student-1", 66.67).Return(nil)

	resp, err := f.svc.SubmitTest(context.Background(), learner("student-1"), 5,
		&SubmitTestRequest{Answers: map[uint]string{1: "a", 2: "c", 3: "7"}})

	assert.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.True(t, resp.FirstAttempt)
	assert.Equal(t, uint(42), resp.AttemptID)
	assert.InDelta(t, 66.67, resp.Score, 0.001)
	assert.InDelta(t, 66.67, resp.ScoreIncrement, 0.001)
	assert.Equal(t, 2, resp.CorrectCount)

	assert.Len(t, f.publisher.Events, 1)
	assert.Equal(t, events.EventTestSubmitted, f.publisher.Events[0].Type)
	f.repo.score.AssertExpectations(t)
}

func TestSubmitTest_ZeroScoreStillRecorded(t *testing.T) {
	f := newTestFixture()
	questions := []*models.Question{mcq(1, "a", 1)}

	f.repo.test.On("GetByID", mock.Anything, mock.Anything, uint(5)).Return(openTest(5), nil)
	f.repo.question.On("GetByTest", mock.Anything, mock.Anything, uint(5)).Return(questions, nil)
	f.repo.score.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, "student-1").
		Return(&models.StudentScore{StudentID: "student-1"}, nil)
	f.repo.test.On("BestScore", mock.Anything, mock.Anything, "student-1", uint(5)).
		Return(&repositories.BestScore{Best: 0, Attempts: 0}, nil)
	f.repo.test.On("CreateAttempt", mock.Anything, mock.Anything, mock.AnythingOfType("*models.TestAttempt")).Return(nil)

	resp, err := f.svc.SubmitTest(context.Background(), learner("student-1"), 5,
		&SubmitTestRequest{Answers: map[uint]string{1: "b"}})

	assert.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.InDelta(t, 0, resp.Score, 0.001)
	f.repo.test.AssertCalled(t, "CreateAttempt", mock.Anything, mock.Anything, mock.AnythingOfType("*models.TestAttempt"))
	f.repo.score.AssertNotCalled(t, "AddTestScore", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitTest_ImprovementCreditsOnlyDelta(t *testing.T) {
	f := newTestFixture()
	questions := []*models.Question{mcq(1, "a", 1), mcq(2, "b", 1)}

	f.repo.test.On("GetByID", mock.Anything, mock.Anything, uint(5)).Return(openTest(5), nil)
	f.repo.question.On("GetByTest", mock.Anything, mock.Anything, uint(5)).Return(questions, nil)
	f.repo.score.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, "student-1").
		Return(&models.StudentScore{StudentID: "student-1", TestScore: 50}, nil)
	f.repo.test.On("BestScore", mock.Anything, mock.Anything, "student-1", uint(5)).
		Return(&repositories.BestScore{Best: 50, Attempts: 1}, nil)
	f.repo.test.On("CreateAttempt", mock.Anything, mock.Anything, mock.AnythingOfType("*models.TestAttempt")).Return(nil)
	f.repo.score.On("AddTestScore", mock.Anything, mock.Anything, "student-1", 50.0).Return(nil)

	resp, err := f.svc.SubmitTest(context.Background(), learner("student-1"), 5,
		&SubmitTestRequest{Answers: map[uint]string{1: "a", 2: "b"}})

	assert.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.False(t, resp.FirstAttempt)
	assert.InDelta(t, 50, resp.PreviousBest, 0.001)
	assert.InDelta(t, 50, resp.ScoreIncrement, 0.001)
	f.repo.score.AssertExpectations(t)
}

func TestSubmitTest_NoImprovementCreditsNothing(t *testing.T) {
	f := newTestFixture()
	questions := []*models.Question{mcq(1, "a", 1)}

	f.repo.test.On("GetByID", mock.Anything, mock.Anything, uint(5)).Return(openTest(5), nil)
	f.repo.question.On("GetByTest", mock.Anything, mock.Anything, uint(5)).Return(questions, nil)
	f.repo.score.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, "student-1").
		Return(&models.StudentScore{StudentID: "student-1", TestScore: 100}, nil)
	f.repo.test.On("BestScore", mock.Anything, mock.Anything, "student-1", uint(5)).
		Return(&repositories.BestScore{Best: 100, Attempts: 1}, nil)
	f.repo.test.On("CreateAttempt", mock.Anything, mock.Anything, mock.AnythingOfType("*models.TestAttempt")).Return(nil)

	resp, err := f.svc.SubmitTest(context.Background(), learner("student-1"), 5,
		&SubmitTestRequest{Answers: map[uint]string{1: "a"}})

	assert.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.InDelta(t, 0, resp.ScoreIncrement, 0.001)
	// The attempt row is still appended even when nothing is credited.
	f.repo.test.AssertCalled(t, "CreateAttempt", mock.Anything, mock.Anything, mock.AnythingOfType("*models.TestAttempt"))
	f.repo.score.AssertNotCalled(t, "AddTestScore", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitTest_OutsideWindowRejected(t *testing.T) {
	f := newTestFixture()

	f.repo.test.On("GetByID", mock.Anything, mock.Anything, uint(5)).Return(closedTest(5), nil)

	resp, err := f.svc.SubmitTest(context.Background(), learner("student-1"), 5,
		&SubmitTestRequest{Answers: map[uint]string{1: "a"}})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrTestClosed)
	f.repo.question.AssertNotCalled(t, "GetByTest", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitTest_NonLearnerPreviewsOutsideWindow(t *testing.T) {
	f := newTestFixture()
	questions := []*models.Question{mcq(1, "a", 1)}

	f.repo.test.On("GetByID", mock.Anything, mock.Anything, uint(5)).Return(closedTest(5), nil)
	f.repo.question.On("GetByTest", mock.Anything, mock.Anything, uint(5)).Return(questions, nil)

	staff := models.Principal{UserID: "staff-1", Role: models.RoleStaff}
	resp, err := f.svc.SubmitTest(context.Background(), staff, 5,
		&SubmitTestRequest{Answers: map[uint]string{1: "a"}})

	assert.NoError(t, err)
	assert.False(t, resp.Recorded)
	assert.InDelta(t, 100, resp.Score, 0.001)
	f.repo.test.AssertNotCalled(t, "CreateAttempt", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitTest_TestNotFound(t *testing.T) {
	f := newTestFixture()

	f.repo.test.On("GetByID", mock.Anything, mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

	resp, err := f.svc.SubmitTest(context.Background(), learner("student-1"), 99,
		&SubmitTestRequest{Answers: map[uint]string{1: "a"}})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrTestNotFound)
}

func TestGetTestQuestions_WithinWindow(t *testing.T) {
	f := newTestFixture()
	questions := []*models.Question{mcq(1, "a", 1), nat(2, "7", 2)}

	f.repo.test.On("GetByID", mock.Anything, mock.Anything, uint(5)).Return(openTest(5), nil)
	f.repo.question.On("GetByTest", mock.Anything, mock.Anything, uint(5)).Return(questions, nil)

	resp, err := f.svc.GetTestQuestions(context.Background(), learner("student-1"), 5)

	assert.NoError(t, err)
	assert.Equal(t, uint(5), resp.TestID)
	assert.Equal(t, "Midterm", resp.Name)
	assert.Equal(t, 60, resp.DurationMinutes)
	assert.Len(t, resp.Questions, 2)
}

func TestGetTestQuestions_ClosedWindowRejectsLearner(t *testing.T) {
	f := newTestFixture()

	f.repo.test.On("GetByID", mock.Anything, mock.Anything, uint(5)).Return(closedTest(5), nil)

	resp, err := f.svc.GetTestQuestions(context.Background(), learner("student-1"), 5)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrTestClosed)
}

func TestGetTestAttempts(t *testing.T) {
	f := newTestFixture()

	now := time.Now()
	f.repo.test.On("GetByID", mock.Anything, mock.Anything, uint(5)).Return(openTest(5), nil)
	f.repo.test.On("GetAttemptsByStudent", mock.Anything, mock.Anything, "student-1", uint(5)).
		Return([]*models.TestAttempt{
			{ID: 2, TestID: 5, StudentID: "student-1", Score: 80, SubmittedAt: now},
			{ID: 1, TestID: 5, StudentID: "student-1", Score: 60, SubmittedAt: now.Add(-time.Hour)},
		}, nil)

	views, err := f.svc.GetTestAttempts(context.Background(), learner("student-1"), 5)

	assert.NoError(t, err)
	assert.Len(t, views, 2)
	assert.Equal(t, uint(2), views[0].AttemptID)
	assert.InDelta(t, 80, views[0].Score, 0.001)
}
