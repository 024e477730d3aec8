package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/cache"
	"github.com/SAP-F-2025/practice-engine/internal/events"
	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
	"github.com/SAP-F-2025/practice-engine/internal/validator"
)

type practiceFixture struct {
	repo      *mockRepository
	publisher *events.MockEventPublisher
	svc       PracticeService
}

func newPracticeFixture() *practiceFixture {
	repo := newMockRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := events.NewMockEventPublisher(logger)

	svc := NewPracticeService(
		repo,
		logger,
		validator.NewValidator(),
		NewEvaluationService(logger),
		NewProgressionService(repo, logger),
		publisher,
		cache.NewCacheManager(nil),
	)

	return &practiceFixture{repo: repo, publisher: publisher, svc: svc}
}

func learner(id string) models.Principal {
	return models.Principal{UserID: id, Role: models.RoleStudent}
}

func levelOneSet(id uint, order int) *models.PracticeSet {
	return &models.PracticeSet{
		ID:                  id,
		TopicID:             1,
		Level:               models.Level1,
		DisplayOrder:        order,
		ThresholdPercentage: 50,
	}
}

func TestSubmitAttempt_FirstAttemptRecordsFullScore(t *testing.T) {
	f := newPracticeFixture()
	set := levelOneSet(10, 1)
	questions := []*models.Question{mcq(1, "a", 1), nat(2, "10", 2)}

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(10)).Return(set, nil)
	f.repo.set.On("GetByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return([]*models.PracticeSet{set, levelOneSet(11, 2)}, nil)
	f.repo.question.On("GetBySet", mock.Anything, mock.Anything, uint(10)).Return(questions, nil)

	// Access gate sees no passed sets, completion check afterwards sees one.
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{}, nil).Once()
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{10}, nil).Once()

	f.repo.score.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, "student-1").
		Return(&models.StudentScore{StudentID: "student-1"}, nil)
	f.repo.attempt.On("BestScore", mock.Anything, mock.Anything, "student-1", uint(10)).
		Return(&repositories.BestScore{Best: 0, Attempts: 0}, nil)
	f.repo.attempt.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.PracticeAttempt")).
		Run(func(args mock.Arguments) {
			args.Get(2).(*models.PracticeAttempt).ID = 100
		}).Return(nil)
	f.repo.score.On("AddPracticeScore", mock.Anything, mock.Anything, "student-1", 3.0).Return(nil)
	f.repo.set.On("CountByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return(int64(2), nil)

	resp, err := f.svc.SubmitAttempt(context.Background(), learner("student-1"), 10,
		&SubmitPracticeAttemptRequest{Answers: map[uint]string{1: "a", 2: "10"}})

	assert.NoError(t, err)
	assert.True(t, resp.Passed)
	assert.True(t, resp.Recorded)
	assert.True(t, resp.FirstAttempt)
	assert.InDelta(t, 0, resp.PreviousBest, 0.001)
	assert.InDelta(t, 3, resp.ScoreIncrement, 0.001)
	assert.InDelta(t, 3, resp.CurrentScore, 0.001)
	assert.False(t, resp.LevelCompleted)

	assert.Len(t, f.publisher.Events, 1)
	assert.Equal(t, events.EventAttemptRecorded, f.publisher.Events[0].Type)
	f.repo.score.AssertExpectations(t)
	f.repo.attempt.AssertExpectations(t)
}

func TestSubmitAttempt_ImprovementCreditsOnlyDelta(t *testing.T) {
	f := newPracticeFixture()
	set := levelOneSet(10, 1)
	questions := []*models.Question{mcq(1, "a", 1), nat(2, "10", 2)}

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(10)).Return(set, nil)
	f.repo.question.On("GetBySet", mock.Anything, mock.Anything, uint(10)).Return(questions, nil)

	// Already passed, so the gate admits the set without sequencing.
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{10}, nil)
	f.repo.set.On("GetByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return([]*models.PracticeSet{set, levelOneSet(11, 2)}, nil)

	f.repo.score.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, "student-1").
		Return(&models.StudentScore{StudentID: "student-1", PracticeScore: 2}, nil)
	f.repo.attempt.On("BestScore", mock.Anything, mock.Anything, "student-1", uint(10)).
		Return(&repositories.BestScore{Best: 2, Attempts: 1}, nil)
	f.repo.attempt.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.PracticeAttempt")).Return(nil)
	f.repo.score.On("AddPracticeScore", mock.Anything, mock.Anything, "student-1", 1.0).Return(nil)
	f.repo.set.On("CountByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return(int64(2), nil)

	resp, err := f.svc.SubmitAttempt(context.Background(), learner("student-1"), 10,
		&SubmitPracticeAttemptRequest{Answers: map[uint]string{1: "a", 2: "10"}})

	assert.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.False(t, resp.FirstAttempt)
	assert.InDelta(t, 2, resp.PreviousBest, 0.001)
	assert.InDelta(t, 1, resp.ScoreIncrement, 0.001)
	assert.InDelta(t, 3, resp.CurrentScore, 0.001)
	f.repo.score.AssertCalled(t, "AddPracticeScore", mock.Anything, mock.Anything, "student-1", 1.0)
}

func TestSubmitAttempt_NoImprovementCreditsNothing(t *testing.T) {
	f := newPracticeFixture()
	set := levelOneSet(10, 1)
	questions := []*models.Question{mcq(1, "a", 1), nat(2, "10", 2)}

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(10)).Return(set, nil)
	f.repo.question.On("GetBySet", mock.Anything, mock.Anything, uint(10)).Return(questions, nil)
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{10}, nil)
	f.repo.set.On("GetByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return([]*models.PracticeSet{set, levelOneSet(11, 2)}, nil)

	f.repo.score.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, "student-1").
		Return(&models.StudentScore{StudentID: "student-1", PracticeScore: 3}, nil)
	f.repo.attempt.On("BestScore", mock.Anything, mock.Anything, "student-1", uint(10)).
		Return(&repositories.BestScore{Best: 3, Attempts: 2}, nil)
	f.repo.attempt.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.PracticeAttempt")).Return(nil)
	f.repo.set.On("CountByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return(int64(2), nil)

	resp, err := f.svc.SubmitAttempt(context.Background(), learner("student-1"), 10,
		&SubmitPracticeAttemptRequest{Answers: map[uint]string{1: "a", 2: "10"}})

	assert.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.InDelta(t, 0, resp.ScoreIncrement, 0.001)
	// The attempt row is still appended even when nothing is credited.
	f.repo.attempt.AssertCalled(t, "Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.PracticeAttempt"))
	f.repo.score.AssertNotCalled(t, "AddPracticeScore", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitAttempt_FailingSubmissionNotRecorded(t *testing.T) {
	f := newPracticeFixture()
	set := levelOneSet(10, 1)
	questions := []*models.Question{mcq(1, "a", 1), nat(2, "10", 2)}

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(10)).Return(set, nil)
	f.repo.question.On("GetBySet", mock.Anything, mock.Anything, uint(10)).Return(questions, nil)
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{}, nil)
	f.repo.set.On("GetByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return([]*models.PracticeSet{set}, nil)

	resp, err := f.svc.SubmitAttempt(context.Background(), learner("student-1"), 10,
		&SubmitPracticeAttemptRequest{Answers: map[uint]string{1: "b", 2: "99"}})

	assert.NoError(t, err)
	assert.False(t, resp.Passed)
	assert.False(t, resp.Recorded)
	assert.Empty(t, f.publisher.Events)
	f.repo.attempt.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.repo.score.AssertNotCalled(t, "GetOrCreateForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitAttempt_NonLearnerPreviewNotRecorded(t *testing.T) {
	f := newPracticeFixture()
	set := levelOneSet(10, 1)
	questions := []*models.Question{mcq(1, "a", 1), nat(2, "10", 2)}

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(10)).Return(set, nil)
	f.repo.question.On("GetBySet", mock.Anything, mock.Anything, uint(10)).Return(questions, nil)

	staff := models.Principal{UserID: "staff-1", Role: models.RoleStaff}
	resp, err := f.svc.SubmitAttempt(context.Background(), staff, 10,
		&SubmitPracticeAttemptRequest{Answers: map[uint]string{1: "a", 2: "10"}})

	assert.NoError(t, err)
	assert.True(t, resp.Passed)
	assert.False(t, resp.Recorded)
	assert.Empty(t, f.publisher.Events)
	f.repo.attempt.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	// Staff never hit the sequence gate either.
	f.repo.set.AssertNotCalled(t, "GetByTopicLevel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitAttempt_SequenceGateBlocksLockedSet(t *testing.T) {
	f := newPracticeFixture()
	first := levelOneSet(10, 1)
	second := levelOneSet(11, 2)

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(11)).Return(second, nil)
	f.repo.set.On("GetByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return([]*models.PracticeSet{first, second}, nil)
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{}, nil)

	resp, err := f.svc.SubmitAttempt(context.Background(), learner("student-1"), 11,
		&SubmitPracticeAttemptRequest{Answers: map[uint]string{1: "a"}})

	assert.Nil(t, resp)
	assert.True(t, IsForbidden(err))
	f.repo.question.AssertNotCalled(t, "GetBySet", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitAttempt_CompletingLastSetGrantsLevel(t *testing.T) {
	f := newPracticeFixture()
	set := levelOneSet(10, 1)
	questions := []*models.Question{mcq(1, "a", 1)}

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(10)).Return(set, nil)
	f.repo.set.On("GetByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return([]*models.PracticeSet{set}, nil)
	f.repo.question.On("GetBySet", mock.Anything, mock.Anything, uint(10)).Return(questions, nil)

	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{}, nil).Once()
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{10}, nil).Once()

	f.repo.score.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, "student-1").
		Return(&models.StudentScore{StudentID: "student-1"}, nil)
	f.repo.attempt.On("BestScore", mock.Anything, mock.Anything, "student-1", uint(10)).
		Return(&repositories.BestScore{Best: 0, Attempts: 0}, nil)
	f.repo.attempt.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.PracticeAttempt")).Return(nil)
	f.repo.score.On("AddPracticeScore", mock.Anything, mock.Anything, "student-1", 1.0).Return(nil)
	f.repo.set.On("CountByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return(int64(1), nil)
	f.repo.progression.On("HasCompletion", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return(false, nil)
	f.repo.progression.On("UpsertCompletion", mock.Anything, mock.Anything, mock.AnythingOfType("*models.LevelCompletion")).
		Return(nil)

	resp, err := f.svc.SubmitAttempt(context.Background(), learner("student-1"), 10,
		&SubmitPracticeAttemptRequest{Answers: map[uint]string{1: "a"}})

	assert.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.True(t, resp.LevelCompleted)

	assert.Len(t, f.publisher.Events, 2)
	assert.Equal(t, events.EventAttemptRecorded, f.publisher.Events[0].Type)
	assert.Equal(t, events.EventLevelCompleted, f.publisher.Events[1].Type)
	f.repo.progression.AssertExpectations(t)
}

func TestSubmitAttempt_ReplayOfCompletedLevelDoesNotReannounce(t *testing.T) {
	f := newPracticeFixture()
	set := levelOneSet(10, 1)
	questions := []*models.Question{mcq(1, "a", 1)}

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(10)).Return(set, nil)
	f.repo.set.On("GetByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return([]*models.PracticeSet{set}, nil)
	f.repo.question.On("GetBySet", mock.Anything, mock.Anything, uint(10)).Return(questions, nil)
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{10}, nil)

	f.repo.score.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, "student-1").
		Return(&models.StudentScore{StudentID: "student-1"}, nil)
	f.repo.attempt.On("BestScore", mock.Anything, mock.Anything, "student-1", uint(10)).
		Return(&repositories.BestScore{Best: 1, Attempts: 1}, nil)
	f.repo.attempt.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.PracticeAttempt")).Return(nil)
	f.repo.set.On("CountByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return(int64(1), nil)
	f.repo.progression.On("HasCompletion", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return(true, nil)
	f.repo.progression.On("UpsertCompletion", mock.Anything, mock.Anything, mock.AnythingOfType("*models.LevelCompletion")).
		Return(nil)

	resp, err := f.svc.SubmitAttempt(context.Background(), learner("student-1"), 10,
		&SubmitPracticeAttemptRequest{Answers: map[uint]string{1: "a"}})

	assert.NoError(t, err)
	assert.True(t, resp.LevelCompleted)

	// Only the attempt event; completion was already granted.
	assert.Len(t, f.publisher.Events, 1)
	assert.Equal(t, events.EventAttemptRecorded, f.publisher.Events[0].Type)
}

func TestSubmitAttempt_SetNotFound(t *testing.T) {
	f := newPracticeFixture()

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

	resp, err := f.svc.SubmitAttempt(context.Background(), learner("student-1"), 99,
		&SubmitPracticeAttemptRequest{Answers: map[uint]string{1: "a"}})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrSetNotFound)
}

func TestGetSetQuestions_StripsCorrectAnswers(t *testing.T) {
	f := newPracticeFixture()
	set := levelOneSet(10, 1)

	optA, optB := "Option A", "Option B"
	choice := mcq(1, "a", 1)
	choice.OptionA = &optA
	choice.OptionB = &optB
	numeric := nat(2, "10", 2)
	numeric.OptionA = &optA // stale authoring leftover, must not leak

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(10)).Return(set, nil)
	f.repo.set.On("GetByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return([]*models.PracticeSet{set}, nil)
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{}, nil)
	f.repo.question.On("GetBySet", mock.Anything, mock.Anything, uint(10)).
		Return([]*models.Question{choice, numeric}, nil)

	resp, err := f.svc.GetSetQuestions(context.Background(), learner("student-1"), 10)

	assert.NoError(t, err)
	assert.Len(t, resp.Questions, 2)
	assert.Equal(t, &optA, resp.Questions[0].OptionA)
	assert.Nil(t, resp.Questions[1].OptionA)
}

func TestGetSetQuestions_EmptySet(t *testing.T) {
	f := newPracticeFixture()
	set := levelOneSet(10, 1)

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(10)).Return(set, nil)
	f.repo.set.On("GetByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return([]*models.PracticeSet{set}, nil)
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{}, nil)
	f.repo.question.On("GetBySet", mock.Anything, mock.Anything, uint(10)).
		Return([]*models.Question{}, nil)

	resp, err := f.svc.GetSetQuestions(context.Background(), learner("student-1"), 10)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrSetEmpty)
}

func TestGetHistory_ReturnsAttemptsAndBest(t *testing.T) {
	f := newPracticeFixture()
	set := levelOneSet(10, 1)

	f.repo.set.On("GetByID", mock.Anything, mock.Anything, uint(10)).Return(set, nil)
	f.repo.set.On("GetByTopicLevel", mock.Anything, mock.Anything, uint(1), models.Level1).
		Return([]*models.PracticeSet{set}, nil)
	f.repo.attempt.On("DistinctPassedSetIDs", mock.Anything, mock.Anything, "student-1", uint(1), models.Level1).
		Return([]uint{10}, nil)

	f.repo.attempt.On("GetByStudentAndSet", mock.Anything, mock.Anything, "student-1", uint(10), mock.AnythingOfType("repositories.AttemptFilters")).
		Return([]*models.PracticeAttempt{
			{ID: 2, StudentID: "student-1", SetID: 10, Score: 2.5},
			{ID: 1, StudentID: "student-1", SetID: 10, Score: 2},
		}, nil)
	f.repo.attempt.On("BestScore", mock.Anything, mock.Anything, "student-1", uint(10)).
		Return(&repositories.BestScore{Best: 2.5, Attempts: 2}, nil)

	resp, err := f.svc.GetHistory(context.Background(), learner("student-1"), 10, nil)

	assert.NoError(t, err)
	assert.Equal(t, uint(10), resp.SetID)
	assert.InDelta(t, 2.5, resp.BestScore, 0.001)
	assert.Len(t, resp.Attempts, 2)
	assert.Equal(t, uint(2), resp.Attempts[0].AttemptID)
}

func TestSubmitAttempt_RejectsEmptyAnswers(t *testing.T) {
	f := newPracticeFixture()

	// A non-nil but empty answers map is a client error, rejected before any
	// repository read or write.
	resp, err := f.svc.SubmitAttempt(context.Background(), learner("student-1"), 10,
		&SubmitPracticeAttemptRequest{Answers: map[uint]string{}})

	assert.Nil(t, resp)
	assert.True(t, IsValidation(err))
	f.repo.set.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
	f.repo.attempt.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetHistory_RejectsInvalidQuery(t *testing.T) {
	f := newPracticeFixture()

	resp, err := f.svc.GetHistory(context.Background(), learner("student-1"), 10,
		&AttemptHistoryQuery{SortOrder: "sideways"})

	assert.Nil(t, resp)
	assert.True(t, IsValidation(err))
	f.repo.set.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetStudentScore_NoRowYet(t *testing.T) {
	f := newPracticeFixture()

	f.repo.score.On("Get", mock.Anything, mock.Anything, "student-1").Return(nil, gorm.ErrRecordNotFound)

	score, err := f.svc.GetStudentScore(context.Background(), "student-1")

	assert.NoError(t, err)
	assert.Equal(t, "student-1", score.StudentID)
	assert.InDelta(t, 0, score.PracticeScore, 0.001)
	assert.InDelta(t, 0, score.TestScore, 0.001)
}
