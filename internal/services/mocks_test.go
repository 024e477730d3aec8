package services

import (
	"context"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

// MockSetRepository is a mock implementation of SetRepository
type MockSetRepository struct {
	mock.Mock
}

func (m *MockSetRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PracticeSet, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PracticeSet), args.Error(1)
}

func (m *MockSetRepository) GetByTopicLevel(ctx context.Context, tx *gorm.DB, topicID uint, level models.Level) ([]*models.PracticeSet, error) {
	args := m.Called(ctx, tx, topicID, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PracticeSet), args.Error(1)
}

func (m *MockSetRepository) CountByTopicLevel(ctx context.Context, tx *gorm.DB, topicID uint, level models.Level) (int64, error) {
	args := m.Called(ctx, tx, topicID, level)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSetRepository) LevelSetCounts(ctx context.Context, tx *gorm.DB, topicID uint) (map[models.Level]int, error) {
	args := m.Called(ctx, tx, topicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.Level]int), args.Error(1)
}

// MockQuestionRepository is a mock implementation of QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) GetBySet(ctx context.Context, tx *gorm.DB, setID uint) ([]*models.Question, error) {
	args := m.Called(ctx, tx, setID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.Question, error) {
	args := m.Called(ctx, tx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Question), args.Error(1)
}

// MockAttemptRepository is a mock implementation of AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, tx *gorm.DB, attempt *models.PracticeAttempt) error {
	args := m.Called(ctx, tx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByStudentAndSet(ctx context.Context, tx *gorm.DB, studentID string, setID uint, filters repositories.AttemptFilters) ([]*models.PracticeAttempt, error) {
	args := m.Called(ctx, tx, studentID, setID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PracticeAttempt), args.Error(1)
}

func (m *MockAttemptRepository) BestScore(ctx context.Context, tx *gorm.DB, studentID string, setID uint) (*repositories.BestScore, error) {
	args := m.Called(ctx, tx, studentID, setID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.BestScore), args.Error(1)
}

func (m *MockAttemptRepository) DistinctPassedSetIDs(ctx context.Context, tx *gorm.DB, studentID string, topicID uint, level models.Level) ([]uint, error) {
	args := m.Called(ctx, tx, studentID, topicID, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

// MockTestRepository is a mock implementation of TestRepository
type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockTestRepository) CreateAttempt(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error {
	args := m.Called(ctx, tx, attempt)
	return args.Error(0)
}

func (m *MockTestRepository) BestScore(ctx context.Context, tx *gorm.DB, studentID string, testID uint) (*repositories.BestScore, error) {
	args := m.Called(ctx, tx, studentID, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.BestScore), args.Error(1)
}

func (m *MockTestRepository) GetAttemptsByStudent(ctx context.Context, tx *gorm.DB, studentID string, testID uint) ([]*models.TestAttempt, error) {
	args := m.Called(ctx, tx, studentID, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TestAttempt), args.Error(1)
}

// MockProgressionRepository is a mock implementation of ProgressionRepository
type MockProgressionRepository struct {
	mock.Mock
}

func (m *MockProgressionRepository) HasCompletion(ctx context.Context, tx *gorm.DB, studentID string, topicID uint, level models.Level) (bool, error) {
	args := m.Called(ctx, tx, studentID, topicID, level)
	return args.Bool(0), args.Error(1)
}

func (m *MockProgressionRepository) UpsertCompletion(ctx context.Context, tx *gorm.DB, completion *models.LevelCompletion) error {
	args := m.Called(ctx, tx, completion)
	return args.Error(0)
}

// MockScoreRepository is a mock implementation of ScoreRepository
type MockScoreRepository struct {
	mock.Mock
}

func (m *MockScoreRepository) GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudentScore, error) {
	args := m.Called(ctx, tx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudentScore), args.Error(1)
}

func (m *MockScoreRepository) AddPracticeScore(ctx context.Context, tx *gorm.DB, studentID string, delta float64) error {
	args := m.Called(ctx, tx, studentID, delta)
	return args.Error(0)
}

func (m *MockScoreRepository) AddTestScore(ctx context.Context, tx *gorm.DB, studentID string, delta float64) error {
	args := m.Called(ctx, tx, studentID, delta)
	return args.Error(0)
}

func (m *MockScoreRepository) Get(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudentScore, error) {
	args := m.Called(ctx, tx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudentScore), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// mockRepository aggregates the sub-repository mocks. WithTransaction runs
// the callback against the same instance, which matches the production
// contract closely enough for service-level tests.
type mockRepository struct {
	set         *MockSetRepository
	question    *MockQuestionRepository
	attempt     *MockAttemptRepository
	test        *MockTestRepository
	progression *MockProgressionRepository
	score       *MockScoreRepository
	user        *MockUserRepository
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		set:         new(MockSetRepository),
		question:    new(MockQuestionRepository),
		attempt:     new(MockAttemptRepository),
		test:        new(MockTestRepository),
		progression: new(MockProgressionRepository),
		score:       new(MockScoreRepository),
		user:        new(MockUserRepository),
	}
}

func (r *mockRepository) Set() repositories.SetRepository                 { return r.set }
func (r *mockRepository) Question() repositories.QuestionRepository      { return r.question }
func (r *mockRepository) Attempt() repositories.AttemptRepository        { return r.attempt }
func (r *mockRepository) Test() repositories.TestRepository              { return r.test }
func (r *mockRepository) Progression() repositories.ProgressionRepository {
	return r.progression
}
func (r *mockRepository) Score() repositories.ScoreRepository { return r.score }
func (r *mockRepository) User() repositories.UserRepository   { return r.user }

func (r *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *mockRepository) Ping(ctx context.Context) error { return nil }
func (r *mockRepository) Close() error                   { return nil }
