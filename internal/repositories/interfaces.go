package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortOrder string     `json:"sort_order"` // "asc", "desc" over attempt_at
}

// BestScore is the derived per-(student,set) aggregate the recorder reads
// under lock: MAX(score) over attempt rows plus the row count. Best defaults
// to 0 when no attempts exist.
type BestScore struct {
	Best     float64 `json:"best"`
	Attempts int64   `json:"attempts"`
}

// ===== REPOSITORY INTERFACES =====

// All methods accept an optional transaction handle; nil falls back to the
// repository's own connection, exactly one of the two is used per call.

type SetRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PracticeSet, error)
	// GetByTopicLevel returns all sets of a topic+level in sequence order
	// (display_order ASC, id ASC).
	GetByTopicLevel(ctx context.Context, tx *gorm.DB, topicID uint, level models.Level) ([]*models.PracticeSet, error)
	CountByTopicLevel(ctx context.Context, tx *gorm.DB, topicID uint, level models.Level) (int64, error)
	// LevelSetCounts returns the set count per level for a topic.
	LevelSetCounts(ctx context.Context, tx *gorm.DB, topicID uint) (map[models.Level]int, error)
}

type QuestionRepository interface {
	// GetBySet returns the set's questions ordered by their position in the set.
	GetBySet(ctx context.Context, tx *gorm.DB, setID uint) ([]*models.Question, error)
	GetByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.Question, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.PracticeAttempt) error
	GetByStudentAndSet(ctx context.Context, tx *gorm.DB, studentID string, setID uint, filters AttemptFilters) ([]*models.PracticeAttempt, error)
	// BestScore reads the (student,set) aggregate. Inside the recorder
	// transaction it runs after the student score row lock is held, which is
	// what serializes concurrent submissions by the same student.
	BestScore(ctx context.Context, tx *gorm.DB, studentID string, setID uint) (*BestScore, error)
	// DistinctPassedSetIDs returns the ids of sets in topic+level the student
	// has at least one recorded attempt against. Recorded implies passed for
	// practice sets.
	DistinctPassedSetIDs(ctx context.Context, tx *gorm.DB, studentID string, topicID uint, level models.Level) ([]uint, error)
}

type TestRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error)
	CreateAttempt(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error
	BestScore(ctx context.Context, tx *gorm.DB, studentID string, testID uint) (*BestScore, error)
	GetAttemptsByStudent(ctx context.Context, tx *gorm.DB, studentID string, testID uint) ([]*models.TestAttempt, error)
}

type ProgressionRepository interface {
	HasCompletion(ctx context.Context, tx *gorm.DB, studentID string, topicID uint, level models.Level) (bool, error)
	// UpsertCompletion inserts the fact or refreshes its timestamp. Idempotent.
	UpsertCompletion(ctx context.Context, tx *gorm.DB, completion *models.LevelCompletion) error
}

type ScoreRepository interface {
	// GetOrCreateForUpdate locks the student's score row (creating it first if
	// absent) for the remainder of the transaction. The recorder takes this
	// lock before reading best scores so concurrent submissions by the same
	// student serialize instead of double-crediting.
	GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudentScore, error)
	AddPracticeScore(ctx context.Context, tx *gorm.DB, studentID string, delta float64) error
	AddTestScore(ctx context.Context, tx *gorm.DB, studentID string, delta float64) error
	Get(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudentScore, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
}
