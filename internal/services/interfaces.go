package services

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/validator"
)

// ===== REQUEST DTOs =====

// Use request validator types
type SubmitPracticeAttemptRequest = validator.SubmitPracticeAttemptRequest
type SubmitTestRequest = validator.SubmitTestRequest
type AttemptHistoryQuery = validator.AttemptHistoryQuery

// ===== EVALUATION DTOs =====

// QuestionEvaluation is the per-question outcome of one submission.
type QuestionEvaluation struct {
	QuestionID      uint    `json:"question_id"`
	Correct         bool    `json:"correct"`
	GainedMarks     float64 `json:"gained_marks"`
	SubmittedAnswer string  `json:"submitted_answer"`
	CorrectAnswer   string  `json:"correct_answer"`
}

// EvaluationResult is the aggregate verdict over one submission. ScoredMarks
// can be negative under negative marking; it is not clamped here.
type EvaluationResult struct {
	ScoredMarks    float64              `json:"scored_marks"`
	TotalMarks     int                  `json:"total_marks"`
	ThresholdMarks float64              `json:"threshold_marks"`
	Passed         bool                 `json:"passed"`
	Questions      []QuestionEvaluation `json:"questions"`
}

// TestEvaluationResult scores a test on a fixed percentage scale instead of
// set marks.
type TestEvaluationResult struct {
	Score         float64              `json:"score"`
	CorrectCount  int                  `json:"correct_count"`
	QuestionCount int                  `json:"question_count"`
	Questions     []QuestionEvaluation `json:"questions"`
}

// ===== PRACTICE DTOs =====

// QuestionView is a question sanitized for delivery: no correct answer, and
// option slots only for choice types.
type QuestionView struct {
	QuestionID uint                `json:"question_id"`
	Type       models.QuestionType `json:"question_type"`
	Text       string              `json:"question_text"`
	OptionA    *string             `json:"option_a,omitempty"`
	OptionB    *string             `json:"option_b,omitempty"`
	OptionC    *string             `json:"option_c,omitempty"`
	OptionD    *string             `json:"option_d,omitempty"`
	Marks      int                 `json:"marks"`
	ImageURL   *string             `json:"image_url,omitempty"`
}

type SetQuestionsResponse struct {
	SetID           uint           `json:"set_id"`
	NegativeMarking bool           `json:"negative_marking"`
	TotalMarks      int            `json:"total_marks"`
	Questions       []QuestionView `json:"questions"`
}

type SubmitPracticeAttemptResponse struct {
	*EvaluationResult
	Recorded       bool    `json:"recorded"`
	FirstAttempt   bool    `json:"first_attempt"`
	PreviousBest   float64 `json:"previous_best"`
	ScoreIncrement float64 `json:"score_increment"`
	CurrentScore   float64 `json:"current_score"`
	LevelCompleted bool    `json:"level_completed"`
}

type AttemptView struct {
	AttemptID uint           `json:"attempt_id"`
	Score     float64        `json:"score"`
	Breakdown datatypes.JSON `json:"breakdown,omitempty"`
	AttemptAt time.Time      `json:"attempt_at"`
}

type PracticeHistoryResponse struct {
	SetID     uint           `json:"set_id"`
	BestScore float64        `json:"best_score"`
	Attempts  []*AttemptView `json:"attempts"`
}

// ===== PROGRESSION DTOs =====

type LevelOverview struct {
	Level          models.Level      `json:"level"`
	State          models.LevelState `json:"state"`
	SetCount       int               `json:"set_count"`
	CompletedCount int               `json:"completed_count"`
	// HavingAdditional marks a completed level that gained sets after the
	// completion was granted; the grant itself is never retracted.
	HavingAdditional bool `json:"having_additional"`
}

type SetSummary struct {
	SetID               uint    `json:"set_id"`
	DisplayOrder        int     `json:"display_order"`
	TotalMarks          int     `json:"total_marks"`
	ThresholdPercentage float64 `json:"threshold_percentage"`
	NegativeMarking     bool    `json:"negative_marking"`
	Completed           bool    `json:"completed"`
	Accessible          bool    `json:"accessible"`
}

type LevelSetsResponse struct {
	TopicID uint          `json:"topic_id"`
	Level   models.Level  `json:"level"`
	Sets    []*SetSummary `json:"sets"`
}

// ===== TEST DTOs =====

type TestQuestionsResponse struct {
	TestID          uint           `json:"test_id"`
	Name            string         `json:"test_name"`
	DurationMinutes int            `json:"duration_minutes"`
	Questions       []QuestionView `json:"questions"`
}

type SubmitTestResponse struct {
	*TestEvaluationResult
	AttemptID      uint      `json:"attempt_id"`
	TestID         uint      `json:"test_id"`
	Recorded       bool      `json:"recorded"`
	FirstAttempt   bool      `json:"first_attempt"`
	PreviousBest   float64   `json:"previous_best"`
	ScoreIncrement float64   `json:"score_increment"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type TestAttemptView struct {
	AttemptID   uint      `json:"attempt_id"`
	Score       float64   `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ===== SERVICE INTERFACES =====

// EvaluationService scores submissions. Pure: no I/O, no clock, safe to call
// concurrently.
type EvaluationService interface {
	Evaluate(set *models.PracticeSet, questions []*models.Question, answers map[uint]string) (*EvaluationResult, error)
	EvaluateTest(questions []*models.Question, answers map[uint]string) (*TestEvaluationResult, error)
}

// PracticeService handles set question delivery, attempt recording and
// attempt history for practice sets.
type PracticeService interface {
	GetSetQuestions(ctx context.Context, principal models.Principal, setID uint) (*SetQuestionsResponse, error)
	SubmitAttempt(ctx context.Context, principal models.Principal, setID uint, req *SubmitPracticeAttemptRequest) (*SubmitPracticeAttemptResponse, error)
	GetHistory(ctx context.Context, principal models.Principal, setID uint, query *AttemptHistoryQuery) (*PracticeHistoryResponse, error)
	GetStudentScore(ctx context.Context, studentID string) (*models.StudentScore, error)
}

// ProgressionService derives level states and enforces sequential access.
type ProgressionService interface {
	GetLevelOverviews(ctx context.Context, principal models.Principal, topicID uint) ([]*LevelOverview, error)
	GetSetsByLevel(ctx context.Context, principal models.Principal, topicID uint, level models.Level) (*LevelSetsResponse, error)
	// CanAccessSet returns nil when the principal may view or attempt the
	// set, or a PermissionError describing the failed gate.
	CanAccessSet(ctx context.Context, principal models.Principal, set *models.PracticeSet) error
}

// TestService handles test question delivery and scored test submissions.
type TestService interface {
	GetTestQuestions(ctx context.Context, principal models.Principal, testID uint) (*TestQuestionsResponse, error)
	SubmitTest(ctx context.Context, principal models.Principal, testID uint, req *SubmitTestRequest) (*SubmitTestResponse, error)
	GetTestAttempts(ctx context.Context, principal models.Principal, testID uint) ([]*TestAttemptView, error)
}

// ServiceManager provides access to all services
type ServiceManager interface {
	Evaluation() EvaluationService
	Practice() PracticeService
	Progression() ProgressionService
	Test() TestService

	HealthCheck(ctx context.Context) error
	Close() error
}
