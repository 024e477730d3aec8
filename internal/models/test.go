package models

import (
	"time"

	"gorm.io/datatypes"
)

// Test is a standalone timed container, not tied to a topic or level. Scoring
// is percentage-of-correct over a fixed 100-mark scale.
type Test struct {
	ID              uint      `json:"test_id" gorm:"primaryKey"`
	Name            string    `json:"test_name" gorm:"not null;size:200" validate:"required,max=200"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null" validate:"required,min=5,max=300"`
	StartTime       time.Time `json:"start_time" gorm:"not null"`
	EndTime         time.Time `json:"end_time" gorm:"not null"`

	CreatedBy string    `json:"created_by" gorm:"not null;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"many2many:test_questions;joinForeignKey:TestID;joinReferences:QuestionID"`
}

func (Test) TableName() string {
	return "tests"
}

type TestQuestion struct {
	TestID     uint `json:"test_id" gorm:"primaryKey"`
	QuestionID uint `json:"question_id" gorm:"primaryKey"`
}

func (TestQuestion) TableName() string {
	return "test_questions"
}

// TestAttempt is one scored test submission. Append-only like practice
// attempts; unlike practice, every submission is recorded regardless of
// pass/fail and there is no pass threshold.
type TestAttempt struct {
	ID        uint    `json:"attempt_id" gorm:"primaryKey"`
	TestID    uint    `json:"test_id" gorm:"not null;index:idx_test_attempts_student_test"`
	StudentID string  `json:"student_id" gorm:"not null;size:255;index:idx_test_attempts_student_test"`
	Score     float64 `json:"score" gorm:"type:decimal(5,2);not null"`

	// Raw responses at submission time.
	Responses datatypes.JSON `json:"responses,omitempty" gorm:"type:jsonb"`

	SubmittedAt time.Time `json:"submitted_at" gorm:"not null;index"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}
