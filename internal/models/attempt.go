package models

import (
	"time"

	"gorm.io/datatypes"
)

// PracticeAttempt is one recorded passing submission by a student against a
// practice set. Append-only: resubmission inserts a new row, nothing is ever
// updated or deleted. Score is the signed evaluation total; negative marking
// can make it negative and the engine does not clamp it.
type PracticeAttempt struct {
	ID        uint    `json:"practice_id" gorm:"primaryKey"`
	StudentID string  `json:"student_id" gorm:"not null;size:255;index:idx_practice_attempts_student_set"`
	SetID     uint    `json:"set_id" gorm:"not null;index:idx_practice_attempts_student_set"`
	Score     float64 `json:"score" gorm:"type:decimal(7,2);not null"`

	// Per-question evaluation snapshot at submission time, kept for review UIs.
	Breakdown datatypes.JSON `json:"breakdown,omitempty" gorm:"type:jsonb"`

	AttemptAt time.Time `json:"attempt_at" gorm:"not null;index"`
}

func (PracticeAttempt) TableName() string {
	return "practice_attempts"
}

// StudentScore is the per-student cumulative running total. It is the only
// stored aggregate; best-score-per-set is always derived from attempt rows.
// Both columns are monotonically non-decreasing.
type StudentScore struct {
	StudentID     string  `json:"student_id" gorm:"primaryKey;size:255"`
	PracticeScore float64 `json:"practice_score" gorm:"type:decimal(10,2);not null;default:0"`
	TestScore     float64 `json:"test_score" gorm:"type:decimal(10,2);not null;default:0"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (StudentScore) TableName() string {
	return "student_scores"
}
