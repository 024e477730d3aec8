package models

import (
	"time"
)

// LevelCompletion records that a student has passed every set that belonged to
// a topic+level at the moment of detection. The fact is a permanent grant: it
// is never retracted, even if sets are added to the level afterwards.
type LevelCompletion struct {
	StudentID string `json:"student_id" gorm:"primaryKey;size:255"`
	TopicID   uint   `json:"topic_id" gorm:"primaryKey"`
	Level     Level  `json:"level" gorm:"primaryKey;size:1"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (LevelCompletion) TableName() string {
	return "student_topic_levels"
}

// LevelState is the derived progression state of one topic+level for a student.
type LevelState string

const (
	// LevelLocked: level 2 while level 1 is incomplete.
	LevelLocked LevelState = "locked"
	// LevelInProgress: unlocked, not all sets passed yet (including zero).
	LevelInProgress LevelState = "in_progress"
	// LevelCompleted: a LevelCompletion fact exists. Terminal.
	LevelCompleted LevelState = "completed"
)

// DeriveLevelState centralizes the implicit state machine: completion facts and
// the level-1 gate are the only inputs, there is no stored enum.
func DeriveLevelState(level Level, completed, prevLevelCompleted bool) LevelState {
	if completed {
		return LevelCompleted
	}
	if level == Level2 && !prevLevelCompleted {
		return LevelLocked
	}
	return LevelInProgress
}
