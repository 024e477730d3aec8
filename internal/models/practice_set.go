package models

import (
	"time"
)

type Level string

const (
	Level1 Level = "1"
	Level2 Level = "2"
)

// Valid reports whether l is one of the two progression tiers.
func (l Level) Valid() bool {
	return l == Level1 || l == Level2
}

// Next returns the level above l, or "" for the top level.
func (l Level) Next() Level {
	if l == Level1 {
		return Level2
	}
	return ""
}

// PracticeSet is an ordered collection of questions inside one topic+level.
// DisplayOrder is dense (1..n per topic+level); renumbering after deletion is
// owned by the authoring service, the engine only reads it.
type PracticeSet struct {
	ID      uint  `json:"set_id" gorm:"primaryKey"`
	TopicID uint  `json:"topic_id" gorm:"not null;index:idx_sets_topic_level"`
	Level   Level `json:"level" gorm:"not null;size:1;index:idx_sets_topic_level" validate:"required,oneof=1 2"`

	DisplayOrder        int     `json:"display_order" gorm:"not null"`
	ThresholdPercentage float64 `json:"threshold_percentage" gorm:"not null;default:50" validate:"min=0,max=100"`
	TotalMarks          int     `json:"total_marks" gorm:"not null"`
	NegativeMarking     bool    `json:"negative_marking" gorm:"not null;default:false"`

	CreatedBy string    `json:"created_by" gorm:"not null;size:255"`
	UpdatedBy string    `json:"updated_by" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"many2many:practice_set_questions;joinForeignKey:SetID;joinReferences:QuestionID"`
}

func (PracticeSet) TableName() string {
	return "practice_sets"
}

// PracticeSetQuestion links a question into a set with its position.
type PracticeSetQuestion struct {
	SetID      uint `json:"set_id" gorm:"primaryKey"`
	QuestionID uint `json:"question_id" gorm:"primaryKey"`
	OrderInSet int  `json:"order_in_set" gorm:"not null;default:0"`
}

func (PracticeSetQuestion) TableName() string {
	return "practice_set_questions"
}
