package models

import (
	"time"
)

type QuestionType string

const (
	// SingleChoice: exactly one of options a-d is correct.
	QuestionMCQ QuestionType = "MCQ"
	// MultiChoice: one or more of options a-d are correct, all must be selected.
	QuestionMSQ QuestionType = "MSQ"
	// NumericAnswer: free numeric input, no options.
	QuestionNAT QuestionType = "NAT"
)

// Question is immutable from the engine's point of view once attempts reference
// it; mutation goes through the authoring service, not this one.
type Question struct {
	ID   uint         `json:"question_id" gorm:"primaryKey"`
	Type QuestionType `json:"question_type" gorm:"not null;size:3;index" validate:"required,oneof=MCQ MSQ NAT"`
	Text string       `json:"question_text" gorm:"type:text;not null" validate:"required"`

	// Option slots, populated only for choice types.
	OptionA *string `json:"option_a,omitempty" gorm:"type:text"`
	OptionB *string `json:"option_b,omitempty" gorm:"type:text"`
	OptionC *string `json:"option_c,omitempty" gorm:"type:text"`
	OptionD *string `json:"option_d,omitempty" gorm:"type:text"`

	// Canonical encoding: single lowercase letter for MCQ, sorted lowercase
	// letter run for MSQ ("acd"), numeric literal for NAT.
	CorrectAnswer string `json:"correct_answer" gorm:"not null;size:64" validate:"required"`

	Marks    int     `json:"marks" gorm:"not null" validate:"required,oneof=1 2"`
	ImageURL *string `json:"image_url,omitempty" gorm:"size:500"`

	CreatedBy string    `json:"created_by" gorm:"not null;size:255"`
	UpdatedBy string    `json:"updated_by" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// HasOptions reports whether the question carries option slots in responses.
func (q *Question) HasOptions() bool {
	return q.Type == QuestionMCQ || q.Type == QuestionMSQ
}
