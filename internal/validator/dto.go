package validator

import "time"

// Request DTOs shared between the handler and service layers. Struct tags
// carry the declarative rules; cross-field rules live in the Validator.

// SubmitPracticeAttemptRequest carries a learner's answers for one practice
// set, keyed by question id. Absent keys are treated as blank answers, but a
// submission must carry at least one answer.
type SubmitPracticeAttemptRequest struct {
	Answers map[uint]string `json:"answers" validate:"required,min=1"`
}

// SubmitTestRequest carries a student's answers for one test container.
type SubmitTestRequest struct {
	Answers map[uint]string `json:"answers" validate:"required,min=1"`
}

// AttemptHistoryQuery filters a learner's attempt history for one set.
type AttemptHistoryQuery struct {
	DateFrom  *time.Time `form:"date_from" json:"date_from"`
	DateTo    *time.Time `form:"date_to" json:"date_to"`
	Limit     int        `form:"limit" json:"limit" validate:"min=0,max=200"`
	Offset    int        `form:"offset" json:"offset" validate:"min=0"`
	SortOrder string     `form:"sort_order" json:"sort_order" validate:"omitempty,sort_order"`
}
