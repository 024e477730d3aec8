package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/practice-engine/internal/models"
)

// EventType represents different types of notification events
type EventType string

const (
	// Practice events
	EventAttemptRecorded EventType = "practice.attempt_recorded"
	EventLevelCompleted  EventType = "practice.level_completed"

	// Test events
	EventTestSubmitted EventType = "test.submitted"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewNotificationEvent wraps a payload in the base envelope.
func NewNotificationEvent(eventType EventType, data interface{}) *NotificationEvent {
	return &NotificationEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "practice-engine",
		Version:   "1.0",
		Data:      data,
	}
}

// Practice notification event payloads

// AttemptRecordedEvent fires after a passing practice submission is committed.
type AttemptRecordedEvent struct {
	AttemptID      uint         `json:"attempt_id"`
	SetID          uint         `json:"set_id"`
	TopicID        uint         `json:"topic_id"`
	Level          models.Level `json:"level"`
	StudentID      string       `json:"student_id"`
	Score          float64      `json:"score"`
	PreviousBest   float64      `json:"previous_best"`
	ScoreIncrement float64      `json:"score_increment"`
	FirstAttempt   bool         `json:"first_attempt"`
	RecordedAt     time.Time    `json:"recorded_at"`
}

// LevelCompletedEvent fires when the completion fact for a topic+level is
// first written for a student.
type LevelCompletedEvent struct {
	StudentID   string       `json:"student_id"`
	TopicID     uint         `json:"topic_id"`
	Level       models.Level `json:"level"`
	CompletedAt time.Time    `json:"completed_at"`
}

// Test notification event payloads

type TestSubmittedEvent struct {
	AttemptID   uint      `json:"attempt_id"`
	TestID      uint      `json:"test_id"`
	StudentID   string    `json:"student_id"`
	Score       float64   `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}
