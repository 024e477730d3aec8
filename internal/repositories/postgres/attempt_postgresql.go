package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

// AttemptPostgreSQL is deliberately uncached: attempt rows feed score and
// progression decisions, and a stale read there would corrupt increments.
type AttemptPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.PracticeAttempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create practice attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByStudentAndSet(ctx context.Context, tx *gorm.DB, studentID string, setID uint, filters repositories.AttemptFilters) ([]*models.PracticeAttempt, error) {
	db := a.getDB(tx)

	query := db.WithContext(ctx).
		Model(&models.PracticeAttempt{}).
		Where("student_id = ? AND set_id = ?", studentID, setID)

	query = a.helpers.ApplyAttemptFilters(query, filters)
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortOrder, filters.Limit, filters.Offset)

	var attempts []*models.PracticeAttempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempts for student %s set %d: %w", studentID, setID, err)
	}

	return attempts, nil
}

// BestScore aggregates MAX(score) and row count in one query. Best is 0 when
// no attempts exist; the count distinguishes "no attempts" from "best of 0".
func (a *AttemptPostgreSQL) BestScore(ctx context.Context, tx *gorm.DB, studentID string, setID uint) (*repositories.BestScore, error) {
	db := a.getDB(tx)

	var result repositories.BestScore
	err := db.WithContext(ctx).
		Model(&models.PracticeAttempt{}).
		Select("COALESCE(MAX(score), 0) as best, COUNT(*) as attempts").
		Where("student_id = ? AND set_id = ?", studentID, setID).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get best score for student %s set %d: %w", studentID, setID, err)
	}

	return &result, nil
}

// DistinctPassedSetIDs returns ids of sets in the topic+level the student has
// a recorded attempt against. Only passing submissions are ever recorded for
// practice, so a row's existence means the set is passed.
func (a *AttemptPostgreSQL) DistinctPassedSetIDs(ctx context.Context, tx *gorm.DB, studentID string, topicID uint, level models.Level) ([]uint, error) {
	db := a.getDB(tx)

	var setIDs []uint
	err := db.WithContext(ctx).
		Model(&models.PracticeAttempt{}).
		Distinct("practice_attempts.set_id").
		Joins("JOIN practice_sets ps ON ps.id = practice_attempts.set_id").
		Where("practice_attempts.student_id = ? AND ps.topic_id = ? AND ps.level = ?", studentID, topicID, level).
		Pluck("practice_attempts.set_id", &setIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get passed set ids for student %s topic %d level %s: %w", studentID, topicID, level, err)
	}

	return setIDs, nil
}
