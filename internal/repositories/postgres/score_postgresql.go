package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

// ScorePostgreSQL is uncached: the score row doubles as the per-student lock
// for attempt recording and its value must always come from the database.
type ScorePostgreSQL struct {
	db *gorm.DB
}

func NewScorePostgreSQL(db *gorm.DB) repositories.ScoreRepository {
	return &ScorePostgreSQL{db: db}
}

func (s *ScorePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// GetOrCreateForUpdate locks the student's score row for the rest of the
// transaction, inserting it first when absent so there is always a row to
// lock. Two concurrent submissions by the same student both reach the insert,
// one wins, and the SELECT FOR UPDATE serializes them from there.
func (s *ScorePostgreSQL) GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudentScore, error) {
	db := s.getDB(tx)

	seed := &models.StudentScore{StudentID: studentID, UpdatedAt: time.Now()}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}},
			DoNothing: true,
		}).
		Create(seed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to seed score row for student %s: %w", studentID, err)
	}

	var score models.StudentScore
	err = db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", studentID).
		First(&score).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock score row for student %s: %w", studentID, err)
	}

	return &score, nil
}

func (s *ScorePostgreSQL) AddPracticeScore(ctx context.Context, tx *gorm.DB, studentID string, delta float64) error {
	db := s.getDB(tx)

	err := db.WithContext(ctx).
		Model(&models.StudentScore{}).
		Where("student_id = ?", studentID).
		UpdateColumns(map[string]interface{}{
			"practice_score": gorm.Expr("practice_score + ?", delta),
			"updated_at":     time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to add practice score for student %s: %w", studentID, err)
	}

	return nil
}

func (s *ScorePostgreSQL) AddTestScore(ctx context.Context, tx *gorm.DB, studentID string, delta float64) error {
	db := s.getDB(tx)

	err := db.WithContext(ctx).
		Model(&models.StudentScore{}).
		Where("student_id = ?", studentID).
		UpdateColumns(map[string]interface{}{
			"test_score": gorm.Expr("test_score + ?", delta),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to add test score for student %s: %w", studentID, err)
	}

	return nil
}

func (s *ScorePostgreSQL) Get(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudentScore, error) {
	db := s.getDB(tx)

	var score models.StudentScore
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&score).Error
	if err != nil {
		return nil, err
	}

	return &score, nil
}
