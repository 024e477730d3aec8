package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/cache"
	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

type TestPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewTestPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.TestRepository {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &TestPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (t *TestPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}

func (t *TestPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	db := t.getDB(tx)

	cacheKey := fmt.Sprintf("id:%d", id)
	var test models.Test

	err := t.cacheManager.Fast.CacheOrExecute(ctx, cacheKey, &test, cache.FastCacheConfig.TTL, func() (interface{}, error) {
		var dbTest models.Test
		if err := db.WithContext(ctx).First(&dbTest, id).Error; err != nil {
			return nil, err
		}
		return &dbTest, nil
	})
	if err != nil {
		return nil, err
	}

	return &test, nil
}

func (t *TestPostgreSQL) CreateAttempt(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create test attempt: %w", err)
	}
	return nil
}

func (t *TestPostgreSQL) BestScore(ctx context.Context, tx *gorm.DB, studentID string, testID uint) (*repositories.BestScore, error) {
	db := t.getDB(tx)

	var result repositories.BestScore
	err := db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Select("COALESCE(MAX(score), 0) as best, COUNT(*) as attempts").
		Where("student_id = ? AND test_id = ?", studentID, testID).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get best score for student %s test %d: %w", studentID, testID, err)
	}

	return &result, nil
}

func (t *TestPostgreSQL) GetAttemptsByStudent(ctx context.Context, tx *gorm.DB, studentID string, testID uint) ([]*models.TestAttempt, error) {
	db := t.getDB(tx)

	var attempts []*models.TestAttempt
	err := db.WithContext(ctx).
		Where("student_id = ? AND test_id = ?", studentID, testID).
		Order("submitted_at DESC, id DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get test attempts for student %s test %d: %w", studentID, testID, err)
	}

	return attempts, nil
}
