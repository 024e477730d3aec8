package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/practice-engine/internal/cache"
	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

type ProgressionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewProgressionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ProgressionRepository {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &ProgressionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (p *ProgressionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

// HasCompletion reports whether the permanent completion fact exists for the
// student's topic+level. Completion facts are never deleted, so a cached true
// can never go stale; a cached false expires with the short progress TTL.
func (p *ProgressionPostgreSQL) HasCompletion(ctx context.Context, tx *gorm.DB, studentID string, topicID uint, level models.Level) (bool, error) {
	db := p.getDB(tx)

	cacheKey := fmt.Sprintf("student:%s:topic:%d:level:%s", studentID, topicID, level)
	var completed bool

	err := p.cacheManager.Progress.CacheOrExecute(ctx, cacheKey, &completed, cache.ProgressCacheConfig.TTL, func() (interface{}, error) {
		var count int64
		if err := db.WithContext(ctx).
			Model(&models.LevelCompletion{}).
			Where("student_id = ? AND topic_id = ? AND level = ?", studentID, topicID, level).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check level completion: %w", err)
		}
		return count > 0, nil
	})
	if err != nil {
		return false, err
	}

	return completed, nil
}

// UpsertCompletion inserts the completion fact or refreshes its timestamp.
// Idempotent under the composite primary key, so concurrent detections of the
// same completion both succeed.
func (p *ProgressionPostgreSQL) UpsertCompletion(ctx context.Context, tx *gorm.DB, completion *models.LevelCompletion) error {
	db := p.getDB(tx)

	completion.UpdatedAt = time.Now()

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "student_id"},
				{Name: "topic_id"},
				{Name: "level"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).
		Create(completion).Error
	if err != nil {
		return fmt.Errorf("failed to upsert level completion: %w", err)
	}

	return nil
}
