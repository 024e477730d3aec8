package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/cache"
	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

type SetPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

// NewSetPostgreSQL creates the practice set repository. A nil cache manager
// disables caching; transaction-bound instances pass nil so reads inside a
// transaction always hit the database.
func NewSetPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.SetRepository {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &SetPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (s *SetPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *SetPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PracticeSet, error) {
	db := s.getDB(tx)

	cacheKey := fmt.Sprintf("id:%d", id)
	var set models.PracticeSet

	err := s.cacheManager.Set.CacheOrExecute(ctx, cacheKey, &set, cache.SetCacheConfig.TTL, func() (interface{}, error) {
		var dbSet models.PracticeSet
		if err := db.WithContext(ctx).First(&dbSet, id).Error; err != nil {
			return nil, err
		}
		return &dbSet, nil
	})
	if err != nil {
		return nil, err
	}

	return &set, nil
}

// GetByTopicLevel returns the topic+level sets in sequence order. The
// display_order, id ordering is the single source of truth for "next set";
// every consumer of the sequence goes through this query.
func (s *SetPostgreSQL) GetByTopicLevel(ctx context.Context, tx *gorm.DB, topicID uint, level models.Level) ([]*models.PracticeSet, error) {
	db := s.getDB(tx)

	cacheKey := fmt.Sprintf("topic:%d:level:%s", topicID, level)
	var sets []*models.PracticeSet

	err := s.cacheManager.Set.CacheOrExecute(ctx, cacheKey, &sets, cache.SetCacheConfig.TTL, func() (interface{}, error) {
		var dbSets []*models.PracticeSet
		if err := db.WithContext(ctx).
			Where("topic_id = ? AND level = ?", topicID, level).
			Order("display_order ASC, id ASC").
			Find(&dbSets).Error; err != nil {
			return nil, fmt.Errorf("failed to get sets for topic %d level %s: %w", topicID, level, err)
		}
		return dbSets, nil
	})
	if err != nil {
		return nil, err
	}

	return sets, nil
}

func (s *SetPostgreSQL) CountByTopicLevel(ctx context.Context, tx *gorm.DB, topicID uint, level models.Level) (int64, error) {
	db := s.getDB(tx)

	var count int64
	err := db.WithContext(ctx).
		Model(&models.PracticeSet{}).
		Where("topic_id = ? AND level = ?", topicID, level).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sets for topic %d level %s: %w", topicID, level, err)
	}

	return count, nil
}

// LevelSetCounts returns the number of sets per level for a topic in one
// grouped query. Levels with no sets are absent from the map.
func (s *SetPostgreSQL) LevelSetCounts(ctx context.Context, tx *gorm.DB, topicID uint) (map[models.Level]int, error) {
	db := s.getDB(tx)

	var rows []struct {
		Level models.Level `gorm:"column:level"`
		Count int          `gorm:"column:count"`
	}

	err := db.WithContext(ctx).
		Model(&models.PracticeSet{}).
		Select("level, COUNT(*) as count").
		Where("topic_id = ?", topicID).
		Group("level").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count sets per level for topic %d: %w", topicID, err)
	}

	counts := make(map[models.Level]int, len(rows))
	for _, row := range rows {
		counts[row.Level] = row.Count
	}

	return counts, nil
}
