package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/cache"
	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

type UserPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.UserRepository {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &UserPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (u *UserPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	db := u.getDB(tx)

	cacheKey := fmt.Sprintf("id:%s", id)
	var user models.User

	err := u.cacheManager.Fast.CacheOrExecute(ctx, cacheKey, &user, cache.FastCacheConfig.TTL, func() (interface{}, error) {
		var dbUser models.User
		if err := db.WithContext(ctx).Where("id = ?", id).First(&dbUser).Error; err != nil {
			return nil, err
		}
		return &dbUser, nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}
