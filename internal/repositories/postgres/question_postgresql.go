package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/cache"
	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

// GetBySet returns a set's questions ordered by their position in the set.
// The join row's order_in_set drives presentation order, not question id.
func (q *QuestionPostgreSQL) GetBySet(ctx context.Context, tx *gorm.DB, setID uint) ([]*models.Question, error) {
	db := q.getDB(tx)

	cacheKey := fmt.Sprintf("set:%d", setID)
	var questions []*models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &questions, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestions []*models.Question
		if err := db.WithContext(ctx).
			Joins("JOIN practice_set_questions psq ON psq.question_id = questions.id").
			Where("psq.set_id = ?", setID).
			Order("psq.order_in_set ASC, questions.id ASC").
			Find(&dbQuestions).Error; err != nil {
			return nil, fmt.Errorf("failed to get questions for set %d: %w", setID, err)
		}
		return dbQuestions, nil
	})
	if err != nil {
		return nil, err
	}

	return questions, nil
}

func (q *QuestionPostgreSQL) GetByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.Question, error) {
	db := q.getDB(tx)

	cacheKey := fmt.Sprintf("test:%d", testID)
	var questions []*models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &questions, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestions []*models.Question
		if err := db.WithContext(ctx).
			Joins("JOIN test_questions tq ON tq.question_id = questions.id").
			Where("tq.test_id = ?", testID).
			Order("questions.id ASC").
			Find(&dbQuestions).Error; err != nil {
			return nil, fmt.Errorf("failed to get questions for test %d: %w", testID, err)
		}
		return dbQuestions, nil
	})
	if err != nil {
		return nil, err
	}

	return questions, nil
}
