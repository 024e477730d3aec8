package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/cache"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	// Repository instances
	set         repositories.SetRepository
	question    repositories.QuestionRepository
	attempt     repositories.AttemptRepository
	test        repositories.TestRepository
	progression repositories.ProgressionRepository
	score       repositories.ScoreRepository
	user        repositories.UserRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// NewPostgreSQLRepository creates a new repository manager with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
	}

	repo.set = NewSetPostgreSQL(config.DB, cacheManager)
	repo.question = NewQuestionPostgreSQL(config.DB, cacheManager)
	repo.attempt = NewAttemptPostgreSQL(config.DB)
	repo.test = NewTestPostgreSQL(config.DB, cacheManager)
	repo.progression = NewProgressionPostgreSQL(config.DB, cacheManager)
	repo.score = NewScorePostgreSQL(config.DB)
	repo.user = NewUserPostgreSQL(config.DB, cacheManager)

	return repo
}

// Set returns the practice set repository
func (r *PostgreSQLRepository) Set() repositories.SetRepository {
	return r.set
}

// Question returns the question repository
func (r *PostgreSQLRepository) Question() repositories.QuestionRepository {
	return r.question
}

// Attempt returns the practice attempt repository
func (r *PostgreSQLRepository) Attempt() repositories.AttemptRepository {
	return r.attempt
}

// Test returns the test repository
func (r *PostgreSQLRepository) Test() repositories.TestRepository {
	return r.test
}

// Progression returns the level completion repository
func (r *PostgreSQLRepository) Progression() repositories.ProgressionRepository {
	return r.progression
}

// Score returns the cumulative score repository
func (r *PostgreSQLRepository) Score() repositories.ScoreRepository {
	return r.score
}

// User returns the user repository
func (r *PostgreSQLRepository) User() repositories.UserRepository {
	return r.user
}

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Create a new repository instance bound to the transaction. Caches
		// are bypassed inside transactions; sub-repositories only consult
		// them on their own connection.
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
		}

		txRepo.set = NewSetPostgreSQL(tx, nil)
		txRepo.question = NewQuestionPostgreSQL(tx, nil)
		txRepo.attempt = NewAttemptPostgreSQL(tx)
		txRepo.test = NewTestPostgreSQL(tx, nil)
		txRepo.progression = NewProgressionPostgreSQL(tx, nil)
		txRepo.score = NewScorePostgreSQL(tx)
		txRepo.user = NewUserPostgreSQL(tx, nil)

		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize initializes all repositories and connections
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository initialization failed: %w", err)
	}

	return nil
}

// GetRepository returns the initialized repository
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck verifies all connections are healthy
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

// Shutdown gracefully closes all connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
