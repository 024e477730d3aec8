package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates the engine's data access behind one handle.
type Repository interface {
	Set() SetRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Test() TestRepository
	Progression() ProgressionRepository
	Score() ScoreRepository
	User() UserRepository

	// WithTransaction runs fn inside one database transaction; the Repository
	// passed to fn is bound to that transaction. Any error rolls back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager owns repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// IsNotFoundError reports whether err is the store's record-not-found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
