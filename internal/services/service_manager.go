package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/practice-engine/internal/cache"
	"github.com/SAP-F-2025/practice-engine/internal/events"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
	"github.com/SAP-F-2025/practice-engine/internal/validator"
)

// ServiceManagerConfig holds the dependencies every service shares.
type ServiceManagerConfig struct {
	Repository  repositories.Repository
	Logger      *slog.Logger
	Validator   *validator.Validator
	Publisher   events.EventPublisher
	RedisClient *redis.Client
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher

	evaluationService  EvaluationService
	practiceService    PracticeService
	progressionService ProgressionService
	testService        TestService
}

// NewServiceManager wires all services over one repository and one shared
// ambient stack.
func NewServiceManager(config ServiceManagerConfig) (ServiceManager, error) {
	if config.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Validator == nil {
		config.Validator = validator.NewValidator()
	}

	cacheManager := cache.NewCacheManager(config.RedisClient)

	sm := &serviceManager{
		repo:      config.Repository,
		logger:    config.Logger,
		validator: config.Validator,
		publisher: config.Publisher,
	}

	sm.evaluationService = NewEvaluationService(config.Logger)
	sm.progressionService = NewProgressionService(config.Repository, config.Logger)
	sm.practiceService = NewPracticeService(
		config.Repository,
		config.Logger,
		config.Validator,
		sm.evaluationService,
		sm.progressionService,
		config.Publisher,
		cacheManager,
	)
	sm.testService = NewTestService(
		config.Repository,
		config.Logger,
		config.Validator,
		sm.evaluationService,
		config.Publisher,
	)

	return sm, nil
}

func (sm *serviceManager) Evaluation() EvaluationService {
	return sm.evaluationService
}

func (sm *serviceManager) Practice() PracticeService {
	return sm.practiceService
}

func (sm *serviceManager) Progression() ProgressionService {
	return sm.progressionService
}

func (sm *serviceManager) Test() TestService {
	return sm.testService
}

// HealthCheck verifies the backing store is reachable.
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// Close releases the event publisher; repository shutdown is owned by the
// repository manager.
func (sm *serviceManager) Close() error {
	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			return fmt.Errorf("failed to close event publisher: %w", err)
		}
	}
	return nil
}
