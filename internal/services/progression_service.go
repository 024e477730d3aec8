package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

// progressionService derives level states and enforces the sequential access
// policy: a learner may open only passed sets plus the first unpassed set in
// sequence order, and level 2 stays locked until level 1 is complete.
// Non-learner roles bypass every gate.
type progressionService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewProgressionService(repo repositories.Repository, logger *slog.Logger) ProgressionService {
	return &progressionService{
		repo:   repo,
		logger: logger,
	}
}

func (s *progressionService) GetLevelOverviews(ctx context.Context, principal models.Principal, topicID uint) ([]*LevelOverview, error) {
	counts, err := s.repo.Set().LevelSetCounts(ctx, nil, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get level set counts: %w", err)
	}

	overviews := make([]*LevelOverview, 0, 2)
	prevCompleted := true // level 1 has no gate

	for _, level := range []models.Level{models.Level1, models.Level2} {
		overview := &LevelOverview{
			Level:    level,
			SetCount: counts[level],
		}

		if principal.Role.IsLearner() {
			completed, err := s.repo.Progression().HasCompletion(ctx, nil, principal.UserID, topicID, level)
			if err != nil {
				return nil, fmt.Errorf("failed to check level completion: %w", err)
			}

			passedIDs, err := s.repo.Attempt().DistinctPassedSetIDs(ctx, nil, principal.UserID, topicID, level)
			if err != nil {
				return nil, fmt.Errorf("failed to get passed sets: %w", err)
			}

			overview.CompletedCount = len(passedIDs)
			overview.State = models.DeriveLevelState(level, completed, prevCompleted)
			overview.HavingAdditional = completed && len(passedIDs) < overview.SetCount
			prevCompleted = completed
		} else {
			overview.State = models.DeriveLevelState(level, false, true)
		}

		overviews = append(overviews, overview)
	}

	return overviews, nil
}

func (s *progressionService) GetSetsByLevel(ctx context.Context, principal models.Principal, topicID uint, level models.Level) (*LevelSetsResponse, error) {
	if !level.Valid() {
		return nil, ErrInvalidLevel
	}

	if principal.Role.IsLearner() && level == models.Level2 {
		prevDone, err := s.repo.Progression().HasCompletion(ctx, nil, principal.UserID, topicID, models.Level1)
		if err != nil {
			return nil, fmt.Errorf("failed to check level gate: %w", err)
		}
		if !prevDone {
			return nil, fmt.Errorf("topic %d level %s for student %s: %w", topicID, level, principal.UserID, ErrLevelLocked)
		}
	}

	sets, err := s.repo.Set().GetByTopicLevel(ctx, nil, topicID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to get sets: %w", err)
	}
	models.SortSetsInSequence(sets)

	response := &LevelSetsResponse{
		TopicID: topicID,
		Level:   level,
		Sets:    make([]*SetSummary, 0, len(sets)),
	}

	passed := make(map[uint]struct{})
	var next *models.PracticeSet

	if principal.Role.IsLearner() {
		passedIDs, err := s.repo.Attempt().DistinctPassedSetIDs(ctx, nil, principal.UserID, topicID, level)
		if err != nil {
			return nil, fmt.Errorf("failed to get passed sets: %w", err)
		}
		for _, id := range passedIDs {
			passed[id] = struct{}{}
		}
		next = models.FirstNotIn(sets, passed)
	}

	for _, set := range sets {
		_, completed := passed[set.ID]
		accessible := completed || (next != nil && next.ID == set.ID)
		if !principal.Role.IsLearner() {
			accessible = true
		}

		response.Sets = append(response.Sets, &SetSummary{
			SetID:               set.ID,
			DisplayOrder:        set.DisplayOrder,
			TotalMarks:          set.TotalMarks,
			ThresholdPercentage: set.ThresholdPercentage,
			NegativeMarking:     set.NegativeMarking,
			Completed:           completed,
			Accessible:          accessible,
		})
	}

	return response, nil
}

// CanAccessSet is the single gate both question delivery and submission go
// through. The check runs before any question content is loaded, so a locked
// set leaks nothing but its existence.
func (s *progressionService) CanAccessSet(ctx context.Context, principal models.Principal, set *models.PracticeSet) error {
	if !principal.Role.IsLearner() {
		return nil
	}

	if set.Level == models.Level2 {
		prevDone, err := s.repo.Progression().HasCompletion(ctx, nil, principal.UserID, set.TopicID, models.Level1)
		if err != nil {
			return fmt.Errorf("failed to check level gate: %w", err)
		}
		if !prevDone {
			return NewPermissionError(principal.UserID, fmt.Sprintf("set:%d", set.ID), "view",
				"level 2 is locked until level 1 is completed")
		}
	}

	sets, err := s.repo.Set().GetByTopicLevel(ctx, nil, set.TopicID, set.Level)
	if err != nil {
		return fmt.Errorf("failed to get sets: %w", err)
	}
	models.SortSetsInSequence(sets)

	passedIDs, err := s.repo.Attempt().DistinctPassedSetIDs(ctx, nil, principal.UserID, set.TopicID, set.Level)
	if err != nil {
		return fmt.Errorf("failed to get passed sets: %w", err)
	}

	passed := make(map[uint]struct{}, len(passedIDs))
	for _, id := range passedIDs {
		passed[id] = struct{}{}
	}

	if _, ok := passed[set.ID]; ok {
		return nil
	}

	if next := models.FirstNotIn(sets, passed); next != nil && next.ID == set.ID {
		return nil
	}

	s.logger.Info("Set access denied by sequence gate",
		"student_id", principal.UserID,
		"set_id", set.ID,
		"topic_id", set.TopicID,
		"level", set.Level)

	return NewPermissionError(principal.UserID, fmt.Sprintf("set:%d", set.ID), "view",
		"previous sets in the sequence are not completed")
}
