package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/practice-engine/internal/cache"
	"github.com/SAP-F-2025/practice-engine/internal/events"
	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
	"github.com/SAP-F-2025/practice-engine/internal/validator"
)

// practiceService implements PracticeService: question delivery, the attempt
// recording transaction and attempt history.
//
// Recording rules: every submission is evaluated, but only a passing
// submission by a learner is persisted. The first recorded attempt credits
// its full score to the cumulative total; later attempts credit only the
// improvement over the previous best, never a negative delta.
type practiceService struct {
	repo         repositories.Repository
	logger       *slog.Logger
	validator    *validator.Validator
	evaluator    EvaluationService
	progression  ProgressionService
	publisher    events.EventPublisher
	cacheManager *cache.CacheManager
}

func NewPracticeService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	evaluator EvaluationService,
	progression ProgressionService,
	publisher events.EventPublisher,
	cacheManager *cache.CacheManager,
) PracticeService {
	return &practiceService{
		repo:         repo,
		logger:       logger,
		validator:    v,
		evaluator:    evaluator,
		progression:  progression,
		publisher:    publisher,
		cacheManager: cacheManager,
	}
}

func (s *practiceService) GetSetQuestions(ctx context.Context, principal models.Principal, setID uint) (*SetQuestionsResponse, error) {
	set, err := s.getSet(ctx, setID)
	if err != nil {
		return nil, err
	}

	// Gate before any question content is loaded.
	if err := s.progression.CanAccessSet(ctx, principal, set); err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().GetBySet(ctx, nil, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for set %d: %w", setID, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("set %d: %w", setID, ErrSetEmpty)
	}

	response := &SetQuestionsResponse{
		SetID:           set.ID,
		NegativeMarking: set.NegativeMarking,
		TotalMarks:      set.TotalMarks,
		Questions:       make([]QuestionView, 0, len(questions)),
	}
	for _, q := range questions {
		response.Questions = append(response.Questions, toQuestionView(q))
	}

	return response, nil
}

func (s *practiceService) SubmitAttempt(ctx context.Context, principal models.Principal, setID uint, req *SubmitPracticeAttemptRequest) (*SubmitPracticeAttemptResponse, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	set, err := s.getSet(ctx, setID)
	if err != nil {
		return nil, err
	}

	if err := s.progression.CanAccessSet(ctx, principal, set); err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().GetBySet(ctx, nil, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for set %d: %w", setID, err)
	}

	result, err := s.evaluator.Evaluate(set, questions, req.Answers)
	if err != nil {
		return nil, err
	}

	response := &SubmitPracticeAttemptResponse{EvaluationResult: result}

	// Preview submissions (non-learner roles) and failing submissions are
	// evaluated but never persisted.
	if !principal.Role.IsLearner() || !result.Passed {
		s.logger.Info("Practice submission not recorded",
			"student_id", principal.UserID,
			"set_id", setID,
			"role", principal.Role,
			"passed", result.Passed,
			"score", result.ScoredMarks)
		return response, nil
	}

	breakdown, err := json.Marshal(result.Questions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	var (
		attempt        *models.PracticeAttempt
		newlyCompleted bool
	)

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		// Lock the student's score row first. This is the serialization
		// point: a concurrent submission by the same student blocks here
		// until this transaction commits, so both see a consistent best.
		score, err := txRepo.Score().GetOrCreateForUpdate(ctx, nil, principal.UserID)
		if err != nil {
			return err
		}

		best, err := txRepo.Attempt().BestScore(ctx, nil, principal.UserID, setID)
		if err != nil {
			return err
		}

		// First-attempt is decided by row count, not by previousBest == 0:
		// a recorded best of exactly 0 must not re-trigger the full credit.
		firstAttempt := best.Attempts == 0
		previousBest := best.Best

		increment := 0.0
		if firstAttempt {
			increment = result.ScoredMarks
		} else if result.ScoredMarks > previousBest {
			increment = round2(result.ScoredMarks - previousBest)
		}

		attempt = &models.PracticeAttempt{
			StudentID: principal.UserID,
			SetID:     setID,
			Score:     result.ScoredMarks,
			Breakdown: breakdown,
			AttemptAt: time.Now(),
		}
		if err := txRepo.Attempt().Create(ctx, nil, attempt); err != nil {
			return err
		}

		if increment > 0 {
			if err := txRepo.Score().AddPracticeScore(ctx, nil, principal.UserID, increment); err != nil {
				return err
			}
		}

		response.Recorded = true
		response.FirstAttempt = firstAttempt
		response.PreviousBest = previousBest
		response.ScoreIncrement = increment
		response.CurrentScore = round2(score.PracticeScore + increment)

		completed, wasCompleted, err := s.detectLevelCompletion(ctx, txRepo, principal.UserID, set)
		if err != nil {
			return err
		}
		response.LevelCompleted = completed
		newlyCompleted = completed && !wasCompleted

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record practice attempt: %w", err)
	}

	s.logger.Info("Practice attempt recorded",
		"student_id", principal.UserID,
		"set_id", setID,
		"attempt_id", attempt.ID,
		"score", result.ScoredMarks,
		"first_attempt", response.FirstAttempt,
		"score_increment", response.ScoreIncrement,
		"level_completed", response.LevelCompleted)

	s.publishAttemptEvents(ctx, principal.UserID, set, attempt, response, newlyCompleted)

	return response, nil
}

// detectLevelCompletion compares the student's distinct passed sets against
// the level's current set count, inside the recording transaction. Returns
// whether the level is now complete and whether the fact already existed.
// The fact is a permanent grant: adding sets to the level later does not
// retract it.
func (s *practiceService) detectLevelCompletion(ctx context.Context, txRepo repositories.Repository, studentID string, set *models.PracticeSet) (completed, wasCompleted bool, err error) {
	passedIDs, err := txRepo.Attempt().DistinctPassedSetIDs(ctx, nil, studentID, set.TopicID, set.Level)
	if err != nil {
		return false, false, err
	}

	total, err := txRepo.Set().CountByTopicLevel(ctx, nil, set.TopicID, set.Level)
	if err != nil {
		return false, false, err
	}

	if total == 0 || int64(len(passedIDs)) < total {
		return false, false, nil
	}

	wasCompleted, err = txRepo.Progression().HasCompletion(ctx, nil, studentID, set.TopicID, set.Level)
	if err != nil {
		return false, false, err
	}

	err = txRepo.Progression().UpsertCompletion(ctx, nil, &models.LevelCompletion{
		StudentID: studentID,
		TopicID:   set.TopicID,
		Level:     set.Level,
	})
	if err != nil {
		return false, false, err
	}

	return true, wasCompleted, nil
}

// publishAttemptEvents runs after commit; event delivery is best effort and
// never fails the recorded attempt.
func (s *practiceService) publishAttemptEvents(ctx context.Context, studentID string, set *models.PracticeSet, attempt *models.PracticeAttempt, response *SubmitPracticeAttemptResponse, newlyCompleted bool) {
	if newlyCompleted {
		cache.InvalidateProgressCache(ctx, s.cacheManager, studentID, set.TopicID)
	}

	if s.publisher == nil {
		return
	}

	event := events.NewNotificationEvent(events.EventAttemptRecorded, &events.AttemptRecordedEvent{
		AttemptID:      attempt.ID,
		SetID:          set.ID,
		TopicID:        set.TopicID,
		Level:          set.Level,
		StudentID:      studentID,
		Score:          attempt.Score,
		PreviousBest:   response.PreviousBest,
		ScoreIncrement: response.ScoreIncrement,
		FirstAttempt:   response.FirstAttempt,
		RecordedAt:     attempt.AttemptAt,
	})
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt recorded event",
			"attempt_id", attempt.ID,
			"error", err)
	}

	if newlyCompleted {
		event := events.NewNotificationEvent(events.EventLevelCompleted, &events.LevelCompletedEvent{
			StudentID:   studentID,
			TopicID:     set.TopicID,
			Level:       set.Level,
			CompletedAt: attempt.AttemptAt,
		})
		if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish level completed event",
				"student_id", studentID,
				"topic_id", set.TopicID,
				"level", set.Level,
				"error", err)
		}
	}
}

func (s *practiceService) GetHistory(ctx context.Context, principal models.Principal, setID uint, query *AttemptHistoryQuery) (*PracticeHistoryResponse, error) {
	if query == nil {
		query = &AttemptHistoryQuery{}
	}
	if errs := s.validator.ValidateHistoryQuery(query); errs.HasErrors() {
		return nil, errs
	}

	set, err := s.getSet(ctx, setID)
	if err != nil {
		return nil, err
	}

	if err := s.progression.CanAccessSet(ctx, principal, set); err != nil {
		return nil, err
	}

	filters := repositories.AttemptFilters{
		DateFrom:  query.DateFrom,
		DateTo:    query.DateTo,
		Limit:     query.Limit,
		Offset:    query.Offset,
		SortOrder: query.SortOrder,
	}

	attempts, err := s.repo.Attempt().GetByStudentAndSet(ctx, nil, principal.UserID, setID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt history: %w", err)
	}

	best, err := s.repo.Attempt().BestScore(ctx, nil, principal.UserID, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to get best score: %w", err)
	}

	response := &PracticeHistoryResponse{
		SetID:     setID,
		BestScore: best.Best,
		Attempts:  make([]*AttemptView, 0, len(attempts)),
	}
	for _, a := range attempts {
		response.Attempts = append(response.Attempts, &AttemptView{
			AttemptID: a.ID,
			Score:     a.Score,
			Breakdown: a.Breakdown,
			AttemptAt: a.AttemptAt,
		})
	}

	return response, nil
}

// GetStudentScore returns the cumulative totals, zero-valued when the student
// has no score row yet.
func (s *practiceService) GetStudentScore(ctx context.Context, studentID string) (*models.StudentScore, error) {
	score, err := s.repo.Score().Get(ctx, nil, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &models.StudentScore{StudentID: studentID}, nil
		}
		return nil, fmt.Errorf("failed to get student score: %w", err)
	}
	return score, nil
}

func (s *practiceService) getSet(ctx context.Context, setID uint) (*models.PracticeSet, error) {
	set, err := s.repo.Set().GetByID(ctx, nil, setID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("set %d: %w", setID, ErrSetNotFound)
		}
		return nil, fmt.Errorf("failed to get set %d: %w", setID, err)
	}
	return set, nil
}

// toQuestionView strips the correct answer and, for numeric questions, the
// unused option slots.
func toQuestionView(q *models.Question) QuestionView {
	view := QuestionView{
		QuestionID: q.ID,
		Type:       q.Type,
		Text:       q.Text,
		Marks:      q.Marks,
		ImageURL:   q.ImageURL,
	}
	if q.HasOptions() {
		view.OptionA = q.OptionA
		view.OptionB = q.OptionB
		view.OptionC = q.OptionC
		view.OptionD = q.OptionD
	}
	return view
}
