package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/practice-engine/internal/events"
	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
	"github.com/SAP-F-2025/practice-engine/internal/validator"
)

// testService implements TestService. Tests differ from practice sets in
// three ways: no progression gating, every learner submission is recorded
// regardless of score, and the score is a percentage of correct answers.
// The cumulative test total uses the same improvement accounting as practice.
type testService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	evaluator EvaluationService
	publisher events.EventPublisher
}

func NewTestService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	evaluator EvaluationService,
	publisher events.EventPublisher,
) TestService {
	return &testService{
		repo:      repo,
		logger:    logger,
		validator: v,
		evaluator: evaluator,
		publisher: publisher,
	}
}

func (s *testService) GetTestQuestions(ctx context.Context, principal models.Principal, testID uint) (*TestQuestionsResponse, error) {
	test, err := s.getTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	if err := s.checkWindow(principal, test); err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().GetByTest(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for test %d: %w", testID, err)
	}

	response := &TestQuestionsResponse{
		TestID:          test.ID,
		Name:            test.Name,
		DurationMinutes: test.DurationMinutes,
		Questions:       make([]QuestionView, 0, len(questions)),
	}
	for _, q := range questions {
		response.Questions = append(response.Questions, toQuestionView(q))
	}

	return response, nil
}

func (s *testService) SubmitTest(ctx context.Context, principal models.Principal, testID uint, req *SubmitTestRequest) (*SubmitTestResponse, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	test, err := s.getTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	if err := s.checkWindow(principal, test); err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().GetByTest(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for test %d: %w", testID, err)
	}

	result, err := s.evaluator.EvaluateTest(questions, req.Answers)
	if err != nil {
		return nil, err
	}

	response := &SubmitTestResponse{
		TestEvaluationResult: result,
		TestID:               testID,
		SubmittedAt:          time.Now(),
	}

	// Preview submissions by non-learner roles are evaluated only.
	if !principal.Role.IsLearner() {
		return response, nil
	}

	responses, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal responses: %w", err)
	}

	var attempt *models.TestAttempt
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if _, err := txRepo.Score().GetOrCreateForUpdate(ctx, nil, principal.UserID); err != nil {
			return err
		}

		best, err := txRepo.Test().BestScore(ctx, nil, principal.UserID, testID)
		if err != nil {
			return err
		}

		// Same crediting rule as practice: full score on the first recorded
		// attempt, improvement over the previous best afterwards. Unlike
		// practice, the attempt row is appended regardless of pass/fail.
		firstAttempt := best.Attempts == 0
		previousBest := best.Best

		increment := 0.0
		if firstAttempt {
			increment = result.Score
		} else if result.Score > previousBest {
			increment = round2(result.Score - previousBest)
		}

		attempt = &models.TestAttempt{
			TestID:      testID,
			StudentID:   principal.UserID,
			Score:       result.Score,
			Responses:   responses,
			SubmittedAt: response.SubmittedAt,
		}
		if err := txRepo.Test().CreateAttempt(ctx, nil, attempt); err != nil {
			return err
		}

		if increment > 0 {
			if err := txRepo.Score().AddTestScore(ctx, nil, principal.UserID, increment); err != nil {
				return err
			}
		}

		response.Recorded = true
		response.FirstAttempt = firstAttempt
		response.PreviousBest = previousBest
		response.ScoreIncrement = increment

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record test attempt: %w", err)
	}

	response.AttemptID = attempt.ID

	s.logger.Info("Test attempt recorded",
		"student_id", principal.UserID,
		"test_id", testID,
		"attempt_id", attempt.ID,
		"score", result.Score,
		"first_attempt", response.FirstAttempt,
		"score_increment", response.ScoreIncrement,
		"correct_count", result.CorrectCount)

	if s.publisher != nil {
		event := events.NewNotificationEvent(events.EventTestSubmitted, &events.TestSubmittedEvent{
			AttemptID:   attempt.ID,
			TestID:      testID,
			StudentID:   principal.UserID,
			Score:       result.Score,
			SubmittedAt: attempt.SubmittedAt,
		})
		if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish test submitted event",
				"attempt_id", attempt.ID,
				"error", err)
		}
	}

	return response, nil
}

func (s *testService) GetTestAttempts(ctx context.Context, principal models.Principal, testID uint) ([]*TestAttemptView, error) {
	if _, err := s.getTest(ctx, testID); err != nil {
		return nil, err
	}

	attempts, err := s.repo.Test().GetAttemptsByStudent(ctx, nil, principal.UserID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test attempts: %w", err)
	}

	views := make([]*TestAttemptView, 0, len(attempts))
	for _, a := range attempts {
		views = append(views, &TestAttemptView{
			AttemptID:   a.ID,
			Score:       a.Score,
			SubmittedAt: a.SubmittedAt,
		})
	}

	return views, nil
}

// checkWindow rejects learner access outside the test's open interval.
// Non-learner roles may preview at any time.
func (s *testService) checkWindow(principal models.Principal, test *models.Test) error {
	if !principal.Role.IsLearner() {
		return nil
	}

	now := time.Now()
	if now.Before(test.StartTime) || now.After(test.EndTime) {
		return fmt.Errorf("test %d: %w", test.ID, ErrTestClosed)
	}

	return nil
}

func (s *testService) getTest(ctx context.Context, testID uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, nil, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("test %d: %w", testID, ErrTestNotFound)
		}
		return nil, fmt.Errorf("failed to get test %d: %w", testID, err)
	}
	return test, nil
}
