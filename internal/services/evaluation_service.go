package services

import (
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/practice-engine/internal/models"
)

// evaluationService implements EvaluationService. It is stateless; the logger
// is only used for submissions that reference questions outside the set.
type evaluationService struct {
	logger *slog.Logger
}

func NewEvaluationService(logger *slog.Logger) EvaluationService {
	return &evaluationService{logger: logger}
}

// Evaluate scores one submission against a practice set's questions.
// total_marks is recomputed from the questions themselves, not read from the
// set row, so a stale stored total can never skew the threshold.
func (s *evaluationService) Evaluate(set *models.PracticeSet, questions []*models.Question, answers map[uint]string) (*EvaluationResult, error) {
	if len(questions) == 0 {
		return nil, ErrSetEmpty
	}

	known := make(map[uint]struct{}, len(questions))

	totalMarks := 0
	scored := 0.0
	evaluations := make([]QuestionEvaluation, 0, len(questions))

	for _, q := range questions {
		known[q.ID] = struct{}{}
		totalMarks += q.Marks

		submitted := normalizeAnswer(q, answers[q.ID])
		gained, correct := scoreQuestion(q, submitted, set.NegativeMarking)
		scored += gained

		evaluations = append(evaluations, QuestionEvaluation{
			QuestionID:      q.ID,
			Correct:         correct,
			GainedMarks:     round2(gained),
			SubmittedAnswer: submitted,
			CorrectAnswer:   q.CorrectAnswer,
		})
	}

	// Stray question ids in the submission are ignored, not an error.
	for id := range answers {
		if _, ok := known[id]; !ok {
			s.logger.Debug("Ignoring answer for question outside set",
				"set_id", set.ID,
				"question_id", id)
		}
	}

	scoredMarks := round2(scored)
	thresholdMarks := round2(set.ThresholdPercentage * float64(totalMarks) / 100)

	return &EvaluationResult{
		ScoredMarks:    scoredMarks,
		TotalMarks:     totalMarks,
		ThresholdMarks: thresholdMarks,
		Passed:         scoredMarks >= thresholdMarks,
		Questions:      evaluations,
	}, nil
}

// EvaluateTest scores a test submission on a 0..100 percentage scale. Tests
// never apply negative marking and weight every question equally.
func (s *evaluationService) EvaluateTest(questions []*models.Question, answers map[uint]string) (*TestEvaluationResult, error) {
	if len(questions) == 0 {
		return nil, ErrSetEmpty
	}

	correctCount := 0
	evaluations := make([]QuestionEvaluation, 0, len(questions))

	for _, q := range questions {
		submitted := normalizeAnswer(q, answers[q.ID])
		_, correct := scoreQuestion(q, submitted, false)

		gained := 0.0
		if correct {
			correctCount++
			gained = 1
		}

		evaluations = append(evaluations, QuestionEvaluation{
			QuestionID:      q.ID,
			Correct:         correct,
			GainedMarks:     gained,
			SubmittedAnswer: submitted,
			CorrectAnswer:   q.CorrectAnswer,
		})
	}

	score := round2(float64(correctCount) * 100 / float64(len(questions)))

	return &TestEvaluationResult{
		Score:         score,
		CorrectCount:  correctCount,
		QuestionCount: len(questions),
		Questions:     evaluations,
	}, nil
}

// scoreQuestion returns the gained marks and correctness for one normalized
// answer. The negative-marking penalty applies only to single choice: a wrong
// non-blank answer loses 1/3 mark when the question is worth 1, 2/3 when
// worth 2. Blank answers never score and never penalize.
func scoreQuestion(q *models.Question, submitted string, negativeMarking bool) (float64, bool) {
	if submitted == "" {
		return 0, false
	}

	switch q.Type {
	case models.QuestionMCQ:
		if submitted == strings.ToLower(strings.TrimSpace(q.CorrectAnswer)) {
			return float64(q.Marks), true
		}
		if negativeMarking {
			if q.Marks == 1 {
				return -1.0 / 3.0, false
			}
			return -2.0 / 3.0, false
		}
		return 0, false

	case models.QuestionMSQ:
		// Exact set equality, no partial credit and no penalty.
		if submitted == normalizeLetterSet(q.CorrectAnswer) {
			return float64(q.Marks), true
		}
		return 0, false

	case models.QuestionNAT:
		submittedValue, err := strconv.ParseFloat(submitted, 64)
		if err != nil {
			return 0, false
		}
		correctValue, err := strconv.ParseFloat(strings.TrimSpace(q.CorrectAnswer), 64)
		if err != nil {
			return 0, false
		}
		if submittedValue == correctValue {
			return float64(q.Marks), true
		}
		return 0, false
	}

	return 0, false
}

// normalizeAnswer canonicalizes a raw submitted string for comparison:
// trimmed for all types, lowercased for single choice, sorted letter run for
// multi choice. Numeric answers keep their trimmed literal form.
func normalizeAnswer(q *models.Question, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	switch q.Type {
	case models.QuestionMCQ:
		return strings.ToLower(trimmed)
	case models.QuestionMSQ:
		return normalizeLetterSet(trimmed)
	default:
		return trimmed
	}
}

// normalizeLetterSet lowercases a letter selection, strips separators and
// sorts the letters so "C,A" and "ac" compare equal.
func normalizeLetterSet(raw string) string {
	letters := make([]rune, 0, len(raw))
	for _, r := range strings.ToLower(raw) {
		if r >= 'a' && r <= 'z' {
			letters = append(letters, r)
		}
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return string(letters)
}

// round2 rounds to 2 decimal places, the precision every stored and compared
// score uses.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
