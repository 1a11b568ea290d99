package exam

import (
	"context"
	"log"
	"time"

	"github.com/lexia-prep/exam-engine/internal/grading"
)

// Events is a best-effort audit sink. Append failures are logged, never
// surfaced to callers.
type Events interface {
	Append(ctx context.Context, typ, key string, data interface{}) error
}

// Service owns the attempt lifecycle: start, history, submit, results.
type Service struct {
	store  Store
	events Events
	now    func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithEvents attaches an audit sink.
func (s *Service) WithEvents(ev Events) *Service {
	s.events = ev
	return s
}

// StartAttempt opens a new attempt against the user's test. The store flips
// prior attempts' is_latest and inserts the new one atomically.
func (s *Service) StartAttempt(ctx context.Context, testID, userID string) (Attempt, error) {
	t, err := s.store.GetTest(ctx, testID, userID)
	if err != nil {
		return Attempt{}, err
	}
	a, err := s.store.CreateAttempt(ctx, t, userID)
	if err != nil {
		return Attempt{}, err
	}
	s.audit(ctx, "AttemptStarted", a.ID, map[string]interface{}{
		"test_id": testID, "user_id": userID, "attempt_number": a.AttemptNumber,
	})
	return a, nil
}

// ListCompletedAttempts returns the user's completed attempts for a test,
// newest attempt number first.
func (s *Service) ListCompletedAttempts(ctx context.Context, testID, userID string) ([]Attempt, error) {
	if _, err := s.store.GetTest(ctx, testID, userID); err != nil {
		return nil, err
	}
	return s.store.ListCompletedAttempts(ctx, testID, userID)
}

// SubmitInput is the raw submission payload.
type SubmitInput struct {
	AttemptID     string
	Answers       map[string]interface{}
	TimeSpentSec  int
	QuestionTimes map[string]int
}

// Submit grades the attempt and freezes it. A second submission for the same
// attempt fails with ErrAlreadyCompleted and leaves the stored result alone.
func (s *Service) Submit(ctx context.Context, testID, userID string, in SubmitInput) (Attempt, error) {
	if in.AttemptID == "" {
		return Attempt{}, ErrMissingAttemptID
	}
	a, err := s.store.GetAttempt(ctx, in.AttemptID, testID, userID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Completed {
		return Attempt{}, ErrAlreadyCompleted
	}

	t, err := s.store.GetTest(ctx, testID, userID)
	if err != nil {
		return Attempt{}, err
	}
	questions, err := s.store.GetQuestions(ctx, t.QuestionIDs)
	if err != nil {
		return Attempt{}, err
	}

	sum := grading.Grade(toGradingQs(questions), in.Answers)
	res := AttemptResult{
		Score:          sum.Score,
		Percentage:     sum.Percentage,
		CorrectAnswers: sum.CorrectAnswers,
		WrongAnswers:   sum.WrongAnswers,
		Unattempted:    sum.Unattempted,
		TotalAttempted: sum.TotalAttempted,
		TotalTimeSec:   in.TimeSpentSec,
		Answers:        in.Answers,
		QuestionTimes:  in.QuestionTimes,
		CompletedAt:    s.now().Unix(),
	}
	graded, err := s.store.CompleteAttempt(ctx, in.AttemptID, res)
	if err != nil {
		return Attempt{}, err
	}
	s.audit(ctx, "AttemptSubmitted", graded.ID, map[string]interface{}{
		"test_id": testID, "user_id": userID, "score": graded.Score, "percentage": graded.Percentage,
	})
	return graded, nil
}

// Results rebuilds the per-question review for a completed attempt.
// Correctness is recomputed with the same engine Submit used, questions are
// reordered to the test's canonical question list and numbered from 1.
func (s *Service) Results(ctx context.Context, testID, attemptID, userID string) (Results, error) {
	if attemptID == "" {
		return Results{}, ErrMissingAttemptID
	}
	a, err := s.store.GetAttempt(ctx, attemptID, testID, userID)
	if err != nil {
		return Results{}, err
	}
	t, err := s.store.GetTest(ctx, testID, userID)
	if err != nil {
		return Results{}, err
	}
	questions, err := s.store.GetQuestions(ctx, t.QuestionIDs)
	if err != nil {
		return Results{}, err
	}
	passages, err := s.store.GetPassages(ctx, t.PassageIDs)
	if err != nil {
		return Results{}, err
	}

	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	review := make([]ReviewQuestion, 0, len(t.QuestionIDs))
	for i, qid := range t.QuestionIDs {
		q, ok := byID[qid]
		if !ok {
			continue
		}
		answer := a.Answers[q.ID]
		out := grading.Evaluate(grading.Q{
			ID:             q.ID,
			CorrectAnswers: q.CorrectAnswers,
			PositiveMarks:  q.PositiveMarks,
			NegativeMarks:  q.NegativeMarks,
		}, answer)

		rq := ReviewQuestion{
			Question:       q,
			QuestionNumber: i + 1,
			UserAnswer:     answer,
			MarksObtained:  out.Marks,
			TimeTakenSec:   a.QuestionTimes[q.ID],
		}
		if out.Attempted {
			correct := out.Correct
			rq.IsCorrect = &correct
		}
		review = append(review, rq)
	}

	return Results{Test: t, Attempt: a, Questions: review, Passages: passages}, nil
}

// TestView returns the take-a-test payload: canonical question order,
// sequential numbering, answer keys stripped.
func (s *Service) TestView(ctx context.Context, testID, userID string) (TestView, error) {
	t, err := s.store.GetTest(ctx, testID, userID)
	if err != nil {
		return TestView{}, err
	}
	questions, err := s.store.GetQuestions(ctx, t.QuestionIDs)
	if err != nil {
		return TestView{}, err
	}
	passages, err := s.store.GetPassages(ctx, t.PassageIDs)
	if err != nil {
		return TestView{}, err
	}

	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]NumberedQuestion, 0, len(t.QuestionIDs))
	for i, qid := range t.QuestionIDs {
		q, ok := byID[qid]
		if !ok {
			continue
		}
		q.CorrectAnswers = nil
		ordered = append(ordered, NumberedQuestion{Question: q, QuestionNumber: i + 1})
	}
	return TestView{Test: t, Questions: ordered, Passages: passages}, nil
}

// ListTests returns the user's tests with latest-attempt summaries.
func (s *Service) ListTests(ctx context.Context, userID string) ([]TestSummary, error) {
	return s.store.ListTests(ctx, userID)
}

func (s *Service) audit(ctx context.Context, typ, key string, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, data); err != nil {
		log.Printf("eventlog: append %s %s: %v", typ, key, err)
	}
}

func toGradingQs(questions []Question) []grading.Q {
	out := make([]grading.Q, len(questions))
	for i, q := range questions {
		out[i] = grading.Q{
			ID:             q.ID,
			CorrectAnswers: q.CorrectAnswers,
			PositiveMarks:  q.PositiveMarks,
			NegativeMarks:  q.NegativeMarks,
		}
	}
	return out
}
