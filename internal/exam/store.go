package exam

import "context"

// ContentStore is the read side of the question bank. Passages carry their
// question id lists so the selector never has to join per passage.
type ContentStore interface {
	ListPassages(ctx context.Context, section Section) ([]Passage, error)
	GetPassages(ctx context.Context, ids []string) ([]Passage, error)
	GetQuestions(ctx context.Context, ids []string) ([]Question, error)

	// Authoring side, used by the admin import endpoint.
	PutPassage(ctx context.Context, p Passage) error
	PutQuestion(ctx context.Context, q Question) error
}

// AttemptResult carries everything written at attempt completion.
type AttemptResult struct {
	Score          float64
	Percentage     float64
	CorrectAnswers int
	WrongAnswers   int
	Unattempted    int
	TotalAttempted int
	TotalTimeSec   int
	Answers        map[string]interface{}
	QuestionTimes  map[string]int
	CompletedAt    int64
}

// Store is the persistence boundary for tests and attempts.
//
// Implementations must uphold two atomicity guarantees:
//   - CreateAttempt flips prior is_latest rows and inserts the new attempt as
//     one unit, so a reader never sees two latest attempts for a (user,test).
//   - CompleteAttempt is a check-then-set on the completed flag and returns
//     ErrAlreadyCompleted when the attempt was finalized concurrently.
type Store interface {
	ContentStore

	PutTest(ctx context.Context, t Test) error
	// GetTest returns ErrTestNotFound when the test does not exist or is
	// owned by a different user.
	GetTest(ctx context.Context, id, userID string) (Test, error)
	ListTests(ctx context.Context, userID string) ([]TestSummary, error)
	CountTests(ctx context.Context, userID string) (int, error)

	CreateAttempt(ctx context.Context, t Test, userID string) (Attempt, error)
	// GetAttempt scopes by test and user; mismatches are ErrAttemptNotFound.
	GetAttempt(ctx context.Context, attemptID, testID, userID string) (Attempt, error)
	ListCompletedAttempts(ctx context.Context, testID, userID string) ([]Attempt, error)
	CompleteAttempt(ctx context.Context, attemptID string, res AttemptResult) (Attempt, error)
}
