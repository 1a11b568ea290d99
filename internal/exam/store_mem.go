package exam

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is a mutex-guarded Store for dev and tests. The single lock
// makes the latest-flip and the completion check-then-set trivially atomic.
type memoryStore struct {
	mu        sync.RWMutex
	passages  map[string]Passage
	questions map[string]Question
	tests     map[string]Test
	attempts  map[string]Attempt
}

func NewInMemoryStore() Store {
	return &memoryStore{
		passages:  map[string]Passage{},
		questions: map[string]Question{},
		tests:     map[string]Test{},
		attempts:  map[string]Attempt{},
	}
}

func (m *memoryStore) ListPassages(_ context.Context, section Section) ([]Passage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Passage
	for _, p := range m.passages {
		if p.Section == section {
			out = append(out, p)
		}
	}
	// Map iteration order is random anyway, but the selector owns shuffling;
	// keep listing deterministic so seeded tests stay reproducible.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) GetPassages(_ context.Context, ids []string) ([]Passage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Passage, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.passages[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryStore) GetQuestions(_ context.Context, ids []string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memoryStore) PutPassage(_ context.Context, p Passage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passages[p.ID] = p
	return nil
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) PutTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tests[t.ID] = t
	return nil
}

func (m *memoryStore) GetTest(_ context.Context, id, userID string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok || t.UserID != userID {
		return Test{}, ErrTestNotFound
	}
	return t, nil
}

func (m *memoryStore) ListTests(_ context.Context, userID string) ([]TestSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TestSummary
	for _, t := range m.tests {
		if t.UserID != userID {
			continue
		}
		sum := TestSummary{
			ID:                t.ID,
			Title:             t.Title,
			Type:              t.Type,
			Section:           t.Section,
			DurationMinutes:   t.DurationMinutes,
			NumberOfQuestions: len(t.QuestionIDs),
			NumberOfPassages:  len(t.PassageIDs),
			CreatedAt:         t.CreatedAt,
		}
		for _, qid := range t.QuestionIDs {
			if q, ok := m.questions[qid]; ok {
				sum.TotalMarks += q.PositiveMarks
			}
		}
		for _, a := range m.attempts {
			if a.TestID != t.ID || a.UserID != userID {
				continue
			}
			sum.AttemptCount++
			if a.IsLatest && a.Completed {
				sum.IsAttempted = true
				pct, score := a.Percentage, a.Score
				sum.LastScore = &pct
				sum.ObtainedMarks = &score
				sum.LatestAttemptID = a.ID
				sum.AttemptedAt = a.CompletedAt
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *memoryStore) CountTests(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.tests {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, t Test, userID string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.tests[t.ID]; !ok || stored.UserID != userID {
		return Attempt{}, ErrTestNotFound
	}
	count := 0
	for id, a := range m.attempts {
		if a.TestID == t.ID && a.UserID == userID {
			count++
			a.IsLatest = false
			m.attempts[id] = a
		}
	}
	a := Attempt{
		ID:             uuid.NewString(),
		TestID:         t.ID,
		UserID:         userID,
		AttemptNumber:  count + 1,
		IsLatest:       true,
		Answers:        map[string]interface{}{},
		QuestionTimes:  map[string]int{},
		TotalQuestions: len(t.QuestionIDs),
		StartedAt:      time.Now().Unix(),
	}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, attemptID, testID, userID string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[attemptID]
	if !ok || a.TestID != testID || a.UserID != userID {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *memoryStore) ListCompletedAttempts(_ context.Context, testID, userID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.TestID == testID && a.UserID == userID && a.Completed {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber > out[j].AttemptNumber })
	return out, nil
}

func (m *memoryStore) CompleteAttempt(_ context.Context, attemptID string, res AttemptResult) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Completed {
		return Attempt{}, ErrAlreadyCompleted
	}
	a.Score = res.Score
	a.Percentage = res.Percentage
	a.CorrectAnswers = res.CorrectAnswers
	a.WrongAnswers = res.WrongAnswers
	a.Unattempted = res.Unattempted
	a.TotalAttempted = res.TotalAttempted
	a.TotalTimeSec = res.TotalTimeSec
	a.Answers = res.Answers
	a.QuestionTimes = res.QuestionTimes
	a.Completed = true
	a.CompletedAt = res.CompletedAt
	m.attempts[attemptID] = a
	return a, nil
}
