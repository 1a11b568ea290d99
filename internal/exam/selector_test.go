package exam

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityShuffle keeps list order, so tests control selection order via
// passage IDs (the memory store lists passages sorted by ID).
func identityShuffle(n int, swap func(i, j int)) {}

// reverseShuffle flips the list.
func reverseShuffle(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func seedPassages(t *testing.T, store Store, section Section, questionCounts ...int) []Passage {
	t.Helper()
	ctx := context.Background()
	passages := make([]Passage, 0, len(questionCounts))
	for i, n := range questionCounts {
		p := Passage{
			ID:      fmt.Sprintf("p%02d", i+1),
			Section: section,
			Content: fmt.Sprintf("passage %d", i+1),
		}
		for j := 0; j < n; j++ {
			q := Question{
				ID:             fmt.Sprintf("%s-q%02d", p.ID, j+1),
				PassageID:      p.ID,
				Section:        section,
				Text:           "?",
				Options:        []string{"A", "B", "C", "D"},
				CorrectAnswers: []string{"A"},
				PositiveMarks:  1,
				NegativeMarks:  0.25,
			}
			require.NoError(t, store.PutQuestion(ctx, q))
			p.QuestionIDs = append(p.QuestionIDs, q.ID)
		}
		require.NoError(t, store.PutPassage(ctx, p))
		passages = append(passages, p)
	}
	return passages
}

func TestSelectorEmptySection(t *testing.T) {
	store := NewInMemoryStore()
	sel := NewSelector(store, identityShuffle)

	got, err := sel.Select(context.Background(), SectionEnglish, 24, 6)
	require.NoError(t, err)
	assert.Empty(t, got.PassageIDs)
	assert.Empty(t, got.QuestionIDs)
}

// Three passages of 10, 8 and 6 questions total exactly 24: all three must
// be selected for minQuestions=24.
func TestSelectorExactMinimum(t *testing.T) {
	store := NewInMemoryStore()
	seedPassages(t, store, SectionEnglish, 10, 8, 6)
	sel := NewSelector(store, identityShuffle)

	got, err := sel.Select(context.Background(), SectionEnglish, 24, 6)
	require.NoError(t, err)
	assert.Len(t, got.PassageIDs, 3)
	assert.Len(t, got.QuestionIDs, 24)
}

func TestSelectorStopsAtMinimum(t *testing.T) {
	store := NewInMemoryStore()
	seedPassages(t, store, SectionEnglish, 10, 8, 6, 7)
	sel := NewSelector(store, identityShuffle)

	got, err := sel.Select(context.Background(), SectionEnglish, 18, 6)
	require.NoError(t, err)
	// 10 + 8 meets the minimum; the rest stay out.
	assert.Equal(t, []string{"p01", "p02"}, got.PassageIDs)
	assert.Len(t, got.QuestionIDs, 18)
}

// An oversized last passage may push the total past the minimum. Passages
// are atomic, never trimmed.
func TestSelectorOvershootAccepted(t *testing.T) {
	store := NewInMemoryStore()
	seedPassages(t, store, SectionLegal, 5, 20)
	sel := NewSelector(store, identityShuffle)

	got, err := sel.Select(context.Background(), SectionLegal, 6, 8)
	require.NoError(t, err)
	assert.Len(t, got.QuestionIDs, 25)
}

// Second pass ignores the passage cap when the first pass ends short.
func TestSelectorSecondPassIgnoresCap(t *testing.T) {
	store := NewInMemoryStore()
	seedPassages(t, store, SectionGKCA, 4, 4, 4, 4, 4)
	sel := NewSelector(store, identityShuffle)

	got, err := sel.Select(context.Background(), SectionGKCA, 18, 2)
	require.NoError(t, err)
	// Cap stops the first pass at 2 passages / 8 questions; the second pass
	// keeps adding until >= 18.
	assert.Len(t, got.PassageIDs, 5)
	assert.Len(t, got.QuestionIDs, 20)
}

func TestSelectorExhaustedBankEndsShort(t *testing.T) {
	store := NewInMemoryStore()
	seedPassages(t, store, SectionQuantitative, 3, 3)
	sel := NewSelector(store, identityShuffle)

	got, err := sel.Select(context.Background(), SectionQuantitative, 12, 2)
	require.NoError(t, err)
	// Short result is the assembler's problem, not the selector's.
	assert.Len(t, got.PassageIDs, 2)
	assert.Len(t, got.QuestionIDs, 6)
}

// Every selected passage contributes all of its questions, in passage order.
func TestSelectorPassageAtomicity(t *testing.T) {
	store := NewInMemoryStore()
	passages := seedPassages(t, store, SectionLogical, 6, 5, 7, 4)
	byID := make(map[string]Passage, len(passages))
	for _, p := range passages {
		byID[p.ID] = p
	}
	sel := NewSelector(store, reverseShuffle)

	got, err := sel.Select(context.Background(), SectionLogical, 15, 6)
	require.NoError(t, err)

	var want []string
	for _, pid := range got.PassageIDs {
		want = append(want, byID[pid].QuestionIDs...)
	}
	assert.Equal(t, want, got.QuestionIDs)
}

func TestSelectorSeededShuffleIsDeterministic(t *testing.T) {
	store := NewInMemoryStore()
	seedPassages(t, store, SectionEnglish, 6, 6, 6, 6, 6, 6)

	first, err := NewSelector(store, NewSeededShuffle(42)).Select(context.Background(), SectionEnglish, 12, 3)
	require.NoError(t, err)
	second, err := NewSelector(store, NewSeededShuffle(42)).Select(context.Background(), SectionEnglish, 12, 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSelectorMinWinsOverCapWhenBankSuffices(t *testing.T) {
	store := NewInMemoryStore()
	seedPassages(t, store, SectionEnglish, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2)
	sel := NewSelector(store, identityShuffle)

	got, err := sel.Select(context.Background(), SectionEnglish, 20, 3)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(got.QuestionIDs), 20)
}
