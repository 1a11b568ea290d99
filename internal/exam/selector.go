package exam

import (
	"context"
	"math/rand"
	"time"
)

// Shuffle permutes n elements via swap. Injected so tests can pin a seed;
// selection is deliberately re-random per call in production.
type Shuffle func(n int, swap func(i, j int))

// NewSeededShuffle returns a Shuffle backed by its own rand source.
func NewSeededShuffle(seed int64) Shuffle {
	r := rand.New(rand.NewSource(seed))
	return func(n int, swap func(i, j int)) { r.Shuffle(n, swap) }
}

// Selection is the outcome of one selector run. QuestionIDs preserves
// passage order: all questions of an earlier passage precede those of a
// later one.
type Selection struct {
	PassageIDs  []string
	QuestionIDs []string
}

// Selector chooses passages (and therefore their questions) for one section
// under a minimum-question / maximum-passage constraint pair.
type Selector struct {
	content ContentStore
	shuffle Shuffle
}

func NewSelector(content ContentStore, shuffle Shuffle) *Selector {
	if shuffle == nil {
		shuffle = NewSeededShuffle(time.Now().UnixNano())
	}
	return &Selector{content: content, shuffle: shuffle}
}

// Select greedily accumulates shuffled passages until minQuestions is met or
// maxPassages is hit; if still short, a second pass over the remaining
// passages ignores the passage cap. Passages are atomic: an oversized final
// passage may push the total above minQuestions and is never trimmed.
// Ending below minQuestions (exhausted bank) is not an error here; the
// assembler decides what to do with a thin result.
func (s *Selector) Select(ctx context.Context, section Section, minQuestions, maxPassages int) (Selection, error) {
	passages, err := s.content.ListPassages(ctx, section)
	if err != nil {
		return Selection{}, err
	}
	if len(passages) == 0 {
		return Selection{}, nil
	}

	s.shuffle(len(passages), func(i, j int) {
		passages[i], passages[j] = passages[j], passages[i]
	})

	var sel Selection
	picked := make(map[string]bool, len(passages))
	total := 0

	for _, p := range passages {
		if total >= minQuestions || len(sel.PassageIDs) >= maxPassages {
			break
		}
		picked[p.ID] = true
		sel.PassageIDs = append(sel.PassageIDs, p.ID)
		sel.QuestionIDs = append(sel.QuestionIDs, p.QuestionIDs...)
		total += len(p.QuestionIDs)
	}

	// Second pass: the minimum wins over the passage cap.
	if total < minQuestions {
		for _, p := range passages {
			if picked[p.ID] {
				continue
			}
			if total >= minQuestions {
				break
			}
			sel.PassageIDs = append(sel.PassageIDs, p.ID)
			sel.QuestionIDs = append(sel.QuestionIDs, p.QuestionIDs...)
			total += len(p.QuestionIDs)
		}
	}

	return sel, nil
}
