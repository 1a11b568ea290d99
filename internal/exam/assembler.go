package exam

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
)

// QuotaGuard gates test generation per user tier. Check runs before any
// selection work; Record is invoked after a test is persisted so counter
// backends can bump their tally.
type QuotaGuard interface {
	Check(ctx context.Context, userID, role string) error
	Record(ctx context.Context, userID string) error
}

// Assembler builds MOCK and SECTIONAL tests by driving the Selector across
// sections and persisting the result.
type Assembler struct {
	selector *Selector
	store    Store
	guard    QuotaGuard
	cfg      AssemblyConfig
	now      func() time.Time
}

func NewAssembler(selector *Selector, store Store, guard QuotaGuard, cfg AssemblyConfig) *Assembler {
	return &Assembler{selector: selector, store: store, guard: guard, cfg: cfg, now: time.Now}
}

// Assemble builds and persists a test for the user. Below-minimum results
// are logged and kept (availability over strictness); only a zero-question
// result aborts.
func (a *Assembler) Assemble(ctx context.Context, userID, role string, typ TestType, section Section) (Test, error) {
	// Fail fast on quota before any selector work.
	if a.guard != nil {
		if err := a.guard.Check(ctx, userID, role); err != nil {
			return Test{}, err
		}
	}

	now := a.now()
	t := Test{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		CreatedAt: now.Unix(),
	}

	switch typ {
	case TestTypeMock:
		t.Title = fmt.Sprintf("Mock Test - %s", now.Format("02/01/2006"))
		t.DurationMinutes = a.cfg.MockDurationMinutes
		for _, sec := range Sections {
			q, ok := a.cfg.Mock[sec]
			if !ok {
				continue
			}
			sel, err := a.selector.Select(ctx, sec, q.MinQuestions, q.MaxPassages)
			if err != nil {
				return Test{}, err
			}
			t.PassageIDs = append(t.PassageIDs, sel.PassageIDs...)
			t.QuestionIDs = append(t.QuestionIDs, sel.QuestionIDs...)
		}

	case TestTypeSectional:
		sec, ok := ParseSection(string(section))
		if !ok {
			return Test{}, ErrInvalidSection
		}
		q := a.cfg.Sectional[sec]
		t.Section = sec
		t.Title = fmt.Sprintf("Sectional: %s - %s", sec, now.Format("02/01/2006"))
		sel, err := a.selector.Select(ctx, sec, q.Questions, q.Passages)
		if err != nil {
			return Test{}, err
		}
		t.PassageIDs = sel.PassageIDs
		t.QuestionIDs = sel.QuestionIDs
		t.DurationMinutes = int(math.Ceil(float64(len(t.QuestionIDs)) * a.cfg.MinutesPerQuestion))

	default:
		return Test{}, ErrInvalidType
	}

	if len(t.QuestionIDs) == 0 {
		return Test{}, ErrInsufficientContent
	}

	switch typ {
	case TestTypeMock:
		if len(t.QuestionIDs) < a.cfg.MockMinQuestions {
			log.Printf("assembler: mock test %s has %d questions, expected >= %d", t.ID, len(t.QuestionIDs), a.cfg.MockMinQuestions)
		}
	case TestTypeSectional:
		if want := a.cfg.Sectional[t.Section].Questions; len(t.QuestionIDs) < want {
			log.Printf("assembler: sectional test %s (%s) has %d questions, expected >= %d", t.ID, t.Section, len(t.QuestionIDs), want)
		}
	}

	if err := a.store.PutTest(ctx, t); err != nil {
		return Test{}, err
	}
	if a.guard != nil {
		if err := a.guard.Record(ctx, userID); err != nil {
			log.Printf("assembler: quota record for user %s: %v", userID, err)
		}
	}
	return t, nil
}
