// Package grading turns raw submitted answers into correctness, marks and
// aggregate results. It is pure: no storage, no clock, no randomness, so the
// submit path and the results read path share one source of truth.
package grading

import (
	"math"
	"strings"
)

// Q is the minimal view of a question needed for grading.
type Q struct {
	ID             string
	CorrectAnswers []string
	PositiveMarks  float64
	NegativeMarks  float64 // positive magnitude, subtracted on a wrong attempt
}

// Outcome is the graded result of a single question.
type Outcome struct {
	Attempted bool
	Correct   bool
	// Marks is +PositiveMarks, -NegativeMarks, or 0 for unattempted.
	Marks float64
}

// Summary aggregates outcomes over a whole question set.
type Summary struct {
	Score          float64
	Percentage     float64
	MaxMarks       float64
	CorrectAnswers int
	WrongAnswers   int
	Unattempted    int
	TotalAttempted int
	TotalQuestions int
}

// Normalize converts a raw submitted answer (string, []string, or the
// []interface{} produced by JSON decoding) into a token slice. A blank
// string after trimming, an empty slice, or nil all normalize to nil.
func Normalize(answer interface{}) []string {
	switch v := answer.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	case []string:
		if len(v) == 0 {
			return nil
		}
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// Evaluate grades one question against one raw answer. Correctness is exact
// set equality: same size, every correct token present. No partial credit.
func Evaluate(q Q, answer interface{}) Outcome {
	tokens := Normalize(answer)
	if len(tokens) == 0 {
		return Outcome{}
	}
	if setEqual(toSet(q.CorrectAnswers), toSet(tokens)) {
		return Outcome{Attempted: true, Correct: true, Marks: q.PositiveMarks}
	}
	return Outcome{Attempted: true, Marks: -q.NegativeMarks}
}

// Grade scores a full question set against an answer map. The score is left
// unclamped (it may go negative); the percentage is clamped to a floor of 0
// and rounded to two decimals.
func Grade(questions []Q, answers map[string]interface{}) Summary {
	s := Summary{TotalQuestions: len(questions)}
	for _, q := range questions {
		s.MaxMarks += q.PositiveMarks
		out := Evaluate(q, answers[q.ID])
		if !out.Attempted {
			continue
		}
		s.TotalAttempted++
		s.Score += out.Marks
		if out.Correct {
			s.CorrectAnswers++
		} else {
			s.WrongAnswers++
		}
	}
	s.Unattempted = s.TotalQuestions - s.TotalAttempted
	s.Percentage = PercentageOf(s.Score, s.MaxMarks)
	return s
}

// PercentageOf computes max(0, score/maxMarks*100) rounded to 2 decimals.
// A zero maxMarks yields 0, not NaN.
func PercentageOf(score, maxMarks float64) float64 {
	if maxMarks <= 0 {
		return 0
	}
	pct := score / maxMarks * 100
	if pct < 0 {
		pct = 0
	}
	return math.Round(pct*100) / 100
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
