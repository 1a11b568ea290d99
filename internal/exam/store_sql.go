package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SQLStore implements Store over database/sql. Works against both the
// sqlite and postgres schemas created by internal/db.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) ListPassages(ctx context.Context, section Section) ([]Passage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, section, content, question_ids_json FROM passages WHERE section=$1 ORDER BY id`, string(section))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Passage
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetPassages(ctx context.Context, ids []string) ([]Passage, error) {
	out := make([]Passage, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx,
			`SELECT id, section, content, question_ids_json FROM passages WHERE id=$1`, id)
		p, err := scanPassage(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *SQLStore) GetQuestions(ctx context.Context, ids []string) ([]Question, error) {
	out := make([]Question, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		row := s.db.QueryRowContext(ctx,
			`SELECT id, passage_id, section, text, options_json, correct_json, positive_marks, negative_marks
			 FROM questions WHERE id=$1`, id)
		var q Question
		var passageID sql.NullString
		var optionsJSON, correctJSON string
		err := row.Scan(&q.ID, &passageID, &q.Section, &q.Text, &optionsJSON, &correctJSON, &q.PositiveMarks, &q.NegativeMarks)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		q.PassageID = passageID.String
		if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(correctJSON), &q.CorrectAnswers); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *SQLStore) PutPassage(ctx context.Context, p Passage) error {
	qj, err := json.Marshal(p.QuestionIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO passages (id, section, content, question_ids_json) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (id) DO UPDATE SET section=EXCLUDED.section, content=EXCLUDED.content, question_ids_json=EXCLUDED.question_ids_json`,
		p.ID, string(p.Section), p.Content, string(qj))
	return err
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	cj, err := json.Marshal(q.CorrectAnswers)
	if err != nil {
		return err
	}
	var passageID interface{}
	if q.PassageID != "" {
		passageID = q.PassageID
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (id, passage_id, section, text, options_json, correct_json, positive_marks, negative_marks)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET passage_id=EXCLUDED.passage_id, section=EXCLUDED.section, text=EXCLUDED.text,
		   options_json=EXCLUDED.options_json, correct_json=EXCLUDED.correct_json,
		   positive_marks=EXCLUDED.positive_marks, negative_marks=EXCLUDED.negative_marks`,
		q.ID, passageID, string(q.Section), q.Text, string(oj), string(cj), q.PositiveMarks, q.NegativeMarks)
	return err
}

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	pj, err := json.Marshal(t.PassageIDs)
	if err != nil {
		return err
	}
	qj, err := json.Marshal(t.QuestionIDs)
	if err != nil {
		return err
	}
	var section interface{}
	if t.Section != "" {
		section = string(t.Section)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tests (id, user_id, title, type, section, duration_minutes, passage_ids_json, question_ids_json, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.UserID, t.Title, string(t.Type), section, t.DurationMinutes, string(pj), string(qj), t.CreatedAt)
	return err
}

func (s *SQLStore) GetTest(ctx context.Context, id, userID string) (Test, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, type, section, duration_minutes, passage_ids_json, question_ids_json, created_at
		 FROM tests WHERE id=$1 AND user_id=$2`, id, userID)
	return scanTest(row)
}

func (s *SQLStore) ListTests(ctx context.Context, userID string) ([]TestSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, type, section, duration_minutes, passage_ids_json, question_ids_json, created_at
		 FROM tests WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TestSummary
	questionIDsByTest := map[string][]string{}
	for rows.Next() {
		var sum TestSummary
		var typ string
		var section sql.NullString
		var pj, qj string
		if err := rows.Scan(&sum.ID, &sum.Title, &typ, &section, &sum.DurationMinutes, &pj, &qj, &sum.CreatedAt); err != nil {
			return nil, err
		}
		sum.Type = TestType(typ)
		sum.Section = Section(section.String)
		var passageIDs, questionIDs []string
		if err := json.Unmarshal([]byte(pj), &passageIDs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(qj), &questionIDs); err != nil {
			return nil, err
		}
		sum.NumberOfPassages = len(passageIDs)
		sum.NumberOfQuestions = len(questionIDs)
		questionIDsByTest[sum.ID] = questionIDs
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.fillSummary(ctx, &out[i], questionIDsByTest[out[i].ID], userID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLStore) fillSummary(ctx context.Context, sum *TestSummary, questionIDs []string, userID string) error {
	questions, err := s.GetQuestions(ctx, questionIDs)
	if err != nil {
		return err
	}
	for _, q := range questions {
		sum.TotalMarks += q.PositiveMarks
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM test_attempts WHERE test_id=$1 AND user_id=$2`,
		sum.ID, userID).Scan(&sum.AttemptCount); err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, score, percentage, completed_at FROM test_attempts
		 WHERE test_id=$1 AND user_id=$2 AND is_latest AND completed`,
		sum.ID, userID)
	var score, pct float64
	var completedAt sql.NullInt64
	var latestID string
	switch err := row.Scan(&latestID, &score, &pct, &completedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	}
	sum.IsAttempted = true
	sum.LastScore = &pct
	sum.ObtainedMarks = &score
	sum.LatestAttemptID = latestID
	sum.AttemptedAt = completedAt.Int64
	return nil
}

func (s *SQLStore) CountTests(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tests WHERE user_id=$1`, userID).Scan(&n)
	return n, err
}

// CreateAttempt flips prior attempts and inserts the new latest in a single
// transaction, so no reader observes two latest attempts for (user,test).
func (s *SQLStore) CreateAttempt(ctx context.Context, t Test, userID string) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM tests WHERE id=$1 AND user_id=$2`, t.ID, userID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrTestNotFound
		}
		return Attempt{}, err
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM test_attempts WHERE test_id=$1 AND user_id=$2`, t.ID, userID).Scan(&count); err != nil {
		return Attempt{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE test_attempts SET is_latest=FALSE WHERE test_id=$1 AND user_id=$2`, t.ID, userID); err != nil {
		return Attempt{}, err
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
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO test_attempts (id, test_id, user_id, attempt_number, is_latest, answers_json, question_times_json,
		   total_questions, completed, started_at)
		 VALUES ($1,$2,$3,$4,TRUE,'{}','{}',$5,FALSE,$6)`,
		a.ID, a.TestID, a.UserID, a.AttemptNumber, a.TotalQuestions, a.StartedAt); err != nil {
		return Attempt{}, err
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, attemptID, testID, userID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, attemptColumns+` WHERE id=$1 AND test_id=$2 AND user_id=$3`, attemptID, testID, userID)
	return scanAttempt(row)
}

func (s *SQLStore) ListCompletedAttempts(ctx context.Context, testID, userID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		attemptColumns+` WHERE test_id=$1 AND user_id=$2 AND completed ORDER BY attempt_number DESC`, testID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CompleteAttempt finalizes via a conditional update keyed on the completed
// flag. Zero rows affected on an existing attempt means a concurrent (or
// repeated) submission won; the stored result is not re-scored.
func (s *SQLStore) CompleteAttempt(ctx context.Context, attemptID string, res AttemptResult) (Attempt, error) {
	aj, err := json.Marshal(orEmptyAnswers(res.Answers))
	if err != nil {
		return Attempt{}, err
	}
	tj, err := json.Marshal(orEmptyTimes(res.QuestionTimes))
	if err != nil {
		return Attempt{}, err
	}
	r, err := s.db.ExecContext(ctx,
		`UPDATE test_attempts
		 SET score=$1, percentage=$2, correct_answers=$3, wrong_answers=$4, unattempted=$5, total_attempted=$6,
		     total_time_sec=$7, answers_json=$8, question_times_json=$9, completed=TRUE, completed_at=$10
		 WHERE id=$11 AND completed=FALSE`,
		res.Score, res.Percentage, res.CorrectAnswers, res.WrongAnswers, res.Unattempted, res.TotalAttempted,
		res.TotalTimeSec, string(aj), string(tj), res.CompletedAt, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return Attempt{}, err
	}
	if n == 0 {
		var one int
		if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM test_attempts WHERE id=$1`, attemptID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Attempt{}, ErrAttemptNotFound
			}
			return Attempt{}, err
		}
		return Attempt{}, ErrAlreadyCompleted
	}
	row := s.db.QueryRowContext(ctx, attemptColumns+` WHERE id=$1`, attemptID)
	return scanAttempt(row)
}

const attemptColumns = `SELECT id, test_id, user_id, attempt_number, is_latest, answers_json, question_times_json,
	total_questions, completed, score, percentage, correct_answers, wrong_answers, unattempted, total_attempted,
	total_time_sec, started_at, completed_at FROM test_attempts`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPassage(row rowScanner) (Passage, error) {
	var p Passage
	var qj string
	if err := row.Scan(&p.ID, &p.Section, &p.Content, &qj); err != nil {
		return Passage{}, err
	}
	if err := json.Unmarshal([]byte(qj), &p.QuestionIDs); err != nil {
		return Passage{}, err
	}
	return p, nil
}

func scanTest(row rowScanner) (Test, error) {
	var t Test
	var typ string
	var section sql.NullString
	var pj, qj string
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &typ, &section, &t.DurationMinutes, &pj, &qj, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Test{}, ErrTestNotFound
	}
	if err != nil {
		return Test{}, err
	}
	t.Type = TestType(typ)
	t.Section = Section(section.String)
	if err := json.Unmarshal([]byte(pj), &t.PassageIDs); err != nil {
		return Test{}, err
	}
	if err := json.Unmarshal([]byte(qj), &t.QuestionIDs); err != nil {
		return Test{}, err
	}
	return t, nil
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var aj, tj string
	var completedAt sql.NullInt64
	err := row.Scan(&a.ID, &a.TestID, &a.UserID, &a.AttemptNumber, &a.IsLatest, &aj, &tj,
		&a.TotalQuestions, &a.Completed, &a.Score, &a.Percentage, &a.CorrectAnswers, &a.WrongAnswers,
		&a.Unattempted, &a.TotalAttempted, &a.TotalTimeSec, &a.StartedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	if err != nil {
		return Attempt{}, err
	}
	a.CompletedAt = completedAt.Int64
	if err := json.Unmarshal([]byte(aj), &a.Answers); err != nil {
		a.Answers = map[string]interface{}{}
	}
	if err := json.Unmarshal([]byte(tj), &a.QuestionTimes); err != nil {
		a.QuestionTimes = map[string]int{}
	}
	return a, nil
}

func orEmptyAnswers(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func orEmptyTimes(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
