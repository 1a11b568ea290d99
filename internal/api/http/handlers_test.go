package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/lexia-prep/exam-engine/internal/auth/middleware"
	"github.com/lexia-prep/exam-engine/internal/exam"
	"github.com/lexia-prep/exam-engine/internal/quota"
)

// asUser injects subject and role the way JWTMiddleware would after a valid
// bearer token.
func asUser(userID, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.WithSubject(r.Context(), userID)
			ctx = auth.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newAPI(t *testing.T, userID, role string) (chi.Router, exam.Store) {
	t.Helper()
	store := exam.NewInMemoryStore()
	selector := exam.NewSelector(store, exam.NewSeededShuffle(1))
	guard := quota.NewGuard(store.CountTests, 5)
	assembler := exam.NewAssembler(selector, store, guard, exam.DefaultAssemblyConfig())
	svc := exam.NewService(store)

	r := chi.NewRouter()
	r.Use(asUser(userID, role))
	r.Post("/tests/generate", GenerateTestHandler(assembler))
	r.Get("/tests", ListTestsHandler(svc))
	r.Get("/tests/{testID}", GetTestHandler(svc))
	r.Post("/tests/{testID}/attempts", CreateAttemptHandler(svc))
	r.Get("/tests/{testID}/attempts", ListAttemptsHandler(svc))
	r.Post("/tests/{testID}/submit", SubmitAttemptHandler(svc))
	r.Get("/tests/{testID}/results", GetResultsHandler(svc))
	r.With(auth.RequireRole(quota.RoleAdmin)).Post("/content/import", ImportContentHandler(store))
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func seedEnglish(t *testing.T, store exam.Store, passages, perPassage int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < passages; i++ {
		p := exam.Passage{
			ID:      "p" + string(rune('a'+i)),
			Section: exam.SectionEnglish,
			Content: "content",
		}
		for j := 0; j < perPassage; j++ {
			q := exam.Question{
				ID:             p.ID + "-q" + string(rune('a'+j)),
				PassageID:      p.ID,
				Section:        exam.SectionEnglish,
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
	}
}

func TestGenerateSectional(t *testing.T) {
	r, store := newAPI(t, "u1", quota.RoleFree)
	seedEnglish(t, store, 4, 6)

	rec := doJSON(t, r, http.MethodPost, "/tests/generate", map[string]string{
		"type": "SECTIONAL", "section": "ENGLISH",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID                string `json:"id"`
		Title             string `json:"title"`
		DurationMinutes   int    `json:"duration_minutes"`
		NumberOfQuestions int    `json:"number_of_questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Contains(t, resp.Title, "ENGLISH")
	assert.Equal(t, 24, resp.NumberOfQuestions)
	assert.Equal(t, 36, resp.DurationMinutes)
}

func TestGenerateValidation(t *testing.T) {
	r, _ := newAPI(t, "u1", quota.RoleFree)

	rec := doJSON(t, r, http.MethodPost, "/tests/generate", map[string]string{"type": "SECTIONAL"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/tests/generate", map[string]string{
		"type": "SECTIONAL", "section": "HISTORY",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid-section")

	rec = doJSON(t, r, http.MethodPost, "/tests/generate", map[string]string{"type": "WEEKLY"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid-type")
}

func TestGenerateInsufficientContent(t *testing.T) {
	r, _ := newAPI(t, "u1", quota.RoleFree) // empty bank

	rec := doJSON(t, r, http.MethodPost, "/tests/generate", map[string]string{"type": "MOCK"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient-content")
}

func TestGenerateQuotaExceeded(t *testing.T) {
	r, store := newAPI(t, "u1", quota.RoleFree)
	seedEnglish(t, store, 4, 6)

	body := map[string]string{"type": "SECTIONAL", "section": "ENGLISH"}
	for i := 0; i < 5; i++ {
		rec := doJSON(t, r, http.MethodPost, "/tests/generate", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, r, http.MethodPost, "/tests/generate", body)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp struct {
		Code         string `json:"error"`
		CurrentCount *int   `json:"current_count"`
		Limit        *int   `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "quota-exceeded", resp.Code)
	require.NotNil(t, resp.CurrentCount)
	assert.Equal(t, 5, *resp.CurrentCount)
	require.NotNil(t, resp.Limit)
	assert.Equal(t, 5, *resp.Limit)
}

func TestGenerateQuotaBypassedForPro(t *testing.T) {
	r, store := newAPI(t, "u1", quota.RolePro)
	seedEnglish(t, store, 4, 6)

	body := map[string]string{"type": "SECTIONAL", "section": "ENGLISH"}
	for i := 0; i < 6; i++ {
		rec := doJSON(t, r, http.MethodPost, "/tests/generate", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
}

func TestAttemptFlow(t *testing.T) {
	r, store := newAPI(t, "u1", quota.RoleFree)
	seedEnglish(t, store, 4, 6)

	rec := doJSON(t, r, http.MethodPost, "/tests/generate", map[string]string{
		"type": "SECTIONAL", "section": "ENGLISH",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Fetch the test view; answer keys must not leak.
	rec = doJSON(t, r, http.MethodGet, "/tests/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correct_answers")

	rec = doJSON(t, r, http.MethodPost, "/tests/"+created.ID+"/attempts", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var started struct {
		Attempt exam.Attempt `json:"attempt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, 1, started.Attempt.AttemptNumber)

	rec = doJSON(t, r, http.MethodPost, "/tests/"+created.ID+"/submit", map[string]interface{}{
		"attempt_id": started.Attempt.ID,
		"answers":    map[string]interface{}{},
		"time_spent": 60,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var graded exam.Attempt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graded))
	assert.True(t, graded.Completed)
	assert.Equal(t, 24, graded.Unattempted)

	// Double submit is rejected.
	rec = doJSON(t, r, http.MethodPost, "/tests/"+created.ID+"/submit", map[string]interface{}{
		"attempt_id": started.Attempt.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already-completed")

	rec = doJSON(t, r, http.MethodGet, "/tests/"+created.ID+"/results?attempt_id="+started.Attempt.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// attempt_id is mandatory on results.
	rec = doJSON(t, r, http.MethodGet, "/tests/"+created.ID+"/results", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing-attempt-id")

	rec = doJSON(t, r, http.MethodGet, "/tests/"+created.ID+"/attempts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var attempts []exam.Attempt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attempts))
	assert.Len(t, attempts, 1)
}

func TestUnknownTestIs404(t *testing.T) {
	r, _ := newAPI(t, "u1", quota.RoleFree)

	rec := doJSON(t, r, http.MethodGet, "/tests/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not-found")

	rec = doJSON(t, r, http.MethodPost, "/tests/ghost/attempts", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportContentAdminOnly(t *testing.T) {
	body := map[string]interface{}{
		"passages": []exam.Passage{
			{ID: "p1", Section: exam.SectionLegal, Content: "text", QuestionIDs: []string{"q1"}},
		},
		"questions": []exam.Question{
			{ID: "q1", PassageID: "p1", Section: exam.SectionLegal, Text: "?",
				Options: []string{"A", "B"}, CorrectAnswers: []string{"A"}, PositiveMarks: 1, NegativeMarks: 0.25},
		},
	}

	r, _ := newAPI(t, "u1", quota.RoleFree)
	rec := doJSON(t, r, http.MethodPost, "/content/import", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, store := newAPI(t, "admin", quota.RoleAdmin)
	rec = doJSON(t, admin, http.MethodPost, "/content/import", body)
	require.Equal(t, http.StatusOK, rec.Code)

	passages, err := store.ListPassages(context.Background(), exam.SectionLegal)
	require.NoError(t, err)
	assert.Len(t, passages, 1)
}

func TestImportContentRejectsUnknownSection(t *testing.T) {
	r, _ := newAPI(t, "admin", quota.RoleAdmin)
	rec := doJSON(t, r, http.MethodPost, "/content/import", map[string]interface{}{
		"passages": []map[string]string{{"id": "p1", "section": "HISTORY", "content": "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid-section")
}
