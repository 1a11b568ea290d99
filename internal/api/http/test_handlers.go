package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/lexia-prep/exam-engine/internal/auth/middleware"
	"github.com/lexia-prep/exam-engine/internal/exam"
)

// POST /tests/generate  { "type": "MOCK"|"SECTIONAL", "section": "..." }
func GenerateTestHandler(assembler *exam.Assembler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type    string `json:"type"`
			Section string `json:"section"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "bad-json", "invalid request body")
			return
		}
		if req.Type == "" || (req.Type == string(exam.TestTypeSectional) && req.Section == "") {
			writeErrorCode(w, http.StatusBadRequest, "invalid-request", "type required; section required for SECTIONAL")
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		role := auth.RoleFromContext(r.Context())

		t, err := assembler.Assemble(r.Context(), userID, role, exam.TestType(req.Type), exam.Section(req.Section))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":                  t.ID,
			"title":               t.Title,
			"type":                t.Type,
			"section":             t.Section,
			"duration_minutes":    t.DurationMinutes,
			"number_of_questions": len(t.QuestionIDs),
			"number_of_passages":  len(t.PassageIDs),
		})
	}
}

// GET /tests
func ListTestsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		list, err := svc.ListTests(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []exam.TestSummary{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /tests/{testID} — questions in canonical order, answer keys stripped.
func GetTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		view, err := svc.TestView(r.Context(), chi.URLParam(r, "testID"), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
