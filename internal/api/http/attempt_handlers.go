package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/lexia-prep/exam-engine/internal/auth/middleware"
	"github.com/lexia-prep/exam-engine/internal/exam"
)

// POST /tests/{testID}/attempts
func CreateAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		a, err := svc.StartAttempt(r.Context(), chi.URLParam(r, "testID"), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"attempt": a})
	}
}

// GET /tests/{testID}/attempts — completed attempts, newest number first.
func ListAttemptsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		attempts, err := svc.ListCompletedAttempts(r.Context(), chi.URLParam(r, "testID"), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		if attempts == nil {
			attempts = []exam.Attempt{}
		}
		writeJSON(w, http.StatusOK, attempts)
	}
}

// POST /tests/{testID}/submit
func SubmitAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AttemptID     string                 `json:"attempt_id"`
			Answers       map[string]interface{} `json:"answers"`
			TimeSpent     int                    `json:"time_spent"`
			QuestionTimes map[string]int         `json:"question_times"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "bad-json", "invalid request body")
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		a, err := svc.Submit(r.Context(), chi.URLParam(r, "testID"), userID, exam.SubmitInput{
			AttemptID:     req.AttemptID,
			Answers:       req.Answers,
			TimeSpentSec:  req.TimeSpent,
			QuestionTimes: req.QuestionTimes,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /tests/{testID}/results?attempt_id=...
func GetResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		res, err := svc.Results(r.Context(), chi.URLParam(r, "testID"), r.URL.Query().Get("attempt_id"), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
