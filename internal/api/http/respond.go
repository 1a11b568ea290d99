package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lexia-prep/exam-engine/internal/exam"
	"github.com/lexia-prep/exam-engine/internal/quota"
)

// apiError is the wire shape for every failure. Code is a stable machine
// string; extra fields (quota numbers) ride alongside.
type apiError struct {
	Code         string `json:"error"`
	Message      string `json:"message,omitempty"`
	CurrentCount *int   `json:"current_count,omitempty"`
	Limit        *int   `json:"limit,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, apiError{Code: code, Message: msg})
}

// writeError maps domain errors to status codes and stable error codes.
func writeError(w http.ResponseWriter, err error) {
	var qe *quota.Error
	switch {
	case errors.As(err, &qe):
		writeJSON(w, http.StatusForbidden, apiError{
			Code:         "quota-exceeded",
			Message:      qe.Error(),
			CurrentCount: &qe.Count,
			Limit:        &qe.Limit,
		})
	case errors.Is(err, exam.ErrInsufficientContent):
		// Retryable: the content team gets notified, the user tries later.
		writeErrorCode(w, http.StatusServiceUnavailable, "insufficient-content",
			"could not generate test, not enough questions available; please try again later")
	case errors.Is(err, exam.ErrInvalidSection):
		writeErrorCode(w, http.StatusBadRequest, "invalid-section", err.Error())
	case errors.Is(err, exam.ErrInvalidType):
		writeErrorCode(w, http.StatusBadRequest, "invalid-type", err.Error())
	case errors.Is(err, exam.ErrMissingAttemptID):
		writeErrorCode(w, http.StatusBadRequest, "missing-attempt-id", err.Error())
	case errors.Is(err, exam.ErrAlreadyCompleted):
		writeErrorCode(w, http.StatusBadRequest, "already-completed", err.Error())
	case errors.Is(err, exam.ErrTestNotFound), errors.Is(err, exam.ErrAttemptNotFound):
		writeErrorCode(w, http.StatusNotFound, "not-found", err.Error())
	default:
		writeErrorCode(w, http.StatusInternalServerError, "internal", "an unexpected error occurred")
	}
}
