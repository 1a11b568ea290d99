package http

import (
	"encoding/json"
	"net/http"

	"github.com/lexia-prep/exam-engine/internal/exam"
)

// POST /content/import — admin bulk upsert of passages and their questions.
// Stands in for the external authoring pipeline so the engine can be seeded.
func ImportContentHandler(store exam.ContentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Passages  []exam.Passage  `json:"passages"`
			Questions []exam.Question `json:"questions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "bad-json", "invalid request body")
			return
		}
		for _, p := range req.Passages {
			if _, ok := exam.ParseSection(string(p.Section)); !ok {
				writeErrorCode(w, http.StatusBadRequest, "invalid-section", "passage "+p.ID+": unknown section")
				return
			}
			if err := store.PutPassage(r.Context(), p); err != nil {
				writeError(w, err)
				return
			}
		}
		for _, q := range req.Questions {
			if _, ok := exam.ParseSection(string(q.Section)); !ok {
				writeErrorCode(w, http.StatusBadRequest, "invalid-section", "question "+q.ID+": unknown section")
				return
			}
			if err := store.PutQuestion(r.Context(), q); err != nil {
				writeError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]int{
			"passages":  len(req.Passages),
			"questions": len(req.Questions),
		})
	}
}
