package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/quillbase/ingesta/internal/core/refresh"
	"github.com/quillbase/ingesta/internal/models"
)

// RefreshHandler exposes the scheduled-refresh trigger. It is gated by a
// shared secret rather than a user session: the caller is a background job,
// not a person.
type RefreshHandler struct {
	scheduler *refresh.Scheduler
	secret    string
}

func NewRefreshHandler(scheduler *refresh.Scheduler, secret string) *RefreshHandler {
	return &RefreshHandler{scheduler: scheduler, secret: secret}
}

type refreshSummary struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Results []models.RefreshResult `json:"results"`
}

// TriggerRefresh re-crawls every website source and reports a per-source
// breakdown. Partial failures never surface as a total failure.
func (h *RefreshHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	results, err := h.scheduler.RefreshAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []models.RefreshResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(refreshSummary{
		Success: true,
		Message: fmt.Sprintf("Re-crawled %d sources", len(results)),
		Results: results,
	})
}

func (h *RefreshHandler) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
