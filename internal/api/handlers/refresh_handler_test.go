package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillbase/ingesta/internal/core"
	"github.com/quillbase/ingesta/internal/core/refresh"
	"github.com/quillbase/ingesta/internal/models"
)

type emptySourceDB struct {
	core.DbClient
}

func (emptySourceDB) ListWebsiteSources(context.Context) ([]models.Source, error) {
	return nil, nil
}

func TestTriggerRefreshAuth(t *testing.T) {
	scheduler := refresh.NewScheduler(emptySourceDB{}, nil)
	h := NewRefreshHandler(scheduler, "topsecret")

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic topsecret", http.StatusUnauthorized},
		{"wrong secret", "Bearer nope", http.StatusUnauthorized},
		{"correct secret", "Bearer topsecret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			h.TriggerRefresh(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestTriggerRefreshEmptyCorpus(t *testing.T) {
	scheduler := refresh.NewScheduler(emptySourceDB{}, nil)
	h := NewRefreshHandler(scheduler, "topsecret")

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	rec := httptest.NewRecorder()

	h.TriggerRefresh(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		Success bool                   `json:"success"`
		Message string                 `json:"message"`
		Results []models.RefreshResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.True(t, summary.Success)
	assert.Equal(t, "Re-crawled 0 sources", summary.Message)
	assert.NotNil(t, summary.Results)
	assert.Empty(t, summary.Results)
}
