package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quillbase/ingesta/internal/config"
	"github.com/quillbase/ingesta/internal/core"
	"github.com/quillbase/ingesta/internal/core/crawler"
	"github.com/quillbase/ingesta/internal/core/ingest"
	"github.com/quillbase/ingesta/internal/models"
)

type SourceHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient
	ingestor     ingest.Ingestor
	cfg          *config.Config
}

func NewSourceHandler(dbclient core.DbClient, objectclient core.ObjectClient, ing ingest.Ingestor, cfg *config.Config) *SourceHandler {
	return &SourceHandler{dbclient: dbclient, objectclient: objectclient, ingestor: ing, cfg: cfg}
}

type registerWebsiteRequest struct {
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl"`
}

// RegisterWebsite creates a website source and queues its first ingestion.
func (h *SourceHandler) RegisterWebsite(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value("org_id").(string)
	if !ok {
		http.Error(w, "org_id not found in context", http.StatusUnauthorized)
		return
	}

	var req registerWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.BaseURL == "" {
		http.Error(w, "baseUrl is required", http.StatusBadRequest)
		return
	}
	baseURL := crawler.NormalizeURL(req.BaseURL)
	name := req.Name
	if name == "" {
		name = crawler.Domain(baseURL)
	}

	src := &models.Source{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		Name:       name,
		OriginType: "website",
		BaseURL:    baseURL,
		Status:     "pending",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := h.dbclient.CreateSource(r.Context(), src); err != nil {
		log.Printf("create source failed for %s: %v", baseURL, err)
		http.Error(w, "failed to register source", http.StatusInternalServerError)
		return
	}

	h.ingestor.Enqueue(src.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(src)
}

// UploadDocument handles file upload, S3 store, DB insert and queues ingestion.
func (h *SourceHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.ParseMultipartForm(52 << 20)

	orgID, ok := r.Context().Value("org_id").(string)
	if !ok {
		http.Error(w, "org_id not found in context", http.StatusUnauthorized)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	// Sanitize filename to prevent path traversal or invalid characters
	cleanFilename := filepath.Base(header.Filename)
	srcID := uuid.NewString()
	s3Key := fmt.Sprintf("%s/%s/%s", orgID, srcID, cleanFilename)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	url, err := h.objectclient.UploadFile(uploadctx, h.cfg.BucketName, s3Key, data, contentType)
	if err != nil {
		http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
		return
	}

	src := &models.Source{
		ID:         srcID,
		OrgID:      orgID,
		Name:       cleanFilename,
		OriginType: "document",
		BaseURL:    url,
		Status:     "pending",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := h.dbclient.CreateSource(uploadctx, src); err != nil {
		log.Printf("create source failed for upload %s: %v", cleanFilename, err)
		http.Error(w, "failed to store source metadata", http.StatusInternalServerError)
		return
	}

	h.ingestor.Enqueue(src.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(src)
}

type sourceView struct {
	models.Source
	ChunkCount int `json:"chunk_count"`
}

// ListSources returns the org's sources with their chunk counts.
func (h *SourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value("org_id").(string)
	if !ok {
		http.Error(w, "org_id not found in context", http.StatusUnauthorized)
		return
	}

	sources, err := h.dbclient.ListSourcesByOrg(r.Context(), orgID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		n, err := h.dbclient.CountChunksBySource(r.Context(), src.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		views = append(views, sourceView{Source: src, ChunkCount: n})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// ReingestSource queues a fresh ingestion pass for an existing source.
func (h *SourceHandler) ReingestSource(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value("org_id").(string)
	if !ok {
		http.Error(w, "org_id not found in context", http.StatusUnauthorized)
		return
	}

	src, err := h.ownedSource(r.Context(), chi.URLParam(r, "id"), orgID)
	if err != nil {
		writeSourceError(w, err)
		return
	}

	h.ingestor.Enqueue(src.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "queued", "source_id": src.ID})
}

// DeleteSource removes a source and its whole corpus (records, chunks). For
// document sources the uploaded blob is removed from object storage as well.
func (h *SourceHandler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value("org_id").(string)
	if !ok {
		http.Error(w, "org_id not found in context", http.StatusUnauthorized)
		return
	}

	src, err := h.ownedSource(r.Context(), chi.URLParam(r, "id"), orgID)
	if err != nil {
		writeSourceError(w, err)
		return
	}

	if err := h.dbclient.DeleteSource(r.Context(), src.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Blob cleanup is best effort once the rows are gone; a stale object in
	// the bucket is preferable to a source that refuses to delete.
	if src.OriginType == "document" {
		bucket, key := ingest.ParseS3URL(src.BaseURL)
		if err := h.objectclient.DeleteFile(r.Context(), bucket, key); err != nil {
			log.Printf("delete blob for source %s (%s/%s): %v", src.ID, bucket, key, err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SourceHandler) ownedSource(ctx context.Context, id, orgID string) (*models.Source, error) {
	src, err := h.dbclient.GetSourceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if src.OrgID != orgID {
		return nil, core.ErrSourceNotFound
	}
	return src, nil
}

func writeSourceError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrSourceNotFound) {
		http.Error(w, "source not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
