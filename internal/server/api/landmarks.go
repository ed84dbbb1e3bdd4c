package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/store"
)

// LandmarksHandler handles HTTP requests for recorded facial landmark
// samples of a signer.
type LandmarksHandler struct {
	store *store.Store
}

// NewLandmarksHandler creates a new LandmarksHandler with the given store.
func NewLandmarksHandler(s *store.Store) *LandmarksHandler {
	return &LandmarksHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/landmarks/{signer}
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	signer := strings.TrimPrefix(r.URL.Path, "/api/landmarks/")
	if signer == "" || strings.Contains(signer, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, signer)
	case http.MethodPut:
		h.replace(w, r, signer)
	case http.MethodDelete:
		h.delete(w, r, signer)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request types

type replaceSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

// Response types

type sampleResponse struct {
	ID          int64           `json:"id"`
	Signer      string          `json:"signer"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

// list handles GET /api/landmarks/{signer}
func (h *LandmarksHandler) list(w http.ResponseWriter, r *http.Request, signer string) {
	samples, err := h.store.Landmarks().GetBySigner(signer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}

	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			Signer:      s.Signer,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// replace handles PUT /api/landmarks/{signer}. Every sample must be a
// complete facial landmark snapshot.
func (h *LandmarksHandler) replace(w http.ResponseWriter, r *http.Request, signer string) {
	var req replaceSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	for i, data := range req.Samples {
		var lm face.Landmarks
		if err := json.Unmarshal(data, &lm); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Sample %d: invalid landmarks", i))
			return
		}
		if err := lm.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Sample %d: %v", i, err))
			return
		}
	}

	if err := h.store.Landmarks().Replace(signer, req.Samples); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"status": "ok", "samples": len(req.Samples)})
}

// delete handles DELETE /api/landmarks/{signer}
func (h *LandmarksHandler) delete(w http.ResponseWriter, r *http.Request, signer string) {
	if err := h.store.Landmarks().DeleteBySigner(signer); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
