// Package api provides HTTP API handlers for the islpose lexicon and
// translation endpoints.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/islpose/internal/lookup"
	"github.com/ayusman/islpose/internal/store"
)

// LexiconHandler handles HTTP requests for lexicon entries.
type LexiconHandler struct {
	store *store.Store
}

// NewLexiconHandler creates a new LexiconHandler with the given store.
func NewLexiconHandler(s *store.Store) *LexiconHandler {
	return &LexiconHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *LexiconHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/lexicon or /api/lexicon/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/lexicon")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type entryRequest struct {
	Path           string `json:"path"`
	SpokenLanguage string `json:"spoken_language"`
	SignedLanguage string `json:"signed_language"`
	Start          int    `json:"start"`
	End            int    `json:"end"`
	Words          string `json:"words"`
	Glosses        string `json:"glosses"`
	Priority       *int   `json:"priority"`
}

type entryResponse struct {
	ID             string `json:"id"`
	Path           string `json:"path"`
	SpokenLanguage string `json:"spoken_language"`
	SignedLanguage string `json:"signed_language"`
	Start          int    `json:"start"`
	End            int    `json:"end"`
	Words          string `json:"words"`
	Glosses        string `json:"glosses"`
	Priority       int    `json:"priority"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type listEntriesResponse struct {
	Entries []entryResponse `json:"entries"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.LexiconEntry to an entryResponse.
func toResponse(e *store.LexiconEntry) entryResponse {
	return entryResponse{
		ID:             e.ID,
		Path:           e.Path,
		SpokenLanguage: e.SpokenLanguage,
		SignedLanguage: e.SignedLanguage,
		Start:          e.StartMS,
		End:            e.EndMS,
		Words:          e.Words,
		Glosses:        e.Glosses,
		Priority:       e.Priority,
		CreatedAt:      e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:      e.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/lexicon and returns all entries.
func (h *LexiconHandler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Lexicon().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list lexicon")
		return
	}

	response := listEntriesResponse{
		Entries: make([]entryResponse, 0, len(entries)),
	}

	for _, e := range entries {
		response.Entries = append(response.Entries, toResponse(e))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/lexicon/{id} and returns a single entry.
func (h *LexiconHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	entry, err := h.store.Lexicon().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get entry")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(entry))
}

// create handles POST /api/lexicon and creates a new entry.
func (h *LexiconHandler) create(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate required fields
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "Path is required")
		return
	}
	if req.Words == "" && req.Glosses == "" {
		writeError(w, http.StatusBadRequest, "Words or glosses are required")
		return
	}
	if req.SpokenLanguage == "" || req.SignedLanguage == "" {
		writeError(w, http.StatusBadRequest, "Spoken and signed languages are required")
		return
	}
	if req.Start < 0 || (req.End != 0 && req.End < req.Start) {
		writeError(w, http.StatusBadRequest, "Invalid segment")
		return
	}

	entry := &store.LexiconEntry{
		ID:             uuid.New().String(),
		Path:           req.Path,
		SpokenLanguage: req.SpokenLanguage,
		SignedLanguage: req.SignedLanguage,
		StartMS:        req.Start,
		EndMS:          req.End,
		Words:          lookup.StandardizeWord(req.Words),
		Glosses:        strings.ToUpper(req.Glosses),
	}
	if req.Priority != nil {
		entry.Priority = *req.Priority
	}

	if err := h.store.Lexicon().Create(entry); err != nil {
		writeError(w, http.StatusConflict, "Failed to create entry")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(entry))
}

// update handles PUT /api/lexicon/{id} and updates an existing entry.
func (h *LexiconHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	entry, err := h.store.Lexicon().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get entry")
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Update fields if provided
	if req.Path != "" {
		entry.Path = req.Path
	}
	if req.SpokenLanguage != "" {
		entry.SpokenLanguage = req.SpokenLanguage
	}
	if req.SignedLanguage != "" {
		entry.SignedLanguage = req.SignedLanguage
	}
	if req.Words != "" {
		entry.Words = lookup.StandardizeWord(req.Words)
	}
	if req.Glosses != "" {
		entry.Glosses = strings.ToUpper(req.Glosses)
	}
	if req.Start != 0 {
		entry.StartMS = req.Start
	}
	if req.End != 0 {
		entry.EndMS = req.End
	}
	if req.Priority != nil {
		entry.Priority = *req.Priority
	}
	if entry.EndMS != 0 && entry.EndMS < entry.StartMS {
		writeError(w, http.StatusBadRequest, "Invalid segment")
		return
	}

	if err := h.store.Lexicon().Update(entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update entry")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(entry))
}

// delete handles DELETE /api/lexicon/{id} and removes an entry.
func (h *LexiconHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Lexicon().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete entry")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
