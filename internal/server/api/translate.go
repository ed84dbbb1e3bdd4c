package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ayusman/islpose/internal/anonymize"
	"github.com/ayusman/islpose/internal/assemble"
	"github.com/ayusman/islpose/internal/lookup"
	"github.com/ayusman/islpose/internal/pose"
)

// PoseContentType is the media type of binary .pose bodies.
const PoseContentType = "application/x-pose"

// MaxRequestBytes caps a translate request, including an inline reference pose.
const MaxRequestBytes = 64 << 20

// Translator assembles gloss sequences into poses.
type Translator interface {
	GlossToPose(ctx context.Context, req assemble.Request) (*pose.Pose, error)
}

// Defaults fill translate request fields the client leaves empty.
type Defaults struct {
	SpokenLanguage    string
	SignedLanguage    string
	EnableExpressions bool
}

// TranslateRequest is the JSON body of a translation.
type TranslateRequest struct {
	Glosses        []string `json:"glosses"`
	SpokenLanguage string   `json:"spoken_language"`
	SignedLanguage string   `json:"signed_language"`
	Source         string   `json:"source"`
	// Anonymize is "", "none", "remove" or "transfer".
	Anonymize string `json:"anonymize"`
	// Reference is an encoded .pose for appearance transfer.
	Reference   []byte `json:"reference,omitempty"`
	Expressions *bool  `json:"expressions,omitempty"`
}

// ParseGlosses splits a query value like "HELLO WORLD" or "HELLO,WORLD".
func ParseGlosses(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
}

// Build converts the request into an assembler request.
func (t TranslateRequest) Build(d Defaults) (assemble.Request, error) {
	mode, err := assemble.ParseAnonymizeMode(t.Anonymize)
	if err != nil {
		return assemble.Request{}, err
	}

	req := assemble.Request{
		Glosses:           t.Glosses,
		SpokenLanguage:    t.SpokenLanguage,
		SignedLanguage:    t.SignedLanguage,
		Source:            t.Source,
		Anonymize:         mode,
		EnableExpressions: d.EnableExpressions,
	}
	if req.SpokenLanguage == "" {
		req.SpokenLanguage = d.SpokenLanguage
	}
	if req.SignedLanguage == "" {
		req.SignedLanguage = d.SignedLanguage
	}
	if t.Expressions != nil {
		req.EnableExpressions = *t.Expressions
	}
	if len(t.Reference) > 0 {
		ref, err := pose.Read(bytes.NewReader(t.Reference))
		if err != nil {
			return assemble.Request{}, fmt.Errorf("invalid reference pose: %w", err)
		}
		req.Reference = ref
	}
	return req, nil
}

// TranslateHandler serves POST /api/translate. The response body is the
// assembled pose in .pose format.
type TranslateHandler struct {
	translator Translator
	defaults   Defaults
	maxBytes   int64
}

// NewTranslateHandler creates a new TranslateHandler.
func NewTranslateHandler(t Translator, d Defaults) *TranslateHandler {
	return &TranslateHandler{translator: t, defaults: d, maxBytes: MaxRequestBytes}
}

// ServeHTTP implements the http.Handler interface.
func (h *TranslateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var body TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req, err := body.Build(h.defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.translator.GlossToPose(r.Context(), req)
	if err != nil {
		WriteTranslateError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode pose")
		return
	}

	w.Header().Set("Content-Type", PoseContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="translation.pose"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// TranslateStatus maps assembler errors to HTTP status codes.
func TranslateStatus(err error) int {
	switch {
	case errors.Is(err, assemble.ErrEmptyGlosses), errors.Is(err, assemble.ErrMissingReference):
		return http.StatusBadRequest
	case errors.Is(err, lookup.ErrLookupMiss):
		return http.StatusNotFound
	case errors.Is(err, pose.ErrStructuralMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, anonymize.ErrOptionalDependencyMissing):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteTranslateError writes err with the status TranslateStatus picks.
func WriteTranslateError(w http.ResponseWriter, err error) {
	status := TranslateStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("translate failed: %v", err)
		writeError(w, status, "Translation failed")
		return
	}
	writeError(w, status, err.Error())
}
