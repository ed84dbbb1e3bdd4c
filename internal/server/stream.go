package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/islpose/internal/render"
	"github.com/ayusman/islpose/internal/server/api"
)

// StreamHandler serves a translation as MJPEG frames at the pose frame rate.
// Glosses come from the "glosses" query parameter.
type StreamHandler struct {
	translator api.Translator
	renderer   *render.Renderer
	defaults   api.Defaults
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(t api.Translator, r *render.Renderer, d api.Defaults) *StreamHandler {
	return &StreamHandler{translator: t, renderer: r, defaults: d}
}

// ServeHTTP renders every frame and streams it as a JPEG part.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := queryRequest(r).Build(h.defaults)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.translator.GlossToPose(r.Context(), req)
	if err != nil {
		api.WriteTranslateError(w, err)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	interval := frameInterval(p.Body.FPS)
	sent := 0
	err = h.renderer.DrawAll(p, func(frame int, img *gocv.Mat) error {
		select {
		case <-r.Context().Done():
			return r.Context().Err()
		default:
		}

		buf, err := gocv.IMEncode(".jpg", *img)
		if err != nil {
			return err
		}
		defer buf.Close()

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		sent++
		time.Sleep(interval)
		return nil
	})
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case sent == 0:
		log.Printf("stream render failed: %v", err)
		http.Error(w, "Failed to render pose", http.StatusInternalServerError)
	default:
		log.Printf("stream render failed after %d frames: %v", sent, err)
	}
}

// queryRequest reads a translation from URL query parameters.
func queryRequest(r *http.Request) api.TranslateRequest {
	q := r.URL.Query()
	return api.TranslateRequest{
		Glosses:        api.ParseGlosses(q.Get("glosses")),
		SpokenLanguage: q.Get("spoken_language"),
		SignedLanguage: q.Get("signed_language"),
		Source:         q.Get("source"),
		Anonymize:      q.Get("anonymize"),
	}
}

// frameInterval returns the delay between frames at fps, defaulting to
// 25 fps for a missing rate.
func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 25
	}
	return time.Duration(float64(time.Second) / fps)
}
