package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/islpose/internal/pose"
	"github.com/ayusman/islpose/internal/render"
	"github.com/ayusman/islpose/internal/server/api"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// PlaybackHandler streams the drawable geometry of a translation over a
// WebSocket. The client sends one TranslateRequest as JSON and receives one
// FrameMessage per frame at the pose frame rate, then a final message with
// Done set.
type PlaybackHandler struct {
	translator api.Translator
	renderer   *render.Renderer
	defaults   api.Defaults
}

// NewPlaybackHandler creates a new PlaybackHandler.
func NewPlaybackHandler(t api.Translator, r *render.Renderer, d api.Defaults) *PlaybackHandler {
	return &PlaybackHandler{translator: t, renderer: r, defaults: d}
}

// Line is a drawable edge as x1, y1, x2, y2.
type Line [4]int

// FrameMessage is one playback message.
type FrameMessage struct {
	Frame  int      `json:"frame"`
	Frames int      `json:"frames"`
	FPS    float64  `json:"fps"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Limbs  []Line   `json:"limbs,omitempty"`
	Joints [][2]int `json:"joints,omitempty"`
	Face   []Line   `json:"face,omitempty"`
	Done   bool     `json:"done,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *PlaybackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(api.MaxRequestBytes)

	var body api.TranslateRequest
	if err := conn.ReadJSON(&body); err != nil {
		conn.WriteJSON(FrameMessage{Error: "invalid request"})
		return
	}

	req, err := body.Build(h.defaults)
	if err != nil {
		conn.WriteJSON(FrameMessage{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client closing the socket stops playback
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	p, err := h.translator.GlossToPose(ctx, req)
	if err != nil {
		conn.WriteJSON(FrameMessage{Error: err.Error()})
		return
	}

	h.play(ctx, conn, p)
}

// play sends every frame of p, paced by the pose frame rate.
func (h *PlaybackHandler) play(ctx context.Context, conn *websocket.Conn, p *pose.Pose) {
	ticker := time.NewTicker(frameInterval(p.Body.FPS))
	defer ticker.Stop()

	frames := p.Body.Frames()
	for f := 0; f < frames; f++ {
		msg, _ := json.Marshal(h.frameMessage(p, f))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	conn.WriteJSON(FrameMessage{Frames: frames, FPS: p.Body.FPS, Done: true})
}

// frameMessage collects the geometry the renderer would draw for frame.
func (h *PlaybackHandler) frameMessage(p *pose.Pose, frame int) FrameMessage {
	msg := FrameMessage{
		Frame:  frame,
		Frames: p.Body.Frames(),
		FPS:    p.Body.FPS,
		Width:  p.Header.Dimensions.Width,
		Height: p.Header.Dimensions.Height,
	}
	for _, s := range h.renderer.Segments(p, frame) {
		msg.Limbs = append(msg.Limbs, toLine(s))
	}
	for _, j := range h.renderer.Points(p, frame) {
		msg.Joints = append(msg.Joints, [2]int{j.At.X, j.At.Y})
	}
	for _, s := range h.renderer.FaceSegments(p, frame) {
		msg.Face = append(msg.Face, toLine(s))
	}
	return msg
}

func toLine(s render.Segment) Line {
	return Line{s.From.X, s.From.Y, s.To.X, s.To.Y}
}
