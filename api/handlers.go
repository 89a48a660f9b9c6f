// Package api exposes the live frame, detection and identity state
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rhaslani/Birdieo-v2/detect"
	"github.com/rhaslani/Birdieo-v2/frame"
	"github.com/rhaslani/Birdieo-v2/overlay"
	"github.com/rhaslani/Birdieo-v2/track"
)

const (
	mjpegNoFrameDelay     = 50 * time.Millisecond
	mjpegEncodeRetryDelay = 20 * time.Millisecond
)

// Handler serves the streaming endpoints. All state lives in the frame
// store and the tracker; handlers never block each other beyond their
// short critical sections.
type Handler struct {
	store   *frame.Store
	tracker *track.Tracker
	oracle  detect.Oracle
	render  *overlay.Renderer
	log     *zap.Logger

	quality int
	source  string
}

func NewHandler(store *frame.Store, tracker *track.Tracker, oracle detect.Oracle, render *overlay.Renderer, log *zap.Logger, quality int, source string) *Handler {
	return &Handler{
		store:   store,
		tracker: tracker,
		oracle:  oracle,
		render:  render,
		log:     log.Named("api"),
		quality: quality,
		source:  source,
	}
}

// Routes builds the router. MJPEG is long-lived, so no write timeout is
// set here; the server config must leave it unset too.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/stream", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/frame", h.handleFrame)
		r.Get("/mjpeg", h.handleMJPEG)
		r.Get("/frame-with-detection", h.handleFrameWithDetection)
		r.Get("/analyze", h.handleAnalyze)
		r.Get("/persons", h.handlePersons)
	})
	return r
}

type healthResponse struct {
	OK         bool     `json:"ok"`
	AgeSeconds *float64 `json:"age_seconds"`
	Source     string   `json:"source"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Source: h.source}
	if age, ok := h.store.Age(time.Now()); ok {
		secs := age.Seconds()
		resp.OK = true
		resp.AgeSeconds = &secs
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleFrame(w http.ResponseWriter, r *http.Request) {
	img, _, ok := h.store.Snapshot()
	if !ok {
		http.Error(w, "no frame available yet", http.StatusServiceUnavailable)
		return
	}
	defer img.Close()

	data, err := frame.EncodeJPEG(img, h.quality)
	if err != nil {
		h.log.Error("frame encode failed", zap.Error(err))
		http.Error(w, "failed to encode frame", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write(data)
}

// handleMJPEG streams one multipart JPEG part per newly published
// frame. A frame already sent is never repeated; the loop idles briefly
// until the store holds a newer one.
func (h *Handler) handleMJPEG(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	ctx := r.Context()
	var last time.Time
	for {
		img, ts, ok := h.store.Snapshot()
		if !ok || !ts.After(last) {
			if ok {
				img.Close()
			}
			if !sleepCtx(ctx, mjpegNoFrameDelay) {
				return
			}
			continue
		}

		data, err := frame.EncodeJPEG(img, h.quality)
		img.Close()
		if err != nil {
			h.log.Warn("mjpeg encode failed", zap.Error(err))
			if !sleepCtx(ctx, mjpegEncodeRetryDelay) {
				return
			}
			continue
		}
		last = ts

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}

// handleFrameWithDetection returns the latest frame annotated with
// tracked identities. A failed detection call degrades to the plain
// frame rather than an error; the client always gets an image when one
// exists.
func (h *Handler) handleFrameWithDetection(w http.ResponseWriter, r *http.Request) {
	img, _, ok := h.store.Snapshot()
	if !ok {
		http.Error(w, "no frame available yet", http.StatusServiceUnavailable)
		return
	}
	defer img.Close()

	data, err := frame.EncodeJPEG(img, h.quality)
	if err != nil {
		h.log.Error("frame encode failed", zap.Error(err))
		http.Error(w, "failed to encode frame", http.StatusInternalServerError)
		return
	}

	dets, err := h.oracle.Detect(r.Context(), data, img.Cols(), img.Rows())
	if err != nil {
		h.log.Warn("detection failed, serving plain frame", zap.Error(err))
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Write(data)
		return
	}

	ids := h.tracker.Resolve(detect.Sanitize(dets, img.Cols(), img.Rows()), time.Now())

	annotated := h.render.Annotate(img, ids)
	defer annotated.Close()

	out, err := frame.EncodeJPEG(annotated, h.quality)
	if err != nil {
		h.log.Error("annotated encode failed", zap.Error(err))
		http.Error(w, "failed to encode frame", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write(out)
}

type pointJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type personJSON struct {
	PersonID    string     `json:"person_id"`
	Label       string     `json:"label"`
	Confidence  float64    `json:"confidence"`
	Box         detect.Box `json:"box"`
	CenterPoint pointJSON  `json:"center_point"`
}

type analyzeResponse struct {
	OK        bool         `json:"ok"`
	Reason    string       `json:"reason,omitempty"`
	Persons   []personJSON `json:"persons"`
	Count     int          `json:"count"`
	Width     int          `json:"width,omitempty"`
	Height    int          `json:"height,omitempty"`
	Timestamp string       `json:"ts,omitempty"`
}

// handleAnalyze runs detection on the latest frame and returns the
// resolved identities as JSON. A failed oracle call is a degraded
// success: the frame was analyzed, it just yielded nothing.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	img, ts, ok := h.store.Snapshot()
	if !ok {
		writeJSON(w, http.StatusOK, analyzeResponse{OK: false, Reason: "no frame yet", Persons: []personJSON{}})
		return
	}
	defer img.Close()

	width, height := img.Cols(), img.Rows()

	data, err := frame.EncodeJPEG(img, h.quality)
	if err != nil {
		h.log.Error("frame encode failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, analyzeResponse{OK: false, Reason: "failed to encode frame", Persons: []personJSON{}})
		return
	}

	var ids []track.Identity
	dets, err := h.oracle.Detect(r.Context(), data, width, height)
	if err != nil {
		h.log.Warn("detection failed, reporting empty result", zap.Error(err))
	} else {
		ids = h.tracker.Resolve(detect.Sanitize(dets, width, height), time.Now())
	}

	persons := make([]personJSON, 0, len(ids))
	for _, id := range ids {
		persons = append(persons, personJSON{
			PersonID:    id.ID,
			Label:       id.Label,
			Confidence:  id.Confidence,
			Box:         id.Box,
			CenterPoint: pointJSON{X: id.Center.X, Y: id.Center.Y},
		})
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		OK:        true,
		Persons:   persons,
		Count:     len(persons),
		Width:     width,
		Height:    height,
		Timestamp: ts.UTC().Format(time.RFC3339),
	})
}

type activePersonJSON struct {
	PersonID        string     `json:"person_id"`
	Label           string     `json:"label"`
	Confidence      float64    `json:"confidence"`
	Box             detect.Box `json:"box"`
	CenterPoint     pointJSON  `json:"center_point"`
	FirstSeen       string     `json:"first_seen"`
	LastSeen        string     `json:"last_seen"`
	DurationSeconds float64    `json:"duration_seconds"`
	DetectionCount  int        `json:"detection_count"`
}

type personsResponse struct {
	Persons      []activePersonJSON `json:"persons"`
	Count        int                `json:"count"`
	TotalTracked int                `json:"total_tracked"`
}

func (h *Handler) handlePersons(w http.ResponseWriter, r *http.Request) {
	active := h.tracker.Active(time.Now())
	persons := make([]activePersonJSON, 0, len(active))
	for _, id := range active {
		persons = append(persons, activePersonJSON{
			PersonID:        id.ID,
			Label:           id.Label,
			Confidence:      id.Confidence,
			Box:             id.Box,
			CenterPoint:     pointJSON{X: id.Center.X, Y: id.Center.Y},
			FirstSeen:       id.FirstSeen.UTC().Format(time.RFC3339),
			LastSeen:        id.LastSeen.UTC().Format(time.RFC3339),
			DurationSeconds: id.Duration().Seconds(),
			DetectionCount:  id.DetectionCount,
		})
	}
	writeJSON(w, http.StatusOK, personsResponse{
		Persons:      persons,
		Count:        len(persons),
		TotalTracked: h.tracker.TotalTracked(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
