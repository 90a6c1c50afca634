// Package api exposes the frame service's HTTP surface: the video catalog
// and single-frame rendering.
package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
	"github.com/benstrumeyer/snowex-frame-service/internal/domain/port"
	"github.com/benstrumeyer/snowex-frame-service/internal/infra/metrics"
)

// FrameRenderer renders one frame of a cataloged video.
type FrameRenderer interface {
	Execute(ctx context.Context, videoID string, frameIndex int, opts entity.RenderOptions) (*entity.FramePayload, error)
}

type Handler struct {
	renderer FrameRenderer
	videos   port.VideoRepository
	logger   *zap.Logger
}

func NewHandler(renderer FrameRenderer, videos port.VideoRepository, logger *zap.Logger) *Handler {
	return &Handler{renderer: renderer, videos: videos, logger: logger}
}

// Register wires the API routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/videos", h.listVideos)
	mux.HandleFunc("GET /api/video/{videoId}/frame/{frameIndex}", h.getFrame)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

type videoSummary struct {
	VideoID      string  `json:"videoId"`
	Title        string  `json:"title,omitempty"`
	FrameCount   int     `json:"frameCount"`
	FPS          int     `json:"fps"`
	DurationSecs float64 `json:"durationSeconds"`
	HasTrack     bool    `json:"hasTrack"`
}

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videos.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list videos", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	out := make([]videoSummary, 0, len(videos))
	for _, v := range videos {
		out = append(out, videoSummary{
			VideoID:      v.VideoID,
			Title:        v.Title,
			FrameCount:   v.FrameCount,
			FPS:          v.FPS,
			DurationSecs: v.DurationSecs,
			HasTrack:     v.HasTrack(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"videos": out})
}

func (h *Handler) getFrame(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	videoID := r.PathValue("videoId")

	frameIndex, err := strconv.Atoi(r.PathValue("frameIndex"))
	if err != nil || frameIndex < 0 {
		metrics.FrameRequestsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "frameIndex must be a non-negative integer")
		return
	}

	q := r.URL.Query()
	opts := entity.RenderOptions{
		IncludeOriginal: boolParam(q.Get("includeOriginal"), true),
		IncludeOverlay:  boolParam(q.Get("includeOverlay"), false),
		IncludeMesh:     boolParam(q.Get("includeMesh"), false),
		Compress:        boolParam(q.Get("compress"), false),
	}

	payload, err := h.renderer.Execute(r.Context(), videoID, frameIndex, opts)
	switch {
	case errors.Is(err, port.ErrVideoNotFound):
		metrics.FrameRequestsTotal.WithLabelValues("not_found").Inc()
		writeError(w, http.StatusNotFound, "video not found")
		return
	case errors.Is(err, port.ErrFrameOutOfRange):
		metrics.FrameRequestsTotal.WithLabelValues("not_found").Inc()
		writeError(w, http.StatusNotFound, "frame index out of range")
		return
	case err != nil:
		metrics.FrameRequestsTotal.WithLabelValues("error").Inc()
		h.logger.Error("frame render failed",
			zap.String("video_id", videoID),
			zap.Int("frame_index", frameIndex),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "frame render failed")
		return
	}

	metrics.FrameRequestsTotal.WithLabelValues("ok").Inc()

	w.Header().Set("Content-Type", "application/json")
	if opts.Compress {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		json.NewEncoder(gz).Encode(payload)
	} else {
		json.NewEncoder(w).Encode(payload)
	}

	h.logger.Debug("frame served",
		zap.String("video_id", videoID),
		zap.Int("frame_index", frameIndex),
		zap.Bool("overlay", opts.IncludeOverlay),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// boolParam parses a query flag, falling back when the flag is absent.
func boolParam(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
