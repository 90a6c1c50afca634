package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
	"github.com/benstrumeyer/snowex-frame-service/internal/domain/port"
	"github.com/benstrumeyer/snowex-frame-service/internal/infra/metrics"
)

// RenderFrameUseCase serves single frames of cataloged videos, optionally
// composited with the stored pose overlay. Source videos are cached on
// local disk between requests so stepping frame-by-frame does not
// re-download the clip each time.
type RenderFrameUseCase struct {
	videos     port.VideoRepository
	storage    port.VideoStorage
	extractor  port.FrameExtractor
	compositor port.OverlayCompositor
	logger     *zap.Logger
	cacheDir   string

	mu     sync.Mutex
	tracks map[string]trackEntry
}

// trackEntry pins a cached track to the video's ProcessedAt stamp so a
// reprocessed video does not keep serving its old track.
type trackEntry struct {
	processedAt time.Time
	track       *entity.PoseTrack
}

func NewRenderFrameUseCase(
	videos port.VideoRepository,
	storage port.VideoStorage,
	extractor port.FrameExtractor,
	compositor port.OverlayCompositor,
	logger *zap.Logger,
	cacheDir string,
) *RenderFrameUseCase {
	return &RenderFrameUseCase{
		videos:     videos,
		storage:    storage,
		extractor:  extractor,
		compositor: compositor,
		logger:     logger,
		cacheDir:   cacheDir,
		tracks:     make(map[string]trackEntry),
	}
}

// Execute renders one frame. It returns port.ErrVideoNotFound for unknown
// videos and port.ErrFrameOutOfRange when frameIndex is past the end of
// the clip.
func (uc *RenderFrameUseCase) Execute(ctx context.Context, videoID string, frameIndex int, opts entity.RenderOptions) (*entity.FramePayload, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "RenderFrameUseCase.Execute")
	defer span.End()

	span.SetAttributes(
		attribute.String("video.id", videoID),
		attribute.Int("frame.index", frameIndex),
	)

	start := time.Now()

	video, err := uc.videos.FindByVideoID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.FrameCount > 0 && frameIndex >= video.FrameCount {
		return nil, port.ErrFrameOutOfRange
	}

	videoPath, err := uc.ensureCached(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("cache video: %w", err)
	}

	// A unique file per request; concurrent renders of the same frame must
	// not share (and then delete) each other's output.
	exStart := time.Now()
	tmp, err := os.CreateTemp(uc.cacheDir, "frame_*.png")
	if err != nil {
		return nil, fmt.Errorf("create frame file: %w", err)
	}
	framePath := tmp.Name()
	tmp.Close()
	defer os.Remove(framePath)
	if err := uc.extractor.ExtractFrame(ctx, videoPath, frameIndex, framePath); err != nil {
		return nil, err
	}
	metrics.FrameRenderDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())

	frameData, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	payload := &entity.FramePayload{
		VideoID:    video.VideoID,
		FrameIndex: frameIndex,
		Width:      video.Width,
		Height:     video.Height,
	}
	if opts.IncludeOriginal {
		payload.Original = base64.StdEncoding.EncodeToString(frameData)
	}

	if (opts.IncludeOverlay || opts.IncludeMesh) && video.HasTrack() {
		if err := uc.attachPose(ctx, video, frameIndex, frameData, opts, payload); err != nil {
			// Overlay failures degrade to the original frame; the clip is
			// still viewable without the skeleton.
			uc.logger.Warn("overlay unavailable",
				zap.String("video_id", video.VideoID),
				zap.Int("frame_index", frameIndex),
				zap.Error(err),
			)
		}
	}

	metrics.FrameRenderDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	payload.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000.0

	return payload, nil
}

// attachPose composites and attaches overlay data for the frame. The pose
// track is fetched from storage once per video and held in memory.
func (uc *RenderFrameUseCase) attachPose(
	ctx context.Context,
	video *entity.Video,
	frameIndex int,
	frameData []byte,
	opts entity.RenderOptions,
	payload *entity.FramePayload,
) error {
	track, err := uc.loadTrack(ctx, video)
	if err != nil {
		return err
	}

	pose := track.Frame(frameIndex)
	if pose == nil || pose.Error != "" {
		return nil
	}

	payload.OverlayAvailable = true
	payload.Keypoints = pose.Keypoints

	if opts.IncludeMesh && len(pose.MeshVertices) > 0 {
		payload.Mesh = &entity.MeshData{
			Vertices: pose.MeshVertices,
			Faces:    pose.MeshFaces,
		}
	}

	if !opts.IncludeOverlay {
		return nil
	}

	cmpStart := time.Now()
	frame, _, err := image.Decode(bytes.NewReader(frameData))
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	composited := uc.compositor.Composite(frame, pose)

	var buf bytes.Buffer
	if err := png.Encode(&buf, composited); err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}
	payload.Overlay = base64.StdEncoding.EncodeToString(buf.Bytes())
	metrics.FrameRenderDuration.WithLabelValues("composite").Observe(time.Since(cmpStart).Seconds())

	return nil
}

func (uc *RenderFrameUseCase) loadTrack(ctx context.Context, video *entity.Video) (*entity.PoseTrack, error) {
	var processedAt time.Time
	if video.ProcessedAt != nil {
		processedAt = *video.ProcessedAt
	}

	uc.mu.Lock()
	if entry, ok := uc.tracks[video.VideoID]; ok && entry.processedAt.Equal(processedAt) {
		uc.mu.Unlock()
		return entry.track, nil
	}
	uc.mu.Unlock()

	data, err := uc.storage.DownloadTrack(ctx, video.TrackKey)
	if err != nil {
		return nil, err
	}
	var track entity.PoseTrack
	if err := json.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("decode track: %w", err)
	}

	uc.mu.Lock()
	uc.tracks[video.VideoID] = trackEntry{processedAt: processedAt, track: &track}
	uc.mu.Unlock()
	return &track, nil
}

// ensureCached downloads the source video into the cache directory unless
// it is already there.
func (uc *RenderFrameUseCase) ensureCached(ctx context.Context, video *entity.Video) (string, error) {
	if err := os.MkdirAll(uc.cacheDir, 0755); err != nil {
		return "", err
	}
	videoPath := filepath.Join(uc.cacheDir, video.VideoID+".mp4")
	if _, err := os.Stat(videoPath); err == nil {
		return videoPath, nil
	}
	if err := uc.storage.DownloadVideo(ctx, video.VideoKey, videoPath); err != nil {
		return "", err
	}
	return videoPath, nil
}
