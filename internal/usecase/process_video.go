package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
	"github.com/benstrumeyer/snowex-frame-service/internal/domain/port"
	"github.com/benstrumeyer/snowex-frame-service/internal/infra/metrics"
)

// ProcessVideoUseCase runs the full pose-analysis pipeline for one video:
// download the source, sample frames with ffmpeg, run pose detection on
// each frame, and publish the assembled track back to storage.
type ProcessVideoUseCase struct {
	jobs      port.JobRepository
	videos    port.VideoRepository
	storage   port.VideoStorage
	extractor port.FrameExtractor
	detector  port.PoseDetector
	zipper    port.Zipper
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	fps       int
	maxRetry  int
}

type ProcessVideoConfig struct {
	TempDir    string
	FPS        int
	MaxRetries int
}

func NewProcessVideoUseCase(
	jobs port.JobRepository,
	videos port.VideoRepository,
	storage port.VideoStorage,
	extractor port.FrameExtractor,
	detector port.PoseDetector,
	zipper port.Zipper,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		jobs:      jobs,
		videos:    videos,
		storage:   storage,
		extractor: extractor,
		detector:  detector,
		zipper:    zipper,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		fps:       cfg.FPS,
		maxRetry:  cfg.MaxRetries,
	}
}

func (uc *ProcessVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.VideoProcessingMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_id", msg.VideoID),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_id", msg.VideoID))

	job, err := uc.jobs.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.VideoID, msg.VideoKey, msg.FileSize, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.jobs.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.processPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *ProcessVideoUseCase) processPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoProcessingMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from MinIO
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input.mp4")
	if err := uc.storage.DownloadVideo(ctx2, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	probe, err := uc.extractor.Probe(ctx, videoPath)
	if err != nil {
		log.Error("ffprobe failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "probe_video: "+err.Error(), log)
	}

	// Extract frames with FFmpeg
	exStart := time.Now()
	ctx3, spanEx := tracer.Start(ctx, "extract_frames")
	framesDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		spanEx.End()
		return fmt.Errorf("create frames dir: %w", err)
	}
	result, err := uc.extractor.ExtractFrames(ctx3, videoPath, framesDir)
	if err != nil {
		spanEx.End()
		log.Error("frame extraction failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "extract_frames: "+err.Error(), log)
	}
	spanEx.End()
	metrics.JobProcessingDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())

	// Run pose detection on every sampled frame, in extraction order.
	poseStart := time.Now()
	ctx4, spanPose := tracer.Start(ctx, "detect_poses")
	track, framePaths, err := uc.detectPoses(ctx4, msg.VideoID, result, workDir, log)
	if err != nil {
		spanPose.End()
		log.Error("pose detection failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "detect_poses: "+err.Error(), log)
	}
	spanPose.End()
	metrics.JobProcessingDuration.WithLabelValues("detect").Observe(time.Since(poseStart).Seconds())
	metrics.FramesAnalyzedTotal.Add(float64(len(track.Frames)))

	// Upload the assembled track JSON
	trackKey := fmt.Sprintf("%s/track.json", msg.VideoID)
	trackData, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("marshal track: %w", err)
	}
	ctx5, spanTrack := tracer.Start(ctx, "upload_track")
	if err := uc.storage.UploadTrack(ctx5, trackKey, trackData); err != nil {
		spanTrack.End()
		log.Error("track upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_track: "+err.Error(), log)
	}
	spanTrack.End()

	// Bundle the per-frame JSONs and upload the ZIP
	upStart := time.Now()
	ctx6, spanUp := tracer.Start(ctx, "upload_bundle")
	bundleKey := fmt.Sprintf("%s/poses_%s.zip", msg.VideoID, job.ID.String())
	zipPath := filepath.Join(workDir, "poses.zip")
	if err := uc.zipper.CreateZip(ctx6, framePaths, zipPath); err != nil {
		spanUp.End()
		log.Error("zip creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_zip: "+err.Error(), log)
	}
	zipFile, err := os.Open(zipPath)
	if err != nil {
		spanUp.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "open_zip: "+err.Error(), log)
	}
	zipStat, _ := zipFile.Stat()
	if err := uc.storage.UploadBundle(ctx6, bundleKey, zipFile, zipStat.Size()); err != nil {
		zipFile.Close()
		spanUp.End()
		log.Error("bundle upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_bundle: "+err.Error(), log)
	}
	zipFile.Close()
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	// Catalog the video so the frame API can serve it with overlays.
	video, err := uc.videos.FindByVideoID(ctx, msg.VideoID)
	if err != nil {
		video = entity.NewVideo(msg.VideoID, msg.Title, msg.VideoKey)
	}
	video.MarkProcessed(trackKey, len(track.Frames), uc.fps, probe.DurationSecs, probe.Width, probe.Height)
	if err := uc.videos.Upsert(ctx, video); err != nil {
		log.Error("failed to catalog video", zap.Error(err))
		return fmt.Errorf("upsert video: %w", err)
	}

	// Mark completed
	job.MarkCompleted(trackKey, bundleKey, len(track.Frames), probe.DurationSecs)
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("frame_count", len(track.Frames)),
		zap.Float64("duration_secs", probe.DurationSecs),
		zap.String("track_key", trackKey),
	)

	return nil
}

// detectPoses runs the detector over each extracted frame image and builds
// the track. A per-frame detection failure is recorded in the track rather
// than failing the job; only transport-level errors abort. The returned
// paths are the per-frame JSON files written under workDir.
func (uc *ProcessVideoUseCase) detectPoses(
	ctx context.Context,
	videoID string,
	result *port.FrameExtractionResult,
	workDir string,
	log *zap.Logger,
) (*entity.PoseTrack, []string, error) {
	paths := append([]string(nil), result.FramePaths...)
	sort.Strings(paths)

	posesDir := filepath.Join(workDir, "poses")
	if err := os.MkdirAll(posesDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create poses dir: %w", err)
	}

	track := &entity.PoseTrack{
		VideoID: videoID,
		FPS:     uc.fps,
		Frames:  make([]entity.PoseFrame, 0, len(paths)),
	}

	jsonPaths := make([]string, 0, len(paths))
	for i, framePath := range paths {
		imageData, err := os.ReadFile(framePath)
		if err != nil {
			return nil, nil, fmt.Errorf("read frame %d: %w", i, err)
		}

		pose, err := uc.detector.DetectPose(ctx, imageData, i)
		if err != nil {
			return nil, nil, fmt.Errorf("detect frame %d: %w", i, err)
		}
		if pose.Error != "" {
			log.Warn("no pose for frame", zap.Int("frame", i), zap.String("reason", pose.Error))
		}
		track.Frames = append(track.Frames, *pose)

		jsonPath := filepath.Join(posesDir, fmt.Sprintf("pose_%04d.json", i))
		data, err := json.Marshal(pose)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal frame %d: %w", i, err)
		}
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			return nil, nil, fmt.Errorf("write frame json %d: %w", i, err)
		}
		jsonPaths = append(jsonPaths, jsonPath)
	}

	track.ModelVersion = uc.detector.ModelVersion()
	return track, jsonPaths, nil
}

func (uc *ProcessVideoUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoProcessingMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.jobs.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessVideoUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoProcessingMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.jobs.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *ProcessVideoUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.VideoStatusMessage{
		JobID:        job.ID,
		VideoID:      job.VideoID,
		Status:       job.Status,
		VideoKey:     job.VideoKey,
		TrackKey:     job.TrackKey,
		BundleKey:    job.BundleKey,
		FrameCount:   job.FrameCount,
		Duration:     job.Duration,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
