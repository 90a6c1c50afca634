package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/port"
	"go.uber.org/zap"
)

type Extractor struct {
	fps    int
	format string
	logger *zap.Logger
}

func NewExtractor(fps int, format string, logger *zap.Logger) *Extractor {
	return &Extractor{fps: fps, format: format, logger: logger}
}

func (e *Extractor) ExtractFrames(ctx context.Context, videoPath string, outputDir string) (*port.FrameExtractionResult, error) {
	probe, err := e.Probe(ctx, videoPath)
	if err != nil {
		e.logger.Warn("could not probe video", zap.Error(err))
		probe = &port.VideoProbe{}
	}

	framePattern := filepath.Join(outputDir, fmt.Sprintf("frame_%%04d.%s", e.format))
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", e.fps),
		"-y",
		framePattern,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, string(output))
	}

	globPattern := filepath.Join(outputDir, fmt.Sprintf("*.%s", e.format))
	frames, err := filepath.Glob(globPattern)
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from video")
	}

	e.logger.Info("frames extracted",
		zap.Int("count", len(frames)),
		zap.Float64("video_duration", probe.DurationSecs),
	)

	return &port.FrameExtractionResult{
		FramePaths:   frames,
		FrameCount:   len(frames),
		DurationSecs: probe.DurationSecs,
	}, nil
}

// ExtractFrame pulls the single sampled frame frameIndex (zero-based, at
// the extractor's fps) out of the video. ffmpeg reports success but writes
// nothing when the select filter matches no frame, which is how an
// out-of-range index shows up.
func (e *Extractor) ExtractFrame(ctx context.Context, videoPath string, frameIndex int, destPath string) error {
	sampled := fmt.Sprintf("fps=%d,select=eq(n\\,%d)", e.fps, frameIndex)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vf", sampled,
		"-vframes", "1",
		"-y",
		destPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg error: %w, output: %s", err, string(output))
	}

	info, err := os.Stat(destPath)
	if err != nil || info.Size() == 0 {
		return port.ErrFrameOutOfRange
	}
	return nil
}

func (e *Extractor) Probe(ctx context.Context, videoPath string) (*port.VideoProbe, error) {
	duration, err := e.probeValue(ctx, videoPath, "format=duration")
	if err != nil {
		return nil, err
	}
	durationSecs, err := strconv.ParseFloat(duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parse duration: %w", err)
	}

	dims, err := e.probeValue(ctx, videoPath, "stream=width,height")
	if err != nil {
		return nil, err
	}
	var width, height int
	if _, err := fmt.Sscanf(dims, "%d\n%d", &width, &height); err != nil {
		return nil, fmt.Errorf("parse dimensions %q: %w", dims, err)
	}

	// Frame count at the sampling fps, not the container frame rate.
	frameCount := int(math.Ceil(durationSecs * float64(e.fps)))

	return &port.VideoProbe{
		DurationSecs: durationSecs,
		FrameCount:   frameCount,
		FPS:          e.fps,
		Width:        width,
		Height:       height,
	}, nil
}

func (e *Extractor) probeValue(ctx context.Context, videoPath, entries string) (string, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", entries,
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("ffprobe: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
