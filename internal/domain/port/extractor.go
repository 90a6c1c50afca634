package port

import "context"

// VideoProbe describes the source video as reported by ffprobe.
type VideoProbe struct {
	DurationSecs float64
	FrameCount   int
	FPS          int
	Width        int
	Height       int
}

type FrameExtractionResult struct {
	FramePaths   []string
	FrameCount   int
	DurationSecs float64
}

type FrameExtractor interface {
	// ExtractFrames writes every sampled frame of the video to outputDir.
	ExtractFrames(ctx context.Context, videoPath string, outputDir string) (*FrameExtractionResult, error)
	// ExtractFrame writes the single frame with the given zero-based index
	// to destPath. Returns ErrFrameOutOfRange when the video has no such
	// frame.
	ExtractFrame(ctx context.Context, videoPath string, frameIndex int, destPath string) error
	Probe(ctx context.Context, videoPath string) (*VideoProbe, error)
}
