package entity

import "time"

// Video is a catalog entry for a clip that has been (or is being) analyzed.
// VideoID is the public identifier the frame API and harness address clips
// by; VideoKey is the object key of the source file in storage.
type Video struct {
	VideoID      string
	Title        string
	VideoKey     string
	TrackKey     string
	FrameCount   int
	FPS          int
	DurationSecs float64
	Width        int
	Height       int
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewVideo(videoID, title, videoKey string) *Video {
	now := time.Now().UTC()
	return &Video{
		VideoID:   videoID,
		Title:     title,
		VideoKey:  videoKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasTrack reports whether pose analysis has completed for this video.
func (v *Video) HasTrack() bool {
	return v.TrackKey != ""
}

func (v *Video) MarkProcessed(trackKey string, frameCount, fps int, duration float64, width, height int) {
	now := time.Now().UTC()
	v.TrackKey = trackKey
	v.FrameCount = frameCount
	v.FPS = fps
	v.DurationSecs = duration
	v.Width = width
	v.Height = height
	v.ProcessedAt = &now
	v.UpdatedAt = now
}
