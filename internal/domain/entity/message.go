package entity

import "github.com/google/uuid"

// VideoProcessingMessage is the inbound message from the pose.processing queue.
type VideoProcessingMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	VideoID   string    `json:"video_id"`
	Title     string    `json:"title,omitempty"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email,omitempty"`
}

// VideoStatusMessage is the outbound message published to the pose.status queue.
type VideoStatusMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	VideoID      string    `json:"video_id"`
	Status       JobStatus `json:"status"`
	VideoKey     string    `json:"video_key"`
	TrackKey     string    `json:"track_key,omitempty"`
	BundleKey    string    `json:"bundle_key,omitempty"`
	FrameCount   int       `json:"frame_count,omitempty"`
	Duration     float64   `json:"duration_seconds,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
