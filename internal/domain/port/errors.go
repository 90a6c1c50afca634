package port

import "errors"

var (
	ErrVideoNotFound   = errors.New("video not found")
	ErrTrackNotFound   = errors.New("pose track not found")
	ErrFrameOutOfRange = errors.New("frame index out of range")
)
