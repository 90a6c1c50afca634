// Package selector holds the interactive frame-selection state behind the
// harness: which video, which frame, and whether the pose overlay is shown.
// Every mutation derives a render request and hands it to the registered
// subscriber, which is how the harness re-invokes the renderer.
package selector

import (
	"strconv"
	"strings"
)

const (
	DefaultVideoID = "test-video-1"
	RenderWidth    = 640
	RenderHeight   = 480
)

// SelectionState is the selector's local state. FrameIndex is always a
// non-negative integer.
type SelectionState struct {
	VideoID     string
	FrameIndex  int
	ShowOverlay bool
}

// RenderRequest is what the renderer collaborator is invoked with after
// every state change.
type RenderRequest struct {
	VideoID     string
	FrameIndex  int
	Width       int
	Height      int
	ShowOverlay bool
}

// FrameSelector owns one SelectionState. It is not safe for concurrent
// use; callers drive it from a single event loop, which is how the
// harness uses it (one selector per websocket read loop).
type FrameSelector struct {
	state    SelectionState
	onChange func(RenderRequest)
}

func New() *FrameSelector {
	return &FrameSelector{
		state: SelectionState{
			VideoID:     DefaultVideoID,
			FrameIndex:  0,
			ShowOverlay: true,
		},
	}
}

// OnChange registers the subscriber invoked after every mutation. Passing
// nil disables notification.
func (s *FrameSelector) OnChange(fn func(RenderRequest)) {
	s.onChange = fn
}

func (s *FrameSelector) State() SelectionState {
	return s.state
}

// Request derives the render request for the current state.
func (s *FrameSelector) Request() RenderRequest {
	return RenderRequest{
		VideoID:     s.state.VideoID,
		FrameIndex:  s.state.FrameIndex,
		Width:       RenderWidth,
		Height:      RenderHeight,
		ShowOverlay: s.state.ShowOverlay,
	}
}

// SetVideoID replaces the video identifier verbatim, empty string included.
func (s *FrameSelector) SetVideoID(text string) {
	s.state.VideoID = text
	s.notify()
}

// SetFrameIndex parses the raw field text and stores the clamped result.
func (s *FrameSelector) SetFrameIndex(raw string) {
	s.state.FrameIndex = ParseClampedIndex(raw)
	s.notify()
}

// DecrementFrame steps back one frame, flooring at zero.
func (s *FrameSelector) DecrementFrame() {
	if s.state.FrameIndex > 0 {
		s.state.FrameIndex--
	}
	s.notify()
}

// IncrementFrame steps forward one frame. There is no upper bound at this
// layer; out-of-range indexes are the renderer's problem.
func (s *FrameSelector) IncrementFrame() {
	s.state.FrameIndex++
	s.notify()
}

func (s *FrameSelector) SetShowOverlay(flag bool) {
	s.state.ShowOverlay = flag
	s.notify()
}

func (s *FrameSelector) notify() {
	if s.onChange != nil {
		s.onChange(s.Request())
	}
}

// ParseClampedIndex parses a frame-index field value. Non-numeric input
// yields 0; negative values clamp to 0.
func ParseClampedIndex(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
