package entity

// RenderOptions selects what the frame API should include in a payload.
// The harness always requests IncludeOriginal and Compress; IncludeOverlay
// mirrors the selector's overlay flag.
type RenderOptions struct {
	IncludeOriginal bool
	IncludeOverlay  bool
	IncludeMesh     bool
	Compress        bool
}

// MeshData is the raw mesh geometry passed through from the pose track
// when the caller asks for it. It is never rasterized server-side.
type MeshData struct {
	Vertices [][3]float64 `json:"vertices"`
	Faces    [][3]int     `json:"faces"`
}

// FramePayload is the frame API response body. Original and Overlay are
// base64-encoded PNG images.
type FramePayload struct {
	VideoID          string     `json:"videoId"`
	FrameIndex       int        `json:"frameIndex"`
	Width            int        `json:"width"`
	Height           int        `json:"height"`
	Original         string     `json:"original,omitempty"`
	Overlay          string     `json:"overlay,omitempty"`
	OverlayAvailable bool       `json:"overlayAvailable"`
	Mesh             *MeshData  `json:"mesh,omitempty"`
	Keypoints        []Keypoint `json:"keypoints,omitempty"`
	ProcessingTimeMs float64    `json:"processingTimeMs"`
}
