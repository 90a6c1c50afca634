package entity

// Keypoint is a single detected skeletal landmark in frame pixel
// coordinates. Z is the depth estimate in the detector's normalized space;
// Confidence is the detector's visibility score in [0,1].
type Keypoint struct {
	Name       string  `json:"name"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Z          float64 `json:"z"`
	Confidence float64 `json:"confidence"`
}

// PoseFrame holds the detection result for one frame of a video.
type PoseFrame struct {
	FrameNumber      int          `json:"frame_number"`
	FrameWidth       int          `json:"frame_width"`
	FrameHeight      int          `json:"frame_height"`
	Keypoints        []Keypoint   `json:"keypoints"`
	MeshVertices     [][3]float64 `json:"mesh_vertices_data,omitempty"`
	MeshFaces        [][3]int     `json:"mesh_faces_data,omitempty"`
	ProcessingTimeMs float64      `json:"processing_time_ms"`
	Error            string       `json:"error,omitempty"`
}

// PoseTrack is the full analysis artifact for a video, stored as a single
// JSON object in the tracks bucket.
type PoseTrack struct {
	VideoID      string      `json:"video_id"`
	ModelVersion string      `json:"model_version"`
	FPS          int         `json:"fps"`
	Frames       []PoseFrame `json:"frames"`
}

// Frame returns the pose frame for the given frame number, or nil when the
// track has no detection for it.
func (t *PoseTrack) Frame(n int) *PoseFrame {
	if n >= 0 && n < len(t.Frames) && t.Frames[n].FrameNumber == n {
		return &t.Frames[n]
	}
	for i := range t.Frames {
		if t.Frames[i].FrameNumber == n {
			return &t.Frames[i]
		}
	}
	return nil
}

// KeypointNames lists the 33 landmarks produced by the pose detector, in
// index order.
var KeypointNames = []string{
	"nose",
	"left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear",
	"mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_pinky", "right_pinky",
	"left_index", "right_index",
	"left_thumb", "right_thumb",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
	"left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// SkeletonEdges are the keypoint index pairs joined when compositing the
// overlay, matching the detector's pose connection topology.
var SkeletonEdges = [][2]int{
	// face
	{0, 1}, {1, 2}, {2, 3}, {3, 7},
	{0, 4}, {4, 5}, {5, 6}, {6, 8},
	{9, 10},
	// torso
	{11, 12}, {11, 23}, {12, 24}, {23, 24},
	// arms
	{11, 13}, {13, 15}, {15, 17}, {15, 19}, {15, 21}, {17, 19},
	{12, 14}, {14, 16}, {16, 18}, {16, 20}, {16, 22}, {18, 20},
	// legs
	{23, 25}, {25, 27}, {27, 29}, {27, 31}, {29, 31},
	{24, 26}, {26, 28}, {28, 30}, {28, 32}, {30, 32},
}
