// Package posesvc talks to the external pose-estimation service, which
// accepts one encoded frame per request and returns detected keypoints.
package posesvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
)

type Client struct {
	baseURL string
	http    *http.Client

	// lastModelVersion holds the model version from the most recent
	// response. The service loads its model once at startup, so this is
	// stable per run.
	lastModelVersion string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type detectRequest struct {
	ImageBase64 string `json:"image_base64"`
	FrameNumber int    `json:"frame_number"`
}

type detectResponse struct {
	FrameNumber      int               `json:"frame_number"`
	FrameWidth       int               `json:"frame_width"`
	FrameHeight      int               `json:"frame_height"`
	Keypoints        []entity.Keypoint `json:"keypoints"`
	KeypointCount    int               `json:"keypoint_count"`
	ProcessingTimeMs float64           `json:"processing_time_ms"`
	ModelVersion     string            `json:"model_version"`
	MeshVertices     [][3]float64      `json:"mesh_vertices_data,omitempty"`
	MeshFaces        [][3]int          `json:"mesh_faces_data,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// DetectPose submits one frame image and returns its pose frame. A
// detection error reported by the service (no pose found, bad image) comes
// back inside the PoseFrame rather than as a Go error, matching how the
// pipeline records per-frame failures without aborting the video.
func (c *Client) DetectPose(ctx context.Context, imageData []byte, frameNumber int) (*entity.PoseFrame, error) {
	body, err := json.Marshal(detectRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(imageData),
		FrameNumber: frameNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect_pose", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pose service request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pose service response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pose service returned %d: %s", resp.StatusCode, string(raw))
	}

	var dr detectResponse
	if err := json.Unmarshal(raw, &dr); err != nil {
		return nil, fmt.Errorf("decode pose service response: %w", err)
	}

	c.lastModelVersion = dr.ModelVersion

	return &entity.PoseFrame{
		FrameNumber:      frameNumber,
		FrameWidth:       dr.FrameWidth,
		FrameHeight:      dr.FrameHeight,
		Keypoints:        dr.Keypoints,
		MeshVertices:     dr.MeshVertices,
		MeshFaces:        dr.MeshFaces,
		ProcessingTimeMs: dr.ProcessingTimeMs,
		Error:            dr.Error,
	}, nil
}

// Health checks the pose service's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pose service health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pose service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) ModelVersion() string {
	return c.lastModelVersion
}
