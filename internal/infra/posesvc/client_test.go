package posesvc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/detect_pose", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		decoded, err := base64.StdEncoding.DecodeString(req["image_base64"].(string))
		require.NoError(t, err)
		assert.Equal(t, []byte("fake-png"), decoded)
		assert.EqualValues(t, 7, req["frame_number"])

		json.NewEncoder(w).Encode(map[string]any{
			"frame_number": 7,
			"frame_width":  640,
			"frame_height": 480,
			"keypoints": []map[string]any{
				{"name": "nose", "x": 320, "y": 100, "z": -0.3, "confidence": 0.98},
			},
			"keypoint_count":     1,
			"processing_time_ms": 12.5,
			"model_version":      "mediapipe-0.10",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	frame, err := c.DetectPose(context.Background(), []byte("fake-png"), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, frame.FrameNumber)
	assert.Equal(t, 640, frame.FrameWidth)
	assert.Equal(t, 480, frame.FrameHeight)
	require.Len(t, frame.Keypoints, 1)
	assert.Equal(t, "nose", frame.Keypoints[0].Name)
	assert.Equal(t, 320, frame.Keypoints[0].X)
	assert.InDelta(t, 0.98, frame.Keypoints[0].Confidence, 1e-9)
	assert.Equal(t, "mediapipe-0.10", c.ModelVersion())
}

func TestDetectPoseServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.DetectPose(context.Background(), []byte("x"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestDetectPosePerFrameFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"frame_number": 3,
			"keypoints":    []any{},
			"error":        "no pose detected",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	frame, err := c.DetectPose(context.Background(), []byte("x"), 3)
	require.NoError(t, err)
	assert.Equal(t, "no pose detected", frame.Error)
	assert.Empty(t, frame.Keypoints)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	assert.NoError(t, c.Health(context.Background()))
}
