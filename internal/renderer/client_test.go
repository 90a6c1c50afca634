package renderer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benstrumeyer/snowex-frame-service/internal/selector"
)

func TestFrameURL(t *testing.T) {
	c := NewClient("http://localhost:8080", time.Second)

	url := c.FrameURL(selector.RenderRequest{
		VideoID:     "test-video-1",
		FrameIndex:  5,
		Width:       640,
		Height:      480,
		ShowOverlay: true,
	})
	assert.Equal(t,
		"http://localhost:8080/api/video/test-video-1/frame/5?includeOriginal=true&includeOverlay=true&includeMesh=false&compress=true",
		url)

	url = c.FrameURL(selector.RenderRequest{VideoID: "clip-42", FrameIndex: 0, ShowOverlay: false})
	assert.Equal(t,
		"http://localhost:8080/api/video/clip-42/frame/0?includeOriginal=true&includeOverlay=false&includeMesh=false&compress=true",
		url)
}

func TestRender(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"videoId":          "test-video-1",
			"frameIndex":       2,
			"width":            640,
			"height":           480,
			"original":         "aGVsbG8=",
			"overlayAvailable": true,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	payload, err := c.Render(context.Background(), selector.RenderRequest{
		VideoID:     "test-video-1",
		FrameIndex:  2,
		Width:       640,
		Height:      480,
		ShowOverlay: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/video/test-video-1/frame/2", gotPath)
	assert.Equal(t, "includeOriginal=true&includeOverlay=true&includeMesh=false&compress=true", gotQuery)
	assert.Equal(t, "test-video-1", payload.VideoID)
	assert.Equal(t, 2, payload.FrameIndex)
	assert.True(t, payload.OverlayAvailable)
}

func TestRenderNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"video not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Render(context.Background(), selector.RenderRequest{VideoID: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
