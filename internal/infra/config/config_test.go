package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pose.processing", cfg.RabbitMQProcessingQueue)
	assert.Equal(t, "snowex.video", cfg.RabbitMQExchange)
	assert.Equal(t, "videos", cfg.MinIOVideoBucket)
	assert.Equal(t, "tracks", cfg.MinIOTrackBucket)
	assert.Equal(t, 30000, cfg.PoseRequestTimeout)
	assert.Equal(t, 30000, cfg.RenderRequestTimeout)
	assert.Equal(t, 10, cfg.FFmpegFPS)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RENDER_REQUEST_TIMEOUT_MS", "5000")
	t.Setenv("POSE_SERVICE_URL", "http://localhost:5001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.RenderRequestTimeout)
	assert.Equal(t, "http://localhost:5001", cfg.PoseServiceURL)
	// The renderer timeout is independent of the pose service timeout.
	assert.Equal(t, 30000, cfg.PoseRequestTimeout)
}
