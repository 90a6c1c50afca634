// Package renderer fetches rendered frames from the frame API on behalf of
// the selection harness.
package renderer

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
	"github.com/benstrumeyer/snowex-frame-service/internal/selector"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// FrameURL builds the frame request URL for a render request. Every render
// asks for the original image, never the mesh, and compressed transfer;
// only the overlay flag follows the selection state.
func (c *Client) FrameURL(req selector.RenderRequest) string {
	return fmt.Sprintf(
		"%s/api/video/%s/frame/%d?includeOriginal=true&includeOverlay=%t&includeMesh=false&compress=true",
		c.baseURL, url.PathEscape(req.VideoID), req.FrameIndex, req.ShowOverlay,
	)
}

// Render fetches the frame described by req and decodes the payload.
func (c *Client) Render(ctx context.Context, req selector.RenderRequest) (*entity.FramePayload, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FrameURL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("build frame request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("frame request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("frame API returned %d: %s", resp.StatusCode, string(body))
	}

	// The transport decompresses transparently unless a proxy stripped the
	// transparent path; handle an explicit gzip body either way.
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	var payload entity.FramePayload
	if err := json.NewDecoder(reader).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode frame payload: %w", err)
	}
	return &payload, nil
}
