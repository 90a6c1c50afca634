package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := New()
	assert.Equal(t, SelectionState{
		VideoID:     "test-video-1",
		FrameIndex:  0,
		ShowOverlay: true,
	}, s.State())
}

func TestParseClampedIndex(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"0", 0},
		{"7", 7},
		{"  12  ", 12},
		{"abc", 0},
		{"", 0},
		{"-5", 0},
		{"3.7", 0},
		{"1e3", 0},
		{"00042", 42},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseClampedIndex(tc.raw), "input %q", tc.raw)
		assert.GreaterOrEqual(t, ParseClampedIndex(tc.raw), 0, "input %q", tc.raw)
	}
}

func TestSetFrameIndexNeverGoesNegative(t *testing.T) {
	s := New()
	for _, raw := range []string{"-1", "-999999", "not a number", "", "5"} {
		s.SetFrameIndex(raw)
		assert.GreaterOrEqual(t, s.State().FrameIndex, 0, "input %q", raw)
	}
}

func TestDecrementFloorsAtZero(t *testing.T) {
	s := New()
	require.Equal(t, 0, s.State().FrameIndex)
	s.DecrementFrame()
	assert.Equal(t, 0, s.State().FrameIndex)
}

func TestIncrementDecrementRoundTrip(t *testing.T) {
	s := New()
	s.SetFrameIndex("5")
	s.IncrementFrame()
	s.DecrementFrame()
	assert.Equal(t, 5, s.State().FrameIndex)
}

func TestOverlayToggleRoundTrip(t *testing.T) {
	s := New()
	before := s.Request()
	s.SetShowOverlay(false)
	s.SetShowOverlay(true)
	assert.Equal(t, before, s.Request())
}

func TestSetVideoIDVerbatim(t *testing.T) {
	s := New()
	s.SetVideoID("")
	assert.Equal(t, "", s.State().VideoID)
	s.SetVideoID("clip-42")
	assert.Equal(t, "clip-42", s.State().VideoID)
}

func TestRenderRequestSequence(t *testing.T) {
	s := New()
	var got []RenderRequest
	s.OnChange(func(r RenderRequest) { got = append(got, r) })

	assert.Equal(t, RenderRequest{
		VideoID:     "test-video-1",
		FrameIndex:  0,
		Width:       640,
		Height:      480,
		ShowOverlay: true,
	}, s.Request())

	s.SetVideoID("clip-42")
	s.IncrementFrame()
	s.IncrementFrame()
	s.IncrementFrame()

	require.Len(t, got, 4)
	assert.Equal(t, RenderRequest{
		VideoID:     "clip-42",
		FrameIndex:  3,
		Width:       640,
		Height:      480,
		ShowOverlay: true,
	}, got[3])
}

func TestEveryMutationNotifies(t *testing.T) {
	s := New()
	n := 0
	s.OnChange(func(RenderRequest) { n++ })

	s.SetVideoID("v")
	s.SetFrameIndex("3")
	s.IncrementFrame()
	s.DecrementFrame()
	s.SetShowOverlay(false)

	assert.Equal(t, 5, n)
}
