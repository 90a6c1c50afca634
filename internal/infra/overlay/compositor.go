// Package overlay draws detected pose skeletons on top of video frames.
package overlay

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
)

// minConfidence is the detection confidence below which a keypoint is
// treated as absent and not drawn.
const minConfidence = 0.5

var (
	boneColor  = color.RGBA{R: 0, G: 255, B: 136, A: 255}
	jointColor = color.RGBA{R: 255, G: 64, B: 64, A: 255}
)

type Compositor struct {
	jointRadius int
}

func NewCompositor() *Compositor {
	return &Compositor{jointRadius: 4}
}

// Composite returns a copy of frame with the skeleton for pose drawn on
// top. Keypoint coordinates are in the pose frame's pixel space and are
// scaled to the image bounds when the two differ. A nil or empty pose
// yields an unmodified copy.
func (c *Compositor) Composite(frame image.Image, pose *entity.PoseFrame) image.Image {
	dst := image.NewRGBA(frame.Bounds())
	draw.Draw(dst, dst.Bounds(), frame, frame.Bounds().Min, draw.Src)

	if pose == nil || len(pose.Keypoints) == 0 {
		return dst
	}

	sx, sy := 1.0, 1.0
	if pose.FrameWidth > 0 && pose.FrameHeight > 0 {
		sx = float64(dst.Bounds().Dx()) / float64(pose.FrameWidth)
		sy = float64(dst.Bounds().Dy()) / float64(pose.FrameHeight)
	}

	pts := make([]image.Point, len(pose.Keypoints))
	ok := make([]bool, len(pose.Keypoints))
	for i, kp := range pose.Keypoints {
		if kp.Confidence < minConfidence {
			continue
		}
		pts[i] = image.Pt(int(float64(kp.X)*sx), int(float64(kp.Y)*sy))
		ok[i] = true
	}

	for _, edge := range entity.SkeletonEdges {
		a, b := edge[0], edge[1]
		if a >= len(pts) || b >= len(pts) || !ok[a] || !ok[b] {
			continue
		}
		drawLine(dst, pts[a], pts[b], boneColor)
	}

	for i, p := range pts {
		if !ok[i] {
			continue
		}
		drawDot(dst, p, c.jointRadius, jointColor)
	}

	return dst
}

// drawLine plots a Bresenham line between two points.
func drawLine(img *image.RGBA, p0, p1 image.Point, col color.Color) {
	dx := abs(p1.X - p0.X)
	dy := -abs(p1.Y - p0.Y)
	sx, sy := 1, 1
	if p0.X > p1.X {
		sx = -1
	}
	if p0.Y > p1.Y {
		sy = -1
	}
	err := dx + dy

	x, y := p0.X, p0.Y
	for {
		setIfInside(img, x, y, col)
		if x == p1.X && y == p1.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func drawDot(img *image.RGBA, center image.Point, radius int, col color.Color) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				setIfInside(img, center.X+dx, center.Y+dy, col)
			}
		}
	}
}

func setIfInside(img *image.RGBA, x, y int, col color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, col)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
