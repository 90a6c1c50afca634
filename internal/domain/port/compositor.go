package port

import (
	"image"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
)

// OverlayCompositor draws a pose frame's skeleton on top of a decoded
// frame image, returning a new image.
type OverlayCompositor interface {
	Composite(frame image.Image, pose *entity.PoseFrame) image.Image
}
