package port

import (
	"context"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
)

// PoseDetector runs pose estimation on a single encoded frame image.
type PoseDetector interface {
	DetectPose(ctx context.Context, imageData []byte, frameNumber int) (*entity.PoseFrame, error)
	ModelVersion() string
}
