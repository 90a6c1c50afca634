package port

import (
	"context"
	"io"
)

type VideoStorage interface {
	DownloadVideo(ctx context.Context, objectKey string, destPath string) error
	UploadTrack(ctx context.Context, objectKey string, data []byte) error
	DownloadTrack(ctx context.Context, objectKey string) ([]byte, error)
	UploadBundle(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}
