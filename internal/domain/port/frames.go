package port

import (
	"context"
	"image"

	"github.com/olhodeaguia/scan-service/internal/domain/entity"
)

// FrameStream yields frames in temporal order. It cannot be restarted, and
// Close must be safe to call more than once.
type FrameStream interface {
	Next() bool
	Frame() entity.RawFrame
	Err() error
	Close() error
	TotalFrames() int
	Stride() int
}

type FrameSource interface {
	Open(ctx context.Context, videoPath string) (FrameStream, error)
}

// CodeDecoder returns the code strings visible in one frame. The image must
// not be retained after Decode returns.
type CodeDecoder interface {
	Decode(img image.Image) ([]string, error)
}
