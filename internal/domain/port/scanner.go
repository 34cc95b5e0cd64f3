package port

import (
	"context"

	"github.com/olhodeaguia/scan-service/internal/domain/entity"
)

// VideoScanner runs the frame scan pipeline on a local video file. Only
// ErrUnreadableVideo prevents a report; later failures yield a partial one.
type VideoScanner interface {
	Execute(ctx context.Context, videoPath string) (*entity.ProcessingReport, error)
}
