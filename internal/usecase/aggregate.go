package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
	"github.com/olhodeaguia/scan-service/internal/infra/metrics"
	"go.uber.org/zap"
)

// CodeAggregator runs every frame of a stream through the decoder and keeps
// the distinct codes in the order they first appeared.
type CodeAggregator struct {
	decoder port.CodeDecoder
	logger  *zap.Logger
}

func NewCodeAggregator(decoder port.CodeDecoder, logger *zap.Logger) *CodeAggregator {
	return &CodeAggregator{decoder: decoder, logger: logger}
}

// Collect consumes stream until it is exhausted and always closes it. A frame
// the decoder fails on counts as a frame without codes. If the stream breaks
// or ctx ends, the codes gathered so far are returned together with the error.
func (a *CodeAggregator) Collect(ctx context.Context, stream port.FrameStream) ([]string, error) {
	defer stream.Close()

	set := entity.NewCodeSet()
	frames := 0

	for stream.Next() {
		if err := ctx.Err(); err != nil {
			return a.finish(set, frames, fmt.Errorf("%w: %w", port.ErrMidStreamRead, err))
		}
		frame := stream.Frame()
		frames++

		codes, err := a.decodeFrame(frame)
		metrics.FramesDecodedTotal.Inc()
		if err != nil {
			metrics.FramesSkippedTotal.Inc()
			a.logger.Warn("frame skipped", zap.Int("frame", frame.Index), zap.Error(err))
			continue
		}

		for _, code := range codes {
			if set.Add(code) {
				a.logger.Info("code found", zap.Int("frame", frame.Index), zap.String("code", code))
			}
		}
	}

	return a.finish(set, frames, stream.Err())
}

func (a *CodeAggregator) finish(set *entity.CodeSet, frames int, streamErr error) ([]string, error) {
	codes := set.Freeze()
	metrics.CodesFoundTotal.Add(float64(len(codes)))

	if streamErr != nil {
		if !errors.Is(streamErr, port.ErrMidStreamRead) && !errors.Is(streamErr, port.ErrFrameBudgetExceeded) {
			streamErr = fmt.Errorf("%w: %w", port.ErrMidStreamRead, streamErr)
		}
		a.logger.Warn("frame stream ended early, keeping partial result",
			zap.Int("frames_scanned", frames),
			zap.Int("codes", len(codes)),
			zap.Error(streamErr),
		)
		return codes, streamErr
	}

	a.logger.Info("frame stream exhausted",
		zap.Int("frames_scanned", frames),
		zap.Int("codes", len(codes)),
	)
	return codes, nil
}

func (a *CodeAggregator) decodeFrame(frame entity.RawFrame) (codes []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			codes = nil
			err = fmt.Errorf("%w: decoder panic: %v", port.ErrUndecodableFrame, r)
		}
	}()
	return a.decoder.Decode(frame.Image)
}
