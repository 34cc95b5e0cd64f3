package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
	"github.com/olhodeaguia/scan-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StateObserver is told about every scan state change. It is called on the
// goroutine running the scan.
type StateObserver interface {
	OnStateChange(from, to entity.ScanState)
}

type ScanVideoConfig struct {
	// Timeout bounds opening and reading the video; zero means no limit.
	// Catalog resolution is not covered, so an expired budget still yields
	// a partial report.
	Timeout  time.Duration
	Observer StateObserver
}

// ScanVideoUseCase is the per-request pipeline: open the video, collect the
// distinct codes, resolve them and build the report.
type ScanVideoUseCase struct {
	source     port.FrameSource
	aggregator *CodeAggregator
	builder    *ReportBuilder
	logger     *zap.Logger
	timeout    time.Duration
	observer   StateObserver
}

func NewScanVideoUseCase(
	source port.FrameSource,
	decoder port.CodeDecoder,
	catalog port.Catalog,
	logger *zap.Logger,
	cfg ScanVideoConfig,
) *ScanVideoUseCase {
	return &ScanVideoUseCase{
		source:     source,
		aggregator: NewCodeAggregator(decoder, logger),
		builder:    NewReportBuilder(catalog, logger),
		logger:     logger,
		timeout:    cfg.Timeout,
		observer:   cfg.Observer,
	}
}

// Execute scans the video at videoPath. It fails only when the video cannot
// be opened (port.ErrUnreadableVideo); once frames flow, a report is always
// returned and any read failure is recorded in its PartialError.
func (uc *ScanVideoUseCase) Execute(ctx context.Context, videoPath string) (*entity.ProcessingReport, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ScanVideoUseCase.Execute",
		trace.WithAttributes(attribute.String("video.file", filepath.Base(videoPath))),
	)
	defer span.End()

	metrics.ActiveScans.Inc()
	defer metrics.ActiveScans.Dec()

	log := uc.logger.With(zap.String("video", filepath.Base(videoPath)))
	run := &scanRun{state: entity.ScanStateIdle, logger: log, observer: uc.observer}

	scanCtx, cancel := uc.scanContext(ctx)
	defer cancel()

	run.advance(entity.ScanStateReadingVideo)
	openStart := time.Now()
	_, spanOpen := tracer.Start(ctx, "open_video")
	stream, err := uc.source.Open(scanCtx, videoPath)
	spanOpen.End()
	if err != nil {
		run.advance(entity.ScanStateFailed)
		metrics.ScansTotal.WithLabelValues("unreadable").Inc()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "unreadable video")
		log.Error("video could not be opened", zap.Error(err))
		if !errors.Is(err, port.ErrUnreadableVideo) {
			err = fmt.Errorf("%w: %w", port.ErrUnreadableVideo, err)
		}
		return nil, fmt.Errorf("open video: %w", err)
	}
	metrics.ScanStageDuration.WithLabelValues("open").Observe(time.Since(openStart).Seconds())
	span.SetAttributes(
		attribute.Int("video.total_frames", stream.TotalFrames()),
		attribute.Int("video.stride", stream.Stride()),
	)

	run.advance(entity.ScanStateAggregating)
	aggStart := time.Now()
	aggCtx, spanAgg := tracer.Start(scanCtx, "aggregate_codes")
	found, aggErr := uc.aggregator.Collect(aggCtx, stream)
	spanAgg.End()
	cancel()
	metrics.ScanStageDuration.WithLabelValues("aggregate").Observe(time.Since(aggStart).Seconds())

	run.advance(entity.ScanStateResolving)
	resStart := time.Now()
	resCtx, spanRes := tracer.Start(ctx, "resolve_codes")
	report := uc.builder.Build(resCtx, found)
	spanRes.End()
	metrics.ScanStageDuration.WithLabelValues("resolve").Observe(time.Since(resStart).Seconds())

	outcome := "complete"
	if aggErr != nil {
		outcome = "partial"
		report.PartialError = aggErr.Error()
		span.RecordError(aggErr)
	}
	metrics.ScansTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.Int("report.codes_found", report.CodesFound),
		attribute.Int("report.success_count", report.SuccessCount),
		attribute.Int("report.error_count", report.ErrorCount),
	)

	run.advance(entity.ScanStateDone)
	log.Info(report.Message,
		zap.String("outcome", outcome),
		zap.Int("codes_found", report.CodesFound),
		zap.Int("success_count", report.SuccessCount),
		zap.Int("error_count", report.ErrorCount),
	)
	return report, nil
}

// ScanImage runs the decode and resolve steps over a single picture. A
// request cancelled before the picture is decoded yields an empty report
// carrying the reason in PartialError.
func (uc *ScanVideoUseCase) ScanImage(ctx context.Context, img image.Image) *entity.ProcessingReport {
	ctx, span := otel.Tracer("usecase").Start(ctx, "ScanVideoUseCase.ScanImage")
	defer span.End()

	found, err := uc.aggregator.Collect(ctx, newSingleFrameStream(img))
	report := uc.builder.Build(ctx, found)
	if err != nil {
		report.PartialError = err.Error()
		span.RecordError(err)
		uc.logger.Warn("image scan interrupted", zap.Error(err))
	}
	return report
}

func (uc *ScanVideoUseCase) scanContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.timeout > 0 {
		return context.WithTimeout(ctx, uc.timeout)
	}
	return context.WithCancel(ctx)
}

type scanRun struct {
	state    entity.ScanState
	logger   *zap.Logger
	observer StateObserver
}

func (r *scanRun) advance(next entity.ScanState) {
	if !r.state.CanTransition(next) {
		r.logger.Error("invalid scan state transition",
			zap.String("from", string(r.state)),
			zap.String("to", string(next)),
		)
	}
	prev := r.state
	r.state = next

	metrics.ScanStateTransitions.WithLabelValues(string(next)).Inc()
	r.logger.Debug("scan state changed", zap.String("from", string(prev)), zap.String("to", string(next)))
	if r.observer != nil {
		r.observer.OnStateChange(prev, next)
	}
}

// singleFrameStream presents one image as a stream so pictures share the
// video code path.
type singleFrameStream struct {
	img  image.Image
	done bool
}

func newSingleFrameStream(img image.Image) *singleFrameStream {
	return &singleFrameStream{img: img}
}

func (s *singleFrameStream) Next() bool {
	if s.done {
		return false
	}
	s.done = true
	return true
}

func (s *singleFrameStream) Frame() entity.RawFrame {
	return entity.RawFrame{Index: 0, Image: s.img}
}

func (s *singleFrameStream) Err() error       { return nil }
func (s *singleFrameStream) Close() error     { s.done = true; return nil }
func (s *singleFrameStream) TotalFrames() int { return 1 }
func (s *singleFrameStream) Stride() int      { return 1 }
