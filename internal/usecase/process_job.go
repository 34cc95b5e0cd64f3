package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
	"github.com/olhodeaguia/scan-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessScanJobUseCase handles one queued scan request: fetch the video from
// object storage, scan it and publish the report.
type ProcessScanJobUseCase struct {
	repo      port.ScanJobRepository
	storage   port.VideoStorage
	scanner   port.VideoScanner
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
}

type ProcessScanJobConfig struct {
	TempDir    string
	MaxRetries int
}

func NewProcessScanJobUseCase(
	repo port.ScanJobRepository,
	storage port.VideoStorage,
	scanner port.VideoScanner,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	logger *zap.Logger,
	cfg ProcessScanJobConfig,
) *ProcessScanJobUseCase {
	return &ProcessScanJobUseCase{
		repo:      repo,
		storage:   storage,
		scanner:   scanner,
		publisher: publisher,
		dlq:       dlq,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
	}
}

// Execute returns an error only for failures worth redelivering.
func (uc *ProcessScanJobUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessScanJobUseCase.Execute")
	defer span.End()

	start := time.Now()

	var msg entity.ScanRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewScanJob(msg.VideoKey, msg.FileSize, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, rawMsg, "max retries exceeded", log)
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	if err := uc.scanStoredVideo(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	if job.Status == entity.JobStatusCompleted {
		metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
		metrics.ScanStageDuration.WithLabelValues("job_total").Observe(time.Since(start).Seconds())
	}
	return nil
}

func (uc *ProcessScanJobUseCase) scanStoredVideo(
	ctx context.Context,
	job *entity.ScanJob,
	msg entity.ScanRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	dlStart := time.Now()
	dlCtx, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	if err := uc.storage.DownloadVideo(dlCtx, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.ScanStageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	report, err := uc.scanner.Execute(ctx, videoPath)
	if errors.Is(err, port.ErrUnreadableVideo) {
		log.Warn("stored video is unreadable", zap.Error(err))
		return uc.handlePermanentFailure(ctx, job, rawMsg, "scan_video: "+err.Error(), log)
	}
	if err != nil {
		return uc.handleRetryableFailure(ctx, job, rawMsg, "scan_video: "+err.Error(), log)
	}

	job.MarkCompleted(report)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("scan job completed",
		zap.Int("codes_found", report.CodesFound),
		zap.Int("success_count", report.SuccessCount),
		zap.Int("error_count", report.ErrorCount),
		zap.Bool("partial", report.Partial()),
	)
	return nil
}

func (uc *ProcessScanJobUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.ScanJob,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, rawMsg, errMsg, log)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return &port.RetryError{Attempt: job.Attempt, Err: errors.New(errMsg)}
}

func (uc *ProcessScanJobUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.ScanJob,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if err := uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg); err != nil {
		log.Error("failed to publish to DLQ", zap.Error(err))
	}

	uc.publishStatus(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()
	return nil
}

func (uc *ProcessScanJobUseCase) publishStatus(ctx context.Context, job *entity.ScanJob, log *zap.Logger) {
	statusMsg := entity.ScanStatusMessage{
		JobID:        job.ID,
		Status:       job.Status,
		VideoKey:     job.VideoKey,
		Report:       job.Report,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
