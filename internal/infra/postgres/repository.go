package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olhodeaguia/scan-service/internal/domain/entity"
)

type ScanJobRepository struct {
	pool *pgxpool.Pool
}

func NewScanJobRepository(pool *pgxpool.Pool) *ScanJobRepository {
	return &ScanJobRepository{pool: pool}
}

func (r *ScanJobRepository) Create(ctx context.Context, job *entity.ScanJob) error {
	report, err := marshalReport(job.Report)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scan_jobs (
			id, video_key, status, file_size, codes_found, success_count,
			error_count, report, attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err = r.pool.Exec(ctx, query,
		job.ID, job.VideoKey, string(job.Status), job.FileSize,
		job.CodesFound, job.SuccessCount, job.ErrorCount, report,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scan job: %w", err)
	}
	return nil
}

func (r *ScanJobRepository) Update(ctx context.Context, job *entity.ScanJob) error {
	report, err := marshalReport(job.Report)
	if err != nil {
		return err
	}

	query := `
		UPDATE scan_jobs SET
			status=$2, codes_found=$3, success_count=$4, error_count=$5,
			report=$6, attempt=$7, error_message=$8, updated_at=$9, completed_at=$10
		WHERE id=$1`

	_, err = r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.CodesFound, job.SuccessCount,
		job.ErrorCount, report, job.Attempt, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update scan job: %w", err)
	}
	return nil
}

func (r *ScanJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ScanJob, error) {
	query := `
		SELECT id, video_key, status, file_size, codes_found, success_count,
			error_count, report, attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		FROM scan_jobs WHERE id=$1`

	job := &entity.ScanJob{}
	var status string
	var report []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.VideoKey, &status, &job.FileSize,
		&job.CodesFound, &job.SuccessCount, &job.ErrorCount, &report,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find scan job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)

	if len(report) > 0 {
		job.Report = &entity.ProcessingReport{}
		if err := json.Unmarshal(report, job.Report); err != nil {
			return nil, fmt.Errorf("decode stored report: %w", err)
		}
	}
	return job, nil
}

func marshalReport(report *entity.ProcessingReport) ([]byte, error) {
	if report == nil {
		return nil, nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}
