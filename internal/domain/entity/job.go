package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// ScanJob tracks an asynchronous scan of a stored video.
type ScanJob struct {
	ID           uuid.UUID
	VideoKey     string
	Status       JobStatus
	FileSize     int64
	CodesFound   int
	SuccessCount int
	ErrorCount   int
	Report       *ProcessingReport
	Attempt      int
	MaxAttempts  int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewScanJob(videoKey string, fileSize int64, maxAttempts int) *ScanJob {
	now := time.Now().UTC()
	return &ScanJob{
		ID:          uuid.New(),
		VideoKey:    videoKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *ScanJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *ScanJob) MarkCompleted(report *ProcessingReport) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.Report = report
	j.CodesFound = report.CodesFound
	j.SuccessCount = report.SuccessCount
	j.ErrorCount = report.ErrorCount
	j.ErrorMessage = report.PartialError
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *ScanJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *ScanJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
