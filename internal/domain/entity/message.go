package entity

import "github.com/google/uuid"

// ScanRequestMessage is the inbound message from the scan.request queue.
type ScanRequestMessage struct {
	JobID    uuid.UUID `json:"job_id"`
	VideoKey string    `json:"video_key"`
	FileSize int64     `json:"file_size"`
}

// ScanStatusMessage is published on the scan.status routing key.
type ScanStatusMessage struct {
	JobID        uuid.UUID         `json:"job_id"`
	Status       JobStatus         `json:"status"`
	VideoKey     string            `json:"video_key"`
	Report       *ProcessingReport `json:"report,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Attempt      int               `json:"attempt"`
	MaxAttempts  int               `json:"max_attempts"`
}
