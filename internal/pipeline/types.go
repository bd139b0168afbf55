package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

// ErrPersist marks a failure while writing an already validated batch. Only
// these failures are retried.
var ErrPersist = errors.New("persisting batch failed")

// FileIngester parses, validates and persists one workbook. RecordUnknown
// asks for detection.
type FileIngester interface {
	IngestFile(ctx context.Context, path string, t domain.RecordType) (*domain.ReconciliationReport, error)
}

// Config holds the run settings.
type Config struct {
	RetryAttempts int           // Attempts per file on ErrPersist
	RetryBackoff  time.Duration // Wait between attempts
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RetryAttempts: 3,
		RetryBackoff:  2 * time.Second,
	}
}

// RunStatus represents the current state of an ingestion run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// FileJobStatus represents the state of a single file processing job
type FileJobStatus string

const (
	FileStatusQueued     FileJobStatus = "queued"
	FileStatusProcessing FileJobStatus = "processing"
	FileStatusCompleted  FileJobStatus = "completed"
	FileStatusFailed     FileJobStatus = "failed"
)

// Run tracks one ingestion of a set of files
type Run struct {
	ID             string     `json:"id"`
	Status         RunStatus  `json:"status"`
	TotalFiles     int        `json:"total_files"`
	ProcessedFiles int        `json:"processed_files"`
	TotalRows      int        `json:"total_rows"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	Jobs           []*FileJob `json:"jobs"`
}

// FileJob tracks the processing of a single file
type FileJob struct {
	FilePath     string                       `json:"file"`
	Type         domain.RecordType            `json:"file_type"`
	Status       FileJobStatus                `json:"status"`
	ErrorMessage string                       `json:"error_message,omitempty"`
	ProcessedAt  *time.Time                   `json:"processed_at,omitempty"`
	RetryCount   int                          `json:"retry_count"`
	Report       *domain.ReconciliationReport `json:"report,omitempty"`
}
