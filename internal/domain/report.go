package domain

import "time"

// Upload statuses recorded in the upload history.
const (
	UploadCompleted = "completed"
	UploadFailed    = "failed"
)

// ReconciliationReport is returned for every ingestion attempt.
type ReconciliationReport struct {
	UploadID          string     `json:"upload_id"`
	Filename          string     `json:"filename"`
	RecordType        RecordType `json:"file_type"`
	Success           bool       `json:"success"`
	Total             int        `json:"records_total"`
	Valid             int        `json:"records_valid"`
	Invalid           int        `json:"records_invalid"`
	Excluded          int        `json:"records_excluded"`
	DuplicatesRemoved int        `json:"duplicates_removed"`
	Ingested          int        `json:"records_ingested"`
	Superseded        int        `json:"records_superseded,omitempty"`
	Warnings          []string   `json:"warnings"`
	Errors            []string   `json:"errors,omitempty"`
}

// UploadLog is one entry of the upload history.
type UploadLog struct {
	UploadID       string     `json:"upload_id" db:"upload_id"`
	Filename       string     `json:"filename" db:"filename"`
	FileType       string     `json:"file_type" db:"file_type"`
	RecordsTotal   int        `json:"records_total" db:"records_total"`
	RecordsValid   int        `json:"records_valid" db:"records_valid"`
	RecordsInvalid int        `json:"records_invalid" db:"records_invalid"`
	Status         string     `json:"status" db:"status"`
	ErrorMessage   string     `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// ClassTotal aggregates movements of one class.
type ClassTotal struct {
	Class    string  `json:"clase" db:"clase_movimiento"`
	Records  int     `json:"registros" db:"registros"`
	Quantity float64 `json:"cantidad_total" db:"cantidad_total"`
}

// Stats is a snapshot of what is stored.
type Stats struct {
	MasterItems    int          `json:"maestro_articulos" db:"maestro"`
	DemandRows     int          `json:"demanda_registros" db:"demanda"`
	MovementRows   int          `json:"movimientos_registros" db:"movimientos"`
	ProductionRows int          `json:"produccion_registros" db:"produccion"`
	Classes        []ClassTotal `json:"clases_movimiento" db:"-"`
}
