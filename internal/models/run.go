package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Run statuses.
const (
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

// Artifact names used in download URLs and on the run row.
const (
	ArtifactMaster = "master"
	ArtifactReport = "report"
	ArtifactPDF    = "pdf"
)

// ReconciliationRun is one upload pair processed end to end. The row is the
// only thing that survives a run; tables and outcomes are discarded once the
// artifacts are written.
type ReconciliationRun struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MaestraFilename   string    `json:"maestra_filename"`
	CompiladoFilename string    `json:"compilado_filename"`
	Status            string    `gorm:"index" json:"status"`

	TotalCompilado  int `json:"total_compilado"`
	ExactMatches    int `json:"exact_matches"`
	RelativeMatches int `json:"relative_matches"`
	UnmatchedCount  int `json:"unmatched_count"`
	ChangeCount     int `json:"change_count"`

	// KPIs is the serialized KPIReport for this run.
	KPIs datatypes.JSON `json:"kpis,omitempty"`

	MasterFile string `json:"master_file,omitempty"`
	ReportFile string `json:"report_file,omitempty"`
	PDFFile    string `json:"pdf_file,omitempty"`

	// ArtifactErrors records which outputs failed, one per line; a failed
	// artifact never blocks the other two.
	ArtifactErrors string `json:"artifact_errors,omitempty"`
	Error          string `json:"error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ChangeEntry is one applied field change, listed on the "Detalle Cambios"
// sheet of the KPI workbook.
type ChangeEntry struct {
	CenterCode string `json:"center_code"`
	Field      string `json:"campo"`
	OldValue   string `json:"valor_anterior"`
	NewValue   string `json:"valor_nuevo"`
	MatchKind  string `json:"tipo_match"`
}
