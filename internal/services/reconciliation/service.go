// Package reconciliation orchestrates a run end to end: ingest both sheets,
// reconcile, apply changes, aggregate KPIs and emit the three artifacts.
package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"route-master-backend/internal/ingest"
	"route-master-backend/internal/models"
	"route-master-backend/internal/report"
	"route-master-backend/internal/repository"
	"route-master-backend/internal/services/matching"
)

// PDFTitle heads the comparison document.
const PDFTitle = "Comparación Maestra vs Compilado"

// Options configures a Service.
type Options struct {
	OutputDir string
	// Timeout bounds a whole run; a run that exceeds it is marked failed.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Progress is the in-memory view of a running reconciliation.
type Progress struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
}

type Service struct {
	runs   *repository.RunRepository
	engine *matching.Engine
	opts   Options

	progressCache sync.Map // runID -> *Progress
}

func NewService(runs *repository.RunRepository, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Service{
		runs:   runs,
		engine: matching.NewEngine(matching.DefaultConfig()),
		opts:   opts,
	}
}

// CreateRun registers a new run for an upload pair.
func (s *Service) CreateRun(maestraName, compiladoName string) (*models.ReconciliationRun, error) {
	run := &models.ReconciliationRun{
		ID:                uuid.New(),
		MaestraFilename:   maestraName,
		CompiladoFilename: compiladoName,
		Status:            models.RunStatusProcessing,
		StartedAt:         time.Now(),
		CreatedAt:         time.Now(),
	}
	if err := s.runs.Create(run); err != nil {
		return nil, fmt.Errorf("creando run: %w", err)
	}
	s.progressCache.Store(run.ID, &Progress{Stage: "pendiente", Status: models.RunStatusProcessing})
	return run, nil
}

// GetRun returns the persisted run row.
func (s *Service) GetRun(id uuid.UUID) (*models.ReconciliationRun, error) {
	return s.runs.GetByID(id)
}

// ListRuns returns recent runs, newest first.
func (s *Service) ListRuns(limit int) ([]models.ReconciliationRun, error) {
	return s.runs.List(limit)
}

// GetProgress answers the polling endpoint without touching the DB.
func (s *Service) GetProgress(id uuid.UUID) (*Progress, bool) {
	if v, ok := s.progressCache.Load(id); ok {
		return v.(*Progress), true
	}
	return nil, false
}

// Process runs the whole pipeline for one upload pair. Meant to run in its
// own goroutine; the run row carries the outcome either way.
func (s *Service) Process(runID uuid.UUID, maestraPath, compiladoPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	logger := s.opts.Logger.With().Str("run_id", runID.String()).Logger()
	if err := s.process(ctx, runID, maestraPath, compiladoPath, logger); err != nil {
		logger.Error().Err(err).Msg("run failed")
		s.markFailed(runID, err)
	}
}

func (s *Service) process(ctx context.Context, runID uuid.UUID, maestraPath, compiladoPath string, logger zerolog.Logger) error {
	run, err := s.runs.GetByID(runID)
	if err != nil {
		return fmt.Errorf("cargando run: %w", err)
	}

	s.setStage(runID, "ingesta")
	maestra, err := ingest.ReadMaestraFile(maestraPath)
	if err != nil {
		return err
	}
	compilado, err := ingest.ReadCompiladoFile(compiladoPath)
	if err != nil {
		return err
	}
	logger.Info().
		Int("maestra_rows", len(maestra.Records)).
		Int("compilado_rows", len(compilado.Records)).
		Msg("sheets loaded")
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	s.setStage(runID, "matching")
	result, err := s.engine.Reconcile(maestra, compilado)
	if err != nil {
		return err
	}
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	s.setStage(runID, "aplicando cambios")
	updated, changes := ApplyChanges(result)
	kpis := AggregateKPIs(result, changes)
	logger.Info().
		Int("exact", kpis.ExactMatches).
		Int("relative", kpis.RelativeMatches).
		Int("changes", kpis.ChangeCount).
		Msg("reconciliation done")
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	// Artifacts are independent: one failing writer is recorded on the run
	// and never blocks the other two.
	s.setStage(runID, "generando archivos")
	stamp := time.Now().Format("20060102_1504")
	id8 := runID.String()[:8]
	var artifactErrs []string

	masterFile := fmt.Sprintf("Maestra_ACTUALIZADA_%s_%s.xlsx", stamp, id8)
	if err := report.WriteUpdatedMaestra(updated, filepath.Join(s.opts.OutputDir, masterFile)); err != nil {
		artifactErrs = append(artifactErrs, fmt.Sprintf("%s: %v", models.ArtifactMaster, err))
		masterFile = ""
	}

	reportFile := fmt.Sprintf("Reporte_Actualizacion_%s_%s.xlsx", stamp, id8)
	if err := report.WriteKPIWorkbook(kpis, changes, result.AmbiguousOutcomes(), unmatchedOutcomes(result), filepath.Join(s.opts.OutputDir, reportFile)); err != nil {
		artifactErrs = append(artifactErrs, fmt.Sprintf("%s: %v", models.ArtifactReport, err))
		reportFile = ""
	}

	pdfFile := fmt.Sprintf("Comparacion_Visual_%s_%s.pdf", stamp, id8)
	if err := report.WriteComparisonPDF(result, PDFTitle, filepath.Join(s.opts.OutputDir, pdfFile)); err != nil {
		artifactErrs = append(artifactErrs, fmt.Sprintf("%s: %v", models.ArtifactPDF, err))
		pdfFile = ""
	}

	kpiJSON, err := json.Marshal(kpis)
	if err != nil {
		return fmt.Errorf("serializando KPIs: %w", err)
	}

	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.TotalCompilado = kpis.TotalCompilado
	run.ExactMatches = kpis.ExactMatches
	run.RelativeMatches = kpis.RelativeMatches
	run.UnmatchedCount = kpis.MaestraUnmatched + kpis.CompiladoOnly
	run.ChangeCount = kpis.ChangeCount
	run.KPIs = kpiJSON
	run.MasterFile = masterFile
	run.ReportFile = reportFile
	run.PDFFile = pdfFile
	run.ArtifactErrors = strings.Join(artifactErrs, "\n")
	run.CompletedAt = &now
	if err := s.runs.Update(run); err != nil {
		return fmt.Errorf("guardando run: %w", err)
	}

	s.progressCache.Store(runID, &Progress{Stage: "finalizado", Status: models.RunStatusCompleted})
	return nil
}

func (s *Service) markFailed(runID uuid.UUID, cause error) {
	s.progressCache.Store(runID, &Progress{Stage: "error", Status: models.RunStatusFailed})
	run, err := s.runs.GetByID(runID)
	if err != nil {
		return
	}
	now := time.Now()
	run.Status = models.RunStatusFailed
	run.Error = cause.Error()
	run.CompletedAt = &now
	_ = s.runs.Update(run)
}

func (s *Service) setStage(runID uuid.UUID, stage string) {
	s.progressCache.Store(runID, &Progress{Stage: stage, Status: models.RunStatusProcessing})
}

// unmatchedOutcomes collects the rows for the "Sin Coincidencia" sheet: every
// compilado leftover plus the maestra rows that ran out of candidates.
func unmatchedOutcomes(result *models.ReconciliationResult) []models.MatchOutcome {
	var out []models.MatchOutcome
	for _, o := range result.Outcomes {
		switch {
		case o.Kind == models.MatchCompiladoOnly:
			out = append(out, o)
		case o.Kind == models.MatchMaestraOnly && o.Reason == models.ReasonNoCandidate:
			out = append(out, o)
		}
	}
	return out
}

func checkDeadline(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("tiempo de proceso agotado: %w", ctx.Err())
	default:
		return nil
	}
}
