package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"route-master-backend/internal/models"
	service "route-master-backend/internal/services/reconciliation"
)

type ReconciliationHandler struct {
	service     *service.Service
	uploadDir   string
	outputDir   string
	maxUploadMB int64
}

func NewReconciliationHandler(svc *service.Service, uploadDir, outputDir string, maxUploadMB int64) *ReconciliationHandler {
	return &ReconciliationHandler{
		service:     svc,
		uploadDir:   uploadDir,
		outputDir:   outputDir,
		maxUploadMB: maxUploadMB,
	}
}

func (h *ReconciliationHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)})
}

// Upload receives the two workbooks, registers a run and kicks off the
// pipeline in the background. Responds 202 with the run ID to poll.
func (h *ReconciliationHandler) Upload(c *gin.Context) {
	maestra, err := c.FormFile("maestra")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "falta el archivo 'maestra'"})
		return
	}
	compilado, err := c.FormFile("compilado")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "falta el archivo 'compilado'"})
		return
	}

	maxBytes := h.maxUploadMB << 20
	for _, f := range []struct {
		name string
		size int64
		ext  string
	}{
		{"maestra", maestra.Size, filepath.Ext(maestra.Filename)},
		{"compilado", compilado.Size, filepath.Ext(compilado.Filename)},
	} {
		if strings.ToLower(f.ext) != ".xlsx" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("'%s' debe ser un archivo .xlsx", f.name)})
			return
		}
		if f.size > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("'%s' supera el límite de %d MB", f.name, h.maxUploadMB)})
			return
		}
	}

	run, err := h.service.CreateRun(filepath.Base(maestra.Filename), filepath.Base(compilado.Filename))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	stamp := time.Now().Format("20060102_150405")
	maestraPath := filepath.Join(h.uploadDir, fmt.Sprintf("%s_maestra_%s", stamp, filepath.Base(maestra.Filename)))
	compiladoPath := filepath.Join(h.uploadDir, fmt.Sprintf("%s_compilado_%s", stamp, filepath.Base(compilado.Filename)))
	if err := c.SaveUploadedFile(maestra, maestraPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "guardando maestra: " + err.Error()})
		return
	}
	if err := c.SaveUploadedFile(compilado, compiladoPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "guardando compilado: " + err.Error()})
		return
	}

	go h.service.Process(run.ID, maestraPath, compiladoPath)

	c.JSON(http.StatusAccepted, gin.H{
		"run_id": run.ID,
		"status": run.Status,
	})
}

// GetRun returns the run row plus the in-memory stage while it is running.
func (h *ReconciliationHandler) GetRun(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}
	resp := gin.H{"run": run}
	if progress, ok := h.service.GetProgress(run.ID); ok && run.Status == models.RunStatusProcessing {
		resp["progress"] = progress
	}
	c.JSON(http.StatusOK, resp)
}

// GetKPIs returns the stored KPI report of a completed run.
func (h *ReconciliationHandler) GetKPIs(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}
	if run.Status != models.RunStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "el run no ha finalizado", "status": run.Status})
		return
	}
	c.Data(http.StatusOK, "application/json", run.KPIs)
}

func (h *ReconciliationHandler) ListRuns(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	runs, err := h.service.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// Download streams one of the three artifacts. Anti-cache headers keep
// browsers from serving a previous run's file for the same URL.
func (h *ReconciliationHandler) Download(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}
	if run.Status != models.RunStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "el run no ha finalizado", "status": run.Status})
		return
	}

	var filename string
	switch c.Param("artifact") {
	case models.ArtifactMaster:
		filename = run.MasterFile
	case models.ArtifactReport:
		filename = run.ReportFile
	case models.ArtifactPDF:
		filename = run.PDFFile
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "artefacto desconocido; use master, report o pdf"})
		return
	}
	if filename == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "el artefacto no se generó en este run"})
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.FileAttachment(filepath.Join(h.outputDir, filename), filename)
}

func (h *ReconciliationHandler) lookupRun(c *gin.Context) (*models.ReconciliationRun, bool) {
	id, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run ID inválido"})
		return nil, false
	}
	run, err := h.service.GetRun(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run no encontrado"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return run, true
}
