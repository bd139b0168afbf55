package handlers

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/dedup"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/pipeline"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/service"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/storage"
)

// Runner ingests several local files as one tracked run.
type Runner interface {
	Run(ctx context.Context, files []string) (*pipeline.Run, error)
}

type IngestHandler struct {
	ingestion *service.IngestionService
	sync      *service.SyncService
	runner    Runner
	runs      *pipeline.Tracker
	intake    storage.ObjectStorage
	tempDir   string
}

// NewIngestHandler wires the upload endpoints. sync, runner, runs and intake
// are optional.
func NewIngestHandler(ingestion *service.IngestionService, sync *service.SyncService, runner Runner, runs *pipeline.Tracker, intake storage.ObjectStorage, tempDir string) *IngestHandler {
	return &IngestHandler{
		ingestion: ingestion,
		sync:      sync,
		runner:    runner,
		runs:      runs,
		intake:    intake,
		tempDir:   tempDir,
	}
}

// Upload ingests one file. The type comes from the path, "auto" detects it.
func (h *IngestHandler) Upload(c *gin.Context) {
	t, err := recordTypeParam(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid file type", err)
		return
	}

	filePath, filename, dir, err := saveUpload(c, h.tempDir, "file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid form data", err)
		return
	}
	defer os.RemoveAll(dir)

	report, err := h.ingestion.Ingest(c.Request.Context(), filePath, filename, t)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "ingestion failed", "details": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// UploadBatch ingests every file of the "files" field as one run, masters
// first.
func (h *IngestHandler) UploadBatch(c *gin.Context) {
	if h.runner == nil {
		errorResponse(c, http.StatusNotImplemented, "batch ingestion is not configured", nil)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid form data", err)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		errorResponse(c, http.StatusBadRequest, "no files provided", nil)
		return
	}

	dir, err := tempWorkDir(h.tempDir, "batch-*")
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to prepare upload dir", err)
		return
	}
	defer os.RemoveAll(dir)

	paths := make([]string, 0, len(files))
	for _, file := range files {
		p := filepath.Join(dir, filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, p); err != nil {
			log.Error().Err(err).Str("filename", file.Filename).Msg("failed to save uploaded file")
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		errorResponse(c, http.StatusBadRequest, "no valid files to process", nil)
		return
	}

	h.respondRun(c, paths)
}

// Preview parses an uploaded file without storing it.
func (h *IngestHandler) Preview(c *gin.Context) {
	t, err := recordTypeParam(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid file type", err)
		return
	}

	filePath, filename, dir, err := saveUpload(c, h.tempDir, "file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid form data", err)
		return
	}
	defer os.RemoveAll(dir)

	preview, err := h.ingestion.Preview(c.Request.Context(), filePath, filename, t)
	if err != nil {
		errorResponse(c, statusFor(err), "preview failed", err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Sync pushes the new rows of a movement or production export to the remote
// database. Query: since=YYYY-MM-DD, dry_run=true.
func (h *IngestHandler) Sync(c *gin.Context) {
	if h.sync == nil {
		errorResponse(c, http.StatusNotImplemented, "remote sync is not configured", nil)
		return
	}
	t, err := recordTypeParam(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid file type", err)
		return
	}
	since, err := parseDateParam(c, "since")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid since date", err)
		return
	}
	dryRun, _ := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))

	filePath, filename, dir, err := saveUpload(c, h.tempDir, "file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid form data", err)
		return
	}
	defer os.RemoveAll(dir)

	opts := dedup.SyncOptions{SourceFile: filename, DryRun: dryRun}
	if since != nil {
		opts.Since = *since
	}
	res, err := h.sync.SyncFile(c.Request.Context(), filePath, t, opts)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "sync failed", "details": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

// IngestStorage downloads the workbooks under a bucket prefix and ingests
// them as one run.
func (h *IngestHandler) IngestStorage(c *gin.Context) {
	if h.intake == nil || h.runner == nil {
		errorResponse(c, http.StatusNotImplemented, "object storage intake is not configured", nil)
		return
	}
	prefix := strings.TrimSpace(c.Query("prefix"))

	objects, err := h.intake.ListObjects(c.Request.Context(), prefix)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to list objects", err)
		return
	}

	dir, err := tempWorkDir(h.tempDir, "storage-*")
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to prepare download dir", err)
		return
	}
	defer os.RemoveAll(dir)

	var paths []string
	for _, obj := range objects {
		if !isWorkbook(obj.Key) {
			continue
		}
		dest := filepath.Join(dir, path.Base(obj.Key))
		if err := h.intake.DownloadObject(c.Request.Context(), obj.Key, dest); err != nil {
			errorResponse(c, http.StatusBadGateway, "failed to download object", err)
			return
		}
		paths = append(paths, dest)
	}
	if len(paths) == 0 {
		errorResponse(c, http.StatusBadRequest, "no workbooks found under prefix", nil)
		return
	}

	h.respondRun(c, paths)
}

func (h *IngestHandler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusOK, []*pipeline.Run{})
		return
	}
	c.JSON(http.StatusOK, h.runs.List())
}

func (h *IngestHandler) GetRun(c *gin.Context) {
	if h.runs != nil {
		if run, ok := h.runs.Get(c.Param("id")); ok {
			c.JSON(http.StatusOK, run)
			return
		}
	}
	errorResponse(c, http.StatusNotFound, "run not found", nil)
}

func (h *IngestHandler) respondRun(c *gin.Context, paths []string) {
	run, err := h.runner.Run(c.Request.Context(), paths)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "ingestion run failed", err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func isWorkbook(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return true
	}
	return false
}
