package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/cache"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/dedup"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/ingest"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/pipeline"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/storage"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/validation"
)

// ErrMasterRequired rejects dependent files uploaded before any article master.
var ErrMasterRequired = errors.New("ERROR CRÍTICO: Debe cargar el 'Maestro de Artículos' antes de cualquier otro archivo. El sistema necesita el maestro para identificar y validar los productos.")

type IngestionService struct {
	repo    repository.PlanningRepository
	parser  *ingest.Parser
	sinks   pipeline.Sinks
	cache   cache.PlanningCache
	archive storage.ObjectStorage
	cfg     config.IngestConfig
	newID   func() string
}

var _ pipeline.FileIngester = (*IngestionService)(nil)

// NewIngestionService wires the parse, validate and persist steps. cacheImpl
// and archive may be nil.
func NewIngestionService(repo repository.PlanningRepository, parser *ingest.Parser, cacheImpl cache.PlanningCache, archive storage.ObjectStorage, cfg config.IngestConfig) *IngestionService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopPlanningCache()
	}
	if cfg.CentroSheet == "" {
		cfg.CentroSheet = "Centro"
	}
	if cfg.ProcesoSheet == "" {
		cfg.ProcesoSheet = "Procesos"
	}
	return &IngestionService{
		repo:    repo,
		parser:  parser,
		sinks:   pipeline.NewSinks(repo),
		cache:   cacheImpl,
		archive: archive,
		cfg:     cfg,
		newID:   func() string { return uuid.NewString()[:8] },
	}
}

// IngestFile ingests a local file under its own name.
func (s *IngestionService) IngestFile(ctx context.Context, path string, t domain.RecordType) (*domain.ReconciliationReport, error) {
	return s.Ingest(ctx, path, filepath.Base(path), t)
}

// Ingest parses the first sheet of the workbook at path and persists it.
// filename is the name reported to the user and used for detection. The
// report is returned even when err is not nil.
func (s *IngestionService) Ingest(ctx context.Context, path, filename string, t domain.RecordType) (*domain.ReconciliationReport, error) {
	report := &domain.ReconciliationReport{
		UploadID:   s.newID(),
		Filename:   filename,
		RecordType: t,
		Warnings:   []string{},
	}
	fail := func(err error) (*domain.ReconciliationReport, error) {
		report.Errors = append(report.Errors, err.Error())
		s.logUpload(ctx, report, err)
		log.Warn().Err(err).Str("file", filename).Str("upload_id", report.UploadID).Msg("Ingestion rejected")
		return report, err
	}

	wb, err := s.parser.ReadWorkbook(path)
	if err != nil {
		return fail(err)
	}
	raw, err := wb.Sheet("")
	if err != nil {
		return fail(err)
	}
	res, err := s.parser.ParseSheet(filename, raw, t)
	if err != nil {
		return fail(err)
	}
	batch := res.Batch
	report.RecordType = res.Type
	report.Total = res.Total
	report.Excluded = res.Excluded
	report.Warnings = append(report.Warnings, res.Warnings...)
	kept := batch.Len()

	if res.Type.RequiresMaster() {
		n, err := s.repo.CountMasters(ctx)
		if err != nil {
			return fail(fmt.Errorf("failed to count masters: %w", err))
		}
		if n == 0 {
			return fail(ErrMasterRequired)
		}
	}

	removed, dupWarnings := dedup.DedupBatch(batch)
	report.DuplicatesRemoved = removed
	report.Warnings = append(report.Warnings, dupWarnings...)

	if res.Type.RequiresMaster() {
		master, err := validation.LoadMasterCache(ctx, s.repo)
		if err != nil {
			return fail(err)
		}
		check := master.ValidateSKUs(batch.SKUs())
		report.Warnings = append(report.Warnings, check.Warnings...)

		if res.Type == domain.RecordMovements {
			_, _, unitWarnings := validation.NewUnitNormalizer(master).NormalizeMovements(batch.Movements)
			report.Warnings = append(report.Warnings, unitWarnings...)
		}
	}

	written, err := s.sinks.Write(ctx, batch)
	if err != nil {
		return fail(err)
	}
	report.Valid = batch.Len()
	report.Invalid = max(0, report.Total-report.Excluded-kept)
	report.Ingested = written.Ingested
	report.Superseded = written.Superseded

	if res.Type == domain.RecordMaster {
		s.ingestMasterTabs(ctx, wb, filename, report)
	}

	report.Success = true
	s.logUpload(ctx, report, nil)

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("ingestion: cache invalidation failed")
	}
	s.archiveFile(ctx, path, report)

	log.Info().
		Str("upload_id", report.UploadID).
		Str("file", filename).
		Str("type", report.RecordType.String()).
		Int("total", report.Total).
		Int("ingested", report.Ingested).
		Int("superseded", report.Superseded).
		Int("warnings", len(report.Warnings)).
		Msg("Ingestion completed")
	return report, nil
}

// ingestMasterTabs loads the optional plant and process tabs of a master
// workbook. Their problems never fail the master upload; they are reported
// as warnings prefixed with the tab name.
func (s *IngestionService) ingestMasterTabs(ctx context.Context, wb *ingest.Workbook, filename string, report *domain.ReconciliationReport) {
	tabs := []struct {
		sheet  string
		t      domain.RecordType
		prefix string
	}{
		{s.cfg.CentroSheet, domain.RecordCentro, "Centro: "},
		{s.cfg.ProcesoSheet, domain.RecordProceso, "Procesos: "},
	}

	for _, tab := range tabs {
		raw, err := wb.Sheet(tab.sheet)
		if err != nil {
			log.Info().Str("sheet", tab.sheet).Msg("Master workbook has no such tab")
			continue
		}
		res, err := s.parser.ParseSheet(filename, raw, tab.t)
		if err != nil {
			log.Warn().Err(err).Str("sheet", tab.sheet).Msg("Could not process master tab")
			report.Warnings = append(report.Warnings, tab.prefix+err.Error())
			continue
		}
		warnings := res.Warnings
		if _, dw := dedup.DedupBatch(res.Batch); len(dw) > 0 {
			warnings = append(warnings, dw...)
		}
		if _, err := s.sinks.Write(ctx, res.Batch); err != nil {
			log.Warn().Err(err).Str("sheet", tab.sheet).Msg("Could not store master tab")
			report.Warnings = append(report.Warnings, tab.prefix+err.Error())
			continue
		}
		for _, w := range warnings {
			report.Warnings = append(report.Warnings, tab.prefix+w)
		}
	}
}

func (s *IngestionService) logUpload(ctx context.Context, report *domain.ReconciliationReport, cause error) {
	now := time.Now()
	entry := &domain.UploadLog{
		UploadID:       report.UploadID,
		Filename:       report.Filename,
		FileType:       report.RecordType.String(),
		RecordsTotal:   report.Total,
		RecordsValid:   report.Valid,
		RecordsInvalid: report.Invalid,
		Status:         domain.UploadCompleted,
		CreatedAt:      now,
		CompletedAt:    &now,
	}
	if cause != nil {
		entry.Status = domain.UploadFailed
		entry.ErrorMessage = cause.Error()
	}
	if err := s.repo.LogUpload(ctx, entry); err != nil {
		log.Warn().Err(err).Str("upload_id", report.UploadID).Msg("ingestion: upload history write failed")
	}
}

// archiveFile keeps a copy of every accepted workbook in object storage.
func (s *IngestionService) archiveFile(ctx context.Context, src string, report *domain.ReconciliationReport) {
	if s.archive == nil {
		return
	}
	data, err := os.ReadFile(src)
	if err != nil {
		log.Warn().Err(err).Str("file", src).Msg("ingestion: could not read file for archive")
		return
	}
	key := storage.ArchiveKey(time.Now(), report.UploadID, report.Filename)
	if err := s.archive.UploadObject(ctx, key, data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("ingestion: archive upload failed")
	}
}
