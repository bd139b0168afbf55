package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/catalog"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/ingest"
)

// Orchestrator ingests a set of local files, masters first, one at a time.
type Orchestrator struct {
	ingester FileIngester
	cat      *catalog.Catalog
	cfg      Config
	runs     *Tracker
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates a new Orchestrator. A nil tracker keeps no history.
func NewOrchestrator(ingester FileIngester, cat *catalog.Catalog, cfg Config, runs *Tracker) *Orchestrator {
	if cat == nil {
		cat = catalog.Default()
	}
	if runs == nil {
		runs = NewTracker(0)
	}
	return &Orchestrator{
		ingester: ingester,
		cat:      cat,
		cfg:      cfg,
		runs:     runs,
		sleep:    sleepCtx,
	}
}

// Run ingests files in dependency order. Files whose type cannot be guessed
// from the name are detected by the ingester and run last. A failing file
// does not stop the others; the run is failed when any file failed.
func (o *Orchestrator) Run(ctx context.Context, files []string) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		Status:     StatusPending,
		TotalFiles: len(files),
		StartedAt:  time.Now(),
	}
	guesses := make(map[*FileJob]domain.RecordType, len(files))
	for _, f := range files {
		job := &FileJob{FilePath: f, Status: FileStatusQueued}
		// The name alone only orders the run. The ingester detects the
		// type from the header.
		guesses[job] = ingest.DetectRecordType(filepath.Base(f), nil, o.cat)
		run.Jobs = append(run.Jobs, job)
	}
	sort.SliceStable(run.Jobs, func(i, j int) bool {
		return priority(guesses[run.Jobs[i]]) < priority(guesses[run.Jobs[j]])
	})
	o.runs.Put(run)

	log.Info().Str("run", run.ID).Int("files", len(files)).Msg("Starting ingestion run")
	run.Status = StatusProcessing

	failed := 0
	for _, job := range run.Jobs {
		if err := ctx.Err(); err != nil {
			o.finish(run, StatusFailed, err.Error())
			return run, err
		}
		if err := o.process(ctx, job); err != nil {
			failed++
			log.Error().Err(err).Str("run", run.ID).Str("file", job.FilePath).Msg("File ingestion failed")
			continue
		}
		run.ProcessedFiles++
		run.TotalRows += job.Report.Ingested
	}

	if failed > 0 {
		msg := fmt.Sprintf("%d of %d files failed", failed, len(files))
		o.finish(run, StatusFailed, msg)
		return run, nil
	}
	o.finish(run, StatusCompleted, "")
	log.Info().
		Str("run", run.ID).
		Int("files", run.ProcessedFiles).
		Int("rows", run.TotalRows).
		Msg("Ingestion run completed")
	return run, nil
}

func (o *Orchestrator) finish(run *Run, status RunStatus, msg string) {
	now := time.Now()
	run.Status = status
	run.ErrorMessage = msg
	run.CompletedAt = &now
	o.runs.Put(run)
}

// priority orders master data before the sheets validated against it.
func priority(t domain.RecordType) int {
	switch t {
	case domain.RecordMaster:
		return 0
	case domain.RecordCentro, domain.RecordProceso:
		return 1
	case domain.RecordUnknown:
		return 3
	}
	return 2
}
