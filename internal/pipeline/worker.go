package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// process ingests a single file, retrying persistence failures
func (o *Orchestrator) process(ctx context.Context, job *FileJob) error {
	startTime := time.Now()
	job.Status = FileStatusProcessing

	attempts := max(o.cfg.RetryAttempts, 1)
	for {
		report, err := o.ingester.IngestFile(ctx, job.FilePath, job.Type)
		job.Report = report
		if err == nil {
			break
		}
		job.RetryCount++
		if !errors.Is(err, ErrPersist) || job.RetryCount >= attempts {
			return o.markJobFailed(job, err)
		}
		log.Warn().Err(err).
			Str("file", job.FilePath).
			Int("attempt", job.RetryCount).
			Int("max_attempts", attempts).
			Msg("Will retry file")
		if err := o.sleep(ctx, o.cfg.RetryBackoff); err != nil {
			return o.markJobFailed(job, err)
		}
	}

	job.Status = FileStatusCompleted
	now := time.Now()
	job.ProcessedAt = &now
	if job.Report != nil {
		job.Type = job.Report.RecordType
	}

	log.Info().
		Str("file", job.FilePath).
		Dur("duration", time.Since(startTime)).
		Int("rows", job.Report.Ingested).
		Msg("Completed file")
	return nil
}

// markJobFailed records err on the job and returns it
func (o *Orchestrator) markJobFailed(job *FileJob, err error) error {
	job.Status = FileStatusFailed
	job.ErrorMessage = err.Error()
	now := time.Now()
	job.ProcessedAt = &now
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
