package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

var (
	// ErrRemoteFetch aborts a sync: without the full set of existing
	// signatures every row would look new.
	ErrRemoteFetch = errors.New("fetching existing remote records failed")
	// ErrRemoteUpload reports that at least one batch was not inserted.
	ErrRemoteUpload = errors.New("uploading records failed")
)

const (
	DefaultPageSize  = 1000
	DefaultBatchSize = 1000
)

// RemoteStore is the append-only table the syncer reconciles against.
type RemoteStore interface {
	// FetchPage returns up to limit rows with dateColumn >= minDate, skipping
	// offset rows. Only columns are populated.
	FetchPage(ctx context.Context, table string, columns []string, dateColumn string, minDate time.Time, offset, limit int) ([]Record, error)
	Insert(ctx context.Context, table string, columns []string, rows []Record) error
}

// SyncOptions tune a single run.
type SyncOptions struct {
	// Since drops local rows dated before it. Zero keeps everything.
	Since time.Time
	// SourceFile is written to Spec.SourceColumn when both are set.
	SourceFile string
	// DryRun computes the new rows without uploading them.
	DryRun bool
}

// SyncResult summarizes one reconciliation.
type SyncResult struct {
	Table    string `json:"table"`
	Local    int    `json:"local"`
	Filtered int    `json:"filtered"`
	Existing int    `json:"existing"`
	New      int    `json:"new"`
	Uploaded int    `json:"uploaded"`
	Batches  int    `json:"batches"`
	Failed   int    `json:"failed_batches"`
	DryRun   bool   `json:"dry_run"`
}

// Syncer uploads the rows of a batch whose signatures are not yet stored
// remotely.
type Syncer struct {
	store     RemoteStore
	pageSize  int
	batchSize int
}

func NewSyncer(store RemoteStore, pageSize, batchSize int) *Syncer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Syncer{store: store, pageSize: pageSize, batchSize: batchSize}
}

// Sync fetches the existing signatures dated on or after the earliest local
// row and inserts the rest. Rows repeated inside rows are all uploaded.
func (s *Syncer) Sync(ctx context.Context, spec Spec, rows []Record, opts SyncOptions) (*SyncResult, error) {
	res := &SyncResult{Table: spec.Table, Local: len(rows), DryRun: opts.DryRun}

	if !opts.Since.IsZero() {
		kept := rows[:0:0]
		for _, r := range rows {
			if d, ok := asDate(r[spec.DateColumn]); ok && !d.Before(opts.Since) {
				kept = append(kept, r)
			}
		}
		res.Filtered = len(rows) - len(kept)
		rows = kept
	}
	if len(rows) == 0 {
		log.Info().Str("table", spec.Table).Msg("No rows to sync")
		return res, nil
	}

	minDate := spec.MinDate(rows)
	existing, err := s.existing(ctx, spec, minDate)
	if err != nil {
		return res, err
	}
	res.Existing = len(existing)

	var fresh []Record
	for _, r := range rows {
		if _, ok := existing[spec.Signature(r)]; ok {
			continue
		}
		if spec.SourceColumn != "" && opts.SourceFile != "" {
			r[spec.SourceColumn] = opts.SourceFile
		}
		fresh = append(fresh, r)
	}
	res.New = len(fresh)

	log.Info().
		Str("table", spec.Table).
		Int("local", len(rows)).
		Int("existing", res.Existing).
		Int("new", res.New).
		Msg("Identified new records")

	if opts.DryRun || len(fresh) == 0 {
		return res, nil
	}

	columns := spec.Columns
	if spec.SourceColumn != "" && opts.SourceFile != "" {
		columns = append(append([]string(nil), columns...), spec.SourceColumn)
	}

	var uploadErr error
	for start := 0; start < len(fresh); start += s.batchSize {
		end := min(start+s.batchSize, len(fresh))
		res.Batches++
		if err := s.store.Insert(ctx, spec.Table, columns, fresh[start:end]); err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("%w: %w", ErrRemoteUpload, ctx.Err())
			}
			res.Failed++
			uploadErr = errors.Join(uploadErr, fmt.Errorf("batch %d: %w", res.Batches, err))
			log.Error().Err(err).Str("table", spec.Table).Int("batch", res.Batches).Msg("Failed to upload batch")
			continue
		}
		res.Uploaded += end - start
		log.Info().
			Str("table", spec.Table).
			Int("batch", res.Batches).
			Msgf("Uploaded %d/%d", res.Uploaded, len(fresh))
	}
	if uploadErr != nil {
		return res, fmt.Errorf("%w: %w", ErrRemoteUpload, uploadErr)
	}
	return res, nil
}

func (s *Syncer) existing(ctx context.Context, spec Spec, minDate time.Time) (map[string]struct{}, error) {
	log.Info().Str("table", spec.Table).Str("since", minDate.Format(domain.DateLayout)).Msg("Fetching existing records")

	sigs := make(map[string]struct{})
	for offset := 0; ; offset += s.pageSize {
		page, err := s.store.FetchPage(ctx, spec.Table, spec.Fields, spec.DateColumn, minDate, offset, s.pageSize)
		if err != nil {
			log.Error().Err(err).Str("table", spec.Table).Int("offset", offset).Msg("Critical error fetching existing records")
			return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, err)
		}
		for _, r := range page {
			sigs[spec.Signature(r)] = struct{}{}
		}
		if len(page) < s.pageSize {
			break
		}
	}
	return sigs, nil
}
