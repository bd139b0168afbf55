package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/dedup"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/ingest"
)

// ErrNotSyncable is returned for record types with no remote table.
var ErrNotSyncable = errors.New("only movement and production files can be synced")

// SyncService pushes the new rows of ledger and plan exports to the remote
// database.
type SyncService struct {
	parser *ingest.Parser
	syncer *dedup.Syncer
	cfg    config.RemoteConfig
}

func NewSyncService(parser *ingest.Parser, store dedup.RemoteStore, cfg config.RemoteConfig) *SyncService {
	return &SyncService{
		parser: parser,
		syncer: dedup.NewSyncer(store, cfg.PageSize, cfg.BatchSize),
		cfg:    cfg,
	}
}

// SyncFile parses the first sheet of path and uploads the rows whose
// signature is not stored remotely yet.
func (s *SyncService) SyncFile(ctx context.Context, path string, t domain.RecordType, opts dedup.SyncOptions) (*dedup.SyncResult, error) {
	res, err := s.parser.ParseFile(path, t, "")
	if err != nil {
		return nil, err
	}
	if opts.SourceFile == "" {
		opts.SourceFile = filepath.Base(path)
	}

	var (
		spec dedup.Spec
		rows []dedup.Record
	)
	switch res.Type {
	case domain.RecordMovements:
		spec = dedup.MovementSpec(s.cfg.MovementTable)
		rows = dedup.FromMovements(res.Batch.Movements)
	case domain.RecordProduction:
		spec = dedup.ProductionSpec(s.cfg.ProductionTable)
		rows = dedup.FromProduction(res.Batch.Production)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotSyncable, res.Type)
	}
	return s.syncer.Sync(ctx, spec, rows, opts)
}
