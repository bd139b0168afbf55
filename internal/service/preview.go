package service

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/dedup"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

const (
	defaultPreviewRows = 20
	previewWorkers     = 4
)

// Preview is a parsed sheet that was not persisted.
type Preview struct {
	Filename   string            `json:"filename"`
	Sheet      string            `json:"sheet"`
	RecordType domain.RecordType `json:"file_type"`
	DetectedBy string            `json:"detected_by,omitempty"`
	HeaderRow  int               `json:"header_row"`
	Columns    []string          `json:"columns"`
	Mapped     map[string]string `json:"mapped_columns"`
	Total      int               `json:"total_rows"`
	Valid      int               `json:"valid_rows"`
	Excluded   int               `json:"excluded_rows"`
	Rows       any               `json:"preview"`
	Warnings   []string          `json:"warnings"`
}

// Preview parses and cleans the first sheet of path without writing anything.
func (s *IngestionService) Preview(ctx context.Context, path, filename string, t domain.RecordType) (*Preview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filename == "" {
		filename = filepath.Base(path)
	}
	wb, err := s.parser.ReadWorkbook(path)
	if err != nil {
		return nil, err
	}
	raw, err := wb.Sheet("")
	if err != nil {
		return nil, err
	}
	res, err := s.parser.ParseSheet(filename, raw, t)
	if err != nil {
		return nil, err
	}

	_, dupWarnings := dedup.DedupBatch(res.Batch)
	p := &Preview{
		Filename:   filename,
		Sheet:      res.Sheet,
		RecordType: res.Type,
		HeaderRow:  res.HeaderRow,
		Columns:    res.Columns,
		Mapped:     res.Mapped,
		Total:      res.Total,
		Valid:      res.Batch.Len(),
		Excluded:   res.Excluded,
		Rows:       sample(res.Batch, s.previewRows()),
		Warnings:   append(append([]string{}, res.Warnings...), dupWarnings...),
	}
	if res.Detection != nil {
		p.DetectedBy = res.Detection.Method
	}
	return p, nil
}

// PreviewMany parses several files in parallel. The first failure cancels
// the rest.
func (s *IngestionService) PreviewMany(ctx context.Context, paths []string) ([]*Preview, error) {
	out := make([]*Preview, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewWorkers)
	for i, p := range paths {
		g.Go(func() error {
			prev, err := s.Preview(gctx, p, "", domain.RecordUnknown)
			if err != nil {
				return err
			}
			out[i] = prev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *IngestionService) previewRows() int {
	if s.cfg.PreviewRows > 0 {
		return s.cfg.PreviewRows
	}
	return defaultPreviewRows
}

func sample(b *domain.Batch, n int) any {
	switch b.Type {
	case domain.RecordMaster:
		return head(b.Masters, n)
	case domain.RecordMovements, domain.RecordStock:
		return head(b.Movements, n)
	case domain.RecordDemand:
		return head(b.Demand, n)
	case domain.RecordProduction:
		return head(b.Production, n)
	case domain.RecordCentro:
		return head(b.Centros, n)
	case domain.RecordProceso:
		return head(b.Procesos, n)
	}
	return []any{}
}

func head[T any](rows []T, n int) []T {
	if rows == nil {
		return []T{}
	}
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
