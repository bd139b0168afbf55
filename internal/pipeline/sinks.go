package pipeline

import (
	"context"
	"fmt"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository"
)

// SinkResult counts what a sink wrote.
type SinkResult struct {
	Ingested   int
	Superseded int
}

// Sink persists the batch of one record type.
type Sink interface {
	Write(ctx context.Context, b *domain.Batch) (SinkResult, error)
}

type sinkFunc func(ctx context.Context, b *domain.Batch) (SinkResult, error)

func (f sinkFunc) Write(ctx context.Context, b *domain.Batch) (SinkResult, error) {
	return f(ctx, b)
}

// Sinks binds every record type to its write path on repo.
type Sinks map[domain.RecordType]Sink

func NewSinks(repo repository.PlanningRepository) Sinks {
	count := func(write func(ctx context.Context, b *domain.Batch) (int, error)) Sink {
		return sinkFunc(func(ctx context.Context, b *domain.Batch) (SinkResult, error) {
			n, err := write(ctx, b)
			return SinkResult{Ingested: n}, err
		})
	}

	return Sinks{
		domain.RecordMaster: count(func(ctx context.Context, b *domain.Batch) (int, error) {
			return repo.UpsertMasters(ctx, b.Masters)
		}),
		domain.RecordCentro: count(func(ctx context.Context, b *domain.Batch) (int, error) {
			return repo.UpsertCentros(ctx, b.Centros)
		}),
		domain.RecordProceso: count(func(ctx context.Context, b *domain.Batch) (int, error) {
			return repo.UpsertProcesos(ctx, b.Procesos)
		}),
		domain.RecordDemand: count(func(ctx context.Context, b *domain.Batch) (int, error) {
			return repo.InsertDemand(ctx, b.Demand)
		}),
		domain.RecordMovements: count(func(ctx context.Context, b *domain.Batch) (int, error) {
			return repo.InsertMovements(ctx, b.Movements)
		}),
		domain.RecordProduction: count(func(ctx context.Context, b *domain.Batch) (int, error) {
			return repo.InsertProduction(ctx, b.Production)
		}),
		// A stock upload supersedes the previous snapshot of the same SKUs.
		domain.RecordStock: sinkFunc(func(ctx context.Context, b *domain.Batch) (SinkResult, error) {
			superseded, inserted, err := repo.ReplaceStock(ctx, b.Movements)
			return SinkResult{Ingested: inserted, Superseded: superseded}, err
		}),
	}
}

// Write routes b to the sink of its type. Empty batches are not written.
func (s Sinks) Write(ctx context.Context, b *domain.Batch) (SinkResult, error) {
	sink, ok := s[b.Type]
	if !ok {
		return SinkResult{}, fmt.Errorf("no sink for record type %s", b.Type)
	}
	if b.Len() == 0 {
		return SinkResult{}, nil
	}
	res, err := sink.Write(ctx, b)
	if err != nil {
		return SinkResult{}, fmt.Errorf("%w: %s: %v", ErrPersist, b.Type, err)
	}
	return res, nil
}
