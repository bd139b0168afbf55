package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository/memory"
)

type fakeIngester struct {
	order    []string
	failures map[string][]error
}

func (f *fakeIngester) IngestFile(_ context.Context, path string, t domain.RecordType) (*domain.ReconciliationReport, error) {
	f.order = append(f.order, path)
	if errs := f.failures[path]; len(errs) > 0 {
		f.failures[path] = errs[1:]
		if errs[0] != nil {
			return nil, errs[0]
		}
	}
	return &domain.ReconciliationReport{Filename: path, RecordType: domain.RecordMaster, Ingested: 2}, nil
}

func newTestOrchestrator(ing FileIngester, attempts int) *Orchestrator {
	o := NewOrchestrator(ing, nil, Config{RetryAttempts: attempts}, NewTracker(0))
	o.sleep = func(context.Context, time.Duration) error { return nil }
	return o
}

func TestRunOrdersMastersFirst(t *testing.T) {
	ing := &fakeIngester{}
	o := newTestOrchestrator(ing, 1)

	run, err := o.Run(context.Background(), []string{"mb52_stock.xlsx", "desconocido.xlsx", "Maestro_Articulos.xlsx", "ventaproy.xlsx"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"Maestro_Articulos.xlsx", "mb52_stock.xlsx", "ventaproy.xlsx", "desconocido.xlsx"}
	if fmt.Sprint(ing.order) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", ing.order, want)
	}
	if run.Status != StatusCompleted || run.ProcessedFiles != 4 || run.TotalRows != 8 {
		t.Fatalf("unexpected run %+v", run)
	}
	if _, ok := o.runs.Get(run.ID); !ok {
		t.Fatal("run not tracked")
	}
}

func TestRunRetriesOnlyPersistenceFailures(t *testing.T) {
	persist := fmt.Errorf("%w: db down", ErrPersist)
	structural := errors.New("faltan columnas")

	tests := []struct {
		name        string
		failures    []error
		wantCalls   int
		wantStatus  RunStatus
		wantRetries int
	}{
		{"transient then ok", []error{persist}, 2, StatusCompleted, 1},
		{"persistent failure", []error{persist, persist, persist, persist}, 3, StatusFailed, 3},
		{"structural is not retried", []error{structural}, 1, StatusFailed, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &fakeIngester{failures: map[string][]error{"maestro.xlsx": tt.failures}}
			run, err := newTestOrchestrator(ing, 3).Run(context.Background(), []string{"maestro.xlsx"})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(ing.order) != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", len(ing.order), tt.wantCalls)
			}
			if run.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", run.Status, tt.wantStatus)
			}
			if run.Jobs[0].RetryCount != tt.wantRetries {
				t.Fatalf("retries = %d, want %d", run.Jobs[0].RetryCount, tt.wantRetries)
			}
		})
	}
}

func TestSinksSupersedeStock(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	sinks := NewSinks(repo)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	stock := func(sku string, q float64) domain.MovementRecord {
		return domain.MovementRecord{SKU: sku, Class: domain.ClassStock, Type: domain.TypeStockSnapshot, Date: day, Quantity: q}
	}

	first := &domain.Batch{Type: domain.RecordStock, Movements: []domain.MovementRecord{stock("1", 5), stock("2", 7)}}
	if _, err := sinks.Write(ctx, first); err != nil {
		t.Fatalf("Write: %v", err)
	}
	second := &domain.Batch{Type: domain.RecordStock, Movements: []domain.MovementRecord{stock("1", 9)}}
	res, err := sinks.Write(ctx, second)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Superseded != 1 || res.Ingested != 1 {
		t.Fatalf("result = %+v, want 1 superseded and 1 ingested", res)
	}

	empty := &domain.Batch{Type: domain.RecordDemand}
	if res, err := sinks.Write(ctx, empty); err != nil || res.Ingested != 0 {
		t.Fatalf("empty batch = %+v, %v", res, err)
	}
	if _, err := sinks.Write(ctx, &domain.Batch{Type: domain.RecordUnknown}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestTrackerEvictsOldest(t *testing.T) {
	tr := NewTracker(2)
	base := time.Now()
	for i := 0; i < 3; i++ {
		tr.Put(&Run{ID: fmt.Sprint(i), StartedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	if _, ok := tr.Get("0"); ok {
		t.Fatal("oldest run should be evicted")
	}
	runs := tr.List()
	if len(runs) != 2 || runs[0].ID != "2" {
		t.Fatalf("List = %v", runs)
	}
}
