package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/cache"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/dedup"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/ingest"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/projection"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository/memory"
)

var testNow = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

func newTestParser(t *testing.T) *ingest.Parser {
	t.Helper()
	cfg := config.IngestConfig{HeaderScanRows: 30, CopyBeforeRead: true}
	return ingest.NewParser(nil, cfg, t.TempDir()).WithClock(func() time.Time { return testNow })
}

func newTestIngestion(t *testing.T) (*IngestionService, *memory.Repository) {
	t.Helper()
	repo := memory.New()
	return NewIngestionService(repo, newTestParser(t), nil, nil, config.IngestConfig{}), repo
}

type sheet struct {
	name string
	rows [][]any
}

func writeWorkbook(t *testing.T, name string, sheets ...sheet) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			vals := row
			if err := f.SetSheetRow(s.name, cell, &vals); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func masterWorkbook(t *testing.T) string {
	return writeWorkbook(t, "Maestro_Articulos.xlsx",
		sheet{"Maestro de Articulos", [][]any{
			{"Código", "Descripción", "Unidad de medida", "Lead Time"},
			{"000100", "Resina", "KG", 20},
			{"101", "Film", "KG", ""},
			{"100", "Resina repetida", "KG", ""},
		}},
		sheet{"Centro", [][]any{
			{"Centro", "Descripción", "País"},
			{2100, "Planta Lima", "PE"},
		}},
		sheet{"Procesos", [][]any{
			{"Clase Proceso", "Proceso", "Área"},
			{"LAM", "Laminado", "Extrusión"},
		}},
	)
}

func hasWarning(warnings []string, prefix string) bool {
	for _, w := range warnings {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}

func TestIngestRequiresMasterFirst(t *testing.T) {
	svc, repo := newTestIngestion(t)
	ctx := context.Background()
	path := writeWorkbook(t, "demanda.xlsx", sheet{"Demanda", [][]any{
		{"Fecha", "Código", "Cantidad"},
		{"2024-03-10", "100", 5},
	}})

	report, err := svc.IngestFile(ctx, path, domain.RecordDemand)
	if !errors.Is(err, ErrMasterRequired) {
		t.Fatalf("err = %v, want ErrMasterRequired", err)
	}
	if report.Success || len(report.Errors) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	uploads, err := repo.ListUploads(ctx, 10)
	if err != nil {
		t.Fatalf("ListUploads: %v", err)
	}
	if len(uploads) != 1 || uploads[0].Status != domain.UploadFailed {
		t.Fatalf("uploads = %+v, want one failed entry", uploads)
	}
}

func TestIngestMasterWorkbook(t *testing.T) {
	svc, repo := newTestIngestion(t)
	ctx := context.Background()

	report, err := svc.IngestFile(ctx, masterWorkbook(t), domain.RecordUnknown)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if report.RecordType != domain.RecordMaster {
		t.Fatalf("type = %s, want maestro", report.RecordType)
	}
	if report.Total != 3 || report.Valid != 2 || report.Ingested != 2 || report.DuplicatesRemoved != 1 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if len(report.UploadID) != 8 {
		t.Fatalf("upload id %q should have 8 chars", report.UploadID)
	}
	if !hasWarning(report.Warnings, "1 filas duplicadas") {
		t.Fatalf("missing duplicate warning in %v", report.Warnings)
	}

	masters, _ := repo.ListMasters(ctx)
	if len(masters) != 2 || masters[0].SKU != "100" || masters[0].Description != "Resina" {
		t.Fatalf("masters = %+v", masters)
	}
	procesos, _ := repo.ListProcesos(ctx)
	if len(procesos) != 1 || procesos[0].ProcessClass != "LAM" {
		t.Fatalf("procesos = %+v", procesos)
	}
}

func TestIngestMovementsWarnings(t *testing.T) {
	svc, _ := newTestIngestion(t)
	ctx := context.Background()
	if _, err := svc.IngestFile(ctx, masterWorkbook(t), domain.RecordMaster); err != nil {
		t.Fatalf("master: %v", err)
	}

	path := writeWorkbook(t, "movimientos.xlsx", sheet{"Movs", [][]any{
		{"Material", "Fecha", "Cl.Movimiento", "Cantidad", "Centro", "Almacén"},
		{"100", "2024-03-01", "CONSUMO", 10, 2100, 1},
		{"100", "2024-03-01", "TRASPASO", 4, 2100, 1},
		{"555", "2024-03-02", "VENTA", 3, 2100, 1},
		{"100", "2024-03-01", "CONSUMO", 10, 2100, 1},
	}})

	report, err := svc.IngestFile(ctx, path, domain.RecordMovements)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if report.Ingested != 3 || report.Excluded != 1 || report.DuplicatesRemoved != 0 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if !hasWarning(report.Warnings, "1 SKUs no encontrados en Maestro de Artículos") {
		t.Fatalf("missing reference warning in %v", report.Warnings)
	}
	if !hasWarning(report.Warnings, "1 movimientos de tipo 'Traspaso' excluidos") {
		t.Fatalf("missing exclusion warning in %v", report.Warnings)
	}
}

func TestIngestStockSupersedes(t *testing.T) {
	svc, repo := newTestIngestion(t)
	ctx := context.Background()
	if _, err := svc.IngestFile(ctx, masterWorkbook(t), domain.RecordMaster); err != nil {
		t.Fatalf("master: %v", err)
	}

	stock := func(q int) string {
		return writeWorkbook(t, "MB52.xlsx", sheet{"Stock", [][]any{
			{"Material", "Centro", "Almacén", "Libre utilización"},
			{"100", 2100, 1, q},
		}})
	}

	if _, err := svc.IngestFile(ctx, stock(50), domain.RecordUnknown); err != nil {
		t.Fatalf("first stock: %v", err)
	}
	report, err := svc.IngestFile(ctx, stock(70), domain.RecordUnknown)
	if err != nil {
		t.Fatalf("second stock: %v", err)
	}
	if report.RecordType != domain.RecordStock || report.Superseded != 1 || report.Ingested != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	totals, err := repo.LatestStock(ctx)
	if err != nil {
		t.Fatalf("LatestStock: %v", err)
	}
	if len(totals) != 1 || totals[0].Quantity != 70 {
		t.Fatalf("totals = %+v, want only the new snapshot", totals)
	}
}

func TestIngestClassOnlyLedgerFeedsSafetyStock(t *testing.T) {
	svc, repo := newTestIngestion(t)
	ctx := context.Background()
	if _, err := svc.IngestFile(ctx, masterWorkbook(t), domain.RecordMaster); err != nil {
		t.Fatalf("master: %v", err)
	}

	path := writeWorkbook(t, "ledger.xlsx", sheet{"Movs", [][]any{
		{"Material", "Clase de movimiento", "Fecha", "Cantidad"},
		{"100", "CONSUMO", "2024-03-01", 50},
		{"100", "VENTA", "2024-03-02", 30},
	}})
	if _, err := svc.IngestFile(ctx, path, domain.RecordMovements); err != nil {
		t.Fatalf("ledger: %v", err)
	}

	cfg := config.ProjectionConfig{HorizonDays: 30, MassDivisor: 1000, DelayDays: 3, DefaultLeadTime: 25, UsageWindowDays: 90}
	engine := projection.NewEngine(repo, cfg).WithClock(func() time.Time { return testNow })
	profiles, err := engine.SafetyStocks(ctx)
	if err != nil {
		t.Fatalf("SafetyStocks: %v", err)
	}
	if p := profiles["100"]; p.ADU <= 0 || p.Buffer <= 0 {
		t.Fatalf("profile 100 = %+v, want usage from the movement class", p)
	}
}

func TestIngestMovementsConvertUnits(t *testing.T) {
	svc, repo := newTestIngestion(t)
	ctx := context.Background()
	if _, err := svc.IngestFile(ctx, masterWorkbook(t), domain.RecordMaster); err != nil {
		t.Fatalf("master: %v", err)
	}

	path := writeWorkbook(t, "movimientos.xlsx", sheet{"Movs", [][]any{
		{"Material", "Clase de movimiento", "Fecha", "Cantidad", "Unidad de medida"},
		{"100", "CONSUMO", "2024-03-01", 2, "TON"},
		{"101", "CONSUMO", "2024-03-01", 5, "KG"},
	}})
	report, err := svc.IngestFile(ctx, path, domain.RecordMovements)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if !hasWarning(report.Warnings, "1 cantidades convertidas a unidad base") {
		t.Fatalf("missing conversion warning in %v", report.Warnings)
	}

	movs, err := repo.ListMovements(ctx, domain.MovementFilter{SKU: "100"})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if len(movs.Items) != 1 || movs.Items[0].Quantity != 2000 || movs.Items[0].Unit != "KG" {
		t.Fatalf("movements = %+v, want 2000 KG", movs.Items)
	}
}

func TestIngestMasterReportsBrokenTab(t *testing.T) {
	svc, repo := newTestIngestion(t)
	ctx := context.Background()

	path := writeWorkbook(t, "Maestro_Articulos.xlsx",
		sheet{"Maestro de Articulos", [][]any{
			{"Código", "Descripción", "Unidad de medida"},
			{"100", "Resina", "KG"},
		}},
		sheet{"Procesos", [][]any{
			{"Clase Proceso", "Área"},
			{"LAM", "Extrusión"},
		}},
	)
	report, err := svc.IngestFile(ctx, path, domain.RecordMaster)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if report.Ingested != 1 {
		t.Fatalf("master rows = %d, want 1", report.Ingested)
	}
	if !hasWarning(report.Warnings, "Procesos: ") {
		t.Fatalf("missing Procesos warning in %v", report.Warnings)
	}
	if procesos, _ := repo.ListProcesos(ctx); len(procesos) != 0 {
		t.Fatalf("procesos = %+v, want none", procesos)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	svc, repo := newTestIngestion(t)
	ctx := context.Background()

	prev, err := svc.Preview(ctx, masterWorkbook(t), "", domain.RecordUnknown)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if prev.RecordType != domain.RecordMaster || prev.Valid != 2 || prev.DetectedBy == "" {
		t.Fatalf("unexpected preview %+v", prev)
	}
	if rows, ok := prev.Rows.([]domain.MasterItem); !ok || len(rows) != 2 {
		t.Fatalf("preview rows = %#v", prev.Rows)
	}
	if n, _ := repo.CountMasters(ctx); n != 0 {
		t.Fatalf("preview persisted %d masters", n)
	}

	many, err := svc.PreviewMany(ctx, []string{masterWorkbook(t), masterWorkbook(t)})
	if err != nil {
		t.Fatalf("PreviewMany: %v", err)
	}
	if len(many) != 2 || many[1] == nil {
		t.Fatalf("PreviewMany = %v", many)
	}
}

type memoryRemote struct {
	rows []dedup.Record
}

func (m *memoryRemote) FetchPage(_ context.Context, _ string, _ []string, _ string, _ time.Time, offset, limit int) ([]dedup.Record, error) {
	if offset >= len(m.rows) {
		return nil, nil
	}
	return m.rows[offset:min(offset+limit, len(m.rows))], nil
}

func (m *memoryRemote) Insert(_ context.Context, _ string, _ []string, rows []dedup.Record) error {
	m.rows = append(m.rows, rows...)
	return nil
}

func TestSyncFileIsIdempotent(t *testing.T) {
	remote := &memoryRemote{}
	svc := NewSyncService(newTestParser(t), remote, config.RemoteConfig{MovementTable: "movs", PageSize: 2, BatchSize: 2})
	ctx := context.Background()
	path := writeWorkbook(t, "movimientos.xlsx", sheet{"Movs", [][]any{
		{"Material", "Fecha", "Cl.Movimiento", "Cantidad"},
		{"100", "2024-03-01", "CONSUMO", 10},
		{"101", "2024-03-02", "VENTA", 2.5},
		{"102", "2024-03-03", "CONSUMO", 1},
	}})

	first, err := svc.SyncFile(ctx, path, domain.RecordMovements, dedup.SyncOptions{})
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if first.Uploaded != 3 {
		t.Fatalf("first sync uploaded %d, want 3", first.Uploaded)
	}
	if got := remote.rows[0]["source_file"]; got != "movimientos.xlsx" {
		t.Fatalf("source_file = %v", got)
	}

	second, err := svc.SyncFile(ctx, path, domain.RecordMovements, dedup.SyncOptions{})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.New != 0 || second.Uploaded != 0 {
		t.Fatalf("second sync = %+v, want nothing new", second)
	}

	if _, err := svc.SyncFile(ctx, masterWorkbook(t), domain.RecordMaster, dedup.SyncOptions{}); !errors.Is(err, ErrNotSyncable) {
		t.Fatalf("err = %v, want ErrNotSyncable", err)
	}
}

type countingCache struct {
	cache.PlanningCache
	alerts map[int][]domain.Alert
	sets   int
}

func (c *countingCache) GetAlerts(_ context.Context, h int) ([]domain.Alert, bool, error) {
	a, ok := c.alerts[h]
	return a, ok, nil
}

func (c *countingCache) SetAlerts(_ context.Context, h int, alerts []domain.Alert) error {
	c.sets++
	c.alerts[h] = alerts
	return nil
}

func TestPlanningServiceCachesAlerts(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	if _, err := repo.UpsertMasters(ctx, []domain.MasterItem{{SKU: "1"}}); err != nil {
		t.Fatalf("UpsertMasters: %v", err)
	}
	engine := projection.NewEngine(repo, config.ProjectionConfig{}).WithClock(func() time.Time { return testNow })
	c := &countingCache{PlanningCache: cache.NewNoopPlanningCache(), alerts: map[int][]domain.Alert{}}
	svc := NewPlanningService(repo, engine, c)

	first, err := svc.Alerts(ctx, 30)
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	// No stock at all: the SKU is critical from yesterday.
	if len(first) != 1 || first[0].Type != domain.AlertCritical || first[0].DaysUntil != 0 {
		t.Fatalf("alerts = %+v", first)
	}
	if _, err := svc.Alerts(ctx, 30); err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if c.sets != 1 {
		t.Fatalf("cache set %d times, want 1", c.sets)
	}
	if svc.DefaultHorizon() != 30 {
		t.Fatalf("DefaultHorizon = %d", svc.DefaultHorizon())
	}
}
