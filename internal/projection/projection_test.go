package projection

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository/memory"
)

var today = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

func at(offset int) time.Time { return today.AddDate(0, 0, offset) }

func lt(v float64) *float64 { return &v }

func newEngine(repo *memory.Repository) *Engine {
	cfg := config.ProjectionConfig{HorizonDays: 30, MassDivisor: 1000, DelayDays: 3, DefaultLeadTime: 25, UsageWindowDays: 90}
	return NewEngine(repo, cfg).WithClock(func() time.Time { return today.Add(15 * time.Hour) })
}

func stock(sku, centro, almacen string, kg float64) domain.MovementRecord {
	return domain.MovementRecord{
		SKU: sku, Date: today, Class: domain.ClassStock, Type: domain.TypeStockSnapshot,
		Centro: centro, Almacen: almacen, Quantity: kg,
	}
}

func seed(t *testing.T, repo *memory.Repository, masters []domain.MasterItem, movs []domain.MovementRecord, demand []domain.DemandRecord, plan []domain.ProductionPlanRecord) {
	t.Helper()
	ctx := context.Background()
	if _, err := repo.UpsertMasters(ctx, masters); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.InsertMovements(ctx, movs); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.InsertDemand(ctx, demand); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.InsertProduction(ctx, plan); err != nil {
		t.Fatal(err)
	}
}

func TestProjectRecurrence(t *testing.T) {
	repo := memory.New()
	seed(t, repo,
		[]domain.MasterItem{{SKU: "100"}},
		[]domain.MovementRecord{stock("100", "2100", "2118", 100000)},
		[]domain.DemandRecord{
			{SKU: "100", Date: at(1), DailyQuantity: 30},
			{SKU: "100", Date: at(3), DailyQuantity: 20},
		},
		[]domain.ProductionPlanRecord{{SKU: "100", Date: at(2), Programmed: 50, ProcessClass: "EXT"}},
	)

	points, err := newEngine(repo).Project(context.Background(), Request{SKU: "000100", HorizonDays: 3, Buffer: 80})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	want := []struct {
		date   string
		psoh   float64
		status domain.Status
	}{
		{"2024-03-09", 100, domain.StatusHealthy},
		{"2024-03-10", 100, domain.StatusHealthy},
		{"2024-03-11", 70, domain.StatusWarning},
		{"2024-03-12", 120, domain.StatusHealthy},
		{"2024-03-13", 100, domain.StatusHealthy},
	}
	if len(points) != len(want) {
		t.Fatalf("got %d points, want %d", len(points), len(want))
	}
	for i, w := range want {
		p := points[i]
		if p.Date != w.date || p.PSoH != w.psoh || p.Status != w.status {
			t.Errorf("point %d = %s %.2f %s, want %s %.2f %s", i, p.Date, p.PSoH, p.Status, w.date, w.psoh, w.status)
		}
		if p.Offset != i-1 {
			t.Errorf("point %d offset = %d", i, p.Offset)
		}
	}
	if got := points[3].SupplyBreakdown["EXT"]; got != 50 {
		t.Errorf("supply breakdown = %v", points[3].SupplyBreakdown)
	}
	if got := points[2].DemandBreakdown["VENTA"]; got != 30 {
		t.Errorf("demand breakdown = %v", points[2].DemandBreakdown)
	}
	if ws := points[0].StockBreakdown["2100 - 2118"]; ws.Qty != 100 || !ws.IsValid {
		t.Errorf("stock breakdown = %v", points[0].StockBreakdown)
	}
}

func TestProjectLabelsAndWarehouses(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	if _, err := repo.UpsertProcesos(ctx, []domain.ProcesoRecord{{ProcessClass: "EXT", Process: "Extrusión"}}); err != nil {
		t.Fatal(err)
	}
	invalid := stock("7", "2100", "2119", 2000)
	invalid.AlmacenValido = "NO"
	seed(t, repo,
		[]domain.MasterItem{{SKU: "7"}},
		[]domain.MovementRecord{
			stock("7", "2100", "2118", 5000),
			invalid,
			stock("7", "2100", "nan", 9000),
		},
		nil,
		[]domain.ProductionPlanRecord{
			{SKU: "9", RawMaterial: "7", Date: at(0), Consumption: 1, ProcessClass: "ext"},
			{SKU: "9", RawMaterial: "7", Date: at(0), Consumption: 2, ProcessClass: "ZZZ"},
			{SKU: "9", RawMaterial: "7", Date: at(0), Consumption: 3},
			{SKU: "7", Date: at(1), Programmed: 4},
		},
	)
	e := newEngine(repo)

	points, err := e.Project(ctx, Request{SKU: "7", HorizonDays: 1})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if points[0].PSoH != 7 {
		t.Errorf("initial = %v, want 7 (nan warehouse skipped)", points[0].PSoH)
	}
	if ws := points[0].StockBreakdown["2100 - 2119"]; ws.IsValid || ws.Qty != 2 {
		t.Errorf("invalid warehouse = %+v", ws)
	}
	d := points[1].DemandBreakdown
	if d["CONSUMO | Extrusión"] != 1 || d["CONSUMO | ZZZ"] != 2 || d["CONSUMO | OTROS"] != 3 {
		t.Errorf("demand labels = %v", d)
	}
	if points[2].SupplyBreakdown["PRODUCCION"] != 4 {
		t.Errorf("supply labels = %v", points[2].SupplyBreakdown)
	}

	filtered, err := e.Project(ctx, Request{SKU: "7", HorizonDays: 0, Warehouses: ParseWarehouses("2100 - 2118, ")})
	if err != nil {
		t.Fatal(err)
	}
	if filtered[0].PSoH != 5 || len(filtered[0].StockBreakdown) != 1 {
		t.Errorf("filtered = %+v", filtered[0])
	}

	empty, err := e.Project(ctx, Request{SKU: "7", HorizonDays: 0, Warehouses: ParseWarehouses("")})
	if err != nil {
		t.Fatal(err)
	}
	if empty[0].PSoH != 0 || empty[0].Status != domain.StatusCritical {
		t.Errorf("empty filter = %+v", empty[0])
	}
}

func TestProjectInvalidHorizon(t *testing.T) {
	if _, err := newEngine(memory.New()).Project(context.Background(), Request{SKU: "1", HorizonDays: -1}); err != ErrInvalidHorizon {
		t.Errorf("err = %v", err)
	}
}

func TestBuffer(t *testing.T) {
	if got := Buffer(10, 20, 0.3); math.Abs(got-80) > 1e-9 {
		t.Errorf("Buffer = %v, want 80", got)
	}

	tiers := []struct {
		cov, want float64
	}{
		{0, 0.2}, {0.5, 0.2}, {0.6, 0.4}, {0.79, 0.4}, {0.8, 0.7}, {2, 0.7},
	}
	for _, tt := range tiers {
		if got := VariabilityFactor(tt.cov); got != tt.want {
			t.Errorf("VariabilityFactor(%v) = %v, want %v", tt.cov, got, tt.want)
		}
	}
}

func TestComputeProfile(t *testing.T) {
	daily := make([]float64, 91)
	for i := range daily {
		daily[i] = 10
	}
	p := ComputeProfile("1", daily, 20)
	if p.ADU != 10 || p.StdDev != 0 || p.CoV != 0 || math.Abs(p.Buffer-80) > 1e-9 {
		t.Errorf("profile = %+v", p)
	}

	if p := ComputeProfile("2", []float64{0, 0}, 0); p.LeadTime != DefaultLeadTime || p.Buffer != 0 || p.CoV != 0 {
		t.Errorf("zero usage profile = %+v", p)
	}
	if p := ComputeProfile("3", []float64{4}, 10); p.StdDev != 0 || p.ADU != 4 {
		t.Errorf("single day profile = %+v", p)
	}
}

func TestSafetyStocks(t *testing.T) {
	repo := memory.New()
	usage := func(sku string, d time.Time, q float64) domain.MovementRecord {
		return domain.MovementRecord{SKU: sku, Date: d, Class: domain.ClassConsumo, Quantity: q}
	}
	last := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	seed(t, repo,
		[]domain.MasterItem{{SKU: "1", LeadTimeDays: lt(10)}, {SKU: "2"}},
		[]domain.MovementRecord{
			usage("1", last, 91),
			usage("1", last.AddDate(0, 0, -5), -5),
			usage("1", last.AddDate(0, 0, -91), 1000),
		},
		nil, nil,
	)

	profiles, err := newEngine(repo).SafetyStocks(context.Background())
	if err != nil {
		t.Fatalf("SafetyStocks: %v", err)
	}
	p := profiles["1"]
	if math.Abs(p.ADU-1) > 1e-9 || p.VariabilityFactor != 0.7 || math.Abs(p.Buffer-9) > 1e-9 {
		t.Errorf("profile 1 = %+v", p)
	}
	if q := profiles["2"]; q.Buffer != 0 || q.LeadTime != 25 {
		t.Errorf("profile 2 = %+v", q)
	}
}

func TestSafetyStocksWithoutUsage(t *testing.T) {
	repo := memory.New()
	seed(t, repo, []domain.MasterItem{{SKU: "1"}}, nil, nil, nil)
	profiles, err := newEngine(repo).SafetyStocks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := profiles["1"]; !ok || p.Buffer != 0 {
		t.Errorf("profiles = %+v", profiles)
	}
}

func TestScanAlerts(t *testing.T) {
	repo := memory.New()
	last := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	seed(t, repo,
		[]domain.MasterItem{{SKU: "1"}, {SKU: "2", LeadTimeDays: lt(10)}, {SKU: "3"}, {SKU: "4"}, {SKU: "5"}},
		[]domain.MovementRecord{
			stock("2", "2100", "2118", 100000),
			stock("3", "2100", "2118", 10000),
			stock("4", "2100", "2118", 50000),
			stock("5", "2100", "2118", 10000),
			{SKU: "2", Date: last, Class: domain.ClassVenta, Type: "VENTA", Quantity: 91},
		},
		[]domain.DemandRecord{
			{SKU: "2", Date: at(3), DailyQuantity: 95},
			{SKU: "5", Date: at(5), DailyQuantity: 20},
		},
		[]domain.ProductionPlanRecord{
			{SKU: "3", Date: at(1), Programmed: 20},
			{SKU: "9", RawMaterial: "3", Date: at(2), Consumption: 25},
		},
	)

	alerts, err := newEngine(repo).ScanAlerts(context.Background(), 30)
	if err != nil {
		t.Fatalf("ScanAlerts: %v", err)
	}

	want := []domain.Alert{
		{SKU: "1", Type: domain.AlertCritical, Date: "2024-03-09", PSoH: 0, DaysUntil: 0},
		{SKU: "5", Type: domain.AlertCritical, Date: "2024-03-15", PSoH: -10, DaysUntil: 5},
		{SKU: "3", Type: domain.AlertDelayRisk, Date: "2024-03-10", PSoH: 0, DaysUntil: 0},
		{SKU: "2", Type: domain.AlertWarning, Date: "2024-03-13", PSoH: 5, DaysUntil: 3},
	}
	if len(alerts) != len(want) {
		t.Fatalf("alerts = %+v", alerts)
	}
	for i := range want {
		if alerts[i] != want[i] {
			t.Errorf("alert %d = %+v, want %+v", i, alerts[i], want[i])
		}
	}
}

func TestStockReplacementDrivesProjection(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	seed(t, repo, []domain.MasterItem{{SKU: "1"}}, nil, nil, nil)

	first := stock("1", "2100", "2118", 5000)
	first.Date = at(-3)
	if _, _, err := repo.ReplaceStock(ctx, []domain.MovementRecord{first}); err != nil {
		t.Fatal(err)
	}
	superseded, _, err := repo.ReplaceStock(ctx, []domain.MovementRecord{stock("1", "2100", "2118", 8000)})
	if err != nil {
		t.Fatal(err)
	}
	if superseded != 1 {
		t.Errorf("superseded = %d, want 1", superseded)
	}

	points, err := newEngine(repo).Project(ctx, Request{SKU: "1", HorizonDays: 0})
	if err != nil {
		t.Fatal(err)
	}
	if points[0].PSoH != 8 {
		t.Errorf("initial = %v, want 8", points[0].PSoH)
	}
}

func TestScanAlertsUsesEachSKULatestSnapshot(t *testing.T) {
	repo := memory.New()
	older := stock("A", "2100", "2118", 50000)
	older.Date = at(-3)
	seed(t, repo,
		[]domain.MasterItem{{SKU: "A"}, {SKU: "B"}},
		[]domain.MovementRecord{older, stock("B", "2100", "2118", 40000)},
		nil, nil,
	)
	engine := newEngine(repo)
	ctx := context.Background()

	points, err := engine.Project(ctx, Request{SKU: "A", HorizonDays: 0})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if points[0].PSoH != 50 {
		t.Fatalf("initial A = %v, want 50", points[0].PSoH)
	}

	alerts, err := engine.ScanAlerts(ctx, 30)
	if err != nil {
		t.Fatalf("ScanAlerts: %v", err)
	}
	for _, a := range alerts {
		if a.Type == domain.AlertCritical {
			t.Errorf("unexpected critical alert %+v", a)
		}
	}

	rows, err := repo.LatestStock(ctx)
	if err != nil {
		t.Fatalf("LatestStock: %v", err)
	}
	got := map[string]float64{}
	for _, r := range rows {
		got[r.SKU] += r.Quantity
	}
	if got["A"] != 50000 || got["B"] != 40000 {
		t.Errorf("latest stock = %v", got)
	}
}
