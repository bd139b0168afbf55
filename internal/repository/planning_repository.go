package repository

import (
	"context"
	"time"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

// PlanningRepository stores cleaned records and serves the aggregate reads
// used by projection and alerting.
type PlanningRepository interface {
	// Writes. Each returns the number of rows written.
	UpsertMasters(ctx context.Context, items []domain.MasterItem) (int, error)
	UpsertCentros(ctx context.Context, centros []domain.CentroRecord) (int, error)
	UpsertProcesos(ctx context.Context, procesos []domain.ProcesoRecord) (int, error)
	InsertDemand(ctx context.Context, rows []domain.DemandRecord) (int, error)
	InsertMovements(ctx context.Context, rows []domain.MovementRecord) (int, error)
	InsertProduction(ctx context.Context, rows []domain.ProductionPlanRecord) (int, error)
	// ReplaceStock deletes the STOCK lines of every SKU present in rows and
	// inserts rows, atomically. It returns the deleted and inserted counts.
	ReplaceStock(ctx context.Context, rows []domain.MovementRecord) (superseded, inserted int, err error)
	LogUpload(ctx context.Context, entry *domain.UploadLog) error

	// Listings.
	CountMasters(ctx context.Context) (int, error)
	ListMasters(ctx context.Context) ([]domain.MasterItem, error)
	SearchMasters(ctx context.Context, f domain.MasterFilter) (*domain.Listing[domain.MasterItem], error)
	ListProcesos(ctx context.Context) ([]domain.ProcesoRecord, error)
	ListDemand(ctx context.Context, f domain.DemandFilter) (*domain.Listing[domain.DemandRecord], error)
	ListMovements(ctx context.Context, f domain.MovementFilter) (*domain.Listing[domain.MovementRecord], error)
	ListUploads(ctx context.Context, limit int) ([]domain.UploadLog, error)
	Stats(ctx context.Context) (*domain.Stats, error)
	Status(ctx context.Context) (*domain.SystemStatus, error)

	PlanningReader
}

// PlanningReader holds the aggregate queries of the projection engine. An
// empty sku means every SKU.
type PlanningReader interface {
	// LatestStockDate is the newest snapshot date, for sku or globally.
	LatestStockDate(ctx context.Context, sku string) (time.Time, bool, error)
	// StockByWarehouse sums the snapshot lines of sku on day per location.
	StockByWarehouse(ctx context.Context, sku string, day time.Time) ([]domain.WarehouseBalance, error)
	// LatestStock sums snapshot lines per SKU and location, each SKU on its
	// own newest snapshot date.
	LatestStock(ctx context.Context) ([]domain.WarehouseBalance, error)
	// DemandByDate sums forecast quantities per (SKU, date) in [from, to].
	DemandByDate(ctx context.Context, sku string, from, to time.Time) ([]domain.DailyQuantity, error)
	// ConsumptionByDate sums plan consumption per (raw material, date,
	// process class) in [from, to]. SKU holds the raw material.
	ConsumptionByDate(ctx context.Context, rawMaterial string, from, to time.Time) ([]domain.DailyQuantity, error)
	// SupplyByDate sums programmed output per (SKU, date, process class).
	SupplyByDate(ctx context.Context, sku string, from, to time.Time) ([]domain.DailyQuantity, error)
	// LatestUsageDate is the newest consumption or sale movement date.
	LatestUsageDate(ctx context.Context) (time.Time, bool, error)
	// UsageByDate sums consumption and sale movements per (SKU, date).
	UsageByDate(ctx context.Context, from, to time.Time) ([]domain.DailyQuantity, error)
}
