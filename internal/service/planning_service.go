package service

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/cache"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/projection"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/textnorm"
)

type PlanningService struct {
	repo   repository.PlanningRepository
	engine *projection.Engine
	cache  cache.PlanningCache
}

func NewPlanningService(repo repository.PlanningRepository, engine *projection.Engine, cacheImpl cache.PlanningCache) *PlanningService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopPlanningCache()
	}
	return &PlanningService{repo: repo, engine: engine, cache: cacheImpl}
}

// DefaultHorizon is the configured projection horizon in days.
func (s *PlanningService) DefaultHorizon() int {
	return s.engine.Options().HorizonDays
}

func (s *PlanningService) Project(ctx context.Context, req projection.Request) ([]domain.ProjectionPoint, error) {
	key := cache.ProjectionKey{
		SKU:         textnorm.SKU(req.SKU),
		HorizonDays: req.HorizonDays,
		Buffer:      req.Buffer,
		Warehouses:  req.Warehouses,
	}
	if points, ok, err := s.cache.GetProjection(ctx, key); err == nil && ok {
		return points, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("planning: cache get projection failed")
	}

	points, err := s.engine.Project(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetProjection(ctx, key, points); err != nil {
		log.Warn().Err(err).Msg("planning: cache set projection failed")
	}
	return points, nil
}

func (s *PlanningService) Alerts(ctx context.Context, horizonDays int) ([]domain.Alert, error) {
	if alerts, ok, err := s.cache.GetAlerts(ctx, horizonDays); err == nil && ok {
		return alerts, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("planning: cache get alerts failed")
	}

	alerts, err := s.engine.ScanAlerts(ctx, horizonDays)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = make([]domain.Alert, 0)
	}

	if err := s.cache.SetAlerts(ctx, horizonDays, alerts); err != nil {
		log.Warn().Err(err).Msg("planning: cache set alerts failed")
	}
	return alerts, nil
}

// SafetyStocks returns the buffer profile of every SKU with usage, by SKU.
func (s *PlanningService) SafetyStocks(ctx context.Context) ([]domain.SafetyStockProfile, error) {
	profiles, err := s.engine.SafetyStocks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SafetyStockProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// SafetyStock returns the profile of one SKU.
func (s *PlanningService) SafetyStock(ctx context.Context, sku string) (domain.SafetyStockProfile, bool, error) {
	profiles, err := s.engine.SafetyStocks(ctx)
	if err != nil {
		return domain.SafetyStockProfile{}, false, err
	}
	p, ok := profiles[textnorm.SKU(sku)]
	return p, ok, nil
}

func (s *PlanningService) Status(ctx context.Context) (*domain.SystemStatus, error) {
	return s.repo.Status(ctx)
}

func (s *PlanningService) Stats(ctx context.Context) (*domain.Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *PlanningService) Masters(ctx context.Context, f domain.MasterFilter) (*domain.Listing[domain.MasterItem], error) {
	return s.repo.SearchMasters(ctx, f)
}

func (s *PlanningService) Demand(ctx context.Context, f domain.DemandFilter) (*domain.Listing[domain.DemandRecord], error) {
	f.SKU = textnorm.SKU(f.SKU)
	return s.repo.ListDemand(ctx, f)
}

func (s *PlanningService) Movements(ctx context.Context, f domain.MovementFilter) (*domain.Listing[domain.MovementRecord], error) {
	f.SKU = textnorm.SKU(f.SKU)
	return s.repo.ListMovements(ctx, f)
}

func (s *PlanningService) Uploads(ctx context.Context, limit int) ([]domain.UploadLog, error) {
	uploads, err := s.repo.ListUploads(ctx, limit)
	if err != nil {
		return nil, err
	}
	if uploads == nil {
		uploads = make([]domain.UploadLog, 0)
	}
	return uploads, nil
}
