package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

const (
	planningKeyPrefix     = "pcp"
	alertsKeyPrefix       = planningKeyPrefix + ":alerts"
	projectionKeyPrefix   = planningKeyPrefix + ":projection"
	planningScanBatchSize = 100
)

// ProjectionKey identifies one cached projection request.
type ProjectionKey struct {
	SKU         string
	HorizonDays int
	Buffer      float64
	Warehouses  []string
}

// PlanningCache holds computed alerts and projections until the next upload.
type PlanningCache interface {
	GetAlerts(ctx context.Context, horizonDays int) ([]domain.Alert, bool, error)
	SetAlerts(ctx context.Context, horizonDays int, alerts []domain.Alert) error
	GetProjection(ctx context.Context, key ProjectionKey) ([]domain.ProjectionPoint, bool, error)
	SetProjection(ctx context.Context, key ProjectionKey, points []domain.ProjectionPoint) error
	InvalidateAll(ctx context.Context) error
}

type redisPlanningCache struct {
	client        *redis.Client
	alertsTTL     time.Duration
	projectionTTL time.Duration
}

type noopPlanningCache struct{}

func NewPlanningCache(cfg config.CacheConfig) (PlanningCache, error) {
	if !cfg.Enabled {
		return &noopPlanningCache{}, nil
	}

	client, err := dialRedis(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	return &redisPlanningCache{
		client:        client,
		alertsTTL:     ttlOrDefault(cfg.AlertsTTLSeconds),
		projectionTTL: ttlOrDefault(cfg.ProjectionTTLSeconds),
	}, nil
}

func NewNoopPlanningCache() PlanningCache {
	return &noopPlanningCache{}
}

func (c *redisPlanningCache) GetAlerts(ctx context.Context, horizonDays int) ([]domain.Alert, bool, error) {
	var alerts []domain.Alert
	ok, err := c.get(ctx, AlertsKey(horizonDays), &alerts)
	return alerts, ok, err
}

func (c *redisPlanningCache) SetAlerts(ctx context.Context, horizonDays int, alerts []domain.Alert) error {
	return c.set(ctx, AlertsKey(horizonDays), alerts, c.alertsTTL)
}

func (c *redisPlanningCache) GetProjection(ctx context.Context, key ProjectionKey) ([]domain.ProjectionPoint, bool, error) {
	var points []domain.ProjectionPoint
	ok, err := c.get(ctx, key.String(), &points)
	return points, ok, err
}

func (c *redisPlanningCache) SetProjection(ctx context.Context, key ProjectionKey, points []domain.ProjectionPoint) error {
	return c.set(ctx, key.String(), points, c.projectionTTL)
}

func (c *redisPlanningCache) InvalidateAll(ctx context.Context) error {
	n, err := unlinkPrefix(ctx, c.client, planningKeyPrefix+":", planningScanBatchSize)
	if err != nil {
		return err
	}
	log.Debug().Int("keys", n).Msg("Planning cache invalidated")
	return nil
}

func (c *redisPlanningCache) get(ctx context.Context, key string, dest any) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (c *redisPlanningCache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopPlanningCache) GetAlerts(ctx context.Context, horizonDays int) ([]domain.Alert, bool, error) {
	return nil, false, nil
}

func (n *noopPlanningCache) SetAlerts(ctx context.Context, horizonDays int, alerts []domain.Alert) error {
	return nil
}

func (n *noopPlanningCache) GetProjection(ctx context.Context, key ProjectionKey) ([]domain.ProjectionPoint, bool, error) {
	return nil, false, nil
}

func (n *noopPlanningCache) SetProjection(ctx context.Context, key ProjectionKey, points []domain.ProjectionPoint) error {
	return nil
}

func (n *noopPlanningCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func AlertsKey(horizonDays int) string {
	return fmt.Sprintf("%s:%d", alertsKeyPrefix, horizonDays)
}

// String renders the redis key. Warehouse order does not matter; a nil
// warehouse list (no filter) and an empty one (filter everything) differ.
func (k ProjectionKey) String() string {
	parts := []string{
		"sku=" + k.SKU,
		"horizon=" + strconv.Itoa(k.HorizonDays),
		"buffer=" + strconv.FormatFloat(k.Buffer, 'f', -1, 64),
	}
	if k.Warehouses != nil {
		wh := append([]string(nil), k.Warehouses...)
		sort.Strings(wh)
		parts = append(parts, "wh=["+strings.Join(wh, ",")+"]")
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%s", projectionKeyPrefix, hex.EncodeToString(sum[:]))
}
