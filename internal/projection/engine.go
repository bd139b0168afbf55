// Package projection computes projected stock on hand, safety stock buffers
// and stockout alerts from stored planning data.
package projection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/textnorm"
)

const (
	labelSales         = "VENTA"
	labelConsumption   = "CONSUMO"
	labelOtherProcess  = "OTROS"
	labelDefaultSupply = "PRODUCCION"
)

var ErrInvalidHorizon = errors.New("horizon must not be negative")

// Store is what the engine reads. Masters and process classes come with the
// aggregate queries.
type Store interface {
	repository.PlanningReader
	ListMasters(ctx context.Context) ([]domain.MasterItem, error)
	ListProcesos(ctx context.Context) ([]domain.ProcesoRecord, error)
}

// Options are the planning constants of the engine.
type Options struct {
	HorizonDays     int
	MassDivisor     float64
	DelayDays       int
	DefaultLeadTime float64
	UsageWindowDays int
}

// OptionsFrom fills unset values with the usual defaults.
func OptionsFrom(cfg config.ProjectionConfig) Options {
	o := Options{
		HorizonDays:     cfg.HorizonDays,
		MassDivisor:     cfg.MassDivisor,
		DelayDays:       cfg.DelayDays,
		DefaultLeadTime: cfg.DefaultLeadTime,
		UsageWindowDays: cfg.UsageWindowDays,
	}
	if o.HorizonDays <= 0 {
		o.HorizonDays = 30
	}
	if o.MassDivisor <= 0 {
		o.MassDivisor = 1000
	}
	if o.DelayDays <= 0 {
		o.DelayDays = 3
	}
	if o.DefaultLeadTime <= 0 {
		o.DefaultLeadTime = DefaultLeadTime
	}
	if o.UsageWindowDays <= 0 {
		o.UsageWindowDays = 90
	}
	return o
}

type Engine struct {
	store Store
	opts  Options
	now   func() time.Time
}

func NewEngine(store Store, cfg config.ProjectionConfig) *Engine {
	return &Engine{store: store, opts: OptionsFrom(cfg), now: time.Now}
}

// WithClock replaces the clock used to find today.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) Options() Options { return e.opts }

func (e *Engine) today() time.Time {
	return domain.DayKey(e.now())
}

// Request parameterizes a single SKU projection. A nil Warehouses means no
// filter; an empty non-nil slice filters everything out.
type Request struct {
	SKU         string
	HorizonDays int
	Buffer      float64
	Warehouses  []string
}

// Project returns the synthetic "yesterday" point followed by one point per
// day from today to today+horizon. Balances are accumulated unrounded and
// rounded to 2 decimals on output.
func (e *Engine) Project(ctx context.Context, req Request) ([]domain.ProjectionPoint, error) {
	if req.HorizonDays < 0 {
		return nil, ErrInvalidHorizon
	}
	sku := textnorm.SKU(req.SKU)
	today := e.today()
	end := today.AddDate(0, 0, req.HorizonDays)

	labels, err := e.processLabels(ctx)
	if err != nil {
		return nil, err
	}
	initial, breakdown, err := e.initialStock(ctx, sku, req.Warehouses)
	if err != nil {
		return nil, err
	}
	demand, err := e.demandOut(ctx, sku, today, end, labels)
	if err != nil {
		return nil, err
	}
	supply, err := e.supplyIn(ctx, sku, today, end, labels)
	if err != nil {
		return nil, err
	}

	points := make([]domain.ProjectionPoint, 0, req.HorizonDays+2)
	points = append(points, domain.ProjectionPoint{
		Date:            today.AddDate(0, 0, -1).Format(domain.DateLayout),
		Offset:          -1,
		PSoH:            Round2(initial),
		Status:          domain.ClassifyBalance(initial, req.Buffer),
		SupplyBreakdown: map[string]float64{},
		DemandBreakdown: map[string]float64{},
		StockBreakdown:  breakdown,
	})

	balance := initial
	for i := 0; i <= req.HorizonDays; i++ {
		day := today.AddDate(0, 0, i)
		in, out := supply[day], demand[day]
		supplyIn, demandOut := sum(in), sum(out)
		balance += supplyIn - demandOut
		points = append(points, domain.ProjectionPoint{
			Date:            day.Format(domain.DateLayout),
			Offset:          i,
			PSoH:            Round2(balance),
			SupplyIn:        Round2(supplyIn),
			DemandOut:       Round2(demandOut),
			Status:          domain.ClassifyBalance(balance, req.Buffer),
			SupplyBreakdown: rounded(in),
			DemandBreakdown: rounded(out),
		})
	}
	return points, nil
}

// initialStock sums the latest snapshot of sku per "centro - almacen",
// skipping lines without a warehouse and those outside filter.
func (e *Engine) initialStock(ctx context.Context, sku string, filter []string) (float64, map[string]domain.WarehouseStock, error) {
	breakdown := map[string]domain.WarehouseStock{}
	latest, ok, err := e.store.LatestStockDate(ctx, sku)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get latest stock date: %w", err)
	}
	if !ok {
		return 0, breakdown, nil
	}
	rows, err := e.store.StockByWarehouse(ctx, sku, latest)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get stock by warehouse: %w", err)
	}

	var allowed map[string]struct{}
	if filter != nil {
		allowed = make(map[string]struct{}, len(filter))
		for _, w := range filter {
			allowed[strings.TrimSpace(w)] = struct{}{}
		}
	}

	total := 0.0
	for _, r := range rows {
		key, qty, ok := e.located(r)
		if !ok {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[key]; !ok {
				continue
			}
		}
		total += qty
		valid := r.AlmacenValido == "" || strings.EqualFold(strings.TrimSpace(r.AlmacenValido), "OK")
		if prev, ok := breakdown[key]; ok {
			qty += prev.Qty
			valid = valid && prev.IsValid
		}
		breakdown[key] = domain.WarehouseStock{Qty: Round2(qty), IsValid: valid}
	}
	return total, breakdown, nil
}

// located keys a snapshot line by location and scales its quantity. Lines
// without a warehouse do not count as stock.
func (e *Engine) located(r domain.WarehouseBalance) (string, float64, bool) {
	almacen := strings.TrimSpace(r.Almacen)
	if textnorm.IsNullToken(almacen) {
		return "", 0, false
	}
	return WarehouseKey(r.Centro, almacen), r.Quantity / e.opts.MassDivisor, true
}

func (e *Engine) demandOut(ctx context.Context, sku string, from, to time.Time, labels map[string]string) (map[time.Time]map[string]float64, error) {
	out := make(map[time.Time]map[string]float64)
	sales, err := e.store.DemandByDate(ctx, sku, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get demand: %w", err)
	}
	for _, s := range sales {
		addTo(out, s.Date, labelSales, s.Quantity)
	}
	usage, err := e.store.ConsumptionByDate(ctx, sku, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get production consumption: %w", err)
	}
	for _, u := range usage {
		addTo(out, u.Date, labelConsumption+" | "+processLabel(labels, u.Label, labelOtherProcess), u.Quantity)
	}
	return out, nil
}

func (e *Engine) supplyIn(ctx context.Context, sku string, from, to time.Time, labels map[string]string) (map[time.Time]map[string]float64, error) {
	out := make(map[time.Time]map[string]float64)
	rows, err := e.store.SupplyByDate(ctx, sku, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get production supply: %w", err)
	}
	for _, r := range rows {
		addTo(out, r.Date, processLabel(labels, r.Label, labelDefaultSupply), r.Quantity)
	}
	return out, nil
}

func (e *Engine) processLabels(ctx context.Context) (map[string]string, error) {
	procesos, err := e.store.ListProcesos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	labels := make(map[string]string, len(procesos))
	for _, p := range procesos {
		if code := strings.ToUpper(strings.TrimSpace(p.ProcessClass)); code != "" {
			labels[code] = p.Process
		}
	}
	return labels, nil
}

// WarehouseKey renders the location key used by filters and breakdowns.
func WarehouseKey(centro, almacen string) string {
	return strings.TrimSpace(centro) + " - " + strings.TrimSpace(almacen)
}

// ParseWarehouses splits a comma separated filter. An empty but present
// value yields an empty non-nil filter.
func ParseWarehouses(raw string) []string {
	out := []string{}
	for _, w := range strings.Split(raw, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Round2 rounds half away from zero to 2 decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func processLabel(labels map[string]string, class, fallback string) string {
	if l, ok := labels[strings.ToUpper(strings.TrimSpace(class))]; ok {
		return l
	}
	if class != "" {
		return class
	}
	return fallback
}

func addTo(m map[time.Time]map[string]float64, day time.Time, label string, q float64) {
	if q == 0 {
		return
	}
	day = domain.DayKey(day)
	if m[day] == nil {
		m[day] = make(map[string]float64)
	}
	m[day][label] += q
}

func sum(m map[string]float64) float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total
}

func rounded(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = Round2(v)
	}
	return out
}
