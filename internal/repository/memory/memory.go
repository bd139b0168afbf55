// Package memory is an in-process PlanningRepository used by the CLI when no
// database is configured and by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository"
)

var _ repository.PlanningRepository = (*Repository)(nil)

type Repository struct {
	mu         sync.RWMutex
	masters    map[string]domain.MasterItem
	centros    map[string]domain.CentroRecord
	procesos   map[string]domain.ProcesoRecord
	demand     []domain.DemandRecord
	movements  []domain.MovementRecord
	production []domain.ProductionPlanRecord
	uploads    []domain.UploadLog
}

func New() *Repository {
	return &Repository{
		masters:  make(map[string]domain.MasterItem),
		centros:  make(map[string]domain.CentroRecord),
		procesos: make(map[string]domain.ProcesoRecord),
	}
}

func (r *Repository) UpsertMasters(_ context.Context, items []domain.MasterItem) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.masters[it.SKU] = it
	}
	return len(items), nil
}

func (r *Repository) UpsertCentros(_ context.Context, centros []domain.CentroRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range centros {
		r.centros[c.Centro] = c
	}
	return len(centros), nil
}

func (r *Repository) UpsertProcesos(_ context.Context, procesos []domain.ProcesoRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range procesos {
		r.procesos[p.ProcessClass] = p
	}
	return len(procesos), nil
}

func (r *Repository) InsertDemand(_ context.Context, rows []domain.DemandRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.demand = append(r.demand, rows...)
	return len(rows), nil
}

func (r *Repository) InsertMovements(_ context.Context, rows []domain.MovementRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, rows...)
	return len(rows), nil
}

func (r *Repository) InsertProduction(_ context.Context, rows []domain.ProductionPlanRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.production = append(r.production, rows...)
	return len(rows), nil
}

func (r *Repository) ReplaceStock(_ context.Context, rows []domain.MovementRecord) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	skus := make(map[string]struct{}, len(rows))
	for _, m := range rows {
		skus[m.SKU] = struct{}{}
	}
	kept := r.movements[:0]
	superseded := 0
	for _, m := range r.movements {
		if _, ok := skus[m.SKU]; ok && m.Class == domain.ClassStock {
			superseded++
			continue
		}
		kept = append(kept, m)
	}
	r.movements = append(kept, rows...)
	return superseded, len(rows), nil
}

func (r *Repository) LogUpload(_ context.Context, entry *domain.UploadLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.uploads = append(r.uploads, e)
	return nil
}

func (r *Repository) CountMasters(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.masters), nil
}

func (r *Repository) ListMasters(_ context.Context) ([]domain.MasterItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedMasters(), nil
}

func (r *Repository) SearchMasters(_ context.Context, f domain.MasterFilter) (*domain.Listing[domain.MasterItem], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(f.Search)
	var out []domain.MasterItem
	for _, m := range r.sortedMasters() {
		if q == "" || strings.Contains(strings.ToLower(m.SKU), q) || strings.Contains(strings.ToLower(m.Description), q) {
			out = append(out, m)
		}
	}
	return page(out, f.Page), nil
}

func (r *Repository) ListProcesos(_ context.Context) ([]domain.ProcesoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ProcesoRecord, 0, len(r.procesos))
	for _, p := range r.procesos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProcessClass < out[j].ProcessClass })
	return out, nil
}

func (r *Repository) ListDemand(_ context.Context, f domain.DemandFilter) (*domain.Listing[domain.DemandRecord], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.DemandRecord
	for _, d := range r.demand {
		if f.SKU != "" && d.SKU != f.SKU {
			continue
		}
		if !inRange(d.Date, f.From, f.To) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return page(out, f.Page), nil
}

func (r *Repository) ListMovements(_ context.Context, f domain.MovementFilter) (*domain.Listing[domain.MovementRecord], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.MovementRecord
	for _, m := range r.movements {
		if f.SKU != "" && m.SKU != f.SKU {
			continue
		}
		if f.Class != "" && m.Class != f.Class {
			continue
		}
		if !inRange(m.Date, f.From, f.To) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return page(out, f.Page), nil
}

func (r *Repository) ListUploads(_ context.Context, limit int) ([]domain.UploadLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]domain.UploadLog(nil), r.uploads...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) Stats(_ context.Context) (*domain.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byClass := make(map[string]*domain.ClassTotal)
	for _, m := range r.movements {
		ct, ok := byClass[m.Class]
		if !ok {
			ct = &domain.ClassTotal{Class: m.Class}
			byClass[m.Class] = ct
		}
		ct.Records++
		ct.Quantity += m.Quantity
	}
	s := &domain.Stats{
		MasterItems:    len(r.masters),
		DemandRows:     len(r.demand),
		MovementRows:   len(r.movements),
		ProductionRows: len(r.production),
	}
	for _, ct := range byClass {
		s.Classes = append(s.Classes, *ct)
	}
	sort.Slice(s.Classes, func(i, j int) bool { return s.Classes[i].Class < s.Classes[j].Class })
	return s, nil
}

func (r *Repository) Status(_ context.Context) (*domain.SystemStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := &domain.SystemStatus{
		Status:     "online",
		Master:     len(r.masters) > 0,
		Demand:     len(r.demand) > 0,
		Production: len(r.production) > 0,
		TotalSKUs:  len(r.masters),
	}
	for _, m := range r.movements {
		if m.Class == domain.ClassStock {
			st.Stock = true
		} else {
			st.Movements = true
		}
	}
	for i := range r.uploads {
		at := r.uploads[i].CreatedAt
		if st.LastUpload == nil || at.After(*st.LastUpload) {
			st.LastUpload = &at
		}
	}
	return st, nil
}

func (r *Repository) LatestStockDate(_ context.Context, sku string) (time.Time, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest time.Time
	found := false
	for _, m := range r.movements {
		if !m.IsStockSnapshot() || (sku != "" && m.SKU != sku) {
			continue
		}
		if d := domain.DayKey(m.Date); !found || d.After(latest) {
			latest, found = d, true
		}
	}
	return latest, found, nil
}

func (r *Repository) StockByWarehouse(_ context.Context, sku string, day time.Time) ([]domain.WarehouseBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	day = domain.DayKey(day)
	type loc struct{ centro, almacen string }
	acc := make(map[loc]*domain.WarehouseBalance)
	var order []loc
	for _, m := range r.movements {
		if m.SKU != sku || !m.IsStockSnapshot() || !domain.DayKey(m.Date).Equal(day) {
			continue
		}
		k := loc{m.Centro, m.Almacen}
		b, ok := acc[k]
		if !ok {
			b = &domain.WarehouseBalance{Centro: m.Centro, Almacen: m.Almacen}
			acc[k] = b
			order = append(order, k)
		}
		if b.AlmacenValido == "" {
			b.AlmacenValido = m.AlmacenValido
		}
		b.Quantity += m.Quantity
	}
	out := make([]domain.WarehouseBalance, 0, len(order))
	for _, k := range order {
		out = append(out, *acc[k])
	}
	return out, nil
}

func (r *Repository) LatestStock(_ context.Context) ([]domain.WarehouseBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	latest := make(map[string]time.Time)
	for _, m := range r.movements {
		if !m.IsStockSnapshot() {
			continue
		}
		if d, ok := latest[m.SKU]; !ok || domain.DayKey(m.Date).After(d) {
			latest[m.SKU] = domain.DayKey(m.Date)
		}
	}

	type loc struct{ sku, centro, almacen string }
	acc := make(map[loc]*domain.WarehouseBalance)
	var order []loc
	for _, m := range r.movements {
		if !m.IsStockSnapshot() || !domain.DayKey(m.Date).Equal(latest[m.SKU]) {
			continue
		}
		k := loc{m.SKU, m.Centro, m.Almacen}
		b, ok := acc[k]
		if !ok {
			b = &domain.WarehouseBalance{SKU: m.SKU, Centro: m.Centro, Almacen: m.Almacen}
			acc[k] = b
			order = append(order, k)
		}
		if b.AlmacenValido == "" {
			b.AlmacenValido = m.AlmacenValido
		}
		b.Quantity += m.Quantity
	}
	out := make([]domain.WarehouseBalance, 0, len(order))
	for _, k := range order {
		out = append(out, *acc[k])
	}
	return out, nil
}

func (r *Repository) DemandByDate(_ context.Context, sku string, from, to time.Time) ([]domain.DailyQuantity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agg := newAggregate()
	for _, d := range r.demand {
		if (sku == "" || d.SKU == sku) && within(d.Date, from, to) {
			agg.add(d.SKU, d.Date, "", d.DailyQuantity)
		}
	}
	return agg.rows(), nil
}

func (r *Repository) ConsumptionByDate(_ context.Context, rawMaterial string, from, to time.Time) ([]domain.DailyQuantity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agg := newAggregate()
	for _, p := range r.production {
		if p.RawMaterial == "" || (rawMaterial != "" && p.RawMaterial != rawMaterial) || !within(p.Date, from, to) {
			continue
		}
		agg.add(p.RawMaterial, p.Date, p.ProcessClass, p.Consumption)
	}
	return agg.rows(), nil
}

func (r *Repository) SupplyByDate(_ context.Context, sku string, from, to time.Time) ([]domain.DailyQuantity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agg := newAggregate()
	for _, p := range r.production {
		if (sku == "" || p.SKU == sku) && within(p.Date, from, to) {
			agg.add(p.SKU, p.Date, p.ProcessClass, p.Programmed)
		}
	}
	return agg.rows(), nil
}

func (r *Repository) LatestUsageDate(_ context.Context) (time.Time, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest time.Time
	found := false
	for _, m := range r.movements {
		if !m.IsUsage() {
			continue
		}
		if d := domain.DayKey(m.Date); !found || d.After(latest) {
			latest, found = d, true
		}
	}
	return latest, found, nil
}

func (r *Repository) UsageByDate(_ context.Context, from, to time.Time) ([]domain.DailyQuantity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agg := newAggregate()
	for _, m := range r.movements {
		if m.IsUsage() && within(m.Date, from, to) {
			agg.add(m.SKU, m.Date, "", m.Quantity)
		}
	}
	return agg.rows(), nil
}

func (r *Repository) sortedMasters() []domain.MasterItem {
	out := make([]domain.MasterItem, 0, len(r.masters))
	for _, m := range r.masters {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

type aggKey struct {
	sku   string
	day   time.Time
	label string
}

// aggregate mimics a GROUP BY sku, date, label with SUM(quantity).
type aggregate struct {
	sums  map[aggKey]float64
	order []aggKey
}

func newAggregate() *aggregate {
	return &aggregate{sums: make(map[aggKey]float64)}
}

func (a *aggregate) add(sku string, day time.Time, label string, q float64) {
	k := aggKey{sku, domain.DayKey(day), label}
	if _, ok := a.sums[k]; !ok {
		a.order = append(a.order, k)
	}
	a.sums[k] += q
}

func (a *aggregate) rows() []domain.DailyQuantity {
	sort.SliceStable(a.order, func(i, j int) bool {
		x, y := a.order[i], a.order[j]
		if x.sku != y.sku {
			return x.sku < y.sku
		}
		if !x.day.Equal(y.day) {
			return x.day.Before(y.day)
		}
		return x.label < y.label
	})
	out := make([]domain.DailyQuantity, len(a.order))
	for i, k := range a.order {
		out[i] = domain.DailyQuantity{SKU: k.sku, Date: k.day, Label: k.label, Quantity: a.sums[k]}
	}
	return out
}

func within(t, from, to time.Time) bool {
	d := domain.DayKey(t)
	return !d.Before(domain.DayKey(from)) && !d.After(domain.DayKey(to))
}

func inRange(t time.Time, from, to *time.Time) bool {
	d := domain.DayKey(t)
	if from != nil && d.Before(domain.DayKey(*from)) {
		return false
	}
	if to != nil && d.After(domain.DayKey(*to)) {
		return false
	}
	return true
}

func page[T any](items []T, p domain.Page) *domain.Listing[T] {
	l := &domain.Listing[T]{Total: len(items)}
	start := min(max(p.Offset, 0), len(items))
	end := len(items)
	if p.Limit > 0 {
		end = min(start+p.Limit, len(items))
	}
	l.Items = append([]T{}, items[start:end]...)
	return l
}
