package projection

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

const (
	// DefaultLeadTime applies when the master has no positive lead time.
	DefaultLeadTime = 25.0
	// LeadTimeFactor sizes the base of the red zone.
	LeadTimeFactor = 0.2
)

// VariabilityFactor tiers the coefficient of variation of daily usage.
func VariabilityFactor(cov float64) float64 {
	switch {
	case cov <= 0.5:
		return 0.2
	case cov < 0.8:
		return 0.4
	default:
		return 0.7
	}
}

// Buffer is the red zone: ADU·LT·0.2 + ADU·LT·vf.
func Buffer(adu, leadTime, cov float64) float64 {
	return adu*leadTime*LeadTimeFactor + adu*leadTime*VariabilityFactor(cov)
}

// ComputeProfile derives the buffer of sku from a zero-filled series of
// daily usage. Negative days must already be clamped to zero.
func ComputeProfile(sku string, daily []float64, leadTime float64) domain.SafetyStockProfile {
	if leadTime <= 0 {
		leadTime = DefaultLeadTime
	}
	p := domain.SafetyStockProfile{SKU: sku, LeadTime: leadTime}
	n := float64(len(daily))
	if n > 0 {
		for _, v := range daily {
			p.ADU += v
		}
		p.ADU /= n
	}
	if len(daily) > 1 {
		var ss float64
		for _, v := range daily {
			ss += (v - p.ADU) * (v - p.ADU)
		}
		p.StdDev = math.Sqrt(ss / (n - 1))
	}
	if p.ADU > 0 {
		p.CoV = p.StdDev / p.ADU
	}
	p.VariabilityFactor = VariabilityFactor(p.CoV)
	p.Buffer = Buffer(p.ADU, leadTime, p.CoV)
	return p
}

// SafetyStocks profiles every master SKU over the usage window ending at the
// latest consumption or sale. Without any usage every buffer is zero.
func (e *Engine) SafetyStocks(ctx context.Context) (map[string]domain.SafetyStockProfile, error) {
	masters, err := e.store.ListMasters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list masters: %w", err)
	}
	out := make(map[string]domain.SafetyStockProfile, len(masters))

	latest, ok, err := e.store.LatestUsageDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest usage date: %w", err)
	}
	if !ok {
		for _, m := range masters {
			lt := m.EffectiveLeadTime(e.opts.DefaultLeadTime)
			out[m.SKU] = domain.SafetyStockProfile{SKU: m.SKU, LeadTime: lt, VariabilityFactor: VariabilityFactor(0)}
		}
		return out, nil
	}

	to := domain.DayKey(latest)
	from := to.AddDate(0, 0, -e.opts.UsageWindowDays)
	rows, err := e.store.UsageByDate(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	usage := make(map[string]map[time.Time]float64)
	for _, r := range rows {
		if usage[r.SKU] == nil {
			usage[r.SKU] = make(map[time.Time]float64)
		}
		usage[r.SKU][domain.DayKey(r.Date)] += r.Quantity
	}

	days := int(to.Sub(from).Hours()/24) + 1
	for _, m := range masters {
		daily := make([]float64, days)
		for i := range daily {
			daily[i] = math.Max(0, usage[m.SKU][from.AddDate(0, 0, i)])
		}
		out[m.SKU] = ComputeProfile(m.SKU, daily, m.EffectiveLeadTime(e.opts.DefaultLeadTime))
	}
	return out, nil
}
