package projection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

type breach struct {
	day     time.Time
	balance float64
}

// ScanAlerts runs the projection recurrence for every master SKU from a fixed
// number of bulk reads and reports, per SKU, the most severe of: earliest
// critical breach, delay risk, earliest warning breach.
func (e *Engine) ScanAlerts(ctx context.Context, horizonDays int) ([]domain.Alert, error) {
	if horizonDays < 0 {
		return nil, ErrInvalidHorizon
	}
	today := e.today()
	end := today.AddDate(0, 0, horizonDays)
	yesterday := today.AddDate(0, 0, -1)

	safety, err := e.SafetyStocks(ctx)
	if err != nil {
		return nil, err
	}
	masters, err := e.store.ListMasters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list masters: %w", err)
	}
	initial, err := e.stockTotals(ctx)
	if err != nil {
		return nil, err
	}

	demand := make(map[string]map[time.Time]float64)
	sales, err := e.store.DemandByDate(ctx, "", today, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get demand: %w", err)
	}
	usage, err := e.store.ConsumptionByDate(ctx, "", today, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get production consumption: %w", err)
	}
	for _, r := range append(sales, usage...) {
		addDaily(demand, r)
	}
	supply := make(map[string]map[time.Time]float64)
	programmed, err := e.store.SupplyByDate(ctx, "", today, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get production supply: %w", err)
	}
	for _, r := range programmed {
		addDaily(supply, r)
	}

	var alerts []domain.Alert
	for _, m := range masters {
		sku := m.SKU
		buffer := safety[sku].Buffer
		start := initial[sku]
		skuDemand, skuSupply := demand[sku], supply[sku]

		var critical, warning *breach
		if start <= 0 {
			critical = &breach{yesterday, start}
		} else if start <= buffer {
			warning = &breach{yesterday, start}
		}

		balance := start
		for i := 0; i <= horizonDays; i++ {
			day := today.AddDate(0, 0, i)
			balance += skuSupply[day] - skuDemand[day]
			if balance <= 0 && critical == nil {
				critical = &breach{day, balance}
			}
			if balance <= buffer && warning == nil {
				warning = &breach{day, balance}
			}
		}

		switch {
		case critical != nil:
			alerts = append(alerts, newAlert(sku, domain.AlertCritical, critical, today))
		case len(skuSupply) > 0 && e.delayDrivesNegative(start, skuSupply, skuDemand, today, horizonDays):
			alerts = append(alerts, domain.Alert{
				SKU:  sku,
				Type: domain.AlertDelayRisk,
				Date: today.Format(domain.DateLayout),
			})
		case warning != nil:
			alerts = append(alerts, newAlert(sku, domain.AlertWarning, warning, today))
		}
	}

	SortAlerts(alerts)
	return alerts, nil
}

// delayDrivesNegative replays the horizon with the earliest supply event
// moved DelayDays later.
func (e *Engine) delayDrivesNegative(start float64, supply, demand map[time.Time]float64, today time.Time, horizonDays int) bool {
	var first time.Time
	for d := range supply {
		if first.IsZero() || d.Before(first) {
			first = d
		}
	}
	qty := supply[first]
	delayed := first.AddDate(0, 0, e.opts.DelayDays)

	balance := start
	for i := 0; i <= horizonDays; i++ {
		day := today.AddDate(0, 0, i)
		in := supply[day]
		if day.Equal(first) {
			in -= qty
		}
		if day.Equal(delayed) {
			in += qty
		}
		balance += in - demand[day]
		if balance < 0 {
			return true
		}
	}
	return false
}

// stockTotals is the unfiltered starting balance of every SKU, each from
// its own latest snapshot, counted the same way as Project.
func (e *Engine) stockTotals(ctx context.Context) (map[string]float64, error) {
	rows, err := e.store.LatestStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest stock: %w", err)
	}
	out := make(map[string]float64)
	for _, r := range rows {
		if _, qty, ok := e.located(r); ok {
			out[r.SKU] += qty
		}
	}
	return out, nil
}

// SortAlerts orders by severity then by days until the breach.
func SortAlerts(alerts []domain.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		si, sj := alerts[i].Type.Severity(), alerts[j].Type.Severity()
		if si != sj {
			return si < sj
		}
		return alerts[i].DaysUntil < alerts[j].DaysUntil
	})
}

func newAlert(sku string, t domain.AlertType, b *breach, today time.Time) domain.Alert {
	return domain.Alert{
		SKU:       sku,
		Type:      t,
		Date:      b.day.Format(domain.DateLayout),
		PSoH:      Round2(b.balance),
		DaysUntil: max(0, int(b.day.Sub(today).Hours()/24)),
	}
}

func addDaily(m map[string]map[time.Time]float64, r domain.DailyQuantity) {
	if r.SKU == "" {
		return
	}
	if m[r.SKU] == nil {
		m[r.SKU] = make(map[time.Time]float64)
	}
	m[r.SKU][domain.DayKey(r.Date)] += r.Quantity
}
