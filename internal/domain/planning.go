package domain

import "time"

// DateLayout is the canonical calendar date rendering used on the wire.
const DateLayout = "2006-01-02"

// Status is the buffer-zone classification of a projected balance.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// ClassifyBalance applies the buffer-zone rule: critical at or below zero,
// warning at or below the buffer, healthy otherwise.
func ClassifyBalance(balance, buffer float64) Status {
	switch {
	case balance <= 0:
		return StatusCritical
	case balance <= buffer:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// WarehouseStock is the initial stock held in one "centro - almacen" location.
type WarehouseStock struct {
	Qty     float64 `json:"qty"`
	IsValid bool    `json:"is_valid"`
}

// ProjectionPoint is one day of projected stock on hand for a SKU.
type ProjectionPoint struct {
	Date            string                    `json:"date"`
	Offset          int                       `json:"offset"`
	PSoH            float64                   `json:"psoh"`
	SupplyIn        float64                   `json:"supply_in"`
	DemandOut       float64                   `json:"demand_out"`
	Status          Status                    `json:"status"`
	SupplyBreakdown map[string]float64        `json:"supply_breakdown"`
	DemandBreakdown map[string]float64        `json:"demand_breakdown"`
	StockBreakdown  map[string]WarehouseStock `json:"stock_breakdown,omitempty"`
}

// SafetyStockProfile summarises historical usage of a SKU and its buffer.
type SafetyStockProfile struct {
	SKU               string  `json:"sku"`
	ADU               float64 `json:"adu"`
	StdDev            float64 `json:"std_dev"`
	CoV               float64 `json:"cov"`
	LeadTime          float64 `json:"lead_time"`
	VariabilityFactor float64 `json:"variability_factor"`
	Buffer            float64 `json:"buffer"`
}

// AlertType is the kind of breach detected for a SKU.
type AlertType string

const (
	AlertCritical  AlertType = "critical"
	AlertDelayRisk AlertType = "delay_risk"
	AlertWarning   AlertType = "warning"
)

// Severity orders alert types, lower is more severe.
func (t AlertType) Severity() int {
	switch t {
	case AlertCritical:
		return 0
	case AlertDelayRisk:
		return 1
	case AlertWarning:
		return 2
	}
	return 9
}

// Alert is the earliest breach found for a SKU within the horizon.
type Alert struct {
	SKU       string    `json:"sku"`
	Type      AlertType `json:"type"`
	Date      string    `json:"date"`
	PSoH      float64   `json:"psoh"`
	DaysUntil int       `json:"days_until"`
}

// DailyQuantity is an aggregate row keyed by SKU, date and an optional label.
type DailyQuantity struct {
	SKU      string    `json:"sku" db:"sku"`
	Date     time.Time `json:"fecha" db:"fecha"`
	Label    string    `json:"label,omitempty" db:"label"`
	Quantity float64   `json:"quantity" db:"quantity"`
}

// WarehouseBalance is the summed stock snapshot of one SKU location.
type WarehouseBalance struct {
	SKU           string  `db:"sku"`
	Centro        string  `db:"centro"`
	Almacen       string  `db:"almacen"`
	AlmacenValido string  `db:"almacen_valido"`
	Quantity      float64 `db:"quantity"`
}

// DayKey truncates t to a UTC calendar day.
func DayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
