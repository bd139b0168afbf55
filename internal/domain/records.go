package domain

import (
	"strings"
	"time"
)

// Movement classes as they appear after upper-casing.
const (
	ClassConsumo    = "CONSUMO"
	ClassProduccion = "PRODUCCION"
	ClassStock      = "STOCK"
	ClassVenta      = "VENTA"
	ClassTraspaso   = "TRASPASO"
	ClassTransfer   = "TRANSFER"
	ClassOther      = "OTRO"

	TypeStockSnapshot = "STOCK_SNAPSHOT"
)

// AllowedMovementClasses are the classes the planning engine reasons about.
// Other classes are kept, only reported.
var AllowedMovementClasses = []string{ClassConsumo, ClassProduccion, ClassStock, ClassVenta}

// ExcludedMovementClasses never reach storage.
var ExcludedMovementClasses = []string{ClassTraspaso, ClassTransfer}

// MasterItem is one row of the article master.
type MasterItem struct {
	SKU          string   `json:"codigo" db:"codigo"`
	Description  string   `json:"descripcion,omitempty" db:"descripcion"`
	Unit         string   `json:"unidad_medida,omitempty" db:"unidad_medida"`
	HierarchyL1  string   `json:"nivel1_jerarquia,omitempty" db:"nivel1_jerarquia"`
	ArticleGroup string   `json:"grupo_articulos,omitempty" db:"grupo_articulos"`
	MaterialType string   `json:"tipo_material,omitempty" db:"tipo_material"`
	LeadTimeDays *float64 `json:"lead_time,omitempty" db:"lead_time"`
}

// EffectiveLeadTime returns the lead time or fallback when absent or not positive.
func (m MasterItem) EffectiveLeadTime(fallback float64) float64 {
	if m.LeadTimeDays == nil || *m.LeadTimeDays <= 0 {
		return fallback
	}
	return *m.LeadTimeDays
}

// MovementRecord is a stock ledger line. Stock snapshots are movements with
// Class == ClassStock and Type == TypeStockSnapshot.
type MovementRecord struct {
	SKU           string    `json:"codigo" db:"codigo"`
	Description   string    `json:"descripcion,omitempty" db:"descripcion"`
	Unit          string    `json:"unidad_medida,omitempty" db:"unidad_medida"`
	Class         string    `json:"clase_movimiento" db:"clase_movimiento"`
	Type          string    `json:"tipo_movimiento,omitempty" db:"tipo_movimiento"`
	Date          time.Time `json:"fecha" db:"fecha"`
	Quantity      float64   `json:"cantidad" db:"cantidad"`
	Centro        string    `json:"centro,omitempty" db:"centro"`
	Almacen       string    `json:"almacen,omitempty" db:"almacen"`
	AlmacenValido string    `json:"almacen_valido,omitempty" db:"almacen_valido"`
}

// IsStockSnapshot reports whether m is a point-in-time inventory count.
// Legacy ledgers mark snapshots only through the movement type text.
func (m MovementRecord) IsStockSnapshot() bool {
	return m.Class == ClassStock || strings.Contains(strings.ToUpper(m.Type), ClassStock)
}

// IsUsage reports whether m is a consumption or sale. The class decides;
// ledgers without a usage class can still mark it in the type text.
func (m MovementRecord) IsUsage() bool {
	switch strings.ToUpper(strings.TrimSpace(m.Class)) {
	case ClassConsumo, ClassVenta:
		return true
	}
	t := strings.ToUpper(m.Type)
	return strings.Contains(t, ClassConsumo) || strings.Contains(t, ClassVenta)
}

// DemandRecord is one forecast line.
type DemandRecord struct {
	SKU           string    `json:"codigo" db:"codigo"`
	Date          time.Time `json:"fecha" db:"fecha"`
	DailyQuantity float64   `json:"cantidad_diaria" db:"cantidad_diaria"`
}

// ProductionPlanRecord is one line of the production program. SKU is the
// produced item and RawMaterial the consumed one (empty when not given).
type ProductionPlanRecord struct {
	Date         time.Time `json:"fecha" db:"fecha"`
	ProcessOrder string    `json:"orden_proceso,omitempty" db:"orden_proceso"`
	SKU          string    `json:"sku" db:"sku"`
	RawMaterial  string    `json:"materia_prima,omitempty" db:"materia_prima"`
	Programmed   float64   `json:"programado" db:"programado"`
	Consumption  float64   `json:"consumo" db:"consumo"`
	ProcessClass string    `json:"clase_proceso,omitempty" db:"clase_proceso"`
	WeekNumber   *int      `json:"numero_semana,omitempty" db:"numero_semana"`
}

// CentroRecord is a plant/site from the master workbook.
type CentroRecord struct {
	Centro      string `json:"centro" db:"centro"`
	Description string `json:"descripcion,omitempty" db:"descripcion"`
	Country     string `json:"pais,omitempty" db:"pais"`
}

// ProcesoRecord maps a process class code to its description.
type ProcesoRecord struct {
	ProcessClass string `json:"clase_proceso" db:"clase_proceso"`
	Process      string `json:"proceso" db:"proceso"`
	Area         string `json:"area,omitempty" db:"area"`
	CentroCode   string `json:"centro_codigo,omitempty" db:"centro_codigo"`
}

// Batch carries the cleaned records of one sheet. Only the slice matching
// Type is populated.
type Batch struct {
	Type       RecordType             `json:"type"`
	Masters    []MasterItem           `json:"masters,omitempty"`
	Movements  []MovementRecord       `json:"movements,omitempty"`
	Demand     []DemandRecord         `json:"demand,omitempty"`
	Production []ProductionPlanRecord `json:"production,omitempty"`
	Centros    []CentroRecord         `json:"centros,omitempty"`
	Procesos   []ProcesoRecord        `json:"procesos,omitempty"`
}

// Len returns the number of records held for the batch type.
func (b *Batch) Len() int {
	switch b.Type {
	case RecordMaster:
		return len(b.Masters)
	case RecordMovements, RecordStock:
		return len(b.Movements)
	case RecordDemand:
		return len(b.Demand)
	case RecordProduction:
		return len(b.Production)
	case RecordCentro:
		return len(b.Centros)
	case RecordProceso:
		return len(b.Procesos)
	}
	return 0
}

// SKUs returns the distinct SKUs referenced by the batch, in first-seen order.
// Production batches contribute both produced and raw-material SKUs.
func (b *Batch) SKUs() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	switch b.Type {
	case RecordMaster:
		for _, m := range b.Masters {
			add(m.SKU)
		}
	case RecordMovements, RecordStock:
		for _, m := range b.Movements {
			add(m.SKU)
		}
	case RecordDemand:
		for _, d := range b.Demand {
			add(d.SKU)
		}
	case RecordProduction:
		for _, p := range b.Production {
			add(p.SKU)
			add(p.RawMaterial)
		}
	}
	return out
}
