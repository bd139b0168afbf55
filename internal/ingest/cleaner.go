package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/textnorm"
)

// quantityFields are coerced in this order; the order fixes warning order.
var quantityFields = []string{"cantidad", "cantidad_diaria", "programado", "consumo", "numero_semana", "lead_time"}

// Row is one data row seen through the column map after the shared
// date, quantity and SKU checks.
type Row struct {
	cells []string
	cols  ColumnMap

	Date time.Time
	SKU  string
	qty  map[string]float64
}

// Str returns the trimmed text of field; the "nan" marker reads as empty.
func (r *Row) Str(field string) string {
	v := strings.TrimSpace(r.cols.Cell(r.cells, field))
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

// Qty returns the parsed quantity of field. ok is false when the field was
// optional and left empty, or unmapped.
func (r *Row) Qty(field string) (float64, bool) {
	v, ok := r.qty[field]
	return v, ok
}

type counters struct {
	invalidDates int
	invalidQty   map[string]int
	excluded     int
	emptySKU     int
	unknownClass int
}

func (c *counters) warnings(total, kept int) []string {
	var out []string
	if c.invalidDates > 0 {
		out = append(out, fmt.Sprintf("%d filas con fechas inválidas", c.invalidDates))
	}
	for _, f := range quantityFields {
		if n := c.invalidQty[f]; n > 0 {
			out = append(out, fmt.Sprintf("%d filas con %s inválida", n, f))
		}
	}
	if c.excluded > 0 {
		out = append(out, fmt.Sprintf("%d movimientos de tipo 'Traspaso' excluidos", c.excluded))
	}
	if c.emptySKU > 0 {
		out = append(out, fmt.Sprintf("%d filas con SKU vacío removidas", c.emptySKU))
	}
	if c.unknownClass > 0 {
		out = append(out, fmt.Sprintf("%d movimientos con clase no estándar conservados", c.unknownClass))
	}
	if removed := total - kept; removed > 0 {
		out = append(out, fmt.Sprintf("%d filas eliminadas durante limpieza", removed))
	}
	return out
}

// Handler is the cleaning behaviour of one record type.
type Handler struct {
	Type domain.RecordType

	// optional quantities may be left empty without dropping the row
	optional map[string]bool
	// dateless sheets are stamped with today
	defaultToday bool

	accept func(b *domain.Batch, r *Row, c *counters) bool
}

var handlers = map[domain.RecordType]Handler{
	domain.RecordMaster: {
		Type:     domain.RecordMaster,
		optional: map[string]bool{"lead_time": true},
		accept:   acceptMaster,
	},
	domain.RecordDemand: {
		Type:   domain.RecordDemand,
		accept: acceptDemand,
	},
	domain.RecordMovements: {
		Type:   domain.RecordMovements,
		accept: acceptMovement,
	},
	domain.RecordProduction: {
		Type:     domain.RecordProduction,
		optional: map[string]bool{"consumo": true, "numero_semana": true},
		accept:   acceptProduction,
	},
	domain.RecordStock: {
		Type:         domain.RecordStock,
		optional:     map[string]bool{"cantidad": true},
		defaultToday: true,
		accept:       acceptStock,
	},
	domain.RecordCentro: {
		Type:   domain.RecordCentro,
		accept: acceptCentro,
	},
	domain.RecordProceso: {
		Type:   domain.RecordProceso,
		accept: acceptProceso,
	},
}

// HandlerFor selects the cleaning handler of t.
func HandlerFor(t domain.RecordType) (Handler, error) {
	h, ok := handlers[t]
	if !ok {
		return Handler{}, fmt.Errorf("%w: %s", ErrUnknownRecordType, t)
	}
	return h, nil
}

// CleanResult is the typed output of Clean.
type CleanResult struct {
	Batch    *domain.Batch
	Total    int
	Excluded int
	Warnings []string
}

// Clean converts data rows into typed records. Rows are dropped at the first
// failing check and counted under that check only.
func Clean(h Handler, rows [][]string, cols ColumnMap, today time.Time) *CleanResult {
	today = domain.DayKey(today)
	c := &counters{invalidQty: make(map[string]int)}
	b := &domain.Batch{Type: h.Type}

	kept := 0
	for _, cells := range rows {
		if isBlankRow(cells) {
			continue
		}
		r := &Row{cells: cells, cols: cols, qty: make(map[string]float64)}

		if cols.Has("fecha") {
			d, ok := ParseDate(cols.Cell(cells, "fecha"))
			if !ok {
				c.invalidDates++
				continue
			}
			r.Date = d
		} else if h.defaultToday {
			r.Date = today
		}

		if !h.coerceQuantities(r, c) {
			continue
		}

		if cols.Has("codigo") {
			sku := textnorm.SKU(cols.Cell(cells, "codigo"))
			if sku == "" || strings.EqualFold(sku, "nan") {
				c.emptySKU++
				continue
			}
			r.SKU = sku
		}

		if !h.accept(b, r, c) {
			continue
		}
		kept++
	}

	return &CleanResult{
		Batch:    b,
		Total:    len(rows),
		Excluded: c.excluded,
		Warnings: c.warnings(len(rows), kept),
	}
}

func (h Handler) coerceQuantities(r *Row, c *counters) bool {
	for _, f := range quantityFields {
		if !r.cols.Has(f) {
			continue
		}
		raw := strings.TrimSpace(r.cols.Cell(r.cells, f))
		if raw == "" && h.optional[f] {
			continue
		}
		v, ok := ParseQuantity(raw)
		if !ok {
			c.invalidQty[f]++
			return false
		}
		r.qty[f] = v
	}
	return true
}

func acceptMaster(b *domain.Batch, r *Row, _ *counters) bool {
	item := domain.MasterItem{
		SKU:          r.SKU,
		Description:  r.Str("descripcion"),
		Unit:         r.Str("unidad_medida"),
		HierarchyL1:  r.Str("nivel1_jerarquia"),
		ArticleGroup: r.Str("grupo_articulos"),
		MaterialType: r.Str("tipo_material"),
	}
	if lt, ok := r.Qty("lead_time"); ok {
		item.LeadTimeDays = &lt
	}
	b.Masters = append(b.Masters, item)
	return true
}

func acceptDemand(b *domain.Batch, r *Row, _ *counters) bool {
	q, _ := r.Qty("cantidad_diaria")
	b.Demand = append(b.Demand, domain.DemandRecord{SKU: r.SKU, Date: r.Date, DailyQuantity: q})
	return true
}

func acceptMovement(b *domain.Batch, r *Row, c *counters) bool {
	class := strings.ToUpper(r.Str("clase_movimiento"))
	if class == "" {
		class = strings.ToUpper(r.Str("tipo_movimiento"))
	}
	if class == "" {
		class = domain.ClassOther
	}
	if IsExcludedClass(class) {
		c.excluded++
		return false
	}
	if !IsAllowedClass(class) {
		c.unknownClass++
	}

	q, _ := r.Qty("cantidad")
	b.Movements = append(b.Movements, domain.MovementRecord{
		SKU:      r.SKU,
		Class:    class,
		Type:     r.Str("tipo_movimiento"),
		Date:     r.Date,
		Quantity: q,
		Unit:     r.Str("unidad_medida"),
		Centro:   trimFloatSuffix(r.Str("centro")),
		Almacen:  trimFloatSuffix(r.Str("almacen")),
	})
	return true
}

func acceptProduction(b *domain.Batch, r *Row, c *counters) bool {
	sku := productionSKU(r.Str("sku"))
	if sku == "" {
		c.emptySKU++
		return false
	}
	rec := domain.ProductionPlanRecord{
		Date:         r.Date,
		ProcessOrder: trimFloatSuffix(r.Str("orden_proceso")),
		SKU:          sku,
		RawMaterial:  productionSKU(r.Str("materia_prima")),
		ProcessClass: r.Str("clase_proceso"),
	}
	rec.Programmed, _ = r.Qty("programado")
	rec.Consumption, _ = r.Qty("consumo")
	if w, ok := r.Qty("numero_semana"); ok {
		n := int(w)
		rec.WeekNumber = &n
	}
	b.Production = append(b.Production, rec)
	return true
}

func acceptStock(b *domain.Batch, r *Row, _ *counters) bool {
	q, _ := r.Qty("cantidad")
	b.Movements = append(b.Movements, domain.MovementRecord{
		SKU:           r.SKU,
		Description:   r.Str("descripcion"),
		Unit:          r.Str("unidad_medida"),
		Class:         domain.ClassStock,
		Type:          domain.TypeStockSnapshot,
		Date:          r.Date,
		Quantity:      q,
		Centro:        trimFloatSuffix(r.Str("centro")),
		Almacen:       trimFloatSuffix(r.Str("almacen")),
		AlmacenValido: trimFloatSuffix(r.Str("almacen_valido")),
	})
	return true
}

func acceptCentro(b *domain.Batch, r *Row, _ *counters) bool {
	centro := trimFloatSuffix(r.Str("centro"))
	if centro == "" {
		return false
	}
	b.Centros = append(b.Centros, domain.CentroRecord{
		Centro:      centro,
		Description: r.Str("descripcion"),
		Country:     r.Str("pais"),
	})
	return true
}

func acceptProceso(b *domain.Batch, r *Row, _ *counters) bool {
	proceso := r.Str("proceso")
	if proceso == "" {
		return false
	}
	b.Procesos = append(b.Procesos, domain.ProcesoRecord{
		ProcessClass: trimFloatSuffix(r.Str("clase_proceso")),
		Process:      proceso,
		Area:         r.Str("area"),
		CentroCode:   trimFloatSuffix(r.Str("centro_codigo")),
	})
	return true
}

// IsExcludedClass reports whether an upper-cased movement class never
// reaches storage.
func IsExcludedClass(class string) bool {
	for _, x := range domain.ExcludedMovementClasses {
		if class == x {
			return true
		}
	}
	return false
}

// IsAllowedClass reports whether class is one the planner reasons about.
// Accents are ignored so PRODUCCIÓN and PRODUCCION are the same class.
func IsAllowedClass(class string) bool {
	k := textnorm.Fold(class)
	for _, a := range domain.AllowedMovementClasses {
		if k == textnorm.Fold(a) {
			return true
		}
	}
	return false
}

func productionSKU(s string) string {
	v := textnorm.SKU(s)
	if textnorm.IsNullToken(v) {
		return ""
	}
	return v
}

// trimFloatSuffix undoes the ".0" that spreadsheets add to numeric codes.
func trimFloatSuffix(s string) string {
	if !strings.HasSuffix(s, ".0") {
		return s
	}
	head := s[:len(s)-2]
	if _, err := strconv.ParseInt(head, 10, 64); err != nil {
		return s
	}
	return head
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
