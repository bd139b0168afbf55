// Package dedup decides which incoming records are already known, inside a
// batch and against a remote store.
package dedup

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

// SignatureVersion names the normalization contract below. Signatures are
// persisted implicitly through the remote rows they are derived from, so any
// change to field order or value rendering needs a new version.
const SignatureVersion = "v1"

// QuantityPlaces is the fixed number of decimals kept for non-integral
// numbers. Values closer than 5e-7 share a signature regardless of
// magnitude.
const QuantityPlaces = 6

// Record is a row keyed by column name, as stored remotely.
type Record map[string]any

// Spec is the signature contract of one remote table.
type Spec struct {
	Table      string
	DateColumn string
	// Fields is the ordered signature tuple. DateColumn is rendered as a date.
	Fields []string
	// Columns are written on upload, Fields included.
	Columns []string
	// SourceColumn, when set, receives the originating file name on upload.
	SourceColumn string
}

// MovementSpec is the contract of the movement ledger table.
func MovementSpec(table string) Spec {
	return Spec{
		Table:      table,
		DateColumn: "fecha",
		Fields:     []string{"material_clave", "fecha", "cl_movimiento", "centro", "almacen", "cantidad_final_tn"},
		Columns:    []string{"material_clave", "material_texto", "unidad_medida", "fecha", "cl_movimiento", "tipo2", "cantidad_final_tn", "centro", "almacen"},

		SourceColumn: "source_file",
	}
}

// ProductionSpec is the contract of the production ledger table.
func ProductionSpec(table string) Spec {
	return Spec{
		Table:      table,
		DateColumn: "fecha_contabilizacion",
		Fields:     []string{"orden", "material", "fecha_contabilizacion", "cantidad_tn", "clase_orden"},
		Columns:    []string{"fecha_contabilizacion", "clase_orden", "orden", "material", "cantidad_tn"},
	}
}

// Signature joins the normalized signature fields of r with "|".
func (s Spec) Signature(r Record) string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		if f == s.DateColumn {
			parts[i] = NormalizeDate(r[f])
		} else {
			parts[i] = NormalizeValue(r[f])
		}
	}
	return strings.Join(parts, "|")
}

// MinDate returns the earliest date of the batch, or the zero time when no
// row carries one.
func (s Spec) MinDate(rows []Record) time.Time {
	var min time.Time
	for _, r := range rows {
		d, ok := asDate(r[s.DateColumn])
		if !ok {
			continue
		}
		if min.IsZero() || d.Before(min) {
			min = d
		}
	}
	return min
}

// NormalizeValue renders a scalar for signatures. Blank is "", integral
// numbers have no decimal point, other numbers are rounded to QuantityPlaces
// with trailing zeros removed, everything else is trimmed text. Strings that
// parse as numbers are treated as numbers so stored and parsed values agree.
func NormalizeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return normalizeText(x)
	case *string:
		if x == nil {
			return ""
		}
		return normalizeText(*x)
	case float64:
		return normalizeFloat(x)
	case *float64:
		if x == nil {
			return ""
		}
		return normalizeFloat(*x)
	case float32:
		return normalizeFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case *int:
		if x == nil {
			return ""
		}
		return strconv.Itoa(*x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case decimal.Decimal:
		return normalizeDecimal(x)
	case time.Time:
		return NormalizeDate(x)
	case fmt.Stringer:
		return normalizeText(x.String())
	default:
		return normalizeText(fmt.Sprint(x))
	}
}

// NormalizeDate renders a date as YYYY-MM-DD from a time value or from a
// string carrying a date followed by a 'T' or space separated time.
func NormalizeDate(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(domain.DateLayout)
	case *time.Time:
		if x == nil || x.IsZero() {
			return ""
		}
		return x.Format(domain.DateLayout)
	case string:
		s := strings.TrimSpace(x)
		if i := strings.IndexByte(s, 'T'); i >= 0 {
			s = s[:i]
		}
		if i := strings.IndexByte(s, ' '); i >= 0 {
			s = s[:i]
		}
		return s
	default:
		return NormalizeDate(fmt.Sprint(x))
	}
}

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || strings.HasPrefix(strings.ToLower(strings.TrimLeft(s, "+-")), "0x") {
		return s
	}
	return normalizeFloat(f)
}

func normalizeFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return normalizeDecimal(decimal.NewFromFloat(f))
}

func normalizeDecimal(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String()
	}
	return d.Round(QuantityPlaces).String()
}

func asDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, !x.IsZero()
	case string:
		t, err := time.Parse(domain.DateLayout, NormalizeDate(x))
		return t, err == nil
	}
	return time.Time{}, false
}

// FromMovements renders ledger lines with the column names of MovementSpec.
func FromMovements(ms []domain.MovementRecord) []Record {
	out := make([]Record, len(ms))
	for i, m := range ms {
		out[i] = Record{
			"material_clave":    m.SKU,
			"material_texto":    m.Description,
			"unidad_medida":     m.Unit,
			"fecha":             m.Date,
			"cl_movimiento":     m.Class,
			"tipo2":             m.Type,
			"cantidad_final_tn": m.Quantity,
			"centro":            m.Centro,
			"almacen":           m.Almacen,
		}
	}
	return out
}

// FromProduction renders plan lines with the column names of ProductionSpec.
func FromProduction(ps []domain.ProductionPlanRecord) []Record {
	out := make([]Record, len(ps))
	for i, p := range ps {
		out[i] = Record{
			"fecha_contabilizacion": p.Date,
			"clase_orden":           p.ProcessClass,
			"orden":                 p.ProcessOrder,
			"material":              p.SKU,
			"cantidad_tn":           p.Programmed,
		}
	}
	return out
}

// MovementSignature is the signature of a single ledger line.
func MovementSignature(m domain.MovementRecord) string {
	return MovementSpec("").Signature(FromMovements([]domain.MovementRecord{m})[0])
}

// ProductionSignature is the signature of a single plan line.
func ProductionSignature(p domain.ProductionPlanRecord) string {
	return ProductionSpec("").Signature(FromProduction([]domain.ProductionPlanRecord{p})[0])
}
