package validation

import (
	"fmt"
	"strings"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

type unitPair struct{ from, to string }

// Multiply by the factor to go from .from to .to. A zero factor means the
// ratio depends on the article and is not known here.
var unitFactors = map[unitPair]float64{
	{"kg", "g"}:           1000,
	{"kg", "mg"}:          1000000,
	{"ton", "kg"}:         1000,
	{"lb", "kg"}:          0.453592,
	{"l", "ml"}:           1000,
	{"gal", "l"}:          3.78541,
	{"docena", "unidad"}:  12,
	{"caja", "unidad"}:    0,
	{"paquete", "unidad"}: 0,
	{"m", "cm"}:           100,
	{"m", "mm"}:           1000,
	{"km", "m"}:           1000,
}

var unitAliases = map[string]string{
	"kilogramos": "kg",
	"kilogramo":  "kg",
	"kilos":      "kg",
	"kilo":       "kg",
	"gramos":     "g",
	"gramo":      "g",
	"gr":         "g",
	"litros":     "l",
	"litro":      "l",
	"lt":         "l",
	"lts":        "l",
	"mililitros": "ml",
	"mililitro":  "ml",
	"unidades":   "unidad",
	"unid":       "unidad",
	"und":        "unidad",
	"un":         "unidad",
	"pza":        "unidad",
	"pieza":      "unidad",
	"piezas":     "unidad",
	"cajas":      "caja",
	"cj":         "caja",
	"paquetes":   "paquete",
	"paq":        "paquete",
	"pk":         "paquete",
	"docenas":    "docena",
	"doc":        "docena",
	"metros":     "m",
	"metro":      "m",
	"mts":        "m",
}

// CanonicalUnit lower-cases unit and resolves common spellings.
func CanonicalUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if a, ok := unitAliases[u]; ok {
		return a
	}
	return u
}

// ConvertUnit converts q between units using the factor table in either
// direction.
func ConvertUnit(q float64, from, to string) (float64, bool) {
	from, to = CanonicalUnit(from), CanonicalUnit(to)
	if from == to {
		return q, true
	}
	if f := unitFactors[unitPair{from, to}]; f != 0 {
		return q * f, true
	}
	if f := unitFactors[unitPair{to, from}]; f != 0 {
		return q / f, true
	}
	return q, false
}

// Conversion is the result of bringing a quantity to the master base unit.
type Conversion struct {
	Quantity float64
	Unit     string
	OK       bool
	Message  string
}

// UnitNormalizer converts quantities to the base unit of the master.
type UnitNormalizer struct {
	master *MasterCache
}

func NewUnitNormalizer(master *MasterCache) *UnitNormalizer {
	return &UnitNormalizer{master: master}
}

// NormalizeToBase converts q expressed in unit to the base unit of sku.
func (n *UnitNormalizer) NormalizeToBase(sku string, q float64, unit string) Conversion {
	base := n.master.UnitOf(sku)
	if base == "" {
		return Conversion{Quantity: q, Unit: unit, Message: fmt.Sprintf("SKU '%s' no encontrado en maestro", sku)}
	}
	cur := CanonicalUnit(unit)
	if cur == CanonicalUnit(base) {
		return Conversion{Quantity: q, Unit: base, OK: true, Message: "Sin conversión necesaria"}
	}
	out, ok := ConvertUnit(q, cur, base)
	if !ok {
		return Conversion{Quantity: q, Unit: cur, Message: fmt.Sprintf("No se pudo convertir de %s a %s", cur, base)}
	}
	return Conversion{Quantity: out, Unit: base, OK: true, Message: fmt.Sprintf("Convertido de %s a %s", cur, base)}
}

// NormalizeMovements rewrites in place the quantity and unit of every line
// whose unit differs from its master base unit. Lines without SKU, unit, a
// non-zero quantity or a known base unit are left alone.
func (n *UnitNormalizer) NormalizeMovements(ms []domain.MovementRecord) (converted, failed int, warnings []string) {
	for i := range ms {
		m := &ms[i]
		if m.SKU == "" || m.Unit == "" || m.Quantity == 0 || n.master.UnitOf(m.SKU) == "" {
			continue
		}
		c := n.NormalizeToBase(m.SKU, m.Quantity, m.Unit)
		switch {
		case !c.OK:
			failed++
		case c.Quantity != m.Quantity:
			m.Quantity, m.Unit = c.Quantity, c.Unit
			converted++
		}
	}
	if converted > 0 {
		warnings = append(warnings, fmt.Sprintf("%d cantidades convertidas a unidad base", converted))
	}
	if failed > 0 {
		warnings = append(warnings, fmt.Sprintf("%d conversiones fallidas (unidades incompatibles)", failed))
	}
	return converted, failed, warnings
}
