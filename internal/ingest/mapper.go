package ingest

import (
	"strings"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/catalog"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/textnorm"
)

// ColumnMap binds canonical field names to physical column positions.
// Columns that were not claimed stay in the row and are simply never read.
type ColumnMap struct {
	Header []string
	fields map[string]int
}

// MapColumns resolves each field of the schema, in schema order, against the
// header. Exact folded matches are tried across all variants before falling
// back to substring containment in either direction. A column claimed by one
// field is never offered to a later one.
func MapColumns(header []string, schema catalog.Schema) ColumnMap {
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = textnorm.Fold(h)
	}

	cm := ColumnMap{Header: header, fields: make(map[string]int, len(schema.Fields))}
	claimed := make(map[int]bool, len(header))

	for _, f := range schema.Fields {
		variants := make([]string, 0, len(f.Variants))
		for _, v := range f.Variants {
			if k := textnorm.Fold(v); k != "" {
				variants = append(variants, k)
			}
		}

		col := findColumn(folded, claimed, variants, func(col, v string) bool { return col == v })
		if col < 0 {
			col = findColumn(folded, claimed, variants, func(col, v string) bool {
				return strings.Contains(col, v) || strings.Contains(v, col)
			})
		}
		if col >= 0 {
			cm.fields[f.Name] = col
			claimed[col] = true
		}
	}
	return cm
}

func findColumn(folded []string, claimed map[int]bool, variants []string, match func(col, v string) bool) int {
	for _, v := range variants {
		for i, col := range folded {
			if col == "" || claimed[i] {
				continue
			}
			if match(col, v) {
				return i
			}
		}
	}
	return -1
}

// Has reports whether field was mapped.
func (m ColumnMap) Has(field string) bool {
	_, ok := m.fields[field]
	return ok
}

// Index returns the column position of field, or -1.
func (m ColumnMap) Index(field string) int {
	if i, ok := m.fields[field]; ok {
		return i
	}
	return -1
}

// Source returns the original header label mapped to field.
func (m ColumnMap) Source(field string) string {
	if i, ok := m.fields[field]; ok && i < len(m.Header) {
		return m.Header[i]
	}
	return ""
}

// Missing lists the required fields that were not mapped.
func (m ColumnMap) Missing(required []string) []string {
	var out []string
	for _, r := range required {
		if !m.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Mapped returns canonical field -> source label for every mapped field.
func (m ColumnMap) Mapped() map[string]string {
	out := make(map[string]string, len(m.fields))
	for f := range m.fields {
		out[f] = m.Source(f)
	}
	return out
}

// Cell returns the raw cell of row for field, or "" when unmapped or short.
func (m ColumnMap) Cell(row []string, field string) string {
	i, ok := m.fields[field]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
