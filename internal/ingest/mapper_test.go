package ingest

import (
	"testing"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/catalog"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

func schemaOf(t *testing.T, rt domain.RecordType) catalog.Schema {
	t.Helper()
	s, ok := catalog.Default().Schema(rt)
	if !ok {
		t.Fatalf("no schema for %s", rt)
	}
	return s
}

func TestMapColumns(t *testing.T) {
	tests := []struct {
		name     string
		rt       domain.RecordType
		header   []string
		want     map[string]int
		unmapped []string
	}{
		{
			name:   "master with accents and abbreviations",
			rt:     domain.RecordMaster,
			header: []string{"Código", "Texto breve", "UMB", "Familia", "Lead Time"},
			want: map[string]int{
				"codigo":           0,
				"descripcion":      1,
				"unidad_medida":    2,
				"nivel1_jerarquia": 3,
				"lead_time":        4,
			},
			unmapped: []string{"grupo_articulos", "tipo_material"},
		},
		{
			name:     "claimed column is not reused",
			rt:       domain.RecordMovements,
			header:   []string{"Material", "Tipo", "Cantidad"},
			want:     map[string]int{"codigo": 0, "clase_movimiento": 1, "cantidad": 2},
			unmapped: []string{"tipo_movimiento", "fecha"},
		},
		{
			name:   "exact match on a later variant beats containment",
			rt:     domain.RecordMaster,
			header: []string{"Codigo Antiguo", "SKU"},
			want:   map[string]int{"codigo": 1},
		},
		{
			name:     "containment when no exact match",
			rt:       domain.RecordDemand,
			header:   []string{"Fecha Pedido", "Cantidad Diaria Proyectada"},
			want:     map[string]int{"fecha": 0, "cantidad_diaria": 1},
			unmapped: []string{"codigo"},
		},
		{
			name:     "empty header cells are never claimed",
			rt:       domain.RecordDemand,
			header:   []string{"", "Fecha", "Cantidad Diaria"},
			want:     map[string]int{"fecha": 1, "cantidad_diaria": 2},
			unmapped: []string{"codigo"},
		},
		{
			name:   "reordered columns converge",
			rt:     domain.RecordStock,
			header: []string{"Almacén válido", "Libre utilización", "Almacén", "Centro", "Material"},
			want:   map[string]int{"codigo": 4, "cantidad": 1, "centro": 3, "almacen": 2, "almacen_valido": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := MapColumns(tt.header, schemaOf(t, tt.rt))
			for field, idx := range tt.want {
				if got := cm.Index(field); got != idx {
					t.Errorf("Index(%q) = %d, want %d", field, got, idx)
				}
			}
			for _, field := range tt.unmapped {
				if cm.Has(field) {
					t.Errorf("field %q should be unmapped, got column %d", field, cm.Index(field))
				}
			}
		})
	}
}

func TestColumnMapMissing(t *testing.T) {
	s := schemaOf(t, domain.RecordDemand)
	cm := MapColumns([]string{"Fecha", "Codigo"}, s)
	missing := cm.Missing(s.Required)
	if len(missing) != 1 || missing[0] != "cantidad_diaria" {
		t.Errorf("Missing() = %v, want [cantidad_diaria]", missing)
	}
}
