package ingest

import (
	"testing"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/catalog"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

func TestDetect(t *testing.T) {
	cat := catalog.Default()

	tests := []struct {
		name       string
		filename   string
		header     []string
		want       domain.RecordType
		wantMethod string
	}{
		{"stock export by name", "MB52_planta.xlsx", []string{"foo"}, domain.RecordStock, DetectedByFilename},
		{"stock name wins over movement columns", "mb52.xlsx", []string{"Clase mov", "Cantidad"}, domain.RecordStock, DetectedByFilename},
		{"stock by columns", "export.xlsx", []string{"Material", "Stock Final Tons"}, domain.RecordStock, DetectedByColumns},
		{"demand by name", "Venta Proyectada 2024.xlsx", nil, domain.RecordDemand, DetectedByFilename},
		{"ledger by name", "DATO BO DIA.xlsx", nil, domain.RecordMovements, DetectedByFilename},
		{"master by name", "Maestro de Artículos.xlsx", nil, domain.RecordMaster, DetectedByFilename},
		{"plan by name", "Plan Produccion.xlsx", nil, domain.RecordProduction, DetectedByFilename},
		{"stock by generic name", "Saldos.xlsx", nil, domain.RecordStock, DetectedByFilename},
		{"full path only uses base name", "/srv/maestro/export.xlsx", []string{"zzz"}, domain.RecordUnknown, ""},
		{"demand by column keywords", "export.xlsx", []string{"Fecha", "Codigo", "Pronostico"}, domain.RecordDemand, DetectedByColumns},
		{"master by column keywords", "export.xlsx", []string{"Código", "Jerarquía", "Peso"}, domain.RecordMaster, DetectedByColumns},
		{"generic filename fallback", "prod_x.xlsx", []string{"zzz"}, domain.RecordProduction, DetectedByFallback},
		{"unknown", "export.xlsx", []string{"foo", "bar"}, domain.RecordUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.filename, tt.header, cat)
			if got.Type != tt.want {
				t.Fatalf("Detect(%q, %v) = %s, want %s (scores %v)", tt.filename, tt.header, got.Type, tt.want, got.Scores)
			}
			if got.Method != tt.wantMethod {
				t.Errorf("method = %q, want %q", got.Method, tt.wantMethod)
			}
		})
	}
}
