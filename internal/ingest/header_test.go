package ingest

import (
	"testing"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/catalog"
)

func TestLocateHeader(t *testing.T) {
	cat := catalog.Default()

	tests := []struct {
		name        string
		rows        [][]string
		limit       int
		wantRow     int
		wantMatches int
	}{
		{
			name: "header below title rows",
			rows: [][]string{
				{"REPORTE MENSUAL", "", ""},
				{"Generado: 2024-01-01"},
				{},
				{"Material", "Texto breve de material", "Centro", "Almacén", "Libre utilización"},
				{"100", "Resina", "2100", "2118", "15"},
			},
			wantRow:     3,
			wantMatches: 5,
		},
		{
			name: "ties keep earliest row",
			rows: [][]string{
				{"Codigo", "Fecha"},
				{"SKU", "Fecha"},
			},
			wantRow:     0,
			wantMatches: 2,
		},
		{
			name: "no match falls back to row zero",
			rows: [][]string{
				{"foo", "bar"},
				{"1", "2"},
			},
			wantRow:     0,
			wantMatches: 0,
		},
		{
			name: "header outside scan window is ignored",
			rows: [][]string{
				{"titulo"},
				{"titulo"},
				{"Codigo", "Fecha", "Cantidad"},
			},
			limit:       2,
			wantRow:     0,
			wantMatches: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocateHeader(tt.rows, tt.limit, cat)
			if got.Row != tt.wantRow || got.Matches != tt.wantMatches {
				t.Errorf("LocateHeader() = %+v, want row %d with %d matches", got, tt.wantRow, tt.wantMatches)
			}
		})
	}
}

func TestLocateHeaderAnywhereInWindow(t *testing.T) {
	cat := catalog.Default()
	for pos := 0; pos < DefaultHeaderScanRows; pos++ {
		rows := make([][]string, pos+2)
		for i := 0; i < pos; i++ {
			rows[i] = []string{"decoración"}
		}
		rows[pos] = []string{"Fecha", "Código", "Cantidad Diaria"}
		rows[pos+1] = []string{"2024-01-01", "1", "5"}

		got := LocateHeader(rows, DefaultHeaderScanRows, cat)
		if got.Row != pos || !got.Found() {
			t.Fatalf("header at %d: got %+v", pos, got)
		}
	}
}
