package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	cfg := config.IngestConfig{HeaderScanRows: 30, CopyBeforeRead: true}
	clock := func() time.Time { return time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC) }
	return NewParser(nil, cfg, t.TempDir()).WithClock(clock)
}

func writeXLSX(t *testing.T, path string, sheets map[string][][]any, order []string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			vals := row
			if err := f.SetSheetRow(name, cell, &vals); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
}

func TestParseFileStockWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MB52_planta.xlsx")
	writeXLSX(t, path, map[string][][]any{
		"Stock": {
			{"Reporte MB52"},
			{"Material", "Texto breve de material", "Centro", "Almacén", "Libre utilización"},
			{"000100", "Resina", 2100, 2118, 1500.5},
			{"000101", "Film", 2100, 2119, 0},
		},
	}, []string{"Stock"})

	res, err := newTestParser(t).ParseFile(path, domain.RecordUnknown, "")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if res.Type != domain.RecordStock {
		t.Fatalf("type = %s, want stock", res.Type)
	}
	if res.Detection == nil || res.Detection.Method != DetectedByFilename {
		t.Errorf("detection = %+v", res.Detection)
	}
	if res.HeaderRow != 1 {
		t.Errorf("header row = %d, want 1", res.HeaderRow)
	}
	if len(res.Batch.Movements) != 2 {
		t.Fatalf("kept %d rows, want 2", len(res.Batch.Movements))
	}
	m := res.Batch.Movements[0]
	if m.SKU != "100" || m.Centro != "2100" || m.Almacen != "2118" || m.Quantity != 1500.5 {
		t.Errorf("row = %+v", m)
	}
	if m.Date.Format(domain.DateLayout) != "2024-03-10" {
		t.Errorf("snapshot date = %s, want today", m.Date.Format(domain.DateLayout))
	}
	if res.Mapped["cantidad"] != "Libre utilización" {
		t.Errorf("cantidad mapped from %q", res.Mapped["cantidad"])
	}
}

func TestParseFileNamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Maestro.xlsx")
	writeXLSX(t, path, map[string][][]any{
		"Maestro de Articulos": {
			{"Código", "Descripción"},
			{"1", "Resina"},
		},
		"Procesos": {
			{"Clase", "Proceso", "Área"},
			{"EXT", "Extrusión", "Planta 1"},
		},
	}, []string{"Maestro de Articulos", "Procesos"})

	p := newTestParser(t)
	res, err := p.ParseFile(path, domain.RecordProceso, "procesos")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(res.Batch.Procesos) != 1 || res.Batch.Procesos[0].Process != "Extrusión" || res.Batch.Procesos[0].ProcessClass != "EXT" {
		t.Errorf("procesos = %+v", res.Batch.Procesos)
	}

	if _, err := p.ParseFile(path, domain.RecordCentro, "Centro"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("missing sheet error = %v, want ErrSheetNotFound", err)
	}
}

func TestParseFileLatinCSV(t *testing.T) {
	text := "Código;Descripción;Lead Time\n000123;Tubería;30\n000124;Válvula;\n"
	enc, err := charmap.Windows1252.NewEncoder().String(text)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "articulos.csv")
	if err := os.WriteFile(path, []byte(enc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := newTestParser(t).ParseFile(path, domain.RecordUnknown, "")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if res.Type != domain.RecordMaster {
		t.Fatalf("type = %s, want maestro", res.Type)
	}
	if len(res.Batch.Masters) != 2 {
		t.Fatalf("kept %d items, want 2", len(res.Batch.Masters))
	}
	m := res.Batch.Masters[0]
	if m.SKU != "123" || m.Description != "Tubería" || m.LeadTimeDays == nil || *m.LeadTimeDays != 30 {
		t.Errorf("item = %+v", m)
	}
}

func TestParseSheetStructuralErrors(t *testing.T) {
	p := newTestParser(t)

	_, err := p.ParseSheet("demanda.xlsx", RawSheet{Name: "Hoja1", Rows: [][]string{
		{"Fecha", "Codigo"},
		{"2024-01-01", "1"},
	}}, domain.RecordDemand)
	if !errors.Is(err, ErrMissingRequiredFields) {
		t.Fatalf("err = %v, want ErrMissingRequiredFields", err)
	}
	var se *StructuralError
	if !errors.As(err, &se) || len(se.Missing) != 1 || se.Missing[0] != "cantidad_diaria" {
		t.Errorf("structural error = %+v", se)
	}

	_, err = p.ParseSheet("export.xlsx", RawSheet{Rows: [][]string{{"foo", "bar"}, {"1", "2"}}}, domain.RecordUnknown)
	if !errors.Is(err, ErrUnknownRecordType) {
		t.Errorf("err = %v, want ErrUnknownRecordType", err)
	}

	_, err = p.ParseSheet("maestro.xlsx", RawSheet{Rows: [][]string{{"Codigo"}}}, domain.RecordMaster)
	if !errors.Is(err, ErrEmptySheet) {
		t.Errorf("err = %v, want ErrEmptySheet", err)
	}
}

func TestParseSheetWarnsWhenNoHeaderMatches(t *testing.T) {
	res, err := newTestParser(t).ParseSheet("maestro.xlsx", RawSheet{Rows: [][]string{
		{"x", "y"},
		{"1", "2"},
	}}, domain.RecordMaster)
	if err == nil {
		t.Fatalf("expected structural error, got %+v", res)
	}
	var se *StructuralError
	if !errors.As(err, &se) || se.HeaderRow != 0 {
		t.Errorf("err = %v", err)
	}
}
