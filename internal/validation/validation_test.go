package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

type stubSource struct {
	items []domain.MasterItem
	err   error
}

func (s stubSource) ListMasters(context.Context) ([]domain.MasterItem, error) {
	return s.items, s.err
}

func testMaster() *MasterCache {
	return NewMasterCache([]domain.MasterItem{
		{SKU: "10045", Unit: "KG"},
		{SKU: "20001", Unit: "Unidades"},
		{SKU: "ABC12", Unit: ""},
	})
}

func TestValidateSKUs(t *testing.T) {
	r := testMaster().ValidateSKUs([]string{"10045", "10046", "10046", "", "99999999"})

	if r.Checked != 3 {
		t.Errorf("checked = %d, want 3", r.Checked)
	}
	want := []string{
		"2 SKUs no encontrados en Maestro de Artículos",
		"  - 10046 (¿Quiso decir '10045'?)",
		"  - 99999999",
	}
	if !reflect.DeepEqual(r.Warnings, want) {
		t.Errorf("warnings = %q\nwant %q", r.Warnings, want)
	}
}

func TestValidateSKUsTruncatesDetail(t *testing.T) {
	var skus []string
	for i := 0; i < 13; i++ {
		skus = append(skus, fmt.Sprintf("ZZZZZZ%02d", i))
	}
	r := testMaster().ValidateSKUs(skus)
	if len(r.Unknown) != 13 {
		t.Fatalf("unknown = %d", len(r.Unknown))
	}
	if len(r.Warnings) != 12 {
		t.Fatalf("got %d warning lines, want 12", len(r.Warnings))
	}
	if last := r.Warnings[11]; last != "  ... y 3 más" {
		t.Errorf("last line = %q", last)
	}
}

func TestSuggest(t *testing.T) {
	c := testMaster()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"one edit", "10044", "10045"},
		{"case insensitive", "abc12", "ABC12"},
		{"too far", "XXXXXXXX", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := c.Suggest(tt.in)
			if got != tt.want {
				t.Errorf("Suggest(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadMasterCache(t *testing.T) {
	c, err := LoadMasterCache(context.Background(), stubSource{items: []domain.MasterItem{{SKU: "1", Unit: "KG"}}})
	if err != nil {
		t.Fatalf("LoadMasterCache: %v", err)
	}
	if !c.Has("1") || c.UnitOf("1") != "KG" || c.UnitOf("2") != "" {
		t.Errorf("cache = %+v", c)
	}

	boom := errors.New("db down")
	if _, err := LoadMasterCache(context.Background(), stubSource{err: boom}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestConvertUnit(t *testing.T) {
	tests := []struct {
		q        float64
		from, to string
		want     float64
		ok       bool
	}{
		{2, "Kilos", "g", 2000, true},
		{500, "gr", "KG", 0.5, true},
		{3, "doc", "und", 36, true},
		{1, "caja", "unidad", 1, false},
		{1, "kg", "m", 1, false},
		{7, "L", "litros", 7, true},
	}
	for _, tt := range tests {
		got, ok := ConvertUnit(tt.q, tt.from, tt.to)
		if ok != tt.ok || math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ConvertUnit(%v, %q, %q) = %v, %v; want %v, %v", tt.q, tt.from, tt.to, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeMovements(t *testing.T) {
	n := NewUnitNormalizer(testMaster())
	ms := []domain.MovementRecord{
		{SKU: "10045", Unit: "g", Quantity: 1500},
		{SKU: "10045", Unit: "kg", Quantity: 3},
		{SKU: "20001", Unit: "doc", Quantity: 2},
		{SKU: "20001", Unit: "kg", Quantity: 2},
		{SKU: "ABC12", Unit: "kg", Quantity: 2},
		{SKU: "77777", Unit: "kg", Quantity: 2},
	}
	converted, failed, warnings := n.NormalizeMovements(ms)
	if converted != 2 || failed != 1 {
		t.Fatalf("converted=%d failed=%d", converted, failed)
	}
	if ms[0].Quantity != 1.5 || ms[0].Unit != "KG" {
		t.Errorf("first line = %+v", ms[0])
	}
	if ms[2].Quantity != 24 || ms[2].Unit != "Unidades" {
		t.Errorf("dozen line = %+v", ms[2])
	}
	want := []string{"2 cantidades convertidas a unidad base", "1 conversiones fallidas (unidades incompatibles)"}
	if !reflect.DeepEqual(warnings, want) {
		t.Errorf("warnings = %q", warnings)
	}
}
