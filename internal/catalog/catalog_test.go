package catalog

import (
	"testing"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

func TestDefaultCoversEveryRecordType(t *testing.T) {
	c := Default()
	for _, rt := range domain.RecordTypes() {
		s, ok := c.Schema(rt)
		if !ok {
			t.Fatalf("no schema for %s", rt)
		}
		if len(s.Required) == 0 {
			t.Errorf("%s has no required fields", rt)
		}
		names := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			names[f.Name] = true
		}
		for _, r := range s.Required {
			if !names[r] {
				t.Errorf("%s requires %q which is not a field", rt, r)
			}
		}
	}
}

func TestIsVariant(t *testing.T) {
	c := Default()
	tests := []struct {
		folded string
		want   bool
	}{
		{"codigo", true},
		{"librutilizacion", false},
		{"libreutilizacion", true},
		{"almacenvalido", true},
		{"um", true},
		{"", false},
		{"zzz", false},
	}
	for _, tt := range tests {
		if got := c.IsVariant(tt.folded); got != tt.want {
			t.Errorf("IsVariant(%q) = %v, want %v", tt.folded, got, tt.want)
		}
	}
}

func TestRulesAreFolded(t *testing.T) {
	c := Default()
	for _, w := range c.KeywordWeights {
		for _, k := range w.Keywords {
			if k == "clase mov" || k == "cl.mov" {
				t.Errorf("keyword %q should be folded", k)
			}
		}
	}
	if c.StockColumns[1] != "stockfinaltons" {
		t.Errorf("StockColumns[1] = %q, want stockfinaltons", c.StockColumns[1])
	}
}
