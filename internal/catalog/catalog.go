// Package catalog holds the versioned configuration table that drives header
// location, column mapping and record type detection.
package catalog

import (
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/textnorm"
)

// Version identifies the catalog contents. Bump it whenever variants,
// weights or rules change so detections can be traced to a table.
const Version = "2025.1"

// Field is a canonical field with the human header labels it accepts.
// Variants are listed in preference order.
type Field struct {
	Name     string
	Variants []string
}

// Schema is the canonical field list of one record type, in mapping order.
type Schema struct {
	Type     domain.RecordType
	Fields   []Field
	Required []string
}

// FilenameRule maps any of its keywords found in a folded filename to a type.
type FilenameRule struct {
	Type     domain.RecordType
	Keywords []string
}

// KeywordWeight adds Weight to Type for every column containing a keyword.
type KeywordWeight struct {
	Type     domain.RecordType
	Keywords []string
	Weight   int
}

// Catalog is read-only once built.
type Catalog struct {
	Version string

	Schemas []Schema

	// StockColumns identifies a stock export by its columns alone.
	StockColumns []string

	FilenameRules  []FilenameRule
	KeywordWeights []KeywordWeight
	GenericRules   []FilenameRule

	byType   map[domain.RecordType]int
	variants map[string]struct{}
}

// New folds and indexes the given tables.
func New(version string, schemas []Schema, stockColumns []string, filenameRules []FilenameRule, weights []KeywordWeight, generic []FilenameRule) *Catalog {
	c := &Catalog{
		Version:        version,
		Schemas:        schemas,
		StockColumns:   foldAll(stockColumns),
		FilenameRules:  foldRules(filenameRules),
		KeywordWeights: make([]KeywordWeight, len(weights)),
		GenericRules:   foldRules(generic),
		byType:         make(map[domain.RecordType]int, len(schemas)),
		variants:       make(map[string]struct{}),
	}
	for i, w := range weights {
		c.KeywordWeights[i] = KeywordWeight{Type: w.Type, Keywords: foldAll(w.Keywords), Weight: w.Weight}
	}
	for i, s := range schemas {
		c.byType[s.Type] = i
		for _, f := range s.Fields {
			for _, v := range f.Variants {
				if k := textnorm.Fold(v); k != "" {
					c.variants[k] = struct{}{}
				}
			}
		}
	}
	return c
}

// Schema returns the schema of t.
func (c *Catalog) Schema(t domain.RecordType) (Schema, bool) {
	i, ok := c.byType[t]
	if !ok {
		return Schema{}, false
	}
	return c.Schemas[i], true
}

// IsVariant reports whether the folded label matches any variant of any type.
func (c *Catalog) IsVariant(folded string) bool {
	_, ok := c.variants[folded]
	return ok
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if k := textnorm.Fold(s); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func foldRules(in []FilenameRule) []FilenameRule {
	out := make([]FilenameRule, len(in))
	for i, r := range in {
		out[i] = FilenameRule{Type: r.Type, Keywords: foldAll(r.Keywords)}
	}
	return out
}
