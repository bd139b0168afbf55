package ingest

import (
	"path/filepath"
	"strings"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/catalog"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/textnorm"
)

// Detection methods, in precedence order.
const (
	DetectedByFilename = "filename"
	DetectedByColumns  = "columns"
	DetectedByFallback = "generic_filename"
)

// Detection explains how a record type was chosen.
type Detection struct {
	Type   domain.RecordType
	Method string
	Scores map[domain.RecordType]int
}

// DetectRecordType picks the record type of an unlabeled sheet.
func DetectRecordType(filename string, header []string, cat *catalog.Catalog) domain.RecordType {
	return Detect(filename, header, cat).Type
}

// Detect applies filename rules, then column keyword scoring, then the generic
// filename fallback. Type is RecordUnknown when all three fail.
func Detect(filename string, header []string, cat *catalog.Catalog) Detection {
	fname := textnorm.Fold(filepath.Base(filename))
	cols := make([]string, 0, len(header))
	present := make(map[string]bool, len(header))
	for _, h := range header {
		if k := textnorm.Fold(h); k != "" {
			cols = append(cols, k)
			present[k] = true
		}
	}

	if hasAll(present, cat.StockColumns) {
		return Detection{Type: domain.RecordStock, Method: DetectedByColumns}
	}
	if t, ok := matchRules(fname, cat.FilenameRules); ok {
		return Detection{Type: t, Method: DetectedByFilename}
	}

	scores := scoreColumns(cols, present, cat)
	best, bestScore := domain.RecordUnknown, 0
	for _, t := range domain.RecordTypes() {
		if scores[t] > bestScore {
			best, bestScore = t, scores[t]
		}
	}
	if bestScore > 0 {
		return Detection{Type: best, Method: DetectedByColumns, Scores: scores}
	}

	if t, ok := matchRules(fname, cat.GenericRules); ok {
		return Detection{Type: t, Method: DetectedByFallback, Scores: scores}
	}
	return Detection{Type: domain.RecordUnknown, Scores: scores}
}

func scoreColumns(cols []string, present map[string]bool, cat *catalog.Catalog) map[domain.RecordType]int {
	scores := make(map[domain.RecordType]int)
	for _, col := range cols {
		for _, w := range cat.KeywordWeights {
			for _, k := range w.Keywords {
				if strings.Contains(col, k) {
					scores[w.Type] += w.Weight
					break
				}
			}
		}
	}
	for _, s := range cat.Schemas {
		for _, f := range s.Fields {
			for _, v := range f.Variants {
				if present[textnorm.Fold(v)] {
					scores[s.Type]++
				}
			}
		}
	}
	return scores
}

func matchRules(fname string, rules []catalog.FilenameRule) (domain.RecordType, bool) {
	if fname == "" {
		return domain.RecordUnknown, false
	}
	for _, r := range rules {
		for _, k := range r.Keywords {
			if strings.Contains(fname, k) {
				return r.Type, true
			}
		}
	}
	return domain.RecordUnknown, false
}

func hasAll(present map[string]bool, keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !present[k] {
			return false
		}
	}
	return true
}
