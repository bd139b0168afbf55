package ingest

import (
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/catalog"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/textnorm"
)

// DefaultHeaderScanRows bounds how far below the top a header may sit.
const DefaultHeaderScanRows = 30

// HeaderMatch is the outcome of LocateHeader.
type HeaderMatch struct {
	Row     int
	Matches int
}

// Found reports whether any scanned row matched the catalog.
func (h HeaderMatch) Found() bool { return h.Matches > 0 }

// LocateHeader returns the row among the first limit rows whose cells match
// the most catalog variants. Ties keep the earliest row. When nothing matches
// the result is row 0 with zero matches.
func LocateHeader(rows [][]string, limit int, cat *catalog.Catalog) HeaderMatch {
	if limit <= 0 {
		limit = DefaultHeaderScanRows
	}
	if limit > len(rows) {
		limit = len(rows)
	}

	best := HeaderMatch{}
	for i := 0; i < limit; i++ {
		n := 0
		for _, cell := range rows[i] {
			if k := textnorm.Fold(cell); k != "" && cat.IsVariant(k) {
				n++
			}
		}
		if n > best.Matches {
			best = HeaderMatch{Row: i, Matches: n}
		}
	}
	return best
}
