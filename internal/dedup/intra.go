package dedup

import (
	"fmt"
	"strings"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

// Partition splits rows into first occurrences and later repeats of the same
// key. Order is preserved in both halves.
func Partition[T any](rows []T, key func(T) string) (unique, dups []T) {
	seen := make(map[string]struct{}, len(rows))
	unique = make([]T, 0, len(rows))
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			dups = append(dups, r)
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, r)
	}
	return unique, dups
}

// DuplicatesWarning is the report line for n removed duplicates.
func DuplicatesWarning(n int) string {
	return fmt.Sprintf("%d filas duplicadas encontradas y eliminadas", n)
}

// DedupMasters keeps the first item per SKU.
func DedupMasters(items []domain.MasterItem) ([]domain.MasterItem, int) {
	unique, dups := Partition(items, func(m domain.MasterItem) string { return m.SKU })
	return unique, len(dups)
}

// DedupDemand keeps the first forecast line per (date, SKU).
func DedupDemand(rows []domain.DemandRecord) ([]domain.DemandRecord, int) {
	unique, dups := Partition(rows, func(d domain.DemandRecord) string {
		return keyOf(d.Date.Format(domain.DateLayout), d.SKU)
	})
	return unique, len(dups)
}

// DedupBatch removes intra-batch duplicates in place and returns the number
// removed with its warnings. Ledger batches are left alone since identical
// lines can be legitimate repeated transactions.
func DedupBatch(b *domain.Batch) (int, []string) {
	var n int
	switch b.Type {
	case domain.RecordMaster:
		b.Masters, n = DedupMasters(b.Masters)
	case domain.RecordDemand:
		b.Demand, n = DedupDemand(b.Demand)
	case domain.RecordCentro:
		var dups []domain.CentroRecord
		b.Centros, dups = Partition(b.Centros, func(c domain.CentroRecord) string { return c.Centro })
		n = len(dups)
	case domain.RecordProceso:
		var dups []domain.ProcesoRecord
		b.Procesos, dups = Partition(b.Procesos, func(p domain.ProcesoRecord) string { return p.ProcessClass })
		n = len(dups)
	}
	if n == 0 {
		return 0, nil
	}
	return n, []string{DuplicatesWarning(n)}
}

func keyOf(parts ...string) string {
	return strings.Join(parts, "|")
}
