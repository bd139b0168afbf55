// Package validation checks incoming records against the article master.
package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

const (
	// MaxSuggestionDistance bounds the edit distance of a suggested SKU.
	MaxSuggestionDistance = 3
	// MaxReportedSKUs caps the detail lines of a validation warning.
	MaxReportedSKUs = 10
)

// MasterSource lists the stored article master.
type MasterSource interface {
	ListMasters(ctx context.Context) ([]domain.MasterItem, error)
}

// MasterCache is a read-through snapshot of the article master, built once
// per ingestion and never mutated afterwards.
type MasterCache struct {
	items map[string]domain.MasterItem
	codes []string
}

// LoadMasterCache reads the full master from src.
func LoadMasterCache(ctx context.Context, src MasterSource) (*MasterCache, error) {
	items, err := src.ListMasters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load article master: %w", err)
	}
	return NewMasterCache(items), nil
}

func NewMasterCache(items []domain.MasterItem) *MasterCache {
	c := &MasterCache{items: make(map[string]domain.MasterItem, len(items))}
	for _, it := range items {
		if _, ok := c.items[it.SKU]; !ok {
			c.codes = append(c.codes, it.SKU)
		}
		c.items[it.SKU] = it
	}
	sort.Strings(c.codes)
	return c
}

func (c *MasterCache) Len() int { return len(c.items) }

func (c *MasterCache) Has(sku string) bool {
	_, ok := c.items[sku]
	return ok
}

// Item returns the master entry of sku.
func (c *MasterCache) Item(sku string) (domain.MasterItem, bool) {
	it, ok := c.items[sku]
	return it, ok
}

// UnitOf returns the base unit of sku, or "" when unknown.
func (c *MasterCache) UnitOf(sku string) string {
	return c.items[sku].Unit
}

// SKUs returns the known codes in ascending order.
func (c *MasterCache) SKUs() []string {
	return append([]string(nil), c.codes...)
}

// Suggest returns the closest known code within MaxSuggestionDistance,
// compared case-insensitively. Ties keep the smallest code.
func (c *MasterCache) Suggest(sku string) (string, bool) {
	best, bestDist := "", MaxSuggestionDistance+1
	needle := strings.ToLower(sku)
	for _, code := range c.codes {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(code))
		if d < bestDist {
			best, bestDist = code, d
		}
	}
	return best, best != ""
}

// UnknownSKU is a code absent from the master.
type UnknownSKU struct {
	SKU        string `json:"codigo"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Report is the outcome of validating a set of codes.
type Report struct {
	Checked  int          `json:"checked"`
	Unknown  []UnknownSKU `json:"unknown,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// ValidateSKUs checks every distinct code of skus, in first-seen order.
// Unknown codes are warnings, never errors.
func (c *MasterCache) ValidateSKUs(skus []string) Report {
	var r Report
	seen := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		if sku == "" {
			continue
		}
		if _, ok := seen[sku]; ok {
			continue
		}
		seen[sku] = struct{}{}
		r.Checked++
		if c.Has(sku) {
			continue
		}
		u := UnknownSKU{SKU: sku}
		if s, ok := c.Suggest(sku); ok {
			u.Suggestion = s
		}
		r.Unknown = append(r.Unknown, u)
	}
	if len(r.Unknown) == 0 {
		return r
	}

	r.Warnings = append(r.Warnings, fmt.Sprintf("%d SKUs no encontrados en Maestro de Artículos", len(r.Unknown)))
	for i, u := range r.Unknown {
		if i == MaxReportedSKUs {
			break
		}
		line := "  - " + u.SKU
		if u.Suggestion != "" {
			line += fmt.Sprintf(" (¿Quiso decir '%s'?)", u.Suggestion)
		}
		r.Warnings = append(r.Warnings, line)
	}
	if n := len(r.Unknown); n > MaxReportedSKUs {
		r.Warnings = append(r.Warnings, fmt.Sprintf("  ... y %d más", n-MaxReportedSKUs))
	}
	return r
}
