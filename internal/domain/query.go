package domain

import "time"

// Page bounds a listing.
type Page struct {
	Offset int
	Limit  int
}

// MasterFilter selects article master entries. Search matches code or
// description.
type MasterFilter struct {
	Page
	Search string
}

// DemandFilter selects forecast lines.
type DemandFilter struct {
	Page
	SKU  string
	From *time.Time
	To   *time.Time
}

// MovementFilter selects ledger lines.
type MovementFilter struct {
	Page
	SKU   string
	Class string
	From  *time.Time
	To    *time.Time
}

// Listing is a page of items with the total number of matches.
type Listing[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}

// SystemStatus tells which datasets have been loaded.
type SystemStatus struct {
	Status     string     `json:"status"`
	Master     bool       `json:"maestro"`
	Demand     bool       `json:"demanda"`
	Movements  bool       `json:"movimientos"`
	Production bool       `json:"produccion"`
	Stock      bool       `json:"stock"`
	TotalSKUs  int        `json:"total_skus"`
	LastUpload *time.Time `json:"last_upload"`
}
