package models

import (
	"time"
)

// LibraryEntry is one owned card in the library. A foil and a non-foil copy
// of the same printing are distinct entries.
//
// ID is the route key: the Scryfall ID when known, otherwise a generated UUID
// for entries created from CSV rows that carry no identifier. Identity for
// merging is the Scryfall ID when present, falling back to
// (name, set name, collector number) — always together with Foil.
type LibraryEntry struct {
	ID              string    `json:"id"`
	ScryfallID      string    `json:"scryfall_id,omitempty"`
	Name            string    `json:"name"`
	SetName         string    `json:"set_name"`
	CollectorNumber string    `json:"collector_number"`
	Foil            bool      `json:"foil"`
	UnitPrice       float64   `json:"unit_price"`
	Quantity        int       `json:"quantity"`
	TotalValue      float64   `json:"total_value"`
	ImageSmall      string    `json:"image_small,omitempty"`
	ImageNormal     string    `json:"image_normal,omitempty"`
	LastModified    time.Time `json:"last_modified"`
}

type LibraryStats struct {
	Entries    int     `json:"entries"`
	TotalCards int     `json:"total_cards"`
	TotalValue float64 `json:"total_value"`
}

type AddToLibraryRequest struct {
	Card     Card `json:"card" binding:"required"`
	Quantity int  `json:"quantity"`
	Foil     bool `json:"foil"`
}

type UpdateEntryRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
	Foil     bool `json:"foil"`
}

// ImportResult summarizes a CSV import. Row-level problems never abort the
// batch; they show up as skipped rows.
type ImportResult struct {
	Created int `json:"created"`
	Merged  int `json:"merged"`
	Skipped int `json:"skipped"`
	Entries int `json:"entries"`
}
