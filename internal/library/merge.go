package library

import (
	"time"

	"github.com/mtglib/server/internal/models"
)

// mergeEntry folds an incoming candidate into an existing entry. Both the
// manual add path and the CSV import path go through this one function so
// their precedence rules cannot drift apart.
//
// Quantities accumulate. The stored price is replaced only when it is zero
// and the incoming price is not — except with preferIncomingPrice, where any
// positive incoming price wins (CSV import treats the file as the fresher
// source). Foil status is monotonic: once an entry is foil it stays foil.
// Metadata is backfilled only where currently missing.
func mergeEntry(existing, incoming models.LibraryEntry, preferIncomingPrice bool) models.LibraryEntry {
	merged := existing
	merged.Quantity += incoming.Quantity

	switch {
	case preferIncomingPrice && incoming.UnitPrice > 0:
		merged.UnitPrice = incoming.UnitPrice
	case merged.UnitPrice == 0 && incoming.UnitPrice > 0:
		merged.UnitPrice = incoming.UnitPrice
	}

	if incoming.Foil {
		merged.Foil = true
	}

	if merged.ScryfallID == "" {
		merged.ScryfallID = incoming.ScryfallID
	}
	if merged.SetName == "" {
		merged.SetName = incoming.SetName
	}
	if merged.CollectorNumber == "" {
		merged.CollectorNumber = incoming.CollectorNumber
	}
	if merged.ImageSmall == "" {
		merged.ImageSmall = incoming.ImageSmall
	}
	if merged.ImageNormal == "" {
		merged.ImageNormal = incoming.ImageNormal
	}

	merged.TotalValue = round2(merged.UnitPrice * float64(merged.Quantity))
	merged.LastModified = time.Now()
	return merged
}
