package library

import (
	"github.com/mtglib/server/internal/models"
)

// findMatch locates the existing entry that candidate refers to, or -1.
//
// Identifier matching takes precedence when the candidate carries a Scryfall
// ID; name/set/collector matching is the fallback for entries that came in
// through CSV without one. Both tiers require the same finish — a foil and a
// non-foil copy of the same printing never match each other.
func findMatch(entries []models.LibraryEntry, candidate models.LibraryEntry) int {
	if candidate.ScryfallID != "" {
		for i, e := range entries {
			if e.ScryfallID == candidate.ScryfallID && e.Foil == candidate.Foil {
				return i
			}
		}
	}

	for i, e := range entries {
		if e.Name == candidate.Name &&
			e.SetName == candidate.SetName &&
			e.CollectorNumber == candidate.CollectorNumber &&
			e.Foil == candidate.Foil {
			return i
		}
	}

	return -1
}
