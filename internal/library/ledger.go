// Package library holds the owned-card ledger: identity resolution, merge
// semantics, value accounting, and CSV interchange.
package library

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mtglib/server/internal/models"
)

// ErrInvalidCard is returned when an add carries neither a name nor a
// Scryfall ID, leaving nothing to identify the card by.
var ErrInvalidCard = errors.New("card has no name or identifier")

// Store is the persistence slot the ledger is loaded from and saved to.
// The whole ledger is one opaque blob; there is no per-entry storage.
type Store interface {
	Load() ([]models.LibraryEntry, error)
	Save(entries []models.LibraryEntry) error
}

// Ledger is the in-memory set of owned-card entries. At most one entry
// exists per (identity, foil) pair, every entry holds quantity >= 1, and
// TotalValue == round(UnitPrice*Quantity, 2) after every operation.
//
// Every mutation persists the full ledger to the store. The save is skipped
// while the ledger is empty so that a fresh process can never clobber a
// previous session's data with an empty write.
type Ledger struct {
	mu      sync.Mutex
	store   Store
	entries []models.LibraryEntry
}

// NewLedger loads the persisted ledger, if any, from store.
func NewLedger(store Store) (*Ledger, error) {
	entries, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Ledger{store: store, entries: entries}, nil
}

// Entries returns a copy of the ledger, most recently modified first.
func (l *Ledger) Entries() []models.LibraryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]models.LibraryEntry, len(l.entries))
	copy(entries, l.entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastModified.After(entries[j].LastModified)
	})
	return entries
}

// Add records quantity copies of the given printing. If an entry with the
// same identity and finish already exists the quantities accumulate;
// otherwise a new entry is created. Returns the resulting entry and whether
// it was newly created.
func (l *Ledger) Add(card models.Card, quantity int, foil bool) (models.LibraryEntry, bool, error) {
	if card.Name == "" && card.ID == "" {
		return models.LibraryEntry{}, false, ErrInvalidCard
	}
	if quantity < 1 {
		quantity = 1
	}

	incoming := models.LibraryEntry{
		ScryfallID:      card.ID,
		Name:            card.Name,
		SetName:         card.SetName,
		CollectorNumber: card.CollectorNumber,
		Foil:            foil,
		UnitPrice:       resolveUnitPrice(card, foil),
		Quantity:        quantity,
		ImageSmall:      card.ImageSmall,
		ImageNormal:     card.ImageNormal,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if i := findMatch(l.entries, incoming); i >= 0 {
		l.entries[i] = mergeEntry(l.entries[i], incoming, false)
		l.persist()
		return l.entries[i], false, nil
	}

	entry := newEntry(incoming)
	l.entries = append(l.entries, entry)
	l.persist()
	return entry, true, nil
}

// UpdateQuantity sets the quantity of the entry with the given route key and
// finish. A quantity below 1 removes the entry. The bool results report
// whether the entry existed and whether it was removed.
func (l *Ledger) UpdateQuantity(id string, foil bool, quantity int) (models.LibraryEntry, bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexByID(id, foil)
	if i < 0 {
		return models.LibraryEntry{}, false, false
	}

	if quantity < 1 {
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		l.persist()
		return models.LibraryEntry{}, true, true
	}

	l.entries[i].Quantity = quantity
	l.entries[i].TotalValue = round2(l.entries[i].UnitPrice * float64(quantity))
	l.entries[i].LastModified = time.Now()
	l.persist()
	return l.entries[i], true, false
}

// Remove deletes the entry with the given route key and finish. Removing an
// absent entry is not an error.
func (l *Ledger) Remove(id string, foil bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexByID(id, foil)
	if i < 0 {
		return
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	l.persist()
}

// TotalValue returns the summed value of the ledger, rounded to cents.
func (l *Ledger) TotalValue() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalValueLocked()
}

func (l *Ledger) totalValueLocked() float64 {
	var total float64
	for _, e := range l.entries {
		total += e.TotalValue
	}
	return round2(total)
}

func (l *Ledger) Stats() models.LibraryStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := models.LibraryStats{
		Entries:    len(l.entries),
		TotalValue: l.totalValueLocked(),
	}
	for _, e := range l.entries {
		stats.TotalCards += e.Quantity
	}
	return stats
}

// CardFetcher retrieves a printing by Scryfall ID. A nil card with a nil
// error means the printing no longer exists.
type CardFetcher func(ctx context.Context, id string) (*models.Card, error)

// RefreshPrices re-fetches current quotes for every entry that carries a
// Scryfall ID and recomputes totals. Entries whose fetch fails are left
// untouched. Returns the number of entries updated.
func (l *Ledger) RefreshPrices(ctx context.Context, fetch CardFetcher) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	updated := 0
	for i := range l.entries {
		if l.entries[i].ScryfallID == "" {
			continue
		}
		card, err := fetch(ctx, l.entries[i].ScryfallID)
		if err != nil || card == nil {
			continue
		}
		price := resolveUnitPrice(*card, l.entries[i].Foil)
		if price == l.entries[i].UnitPrice {
			continue
		}
		l.entries[i].UnitPrice = price
		l.entries[i].TotalValue = round2(price * float64(l.entries[i].Quantity))
		l.entries[i].LastModified = time.Now()
		updated++
	}

	if updated > 0 {
		l.persist()
	}
	return updated
}

func (l *Ledger) indexByID(id string, foil bool) int {
	for i, e := range l.entries {
		if e.ID == id && e.Foil == foil {
			return i
		}
	}
	return -1
}

// persist writes the full ledger to the store. Callers hold the lock.
// An empty ledger is deliberately not saved; see the type comment.
func (l *Ledger) persist() {
	if len(l.entries) == 0 {
		return
	}
	snapshot := make([]models.LibraryEntry, len(l.entries))
	copy(snapshot, l.entries)
	if err := l.store.Save(snapshot); err != nil {
		log.Printf("Warning: failed to persist library: %v", err)
	}
}

// newEntry materializes an incoming candidate as a fresh ledger entry,
// assigning a route key when the candidate carries no Scryfall ID.
func newEntry(incoming models.LibraryEntry) models.LibraryEntry {
	entry := incoming
	entry.ID = incoming.ScryfallID
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.TotalValue = round2(entry.UnitPrice * float64(entry.Quantity))
	entry.LastModified = time.Now()
	return entry
}

// resolveUnitPrice picks the foil quote for foil copies when one exists,
// falling back to the regular quote, then zero.
func resolveUnitPrice(card models.Card, foil bool) float64 {
	if foil && card.PriceFoilUSD > 0 {
		return card.PriceFoilUSD
	}
	if card.PriceUSD > 0 {
		return card.PriceUSD
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
