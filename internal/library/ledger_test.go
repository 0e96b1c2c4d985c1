package library

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mtglib/server/internal/models"
)

// fakeStore is an in-memory persistence slot for tests.
type fakeStore struct {
	entries []models.LibraryEntry
	saves   int
	err     error
}

func (s *fakeStore) Load() ([]models.LibraryEntry, error) {
	return s.entries, s.err
}

func (s *fakeStore) Save(entries []models.LibraryEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = entries
	s.saves++
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	ledger, err := NewLedger(store)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return ledger, store
}

func shockCard() models.Card {
	return models.Card{
		ID:              "shock-9ed",
		Name:            "Shock",
		SetName:         "Ninth Edition",
		CollectorNumber: "221",
		ImageSmall:      "https://img.example/shock-small.jpg",
		ImageNormal:     "https://img.example/shock-normal.jpg",
		PriceUSD:        0.25,
		PriceFoilUSD:    1.10,
	}
}

func TestAddCreatesEntry(t *testing.T) {
	ledger, store := newTestLedger(t)

	entry, created, err := ledger.Add(shockCard(), 3, false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !created {
		t.Error("expected a new entry")
	}
	if entry.ID != "shock-9ed" || entry.ScryfallID != "shock-9ed" {
		t.Errorf("expected route key from Scryfall ID, got %q/%q", entry.ID, entry.ScryfallID)
	}
	if entry.Quantity != 3 || entry.UnitPrice != 0.25 {
		t.Errorf("quantity/price = %d/%.2f, want 3/0.25", entry.Quantity, entry.UnitPrice)
	}
	if entry.TotalValue != 0.75 {
		t.Errorf("TotalValue = %.2f, want 0.75", entry.TotalValue)
	}
	if entry.LastModified.IsZero() {
		t.Error("LastModified not set")
	}
	if store.saves != 1 {
		t.Errorf("expected 1 persist, got %d", store.saves)
	}
}

func TestAddIsAssociativeInQuantity(t *testing.T) {
	one, _ := newTestLedger(t)
	two, _ := newTestLedger(t)

	if _, _, err := one.Add(shockCard(), 5, false); err != nil {
		t.Fatal(err)
	}

	if _, _, err := two.Add(shockCard(), 2, false); err != nil {
		t.Fatal(err)
	}
	entry, created, err := two.Add(shockCard(), 3, false)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second add of the same identity should merge, not create")
	}

	want := one.Entries()[0]
	if entry.Quantity != want.Quantity {
		t.Errorf("quantity after 2+3 = %d, after single 5 = %d", entry.Quantity, want.Quantity)
	}
	if entry.TotalValue != want.TotalValue {
		t.Errorf("total after 2+3 = %.2f, after single 5 = %.2f", entry.TotalValue, want.TotalValue)
	}
	if len(two.Entries()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(two.Entries()))
	}
}

func TestAddFoilAndNonFoilAreDistinct(t *testing.T) {
	ledger, _ := newTestLedger(t)

	if _, _, err := ledger.Add(shockCard(), 1, false); err != nil {
		t.Fatal(err)
	}
	foilEntry, created, err := ledger.Add(shockCard(), 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("foil copy of the same printing must be a distinct entry")
	}
	if foilEntry.UnitPrice != 1.10 {
		t.Errorf("foil entry should use the foil quote, got %.2f", foilEntry.UnitPrice)
	}
	if len(ledger.Entries()) != 2 {
		t.Errorf("expected 2 entries, got %d", len(ledger.Entries()))
	}
}

func TestFindMatchFinishTieBreak(t *testing.T) {
	entries := []models.LibraryEntry{
		{ID: "x", ScryfallID: "x", Name: "Shock", Foil: true},
	}
	candidate := models.LibraryEntry{ScryfallID: "x", Name: "Shock", Foil: false}

	if i := findMatch(entries, candidate); i != -1 {
		t.Errorf("same source ID with different finish must not match, got index %d", i)
	}
}

func TestFindMatchFallsBackToNameSetNumber(t *testing.T) {
	entries := []models.LibraryEntry{
		{ID: "gen", Name: "Shock", SetName: "Ninth Edition", CollectorNumber: "221", Foil: false},
	}

	// Candidate from CSV without an identifier.
	candidate := models.LibraryEntry{Name: "Shock", SetName: "Ninth Edition", CollectorNumber: "221", Foil: false}
	if i := findMatch(entries, candidate); i != 0 {
		t.Errorf("expected fallback match at 0, got %d", i)
	}

	// Candidate with an unknown identifier still falls through to tier two.
	candidate.ScryfallID = "shock-9ed"
	if i := findMatch(entries, candidate); i != 0 {
		t.Errorf("expected fallback match at 0 after ID miss, got %d", i)
	}
}

func TestAddBackfillsPriceOnlyWhenZero(t *testing.T) {
	ledger, _ := newTestLedger(t)

	free := shockCard()
	free.PriceUSD = 0
	free.PriceFoilUSD = 0
	if _, _, err := ledger.Add(free, 1, false); err != nil {
		t.Fatal(err)
	}

	entry, _, err := ledger.Add(shockCard(), 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if entry.UnitPrice != 0.25 {
		t.Errorf("zero price should be backfilled, got %.2f", entry.UnitPrice)
	}

	pricier := shockCard()
	pricier.PriceUSD = 9.99
	entry, _, err = ledger.Add(pricier, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if entry.UnitPrice != 0.25 {
		t.Errorf("nonzero price must not be overwritten on add, got %.2f", entry.UnitPrice)
	}
	if entry.TotalValue != 0.75 {
		t.Errorf("TotalValue = %.2f, want 0.75", entry.TotalValue)
	}
}

func TestAddBackfillsMissingMetadata(t *testing.T) {
	ledger, _ := newTestLedger(t)

	bare := models.Card{Name: "Shock", SetName: "Ninth Edition", CollectorNumber: "221"}
	if _, _, err := ledger.Add(bare, 1, false); err != nil {
		t.Fatal(err)
	}

	entry, created, err := ledger.Add(shockCard(), 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("expected merge via name/set/number fallback")
	}
	if entry.ScryfallID != "shock-9ed" {
		t.Errorf("ScryfallID not backfilled: %q", entry.ScryfallID)
	}
	if entry.ImageSmall == "" || entry.ImageNormal == "" {
		t.Error("image refs not backfilled")
	}
}

func TestAddRejectsUnidentifiableCard(t *testing.T) {
	ledger, store := newTestLedger(t)

	_, _, err := ledger.Add(models.Card{SetName: "Ninth Edition"}, 1, false)
	if !errors.Is(err, ErrInvalidCard) {
		t.Fatalf("expected ErrInvalidCard, got %v", err)
	}
	if len(ledger.Entries()) != 0 {
		t.Error("ledger must be unchanged after a rejected add")
	}
	if store.saves != 0 {
		t.Error("nothing should be persisted after a rejected add")
	}
}

func TestFoilPriceFallsBackToRegularQuote(t *testing.T) {
	ledger, _ := newTestLedger(t)

	card := shockCard()
	card.PriceFoilUSD = 0
	entry, _, err := ledger.Add(card, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if entry.UnitPrice != 0.25 {
		t.Errorf("foil add without foil quote should use regular quote, got %.2f", entry.UnitPrice)
	}
}

func TestUpdateQuantityRecomputesTotal(t *testing.T) {
	ledger, _ := newTestLedger(t)
	if _, _, err := ledger.Add(shockCard(), 1, false); err != nil {
		t.Fatal(err)
	}

	entry, found, removed := ledger.UpdateQuantity("shock-9ed", false, 7)
	if !found || removed {
		t.Fatalf("found=%v removed=%v, want found and kept", found, removed)
	}
	if entry.Quantity != 7 {
		t.Errorf("quantity = %d, want 7", entry.Quantity)
	}
	if entry.TotalValue != 1.75 {
		t.Errorf("TotalValue = %.2f, want 1.75", entry.TotalValue)
	}
}

func TestUpdateQuantityBelowOneRemoves(t *testing.T) {
	ledger, _ := newTestLedger(t)
	if _, _, err := ledger.Add(shockCard(), 2, false); err != nil {
		t.Fatal(err)
	}

	_, found, removed := ledger.UpdateQuantity("shock-9ed", false, 0)
	if !found || !removed {
		t.Fatalf("found=%v removed=%v, want removal", found, removed)
	}
	if len(ledger.Entries()) != 0 {
		t.Error("entry should be gone")
	}

	// A later add of the same identity starts a fresh entry.
	entry, created, err := ledger.Add(shockCard(), 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if !created || entry.Quantity != 1 {
		t.Errorf("created=%v quantity=%d, want fresh entry with quantity 1", created, entry.Quantity)
	}
}

func TestUpdateQuantityUnknownEntry(t *testing.T) {
	ledger, _ := newTestLedger(t)

	if _, found, _ := ledger.UpdateQuantity("nope", false, 3); found {
		t.Error("expected not found for unknown entry")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	ledger, store := newTestLedger(t)
	if _, _, err := ledger.Add(shockCard(), 1, false); err != nil {
		t.Fatal(err)
	}
	savesAfterAdd := store.saves

	ledger.Remove("shock-9ed", false)
	ledger.Remove("shock-9ed", false) // no-op, no error

	if len(ledger.Entries()) != 0 {
		t.Error("entry should be removed")
	}
	// Removing the last entry empties the ledger, and an empty ledger is
	// never persisted — the previous blob stays untouched.
	if store.saves != savesAfterAdd {
		t.Errorf("empty ledger must not be persisted, saves went %d -> %d", savesAfterAdd, store.saves)
	}
}

func TestTotalValueInvariant(t *testing.T) {
	ledger, _ := newTestLedger(t)

	odd := shockCard()
	odd.ID = "odd"
	odd.CollectorNumber = "1"
	odd.PriceUSD = 0.333
	if _, _, err := ledger.Add(odd, 3, false); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ledger.Add(shockCard(), 4, true); err != nil {
		t.Fatal(err)
	}
	ledger.UpdateQuantity("shock-9ed", true, 9)

	for _, e := range ledger.Entries() {
		want := math.Round(e.UnitPrice*float64(e.Quantity)*100) / 100
		if e.TotalValue != want {
			t.Errorf("entry %s: TotalValue = %v, want %v", e.ID, e.TotalValue, want)
		}
	}
	if got := ledger.TotalValue(); got != round2(1.0+9.90) {
		t.Errorf("TotalValue() = %v, want %v", got, round2(1.0+9.90))
	}
}

func TestStats(t *testing.T) {
	ledger, _ := newTestLedger(t)
	if _, _, err := ledger.Add(shockCard(), 4, false); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ledger.Add(shockCard(), 1, true); err != nil {
		t.Fatal(err)
	}

	stats := ledger.Stats()
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
	if stats.TotalCards != 5 {
		t.Errorf("TotalCards = %d, want 5", stats.TotalCards)
	}
	if stats.TotalValue != 2.10 {
		t.Errorf("TotalValue = %.2f, want 2.10", stats.TotalValue)
	}
}

func TestLedgerLoadsFromStore(t *testing.T) {
	store := &fakeStore{entries: []models.LibraryEntry{
		{ID: "x", ScryfallID: "x", Name: "Shock", Quantity: 2, UnitPrice: 0.25, TotalValue: 0.50},
	}}

	ledger, err := NewLedger(store)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	entries := ledger.Entries()
	if len(entries) != 1 || entries[0].Name != "Shock" {
		t.Fatalf("unexpected loaded entries: %+v", entries)
	}
}

func TestRefreshPrices(t *testing.T) {
	ledger, _ := newTestLedger(t)
	if _, _, err := ledger.Add(shockCard(), 2, false); err != nil {
		t.Fatal(err)
	}

	// Imported entry without an identifier cannot be refreshed.
	noID := models.Card{Name: "Mystery", SetName: "Unknown"}
	if _, _, err := ledger.Add(noID, 1, false); err != nil {
		t.Fatal(err)
	}

	fetched := 0
	fetch := func(ctx context.Context, id string) (*models.Card, error) {
		fetched++
		card := shockCard()
		card.PriceUSD = 0.40
		return &card, nil
	}

	updated := ledger.RefreshPrices(context.Background(), fetch)
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}
	if fetched != 1 {
		t.Errorf("fetch called %d times, want 1", fetched)
	}
	for _, e := range ledger.Entries() {
		if e.ScryfallID == "shock-9ed" {
			if e.UnitPrice != 0.40 || e.TotalValue != 0.80 {
				t.Errorf("refreshed entry price/total = %.2f/%.2f, want 0.40/0.80", e.UnitPrice, e.TotalValue)
			}
		}
	}
}

func TestRefreshPricesSkipsFailures(t *testing.T) {
	ledger, _ := newTestLedger(t)
	if _, _, err := ledger.Add(shockCard(), 1, false); err != nil {
		t.Fatal(err)
	}

	fetch := func(ctx context.Context, id string) (*models.Card, error) {
		return nil, errors.New("upstream down")
	}
	if updated := ledger.RefreshPrices(context.Background(), fetch); updated != 0 {
		t.Errorf("updated = %d, want 0", updated)
	}
	if ledger.Entries()[0].UnitPrice != 0.25 {
		t.Error("entry must be untouched when the fetch fails")
	}
}
