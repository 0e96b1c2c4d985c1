package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mtglib/server/internal/models"
)

func TestLoadMissingSlotIsEmpty(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	entries, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entries != nil {
		t.Errorf("expected nil entries for a fresh database, got %d", len(entries))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	entries := []models.LibraryEntry{
		{
			ID:              "shock-9ed",
			ScryfallID:      "shock-9ed",
			Name:            "Shock",
			SetName:         "Ninth Edition",
			CollectorNumber: "221",
			UnitPrice:       0.25,
			Quantity:        3,
			TotalValue:      0.75,
			LastModified:    time.Now().Truncate(time.Second),
		},
		{
			ID:       "generated-1",
			Name:     "Lightning Bolt",
			Foil:     true,
			Quantity: 1,
		},
	}

	if err := store.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(got))
	}
	if got[0].Name != "Shock" || got[0].Quantity != 3 || got[0].TotalValue != 0.75 {
		t.Errorf("first entry corrupted: %+v", got[0])
	}
	if !got[1].Foil {
		t.Error("foil flag lost in round trip")
	}
}

func TestSaveOverwritesSlot(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := store.Save([]models.LibraryEntry{{ID: "a", Name: "A", Quantity: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save([]models.LibraryEntry{
		{ID: "b", Name: "B", Quantity: 2},
		{ID: "c", Name: "C", Quantity: 1},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "b" {
		t.Errorf("slot not overwritten: %+v", got)
	}
}
