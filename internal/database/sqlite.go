// Package database persists the library as a single JSON blob in a SQLite
// key-value table. The ledger is read once at startup and rewritten whole on
// every mutation; there is no per-entry storage.
package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mtglib/server/internal/models"
)

const librarySlotKey = "library"

type slot struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

func (slot) TableName() string {
	return "kv_slots"
}

// LibraryStore is the SQLite-backed persistence slot for the ledger.
type LibraryStore struct {
	db *gorm.DB
}

func Open(dbPath string) (*LibraryStore, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&slot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database connected successfully")
	return &LibraryStore{db: db}, nil
}

// Load reads the persisted ledger. A missing slot is an empty library, not
// an error.
func (s *LibraryStore) Load() ([]models.LibraryEntry, error) {
	var rec slot
	err := s.db.First(&rec, "key = ?", librarySlotKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	var entries []models.LibraryEntry
	if err := json.Unmarshal(rec.Value, &entries); err != nil {
		return nil, fmt.Errorf("corrupt library blob: %w", err)
	}
	return entries, nil
}

// Save overwrites the ledger slot with the given entries.
func (s *LibraryStore) Save(entries []models.LibraryEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode library: %w", err)
	}

	rec := slot{Key: librarySlotKey, Value: data, UpdatedAt: time.Now()}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save library: %w", err)
	}
	return nil
}
