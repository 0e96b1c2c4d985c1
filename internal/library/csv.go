package library

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mtglib/server/internal/models"
)

// ErrMissingNameColumn is returned when an imported CSV has no column that
// can be read as the card name. Every other column is optional.
var ErrMissingNameColumn = errors.New("csv has no name column")

// csvHeader is the fixed export header. Name and set are quoted on export so
// embedded commas survive; embedded double quotes are not escaped and are
// unsupported input.
const csvHeader = "Name,Set,Collector Number,Price,Quantity,Total Value,Foil,Scryfall ID"

// ExportCSV writes the ledger as CSV, one row per entry.
func (l *Ledger) ExportCSV(w io.Writer) error {
	l.mu.Lock()
	entries := make([]models.LibraryEntry, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	if _, err := fmt.Fprintln(w, csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		foil := "No"
		if e.Foil {
			foil = "Yes"
		}
		_, err := fmt.Fprintf(w, "\"%s\",\"%s\",%s,%.2f,%d,%.2f,%s,%s\n",
			e.Name, e.SetName, e.CollectorNumber, e.UnitPrice, e.Quantity, e.TotalValue, foil, e.ScryfallID)
		if err != nil {
			return err
		}
	}
	return nil
}

// columnMap holds the sniffed index of each semantic column, -1 when the
// header has no matching column.
type columnMap struct {
	name      int
	set       int
	collector int
	price     int
	quantity  int
	total     int
	foil      int
	source    int
}

// ImportCSV parses an arbitrary CSV and merges its rows into the ledger.
// Columns are located by sniffing the header row; only a name column is
// required. File-level problems (unreadable input, no name column) abort
// the import; malformed individual rows are defaulted or skipped.
func (l *Ledger) ImportCSV(r io.Reader) (models.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("failed to read csv: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return models.ImportResult{}, ErrMissingNameColumn
	}

	cols := sniffColumns(splitQuoted(lines[0]))
	if cols.name < 0 {
		return models.ImportResult{}, ErrMissingNameColumn
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var result models.ImportResult
	for _, line := range lines[1:] {
		fields := splitQuoted(line)

		name := fieldAt(fields, cols.name)
		if name == "" {
			result.Skipped++
			continue
		}

		quantity := parseQuantity(fieldAt(fields, cols.quantity))
		price := parsePrice(fieldAt(fields, cols.price))
		total := parsePrice(fieldAt(fields, cols.total))

		// A row may carry a total without a usable price; back the price
		// out so the value survives the import.
		if price == 0 && total > 0 && quantity > 0 {
			price = round2(total / float64(quantity))
		}

		incoming := models.LibraryEntry{
			ScryfallID:      fieldAt(fields, cols.source),
			Name:            name,
			SetName:         fieldAt(fields, cols.set),
			CollectorNumber: fieldAt(fields, cols.collector),
			Foil:            parseFoil(fieldAt(fields, cols.foil)),
			UnitPrice:       price,
			Quantity:        quantity,
		}

		if i := findMatch(l.entries, incoming); i >= 0 {
			l.entries[i] = mergeEntry(l.entries[i], incoming, true)
			result.Merged++
			continue
		}
		l.entries = append(l.entries, newEntry(incoming))
		result.Created++
	}

	l.persist()
	result.Entries = len(l.entries)
	return result, nil
}

// columnCandidates maps each semantic field to acceptable header names, in
// priority order. Matching is case-insensitive: an exact pass over all
// candidates first, then a substring pass, each column claimed at most once.
// The exact pass keeps a bare "Name" header from being shadowed by
// "Set Name" and the like.
var columnCandidates = struct {
	name, set, collector, price, quantity, total, foil, source []string
}{
	name:      []string{"card name", "card", "name"},
	set:       []string{"set name", "set", "edition", "expansion"},
	collector: []string{"collector number", "collector", "card number", "number", "no."},
	price:     []string{"unit price", "price", "usd", "cost"},
	quantity:  []string{"quantity", "qty", "count", "copies"},
	total:     []string{"total value", "total"},
	foil:      []string{"foil", "finish", "printing"},
	source:    []string{"scryfall id", "scryfall", "card id", "uuid", "id"},
}

func sniffColumns(headers []string) columnMap {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	claimed := make([]bool, len(normalized))
	find := func(candidates []string) int {
		for _, cand := range candidates {
			for i, h := range normalized {
				if !claimed[i] && h == cand {
					claimed[i] = true
					return i
				}
			}
		}
		for _, cand := range candidates {
			for i, h := range normalized {
				if !claimed[i] && strings.Contains(h, cand) {
					claimed[i] = true
					return i
				}
			}
		}
		return -1
	}

	return columnMap{
		name:      find(columnCandidates.name),
		set:       find(columnCandidates.set),
		collector: find(columnCandidates.collector),
		price:     find(columnCandidates.price),
		quantity:  find(columnCandidates.quantity),
		total:     find(columnCandidates.total),
		foil:      find(columnCandidates.foil),
		source:    find(columnCandidates.source),
	}
}

// splitQuoted splits a CSV line on commas outside double quotes and strips
// surrounding quotes from each field. Embedded escaped quotes are not
// handled; the export format never produces them.
func splitQuoted(line string) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	fields = append(fields, strings.TrimSpace(field.String()))
	return fields
}

func fieldAt(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

func parseQuantity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// parsePrice reads a non-negative decimal, tolerating currency symbols,
// thousands separators, and stray whitespace. Anything unparseable is 0.
func parsePrice(s string) float64 {
	s = strings.TrimSpace(s)
	for _, junk := range []string{"$", "€", "£", ",", " "} {
		s = strings.ReplaceAll(s, junk, "")
	}
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseFoil(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true
	}
	return false
}
