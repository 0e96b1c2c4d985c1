package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mtglib/server/internal/library"
	"github.com/mtglib/server/internal/metrics"
	"github.com/mtglib/server/internal/models"
	"github.com/mtglib/server/internal/services"
)

// Maximum quantity allowed per library entry
const maxQuantity = 9999

type LibraryHandler struct {
	ledger   *library.Ledger
	scryfall *services.ScryfallClient
}

func NewLibraryHandler(ledger *library.Ledger, scryfall *services.ScryfallClient) *LibraryHandler {
	return &LibraryHandler{
		ledger:   ledger,
		scryfall: scryfall,
	}
}

func (h *LibraryHandler) GetLibrary(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Entries())
}

func (h *LibraryHandler) AddToLibrary(c *gin.Context) {
	var req models.AddToLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}
	if quantity > maxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("quantity exceeds maximum allowed (%d)", maxQuantity)})
		return
	}

	entry, created, err := h.ledger.Add(req.Card, quantity, req.Foil)
	if err != nil {
		if errors.Is(err, library.ErrInvalidCard) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	metrics.UpdateLibraryGauges(h.ledger.Stats())

	if created {
		c.JSON(http.StatusCreated, entry)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *LibraryHandler) UpdateEntry(c *gin.Context) {
	id := c.Param("id")

	var req models.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Quantity > maxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("quantity exceeds maximum allowed (%d)", maxQuantity)})
		return
	}

	entry, found, removed := h.ledger.UpdateQuantity(id, req.Foil, *req.Quantity)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	metrics.UpdateLibraryGauges(h.ledger.Stats())

	if removed {
		c.JSON(http.StatusOK, gin.H{"message": "removed"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *LibraryHandler) DeleteEntry(c *gin.Context) {
	id := c.Param("id")
	foil := c.Query("foil") == "true"

	// Removal is idempotent; deleting an absent entry is still a success.
	h.ledger.Remove(id, foil)
	metrics.UpdateLibraryGauges(h.ledger.Stats())

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *LibraryHandler) GetStats(c *gin.Context) {
	stats := h.ledger.Stats()
	metrics.UpdateLibraryGauges(stats)
	c.JSON(http.StatusOK, stats)
}

func (h *LibraryHandler) ExportCSV(c *gin.Context) {
	filename := fmt.Sprintf("mtg-library-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.ledger.ExportCSV(c.Writer); err != nil {
		// Headers are already out; all we can do is abort the stream.
		c.Abort()
		return
	}
	metrics.ExportsTotal.Inc()
}

func (h *LibraryHandler) ImportCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "csv file is required"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer src.Close()

	result, err := h.ledger.ImportCSV(src)
	if err != nil {
		if errors.Is(err, library.ErrMissingNameColumn) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	metrics.RecordImport(result)
	metrics.UpdateLibraryGauges(h.ledger.Stats())

	c.JSON(http.StatusOK, result)
}

func (h *LibraryHandler) RefreshPrices(c *gin.Context) {
	updated := h.ledger.RefreshPrices(c.Request.Context(), h.scryfall.Card)
	metrics.PriceRefreshesTotal.Add(float64(updated))
	metrics.UpdateLibraryGauges(h.ledger.Stats())

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
