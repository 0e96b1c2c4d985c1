package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mtglib/server/internal/metrics"
	"github.com/mtglib/server/internal/models"
	"github.com/mtglib/server/internal/services"
)

type CardHandler struct {
	scryfall *services.ScryfallClient
}

func NewCardHandler(scryfall *services.ScryfallClient) *CardHandler {
	return &CardHandler{scryfall: scryfall}
}

// SearchCards proxies a printing search to Scryfall. `exact=true` wraps the
// query in Scryfall's exact-match operator; `filter` narrows the returned
// printings with the local fuzzy matcher.
func (h *CardHandler) SearchCards(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}
	exact := c.Query("exact") == "true"
	filter := c.Query("filter")

	start := time.Now()
	cards, err := h.scryfall.Search(c.Request.Context(), query, exact)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		var qerr *services.QueryError
		if errors.As(err, &qerr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())

	if filter != "" {
		filtered := make([]models.Card, 0, len(cards))
		for _, card := range cards {
			if services.Matches(card.Name, filter) {
				filtered = append(filtered, card)
			}
		}
		cards = filtered
	}

	c.JSON(http.StatusOK, models.CardSearchResult{
		Cards:      cards,
		TotalCount: len(cards),
	})
}
