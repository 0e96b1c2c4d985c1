package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/mtglib/server/internal/models"
)

const (
	scryfallBaseURL = "https://api.scryfall.com"

	// Scryfall asks clients to keep 50-100ms between requests.
	scryfallPageDelay = 100 * time.Millisecond

	cardCacheSize = 512
)

// QueryError wraps any transport or API failure during a card search.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("card search failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// ScryfallClient talks to the Scryfall card database API.
type ScryfallClient struct {
	client  *http.Client
	baseURL string
	cards   *lru.Cache[string, models.Card] // single-card lookups by Scryfall ID
}

func NewScryfallClient() *ScryfallClient {
	cards, _ := lru.New[string, models.Card](cardCacheSize)
	return &ScryfallClient{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: scryfallBaseURL,
		cards:   cards,
	}
}

type scryfallSearchResponse struct {
	Data     []scryfallCard `json:"data"`
	HasMore  bool           `json:"has_more"`
	NextPage string         `json:"next_page"`
}

type scryfallCard struct {
	ImageURIs    *scryfallImages `json:"image_uris"`
	CardFaces    []scryfallFace  `json:"card_faces"`
	Prices       scryfallPrices  `json:"prices"`
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SetName      string          `json:"set_name"`
	Set          string          `json:"set"`
	CollectorNum string          `json:"collector_number"`
	Rarity       string          `json:"rarity"`
	ManaCost     string          `json:"mana_cost"`
	TypeLine     string          `json:"type_line"`
	OracleText   string          `json:"oracle_text"`
	ReleasedAt   string          `json:"released_at"`
}

type scryfallImages struct {
	Small  string `json:"small"`
	Normal string `json:"normal"`
}

type scryfallFace struct {
	ImageURIs *scryfallImages `json:"image_uris"`
}

type scryfallPrices struct {
	USD     string `json:"usd"`
	USDFoil string `json:"usd_foil"`
	EUR     string `json:"eur"`
	EURFoil string `json:"eur_foil"`
}

// Search returns every distinct printing matching name, in server order.
// With exact set, the name is wrapped in Scryfall's exact-match operator;
// otherwise the server does its own fuzzy matching. All pages are followed
// and concatenated; the pacing delay applies only between page requests.
// Any failure aborts the whole search — pages already fetched are discarded.
func (c *ScryfallClient) Search(ctx context.Context, name string, exact bool) ([]models.Card, error) {
	query := name
	if exact {
		// Escape quotes for Scryfall query syntax.
		safeName := strings.ReplaceAll(name, "\"", "\\\"")
		query = fmt.Sprintf("!\"%s\"", safeName)
	}

	next := fmt.Sprintf("%s/cards/search?q=%s&unique=prints", c.baseURL, url.QueryEscape(query))

	// Fresh limiter per search: the bucket starts full, so the first page is
	// never delayed and every later page waits out the remaining interval.
	pacer := rate.NewLimiter(rate.Every(scryfallPageDelay), 1)

	var cards []models.Card
	for next != "" {
		if err := pacer.Wait(ctx); err != nil {
			return nil, &QueryError{Err: err}
		}

		page, err := c.fetchSearchPage(ctx, next)
		if err != nil {
			return nil, &QueryError{Err: err}
		}

		for _, sc := range page.Data {
			cards = append(cards, convertCard(sc))
		}

		if page.HasMore && page.NextPage != "" {
			next = page.NextPage
		} else {
			next = ""
		}
	}

	return cards, nil
}

func (c *ScryfallClient) fetchSearchPage(ctx context.Context, pageURL string) (*scryfallSearchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scryfall API returned status %d", resp.StatusCode)
	}

	var page scryfallSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode scryfall response: %w", err)
	}

	return &page, nil
}

// Card retrieves a single printing by Scryfall ID, with an LRU cache in
// front. Returns nil, nil if the card is not found (404).
func (c *ScryfallClient) Card(ctx context.Context, id string) (*models.Card, error) {
	if card, ok := c.cards.Get(id); ok {
		return &card, nil
	}

	reqURL := fmt.Sprintf("%s/cards/%s", c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get card from scryfall: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scryfall API returned status %d", resp.StatusCode)
	}

	var sc scryfallCard
	if err := json.NewDecoder(resp.Body).Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode scryfall response: %w", err)
	}

	card := convertCard(sc)
	c.cards.Add(id, card)
	return &card, nil
}

func convertCard(sc scryfallCard) models.Card {
	var imageSmall, imageNormal string
	if sc.ImageURIs != nil {
		imageSmall = sc.ImageURIs.Small
		imageNormal = sc.ImageURIs.Normal
	} else if len(sc.CardFaces) > 0 && sc.CardFaces[0].ImageURIs != nil {
		// Double-faced cards keep their images on the front face.
		imageSmall = sc.CardFaces[0].ImageURIs.Small
		imageNormal = sc.CardFaces[0].ImageURIs.Normal
	}

	var priceUSD, priceFoilUSD, priceEUR, priceFoilEUR float64
	if sc.Prices.USD != "" {
		_, _ = fmt.Sscanf(sc.Prices.USD, "%f", &priceUSD)
	}
	if sc.Prices.USDFoil != "" {
		_, _ = fmt.Sscanf(sc.Prices.USDFoil, "%f", &priceFoilUSD)
	}
	if sc.Prices.EUR != "" {
		_, _ = fmt.Sscanf(sc.Prices.EUR, "%f", &priceEUR)
	}
	if sc.Prices.EURFoil != "" {
		_, _ = fmt.Sscanf(sc.Prices.EURFoil, "%f", &priceFoilEUR)
	}

	return models.Card{
		ID:              sc.ID,
		Name:            sc.Name,
		SetName:         sc.SetName,
		SetCode:         sc.Set,
		CollectorNumber: sc.CollectorNum,
		Rarity:          sc.Rarity,
		ManaCost:        sc.ManaCost,
		TypeLine:        sc.TypeLine,
		OracleText:      sc.OracleText,
		ReleasedAt:      sc.ReleasedAt,
		ImageSmall:      imageSmall,
		ImageNormal:     imageNormal,
		PriceUSD:        priceUSD,
		PriceFoilUSD:    priceFoilUSD,
		PriceEUR:        priceEUR,
		PriceFoilEUR:    priceFoilEUR,
	}
}
