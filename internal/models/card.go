package models

// Card is a single printing of a Magic card as returned by the Scryfall API.
// Many printings share a name; (set code, collector number) identifies one
// printing within a set, and the Scryfall ID identifies it unambiguously.
type Card struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	SetName         string  `json:"set_name"`
	SetCode         string  `json:"set_code"`
	CollectorNumber string  `json:"collector_number"`
	Rarity          string  `json:"rarity"`
	ManaCost        string  `json:"mana_cost"`
	TypeLine        string  `json:"type_line"`
	OracleText      string  `json:"oracle_text"`
	ReleasedAt      string  `json:"released_at"`
	ImageSmall      string  `json:"image_small"`
	ImageNormal     string  `json:"image_normal"`
	PriceUSD        float64 `json:"price_usd"`
	PriceFoilUSD    float64 `json:"price_foil_usd"`
	PriceEUR        float64 `json:"price_eur"`
	PriceFoilEUR    float64 `json:"price_foil_eur"`
}

type CardSearchResult struct {
	Cards      []Card `json:"cards"`
	TotalCount int    `json:"total_count"`
}
