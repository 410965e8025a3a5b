package places

import (
	"time"

	"github.com/ArunBNiah/venue-intel/internal/scoring"
)

type searchResponse struct {
	Places []place `json:"places"`
}

type place struct {
	ID               string         `json:"id"`
	DisplayName      localizedText  `json:"displayName"`
	FormattedAddress string         `json:"formattedAddress"`
	Location         *latLng        `json:"location"`
	Types            []string       `json:"types"`
	PrimaryType      string         `json:"primaryType"`
	Rating           *float64       `json:"rating"`
	UserRatingCount  *int           `json:"userRatingCount"`
	PriceLevel       string         `json:"priceLevel"`
	EditorialSummary *localizedText `json:"editorialSummary"`
	ServesCocktails  *bool          `json:"servesCocktails"`
	ServesWine       *bool          `json:"servesWine"`
	ServesBeer       *bool          `json:"servesBeer"`
	GoodForGroups    *bool          `json:"goodForGroups"`
	Reservable       *bool          `json:"reservable"`
	ServesDessert    *bool          `json:"servesDessert"`
}

type localizedText struct {
	Text string `json:"text"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// priceLevelValue maps the v1 enum strings to the 0..4 scale. An absent or
// unrecognised value stays nil so scoring treats it as unknown.
func priceLevelValue(s string) *int {
	levels := map[string]int{
		"PRICE_LEVEL_FREE":           0,
		"PRICE_LEVEL_INEXPENSIVE":    1,
		"PRICE_LEVEL_MODERATE":       2,
		"PRICE_LEVEL_EXPENSIVE":      3,
		"PRICE_LEVEL_VERY_EXPENSIVE": 4,
	}
	if v, ok := levels[s]; ok {
		return &v
	}
	return nil
}

func (p place) toRaw(city string, fetchedAt time.Time) scoring.RawVenueAttributes {
	raw := scoring.RawVenueAttributes{
		PlaceID:         p.ID,
		Name:            p.DisplayName.Text,
		City:            city,
		Address:         p.FormattedAddress,
		Categories:      p.Types,
		PrimaryCategory: p.PrimaryType,
		Rating:          p.Rating,
		ReviewCount:     p.UserRatingCount,
		PriceLevel:      priceLevelValue(p.PriceLevel),
		ServesCocktails: p.ServesCocktails,
		ServesWine:      p.ServesWine,
		ServesBeer:      p.ServesBeer,
		GoodForGroups:   p.GoodForGroups,
		Reservable:      p.Reservable,
		ServesDessert:   p.ServesDessert,
		FetchedAt:       fetchedAt,
	}
	if p.Location != nil {
		raw.Latitude = p.Location.Latitude
		raw.Longitude = p.Location.Longitude
	}
	if p.EditorialSummary != nil {
		raw.EditorialSummary = p.EditorialSummary.Text
	}
	return raw
}
