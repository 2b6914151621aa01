package market

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"steam-sentinel/internal/models"
)

// ParseError reports a market payload that yielded no usable price. It is
// item-scoped and non-fatal: the caller skips the item for this cycle and the
// previous estimate stays in force.
type ParseError struct {
	MarketHashName string
	Reason         string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("market sample %q: %s", e.MarketHashName, e.Reason)
}

// overviewPayload is the priceoverview JSON response.
type overviewPayload struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
	Volume      string `json:"volume"`
}

var (
	forsaleTotalRe = regexp.MustCompile(`(?s)id="market_commodity_forsale".*?<span[^>]*>([^<]+)</span>`)
	forsaleTableRe = regexp.MustCompile(`(?s)id="market_commodity_forsale_table".*?<tbody>(.*?)</tbody>`)
	forsaleRowRe   = regexp.MustCompile(`(?s)<tr>\s*<td[^>]*>(.*?)</td>\s*<td[^>]*>(.*?)</td>\s*</tr>`)
	historyLineRe  = regexp.MustCompile(`(?s)line1\s*=\s*(\[\[.*?\]\]);`)
	tagRe          = regexp.MustCompile(`<[^>]+>`)
)

// PriceLevel is one row of the listing depth table: a price and the number of
// listings at that price.
type PriceLevel struct {
	PriceCents int64
	Quantity   int64
}

// ListingPage is the structured form of one market listing page.
type ListingPage struct {
	ListingsTotal int64
	PriceLevels   []PriceLevel
	// DailySales is the average sale volume over the last few history points
	// embedded in the page, 0 when the page carries no history.
	DailySales float64
}

// Sampler normalizes raw market payloads into MarketSamples.
type Sampler struct{}

func NewSampler() *Sampler { return &Sampler{} }

// Sample converts one raw market payload for an item into a MarketSample.
// JSON payloads are treated as priceoverview responses, anything else as a
// listing page. Partial or garbled input is tolerated as long as at least one
// valid price can be extracted; otherwise a *ParseError is returned.
func (s *Sampler) Sample(appID int, marketHashName string, sampledAt time.Time, payload []byte) (models.MarketSample, error) {
	body := strings.TrimSpace(string(payload))
	if body == "" {
		return models.MarketSample{}, &ParseError{marketHashName, "empty payload"}
	}
	if strings.HasPrefix(body, "{") {
		return s.sampleOverview(appID, marketHashName, sampledAt, []byte(body))
	}
	return s.sampleListingPage(appID, marketHashName, sampledAt, body)
}

func (s *Sampler) sampleOverview(appID int, marketHashName string, sampledAt time.Time, payload []byte) (models.MarketSample, error) {
	var ov overviewPayload
	if err := json.Unmarshal(payload, &ov); err != nil {
		return models.MarketSample{}, &ParseError{marketHashName, "malformed overview JSON"}
	}
	if !ov.Success {
		return models.MarketSample{}, &ParseError{marketHashName, "overview success=false"}
	}
	priceText := ov.LowestPrice
	if priceText == "" {
		priceText = ov.MedianPrice
	}
	cents, ok := ParsePriceCents(priceText)
	if !ok || cents <= 0 {
		return models.MarketSample{}, &ParseError{marketHashName, "no valid price in overview"}
	}

	sample := models.MarketSample{
		AppID:             appID,
		MarketHashName:    marketHashName,
		SampledAt:         sampledAt,
		ListingPriceCents: cents,
	}
	if ov.Volume != "" {
		if v := parseInt(ov.Volume); v > 0 {
			sample.VolumeHint = &v
		}
	}
	return sample, nil
}

func (s *Sampler) sampleListingPage(appID int, marketHashName string, sampledAt time.Time, body string) (models.MarketSample, error) {
	page := ParseListingPage(body)
	if len(page.PriceLevels) == 0 {
		return models.MarketSample{}, &ParseError{marketHashName, "no price levels on listing page"}
	}

	lowest := page.PriceLevels[0].PriceCents
	for _, lvl := range page.PriceLevels[1:] {
		if lvl.PriceCents < lowest {
			lowest = lvl.PriceCents
		}
	}

	sample := models.MarketSample{
		AppID:             appID,
		MarketHashName:    marketHashName,
		SampledAt:         sampledAt,
		ListingPriceCents: lowest,
		ListingsTotal:     page.ListingsTotal,
	}
	if page.DailySales > 0 {
		v := int64(math.Round(page.DailySales))
		if v > 0 {
			sample.VolumeHint = &v
		}
	}
	return sample, nil
}

// ParseListingPage scrapes the depth table, total listing count and the
// embedded sale-history series out of a listing page. Each part is optional;
// whatever can be salvaged from a garbled page is returned.
func ParseListingPage(body string) ListingPage {
	var page ListingPage

	if m := forsaleTotalRe.FindStringSubmatch(body); m != nil {
		page.ListingsTotal = parseInt(m[1])
	}

	if m := forsaleTableRe.FindStringSubmatch(body); m != nil {
		for _, row := range forsaleRowRe.FindAllStringSubmatch(m[1], -1) {
			priceText := strings.TrimSpace(tagRe.ReplaceAllString(row[1], ""))
			qtyText := strings.TrimSpace(tagRe.ReplaceAllString(row[2], ""))
			cents, ok := ParsePriceCents(priceText)
			if !ok {
				continue
			}
			page.PriceLevels = append(page.PriceLevels, PriceLevel{
				PriceCents: cents,
				Quantity:   parseInt(qtyText),
			})
		}
	}

	if page.ListingsTotal == 0 {
		for _, lvl := range page.PriceLevels {
			page.ListingsTotal += lvl.Quantity
		}
	}

	if m := historyLineRe.FindStringSubmatch(body); m != nil {
		page.DailySales = averageRecentSales(m[1], 7)
	}

	return page
}

// averageRecentSales averages the volume column of the last n points of the
// page's embedded history series ([["date", price, "volume"], ...]).
func averageRecentSales(raw string, n int) float64 {
	var points [][]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &points); err != nil {
		return 0
	}
	if len(points) > n {
		points = points[len(points)-n:]
	}
	var sum, count float64
	for _, p := range points {
		if len(p) < 3 {
			continue
		}
		var volText string
		if err := json.Unmarshal(p[2], &volText); err != nil {
			var volNum float64
			if err := json.Unmarshal(p[2], &volNum); err != nil {
				continue
			}
			sum += volNum
			count++
			continue
		}
		sum += float64(parseInt(volText))
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / count
}
