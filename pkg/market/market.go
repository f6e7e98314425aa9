// Package market lists and describes Polymarket events via the Gamma API
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Categories whose outcomes are too noisy to research profitably
var excludedTags = map[string]bool{
	"sports":  true,
	"nfl":     true,
	"nba":     true,
	"mlb":     true,
	"soccer":  true,
	"esports": true,
	"price":   true,
}

// Slug fragments that mark short-horizon price gambling markets
var excludedSlugPatterns = []string{"up-or-down", "updown", "-15m-", "-1h-", "-4h-"}

// Tags promoted to a market's primary category
var primaryCategories = []string{"politics", "crypto", "science", "entertainment", "business", "tech", "finance"}

// Summary is one row of the market list
type Summary struct {
	ID          string  `json:"id"`
	Slug        string  `json:"slug"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Volume24h   float64 `json:"volume_24h"`
	Liquidity   float64 `json:"liquidity"`
	EndDate     string  `json:"end_date"`
	Description string  `json:"description"`
}

// Outcome is one side of a binary market
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Detail is the full view of one event
type Detail struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Rules           string    `json:"rules"`
	Price           float64   `json:"price"`
	Volume          float64   `json:"volume"`
	Liquidity       float64   `json:"liquidity"`
	EndDate         string    `json:"end_date"`
	CreatedDate     string    `json:"created_date"`
	Outcomes        []Outcome `json:"outcomes"`
	MarketID        string    `json:"market_id"`
	ConditionID     string    `json:"condition_id"`
	AcceptingOrders bool      `json:"accepting_orders"`
	TokenIDs        []string  `json:"-"`
}

// ListFilter narrows the market list
type ListFilter struct {
	Limit        int
	MinLiquidity float64
	Category     string
}

// Service fetches market data from the Gamma API
type Service struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewService creates a market service
func NewService(baseURL string, timeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// gammaEvent mirrors the fields we read off the events endpoint. Number
// fields arrive inconsistently typed, so they decode through flexNumber.
type gammaEvent struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Closed      bool          `json:"closed"`
	Liquidity   flexNumber    `json:"liquidity"`
	Volume24h   flexNumber    `json:"volume24hr"`
	EndDate     string        `json:"endDate"`
	CreatedAt   string        `json:"createdAt"`
	Tags        []gammaTag    `json:"tags"`
	Markets     []gammaMarket `json:"markets"`
}

type gammaTag struct {
	Slug string `json:"slug"`
}

type gammaMarket struct {
	ID              string     `json:"id"`
	Active          bool       `json:"active"`
	Closed          bool       `json:"closed"`
	Description     string     `json:"description"`
	OutcomePrices   flexList   `json:"outcomePrices"`
	Outcomes        flexList   `json:"outcomes"`
	ClobTokenIDs    flexList   `json:"clobTokenIds"`
	VolumeNum       flexNumber `json:"volumeNum"`
	ConditionID     string     `json:"conditionId"`
	AcceptingOrders bool       `json:"acceptingOrders"`
}

// flexNumber decodes a JSON number that may arrive as a string
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}

// flexList decodes a JSON array that may arrive as an encoded string,
// e.g. "[\"0.4\", \"0.6\"]"
type flexList []string

func (f *flexList) UnmarshalJSON(data []byte) error {
	var direct []string
	if err := json.Unmarshal(data, &direct); err == nil {
		*f = direct
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	if encoded == "" {
		*f = nil
		return nil
	}
	return json.Unmarshal([]byte(encoded), (*[]string)(f))
}

func (f flexList) floatAt(i int) float64 {
	if i >= len(f) {
		return 0
	}
	v, _ := strconv.ParseFloat(f[i], 64)
	return v
}

// List returns active markets ordered by liquidity, filtered down to
// ones worth researching.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := url.Values{}
	q.Set("closed", "false")
	// Fetch extra rows; the exclusion filters below thin them out
	q.Set("limit", strconv.Itoa(limit*2))
	q.Set("order", "liquidity")
	q.Set("ascending", "false")

	var events []gammaEvent
	if err := s.get(ctx, "/events?"+q.Encode(), &events); err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	markets := make([]Summary, 0, limit)
	for _, event := range events {
		summary, ok := s.filterEvent(event, filter)
		if !ok {
			continue
		}
		markets = append(markets, summary)
		if len(markets) >= limit {
			break
		}
	}

	return markets, nil
}

// filterEvent applies the exclusion rules to one event
func (s *Service) filterEvent(event gammaEvent, filter ListFilter) (Summary, bool) {
	if len(event.Markets) == 0 || event.Closed {
		return Summary{}, false
	}

	if float64(event.Liquidity) < filter.MinLiquidity {
		return Summary{}, false
	}

	tagSlugs := make(map[string]bool, len(event.Tags))
	for _, t := range event.Tags {
		tagSlugs[strings.ToLower(t.Slug)] = true
	}
	for tag := range tagSlugs {
		if excludedTags[tag] {
			return Summary{}, false
		}
	}

	slug := strings.ToLower(event.Slug)
	for _, pattern := range excludedSlugPatterns {
		if strings.Contains(slug, pattern) {
			return Summary{}, false
		}
	}

	if filter.Category != "" && !tagSlugs[strings.ToLower(filter.Category)] {
		return Summary{}, false
	}

	category := "other"
	for _, c := range primaryCategories {
		if tagSlugs[c] {
			category = c
			break
		}
	}

	var active *gammaMarket
	for i := range event.Markets {
		if event.Markets[i].Active && !event.Markets[i].Closed {
			active = &event.Markets[i]
			break
		}
	}
	if active == nil {
		return Summary{}, false
	}

	description := event.Description
	if len(description) > 500 {
		description = description[:500]
	}

	return Summary{
		ID:          event.ID,
		Slug:        event.Slug,
		Title:       event.Title,
		Category:    category,
		Price:       active.OutcomePrices.floatAt(0),
		Volume24h:   float64(event.Volume24h),
		Liquidity:   float64(event.Liquidity),
		EndDate:     event.EndDate,
		Description: description,
	}, true
}

// GetDetail returns the full view of one event by ID
func (s *Service) GetDetail(ctx context.Context, eventID string) (*Detail, error) {
	var event gammaEvent
	if err := s.get(ctx, "/events/"+url.PathEscape(eventID), &event); err != nil {
		return nil, fmt.Errorf("fetch market detail: %w", err)
	}
	return buildDetail(&event)
}

// GetBySlug returns the full view of one event by slug
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Detail, error) {
	var event gammaEvent
	if err := s.get(ctx, "/events/slug/"+url.PathEscape(slug), &event); err != nil {
		return nil, fmt.Errorf("fetch market by slug: %w", err)
	}
	return buildDetail(&event)
}

func buildDetail(event *gammaEvent) (*Detail, error) {
	if event.ID == "" || len(event.Markets) == 0 {
		return nil, fmt.Errorf("event has no markets")
	}

	primary := event.Markets[0]

	yesPrice := primary.OutcomePrices.floatAt(0)
	noPrice := primary.OutcomePrices.floatAt(1)

	yesName, noName := "Yes", "No"
	if len(primary.Outcomes) > 0 {
		yesName = primary.Outcomes[0]
	}
	if len(primary.Outcomes) > 1 {
		noName = primary.Outcomes[1]
	}

	return &Detail{
		ID:          event.ID,
		Slug:        event.Slug,
		Title:       event.Title,
		Description: event.Description,
		Rules:       primary.Description,
		Price:       yesPrice,
		Volume:      float64(primary.VolumeNum),
		Liquidity:   float64(event.Liquidity),
		EndDate:     event.EndDate,
		CreatedDate: event.CreatedAt,
		Outcomes: []Outcome{
			{Name: yesName, Price: yesPrice},
			{Name: noName, Price: noPrice},
		},
		MarketID:        primary.ID,
		ConditionID:     primary.ConditionID,
		AcceptingOrders: primary.AcceptingOrders,
		TokenIDs:        primary.ClobTokenIDs,
	}, nil
}

// get performs a GET against the Gamma API and decodes the result
func (s *Service) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gamma API status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
