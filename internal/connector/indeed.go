package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amishk599/jobsweep/internal/model"
)

// indeedResult is a single posting in the Indeed API response.
type indeedResult struct {
	JobTitle          string `json:"jobtitle"`
	Company           string `json:"company"`
	FormattedLocation string `json:"formattedLocation"`
	URL               string `json:"url"`
	Date              *int64 `json:"date"` // unix seconds
	Snippet           string `json:"snippet"`
}

type indeedResponse struct {
	Results []indeedResult `json:"results"`
}

var _ model.Connector = (*Indeed)(nil)

// Indeed searches the Indeed publisher JSON API.
type Indeed struct {
	endpoint string
	apiKey   string
	client   *http.Client
	now      func() time.Time
}

// NewIndeed creates an Indeed connector. A nil now uses time.Now.
func NewIndeed(endpoint, apiKey string, client *http.Client, now func() time.Time) *Indeed {
	if now == nil {
		now = time.Now
	}
	return &Indeed{endpoint: endpoint, apiKey: apiKey, client: client, now: now}
}

func (a *Indeed) Name() string { return "indeed.com" }

// Search queries the API and normalizes results. A posting without a date is
// treated as posted today.
func (a *Indeed) Search(ctx context.Context, q model.Query) ([]model.Listing, error) {
	params := url.Values{}
	params.Set("q", q.Keyword)
	params.Set("l", q.Location)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	params.Set("v", "2")
	params.Set("format", "json")
	params.Set("publisher", a.apiKey)

	body, err := fetch(ctx, a.client, a.endpoint+"?"+params.Encode(), "application/json")
	if err != nil {
		return nil, fmt.Errorf("indeed search %q: %w", q.Keyword, err)
	}

	var resp indeedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &model.ParseError{Err: fmt.Errorf("indeed: %w", err)}
	}

	listings := make([]model.Listing, 0, len(resp.Results))
	for _, r := range resp.Results {
		posted := a.now()
		if r.Date != nil {
			posted = time.Unix(*r.Date, 0).In(posted.Location())
		}
		listings = append(listings, model.Listing{
			Title:       r.JobTitle,
			Company:     r.Company,
			Location:    r.FormattedLocation,
			URL:         r.URL,
			DatePosted:  posted.Format("2006-01-02"),
			Description: r.Snippet,
		})
	}

	return listings, nil
}
