package connector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsweep/internal/model"
)

// BoardSpec describes how to search one HTML job board.
//
// SearchURL may contain {keyword} and {location}, which are replaced with a
// lowercase hyphenated path segment, or {keyword_q} and {location_q}, which
// are replaced with the query-escaped raw value.
//
// All other fields are CSS selectors evaluated inside each Item. An item is
// skipped when any configured selector finds nothing.
type BoardSpec struct {
	Domain      string
	Name        string
	SearchURL   string
	BaseURL     string // resolves relative links
	Item        string
	Title       string
	Link        string // empty: the title itself, its enclosing <a>, or its first <a>
	Company     string
	Location    string
	Date        string
	DateAttr    string   // read the date from this attribute instead of the text
	DateTrim    []string // removed from the date text before parsing
	Description string
}

var _ model.Connector = (*Board)(nil)

// Board scrapes search result pages with goquery.
type Board struct {
	spec   BoardSpec
	client *http.Client
	now    func() time.Time
}

// NewBoard creates a Board connector. A nil now uses time.Now.
func NewBoard(spec BoardSpec, client *http.Client, now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{spec: spec, client: client, now: now}
}

// Name returns the board's domain, which is also its source id.
func (b *Board) Name() string {
	return b.spec.Domain
}

// Search fetches one results page and extracts listings from it.
func (b *Board) Search(ctx context.Context, q model.Query) ([]model.Listing, error) {
	searchURL := b.searchURL(q)

	body, err := fetch(ctx, b.client, searchURL, "text/html")
	if err != nil {
		return nil, fmt.Errorf("%s search %q: %w", b.spec.Domain, q.Keyword, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &model.ParseError{Err: fmt.Errorf("%s: %w", b.spec.Domain, err)}
	}

	return b.parse(doc, q.Limit), nil
}

func (b *Board) searchURL(q model.Query) string {
	r := strings.NewReplacer(
		"{keyword}", slug(q.Keyword),
		"{location}", slug(q.Location),
		"{keyword_q}", url.QueryEscape(q.Keyword),
		"{location_q}", url.QueryEscape(q.Location),
	)
	return r.Replace(b.spec.SearchURL)
}

func (b *Board) parse(doc *goquery.Document, limit int) []model.Listing {
	var listings []model.Listing

	doc.Find(b.spec.Item).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		titleSel := item.Find(b.spec.Title).First()
		if titleSel.Length() == 0 {
			return true
		}

		company, ok := b.text(item, b.spec.Company)
		if !ok {
			return true
		}
		location, ok := b.text(item, b.spec.Location)
		if !ok {
			return true
		}
		description, ok := b.text(item, b.spec.Description)
		if !ok {
			return true
		}
		posted, ok := b.date(item)
		if !ok {
			return true
		}

		listings = append(listings, model.Listing{
			Title:       strings.TrimSpace(titleSel.Text()),
			Company:     company,
			Location:    location,
			URL:         b.link(item, titleSel),
			DatePosted:  posted,
			Description: description,
		})
		return limit <= 0 || len(listings) < limit
	})

	return listings
}

// text returns the trimmed text of selector within item. An empty selector is
// treated as present with empty text.
func (b *Board) text(item *goquery.Selection, selector string) (string, bool) {
	if selector == "" {
		return "", true
	}
	sel := item.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return collapseSpace(sel.Text()), true
}

func (b *Board) date(item *goquery.Selection) (string, bool) {
	if b.spec.Date == "" {
		return "", true
	}
	sel := item.Find(b.spec.Date).First()
	if sel.Length() == 0 {
		return "", false
	}

	var raw string
	if b.spec.DateAttr != "" {
		raw = sel.AttrOr(b.spec.DateAttr, "")
	} else {
		raw = sel.Text()
	}
	for _, t := range b.spec.DateTrim {
		raw = strings.ReplaceAll(raw, t, "")
	}
	return normalizeDate(strings.TrimSpace(raw), b.now()), true
}

func (b *Board) link(item, title *goquery.Selection) string {
	var href string
	switch {
	case b.spec.Link != "":
		href = item.Find(b.spec.Link).First().AttrOr("href", "")
	case goquery.NodeName(title) == "a":
		href = title.AttrOr("href", "")
	case title.Closest("a").Length() > 0:
		href = title.Closest("a").AttrOr("href", "")
	default:
		href = title.Find("a").First().AttrOr("href", "")
	}
	return resolveURL(b.spec.BaseURL, strings.TrimSpace(href))
}

func resolveURL(base, href string) string {
	if href == "" || base == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// slug turns "Gold Trader" into "gold-trader" for use in a URL path.
func slug(s string) string {
	return url.PathEscape(strings.ToLower(strings.Join(strings.Fields(s), "-")))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	daysAgoRe   = regexp.MustCompile(`(?i)(\d+)\+?\s*days?`)
	isoPrefixRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// normalizeDate rewrites the relative and timestamped forms boards commonly
// show into YYYY-MM-DD. Anything else is returned unchanged.
func normalizeDate(raw string, now time.Time) string {
	if raw == "" {
		return ""
	}
	if m := isoPrefixRe.FindString(raw); m != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.In(now.Location()).Format("2006-01-02")
		}
		return m
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "today"), strings.Contains(lower, "just now"),
		strings.Contains(lower, "hour"), strings.Contains(lower, "minute"):
		return now.Format("2006-01-02")
	case strings.Contains(lower, "yesterday"):
		return now.AddDate(0, 0, -1).Format("2006-01-02")
	}
	if m := daysAgoRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return now.AddDate(0, 0, -n).Format("2006-01-02")
		}
	}
	return raw
}
