package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobsweep/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// Slack rejects messages with more than 50 blocks. Each message carries a
// header, a context line and a divider, leaving the rest for listings.
const (
	slackMaxBlocks         = 50
	slackListingsPerChunk  = slackMaxBlocks - 3
	slackChunkPause        = 500 * time.Millisecond
	slackMaxSectionTextLen = 2900
)

// SlackNotifier posts a digest of new listings to a Slack channel via an
// Incoming Webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	pause      time.Duration
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts digests to Slack.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		pause:      slackChunkPause,
		logger:     logger,
	}
}

// Notify sends the listings as one or more digest messages using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	chunks := chunkListings(listings, slackListingsPerChunk)
	failures := 0
	for i, chunk := range chunks {
		if i > 0 && s.pause > 0 {
			time.Sleep(s.pause)
		}

		payload := buildDigest(chunk, len(listings), i+1, len(chunks))
		if err := s.send(payload); err != nil {
			s.logger.Error("slack digest failed", "part", i+1, "parts", len(chunks), "error", err)
			failures++
		}
	}

	if failures == len(chunks) {
		return fmt.Errorf("all %d slack messages failed", failures)
	}
	s.logger.Info("slack digest sent", "listings", len(listings), "messages", len(chunks)-failures, "failed", failures)
	return nil
}

func (s *SlackNotifier) send(payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"` // notification fallback
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func chunkListings(listings []model.Listing, size int) [][]model.Listing {
	var chunks [][]model.Listing
	for start := 0; start < len(listings); start += size {
		end := min(start+size, len(listings))
		chunks = append(chunks, listings[start:end])
	}
	return chunks
}

func buildDigest(chunk []model.Listing, total, part, parts int) slackPayload {
	title := fmt.Sprintf("%d new job listings", total)
	if parts > 1 {
		title = fmt.Sprintf("%s (%d/%d)", title, part, parts)
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: title}},
		{Type: "context", Elements: []slackText{{Type: "mrkdwn", Text: summarizeSources(chunk)}}},
	}
	for _, l := range chunk {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: listingMarkdown(l)},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Text: title, Blocks: blocks}
}

func listingMarkdown(l model.Listing) string {
	var b strings.Builder
	if l.URL != "" {
		fmt.Fprintf(&b, "*<%s|%s>*", l.URL, slackEscape(l.Title))
	} else {
		fmt.Fprintf(&b, "*%s*", slackEscape(l.Title))
	}

	where := strings.Join(nonEmpty(l.Company, l.Location), " · ")
	if where != "" {
		b.WriteString("\n" + slackEscape(where))
	}
	if l.Country != "" {
		fmt.Fprintf(&b, " (%s)", slackEscape(l.Country))
	}

	posted := l.DatePosted
	if posted == "" {
		posted = "unknown"
	}
	fmt.Fprintf(&b, "\nPosted: %s   Source: %s   Term: %s", slackEscape(posted), l.Source, slackEscape(l.SearchTerm))

	text := b.String()
	if len(text) > slackMaxSectionTextLen {
		text = text[:slackMaxSectionTextLen] + "…"
	}
	return text
}

func summarizeSources(listings []model.Listing) string {
	counts := make(map[string]int)
	var order []string
	for _, l := range listings {
		if counts[l.Source] == 0 {
			order = append(order, l.Source)
		}
		counts[l.Source]++
	}
	parts := make([]string, len(order))
	for i, src := range order {
		parts[i] = fmt.Sprintf("%s: %d", src, counts[src])
	}
	return strings.Join(parts, " | ")
}

func slackEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SendTestMessage sends a one-listing digest to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	test := model.Listing{
		Title:       "Test Notification: Integration Verified",
		Company:     "jobsweep",
		Location:    "Everywhere",
		URL:         "https://example.com/jobsweep-test",
		DatePosted:  time.Now().Format("2006-01-02"),
		Description: "If you can read this, notifications are configured correctly.",
		Source:      "test",
		Country:     "global",
		SearchTerm:  "test",
	}
	return n.Notify([]model.Listing{test})
}
