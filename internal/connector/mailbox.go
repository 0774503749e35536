package connector

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/amishk599/jobsweep/internal/model"
)

// MailboxSettings configures the IMAP job-alert connector.
type MailboxSettings struct {
	Addr        string // host:port, implicit TLS
	Username    string
	Password    string
	Folder      string
	Sender      string // From header substring identifying alert mail
	SinceDays   int
	MaxMessages int
	TTL         time.Duration // how long fetched cards are reused
	GlobalScope string        // scope code that disables location matching
}

// alertMessage is one fetched alert email.
type alertMessage struct {
	Received time.Time
	Raw      []byte
}

var _ model.Connector = (*Mailbox)(nil)

// Mailbox answers LinkedIn searches from job-alert emails already delivered to
// an IMAP mailbox. Messages are fetched read-only and reused for TTL, so one
// run makes a single IMAP round trip regardless of keyword count.
type Mailbox struct {
	settings MailboxSettings
	fetch    func(ctx context.Context) ([]alertMessage, error)
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	cards    []model.Listing
	loadedAt time.Time
}

// NewMailbox creates a Mailbox connector that reads over IMAP.
func NewMailbox(s MailboxSettings, logger *slog.Logger) *Mailbox {
	if s.Folder == "" {
		s.Folder = "INBOX"
	}
	if s.Sender == "" {
		s.Sender = "linkedin.com"
	}
	if s.GlobalScope == "" {
		s.GlobalScope = "global"
	}
	m := &Mailbox{settings: s, now: time.Now, logger: logger}
	m.fetch = m.fetchIMAP
	return m
}

func (m *Mailbox) Name() string { return "linkedin.com" }

// Search returns alert cards whose title contains the keyword and, outside the
// global scope, whose location mentions the searched location.
func (m *Mailbox) Search(ctx context.Context, q model.Query) ([]model.Listing, error) {
	cards, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))
	location := strings.ToLower(strings.TrimSpace(q.Location))
	matchLocation := location != "" && q.CountryCode != m.settings.GlobalScope

	var out []model.Listing
	for _, c := range cards {
		if !strings.Contains(strings.ToLower(c.Title), keyword) {
			continue
		}
		if matchLocation && !strings.Contains(strings.ToLower(c.Location), location) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *Mailbox) load(ctx context.Context) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loadedAt.IsZero() && m.now().Sub(m.loadedAt) < m.settings.TTL {
		return m.cards, nil
	}

	msgs, err := m.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("mailbox fetch: %w", err)
	}

	seen := make(map[string]bool)
	var cards []model.Listing
	for _, msg := range msgs {
		html, err := alertHTML(msg.Raw)
		if err != nil {
			m.logger.Warn("skipping unreadable alert email", "error", err)
			continue
		}
		for _, c := range parseAlertCards(html, msg.Received) {
			if seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			cards = append(cards, c)
		}
	}

	m.logger.Info("loaded job alert emails",
		"messages", len(msgs),
		"cards", len(cards),
	)
	m.cards = cards
	m.loadedAt = m.now()
	return cards, nil
}

// fetchIMAP pulls recent alert messages without marking them seen.
func (m *Mailbox) fetchIMAP(ctx context.Context) ([]alertMessage, error) {
	s := m.settings
	c, err := imapclient.DialTLS(s.Addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer func() {
		stop()
		if err := c.Logout().Wait(); err != nil {
			m.logger.Debug("imap logout", "error", err)
		}
		_ = c.Close()
	}()

	if err := c.Login(s.Username, s.Password).Wait(); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(s.Folder, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %q: %w", s.Folder, err)
	}

	criteria := &imap.SearchCriteria{
		Since:  m.now().AddDate(0, 0, -s.SinceDays),
		Header: []imap.SearchCriteriaHeaderField{{Key: "From", Value: s.Sender}},
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	// Newest first.
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if s.MaxMessages > 0 && len(uids) > s.MaxMessages {
		uids = uids[:s.MaxMessages]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]alertMessage, 0, len(uids))
	for {
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}
		if raw := buf.FindBodySection(bodyAll); raw != nil {
			out = append(out, alertMessage{Received: buf.InternalDate, Raw: raw})
		}
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

// alertHTML extracts the text/html body of an RFC 822 message.
func alertHTML(raw []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}
	html, ok, err := findHTML(textproto.MIMEHeader(msg.Header), msg.Body)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no text/html part")
	}
	return html, nil
}

func findHTML(h textproto.MIMEHeader, body io.Reader) (string, bool, error) {
	ct := h.Get("Content-Type")
	if ct == "" {
		ct = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", false, fmt.Errorf("parse content type: %w", err)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				return "", false, nil
			}
			if err != nil {
				return "", false, fmt.Errorf("read part: %w", err)
			}
			html, ok, err := findHTML(p.Header, p)
			if err != nil || ok {
				return html, ok, err
			}
		}
	}

	if mediaType != "text/html" {
		return "", false, nil
	}

	var r io.Reader = body
	switch strings.ToLower(h.Get("Content-Transfer-Encoding")) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		r = quotedprintable.NewReader(body)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", false, fmt.Errorf("decode body: %w", err)
	}
	return string(b), true, nil
}

// parseAlertCards extracts one listing per job link in a LinkedIn alert.
// The card's first text line after the title reads "Company · Location".
func parseAlertCards(html string, received time.Time) []model.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	posted := ""
	if !received.IsZero() {
		posted = received.Format("2006-01-02")
	}

	seen := make(map[string]bool)
	var out []model.Listing
	doc.Find(`a[href*="/jobs/view/"]`).Each(func(_ int, a *goquery.Selection) {
		title := collapseSpace(a.Text())
		if title == "" {
			return
		}
		link := canonicalJobURL(a.AttrOr("href", ""))
		if seen[link] {
			return
		}
		seen[link] = true

		card := a.Closest("table")
		if card.Length() == 0 {
			card = a.Parent()
		}

		var company, location string
		card.Find("p, span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			line := collapseSpace(s.Text())
			if line == "" || line == title || !strings.Contains(line, "·") {
				return true
			}
			parts := strings.SplitN(line, "·", 2)
			company = strings.TrimSpace(parts[0])
			location = strings.TrimSpace(parts[1])
			return false
		})

		out = append(out, model.Listing{
			Title:      title,
			Company:    company,
			Location:   location,
			URL:        link,
			DatePosted: posted,
		})
	})
	return out
}

// canonicalJobURL drops tracking parameters and the /comm/ redirect prefix.
func canonicalJobURL(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.Replace(u.Path, "/comm/jobs/view/", "/jobs/view/", 1)
	return u.String()
}
