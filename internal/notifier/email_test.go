package notifier

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobsweep/internal/model"
)

type capturedMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestEmail(settings EmailSettings, captured *capturedMail, sendErr error) *EmailNotifier {
	n := NewEmailNotifier(settings, discardLogger())
	n.now = func() time.Time { return time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC) }
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*captured = capturedMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)}
		return sendErr
	}
	return n
}

var testEmailSettings = EmailSettings{
	Host:          "smtp.example.com",
	Port:          587,
	From:          "alerts@example.com",
	To:            []string{"me@example.com", "team@example.com"},
	Username:      "alerts@example.com",
	Password:      "app-password",
	SubjectPrefix: "Gold & Precious Metals Job Alert",
}

func TestEmailNotifier_SendsDigest(t *testing.T) {
	var got capturedMail
	n := newTestEmail(testEmailSettings, &got, nil)

	listings := []model.Listing{
		sampleListing("Gold Trader", "Acme Bullion"),
		sampleListing("<script>Vault</script>", "Secure Vaults"),
	}
	if err := n.Notify(listings); err != nil {
		t.Fatalf("Notify = %v", err)
	}

	if got.addr != "smtp.example.com:587" {
		t.Errorf("addr = %q", got.addr)
	}
	if got.auth == nil {
		t.Error("expected PLAIN auth when a username is set")
	}
	if got.from != "alerts@example.com" || len(got.to) != 2 {
		t.Errorf("envelope from=%q to=%v", got.from, got.to)
	}
	if !strings.Contains(got.msg, "Subject: Gold & Precious Metals Job Alert - 2 New Positions\r\n") {
		t.Errorf("subject missing in:\n%s", got.msg)
	}
	if !strings.Contains(got.msg, "Content-Type: text/html; charset=UTF-8") {
		t.Error("missing html content type")
	}
	if !strings.Contains(got.msg, "<b>Gold Trader</b> at Acme Bullion - Mumbai (india)") {
		t.Errorf("listing line missing in:\n%s", got.msg)
	}
	if !strings.Contains(got.msg, `<a href="https://example.com/apply">View Job</a>`) {
		t.Error("missing job link")
	}
	if !strings.Contains(got.msg, "Search Term: gold trader") {
		t.Error("missing search term")
	}
	if strings.Contains(got.msg, "<script>") {
		t.Error("listing text must be HTML-escaped")
	}
}

func TestEmailNotifier_EmptyIsNoop(t *testing.T) {
	var got capturedMail
	n := newTestEmail(testEmailSettings, &got, nil)
	if err := n.Notify(nil); err != nil {
		t.Fatalf("Notify(nil) = %v", err)
	}
	if got.addr != "" {
		t.Error("expected no mail for empty digest")
	}
}

func TestEmailNotifier_NoAuthWithoutUsername(t *testing.T) {
	settings := testEmailSettings
	settings.Username = ""
	var got capturedMail
	n := newTestEmail(settings, &got, nil)
	if err := n.Notify([]model.Listing{sampleListing("Gold Trader", "Acme")}); err != nil {
		t.Fatalf("Notify = %v", err)
	}
	if got.auth != nil {
		t.Error("expected no auth for an open relay")
	}
}

func TestEmailNotifier_SendError(t *testing.T) {
	var got capturedMail
	n := newTestEmail(testEmailSettings, &got, errors.New("535 authentication failed"))
	err := n.Notify([]model.Listing{sampleListing("Gold Trader", "Acme")})
	if err == nil || !strings.Contains(err.Error(), "535") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}
