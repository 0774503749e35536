package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobsweep/internal/model"
)

// Ensure EmailNotifier implements model.Notifier.
var _ model.Notifier = (*EmailNotifier)(nil)

// EmailSettings configures the SMTP digest.
type EmailSettings struct {
	Host          string
	Port          int
	From          string
	To            []string
	Username      string
	Password      string
	SubjectPrefix string
}

// sendFunc matches smtp.SendMail, which upgrades to STARTTLS when the server
// offers it.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends one HTML digest per run over SMTP.
type EmailNotifier struct {
	settings EmailSettings
	send     sendFunc
	now      func() time.Time
	logger   *slog.Logger
}

// NewEmailNotifier returns a notifier that emails a digest of new listings.
func NewEmailNotifier(settings EmailSettings, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		settings: settings,
		send:     smtp.SendMail,
		now:      time.Now,
		logger:   logger,
	}
}

// Notify sends all listings in a single message.
func (e *EmailNotifier) Notify(listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	msg, err := e.buildMessage(listings)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if e.settings.Username != "" {
		auth = smtp.PlainAuth("", e.settings.Username, e.settings.Password, e.settings.Host)
	}

	addr := net.JoinHostPort(e.settings.Host, strconv.Itoa(e.settings.Port))
	if err := e.send(addr, auth, e.settings.From, e.settings.To, msg); err != nil {
		return fmt.Errorf("send email digest: %w", err)
	}

	e.logger.Info("email digest sent", "listings", len(listings), "recipients", len(e.settings.To))
	return nil
}

func (e *EmailNotifier) subject(n int) string {
	return fmt.Sprintf("%s - %d New Positions", e.settings.SubjectPrefix, n)
}

func (e *EmailNotifier) buildMessage(listings []model.Listing) ([]byte, error) {
	var body bytes.Buffer
	if err := digestTemplate.Execute(&body, digestData{
		Heading:  e.settings.SubjectPrefix,
		Listings: listings,
	}); err != nil {
		return nil, fmt.Errorf("render email digest: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", e.settings.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.settings.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.subject(len(listings))))
	fmt.Fprintf(&msg, "Date: %s\r\n", e.now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

type digestData struct {
	Heading  string
	Listings []model.Listing
}

var digestTemplate = template.Must(template.New("digest").Parse(`<html><body>
<h2>{{.Heading}}</h2>
<ul>
{{- range .Listings}}
<li><b>{{.Title}}</b>{{if .Company}} at {{.Company}}{{end}}{{if .Location}} - {{.Location}}{{end}}{{if .Country}} ({{.Country}}){{end}}<br>
{{- if .URL}}
<a href="{{.URL}}">View Job</a><br>
{{- end}}
Posted: {{if .DatePosted}}{{.DatePosted}}{{else}}unknown{{end}}<br>
Source: {{.Source}}<br>
Search Term: {{.SearchTerm}}<br>
{{- if .Description}}
<p>{{.Description}}</p>
{{- end}}
</li>
{{- end}}
</ul>
</body></html>
`))
