// Package mail sends the managers' daily digest over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"

	"shamshouse/internal/config"
	"shamshouse/internal/models"
	"shamshouse/internal/pricing"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"
)

var ErrNoRecipients = errors.New("mail: no digest recipients configured")

// Digest is one day of arrivals and departures.
type Digest struct {
	HostelName string
	Date       models.Date
	CheckIns   []models.Booking
	CheckOuts  []models.Booking
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"price": pricing.FormatPrice,
	"rooms": func(b models.Booking) string {
		out := ""
		for i, r := range b.RoomNumbers() {
			if i > 0 {
				out += ", "
			}
			out += r
		}
		return out
	},
}).Parse(`<h2>{{.HostelName}} · {{.Date.Human}}</h2>
<h3>Arrivals ({{len .CheckIns}})</h3>
{{if .CheckIns}}<ul>{{range .CheckIns}}
<li><b>{{.GuestName}}</b> · {{.BookingReference}} · room {{rooms .}} · until {{.CheckOutDate.Human}} · {{price .TotalPrice}}</li>{{end}}
</ul>{{else}}<p>No arrivals today.</p>{{end}}
<h3>Departures ({{len .CheckOuts}})</h3>
{{if .CheckOuts}}<ul>{{range .CheckOuts}}
<li><b>{{.GuestName}}</b> · {{.BookingReference}} · room {{rooms .}}</li>{{end}}
</ul>{{else}}<p>No departures today.</p>{{end}}
`))

// Mailer sends digests through one SMTP server.
type Mailer struct {
	cfg    config.MailConfig
	dial   func() (gomail.SendCloser, error)
	logger *zerolog.Logger
}

func New(cfg config.MailConfig, logger *zerolog.Logger) *Mailer {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12}
	return &Mailer{
		cfg:    cfg,
		dial:   dialer.Dial,
		logger: logger,
	}
}

// Render builds the HTML body of a digest.
func Render(d Digest) (string, error) {
	var body bytes.Buffer
	if err := digestTemplate.Execute(&body, d); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return body.String(), nil
}

// SendDigest mails d to every configured recipient in one session.
func (m *Mailer) SendDigest(ctx context.Context, d Digest) error {
	if len(m.cfg.DigestRecipients) == 0 {
		return ErrNoRecipients
	}
	body, err := Render(d)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*gomail.Message, 0, len(m.cfg.DigestRecipients))
	for _, to := range m.cfg.DigestRecipients {
		msg := gomail.NewMessage()
		msg.SetHeader("From", m.cfg.From)
		msg.SetHeader("To", to)
		msg.SetHeader("Subject", fmt.Sprintf("%s: arrivals and departures for %s", d.HostelName, d.Date.Human()))
		msg.SetBody("text/html", body)
		msgs = append(msgs, msg)
	}

	sc, err := m.dial()
	if err != nil {
		return fmt.Errorf("dial smtp %s:%d: %w", m.cfg.SMTPHost, m.cfg.SMTPPort, err)
	}
	defer sc.Close()

	if err := gomail.Send(sc, msgs...); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	m.logger.Info().Int("recipients", len(msgs)).Str("date", d.Date.String()).Msg("digest mailed")
	return nil
}
