package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/MikeMC777/canteen/internal/settings"
)

var ErrMailNotConfigured = errors.New("smtp settings are incomplete")

const xlsxType mail.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

func MailConfigFrom(v settings.Values) MailConfig {
	cfg := MailConfig{
		Host:     v.Get(settings.KeySMTPHost, ""),
		Port:     v.Int(settings.KeySMTPPort, 587),
		User:     v.Get(settings.KeySMTPUser, ""),
		Password: v.Get(settings.KeySMTPPassword, ""),
		To:       v.Get(settings.KeyReportRecipient, ""),
	}
	cfg.From = v.Get(settings.KeySMTPFrom, cfg.User)
	return cfg
}

func (c MailConfig) ready() bool {
	return c.Host != "" && c.From != "" && c.To != ""
}

// Mailer sends reports over SMTP.
type Mailer struct {
	send func(ctx context.Context, cfg MailConfig, msgs ...*mail.Msg) error
	now  func() time.Time
}

func NewMailer() *Mailer {
	return &Mailer{send: dialAndSend, now: time.Now}
}

func dialAndSend(ctx context.Context, cfg MailConfig, msgs ...*mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password))
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return c.DialAndSendWithContext(ctx, msgs...)
}

// SendDaily mails the rendered workbook to the configured recipients.
func (m *Mailer) SendDaily(ctx context.Context, cfg MailConfig, d *Daily, xlsx []byte) error {
	if !cfg.ready() {
		return ErrMailNotConfigured
	}
	msg := mail.NewMsg()
	if err := msg.From(cfg.From); err != nil {
		return fmt.Errorf("%w: sender %q: %v", ErrMailNotConfigured, cfg.From, err)
	}
	if err := msg.To(recipients(cfg.To)...); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrMailNotConfigured, cfg.To, err)
	}
	msg.Subject("Daily sales " + d.Day.Format("02 Jan 2006"))
	msg.SetDateWithValue(m.now())
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf("Orders: %d\nPending: %d\nCancelled: %d\nRevenue: %s\n",
		d.Stats.Orders, d.Stats.Pending, d.Stats.Cancelled, d.Stats.Revenue.StringFixed(2)))
	if err := msg.AttachReader(d.Filename(), bytes.NewReader(xlsx), mail.WithFileContentType(xlsxType)); err != nil {
		return fmt.Errorf("attach %s: %w", d.Filename(), err)
	}
	return m.send(ctx, cfg, msg)
}

func recipients(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
