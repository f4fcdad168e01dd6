package notify

import (
	"context"
	"errors"
	"fmt"
	"mypage-client/internal/report"
	"mypage-client/lib/scrapers/mypage"
	"mypage-client/lib/telemetry"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("mypage-client/internal/notify")

var ErrNoRecipient = errors.New("notify: no recipient")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

func (c SmtpConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

type Notifier struct {
	smtp SmtpConfig
}

func NewNotifier(config SmtpConfig) Notifier {
	return Notifier{smtp: config}
}

// Compose builds the digest mail of the records due this month. The CSV is
// both the body and an attachment.
func (n Notifier) Compose(to string, records []mypage.SubjectScore, today time.Time) (*email.Email, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, ErrNoRecipient
	}

	due := report.ThisMonth(records, today)
	csv := report.ToCsv(due)

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("mypage-client <%s>", n.smtp.EmailAddress)
	mail.To = []string{to}
	mail.Subject = fmt.Sprintf("%d月のレポート (%d件)", int(today.Month()), len(due))
	mail.Text = []byte(csv + "\n")

	_, err := mail.Attach(
		strings.NewReader(csv+"\n"),
		fmt.Sprintf("reports-%s.csv", today.Format("2006-01")),
		"text/csv; charset=utf-8",
	)
	if err != nil {
		return nil, err
	}
	return mail, nil
}

// Send composes and sends the digest. Servers that do not support AUTH are
// retried without it.
func (n Notifier) Send(ctx context.Context, to string, records []mypage.SubjectScore, today time.Time) error {
	_, span := tracer.Start(ctx, "notify:Send")
	defer span.End()

	mail, err := n.Compose(to, records, today)
	if err != nil {
		span.SetStatus(codes.Error, "failed to compose email")
		return err
	}

	err = mail.Send(
		n.smtp.addr(),
		smtp.PlainAuth("", n.smtp.EmailAddress, n.smtp.Password, n.smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(n.smtp.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
