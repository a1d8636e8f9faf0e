package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"time"

	"github.com/wneessen/go-mail"

	"recoagent/internal/config"
)

const sendTimeout = 10 * time.Second

// Mailer sends best-effort failure alerts to a fixed operator address over
// SMTP. Delivery problems are logged and swallowed; they never influence the
// response returned to the chat caller.
type Mailer struct {
	cfg config.EmailConfig
}

// NewMailer builds a mailer from the email configuration. An empty host or
// recipient disables delivery, which keeps local setups runnable without an
// SMTP account.
func NewMailer(cfg config.EmailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// NotifyFailure delivers one alert describing a failed chat turn.
func (m *Mailer) NotifyFailure(ctx context.Context, subject, detail string) {
	if m.cfg.Host == "" || m.cfg.Recipient == "" {
		log.Printf("failure alert skipped (email not configured): %s", subject)
		return
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Sender); err != nil {
		log.Printf("failure alert sender: %v", err)
		return
	}
	if err := msg.To(m.cfg.Recipient); err != nil {
		log.Printf("failure alert recipient: %v", err)
		return
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, detail)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody(subject, detail))

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTimeout(sendTimeout),
	)
	if err != nil {
		log.Printf("failure alert client: %v", err)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := client.DialAndSendWithContext(sendCtx, msg); err != nil {
		log.Printf("send failure alert: %v", err)
		return
	}
	log.Printf("failure alert sent: %s", subject)
}

func htmlBody(subject, detail string) string {
	detectedAt := time.Now().Format("02/01/2006 à 15:04:05")
	return fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
  <div style="max-width: 600px; margin: auto; background: #ffffff; border-radius: 10px; padding: 30px;">
    <h2 style="color: #d32f2f;">%s</h2>
    <div style="margin: 20px 0; padding: 15px; background-color: #ffecec; border-left: 4px solid #f44336;">
      <pre style="white-space: pre-wrap; font-family: inherit;">%s</pre>
    </div>
    <p style="font-size: 14px; color: #555;">Heure de détection : <strong>%s</strong></p>
  </div>
</body>
</html>`, html.EscapeString(subject), html.EscapeString(detail), detectedAt)
}
