package mailer

import (
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/cursopassei/checkout/pkg/config"
)

// Mailer sends transactional access emails over SMTP. Sends are best
// effort: callers fire them in a goroutine and failures only log.
type Mailer struct {
	addr   string
	auth   smtp.Auth
	from   string
	logger *zap.SugaredLogger
}

func New(conf *config.Config, logger *zap.SugaredLogger) *Mailer {
	var auth smtp.Auth
	if conf.SMTP.Username != "" && conf.SMTP.Password != "" {
		host := conf.SMTP.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", conf.SMTP.Username, conf.SMTP.Password, host)
	}
	return &Mailer{
		addr:   conf.SMTP.Addr,
		auth:   auth,
		from:   conf.SMTP.From,
		logger: logger,
	}
}

// SendAccessEmail mails login credentials to a freshly created student.
func (m *Mailer) SendAccessEmail(toEmail, studentName, courseTitle, accessURL, password string) error {
	subject := fmt.Sprintf("Acesso liberado: %s", courseTitle)
	passwordRow := ""
	if password != "" {
		passwordRow = fmt.Sprintf(`<div><strong>Senha:</strong> %s</div>`, password)
	}
	body := fmt.Sprintf(accessBodyTemplate,
		"Pagamento aprovado",
		"Seu acesso ao curso foi liberado!",
		courseTitle,
		studentName,
		"Enviamos seus dados de acesso por e-mail. Você também pode acessar pela plataforma agora:",
		accessURL,
		toEmail,
		passwordRow,
	)
	return m.send(toEmail, subject, body)
}

// SendExistingUserEmail mails a returning student whose account already
// exists on the membership platform, so no password is included.
func (m *Mailer) SendExistingUserEmail(toEmail, studentName, courseTitle, accessURL string) error {
	subject := fmt.Sprintf("Novo curso liberado: %s", courseTitle)
	body := fmt.Sprintf(accessBodyTemplate,
		"Novo curso liberado",
		"Seu novo curso foi liberado!",
		courseTitle,
		studentName,
		"Seu novo curso foi liberado na sua conta existente. Acesse agora:",
		accessURL,
		toEmail,
		`<div><strong>Senha:</strong> Use sua senha atual</div>`,
	)
	return m.send(toEmail, subject, body)
}

const accessBodyTemplate = `<div style="font-family:Inter, system-ui, -apple-system, Segoe UI, Roboto, Arial; max-width:640px; margin:0 auto; padding:24px; color:#0f172a;">
  <div style="text-align:center; margin-bottom:24px;">
    <div style="display:inline-block; padding:12px 16px; border-radius:9999px; background:#16a34a10; color:#166534; font-weight:600;">%s</div>
    <h1 style="margin:16px 0 8px; font-size:24px;">%s</h1>
    <p style="margin:0; color:#475569;">%s</p>
  </div>
  <div style="background:#f8fafc; border:1px solid #e2e8f0; border-radius:12px; padding:20px;">
    <p style="margin:0 0 12px;">Olá <strong>%s</strong>,</p>
    <p style="margin:0 0 12px;">%s</p>
    <p style="margin:16px 0;"><a href="%s" style="display:inline-block; background:#2563eb; color:#fff; padding:10px 16px; border-radius:8px; text-decoration:none;">Acessar plataforma</a></p>
    <div style="margin-top:16px; font-size:14px; color:#334155;">
      <div><strong>Usuário:</strong> %s</div>
      %s
    </div>
  </div>
  <p style="color:#64748b; font-size:12px; margin-top:16px;">Se não realizou esta compra, entre em contato com nosso suporte.</p>
</div>`

func (m *Mailer) send(to, subject, body string) error {
	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.from, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	from := m.from
	if parsed, err := mail.ParseAddress(m.from); err == nil {
		from = parsed.Address
	}

	if err := smtp.SendMail(m.addr, m.auth, from, []string{to}, msg); err != nil {
		m.logger.Warnw("failed to send email", "to", to, "subject", subject, "err", err)
		return err
	}
	m.logger.Infow("email sent", "to", to, "subject", subject)
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
)
