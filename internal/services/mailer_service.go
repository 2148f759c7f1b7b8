package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/example/hdstore/internal/config"
)

// MailerService delivers transactional email over SMTP. A blank host
// disables delivery so local runs work without a mail account.
type MailerService struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewMailerService constructs a MailerService from config.
func NewMailerService(cfg *config.Config) *MailerService {
	from := cfg.MailFrom
	if from == "" {
		from = cfg.MailUser
	}
	return &MailerService{
		host:     cfg.MailHost,
		port:     cfg.MailPort,
		username: cfg.MailUser,
		password: cfg.MailPass,
		from:     from,
	}
}

// Send delivers a single HTML message.
func (s *MailerService) Send(to, subject, htmlBody string) error {
	if s.host == "" {
		log.Printf("[Mailer] SMTP not configured, dropping message to %s", to)
		return nil
	}

	var msg strings.Builder
	msg.WriteString("From: " + s.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	addr := s.host + ":" + s.port

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg.String())); err != nil {
		log.Printf("[Mailer] failed to send to %s: %v", to, err)
		return err
	}

	return nil
}

// SendOTP delivers the one-time verification code to a customer.
func (s *MailerService) SendOTP(to, name, code string) error {
	if name == "" {
		name = "customer"
	}

	subject := "Account verification code"
	body := fmt.Sprintf(`<html><body>
<h2>Hello %s!</h2>
<p>Thank you for registering an account with our store.</p>
<p>Your verification code is:</p>
<h1 style="letter-spacing:5px">%s</h1>
<p><strong>Note:</strong> this code expires in 10 minutes.</p>
<p>Do not share this code with anyone. If you did not request it, ignore this email.</p>
</body></html>`, name, code)

	return s.Send(to, subject, body)
}
