package email

import (
	"fmt"
	"net/smtp"
	"os"
)

// SendEmail sends a plain text email using SMTP. Connection settings come
// from the environment (SMTP_SENDER, SMTP_PASSWORD, SMTP_HOST, SMTP_PORT).
func SendEmail(to, subject, body string) error {
	sender := os.Getenv("SMTP_SENDER")
	password := os.Getenv("SMTP_PASSWORD")
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")

	if smtpHost == "" {
		return fmt.Errorf("smtp is not configured")
	}

	auth := smtp.PlainAuth("", sender, password, smtpHost)

	msg := []byte("From: " + sender + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body + "\r\n")

	address := smtpHost + ":" + smtpPort

	if err := smtp.SendMail(address, auth, sender, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}
