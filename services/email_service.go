package services

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/kujua-learning/kujua-api/config"
)

// EmailService handles sending emails via SMTP
type EmailService struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	frontendURL string
}

// NewEmailService creates a new email service instance
func NewEmailService(cfg config.SMTPConfig, frontendURL string) *EmailService {
	return &EmailService{
		host:        cfg.Host,
		port:        cfg.Port,
		username:    cfg.Username,
		password:    cfg.Password,
		from:        cfg.From,
		frontendURL: frontendURL,
	}
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.username != "" && e.password != ""
}

// SendWelcomeEmail sends the onboarding email to a newly registered learner
func (e *EmailService) SendWelcomeEmail(toEmail, firstName string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured, skipping welcome email for %s", toEmail)
		return fmt.Errorf("SMTP not configured")
	}

	subject := "Welcome to Kujua Learning"
	body := e.buildWelcomeEmailBody(firstName)

	return e.sendEmail(toEmail, subject, body)
}

// buildWelcomeEmailBody creates the HTML email body for the welcome email
func (e *EmailService) buildWelcomeEmailBody(firstName string) string {
	if firstName == "" {
		firstName = "Learner"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Welcome to Kujua Learning</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            background-color: #ffffff;
            border-radius: 8px;
            padding: 40px;
            box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);
        }
        .logo {
            text-align: center;
            margin-bottom: 30px;
            padding-bottom: 20px;
            border-bottom: 2px solid #1a5632;
        }
        .logo h1 {
            color: #1a5632;
            font-size: 28px;
            margin: 0;
            letter-spacing: -0.5px;
        }
        h2 {
            color: #1a5632;
            margin-top: 0;
        }
        .button {
            display: inline-block;
            background-color: #1a5632;
            color: #ffffff !important;
            padding: 14px 28px;
            text-decoration: none;
            border-radius: 6px;
            font-weight: 600;
            margin: 20px 0;
        }
        .modules {
            background-color: #f5f5f5;
            border-radius: 4px;
            padding: 16px 24px;
            margin: 20px 0;
        }
        .footer {
            margin-top: 30px;
            padding-top: 20px;
            border-top: 1px solid #eee;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo">
            <h1>Kujua Learning</h1>
        </div>

        <h2>Welcome aboard, %s!</h2>

        <p>Your account is ready. The course walks you through four modules on community-led monitoring and people-centred PPR:</p>

        <div class="modules">
            <ol>
                <li>Understanding the Foundations of PPR and CLM</li>
                <li>The Principles and Practice of CLM</li>
                <li>Integrating CLM into PPR Frameworks</li>
                <li>Action, Advocacy and Sustainability</li>
            </ol>
        </div>

        <p>Complete all parts of a module to unlock its assessment. Pass all four assessments to earn your certificate of completion.</p>

        <p style="text-align: center;">
            <a href="%s" class="button">Start Learning</a>
        </p>

        <div class="footer">
            <p><strong>Kujua Learning</strong></p>
            <p>If you did not create this account, you can safely ignore this email.</p>
        </div>
    </div>
</body>
</html>`, firstName, e.frontendURL)
}

// sendEmail sends an email using SMTP with TLS
func (e *EmailService) sendEmail(to, subject, htmlBody string) error {
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("Kujua Learning <%s>", e.from)
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	tlsConfig := &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         e.host,
	}

	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if err := conn.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := conn.Mail(e.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	if _, err = w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	conn.Quit()

	log.Printf("Welcome email sent to: %s", to)
	return nil
}
