package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"

	"go-freelance-backend/internal/domain"
)

// Config is the SMTP relay used for outgoing mail.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	// Verified sender, which may differ from the SMTP login
	From string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends transactional mail through an SMTP relay.
type Mailer struct {
	cfg  Config
	send SendFunc
}

func NewMailer(cfg Config) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// WithSender swaps the transport; tests capture messages with it.
func (m *Mailer) WithSender(send SendFunc) *Mailer {
	m.send = send
	return m
}

// Configured reports whether the relay has credentials.
func (m *Mailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.Username != "" && m.cfg.Password != ""
}

type receiptData struct {
	Name      string
	JobTitle  string
	Milestone int
	Task      string
	Amount    string
	Balance   string
}

const receiptTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Milestone paid</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #1E3A5F; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background: #f9f9f9; }
        .label { font-weight: bold; color: #555; }
        .amount { font-size: 24px; color: #1E3A5F; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Milestone paid</h1>
        </div>
        <div class="content">
            <p>Hi {{.Name}},</p>
            <p>Milestone {{.Milestone}} of <span class="label">{{.JobTitle}}</span> has been paid.</p>
            <p class="label">Task:</p>
            <p>{{.Task}}</p>
            <p class="amount">{{.Amount}}</p>
            <p>Your wallet balance is now {{.Balance}}.</p>
        </div>
    </div>
</body>
</html>`

var receiptTmpl = template.Must(template.New("receipt").Parse(receiptTemplate))

// RenderReceipt returns the subject and HTML body of a payment receipt.
func RenderReceipt(notice domain.ReceiptNotice) (string, string, error) {
	r := notice.Receipt
	data := receiptData{
		Name:      notice.Name,
		JobTitle:  notice.JobTitle,
		Milestone: r.MilestoneIndex + 1,
		Task:      r.Milestone.Description,
		Amount:    "$" + strconv.FormatFloat(r.Amount, 'f', 2, 64),
		Balance:   "$" + strconv.FormatFloat(r.FreelancerBalance, 'f', 2, 64),
	}
	if data.Name == "" {
		data.Name = "there"
	}

	var body bytes.Buffer
	if err := receiptTmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to execute email template: %w", err)
	}
	subject := fmt.Sprintf("Payment received: %s (milestone %d)", notice.JobTitle, data.Milestone)
	return subject, body.String(), nil
}

// SendPaymentReceipt mails the receipt to the freelancer.
func (m *Mailer) SendPaymentReceipt(ctx context.Context, notice domain.ReceiptNotice) error {
	if notice.Email == "" {
		return fmt.Errorf("freelancer has no email address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := RenderReceipt(notice)
	if err != nil {
		return err
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		m.cfg.From,
		notice.Email,
		subject,
		body,
	))

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := m.send(addr, auth, m.cfg.From, []string{notice.Email}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
