package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPOptions configure the email channel.
type SMTPOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}

// Email sends the run summary as an HTML mail. Port 465 speaks implicit
// TLS; any other port connects plain and upgrades with STARTTLS when the
// server offers it.
type Email struct {
	opts SMTPOptions
}

// NewEmail creates the email channel.
func NewEmail(opts SMTPOptions) *Email {
	if opts.Port == 0 {
		opts.Port = 465
	}
	if opts.From == "" {
		opts.From = opts.User
	}
	return &Email{opts: opts}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%d", e.opts.Host, e.opts.Port)

	dialer := &net.Dialer{Timeout: 15 * time.Second}
	var conn net.Conn
	var err error
	if e.opts.Port == 465 {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: e.opts.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("email: dial %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, e.opts.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("email: smtp handshake: %w", err)
	}
	defer client.Close()

	if e.opts.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: e.opts.Host}); err != nil {
				return fmt.Errorf("email: starttls: %w", err)
			}
		}
	}

	if e.opts.User != "" {
		auth := smtp.PlainAuth("", e.opts.User, e.opts.Password, e.opts.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("email: auth: %w", err)
		}
	}

	if err := client.Mail(e.opts.From); err != nil {
		return fmt.Errorf("email: mail from: %w", err)
	}
	for _, rcpt := range e.opts.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("email: rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("email: data: %w", err)
	}
	if _, err := w.Write(e.buildMail(msg)); err != nil {
		return fmt.Errorf("email: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email: close body: %w", err)
	}
	return client.Quit()
}

// buildMail assembles the RFC 5322 message. HTML wins when present so
// mail clients render the summary table.
func (e *Email) buildMail(msg Message) []byte {
	body := msg.HTML
	contentType := "text/html; charset=utf-8"
	if body == "" {
		body = msg.Text
		contentType = "text/plain; charset=utf-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.opts.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.opts.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Title))
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
