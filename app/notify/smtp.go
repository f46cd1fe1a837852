package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPSender delivers messages through a mail server.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string

	send func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		auth: auth,
		from: from,
		send: sendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sender, err := mail.ParseAddress(s.from)
	if err != nil {
		return fmt.Errorf("invalid sender %q: %w", s.from, err)
	}
	recipient, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.send(ctx, s.addr, s.auth, sender.Address, []string{recipient.Address}, buildMessage(sender, recipient, msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", s.addr, ctx.Err())
	}
}

// sendMail is smtp.SendMail bounded by ctx: the connection carries the
// context deadline and is closed when ctx is cancelled.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(from, to *mail.Address, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from.String() + "\r\n")
	b.WriteString("To: " + to.String() + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
