package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"

	drepo "GrowthLens/internal/domain/repository"
	applogger "GrowthLens/pkg/logger"
)

type Config struct {
	Server   string
	Port     int
	Sender   string
	Password string
	FromName string
}

// sendFunc delivers an already composed message.
type sendFunc func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends report mails over SMTP with implicit TLS.
type Mailer struct {
	cfg  Config
	l    *applogger.Logger
	send sendFunc
	now  func() time.Time
}

var _ drepo.Notifier = (*Mailer)(nil)

func New(cfg Config, l *applogger.Logger) *Mailer {
	if l == nil {
		l = applogger.NewNop()
	}
	return &Mailer{cfg: cfg, l: l, send: sendTLS, now: time.Now}
}

// Configured reports whether sender credentials are present.
func (m *Mailer) Configured() bool {
	return m.cfg.Sender != "" && m.cfg.Password != ""
}

// Notify mails body with the given files attached. Files that do not exist
// are left out.
func (m *Mailer) Notify(ctx context.Context, recipients []string, subject, body string, attachments []string) error {
	if len(recipients) == 0 {
		return drepo.ErrDeliverySkipped
	}
	if !m.Configured() {
		m.l.Error("Email credentials not configured")
		return drepo.ErrDeliverySkipped
	}

	msg, err := m.Build(recipients, subject, body, attachments)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Server, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.Sender, m.cfg.Password, m.cfg.Server)
	if err := m.send(ctx, addr, auth, m.cfg.Sender, recipients, msg); err != nil {
		m.l.Error("Failed to send email", applogger.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}
	m.l.Info("Email sent", applogger.Strings("recipients", recipients))
	return nil
}

// Build composes a multipart message: a plain text body followed by one
// attachment part per existing file.
func (m *Mailer) Build(recipients []string, subject, body string, attachments []string) ([]byte, error) {
	var h mail.Header
	h.SetDate(m.now())
	h.SetSubject(subject)
	h.SetAddressList("From", []*mail.Address{{Name: m.cfg.FromName, Address: m.cfg.Sender}})
	to := make([]*mail.Address, 0, len(recipients))
	for _, r := range recipients {
		to = append(to, &mail.Address{Address: r})
	}
	h.SetAddressList("To", to)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create inline: %w", err)
	}
	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain; charset=utf-8")
	pw, err := tw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return nil, err
	}
	if err := pw.Close(); err != nil {
		return nil, fmt.Errorf("close body part: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close inline: %w", err)
	}

	for _, path := range attachments {
		if err := m.attach(mw, path); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close mail writer: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *Mailer) attach(mw *mail.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.l.Warn("Attachment not found", applogger.String("path", path))
			return nil
		}
		return fmt.Errorf("read attachment %s: %w", path, err)
	}
	var ah mail.AttachmentHeader
	ah.Set("Content-Type", "application/octet-stream")
	ah.SetFilename(filepath.Base(path))
	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}

func sendTLS(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	d := tls.Dialer{Config: &tls.Config{ServerName: host}}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, r := range to {
		if err := c.Rcpt(r); err != nil {
			return fmt.Errorf("rcpt %s: %w", r, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
