package mailer

import (
	"bytes"
	"context"
	"io"
	"net/smtp"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drepo "GrowthLens/internal/domain/repository"
)

func testMailer(send sendFunc) *Mailer {
	m := New(Config{Server: "smtp.example.com", Port: 465, Sender: "bot@example.com", Password: "pw", FromName: "GrowthLens"}, nil)
	m.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	if send != nil {
		m.send = send
	}
	return m
}

func TestBuildIncludesBodyAndAttachments(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ltv.xlsx")
	require.NoError(t, os.WriteFile(file, []byte("payload"), 0o644))

	m := testMailer(nil)
	raw, err := m.Build([]string{"a@example.com", "b@example.com"}, "LTV report", "see attached", []string{file, filepath.Join(dir, "missing.xlsx")})
	require.NoError(t, err)

	r, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	subject, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "LTV report", subject)
	to, err := r.Header.AddressList("To")
	require.NoError(t, err)
	assert.Len(t, to, 2)

	var bodies []string
	var files []string
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		b, _ := io.ReadAll(p.Body)
		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			bodies = append(bodies, string(b))
		case *mail.AttachmentHeader:
			name, _ := h.Filename()
			files = append(files, name)
			assert.Equal(t, "payload", string(b))
		}
	}
	assert.Equal(t, []string{"see attached"}, bodies)
	assert.Equal(t, []string{"ltv.xlsx"}, files)
}

func TestNotifySkipsWithoutCredentials(t *testing.T) {
	called := false
	m := testMailer(func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	})
	m.cfg.Password = ""

	err := m.Notify(context.Background(), []string{"a@example.com"}, "s", "b", nil)
	assert.ErrorIs(t, err, drepo.ErrDeliverySkipped)
	assert.False(t, called)
}

func TestNotifySkipsWithoutRecipients(t *testing.T) {
	m := testMailer(nil)
	assert.ErrorIs(t, m.Notify(context.Background(), nil, "s", "b", nil), drepo.ErrDeliverySkipped)
}

func TestNotifySendsToAllRecipients(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	m := testMailer(func(_ context.Context, addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		assert.NotEmpty(t, msg)
		return nil
	})

	require.NoError(t, m.Notify(context.Background(), []string{"a@example.com", "b@example.com"}, "s", "b", nil))
	assert.Equal(t, "smtp.example.com:465", gotAddr)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)
}

func TestNotifyWrapsSendErrors(t *testing.T) {
	m := testMailer(func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		return io.ErrUnexpectedEOF
	})
	err := m.Notify(context.Background(), []string{"a@example.com"}, "s", "b", nil)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
